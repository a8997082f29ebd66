package discovery

import (
	"fmt"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/solana"
)

// Placeholder economic values used when no venue event could be decoded.
// Records carrying them are marked domain.ConfidencePlaceholder.
const (
	PlaceholderPrice                = 1_000_000_000
	PlaceholderSolChange            = 0.1
	PlaceholderTokenChange          = 1_000_000.0
	PlaceholderLiquidity            = 1000.0
	PlaceholderVirtualSolReserves   = 30_000_000_000
	PlaceholderVirtualTokenReserves = 1_000_000_000_000_000
)

// DecodedTrade holds the venue-decoded economic fields of a trade.
type DecodedTrade struct {
	PoolID               string
	IsBuy                bool
	Price                uint64
	SolChange            float64
	TokenChange          float64
	Liquidity            float64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

// EventDecoder decodes venue event payloads found in inner instructions.
// It returns nil, nil for payloads that are not its events.
type EventDecoder interface {
	DecodeEvent(data []byte, decimals uint8) (*DecodedTrade, error)
}

type venue struct {
	programID string
	kind      domain.VenueKind
	decoder   EventDecoder
}

// Extractor turns transactions touching a registered venue into TradeInfo records.
// Extract is a pure function of its input and is safe for concurrent use once
// registration is complete.
type Extractor struct {
	venues      []venue
	defaultMint string
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithDefaultMint overrides the mint used when balances do not identify the token.
func WithDefaultMint(mint string) ExtractorOption {
	return func(e *Extractor) {
		e.defaultMint = mint
	}
}

// NewExtractor creates an extractor with the launchpad venue registered.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{defaultMint: DefaultMint}
	for _, opt := range opts {
		opt(e)
	}
	e.RegisterVenue(LaunchpadProgram, domain.VenueKindLaunchpad, LaunchpadDecoder{})
	return e
}

// RegisterVenue registers a decoder for a venue program. A program registered
// twice keeps its first registration.
func (e *Extractor) RegisterVenue(programID string, kind domain.VenueKind, decoder EventDecoder) {
	for _, v := range e.venues {
		if v.programID == programID {
			return
		}
	}
	e.venues = append(e.venues, venue{programID: programID, kind: kind, decoder: decoder})
}

// Extract returns the trade carried by tx, or nil if tx does not touch a
// registered venue or carries no inner-instruction payload. An error is
// returned only for a venue event whose payload is truncated.
func (e *Extractor) Extract(tx *solana.Transaction) (*domain.TradeInfo, error) {
	if tx == nil || tx.Message == nil || tx.Meta == nil {
		return nil, nil
	}

	v, ok := e.matchVenue(tx.Message.AccountKeys)
	if !ok {
		return nil, nil
	}

	payloads := innerPayloads(tx.Meta, tx.Message.AccountKeys, v.programID)
	if len(payloads) == 0 {
		return nil, nil
	}

	mint := resolveMint(tx.Meta.PostTokenBalances, e.defaultMint)
	decimals := mintDecimals(tx.Meta, mint)
	dir := directionFromLogs(tx.Meta.LogMessages)

	info := &domain.TradeInfo{
		VenueKind: v.kind,
		Slot:      tx.Slot,
		Timestamp: eventTimestamp(tx),
		Signature: tx.Signature,
		Mint:      mint,
	}

	for _, p := range payloads {
		if !p.fromVenue {
			continue
		}
		decoded, err := v.decoder.DecodeEvent(p.data, decimals)
		if err != nil {
			return nil, fmt.Errorf("decode %s event in %s: %w", v.kind, tx.Signature, err)
		}
		if decoded == nil {
			continue
		}
		info.PoolID = decoded.PoolID
		info.IsBuy = decoded.IsBuy
		info.Price = decoded.Price
		info.SolChange = decoded.SolChange
		info.TokenChange = decoded.TokenChange
		info.Liquidity = decoded.Liquidity
		info.VirtualSolReserves = decoded.VirtualSolReserves
		info.VirtualTokenReserves = decoded.VirtualTokenReserves
		info.Confidence = domain.ConfidenceDecoded
		return info, nil
	}

	info.IsBuy = dir.isBuy
	info.DirectionAmbiguous = dir.ambiguous
	info.Price = PlaceholderPrice
	info.SolChange = PlaceholderSolChange
	info.TokenChange = -PlaceholderTokenChange
	if info.IsBuy {
		info.SolChange = -PlaceholderSolChange
		info.TokenChange = PlaceholderTokenChange
	}
	info.Liquidity = PlaceholderLiquidity
	info.VirtualSolReserves = PlaceholderVirtualSolReserves
	info.VirtualTokenReserves = PlaceholderVirtualTokenReserves
	info.Confidence = domain.ConfidencePlaceholder
	return info, nil
}

func (e *Extractor) matchVenue(keys []string) (venue, bool) {
	for _, v := range e.venues {
		for _, k := range keys {
			if k == v.programID {
				return v, true
			}
		}
	}
	return venue{}, false
}

type payload struct {
	data      []byte
	fromVenue bool
}

// innerPayloads collects non-empty inner-instruction data in execution order.
func innerPayloads(meta *solana.TransactionMeta, keys []string, programID string) []payload {
	var out []payload
	for _, set := range meta.InnerInstructions {
		for _, ix := range set.Instructions {
			if len(ix.Data) == 0 {
				continue
			}
			fromVenue := ix.ProgramIDIndex >= 0 && ix.ProgramIDIndex < len(keys) && keys[ix.ProgramIDIndex] == programID
			out = append(out, payload{data: ix.Data, fromVenue: fromVenue})
		}
	}
	return out
}

// eventTimestamp returns block time in ms, falling back to the receive time.
func eventTimestamp(tx *solana.Transaction) int64 {
	if tx.BlockTime > 0 {
		return tx.BlockTime * 1000
	}
	return tx.ReceivedAt
}
