package domain

// VenueKind identifies the protocol that produced a trade event.
type VenueKind string

// Venue kinds.
const (
	VenueKindLaunchpad VenueKind = "RAYDIUM_LAUNCHPAD"
	VenueKindUnknown   VenueKind = "UNKNOWN"
)

// Confidence describes where the economic fields of a TradeInfo came from.
type Confidence string

// Confidence levels.
const (
	// ConfidenceDecoded means price, reserves and deltas were decoded from a venue event.
	ConfidenceDecoded Confidence = "DECODED"
	// ConfidencePlaceholder means economic fields hold fixed placeholder values.
	ConfidencePlaceholder Confidence = "PLACEHOLDER"
)

// TradeInfo is a normalized trade event extracted from one transaction.
// Values are produced once by the extractor and never mutated afterwards.
type TradeInfo struct {
	VenueKind VenueKind
	Slot      int64
	Timestamp int64 // Unix timestamp in milliseconds
	Signature string
	PoolID    string
	Mint      string

	IsBuy bool
	// DirectionAmbiguous is set when log markers alone could not separate buy from sell.
	DirectionAmbiguous bool

	Price       uint64 // lamports per whole token
	IsReverse   bool
	CoinCreator *string // nullable

	SolChange   float64 // signed SOL delta from the trader's perspective
	TokenChange float64 // signed token delta in raw base units
	Liquidity   float64 // approximate pool depth in SOL

	VirtualSolReserves   uint64 // lamports
	VirtualTokenReserves uint64 // raw base units

	Confidence Confidence
}

// IsPlaceholder reports whether the economic fields are synthetic.
func (t *TradeInfo) IsPlaceholder() bool {
	return t.Confidence != ConfidenceDecoded
}

// Trade sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Side returns SideBuy or SideSell.
func (t *TradeInfo) Side() string {
	if t.IsBuy {
		return SideBuy
	}
	return SideSell
}
