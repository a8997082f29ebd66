package discovery

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// LaunchpadProgram is the Raydium Launchpad program ID.
const LaunchpadProgram = "LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj"

const lamportsPerSOL = 1_000_000_000

// Anchor event-CPI framing: an 8-byte instruction tag followed by the
// 8-byte event discriminator (sha256("event:TradeEvent")[:8]).
var (
	eventCPITag             = []byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}
	tradeEventDiscriminator = []byte{0xbd, 0xdb, 0x7f, 0xd3, 0x4e, 0xe6, 0x61, 0xee}
)

// TradeEvent body offsets, relative to the end of the 16-byte header.
const (
	offPoolState       = 0
	offTotalBaseSell   = 32
	offVirtualBase     = 40
	offVirtualQuote    = 48
	offRealBaseBefore  = 56
	offRealQuoteBefore = 64
	offRealBaseAfter   = 72
	offRealQuoteAfter  = 80
	offAmountIn        = 88
	offAmountOut       = 96
	offProtocolFee     = 104
	offPlatformFee     = 112
	offShareFee        = 120
	offTradeDirection  = 128
	offPoolStatus      = 129

	tradeEventBodyLen = 130
	eventHeaderLen    = 16
)

// LaunchpadTradeEvent is the TradeEvent emitted by the launchpad on every buy and sell.
type LaunchpadTradeEvent struct {
	PoolState       string
	TotalBaseSell   uint64
	VirtualBase     uint64
	VirtualQuote    uint64
	RealBaseBefore  uint64
	RealQuoteBefore uint64
	RealBaseAfter   uint64
	RealQuoteAfter  uint64
	AmountIn        uint64
	AmountOut       uint64
	ProtocolFee     uint64
	PlatformFee     uint64
	ShareFee        uint64
	Direction       uint8 // 0 buy, 1 sell
	PoolStatus      uint8
}

// ParseLaunchpadTradeEvent parses an inner-instruction payload.
// Returns nil, nil if the payload is not a TradeEvent and ErrInsufficientData
// if it is one but the body is truncated.
func ParseLaunchpadTradeEvent(data []byte) (*LaunchpadTradeEvent, error) {
	if len(data) < eventHeaderLen ||
		!bytes.Equal(data[:8], eventCPITag) ||
		!bytes.Equal(data[8:eventHeaderLen], tradeEventDiscriminator) {
		return nil, nil
	}
	body := data[eventHeaderLen:]
	if len(body) < tradeEventBodyLen {
		return nil, fmt.Errorf("trade event body %d bytes, need %d: %w", len(body), tradeEventBodyLen, ErrInsufficientData)
	}

	ev := &LaunchpadTradeEvent{}
	ev.PoolState, _ = ReadPubkey(body, offPoolState)
	for _, f := range []struct {
		dst *uint64
		off int
	}{
		{&ev.TotalBaseSell, offTotalBaseSell},
		{&ev.VirtualBase, offVirtualBase},
		{&ev.VirtualQuote, offVirtualQuote},
		{&ev.RealBaseBefore, offRealBaseBefore},
		{&ev.RealQuoteBefore, offRealQuoteBefore},
		{&ev.RealBaseAfter, offRealBaseAfter},
		{&ev.RealQuoteAfter, offRealQuoteAfter},
		{&ev.AmountIn, offAmountIn},
		{&ev.AmountOut, offAmountOut},
		{&ev.ProtocolFee, offProtocolFee},
		{&ev.PlatformFee, offPlatformFee},
		{&ev.ShareFee, offShareFee},
	} {
		*f.dst, _ = ReadU64LE(body, f.off)
	}
	ev.Direction, _ = ReadU8(body, offTradeDirection)
	ev.PoolStatus, _ = ReadU8(body, offPoolStatus)
	return ev, nil
}

// LaunchpadDecoder decodes launchpad TradeEvents into trade fields.
type LaunchpadDecoder struct{}

// DecodeEvent implements EventDecoder.
func (LaunchpadDecoder) DecodeEvent(data []byte, decimals uint8) (*DecodedTrade, error) {
	ev, err := ParseLaunchpadTradeEvent(data)
	if err != nil || ev == nil {
		return nil, err
	}

	// The curve prices against effective reserves: the virtual base less what has
	// been sold, and the virtual quote plus what has been collected.
	var vtr uint64
	if ev.VirtualBase > ev.RealBaseAfter {
		vtr = ev.VirtualBase - ev.RealBaseAfter
	}
	vsr := ev.VirtualQuote + ev.RealQuoteAfter

	out := &DecodedTrade{
		PoolID:               ev.PoolState,
		IsBuy:                ev.Direction == 0,
		Price:                curvePrice(vsr, vtr, decimals),
		Liquidity:            lamportsToSOL(ev.RealQuoteAfter),
		VirtualSolReserves:   vsr,
		VirtualTokenReserves: vtr,
	}
	if out.IsBuy {
		out.SolChange = -lamportsToSOL(ev.AmountIn)
		out.TokenChange = float64(ev.AmountOut)
	} else {
		out.SolChange = lamportsToSOL(ev.AmountOut)
		out.TokenChange = -float64(ev.AmountIn)
	}
	return out, nil
}

// curvePrice returns lamports per whole token.
func curvePrice(vsr, vtr uint64, decimals uint8) uint64 {
	if vtr == 0 {
		return 0
	}
	p := decimalFromUint64(vsr).
		Mul(decimal.New(1, int32(decimals))).
		Div(decimalFromUint64(vtr)).
		Floor()
	return p.BigInt().Uint64()
}

func lamportsToSOL(v uint64) float64 {
	f, _ := decimalFromUint64(v).Div(decimal.NewFromInt(lamportsPerSOL)).Float64()
	return f
}

func decimalFromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
