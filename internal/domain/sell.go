package domain

import "time"

// SellConfig controls how a single sell is constructed.
type SellConfig struct {
	SlippageBps    uint16  // maximum tolerated price deviation in basis points
	AmountFraction float64 // fraction of the held balance to sell, (0, 1]
	// PriorityFeeMicroLamports is the compute unit price.
	PriorityFeeMicroLamports uint64
	ComputeUnitLimit         uint32
}

// DefaultSellConfig returns the sell configuration used when none is supplied.
func DefaultSellConfig() SellConfig {
	return SellConfig{
		SlippageBps:              500,
		AmountFraction:           1.0,
		PriorityFeeMicroLamports: 100_000,
		ComputeUnitLimit:         200_000,
	}
}

// SellOutcome is the result of one full sell attempt sequence.
type SellOutcome struct {
	ID        string // uuid of this sell run
	Success   bool
	Signature *string // set iff a transaction was submitted and observed on-chain
	Error     string  // last error encountered; empty on success
	// UsedFallbackVenue is true when the primary venue was abandoned.
	UsedFallbackVenue bool
	// AttemptCount counts primary venue attempts only.
	AttemptCount int
	Venue        string // venue that produced the final result
	StartedAt    time.Time
	Duration     time.Duration
}

// HasError reports whether the outcome carries an error summary.
func (o SellOutcome) HasError() bool {
	return o.Error != ""
}
