package domain

// SellRecord is the persisted form of a SellOutcome.
// Corresponds to sell_records table in PostgreSQL.
type SellRecord struct {
	SellID            string
	TradeSignature    string
	Mint              string
	PoolID            string
	Success           bool
	Signature         *string // nullable
	Error             *string // nullable
	UsedFallbackVenue bool
	AttemptCount      int
	Venue             string
	StartedAt         int64 // ms
	DurationMs        int64
}

// AttemptRecord is one build/submit/verify attempt against a venue.
// Corresponds to sell_attempts table in ClickHouse.
type AttemptRecord struct {
	SellID    string
	Venue     string
	Attempt   int
	Stage     string // "build" | "submit" | "verify" | "done"
	Success   bool
	Signature string
	Error     string
	LatencyMs int64
	Timestamp int64 // ms
}

// Attempt stages.
const (
	StageBuild  = "build"
	StageSubmit = "submit"
	StageVerify = "verify"
	StageDone   = "done"
)

// NewSellRecord converts an outcome into its persisted form.
func NewSellRecord(trade *TradeInfo, o SellOutcome) *SellRecord {
	r := &SellRecord{
		SellID:            o.ID,
		Success:           o.Success,
		Signature:         o.Signature,
		UsedFallbackVenue: o.UsedFallbackVenue,
		AttemptCount:      o.AttemptCount,
		Venue:             o.Venue,
		StartedAt:         o.StartedAt.UnixMilli(),
		DurationMs:        o.Duration.Milliseconds(),
	}
	if trade != nil {
		r.TradeSignature = trade.Signature
		r.Mint = trade.Mint
		r.PoolID = trade.PoolID
	}
	if o.Error != "" {
		e := o.Error
		r.Error = &e
	}
	return r
}
