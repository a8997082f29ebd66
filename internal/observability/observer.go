package observability

import (
	"strconv"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/executor"
)

// MetricsObserver records executor checkpoints as metrics.
type MetricsObserver struct {
	m *Metrics
}

// NewMetricsObserver creates a MetricsObserver.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{m: m}
}

var _ executor.Observer = (*MetricsObserver)(nil)

func (o *MetricsObserver) AttemptStarted(executor.Attempt) {}

func (o *MetricsObserver) AttemptFinished(a executor.Attempt, r executor.AttemptResult) {
	result := "failure"
	if r.Succeeded() {
		result = "success"
	}
	o.m.SellAttempts.WithLabelValues(a.Venue, r.Stage, result).Inc()
	o.m.SellAttemptLatency.WithLabelValues(a.Venue).Observe(r.Duration.Seconds())
}

func (o *MetricsObserver) SellFinished(_ *domain.TradeInfo, out domain.SellOutcome) {
	result := "failure"
	if out.Success {
		result = "success"
		o.m.LastSuccessfulSell.Set(float64(out.StartedAt.Add(out.Duration).Unix()))
	}
	o.m.SellOutcomes.WithLabelValues(out.Venue, result, strconv.FormatBool(out.UsedFallbackVenue)).Inc()
	o.m.SellDuration.Observe(out.Duration.Seconds())
}
