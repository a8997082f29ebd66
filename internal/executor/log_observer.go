package executor

import (
	"github.com/sirupsen/logrus"

	"solana-exit-engine/internal/domain"
)

// LogObserver writes executor checkpoints as structured log entries.
type LogObserver struct {
	log logrus.FieldLogger
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(log logrus.FieldLogger) *LogObserver {
	return &LogObserver{log: log}
}

func (l *LogObserver) AttemptStarted(a Attempt) {
	l.log.WithFields(logrus.Fields{
		"sell_id": a.SellID,
		"venue":   a.Venue,
		"attempt": a.Number,
		"mint":    a.Mint,
	}).Info("sell attempt started")
}

func (l *LogObserver) AttemptFinished(a Attempt, r AttemptResult) {
	entry := l.log.WithFields(logrus.Fields{
		"sell_id":    a.SellID,
		"venue":      a.Venue,
		"attempt":    a.Number,
		"stage":      r.Stage,
		"latency_ms": r.Duration.Milliseconds(),
	})
	if r.Signature != "" {
		entry = entry.WithField("signature", r.Signature)
	}
	if r.Err != nil {
		entry.WithError(r.Err).Warn("sell attempt failed")
		return
	}
	entry.Info("sell attempt verified")
}

func (l *LogObserver) SellFinished(trade *domain.TradeInfo, o domain.SellOutcome) {
	fields := logrus.Fields{
		"sell_id":       o.ID,
		"success":       o.Success,
		"venue":         o.Venue,
		"used_fallback": o.UsedFallbackVenue,
		"attempts":      o.AttemptCount,
		"duration_ms":   o.Duration.Milliseconds(),
	}
	if trade != nil {
		fields["mint"] = trade.Mint
		fields["trigger_signature"] = trade.Signature
	}
	if o.Signature != nil {
		fields["signature"] = *o.Signature
	}

	entry := l.log.WithFields(fields)
	if !o.Success {
		entry.WithField("error", o.Error).Error("sell failed")
		return
	}
	entry.Info("sell confirmed")
}
