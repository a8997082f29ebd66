// Package journal persists executor attempts and outcomes.
package journal

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/executor"
	"solana-exit-engine/internal/storage"
)

const defaultWriteTimeout = 5 * time.Second

// Recorder is an executor.Observer that writes AttemptRecords and
// SellRecords. Write failures are logged and never affect the sell.
// A successful sell marks its mint exited when a ProgressStore is set.
type Recorder struct {
	sells    storage.SellRecordStore
	attempts storage.AttemptStore
	progress storage.ProgressStore
	log      logrus.FieldLogger
	timeout  time.Duration
}

// NewRecorder creates a Recorder. progress may be nil.
func NewRecorder(sells storage.SellRecordStore, attempts storage.AttemptStore, progress storage.ProgressStore, log logrus.FieldLogger) *Recorder {
	return &Recorder{
		sells:    sells,
		attempts: attempts,
		progress: progress,
		log:      log,
		timeout:  defaultWriteTimeout,
	}
}

var _ executor.Observer = (*Recorder)(nil)

func (r *Recorder) AttemptStarted(executor.Attempt) {}

func (r *Recorder) AttemptFinished(a executor.Attempt, res executor.AttemptResult) {
	rec := &domain.AttemptRecord{
		SellID:    a.SellID,
		Venue:     a.Venue,
		Attempt:   a.Number,
		Stage:     res.Stage,
		Success:   res.Succeeded(),
		Signature: res.Signature,
		LatencyMs: res.Duration.Milliseconds(),
		Timestamp: a.StartedAt.UnixMilli(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	ctx, cancel := r.context()
	defer cancel()
	if err := r.attempts.Insert(ctx, rec); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"sell_id": a.SellID,
			"venue":   a.Venue,
			"attempt": a.Number,
		}).Warn("journal: write attempt")
	}
}

func (r *Recorder) SellFinished(trade *domain.TradeInfo, o domain.SellOutcome) {
	ctx, cancel := r.context()
	defer cancel()

	if err := r.sells.Insert(ctx, domain.NewSellRecord(trade, o)); err != nil {
		r.log.WithError(err).WithField("sell_id", o.ID).Warn("journal: write sell record")
	}

	if r.progress == nil || trade == nil {
		return
	}
	if o.Success {
		if err := r.progress.MarkMintExited(ctx, trade.Mint); err != nil {
			r.log.WithError(err).WithField("mint", trade.Mint).Warn("journal: mark mint exited")
		}
	}
	progress := &storage.WatchProgress{Slot: uint64(trade.Slot), Signature: trade.Signature}
	if err := r.progress.SetLastProcessed(ctx, progress); err != nil {
		r.log.WithError(err).Warn("journal: save progress")
	}
}

// context is detached from the sell so a canceled run is still recorded.
func (r *Recorder) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}
