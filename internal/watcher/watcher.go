// Package watcher follows the venue program's log stream and sells watched
// mints when a matching trade is observed.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/observability"
	"solana-exit-engine/internal/solana"
	"solana-exit-engine/internal/storage"
)

const (
	DefaultMaxConcurrent = 4
	DefaultDedupeSize    = 10_000
)

// LogSource delivers log notifications until ctx is canceled.
type LogSource interface {
	Subscribe(ctx context.Context) (<-chan solana.LogNotification, error)
}

// Seller executes one exit.
type Seller interface {
	ExecuteSell(ctx context.Context, trade *domain.TradeInfo, cfg domain.SellConfig) domain.SellOutcome
}

// Options contains configuration for creating a Watcher.
type Options struct {
	Source   LogSource
	Resolver *Resolver
	Policy   *Policy
	Seller   Seller
	Sell     domain.SellConfig

	// Progress is optional. When set, exited mints survive restarts.
	Progress storage.ProgressStore
	Metrics  *observability.Metrics
	Logger   logrus.FieldLogger

	MaxConcurrent int
	DedupeSize    int
}

// Watcher runs the live exit pipeline: stream, dedupe, fetch, extract,
// policy, sell. At most one sell per mint is in flight, and a mint that
// sold successfully is never sold again.
type Watcher struct {
	source   LogSource
	resolver *Resolver
	policy   *Policy
	seller   Seller
	sell     domain.SellConfig
	progress storage.ProgressStore
	metrics  *observability.Metrics
	log      logrus.FieldLogger

	maxConcurrent int
	seen          *lru.Cache[string, struct{}]

	mu       sync.Mutex
	inFlight map[string]struct{}
	exited   map[string]struct{}
	maxSlot  int64
}

// New creates a Watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Source == nil || opts.Resolver == nil || opts.Seller == nil {
		return nil, errors.New("watcher: source, resolver and seller are required")
	}
	if opts.Policy == nil {
		opts.Policy = NewPolicy(nil, 0, true, false)
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics(observability.DefaultNamespace)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.DedupeSize <= 0 {
		opts.DedupeSize = DefaultDedupeSize
	}

	seen, err := lru.New[string, struct{}](opts.DedupeSize)
	if err != nil {
		return nil, fmt.Errorf("watcher: dedupe cache: %w", err)
	}

	return &Watcher{
		source:        opts.Source,
		resolver:      opts.Resolver,
		policy:        opts.Policy,
		seller:        opts.Seller,
		sell:          opts.Sell,
		progress:      opts.Progress,
		metrics:       opts.Metrics,
		log:           opts.Logger,
		maxConcurrent: opts.MaxConcurrent,
		seen:          seen,
		inFlight:      make(map[string]struct{}),
		exited:        make(map[string]struct{}),
	}, nil
}

// Run blocks until ctx is canceled or the stream closes, then waits for
// in-flight sells to finish.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.restore(ctx); err != nil {
		return err
	}

	notifications, err := w.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("watcher: subscribe: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(w.maxConcurrent)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case n, ok := <-notifications:
			if !ok {
				w.log.Warn("log stream closed")
				break loop
			}
			if !w.accept(n) {
				continue
			}
			g.Go(func() error {
				w.process(ctx, n)
				return nil
			})
		}
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// restore loads exited mints and logs the last handled trade.
func (w *Watcher) restore(ctx context.Context) error {
	if w.progress == nil {
		return nil
	}

	mints, err := w.progress.LoadExitedMints(ctx)
	if err != nil {
		return fmt.Errorf("watcher: load exited mints: %w", err)
	}
	w.mu.Lock()
	for _, m := range mints {
		w.exited[m] = struct{}{}
	}
	w.mu.Unlock()

	last, err := w.progress.GetLastProcessed(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		w.log.WithField("exited_mints", len(mints)).Info("watcher starting fresh")
	case err != nil:
		return fmt.Errorf("watcher: load progress: %w", err)
	default:
		w.log.WithFields(logrus.Fields{
			"exited_mints":   len(mints),
			"last_slot":      last.Slot,
			"last_signature": last.Signature,
		}).Info("watcher resuming")
	}
	return nil
}

// accept filters failed and duplicate notifications.
func (w *Watcher) accept(n solana.LogNotification) bool {
	w.metrics.StreamNotifications.Inc()

	w.mu.Lock()
	if n.Slot > w.maxSlot {
		w.maxSlot = n.Slot
		w.metrics.HighestSlotSeen.Set(float64(n.Slot))
	}
	w.mu.Unlock()

	if n.Err != nil {
		w.metrics.TriggersSkipped.WithLabelValues(SkipFailedTx).Inc()
		return false
	}
	if found, _ := w.seen.ContainsOrAdd(n.Signature, struct{}{}); found {
		w.metrics.DuplicateSignatures.Inc()
		return false
	}
	return true
}

func (w *Watcher) process(ctx context.Context, n solana.LogNotification) {
	log := w.log.WithFields(logrus.Fields{"signature": n.Signature, "slot": n.Slot})

	tx, err := w.resolver.FetchTransaction(ctx, n.Signature)
	if err != nil {
		if ctx.Err() == nil {
			w.skip(SkipFetchFailed)
			log.WithError(err).Warn("fetch trigger transaction")
		}
		return
	}
	if tx.Signature == "" {
		tx.Signature = n.Signature
	}

	trade, err := w.resolver.Extractor.Extract(tx)
	if err != nil {
		w.metrics.ExtractErrors.Inc()
		log.WithError(err).Warn("extract trade")
		return
	}
	if trade == nil {
		w.skip(SkipNoTrade)
		return
	}
	if trade.Slot == 0 {
		trade.Slot = n.Slot
	}
	w.metrics.TradesExtracted.WithLabelValues(trade.Side(), string(trade.Confidence)).Inc()

	if ok, reason := w.policy.Evaluate(trade); !ok {
		w.skip(reason)
		log.WithFields(logrus.Fields{"mint": trade.Mint, "reason": reason}).Debug("trade skipped")
		return
	}
	if reason := w.claim(trade.Mint); reason != "" {
		w.skip(reason)
		return
	}

	w.metrics.SellsInFlight.Inc()
	log.WithFields(logrus.Fields{"mint": trade.Mint, "side": trade.Side()}).Info("exit triggered")
	out := w.seller.ExecuteSell(ctx, trade, w.sell)
	w.metrics.SellsInFlight.Dec()

	w.release(trade.Mint, out.Success)
}

// claim marks mint in flight, or returns why it cannot be sold now.
func (w *Watcher) claim(mint string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.exited[mint]; ok {
		return SkipAlreadyExited
	}
	if _, ok := w.inFlight[mint]; ok {
		return SkipInFlight
	}
	w.inFlight[mint] = struct{}{}
	return ""
}

func (w *Watcher) release(mint string, exited bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, mint)
	if exited {
		w.exited[mint] = struct{}{}
	}
}

func (w *Watcher) skip(reason string) {
	w.metrics.TriggersSkipped.WithLabelValues(reason).Inc()
}

// Exited reports whether mint has been sold by this watcher or a previous run.
func (w *Watcher) Exited(mint string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.exited[mint]
	return ok
}
