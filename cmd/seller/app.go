package main

import (
	"context"
	"errors"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"solana-exit-engine/internal/config"
	"solana-exit-engine/internal/confirm"
	"solana-exit-engine/internal/discovery"
	"solana-exit-engine/internal/domain"
	"solana-exit-engine/internal/executor"
	"solana-exit-engine/internal/journal"
	"solana-exit-engine/internal/jupiter"
	"solana-exit-engine/internal/logging"
	"solana-exit-engine/internal/observability"
	"solana-exit-engine/internal/solana"
	"solana-exit-engine/internal/storage"
	chstore "solana-exit-engine/internal/storage/clickhouse"
	"solana-exit-engine/internal/storage/memory"
	"solana-exit-engine/internal/storage/migrations"
	pgstore "solana-exit-engine/internal/storage/postgres"
	"solana-exit-engine/internal/venue"
	"solana-exit-engine/internal/watcher"
)

// app holds the wired collaborators shared by the watch and sell modes.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	log    logrus.FieldLogger

	primary   venue.PrimaryConfig
	metrics   *observability.Metrics
	server    *observability.Server
	rpc       *solana.HTTPClient
	blockhash *solana.BlockhashCache
	signer    *venue.KeySigner
	resolver  *watcher.Resolver
	executor  *executor.Executor

	sells    storage.SellRecordStore
	attempts storage.AttemptStore
	progress storage.ProgressStore

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	if cfg.WalletPrivateKey == "" {
		return nil, errors.New("SELLER_WALLET_PRIVATE_KEY is required")
	}
	signer, err := venue.NewKeySigner(cfg.WalletPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		log:     logging.Component(logger, "seller"),
		metrics: observability.NewMetrics(observability.DefaultNamespace),
		signer:  signer,
	}
	if cfg.Metrics.Addr != "" {
		a.server = observability.NewServer(cfg.Metrics.Addr, a.metrics, logging.Component(logger, "metrics"))
	}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.primary, err = primaryConfig(cfg.Launchpad)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.rpc = newRPCClient(cfg, a.metrics)
	a.resolver = newResolver(cfg, a.rpc, a.primary.ProgramID.String())
	a.blockhash = solana.NewBlockhashCache(a.rpc, cfg.RPC.BlockhashMaxAge, logging.Component(logger, "blockhash"))

	// without a relay endpoint, primary sells go through the RPC node
	relayEndpoint := cfg.Relay.Endpoint
	if relayEndpoint == "" {
		relayEndpoint = cfg.RPC.HTTPEndpoint
	}
	relay, err := solana.NewRelay(relayEndpoint, cfg.Relay.TipAccount, cfg.Relay.TipLamports,
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(0),
		solana.WithCallObserver(a.metrics.ObserveRPCCall),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	aggregator := jupiter.NewClient(cfg.Jupiter.BaseURL,
		jupiter.WithRateLimit(cfg.Jupiter.RateLimit, cfg.Jupiter.Burst),
		jupiter.WithPrioritizationFee(cfg.Jupiter.PriorityLamports),
	)

	verifier := confirm.NewVerifier(a.rpc,
		confirm.WithInterval(cfg.Executor.VerifyInterval),
		confirm.WithPollFunc(a.metrics.ObserveVerifyPoll),
	)

	a.executor = executor.New(executor.Options{
		Primary:   venue.NewPrimaryClient(a.primary, signer, a.rpc, relay),
		Fallback:  venue.NewFallbackClient(signer, a.rpc, aggregator, a.rpc),
		Verifier:  verifier,
		Blockhash: a.blockhash,
		Observer: executor.MultiObserver{
			executor.NewLogObserver(logging.Component(logger, "executor")),
			observability.NewMetricsObserver(a.metrics),
			journal.NewRecorder(a.sells, a.attempts, a.progress, logging.Component(logger, "journal")),
		},
		MaxPrimaryAttempts: cfg.Executor.MaxPrimaryAttempts,
		RetryDelay:         cfg.Executor.RetryDelay,
		VerifyAttempts:     cfg.Executor.VerifyAttempts,
	})
	return a, nil
}

// openStores picks in-memory or PostgreSQL/ClickHouse journal stores. Without
// a ClickHouse DSN, attempts are kept in memory.
func (a *app) openStores(ctx context.Context) error {
	a.sells = memory.NewSellRecordStore()
	a.attempts = memory.NewAttemptStore()
	a.progress = memory.NewProgressStore()

	if a.cfg.Storage.UseMemory {
		a.log.Info("using in-memory storage")
		return nil
	}

	pool, err := pgstore.NewPool(ctx, a.cfg.Storage.PostgresDSN, a.cfg.Storage.PostgresMaxConns)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, pool.Close)
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}
	a.sells = pgstore.NewSellRecordStore(pool)
	a.progress = pgstore.NewProgressStore(pool)

	if a.cfg.Storage.ClickhouseDSN == "" {
		a.log.Warn("clickhouse_dsn not set, sell attempts are kept in memory")
		return nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.Storage.ClickhouseDSN)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = conn.Close() })
	a.attempts = chstore.NewAttemptStore(conn)
	return nil
}

// startBackground starts the blockhash refresher and the metrics server.
// Both stop with ctx.
func (a *app) startBackground(ctx context.Context) {
	go a.blockhash.Run(ctx, a.cfg.RPC.BlockhashRefresh)

	if a.server != nil {
		a.server.SetReady(true)
		go func() {
			if err := a.server.Run(ctx); err != nil {
				a.log.WithError(err).Error("metrics server")
			}
		}()
	}
}

func (a *app) newWatcher() (*watcher.Watcher, error) {
	filter := solana.LogsFilter{Mentions: []string{a.primary.ProgramID.String()}}
	stream := solana.NewLogStream(a.cfg.RPC.WSEndpoint, filter, solana.DefaultWSConfig(), logging.Component(a.logger, "stream"))

	w := a.cfg.Watch
	return watcher.New(watcher.Options{
		Source:        stream,
		Resolver:      a.resolver,
		Policy:        watcher.NewPolicy(w.Mints, w.MinLiquiditySOL, w.Trigger == config.TriggerSell, w.AllowPlaceholder),
		Seller:        a.executor,
		Sell:          a.cfg.Sell.Domain(),
		Progress:      a.progress,
		Metrics:       a.metrics,
		Logger:        logging.Component(a.logger, "watcher"),
		MaxConcurrent: w.MaxConcurrentSells,
		DedupeSize:    w.DedupeSize,
	})
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newRPCClient builds the HTTP RPC client. m may be nil.
func newRPCClient(cfg *config.Config, m *observability.Metrics) *solana.HTTPClient {
	opts := []solana.ClientOption{
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
		solana.WithConfirmTimeout(cfg.RPC.ConfirmTimeout, cfg.Executor.VerifyInterval),
	}
	if m != nil {
		opts = append(opts, solana.WithCallObserver(m.ObserveRPCCall))
	}
	return solana.NewHTTPClient(cfg.RPC.HTTPEndpoint, opts...)
}

// newResolver builds the trade resolver. A launchpad program other than the
// mainnet one is registered alongside it.
func newResolver(cfg *config.Config, rpc *solana.HTTPClient, program string) *watcher.Resolver {
	extractor := discovery.NewExtractor()
	if program != "" && program != discovery.LaunchpadProgram {
		extractor.RegisterVenue(program, domain.VenueKindLaunchpad, discovery.LaunchpadDecoder{})
	}
	return &watcher.Resolver{
		Fetcher:   rpc,
		Extractor: extractor,
		Retries:   cfg.RPC.FetchRetries,
		Backoff:   cfg.RPC.FetchRetryBackoff,
	}
}

// primaryConfig applies launchpad overrides to the mainnet deployment.
func primaryConfig(lc config.LaunchpadConfig) (venue.PrimaryConfig, error) {
	pc := venue.DefaultPrimaryConfig()
	for _, f := range []struct {
		name  string
		value string
		dst   *sol.PublicKey
	}{
		{"launchpad.program_id", lc.ProgramID, &pc.ProgramID},
		{"launchpad.global_config", lc.GlobalConfig, &pc.GlobalConfig},
		{"launchpad.platform_config", lc.PlatformConfig, &pc.PlatformConfig},
	} {
		if f.value == "" {
			continue
		}
		pk, err := sol.PublicKeyFromBase58(f.value)
		if err != nil {
			return pc, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = pk
	}
	if lc.TradeFeeBps > 0 {
		pc.TradeFeeBps = lc.TradeFeeBps
	}
	pc.ShareFeeRate = lc.ShareFeeRate
	return pc, nil
}
