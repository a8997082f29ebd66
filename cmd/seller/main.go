package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"solana-exit-engine/internal/config"
	"solana-exit-engine/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	mode := flag.String("mode", "watch", "Mode: watch, sell or inspect")
	signature := flag.String("signature", "", "Trigger transaction signature (sell and inspect modes)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configPath, func(c *config.Config) {
		// inspect never touches storage
		if *useMemory || *mode == "inspect" {
			c.Storage.UseMemory = true
		}
		if *metricsAddr != "" {
			c.Metrics.Addr = *metricsAddr
		}
		if *logLevel != "" {
			c.Log.Level = *logLevel
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	log := logging.Component(logger, "seller")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go handleSignals(log, cancel, done)

	switch *mode {
	case "watch":
		err = runWatch(ctx, cfg, logger)
	case "sell":
		err = runSell(ctx, cfg, logger, *signature)
	case "inspect":
		err = runInspect(ctx, cfg, logger, *signature)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("seller exited")
	}
	log.Info("shutdown complete")
}

// handleSignals cancels on the first SIGINT/SIGTERM and exits on the second
// or after the graceful timeout.
func handleSignals(log logrus.FieldLogger, cancel context.CancelFunc, done <-chan error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()
	case <-done:
		return
	}

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Warn("second signal, forcing exit")
		os.Exit(1)
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timed out after 30s, forcing exit")
		os.Exit(1)
	case <-done:
	}
}

func runWatch(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.RPC.WSEndpoint == "" {
		return errors.New("rpc.ws_endpoint is required for watch mode")
	}
	w, err := a.newWatcher()
	if err != nil {
		return err
	}

	a.startBackground(ctx)
	a.log.WithFields(logrus.Fields{
		"mints":   len(cfg.Watch.Mints),
		"trigger": cfg.Watch.Trigger,
		"wallet":  a.signer.PublicKey().String(),
	}).Info("watching for exit triggers")

	return w.Run(ctx)
}

func runSell(ctx context.Context, cfg *config.Config, logger *logrus.Logger, signature string) error {
	if signature == "" {
		return errors.New("--signature is required for sell mode")
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	a.startBackground(ctx)

	trade, err := a.resolver.Resolve(ctx, signature)
	if err != nil {
		return err
	}

	out := a.executor.ExecuteSell(ctx, trade, cfg.Sell.Domain())
	if err := printJSON(out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("sell failed: %s", out.Error)
	}
	return nil
}

func runInspect(ctx context.Context, cfg *config.Config, logger *logrus.Logger, signature string) error {
	if signature == "" {
		return errors.New("--signature is required for inspect mode")
	}
	pc, err := primaryConfig(cfg.Launchpad)
	if err != nil {
		return err
	}
	rpc := newRPCClient(cfg, nil)
	trade, err := newResolver(cfg, rpc, pc.ProgramID.String()).Resolve(ctx, signature)
	if err != nil {
		return err
	}
	logging.Component(logger, "inspect").WithFields(logrus.Fields{
		"mint":       trade.Mint,
		"side":       trade.Side(),
		"confidence": trade.Confidence,
	}).Debug("trade extracted")
	return printJSON(trade)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
