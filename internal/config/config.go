// Package config loads seller configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"solana-exit-engine/internal/domain"
)

// Config is the full seller configuration.
type Config struct {
	RPC       RPCConfig       `yaml:"rpc"`
	Relay     RelayConfig     `yaml:"relay"`
	Jupiter   JupiterConfig   `yaml:"jupiter"`
	Launchpad LaunchpadConfig `yaml:"launchpad"`
	Sell      SellConfig      `yaml:"sell"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Watch     WatchConfig     `yaml:"watch"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	// WalletPrivateKey is the base58 signer key. Environment only.
	WalletPrivateKey string `yaml:"-"`
}

type RPCConfig struct {
	HTTPEndpoint      string        `yaml:"http_endpoint"`
	WSEndpoint        string        `yaml:"ws_endpoint"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	ConfirmTimeout    time.Duration `yaml:"confirm_timeout"`
	BlockhashRefresh  time.Duration `yaml:"blockhash_refresh"`
	BlockhashMaxAge   time.Duration `yaml:"blockhash_max_age"`
	FetchRetries      int           `yaml:"fetch_retries"`
	FetchRetryBackoff time.Duration `yaml:"fetch_retry_backoff"`
}

// RelayConfig configures the low-latency submission relay. An empty endpoint
// submits primary-venue transactions through the RPC node instead.
type RelayConfig struct {
	Endpoint    string `yaml:"endpoint"`
	TipAccount  string `yaml:"tip_account"`
	TipLamports uint64 `yaml:"tip_lamports"`
}

type JupiterConfig struct {
	BaseURL          string  `yaml:"base_url"`
	RateLimit        float64 `yaml:"rate_limit"` // requests per second
	Burst            int     `yaml:"burst"`
	PriorityLamports uint64  `yaml:"priority_lamports"`
}

// LaunchpadConfig overrides the launchpad deployment addresses. Empty fields
// keep the mainnet defaults.
type LaunchpadConfig struct {
	ProgramID      string `yaml:"program_id"`
	GlobalConfig   string `yaml:"global_config"`
	PlatformConfig string `yaml:"platform_config"`
	TradeFeeBps    uint64 `yaml:"trade_fee_bps"`
	ShareFeeRate   uint64 `yaml:"share_fee_rate"`
}

type SellConfig struct {
	SlippageBps              uint16  `yaml:"slippage_bps"`
	AmountFraction           float64 `yaml:"amount_fraction"`
	PriorityFeeMicroLamports uint64  `yaml:"priority_fee_micro_lamports"`
	ComputeUnitLimit         uint32  `yaml:"compute_unit_limit"`
}

// Domain converts to the executor's sell configuration.
func (s SellConfig) Domain() domain.SellConfig {
	return domain.SellConfig{
		SlippageBps:              s.SlippageBps,
		AmountFraction:           s.AmountFraction,
		PriorityFeeMicroLamports: s.PriorityFeeMicroLamports,
		ComputeUnitLimit:         s.ComputeUnitLimit,
	}
}

type ExecutorConfig struct {
	MaxPrimaryAttempts int           `yaml:"max_primary_attempts"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	VerifyAttempts     int           `yaml:"verify_attempts"`
	VerifyInterval     time.Duration `yaml:"verify_interval"`
}

// WatchConfig is the exit policy of the live watcher.
type WatchConfig struct {
	Mints              []string `yaml:"mints"` // empty watches every mint
	MinLiquiditySOL    float64  `yaml:"min_liquidity_sol"`
	Trigger            string   `yaml:"trigger"` // "sell" or "any"
	AllowPlaceholder   bool     `yaml:"allow_placeholder"`
	MaxConcurrentSells int      `yaml:"max_concurrent_sells"`
	DedupeSize         int      `yaml:"dedupe_size"`
}

type StorageConfig struct {
	UseMemory        bool   `yaml:"use_memory"`
	PostgresDSN      string `yaml:"postgres_dsn"`
	PostgresMaxConns int32  `yaml:"postgres_max_conns"`
	ClickhouseDSN    string `yaml:"clickhouse_dsn"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// Trigger modes.
const (
	TriggerSell = "sell"
	TriggerAny  = "any"
)

// Default returns the configuration used for unset fields.
func Default() *Config {
	sell := domain.DefaultSellConfig()
	return &Config{
		RPC: RPCConfig{
			HTTPEndpoint:      "https://api.mainnet-beta.solana.com",
			WSEndpoint:        "wss://api.mainnet-beta.solana.com",
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			ConfirmTimeout:    30 * time.Second,
			BlockhashRefresh:  2 * time.Second,
			BlockhashMaxAge:   20 * time.Second,
			FetchRetries:      3,
			FetchRetryBackoff: 500 * time.Millisecond,
		},
		Jupiter: JupiterConfig{
			BaseURL:   "https://lite-api.jup.ag",
			RateLimit: 1,
			Burst:     1,
		},
		Sell: SellConfig{
			SlippageBps:              sell.SlippageBps,
			AmountFraction:           sell.AmountFraction,
			PriorityFeeMicroLamports: sell.PriorityFeeMicroLamports,
			ComputeUnitLimit:         sell.ComputeUnitLimit,
		},
		Executor: ExecutorConfig{
			MaxPrimaryAttempts: 3,
			RetryDelay:         2 * time.Second,
			VerifyAttempts:     3,
			VerifyInterval:     2 * time.Second,
		},
		Watch: WatchConfig{
			Trigger:            TriggerSell,
			MaxConcurrentSells: 4,
			DedupeSize:         10_000,
		},
		Storage: StorageConfig{
			PostgresMaxConns: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load reads path over the defaults, then .env, then environment overrides,
// then overrides (command line flags). An empty path skips the file. The
// result is validated.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.MergeEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// MergeEnv overrides fields from SELLER_* variables.
func (c *Config) MergeEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	parse := func(key string, fn func(string) error) {
		if v, ok := lookup(key); ok && v != "" {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	str("SELLER_WALLET_PRIVATE_KEY", &c.WalletPrivateKey)
	str("SELLER_RPC_HTTP_ENDPOINT", &c.RPC.HTTPEndpoint)
	str("SELLER_RPC_WS_ENDPOINT", &c.RPC.WSEndpoint)
	str("SELLER_RELAY_ENDPOINT", &c.Relay.Endpoint)
	str("SELLER_RELAY_TIP_ACCOUNT", &c.Relay.TipAccount)
	str("SELLER_JUPITER_BASE_URL", &c.Jupiter.BaseURL)
	str("SELLER_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("SELLER_CLICKHOUSE_DSN", &c.Storage.ClickhouseDSN)
	str("SELLER_LOG_LEVEL", &c.Log.Level)
	str("SELLER_LOG_FORMAT", &c.Log.Format)
	str("SELLER_METRICS_ADDR", &c.Metrics.Addr)
	str("SELLER_WATCH_TRIGGER", &c.Watch.Trigger)

	parse("SELLER_RELAY_TIP_LAMPORTS", func(v string) (err error) {
		c.Relay.TipLamports, err = strconv.ParseUint(v, 10, 64)
		return err
	})
	parse("SELLER_SLIPPAGE_BPS", func(v string) error {
		n, err := strconv.ParseUint(v, 10, 16)
		c.Sell.SlippageBps = uint16(n)
		return err
	})
	parse("SELLER_AMOUNT_FRACTION", func(v string) (err error) {
		c.Sell.AmountFraction, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("SELLER_PRIORITY_FEE", func(v string) (err error) {
		c.Sell.PriorityFeeMicroLamports, err = strconv.ParseUint(v, 10, 64)
		return err
	})
	parse("SELLER_RETRY_DELAY", func(v string) (err error) {
		c.Executor.RetryDelay, err = time.ParseDuration(v)
		return err
	})
	parse("SELLER_MIN_LIQUIDITY_SOL", func(v string) (err error) {
		c.Watch.MinLiquiditySOL, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("SELLER_USE_MEMORY", func(v string) (err error) {
		c.Storage.UseMemory, err = strconv.ParseBool(v)
		return err
	})
	parse("SELLER_WATCH_MINTS", func(v string) error {
		c.Watch.Mints = splitList(v)
		return nil
	})

	return errors.Join(errs...)
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	if c.RPC.HTTPEndpoint == "" {
		errs = append(errs, errors.New("rpc.http_endpoint is required"))
	}
	if c.RPC.BlockhashRefresh <= 0 || c.RPC.BlockhashMaxAge <= 0 {
		errs = append(errs, errors.New("rpc blockhash refresh and max age must be positive"))
	}
	if c.Sell.AmountFraction <= 0 || c.Sell.AmountFraction > 1 {
		errs = append(errs, fmt.Errorf("sell.amount_fraction must be in (0, 1], got %v", c.Sell.AmountFraction))
	}
	if c.Sell.SlippageBps > 10_000 {
		errs = append(errs, fmt.Errorf("sell.slippage_bps must be <= 10000, got %d", c.Sell.SlippageBps))
	}
	if c.Executor.MaxPrimaryAttempts < 1 {
		errs = append(errs, errors.New("executor.max_primary_attempts must be >= 1"))
	}
	if c.Executor.VerifyAttempts < 1 {
		errs = append(errs, errors.New("executor.verify_attempts must be >= 1"))
	}
	if c.Executor.RetryDelay < 0 || c.Executor.VerifyInterval < 0 {
		errs = append(errs, errors.New("executor delays must not be negative"))
	}
	if c.Watch.Trigger != TriggerSell && c.Watch.Trigger != TriggerAny {
		errs = append(errs, fmt.Errorf("watch.trigger must be %q or %q, got %q", TriggerSell, TriggerAny, c.Watch.Trigger))
	}
	if c.Watch.MaxConcurrentSells < 1 {
		errs = append(errs, errors.New("watch.max_concurrent_sells must be >= 1"))
	}
	if c.Watch.DedupeSize < 1 {
		errs = append(errs, errors.New("watch.dedupe_size must be >= 1"))
	}
	if c.Relay.TipLamports > 0 && c.Relay.TipAccount == "" {
		errs = append(errs, errors.New("relay.tip_account is required when relay.tip_lamports is set"))
	}
	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required (set storage.use_memory for in-memory storage)"))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
