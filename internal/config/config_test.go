package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault_IsValidWithMemoryStorage(t *testing.T) {
	cfg := Default()
	cfg.Storage.UseMemory = true
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Executor.MaxPrimaryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Executor.RetryDelay)
	assert.Equal(t, 3, cfg.Executor.VerifyAttempts)
	assert.Equal(t, 1.0, cfg.Sell.AmountFraction)
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seller.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc:
  http_endpoint: http://localhost:8899
  timeout: 5s
sell:
  slippage_bps: 300
  amount_fraction: 0.5
executor:
  retry_delay: 250ms
watch:
  mints: [mintA, mintB]
  trigger: any
  min_liquidity_sol: 2.5
storage:
  use_memory: true
`), 0o600))

	// keep a stray .env in the working directory from leaking in
	t.Chdir(dir)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8899", cfg.RPC.HTTPEndpoint)
	assert.Equal(t, 5*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, 3, cfg.RPC.MaxRetries)
	assert.Equal(t, uint16(300), cfg.Sell.SlippageBps)
	assert.Equal(t, 0.5, cfg.Sell.AmountFraction)
	assert.Equal(t, 250*time.Millisecond, cfg.Executor.RetryDelay)
	assert.Equal(t, []string{"mintA", "mintB"}, cfg.Watch.Mints)
	assert.Equal(t, TriggerAny, cfg.Watch.Trigger)
	assert.Equal(t, 2.5, cfg.Watch.MinLiquiditySOL)
	assert.Equal(t, 3, cfg.Executor.VerifyAttempts)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SELLER_USE_MEMORY=true\nSELLER_SLIPPAGE_BPS=750\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("SELLER_SLIPPAGE_BPS", "")
	os.Unsetenv("SELLER_SLIPPAGE_BPS")
	t.Setenv("SELLER_USE_MEMORY", "")
	os.Unsetenv("SELLER_USE_MEMORY")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Storage.UseMemory)
	assert.Equal(t, uint16(750), cfg.Sell.SlippageBps)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMergeEnv(t *testing.T) {
	cfg := Default()
	err := cfg.MergeEnv(lookupFrom(map[string]string{
		"SELLER_WALLET_PRIVATE_KEY": "secret",
		"SELLER_RPC_HTTP_ENDPOINT":  "http://rpc",
		"SELLER_RELAY_TIP_LAMPORTS": "10000",
		"SELLER_AMOUNT_FRACTION":    "0.25",
		"SELLER_RETRY_DELAY":        "1s",
		"SELLER_WATCH_MINTS":        " mintA, ,mintB ",
		"SELLER_USE_MEMORY":         "true",
		"SELLER_LOG_LEVEL":          "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.WalletPrivateKey)
	assert.Equal(t, "http://rpc", cfg.RPC.HTTPEndpoint)
	assert.Equal(t, uint64(10000), cfg.Relay.TipLamports)
	assert.Equal(t, 0.25, cfg.Sell.AmountFraction)
	assert.Equal(t, time.Second, cfg.Executor.RetryDelay)
	assert.Equal(t, []string{"mintA", "mintB"}, cfg.Watch.Mints)
	assert.True(t, cfg.Storage.UseMemory)
	assert.Equal(t, "info", cfg.Log.Level, "empty value keeps the default")
}

func TestMergeEnv_ParseErrors(t *testing.T) {
	cfg := Default()
	err := cfg.MergeEnv(lookupFrom(map[string]string{
		"SELLER_SLIPPAGE_BPS":    "lots",
		"SELLER_AMOUNT_FRACTION": "half",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SELLER_SLIPPAGE_BPS")
	assert.Contains(t, err.Error(), "SELLER_AMOUNT_FRACTION")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"fraction zero", func(c *Config) { c.Sell.AmountFraction = 0 }, "amount_fraction"},
		{"fraction above one", func(c *Config) { c.Sell.AmountFraction = 1.5 }, "amount_fraction"},
		{"slippage", func(c *Config) { c.Sell.SlippageBps = 10_001 }, "slippage_bps"},
		{"attempts", func(c *Config) { c.Executor.MaxPrimaryAttempts = 0 }, "max_primary_attempts"},
		{"trigger", func(c *Config) { c.Watch.Trigger = "buy" }, "watch.trigger"},
		{"tip without account", func(c *Config) { c.Relay.TipLamports = 1 }, "tip_account"},
		{"postgres required", func(c *Config) { c.Storage.UseMemory = false }, "postgres_dsn"},
		{"rpc required", func(c *Config) { c.RPC.HTTPEndpoint = "" }, "http_endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Storage.UseMemory = true
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSellConfig_Domain(t *testing.T) {
	s := SellConfig{SlippageBps: 100, AmountFraction: 0.3, PriorityFeeMicroLamports: 5, ComputeUnitLimit: 90_000}
	d := s.Domain()
	assert.Equal(t, uint16(100), d.SlippageBps)
	assert.Equal(t, 0.3, d.AmountFraction)
	assert.Equal(t, uint64(5), d.PriorityFeeMicroLamports)
	assert.Equal(t, uint32(90_000), d.ComputeUnitLimit)
}

func TestLoad_ExampleConfig(t *testing.T) {
	path, err := filepath.Abs("../../configs/seller.example.yaml")
	require.NoError(t, err)
	t.Chdir(t.TempDir())

	cfg, err := Load(path, func(c *Config) { c.Storage.UseMemory = true })
	require.NoError(t, err)
	assert.Equal(t, Default().Executor, cfg.Executor)
	assert.Equal(t, TriggerSell, cfg.Watch.Trigger)
	assert.Equal(t, uint64(25), cfg.Launchpad.TradeFeeBps)
}
