package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

const validYAML = `
name: "sol-terminal-test"
host: "127.0.0.1"
port: 8000
log_level: "INFO"
connection:
  ws_endpoint: "wss://api.mainnet-beta.solana.com"
  rpc_endpoints:
    - "https://api.mainnet-beta.solana.com"
  commitment: "confirmed"
  handshake_timeout_seconds: 10
  heartbeat_interval_seconds: 20
  reconnect_base_millis: 500
  reconnect_max_millis: 30000
  reconnect_jitter: 0.2
network:
  timeout: 15
  retries: 3
  requests_per_second: 5
storage:
  enabled: false
aggregation:
  staleness_threshold_seconds: 30
  publish_interval_millis: 1000
pools:
  - name: "orca-sol-usdc"
    pair: "SOL/USDC"
    pubkey: "HJPjoWUrhoZzkNfRpHuieeFk9WcZWjwy6PBjZ81ngndJ"
    dex: "orca"
    decimals_a: 9
    decimals_b: 6
    enabled: true
windows_aggregation:
  - "1m"
  - "5m"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "sol-terminal-test", cfg.Name)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "confirmed", cfg.Connection.Commitment)
	assert.Len(t, cfg.EnabledPools(), 1)
	assert.Equal(t, 9, cfg.Pools[0].DecimalsA)
}

// -----------------------------------------------------------------------------

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig("/nonexistent/config.yaml")
	require.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SOLTERM_WS_ENDPOINT", "wss://private-rpc.example.com")

	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "wss://private-rpc.example.com", cfg.Connection.WSEndpoint)
}

// -----------------------------------------------------------------------------

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"privileged port", func(c *Config) { c.Port = 80 }},
		{"no ws endpoint", func(c *Config) { c.Connection.WSEndpoint = "" }},
		{"no rpc endpoints", func(c *Config) { c.Connection.RPCEndpoints = nil }},
		{"zero backoff base", func(c *Config) { c.Connection.ReconnectBaseMillis = 0 }},
		{"max below base", func(c *Config) { c.Connection.ReconnectMaxMillis = 100 }},
		{"jitter out of range", func(c *Config) { c.Connection.ReconnectJitter = 1.5 }},
		{"zero heartbeat", func(c *Config) { c.Connection.HeartbeatIntervalSeconds = 0 }},
		{"zero staleness threshold", func(c *Config) { c.Aggregation.StalenessThresholdSeconds = 0 }},
		{"zero publish interval", func(c *Config) { c.Aggregation.PublishIntervalMillis = 0 }},
		{"no enabled pools", func(c *Config) {
			for i := range c.Pools {
				c.Pools[i].Enabled = false
			}
		}},
		{"pool without pubkey", func(c *Config) { c.Pools[0].Pubkey = "" }},
		{"duplicate pool names", func(c *Config) { c.Pools = append(c.Pools, c.Pools[0]) }},
		{"no windows", func(c *Config) { c.WindowsAgg = nil }},
		{"bad window duration", func(c *Config) { c.WindowsAgg = []string{"soon"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(writeConfig(t, validYAML))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// -----------------------------------------------------------------------------

func TestWindowSeconds(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	windows := cfg.WindowSeconds()
	assert.Equal(t, int64(60), windows["1m"])
	assert.Equal(t, int64(300), windows["5m"])
}

// -----------------------------------------------------------------------------

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(out))

	reloaded, err := NewConfig(out)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, reloaded.Name)
	assert.Equal(t, cfg.Pools, reloaded.Pools)
}
