package config

import (
	"fmt"
	"os"
	"time"

	"sol-terminal/src/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// envOverrides carries the settings that may come from the environment
// instead of the YAML file (endpoints and credentials, typically from .env).
type envOverrides struct {
	WSEndpoint         string   `envconfig:"WS_ENDPOINT"`
	RPCEndpoints       []string `envconfig:"RPC_ENDPOINTS"`
	DBConnectionString string   `envconfig:"DB_CONNECTION_STRING"`
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from a YAML file, then applies
// SOLTERM_* environment overrides (a .env file is loaded if present).
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Environment overrides
	_ = godotenv.Load()
	var env envOverrides
	if err := envconfig.Process("solterm", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	if env.WSEndpoint != "" {
		config.Connection.WSEndpoint = env.WSEndpoint
	}
	if len(env.RPCEndpoints) > 0 {
		config.Connection.RPCEndpoints = env.RPCEndpoints
	}
	if env.DBConnectionString != "" {
		config.Storage.DBConnectionString = env.DBConnectionString
	}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Connection configuration
	if c.Connection.WSEndpoint == "" {
		return fmt.Errorf("websocket endpoint cannot be empty")
	}
	if len(c.Connection.RPCEndpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint must be configured")
	}
	if c.Connection.ReconnectBaseMillis <= 0 {
		return fmt.Errorf("reconnect base delay must be greater than 0")
	}
	if c.Connection.ReconnectMaxMillis < c.Connection.ReconnectBaseMillis {
		return fmt.Errorf("reconnect max delay must be >= base delay")
	}
	if c.Connection.ReconnectJitter < 0 || c.Connection.ReconnectJitter > 1 {
		return fmt.Errorf("reconnect jitter must be within [0, 1]")
	}
	if c.Connection.HeartbeatIntervalSeconds <= 0 {
		return fmt.Errorf("heartbeat interval must be greater than 0")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Storage configuration
	if c.Storage.Enabled {
		if c.Storage.DBType == "" {
			return fmt.Errorf("database type cannot be empty")
		}
		if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
		if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
		if c.Storage.RetentionDays <= 0 {
			return fmt.Errorf("retention days must be greater than 0")
		}
	}

	// Validate Aggregation configuration
	if c.Aggregation.StalenessThresholdSeconds <= 0 {
		return fmt.Errorf("staleness threshold must be greater than 0")
	}
	if c.Aggregation.PublishIntervalMillis <= 0 {
		return fmt.Errorf("publish interval must be greater than 0")
	}

	// Validate Pools
	if len(c.EnabledPools()) == 0 {
		return fmt.Errorf("at least one pool must be enabled")
	}
	seen := make(map[string]bool)
	for i, pool := range c.Pools {
		if pool.Name == "" {
			return fmt.Errorf("pool %d must have a name", i)
		}
		if seen[pool.Name] {
			return fmt.Errorf("duplicate pool name: %s", pool.Name)
		}
		seen[pool.Name] = true
		if pool.Pubkey == "" {
			return fmt.Errorf("pool '%s' must have a pubkey", pool.Name)
		}
		if pool.DecimalsA < 0 || pool.DecimalsB < 0 {
			return fmt.Errorf("pool '%s' has negative token decimals", pool.Name)
		}
	}

	// Validate Windows aggregation
	if len(c.WindowsAgg) == 0 {
		return fmt.Errorf("at least one aggregation window must be configured")
	}
	for i, window := range c.WindowsAgg {
		if _, err := time.ParseDuration(window); err != nil {
			return fmt.Errorf("window aggregation %d is not a valid duration: %s", i, window)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// EnabledPools returns the pools to subscribe to.
func (c *Config) EnabledPools() []models.MPoolConfig {
	var pools []models.MPoolConfig
	for _, p := range c.Pools {
		if p.Enabled {
			pools = append(pools, p)
		}
	}
	return pools
}

// -----------------------------------------------------------------------------

// WindowSeconds parses the configured aggregation windows into seconds.
func (c *Config) WindowSeconds() map[string]int64 {
	windows := make(map[string]int64)
	for _, w := range c.WindowsAgg {
		if dur, err := time.ParseDuration(w); err == nil {
			windows[w] = int64(dur.Seconds())
		}
	}
	return windows
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
