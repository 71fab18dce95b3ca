package models

// MConfig Structure
type MConfig struct {
	Name        string             `yaml:"name"`
	Host        string             `yaml:"host"`
	Port        int                `yaml:"port"`
	LogLevel    string             `yaml:"log_level"`
	Connection  MConnectionConfig  `yaml:"connection"`
	Network     MNetworkConfig     `yaml:"network"`
	Storage     MStorageConfig     `yaml:"storage"`
	Aggregation MAggregationConfig `yaml:"aggregation"`
	Pools       []MPoolConfig      `yaml:"pools"`
	WindowsAgg  []string           `yaml:"windows_aggregation"`
}

type MConnectionConfig struct {
	WSEndpoint               string   `yaml:"ws_endpoint"`
	RPCEndpoints             []string `yaml:"rpc_endpoints"`
	Commitment               string   `yaml:"commitment"`
	HandshakeTimeoutSeconds  int      `yaml:"handshake_timeout_seconds"`
	HeartbeatIntervalSeconds int      `yaml:"heartbeat_interval_seconds"`
	ReconnectBaseMillis      int      `yaml:"reconnect_base_millis"`
	ReconnectMaxMillis       int      `yaml:"reconnect_max_millis"`
	ReconnectJitter          float64  `yaml:"reconnect_jitter"`
}

type MNetworkConfig struct {
	RequestTimeout    int     `yaml:"timeout"`
	MaxRetries        int     `yaml:"retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	UserAgent         string  `yaml:"user_agent"`
}

type MStorageConfig struct {
	Enabled            bool   `yaml:"enabled"`
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MAggregationConfig struct {
	RingCapacity                int     `yaml:"ring_capacity"`
	StalenessThresholdSeconds   int     `yaml:"staleness_threshold_seconds"`
	PublishIntervalMillis       int     `yaml:"publish_interval_millis"`
	ArbitrageEnabled            bool    `yaml:"arbitrage_enabled"`
	ArbitrageMinProfitPercent   float64 `yaml:"arbitrage_min_profit_percent"`
	ArbitrageMaxPriceAgeSeconds int     `yaml:"arbitrage_max_price_age_seconds"`
}

// MPoolConfig describes one tracked liquidity pool account.
// Name is the unique instrument key; Pair groups pools of the same
// token pair across DEXes for spread detection.
type MPoolConfig struct {
	Name      string `yaml:"name"`
	Pair      string `yaml:"pair"`
	Pubkey    string `yaml:"pubkey"`
	Dex       string `yaml:"dex"`
	TokenA    string `yaml:"token_a"`
	TokenB    string `yaml:"token_b"`
	DecimalsA int    `yaml:"decimals_a"`
	DecimalsB int    `yaml:"decimals_b"`
	Enabled   bool   `yaml:"enabled"`
	Priority  int    `yaml:"priority"`
}
