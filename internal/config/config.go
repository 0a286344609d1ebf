// Package config loads tracker configuration from defaults, an optional
// config file and TRACKER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"solana-holder-tracker/internal/classifier"
	"solana-holder-tracker/internal/ledger"
	"solana-holder-tracker/internal/solana"
)

// EnvPrefix prefixes every environment override, e.g. TRACKER_RPC_ENDPOINT.
const EnvPrefix = "TRACKER"

// DefaultMint is the token tracked when none is configured.
const DefaultMint = "9BB6NFEcjBCtnNLFko2FqVQBq8HHM13kCyYcdQbgpump"

// Storage backends.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

// Config is the complete tracker configuration.
type Config struct {
	Mint      string         `mapstructure:"mint"`
	RPC       RPCConfig      `mapstructure:"rpc"`
	Storage   StorageConfig  `mapstructure:"storage"`
	Refresh   RefreshConfig  `mapstructure:"refresh"`
	Monitor   MonitorConfig  `mapstructure:"monitor"`
	LiveFeed  LiveFeedConfig `mapstructure:"livefeed"`
	HTTP      HTTPConfig     `mapstructure:"http"`
	Log       LogConfig      `mapstructure:"log"`
	Protocols []string       `mapstructure:"protocols"` // "Name=ProgramID", empty uses the built-in table
}

// RPCConfig configures the Solana JSON-RPC and websocket endpoints.
type RPCConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	WSEndpoint string        `mapstructure:"ws_endpoint"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RateLimit  float64       `mapstructure:"rate_limit"` // requests per second, <= 0 disables
	RateBurst  int           `mapstructure:"rate_burst"`
	HolderMode string        `mapstructure:"holder_mode"` // largest | scan
}

// StorageConfig selects and configures the stores.
type StorageConfig struct {
	Backend             string `mapstructure:"backend"`              // memory | postgres
	TransactionsBackend string `mapstructure:"transactions_backend"` // "" (same as backend) | clickhouse
	PostgresDSN         string `mapstructure:"postgres_dsn"`
	ClickhouseDSN       string `mapstructure:"clickhouse_dsn"`
	AutoMigrate         bool   `mapstructure:"auto_migrate"`
}

// RefreshConfig configures the holder refresh cycle.
type RefreshConfig struct {
	HolderLimit        int           `mapstructure:"holder_limit"`
	Interval           time.Duration `mapstructure:"interval"`
	Timeout            time.Duration `mapstructure:"timeout"`
	BalanceConcurrency int           `mapstructure:"balance_concurrency"`
	Fallback           bool          `mapstructure:"fallback"`
}

// MonitorConfig configures the transaction monitor pass.
type MonitorConfig struct {
	Wallets        int           `mapstructure:"wallets"`
	Signatures     int           `mapstructure:"signatures"`
	Interval       time.Duration `mapstructure:"interval"`
	Concurrency    int           `mapstructure:"concurrency"`
	AddressTimeout time.Duration `mapstructure:"address_timeout"`
}

// LiveFeedConfig configures the websocket log subscription.
type LiveFeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Workers int  `mapstructure:"workers"`
}

// HTTPConfig configures the operator HTTP surface.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"` // console encoder instead of JSON
}

// SetDefaults registers every key with its default so env overrides resolve.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mint", DefaultMint)

	v.SetDefault("rpc.endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.ws_endpoint", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.timeout", 30*time.Second)
	v.SetDefault("rpc.max_retries", 3)
	v.SetDefault("rpc.rate_limit", float64(ledger.DefaultRequestsPerSecond))
	v.SetDefault("rpc.rate_burst", ledger.DefaultBurst)
	v.SetDefault("rpc.holder_mode", string(ledger.HolderModeLargest))

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.transactions_backend", "")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.auto_migrate", true)

	v.SetDefault("refresh.holder_limit", 60)
	v.SetDefault("refresh.interval", 30*time.Minute)
	v.SetDefault("refresh.timeout", 5*time.Minute)
	v.SetDefault("refresh.balance_concurrency", 8)
	v.SetDefault("refresh.fallback", true)

	v.SetDefault("monitor.wallets", 10)
	v.SetDefault("monitor.signatures", 5)
	v.SetDefault("monitor.interval", 5*time.Minute)
	v.SetDefault("monitor.concurrency", 4)
	v.SetDefault("monitor.address_timeout", 30*time.Second)

	v.SetDefault("livefeed.enabled", false)
	v.SetDefault("livefeed.workers", 4)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("protocols", []string{})
}

// Load reads configuration into a new Config. configFile may be empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := solana.ParseAddress(c.Mint); err != nil {
		add("mint: %w", err)
	}

	if err := checkURL(c.RPC.Endpoint, "http", "https"); err != nil {
		add("rpc.endpoint: %w", err)
	}
	if c.LiveFeed.Enabled {
		if err := checkURL(c.RPC.WSEndpoint, "ws", "wss"); err != nil {
			add("rpc.ws_endpoint: %w", err)
		}
		if c.LiveFeed.Workers <= 0 {
			add("livefeed.workers must be positive")
		}
	}
	switch ledger.HolderMode(c.RPC.HolderMode) {
	case ledger.HolderModeLargest, ledger.HolderModeScan:
	default:
		add("rpc.holder_mode %q must be %q or %q", c.RPC.HolderMode, ledger.HolderModeLargest, ledger.HolderModeScan)
	}
	if c.RPC.Timeout <= 0 {
		add("rpc.timeout must be positive")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			add("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		add("storage.backend %q must be %q or %q", c.Storage.Backend, BackendMemory, BackendPostgres)
	}
	switch c.Storage.TransactionsBackend {
	case "", c.Storage.Backend:
	case BackendClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			add("storage.clickhouse_dsn is required for the clickhouse transactions backend")
		}
	default:
		add("storage.transactions_backend %q must be empty or %q", c.Storage.TransactionsBackend, BackendClickhouse)
	}

	if c.Refresh.HolderLimit <= 0 {
		add("refresh.holder_limit must be positive")
	}
	if c.Refresh.Interval <= 0 || c.Refresh.Timeout <= 0 {
		add("refresh.interval and refresh.timeout must be positive")
	}
	if c.Monitor.Wallets <= 0 || c.Monitor.Signatures <= 0 {
		add("monitor.wallets and monitor.signatures must be positive")
	}
	if c.Monitor.Interval <= 0 || c.Monitor.AddressTimeout <= 0 {
		add("monitor.interval and monitor.address_timeout must be positive")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %w", err)
	}
	if _, err := c.ProtocolTable(); err != nil {
		add("protocols: %w", err)
	}

	return errors.Join(errs...)
}

// ProtocolTable returns the configured protocol table or the built-in one.
func (c *Config) ProtocolTable() (classifier.ProtocolTable, error) {
	if len(c.Protocols) == 0 {
		return classifier.DefaultProtocols(), nil
	}
	return classifier.ParseProtocolTable(c.Protocols)
}

// TransactionsBackend resolves the backend holding transactions.
func (c *Config) TransactionsBackend() string {
	if c.Storage.TransactionsBackend == "" {
		return c.Storage.Backend
	}
	return c.Storage.TransactionsBackend
}

func checkURL(raw string, schemes ...string) error {
	if raw == "" {
		return errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q must be an absolute %s URL", raw, strings.Join(schemes, "/"))
}
