package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Ingestflow IngestflowConfig `yaml:"ingestflow"`
	Logging    LoggingConfig    `yaml:"logging"`
	Bus        BusConfig        `yaml:"bus"`
	Ops        OpsConfig        `yaml:"ops"`
	Venues     []VenueConfig    `yaml:"venues"`
}

type IngestflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level      string           `yaml:"level"`
	Format     string           `yaml:"format"`
	Output     string           `yaml:"output"`
	MaxAge     int              `yaml:"max_age"`
	Report     ReportConfig     `yaml:"report"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type ReportConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type BusConfig struct {
	Capacity      int `yaml:"capacity"`
	ForwardBuffer int `yaml:"forward_buffer"`
}

type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// VenueConfig describes one streaming venue. An empty symbol list makes the
// venue a candidate for REST discovery; with discovery disabled as well the
// adapter builds zero topics and exits without connecting.
type VenueConfig struct {
	Name        string          `yaml:"name"`
	Symbols     []string        `yaml:"symbols,omitempty"`
	WSBase      string          `yaml:"ws_base,omitempty"`
	RESTBase    string          `yaml:"rest_base,omitempty"`
	HTTPTimeout time.Duration   `yaml:"http_timeout,omitempty"`
	Channels    ChannelConfig   `yaml:"channels"`
	Discovery   DiscoveryConfig `yaml:"discovery"`
	Reconnect   ReconnectConfig `yaml:"reconnect"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

type ChannelConfig struct {
	Trades *bool        `yaml:"trades,omitempty"`
	Ticker TickerConfig `yaml:"ticker"`
}

// TradesEnabled defaults to true when the key is absent from the file.
func (c ChannelConfig) TradesEnabled() bool {
	return c.Trades == nil || *c.Trades
}

type TickerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Mode    string `yaml:"mode,omitempty"`
}

type DiscoveryConfig struct {
	Enabled         bool     `yaml:"enabled"`
	QuoteWhitelist  []string `yaml:"quote_whitelist,omitempty"`
	SymbolBlacklist []string `yaml:"symbol_blacklist,omitempty"`
}

// ReconnectConfig controls the session restart policy for a venue. The
// default keeps the historical behavior: the adapter task ends on the first
// session error. MaxAttempts <= 0 means unlimited when enabled.
type ReconnectConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Delay       time.Duration `yaml:"delay,omitempty"`
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

// LoadConfig reads a YAML configuration file, applies defaults and validates
// the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Ingestflow.Name == "" {
		c.Ingestflow.Name = "ingestflow"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Report.Interval <= 0 {
		c.Logging.Report.Interval = 30 * time.Second
	}
	if c.Bus.Capacity <= 0 {
		c.Bus.Capacity = 1024
	}
	if c.Bus.ForwardBuffer <= 0 {
		c.Bus.ForwardBuffer = 100
	}
	if c.Ops.Address == "" {
		c.Ops.Address = "127.0.0.1:3000"
	}
	for i := range c.Venues {
		v := &c.Venues[i]
		if v.HTTPTimeout <= 0 {
			v.HTTPTimeout = 10 * time.Second
		}
		if v.Reconnect.Enabled && v.Reconnect.Delay <= 0 {
			v.Reconnect.Delay = 5 * time.Second
		}
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures. Discovery without a rest_base is deliberately not
// rejected here: the resolver reports it as a typed error at resolution
// time so the venue task can apply its own fallback policy.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Venues))
	for _, v := range c.Venues {
		if v.Name == "" {
			return fmt.Errorf("venue with empty name in configuration")
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("duplicate venue name %q in configuration", v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	return nil
}
