package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Network   NetworkConfig   `toml:"network"`
	Protocol  ProtocolConfig  `toml:"protocol"`
	Region    RegionConfig    `toml:"region"`
	Dialog    DialogConfig    `toml:"dialog"`
	Data      DataConfig      `toml:"data"`
	Logging   LoggingConfig   `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Name               string `toml:"name"`
	ID                 int    `toml:"id"`
	AutoCreateAccounts bool   `toml:"auto_create_accounts"`
	StartTime          int64  // set at boot, not from config
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty = in-memory stores
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	JournalQueue    int           `toml:"journal_queue"`
	JournalBatch    int           `toml:"journal_batch"`
	FlushInterval   time.Duration `toml:"flush_interval"`
}

type NetworkConfig struct {
	BindAddress  string        `toml:"bind_address"`
	OutQueueSize int           `toml:"out_queue_size"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
}

type ProtocolConfig struct {
	Version       int           `toml:"version"` // client version, e.g. 168 or 186
	SlowHandler   time.Duration `toml:"slow_handler"`
	DumpOnFailure bool          `toml:"dump_on_failure"`
}

type RegionConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
}

type DialogConfig struct {
	TTL time.Duration `toml:"ttl"` // 0 = continuations live until disconnect
	// Purchases at or above this price (copper) ask for confirmation.
	ConfirmPrice int64 `toml:"confirm_price"`
}

type DataConfig struct {
	Dir        string `toml:"dir"`
	ScriptsDir string `toml:"scripts_dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type RateLimitConfig struct {
	Enabled          bool `toml:"enabled"`
	PacketsPerSecond int  `toml:"packets_per_second"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := defaults()
	cfg.Server.StartTime = time.Now().Unix()
	return cfg
}

func (c *Config) validate() error {
	switch c.Protocol.Version {
	case 168, 186:
	default:
		return fmt.Errorf("protocol.version %d not supported", c.Protocol.Version)
	}
	if c.Region.TickRate <= 0 {
		return fmt.Errorf("region.tick_rate must be positive")
	}
	if c.Dialog.TTL < 0 {
		return fmt.Errorf("dialog.ttl must not be negative")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:               "DOLGo",
			ID:                 1,
			AutoCreateAccounts: true,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			JournalQueue:    4096,
			JournalBatch:    256,
			FlushInterval:   5 * time.Second,
		},
		Network: NetworkConfig{
			BindAddress:  "0.0.0.0:10300",
			OutQueueSize: 256,
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  120 * time.Second,
		},
		Protocol: ProtocolConfig{
			Version:       168,
			SlowHandler:   time.Second,
			DumpOnFailure: true,
		},
		Region: RegionConfig{
			TickRate: 50 * time.Millisecond,
		},
		Dialog: DialogConfig{
			TTL:          0,
			ConfirmPrice: 10000,
		},
		Data: DataConfig{
			Dir:        "data/yaml",
			ScriptsDir: "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			PacketsPerSecond: 60,
		},
	}
}
