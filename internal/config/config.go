// Package config defines the top-level configuration for the bond engine and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BONDENGINE_* environment variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Transfer TransferConfig `toml:"transfer"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Journal  JournalConfig  `toml:"journal"`
	Quotes   QuotesConfig   `toml:"quotes"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the engine's economic parameters.
type EngineConfig struct {
	// Treasury receives the network fee share of withdrawals.
	Treasury string `toml:"treasury"`
	// NetworkFeeBps is the initial platform fee rate in basis points.
	NetworkFeeBps uint32 `toml:"network_fee_bps"`
	// Admins may stop the engine and change the network fee.
	Admins []string `toml:"admins"`
}

// TransferConfig selects and parameterises the reserve asset adapter.
type TransferConfig struct {
	// Mode is "memory" (in-process bank, for development and ephemeral runs)
	// or "erc20" (on-chain token custody).
	Mode string `toml:"mode"`

	// ERC-20 parameters, used when Mode is "erc20".
	RPCURL           string `toml:"rpc_url"`
	TokenAddress     string `toml:"token_address"`
	ChainID          int64  `toml:"chain_id"`
	GasLimit         uint64 `toml:"gas_limit"`
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for journal
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SnapshotConfig controls periodic state persistence.
type SnapshotConfig struct {
	Interval duration `toml:"interval"`
}

// JournalConfig controls journal archival to blob storage.
type JournalConfig struct {
	SegmentSize     int      `toml:"segment_size"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// QuotesConfig controls the quote cache.
type QuotesConfig struct {
	CacheTTL duration `toml:"cache_ttl"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			Treasury:      "treasury",
			NetworkFeeBps: 0,
		},
		Transfer: TransferConfig{
			Mode:     "memory",
			ChainID:  1,
			GasLimit: 90_000,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "bondengine",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "bondengine-journal",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Snapshot: SnapshotConfig{
			Interval: duration{time.Minute},
		},
		Journal: JournalConfig{
			SegmentSize:     1000,
			ArchiveInterval: duration{time.Hour},
		},
		Quotes: QuotesConfig{
			CacheTTL: duration{2 * time.Second},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
			RateWindow:  duration{time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"experiment_stopped", "network_fee_changed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode. "full" runs with
// postgres, redis, and optional S3; "ephemeral" keeps everything in memory.
var validModes = map[string]bool{
	"full":      true,
	"ephemeral": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, ephemeral)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Engine
	if strings.TrimSpace(c.Engine.Treasury) == "" {
		errs = append(errs, "engine: treasury must not be empty")
	}
	if c.Engine.NetworkFeeBps > 10_000 {
		errs = append(errs, fmt.Sprintf("engine: network_fee_bps must be 0-10000, got %d", c.Engine.NetworkFeeBps))
	}

	// Transfer
	switch strings.ToLower(c.Transfer.Mode) {
	case "memory":
	case "erc20":
		if c.Transfer.RPCURL == "" {
			errs = append(errs, "transfer: rpc_url is required for erc20 mode")
		}
		if c.Transfer.TokenAddress == "" {
			errs = append(errs, "transfer: token_address is required for erc20 mode")
		}
		if c.Transfer.ChainID <= 0 {
			errs = append(errs, "transfer: chain_id must be positive")
		}
		if c.Transfer.PrivateKey == "" && c.Transfer.EncryptedKeyPath == "" {
			errs = append(errs, "transfer: either private_key or encrypted_key_path must be set for erc20 mode")
		}
		if c.Transfer.EncryptedKeyPath != "" && c.Transfer.KeyPassword == "" {
			errs = append(errs, "transfer: key_password is required when encrypted_key_path is set")
		}
	default:
		errs = append(errs, fmt.Sprintf("transfer: unknown mode %q (valid: memory, erc20)", c.Transfer.Mode))
	}

	// Database and Redis only matter in full mode.
	if strings.ToLower(c.Mode) == "full" {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 {
			errs = append(errs, "database: pool_min_conns must be >= 0")
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}

		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.Journal.SegmentSize < 1 {
			errs = append(errs, "journal: segment_size must be >= 1 when s3 is enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
