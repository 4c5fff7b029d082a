package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BONDENGINE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BONDENGINE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setStr(&cfg.Engine.Treasury, "BONDENGINE_ENGINE_TREASURY")
	setUint32(&cfg.Engine.NetworkFeeBps, "BONDENGINE_ENGINE_NETWORK_FEE_BPS")
	setStringSlice(&cfg.Engine.Admins, "BONDENGINE_ENGINE_ADMINS")

	// ── Transfer ──
	setStr(&cfg.Transfer.Mode, "BONDENGINE_TRANSFER_MODE")
	setStr(&cfg.Transfer.RPCURL, "BONDENGINE_TRANSFER_RPC_URL")
	setStr(&cfg.Transfer.TokenAddress, "BONDENGINE_TRANSFER_TOKEN_ADDRESS")
	setInt64(&cfg.Transfer.ChainID, "BONDENGINE_TRANSFER_CHAIN_ID")
	setUint64(&cfg.Transfer.GasLimit, "BONDENGINE_TRANSFER_GAS_LIMIT")
	setStr(&cfg.Transfer.PrivateKey, "BONDENGINE_TRANSFER_PRIVATE_KEY")
	setStr(&cfg.Transfer.EncryptedKeyPath, "BONDENGINE_TRANSFER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Transfer.KeyPassword, "BONDENGINE_TRANSFER_KEY_PASSWORD")

	// ── Database ──
	setStr(&cfg.Database.DSN, "BONDENGINE_DATABASE_DSN")
	setStr(&cfg.Database.Host, "BONDENGINE_DATABASE_HOST")
	setInt(&cfg.Database.Port, "BONDENGINE_DATABASE_PORT")
	setStr(&cfg.Database.Database, "BONDENGINE_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "BONDENGINE_DATABASE_USER")
	setStr(&cfg.Database.Password, "BONDENGINE_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "BONDENGINE_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "BONDENGINE_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "BONDENGINE_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "BONDENGINE_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BONDENGINE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BONDENGINE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BONDENGINE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BONDENGINE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BONDENGINE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BONDENGINE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "BONDENGINE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BONDENGINE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BONDENGINE_S3_REGION")
	setStr(&cfg.S3.Bucket, "BONDENGINE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BONDENGINE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BONDENGINE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BONDENGINE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BONDENGINE_S3_FORCE_PATH_STYLE")

	// ── Snapshot / Journal / Quotes ──
	setDuration(&cfg.Snapshot.Interval, "BONDENGINE_SNAPSHOT_INTERVAL")
	setInt(&cfg.Journal.SegmentSize, "BONDENGINE_JOURNAL_SEGMENT_SIZE")
	setDuration(&cfg.Journal.ArchiveInterval, "BONDENGINE_JOURNAL_ARCHIVE_INTERVAL")
	setDuration(&cfg.Quotes.CacheTTL, "BONDENGINE_QUOTES_CACHE_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "BONDENGINE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "BONDENGINE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BONDENGINE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BONDENGINE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "BONDENGINE_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "BONDENGINE_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BONDENGINE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BONDENGINE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BONDENGINE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BONDENGINE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "BONDENGINE_MODE")
	setStr(&cfg.LogLevel, "BONDENGINE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint32(dst *uint32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint32(n)
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
