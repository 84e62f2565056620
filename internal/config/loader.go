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
// built-in defaults, applies SLOTCLAIM_* environment variable overrides, and
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

// applyEnvOverrides reads well-known SLOTCLAIM_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "SLOTCLAIM_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SLOTCLAIM_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SLOTCLAIM_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.FunderAddress, "SLOTCLAIM_WALLET_FUNDER_ADDRESS")

	// ── Gamma ──
	setStr(&cfg.Gamma.Host, "SLOTCLAIM_GAMMA_HOST")
	setInt(&cfg.Gamma.PageSize, "SLOTCLAIM_GAMMA_PAGE_SIZE")
	setInt(&cfg.Gamma.MaxRecords, "SLOTCLAIM_GAMMA_MAX_RECORDS")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "POLYGON_RPC_URL") // compatibility alias, lowest precedence
	setStr(&cfg.Chain.RPCURL, "SLOTCLAIM_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "SLOTCLAIM_CHAIN_ID")
	setStr(&cfg.Chain.ConditionalTokens, "SLOTCLAIM_CHAIN_CONDITIONAL_TOKENS")
	setStr(&cfg.Chain.CollateralToken, "SLOTCLAIM_CHAIN_COLLATERAL_TOKEN")
	setBool(&cfg.Chain.DryRun, "SLOTCLAIM_CHAIN_DRY_RUN")

	// ── Discovery ──
	setStr(&cfg.Discovery.SeriesSlug, "SLOTCLAIM_DISCOVERY_SERIES_SLUG")
	setStr(&cfg.Discovery.WindowStartLocal, "SLOTCLAIM_DISCOVERY_WINDOW_START")
	setStr(&cfg.Discovery.WindowEndLocal, "SLOTCLAIM_DISCOVERY_WINDOW_END")
	setStr(&cfg.Discovery.Timezone, "SLOTCLAIM_DISCOVERY_TIMEZONE")

	// ── Redeem ──
	setStr(&cfg.Redeem.SlugPrefix, "SLOTCLAIM_REDEEM_SLUG_PREFIX")
	setStr(&cfg.Redeem.Anchor, "SLOTCLAIM_REDEEM_ANCHOR")
	setInt(&cfg.Redeem.LookbackHours, "SLOTCLAIM_REDEEM_LOOKBACK_HOURS")
	setDuration(&cfg.Redeem.Interval, "SLOTCLAIM_REDEEM_INTERVAL")
	setDuration(&cfg.Redeem.LockTTL, "SLOTCLAIM_REDEEM_LOCK_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SLOTCLAIM_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SLOTCLAIM_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SLOTCLAIM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SLOTCLAIM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SLOTCLAIM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SLOTCLAIM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SLOTCLAIM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SLOTCLAIM_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SLOTCLAIM_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SLOTCLAIM_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SLOTCLAIM_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SLOTCLAIM_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SLOTCLAIM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SLOTCLAIM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SLOTCLAIM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SLOTCLAIM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SLOTCLAIM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SLOTCLAIM_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SLOTCLAIM_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SLOTCLAIM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SLOTCLAIM_S3_REGION")
	setStr(&cfg.S3.Bucket, "SLOTCLAIM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SLOTCLAIM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SLOTCLAIM_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SLOTCLAIM_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SLOTCLAIM_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setInt(&cfg.Archive.RetentionDays, "SLOTCLAIM_ARCHIVE_RETENTION_DAYS")
	setBool(&cfg.Archive.DeleteAfter, "SLOTCLAIM_ARCHIVE_DELETE_AFTER")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SLOTCLAIM_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SLOTCLAIM_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SLOTCLAIM_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "SLOTCLAIM_MODE")
	setStr(&cfg.LogLevel, "SLOTCLAIM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.TrimSpace(v)
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
