// Package config defines the top-level configuration for the settlement
// window engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SLOTCLAIM_* environment
// variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Gamma     GammaConfig     `toml:"gamma"`
	Chain     ChainConfig     `toml:"chain"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Redeem    RedeemConfig    `toml:"redeem"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Archive   ArchiveConfig   `toml:"archive"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the wallet credential sources. Exactly one of
// private_key and encrypted_key_path must be set for modes that broadcast.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	FunderAddress    string `toml:"funder_address"`
}

// GammaConfig holds the listing-API endpoint and pagination bounds.
type GammaConfig struct {
	Host       string `toml:"host"`
	PageSize   int    `toml:"page_size"`
	MaxRecords int    `toml:"max_records"`
}

// ChainConfig holds RPC and contract parameters.
type ChainConfig struct {
	RPCURL            string `toml:"rpc_url"`
	ChainID           int64  `toml:"chain_id"`
	ConditionalTokens string `toml:"conditional_tokens"`
	CollateralToken   string `toml:"collateral_token"`
	DryRun            bool   `toml:"dry_run"`
}

// DiscoveryConfig holds the discovery window and series selection.
type DiscoveryConfig struct {
	SeriesSlug       string `toml:"series_slug"`
	WindowStartLocal string `toml:"window_start_local"`
	WindowEndLocal   string `toml:"window_end_local"`
	Timezone         string `toml:"timezone"`
}

// RedeemConfig holds the redemption pass parameters. Anchor selects what the
// lookback window ends at: "window_end" (the discovery window end) or "now".
type RedeemConfig struct {
	SlugPrefix    string   `toml:"slug_prefix"`
	Anchor        string   `toml:"anchor"`
	LookbackHours int      `toml:"lookback_hours"`
	Interval      duration `toml:"interval"`
	LockTTL       duration `toml:"lock_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters for the settlement
// attempt audit store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

// RedisConfig holds Redis connection parameters for the run lock.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for attempt
// archives.
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

// ArchiveConfig controls archive mode.
type ArchiveConfig struct {
	RetentionDays int  `toml:"retention_days"`
	DeleteAfter   bool `toml:"delete_after"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30m", "6h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Gamma: GammaConfig{
			Host:       "https://gamma-api.polymarket.com",
			PageSize:   200,
			MaxRecords: 2000,
		},
		Chain: ChainConfig{
			ChainID:           137,
			ConditionalTokens: "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
			CollateralToken:   "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
			DryRun:            true,
		},
		Discovery: DiscoveryConfig{
			SeriesSlug: "btc-up-or-down-5m",
			Timezone:   "Europe/Madrid",
		},
		Redeem: RedeemConfig{
			Anchor:        "window_end",
			LookbackHours: 6,
			LockTTL:       duration{10 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "slotclaim-data",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"discover": true,
	"redeem":   true,
	"full":     true,
	"archive":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// SlugPrefix returns the market-slug prefix for the redemption pass. An
// explicit redeem.slug_prefix wins; otherwise the prefix is derived from the
// discovery series slug (the 5-minute up/down series names its market slugs
// with a compressed form).
func (c *Config) SlugPrefix() string {
	if p := strings.TrimSpace(c.Redeem.SlugPrefix); p != "" {
		return p
	}
	if c.Discovery.SeriesSlug == "btc-up-or-down-5m" {
		return "btc-updown-5m-"
	}
	return "btc-"
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: discover, redeem, full, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Gamma
	if c.Gamma.Host == "" {
		errs = append(errs, "gamma: host must not be empty")
	}
	if c.Gamma.PageSize < 1 {
		errs = append(errs, "gamma: page_size must be >= 1")
	}
	if c.Gamma.MaxRecords < 1 {
		errs = append(errs, "gamma: max_records must be >= 1")
	}

	needsChain := mode == "redeem" || mode == "full"
	if needsChain {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url is required for mode "+c.Mode)
		}
		if c.Chain.ChainID <= 0 {
			errs = append(errs, "chain: chain_id must be positive")
		}
		if c.Chain.ConditionalTokens == "" {
			errs = append(errs, "chain: conditional_tokens must not be empty")
		}
		if c.Chain.CollateralToken == "" {
			errs = append(errs, "chain: collateral_token must not be empty")
		}

		// Wallet: a credential source is required even for balance reads,
		// since the owner address derives from the key.
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}

		if c.Redeem.LookbackHours < 1 {
			errs = append(errs, "redeem: lookback_hours must be >= 1")
		}
		switch strings.ToLower(strings.TrimSpace(c.Redeem.Anchor)) {
		case "", "window_end", "now":
		default:
			errs = append(errs, fmt.Sprintf("redeem: unknown anchor %q (valid: window_end, now)", c.Redeem.Anchor))
		}
	}

	needsWindow := mode == "discover" || mode == "full" ||
		(needsChain && strings.ToLower(strings.TrimSpace(c.Redeem.Anchor)) != "now")
	if needsWindow {
		if c.Discovery.WindowStartLocal == "" || c.Discovery.WindowEndLocal == "" {
			errs = append(errs, "discovery: window_start_local and window_end_local must be set for mode "+c.Mode)
		}
		if c.Discovery.Timezone == "" {
			errs = append(errs, "discovery: timezone must not be empty")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be 0..pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if mode == "archive" {
		if !c.Postgres.Enabled {
			errs = append(errs, "archive mode requires postgres.enabled")
		}
		if !c.S3.Enabled {
			errs = append(errs, "archive mode requires s3.enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
