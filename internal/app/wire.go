package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	s3blob "github.com/alanyoungcy/slotclaim/internal/blob/s3"
	"github.com/alanyoungcy/slotclaim/internal/cache/redis"
	"github.com/alanyoungcy/slotclaim/internal/chain"
	"github.com/alanyoungcy/slotclaim/internal/config"
	"github.com/alanyoungcy/slotclaim/internal/crypto"
	"github.com/alanyoungcy/slotclaim/internal/domain"
	"github.com/alanyoungcy/slotclaim/internal/notify"
	"github.com/alanyoungcy/slotclaim/internal/platform/gamma"
	"github.com/alanyoungcy/slotclaim/internal/store/postgres"
)

// Dependencies bundles every dependency the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
// Optional backends (Attempts, Locks, Archiver) are nil when their section
// is disabled in the configuration.
type Dependencies struct {
	Gamma *gamma.Client
	Chain *chain.Client

	Key    *ecdsa.PrivateKey
	Wallet common.Address

	Attempts domain.AttemptStore
	Locks    domain.LockManager
	Archiver domain.Archiver

	Notifier *notify.Notifier
}

// needsChain returns true for modes that talk to the blockchain.
func needsChain(mode string) bool {
	switch mode {
	case "redeem", "full":
		return true
	default:
		return false
	}
}

// needsGamma returns true for modes that list markets.
func needsGamma(mode string) bool {
	switch mode {
	case "discover", "redeem", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if needsGamma(mode) {
		deps.Gamma = gamma.NewClient(cfg.Gamma.Host, logger)
	}

	// --- Wallet key and chain client (only for modes that broadcast) ---
	if needsChain(mode) {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
		}
		key, err := ethcrypto.HexToECDSA(keyHex)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: parse wallet key: %w", err)
		}
		deps.Key = key
		deps.Wallet = ethcrypto.PubkeyToAddress(key.PublicKey)

		if cfg.Wallet.FunderAddress != "" &&
			!strings.EqualFold(cfg.Wallet.FunderAddress, deps.Wallet.Hex()) {
			logger.Warn("configured funder address differs from signing key address",
				slog.String("funder", cfg.Wallet.FunderAddress),
				slog.String("signer", deps.Wallet.Hex()),
			)
		}

		chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID,
			cfg.Chain.ConditionalTokens, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain: %w", err)
		}
		closers = append(closers, chainClient.Close)
		deps.Chain = chainClient
	}

	// --- PostgreSQL attempt store ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Attempts = postgres.NewAttemptStore(pgClient.Pool())
	}

	// --- Redis run lock ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Locks = redis.NewLockManager(redisClient)
	}

	// --- S3 attempt archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		writer := s3blob.NewWriter(s3Client)
		if store, ok := deps.Attempts.(s3blob.AttemptLister); ok {
			deps.Archiver = s3blob.NewArchiver(writer, store)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}
