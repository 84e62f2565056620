// Command slotclaim is the settlement engine entry point. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and runs the configured mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/slotclaim/internal/app"
	"github.com/alanyoungcy/slotclaim/internal/config"
	"github.com/alanyoungcy/slotclaim/internal/crypto"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	encryptKeyPath := flag.String("encrypt-key", "", "encrypt the wallet key from SLOTCLAIM_WALLET_PRIVATE_KEY to this path and exit")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *encryptKeyPath != "" {
		if err := encryptKey(*encryptKeyPath); err != nil {
			logger.Error("key encryption failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("encrypted key written", slog.String("path", *encryptKeyPath))
		return
	}

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("settlement engine starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)
	logger.Debug("active configuration", slog.Any("config", config.RedactedConfig(cfg)))

	// Create the application.
	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if err == context.Canceled {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("settlement engine stopped")
}

// encryptKey reads the plaintext key and password from the environment,
// encrypts the key, and writes the JSON blob to path. Keeping both inputs
// out of argv avoids leaking them in process listings.
func encryptKey(path string) error {
	keyHex := os.Getenv("SLOTCLAIM_WALLET_PRIVATE_KEY")
	if keyHex == "" {
		return fmt.Errorf("SLOTCLAIM_WALLET_PRIVATE_KEY must be set")
	}
	password := os.Getenv("SLOTCLAIM_WALLET_KEY_PASSWORD")
	if password == "" {
		return fmt.Errorf("SLOTCLAIM_WALLET_KEY_PASSWORD must be set")
	}

	blob, err := crypto.EncryptKey(keyHex, password)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o600)
}
