package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/slotclaim/internal/domain"
	"github.com/alanyoungcy/slotclaim/internal/platform/gamma"
	"github.com/alanyoungcy/slotclaim/internal/redeem"
)

// DiscoverMode lists the slot markets whose start falls inside the configured
// discovery window and logs them. It broadcasts nothing.
func (a *App) DiscoverMode(ctx context.Context, deps *Dependencies) error {
	window, err := a.discoveryWindow()
	if err != nil {
		return err
	}

	markets, err := deps.Gamma.ListMarketsInWindow(ctx, window, gamma.ListParams{
		SlugPrefix:       a.cfg.SlugPrefix(),
		PageSize:         a.cfg.Gamma.PageSize,
		MaxRecords:       a.cfg.Gamma.MaxRecords,
		ServerTimeFilter: true,
	})
	if err != nil {
		return fmt.Errorf("app: discover: %w", err)
	}

	for _, m := range markets {
		a.logger.InfoContext(ctx, "discovered market",
			slog.String("slug", m.Slug),
			slog.Time("slot_start", *m.SlotStart),
			slog.Bool("resolved", m.Resolved),
			slog.Bool("closed", m.Closed),
		)
	}
	a.logger.InfoContext(ctx, "discovery complete",
		slog.Int("discovered", len(markets)),
		slog.Time("window_start", window.Start),
		slog.Time("window_end", window.End),
	)
	return nil
}

// RedeemMode runs the settlement pass: list recently ended markets, resolve
// redemption candidates, and submit redeemPositions transactions (or log
// them in dry run). With a configured interval it keeps running on a ticker
// until the context is cancelled.
func (a *App) RedeemMode(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Redeem.Interval.Duration
	if interval <= 0 {
		_, err := a.redeemOnce(ctx, deps)
		return err
	}

	a.logger.InfoContext(ctx, "starting periodic settlement loop",
		slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := a.redeemOnce(ctx, deps); err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				a.logger.WarnContext(ctx, "another settlement run holds the lock, skipping this pass")
			} else {
				a.logger.ErrorContext(ctx, "settlement pass failed", slog.Any("error", err))
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// FullMode runs discovery and a single settlement pass. The two operate on
// independent windows, so they run concurrently.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.DiscoverMode(gctx, deps) })
	g.Go(func() error {
		_, err := a.redeemOnce(gctx, deps)
		return err
	})
	return g.Wait()
}

// ArchiveMode uploads settlement attempts older than the retention cutoff to
// object storage and optionally deletes them from the primary store.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return errors.New("app: archive mode requires both postgres and s3 to be enabled")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)

	archived, err := deps.Archiver.ArchiveAttempts(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}
	a.logger.InfoContext(ctx, "attempts archived",
		slog.Int64("count", archived),
		slog.Time("cutoff", cutoff),
	)

	if a.cfg.Archive.DeleteAfter && archived > 0 {
		deleted, err := deps.Attempts.DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("app: archive delete: %w", err)
		}
		a.logger.InfoContext(ctx, "archived attempts deleted from primary store",
			slog.Int64("count", deleted))
	}
	return nil
}

// redeemOnce performs a single settlement pass and returns its run report.
func (a *App) redeemOnce(ctx context.Context, deps *Dependencies) (domain.RunReport, error) {
	var report domain.RunReport

	window, err := a.redeemWindow()
	if err != nil {
		return report, err
	}

	// The wallet lock keeps two settlement runs from racing on nonces.
	if deps.Locks != nil {
		unlock, err := deps.Locks.Acquire(ctx,
			"redeem:"+strings.ToLower(deps.Wallet.Hex()),
			a.cfg.Redeem.LockTTL.Duration)
		if err != nil {
			return report, err
		}
		defer unlock()
	}

	runID := uuid.New().String()
	logger := a.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "settlement pass starting",
		slog.Time("window_start", window.Start),
		slog.Time("window_end", window.End),
		slog.Bool("dry_run", a.cfg.Chain.DryRun),
	)

	markets, err := deps.Gamma.ListMarketsInWindow(ctx, window, gamma.ListParams{
		SlugPrefix:       a.cfg.SlugPrefix(),
		PageSize:         a.cfg.Gamma.PageSize,
		MaxRecords:       a.cfg.Gamma.MaxRecords,
		ServerTimeFilter: true,
	})
	if err != nil {
		return report, fmt.Errorf("app: redeem listing: %w", err)
	}
	report.Discovered = len(markets)

	resolver := redeem.NewResolver(deps.Chain, a.cfg.Chain.CollateralToken, logger)
	candidates := resolver.Resolve(ctx, markets, deps.Wallet)
	report.Candidates = len(candidates)

	if a.cfg.Chain.DryRun {
		for _, c := range candidates {
			logger.InfoContext(ctx, "dry run, would redeem",
				slog.String("slug", c.Slug),
				slog.String("condition_id", c.ConditionID),
				slog.Int("winning_index", c.WinningIndex),
				slog.String("balance", c.TokenBalance.String()),
			)
		}
	} else if len(candidates) > 0 {
		submitter, err := redeem.NewSubmitter(deps.Chain, deps.Key,
			a.cfg.Chain.ChainID, a.cfg.Chain.ConditionalTokens, logger)
		if err != nil {
			return report, err
		}

		attempts := submitter.Submit(ctx, candidates)
		for _, att := range attempts {
			if att.Err == "" {
				report.Sent++
			} else {
				report.Failed++
			}
			if deps.Attempts != nil {
				if err := deps.Attempts.Record(ctx, runID, att); err != nil {
					logger.WarnContext(ctx, "failed to record settlement attempt",
						slog.String("slug", att.Candidate.Slug),
						slog.Any("error", err))
				}
			}
		}
	}

	logger.InfoContext(ctx, "settlement pass complete", slog.String("report", report.Summary()))

	if err := deps.Notifier.Notify(ctx, "settlement pass complete", report.Summary()); err != nil {
		logger.WarnContext(ctx, "notification delivery failed", slog.Any("error", err))
	}
	return report, nil
}

// discoveryWindow builds the UTC window from the configured local wall-clock
// pair and timezone.
func (a *App) discoveryWindow() (domain.TimeWindow, error) {
	loc, err := time.LoadLocation(a.cfg.Discovery.Timezone)
	if err != nil {
		return domain.TimeWindow{}, fmt.Errorf("app: load timezone %q: %w", a.cfg.Discovery.Timezone, err)
	}
	return domain.NewTimeWindow(a.cfg.Discovery.WindowStartLocal, a.cfg.Discovery.WindowEndLocal, loc)
}

// redeemWindow builds the lookback window for a settlement pass. The window
// ends at the configured anchor (the discovery window end, or the current
// instant) and spans lookback_hours.
func (a *App) redeemWindow() (domain.TimeWindow, error) {
	lookback := time.Duration(a.cfg.Redeem.LookbackHours) * time.Hour

	var end time.Time
	switch strings.ToLower(strings.TrimSpace(a.cfg.Redeem.Anchor)) {
	case "now":
		end = time.Now().UTC()
	default: // window_end
		window, err := a.discoveryWindow()
		if err != nil {
			return domain.TimeWindow{}, err
		}
		end = window.End
	}
	return domain.WindowEndingAt(end, lookback)
}
