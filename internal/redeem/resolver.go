// Package redeem turns resolved slot markets into redemption candidates and
// submits redeemPositions transactions for them.
package redeem

import (
	"context"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

// BalanceReader reads ERC-1155 position balances.
type BalanceReader interface {
	BalanceOf(ctx context.Context, owner common.Address, tokenID *big.Int) (*big.Int, error)
}

// Resolver filters market instances down to redemption candidates: markets
// that resolved, whose winning outcome can be determined, and where the
// wallet holds a positive balance of the winning position token.
type Resolver struct {
	balances          BalanceReader
	defaultCollateral string
	logger            *slog.Logger
}

// NewResolver builds a Resolver. defaultCollateral is used when a market
// record carries no collateral address of its own.
func NewResolver(balances BalanceReader, defaultCollateral string, logger *slog.Logger) *Resolver {
	return &Resolver{
		balances:          balances,
		defaultCollateral: defaultCollateral,
		logger:            logger.With(slog.String("component", "resolver")),
	}
}

// Resolve inspects each market and returns the redemption candidates. Every
// disqualifying condition skips the market with a warning; Resolve itself
// never fails, so one bad record cannot sink a batch.
func (r *Resolver) Resolve(ctx context.Context, markets []domain.MarketInstance, wallet common.Address) []domain.RedeemCandidate {
	var out []domain.RedeemCandidate
	for i := range markets {
		m := &markets[i]
		cand, ok := r.resolveOne(ctx, m, wallet)
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, m *domain.MarketInstance, wallet common.Address) (domain.RedeemCandidate, bool) {
	log := r.logger.With(slog.String("slug", m.Slug))

	if !isResolved(m) {
		return domain.RedeemCandidate{}, false
	}
	if m.ConditionID == "" {
		log.Warn("resolved market has no usable condition id, skipping")
		return domain.RedeemCandidate{}, false
	}

	idx, ok := winningIndex(m)
	if !ok {
		log.Warn("cannot determine winning outcome, skipping",
			slog.String("winner", m.Winner),
			slog.Any("payout_numerators", m.PayoutNumerators))
		return domain.RedeemCandidate{}, false
	}

	if idx >= len(m.TokenIDs) {
		log.Warn("token id list shorter than winning index, skipping",
			slog.Int("winning_index", idx),
			slog.Int("token_ids", len(m.TokenIDs)))
		return domain.RedeemCandidate{}, false
	}
	tokenID, ok := new(big.Int).SetString(strings.TrimSpace(m.TokenIDs[idx]), 10)
	if !ok {
		log.Warn("winning token id is not a decimal integer, skipping",
			slog.String("token_id", m.TokenIDs[idx]))
		return domain.RedeemCandidate{}, false
	}

	balance, err := r.balances.BalanceOf(ctx, wallet, tokenID)
	if err != nil {
		log.Warn("balance query failed, skipping", slog.Any("error", err))
		return domain.RedeemCandidate{}, false
	}
	if balance.Sign() <= 0 {
		log.Debug("no balance on winning token, skipping")
		return domain.RedeemCandidate{}, false
	}

	collateral := m.Collateral
	if collateral == "" {
		collateral = r.defaultCollateral
	}

	log.Info("redemption candidate",
		slog.Int("winning_index", idx),
		slog.String("balance", balance.String()))

	return domain.RedeemCandidate{
		Slug:         m.Slug,
		ConditionID:  m.ConditionID,
		Collateral:   collateral,
		WinningIndex: idx,
		IndexSet:     new(big.Int).Lsh(big.NewInt(1), uint(idx)),
		TokenID:      tokenID,
		TokenBalance: balance,
	}, true
}

// isResolved reports whether the market has reached a terminal state: an
// explicit resolved flag, or closed with any resolution evidence.
func isResolved(m *domain.MarketInstance) bool {
	if m.Resolved {
		return true
	}
	if !m.Closed {
		return false
	}
	return m.Winner != "" || len(m.PayoutNumerators) > 0 || m.Resolution != ""
}

// winningIndex determines the winning outcome index. A named winner is
// matched case-insensitively against the outcome list; failing that, the
// payout numerators decide when exactly one of them is positive. Multiple
// positive numerators (a split resolution) are treated as ambiguous and the
// market is skipped.
func winningIndex(m *domain.MarketInstance) (int, bool) {
	if w := strings.TrimSpace(m.Winner); w != "" {
		for i, outcome := range m.Outcomes {
			if strings.EqualFold(strings.TrimSpace(outcome), w) {
				return i, true
			}
		}
	}

	idx := -1
	for i, n := range m.PayoutNumerators {
		if n > 0 {
			if idx >= 0 {
				return 0, false // ambiguous, more than one winner
			}
			idx = i
		}
	}
	if idx < 0 {
		return 0, false
	}
	return idx, true
}
