package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

// AttemptStore implements domain.AttemptStore using PostgreSQL. Big integers
// (index sets, token ids, balances) are stored as text to avoid precision
// loss.
type AttemptStore struct {
	pool *pgxpool.Pool
}

// NewAttemptStore creates an AttemptStore backed by the given connection pool.
func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

// Record appends one settlement attempt under the given run id.
func (s *AttemptStore) Record(ctx context.Context, runID string, att domain.SettlementAttempt) error {
	const query = `
		INSERT INTO settlement_attempts
			(run_id, slug, condition_id, collateral, winning_index,
			 index_set, token_id, token_balance, tx_hash, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		runID,
		att.Candidate.Slug,
		att.Candidate.ConditionID,
		att.Candidate.Collateral,
		att.Candidate.WinningIndex,
		bigString(att.Candidate.IndexSet),
		bigString(att.Candidate.TokenID),
		bigString(att.Candidate.TokenBalance),
		att.TxHash,
		att.Err,
		att.At,
	)
	if err != nil {
		return fmt.Errorf("postgres: record settlement attempt %s: %w", att.Candidate.Slug, err)
	}
	return nil
}

// ListBefore returns all attempts created strictly before the given instant,
// oldest first.
func (s *AttemptStore) ListBefore(ctx context.Context, before time.Time) ([]domain.SettlementAttempt, error) {
	const query = `
		SELECT slug, condition_id, collateral, winning_index,
		       index_set, token_id, token_balance, tx_hash, error, created_at
		FROM settlement_attempts
		WHERE created_at < $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settlement attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.SettlementAttempt
	for rows.Next() {
		var (
			att                         domain.SettlementAttempt
			indexSet, tokenID, tokenBal string
		)
		if err := rows.Scan(
			&att.Candidate.Slug,
			&att.Candidate.ConditionID,
			&att.Candidate.Collateral,
			&att.Candidate.WinningIndex,
			&indexSet,
			&tokenID,
			&tokenBal,
			&att.TxHash,
			&att.Err,
			&att.At,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan settlement attempt: %w", err)
		}
		att.Candidate.IndexSet = parseBig(indexSet)
		att.Candidate.TokenID = parseBig(tokenID)
		att.Candidate.TokenBalance = parseBig(tokenBal)
		attempts = append(attempts, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list settlement attempts rows: %w", err)
	}
	return attempts, nil
}

// DeleteBefore removes attempts created strictly before the given instant and
// returns the number of rows deleted.
func (s *AttemptStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM settlement_attempts WHERE created_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete settlement attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func bigString(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.String()
}

func parseBig(s string) *big.Int {
	if s == "" {
		return nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return n
}
