package domain

import (
	"fmt"
	"math/big"
	"time"
)

// RedeemCandidate is one eligible (market, winning outcome) pair: the market
// is resolved, a winning index was determined, and the wallet holds a
// strictly positive balance of the winning position token. Candidates are
// never persisted; a fresh run recomputes them from live chain state, so
// re-running after a partial failure is safe.
type RedeemCandidate struct {
	Slug         string   `json:"slug"`
	ConditionID  string   `json:"condition_id"`
	Collateral   string   `json:"collateral"`
	WinningIndex int      `json:"winning_index"`
	IndexSet     *big.Int `json:"index_set"`
	TokenID      *big.Int `json:"token_id"`
	TokenBalance *big.Int `json:"token_balance"`
}

// SettlementAttempt is the per-candidate result of one submission pass.
// Exactly one of TxHash and Err is set; attempts are never retried within a
// run.
type SettlementAttempt struct {
	Candidate RedeemCandidate `json:"candidate"`
	TxHash    string          `json:"tx_hash,omitempty"`
	Err       string          `json:"error,omitempty"`
	At        time.Time       `json:"at"`
}

// RunReport aggregates the outcome counts of one engine run.
type RunReport struct {
	Discovered int
	Candidates int
	Sent       int
	Failed     int
}

// Summary renders the report as a single human-readable line for logs and
// notifications.
func (r RunReport) Summary() string {
	return fmt.Sprintf("discovered=%d candidates=%d sent=%d failed=%d",
		r.Discovered, r.Candidates, r.Sent, r.Failed)
}
