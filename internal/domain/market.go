package domain

import "time"

// MarketInstance is one discrete, time-boxed tradable event as projected out
// of the listing API. Fields may be absent upstream; the projection fills in
// the best available value and leaves the rest zero. The engine never mutates
// an instance after projection.
type MarketInstance struct {
	Slug     string
	Question string

	// SlotStart is the normalized UTC slot start, nil when the record carried
	// no parseable timestamp.
	SlotStart *time.Time

	Resolved bool
	Closed   bool

	// ConditionID is the on-chain condition identifier (0x + 64 hex) when
	// present and well-formed upstream, empty otherwise.
	ConditionID string

	// Winner is the explicit winning-outcome name, empty when the API did not
	// provide one. Resolution is a free-form resolution marker some API
	// versions send instead.
	Winner     string
	Resolution string

	// PayoutNumerators are the per-outcome payout numerators, index-aligned
	// with Outcomes. Empty when not yet reported.
	PayoutNumerators []int64

	// Outcomes and TokenIDs are index-aligned: TokenIDs[i] is the ERC-1155
	// position token for Outcomes[i].
	Outcomes []string
	TokenIDs []string

	// Collateral is the market's collateral token address when the record
	// carried one; callers fall back to a configured default otherwise.
	Collateral string
}
