package redeem

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

const (
	testConditionID = "0x2222222222222222222222222222222222222222222222222222222222222222"
	testCollateral  = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBalances maps token id (decimal string) to balance. Missing entries
// return zero; err, when set, fails every query.
type fakeBalances struct {
	balances map[string]*big.Int
	err      error
	queries  int
}

func (f *fakeBalances) BalanceOf(_ context.Context, _ common.Address, tokenID *big.Int) (*big.Int, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.balances[tokenID.String()]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func resolvedMarket() domain.MarketInstance {
	return domain.MarketInstance{
		Slug:             "btc-updown-5m-2024-01-01-0000",
		Closed:           true,
		ConditionID:      testConditionID,
		PayoutNumerators: []int64{0, 1},
		Outcomes:         []string{"Up", "Down"},
		TokenIDs:         []string{"101", "102"},
	}
}

func TestResolve_PayoutNumeratorsPickWinner(t *testing.T) {
	balances := &fakeBalances{balances: map[string]*big.Int{"102": big.NewInt(12)}}
	r := NewResolver(balances, testCollateral, testLogger())

	got := r.Resolve(context.Background(), []domain.MarketInstance{resolvedMarket()}, common.Address{})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	c := got[0]
	if c.WinningIndex != 1 {
		t.Fatalf("winning index = %d, want 1", c.WinningIndex)
	}
	if c.IndexSet.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("index set = %s, want 2", c.IndexSet)
	}
	if c.TokenBalance.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("balance = %s, want 12", c.TokenBalance)
	}
	if c.TokenID.String() != "102" {
		t.Fatalf("token id = %s, want 102", c.TokenID)
	}
	if c.Collateral != testCollateral {
		t.Fatalf("collateral = %q", c.Collateral)
	}
}

func TestResolve_WinnerNameBeatsPayouts(t *testing.T) {
	m := resolvedMarket()
	m.Winner = "up" // case-insensitive match against "Up"
	m.PayoutNumerators = []int64{0, 1}

	balances := &fakeBalances{balances: map[string]*big.Int{"101": big.NewInt(7)}}
	r := NewResolver(balances, testCollateral, testLogger())

	got := r.Resolve(context.Background(), []domain.MarketInstance{m}, common.Address{})
	if len(got) != 1 || got[0].WinningIndex != 0 {
		t.Fatalf("got %+v, want winning index 0 from named winner", got)
	}
}

func TestResolve_SkipsWithoutFailing(t *testing.T) {
	notResolved := resolvedMarket()
	notResolved.Closed = false
	notResolved.PayoutNumerators = nil

	noCondition := resolvedMarket()
	noCondition.ConditionID = ""

	ambiguous := resolvedMarket()
	ambiguous.PayoutNumerators = []int64{1, 1}

	noWinner := resolvedMarket()
	noWinner.PayoutNumerators = []int64{0, 0}
	noWinner.Resolution = "void"

	shortTokens := resolvedMarket()
	shortTokens.TokenIDs = []string{"101"}

	badTokenID := resolvedMarket()
	badTokenID.TokenIDs = []string{"101", "0xdeadbeef"}

	markets := []domain.MarketInstance{
		notResolved, noCondition, ambiguous, noWinner, shortTokens, badTokenID,
	}

	balances := &fakeBalances{balances: map[string]*big.Int{"102": big.NewInt(1)}}
	r := NewResolver(balances, testCollateral, testLogger())

	if got := r.Resolve(context.Background(), markets, common.Address{}); len(got) != 0 {
		t.Fatalf("got %d candidates, want all skipped", len(got))
	}
}

func TestResolve_SkipsZeroBalance(t *testing.T) {
	balances := &fakeBalances{} // every balance reads zero
	r := NewResolver(balances, testCollateral, testLogger())

	got := r.Resolve(context.Background(), []domain.MarketInstance{resolvedMarket()}, common.Address{})
	if len(got) != 0 {
		t.Fatalf("got %d candidates, want 0 for zero balance", len(got))
	}
	if balances.queries != 1 {
		t.Fatalf("made %d balance queries, want 1", balances.queries)
	}
}

func TestResolve_SkipsOnBalanceError(t *testing.T) {
	balances := &fakeBalances{err: errors.New("rpc timeout")}
	r := NewResolver(balances, testCollateral, testLogger())

	// Two markets: the first balance query fails, the second market must
	// still be evaluated.
	ok := resolvedMarket()
	ok.Slug = "btc-updown-5m-2024-01-01-0005"

	got := r.Resolve(context.Background(), []domain.MarketInstance{resolvedMarket(), ok}, common.Address{})
	if len(got) != 0 {
		t.Fatalf("got %d candidates, want 0", len(got))
	}
	if balances.queries != 2 {
		t.Fatalf("made %d balance queries, want 2 (batch continued)", balances.queries)
	}
}

func TestResolve_MarketCollateralWins(t *testing.T) {
	m := resolvedMarket()
	m.Collateral = "0x1111111111111111111111111111111111111111"

	balances := &fakeBalances{balances: map[string]*big.Int{"102": big.NewInt(3)}}
	r := NewResolver(balances, testCollateral, testLogger())

	got := r.Resolve(context.Background(), []domain.MarketInstance{m}, common.Address{})
	if len(got) != 1 || got[0].Collateral != m.Collateral {
		t.Fatalf("got %+v, want market collateral preserved", got)
	}
}
