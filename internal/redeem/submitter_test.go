package redeem

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

const (
	testChainID = 137
	testCTF     = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"
	testKeyHex  = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

// fakeBackend records broadcast transactions and lets tests force failures
// at each stage of submission.
type fakeBackend struct {
	gasPrice    *big.Int
	gasPriceErr error
	gasEstimate uint64
	estimateErr error
	nonce       uint64
	sendErr     func(nonce uint64) error
	sent        []*types.Transaction
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	if f.gasPriceErr != nil {
		return nil, f.gasPriceErr
	}
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return f.gasEstimate, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	n := f.nonce
	f.nonce++
	return n, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		if err := f.sendErr(tx.Nonce()); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, tx)
	return nil
}

func newTestSubmitter(t *testing.T, backend TxBackend) *Submitter {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("HexToECDSA: %v", err)
	}
	s, err := NewSubmitter(backend, key, testChainID, testCTF, testLogger())
	if err != nil {
		t.Fatalf("NewSubmitter: %v", err)
	}
	return s
}

func candidate(slug string) domain.RedeemCandidate {
	return domain.RedeemCandidate{
		Slug:         slug,
		ConditionID:  testConditionID,
		Collateral:   testCollateral,
		WinningIndex: 1,
		IndexSet:     big.NewInt(2),
		TokenID:      big.NewInt(102),
		TokenBalance: big.NewInt(12),
	}
}

func TestSubmit_FeeAndGasDerivation(t *testing.T) {
	backend := &fakeBackend{
		gasPrice:    big.NewInt(40_000_000_000), // 40 gwei
		gasEstimate: 100_000,
	}
	s := newTestSubmitter(t, backend)

	attempts := s.Submit(context.Background(), []domain.RedeemCandidate{candidate("a")})
	if len(attempts) != 1 || attempts[0].Err != "" {
		t.Fatalf("attempts = %+v", attempts)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("sent %d txs, want 1", len(backend.sent))
	}

	tx := backend.sent[0]
	if tx.GasFeeCap().Cmp(big.NewInt(80_000_000_000)) != 0 {
		t.Fatalf("max fee = %s, want 2x base", tx.GasFeeCap())
	}
	if tx.GasTipCap().Cmp(big.NewInt(10_000_000_000)) != 0 {
		t.Fatalf("tip = %s, want base/4", tx.GasTipCap())
	}
	if tx.Gas() != 120_000 {
		t.Fatalf("gas = %d, want estimate +20%%", tx.Gas())
	}
	if tx.To() == nil || *tx.To() != common.HexToAddress(testCTF) {
		t.Fatalf("to = %v, want conditional tokens contract", tx.To())
	}
	if attempts[0].TxHash != tx.Hash().Hex() {
		t.Fatalf("attempt hash = %s, tx hash = %s", attempts[0].TxHash, tx.Hash().Hex())
	}
}

func TestSubmit_FallbacksWhenEstimationFails(t *testing.T) {
	backend := &fakeBackend{
		gasPriceErr: errors.New("eth_gasPrice unavailable"),
		estimateErr: errors.New("execution reverted"),
	}
	s := newTestSubmitter(t, backend)

	attempts := s.Submit(context.Background(), []domain.RedeemCandidate{candidate("a")})
	if len(attempts) != 1 || attempts[0].Err != "" {
		t.Fatalf("attempts = %+v", attempts)
	}

	tx := backend.sent[0]
	if tx.GasFeeCap().Cmp(big.NewInt(100_000_000_000)) != 0 {
		t.Fatalf("max fee = %s, want 2x 50 gwei fallback", tx.GasFeeCap())
	}
	if tx.GasTipCap().Cmp(big.NewInt(12_500_000_000)) != 0 {
		t.Fatalf("tip = %s, want 50 gwei / 4", tx.GasTipCap())
	}
	if tx.Gas() != fallbackGasLimit {
		t.Fatalf("gas = %d, want fallback limit", tx.Gas())
	}
}

func TestSubmit_FreshNoncePerCandidate(t *testing.T) {
	backend := &fakeBackend{
		gasPrice:    big.NewInt(30_000_000_000),
		gasEstimate: 90_000,
		nonce:       7,
	}
	s := newTestSubmitter(t, backend)

	cands := []domain.RedeemCandidate{candidate("a"), candidate("b"), candidate("c")}
	attempts := s.Submit(context.Background(), cands)
	if len(attempts) != 3 {
		t.Fatalf("got %d attempts, want 3", len(attempts))
	}
	for i, tx := range backend.sent {
		if tx.Nonce() != uint64(7+i) {
			t.Fatalf("tx %d nonce = %d, want %d", i, tx.Nonce(), 7+i)
		}
	}
}

func TestSubmit_BatchContinuesPastFailure(t *testing.T) {
	backend := &fakeBackend{
		gasPrice:    big.NewInt(30_000_000_000),
		gasEstimate: 90_000,
		sendErr: func(nonce uint64) error {
			if nonce == 0 {
				return errors.New("nonce too low")
			}
			return nil
		},
	}
	s := newTestSubmitter(t, backend)

	attempts := s.Submit(context.Background(), []domain.RedeemCandidate{candidate("a"), candidate("b")})
	if len(attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(attempts))
	}
	if attempts[0].Err == "" || attempts[0].TxHash != "" {
		t.Fatalf("first attempt should have failed: %+v", attempts[0])
	}
	if attempts[1].Err != "" || attempts[1].TxHash == "" {
		t.Fatalf("second attempt should have succeeded: %+v", attempts[1])
	}
	if len(backend.sent) != 1 {
		t.Fatalf("sent %d txs, want 1", len(backend.sent))
	}
}
