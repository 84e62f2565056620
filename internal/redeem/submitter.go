package redeem

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

const ctfABIJSON = `[
  {
    "name": "redeemPositions",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "collateralToken", "type": "address"},
      {"name": "parentCollectionId", "type": "bytes32"},
      {"name": "conditionId", "type": "bytes32"},
      {"name": "indexSets", "type": "uint256[]"}
    ],
    "outputs": []
  }
]`

const (
	// fallbackGasPrice is used when the endpoint refuses a fee suggestion.
	fallbackGasPriceWei = 50_000_000_000 // 50 gwei
	// fallbackGasLimit is used when simulation fails.
	fallbackGasLimit = 350_000
)

// TxBackend is the transaction plumbing Submitter needs from a chain client.
type TxBackend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Submitter signs and broadcasts redeemPositions transactions on the
// conditional tokens contract.
type Submitter struct {
	backend TxBackend
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	ctf     common.Address
	ctfABI  abi.ABI
	logger  *slog.Logger
}

// NewSubmitter builds a Submitter signing with key for the given chain and
// conditional tokens contract address.
func NewSubmitter(backend TxBackend, key *ecdsa.PrivateKey, chainID int64, conditionalTokens string, logger *slog.Logger) (*Submitter, error) {
	parsed, err := abi.JSON(strings.NewReader(ctfABIJSON))
	if err != nil {
		return nil, fmt.Errorf("redeem: parse ctf abi: %w", err)
	}
	return &Submitter{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
		ctf:     common.HexToAddress(conditionalTokens),
		ctfABI:  parsed,
		logger:  logger.With(slog.String("component", "submitter")),
	}, nil
}

// From returns the signing wallet address.
func (s *Submitter) From() common.Address {
	return s.from
}

// Submit broadcasts one redeemPositions transaction per candidate. Each
// candidate gets a fresh nonce and independent fee and gas estimates. A
// failing candidate is recorded and the batch continues; Submit never aborts
// early. No confirmation polling is performed.
func (s *Submitter) Submit(ctx context.Context, candidates []domain.RedeemCandidate) []domain.SettlementAttempt {
	attempts := make([]domain.SettlementAttempt, 0, len(candidates))
	for _, cand := range candidates {
		att := domain.SettlementAttempt{Candidate: cand, At: time.Now().UTC()}
		hash, err := s.submitOne(ctx, cand)
		if err != nil {
			att.Err = err.Error()
			s.logger.Warn("redeem submission failed",
				slog.String("slug", cand.Slug),
				slog.Any("error", err))
		} else {
			att.TxHash = hash
			s.logger.Info("redeem submitted",
				slog.String("slug", cand.Slug),
				slog.String("tx", hash))
		}
		attempts = append(attempts, att)
	}
	return attempts
}

func (s *Submitter) submitOne(ctx context.Context, cand domain.RedeemCandidate) (string, error) {
	data, err := s.ctfABI.Pack("redeemPositions",
		common.HexToAddress(cand.Collateral),
		[32]byte{},
		common.HexToHash(cand.ConditionID),
		[]*big.Int{cand.IndexSet},
	)
	if err != nil {
		return "", fmt.Errorf("redeem: pack redeemPositions: %w", err)
	}

	maxFee, tip := s.fees(ctx)
	gas := s.gasLimit(ctx, data)

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return "", fmt.Errorf("redeem: fetch nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: maxFee,
		Gas:       gas,
		To:        &s.ctf,
		Value:     big.NewInt(0),
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return "", fmt.Errorf("redeem: sign transaction: %w", err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("redeem: broadcast: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// fees derives the EIP-1559 fee caps from the endpoint's gas price
// suggestion: max fee twice the base, tip a quarter of it. A failed
// suggestion falls back to a fixed 50 gwei base.
func (s *Submitter) fees(ctx context.Context) (maxFee, tip *big.Int) {
	base, err := s.backend.SuggestGasPrice(ctx)
	if err != nil || base == nil || base.Sign() <= 0 {
		s.logger.Warn("gas price suggestion unavailable, using fallback", slog.Any("error", err))
		base = big.NewInt(fallbackGasPriceWei)
	}
	maxFee = new(big.Int).Mul(base, big.NewInt(2))
	tip = new(big.Int).Div(base, big.NewInt(4))
	return maxFee, tip
}

// gasLimit simulates the call and pads the estimate by 20%. A failed
// simulation falls back to a fixed limit rather than dropping the candidate.
func (s *Submitter) gasLimit(ctx context.Context, data []byte) uint64 {
	est, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &s.ctf,
		Data: data,
	})
	if err != nil || est == 0 {
		s.logger.Warn("gas estimation failed, using fallback", slog.Any("error", err))
		return fallbackGasLimit
	}
	return est * 12 / 10
}
