// Package chain wraps the Polygon JSON-RPC endpoint behind the narrow
// surface the settlement flow needs: ERC-1155 balance reads on the
// conditional tokens contract and raw transaction plumbing.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/slotclaim/internal/domain"
)

const erc1155ABIJSON = `[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      {"name": "owner", "type": "address"},
      {"name": "id", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`

// Client is a thin wrapper around ethclient bound to the conditional
// tokens contract.
type Client struct {
	eth     *ethclient.Client
	ctf     common.Address
	erc1155 abi.ABI
	logger  *slog.Logger
}

// Dial connects to the JSON-RPC endpoint and verifies the chain ID matches
// the configured one.
func Dial(ctx context.Context, rpcURL string, chainID int64, conditionalTokens string, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	got, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: query chain id: %w", err)
	}
	if got.Int64() != chainID {
		eth.Close()
		return nil, fmt.Errorf("chain: endpoint reports chain id %d, configured %d", got.Int64(), chainID)
	}

	parsed, err := abi.JSON(strings.NewReader(erc1155ABIJSON))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: parse erc1155 abi: %w", err)
	}

	return &Client{
		eth:     eth,
		ctf:     common.HexToAddress(conditionalTokens),
		erc1155: parsed,
		logger:  logger.With(slog.String("component", "chain")),
	}, nil
}

// BalanceOf reads the ERC-1155 balance of owner for the given position
// token id on the conditional tokens contract.
func (c *Client) BalanceOf(ctx context.Context, owner common.Address, tokenID *big.Int) (*big.Int, error) {
	data, err := c.erc1155.Pack("balanceOf", owner, tokenID)
	if err != nil {
		return nil, fmt.Errorf("chain: pack balanceOf: %w", err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.ctf, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balanceOf call: %v: %w", err, domain.ErrBalanceQueryFailed)
	}

	out, err := c.erc1155.Unpack("balanceOf", raw)
	if err != nil || len(out) != 1 {
		return nil, fmt.Errorf("chain: unpack balanceOf: %v: %w", err, domain.ErrBalanceQueryFailed)
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: balanceOf returned %T: %w", out[0], domain.ErrBalanceQueryFailed)
	}
	return bal, nil
}

// SuggestGasPrice returns the endpoint's current base gas price suggestion.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

// EstimateGas simulates msg and returns the gas used.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.eth.EstimateGas(ctx, msg)
}

// PendingNonceAt returns the next nonce for account including pending txs.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.eth.PendingNonceAt(ctx, account)
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.eth.SendTransaction(ctx, tx)
}

// ConditionalTokens returns the bound conditional tokens contract address.
func (c *Client) ConditionalTokens() common.Address {
	return c.ctf
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
