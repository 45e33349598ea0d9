package solana

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// solDecimals is the exponent between lamports and SOL
const solDecimals = 9

// DefaultTimeout bounds a single balance or activity lookup
const DefaultTimeout = 10 * time.Second

var (
	ErrMissingRPCURL  = errors.New("solana RPC URL is not set")
	ErrInvalidAddress = errors.New("invalid wallet address")
)

// Client reads wallet state from a Solana RPC node
type Client struct {
	rpcClient *rpc.Client
	endpoint  string
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewClient creates a new Solana client. No request is made until the first lookup.
func NewClient(endpoint string, logger zerolog.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, ErrMissingRPCURL
	}

	return &Client{
		rpcClient: rpc.New(endpoint),
		endpoint:  endpoint,
		timeout:   DefaultTimeout,
		logger:    logger.With().Str("component", "solana").Logger(),
	}, nil
}

// Endpoint returns the RPC endpoint the client talks to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GetBalance returns the confirmed balance of address in SOL
func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.rpcClient.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance := decimal.NewFromBigInt(new(big.Int).SetUint64(result.Value), -solDecimals)
	c.logger.Debug().
		Str("wallet", address).
		Str("balance", balance.String()).
		Msg("Fetched on-chain balance")

	return balance, nil
}

// CheckWalletActivity reports whether address has at least one transaction signature
func (c *Client) CheckWalletActivity(ctx context.Context, address string) (bool, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	limit := 1
	signatures, err := c.rpcClient.GetSignaturesForAddressWithOpts(ctx, pubkey, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return false, fmt.Errorf("failed to get signatures: %w", err)
	}

	return len(signatures) > 0, nil
}
