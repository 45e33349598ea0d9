package wallet

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wnt/mevx/internal/credential"
	"github.com/wnt/mevx/internal/logger"
	"github.com/wnt/mevx/internal/metrics"
	"github.com/wnt/mevx/internal/models"
)

// BalanceReader reads the on-chain balance of an address in SOL
type BalanceReader interface {
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// UserRegistrar creates or refreshes the platform user of a wallet
type UserRegistrar interface {
	AddUser(ctx context.Context, in models.User) (models.User, error)
	SetCurrentUser(id string)
}

// ConnectionRecorder appends to the connection audit log
type ConnectionRecorder interface {
	RecordConnection(ctx context.Context, conn *models.WalletConnection) (string, error)
}

// Request is a manual wallet connection
type Request struct {
	WalletType string            `json:"walletType"`
	WalletName string            `json:"walletName"`
	Method     credential.Method `json:"method"`
	Secret     string            `json:"secret"`
}

// ConnectResult describes a successful connection. Balance is the platform
// balance; ActualBalance is what the wallet holds on-chain.
type ConnectResult struct {
	Address       string          `json:"address"`
	Balance       decimal.Decimal `json:"balance"`
	ActualBalance decimal.Decimal `json:"actualBalance"`
	WalletType    string          `json:"walletType"`
	User          models.User     `json:"user"`
}

// Connector runs the wallet connect flow
type Connector struct {
	decoder  *credential.Decoder
	balances BalanceReader
	users    UserRegistrar
	audit    ConnectionRecorder
	sessions *SessionStore
	pepper   string
	logger   zerolog.Logger
}

// NewConnector wires the connect flow. balances may be nil, in which case the
// on-chain balance is reported as zero.
func NewConnector(
	decoder *credential.Decoder,
	balances BalanceReader,
	users UserRegistrar,
	audit ConnectionRecorder,
	sessions *SessionStore,
	pepper string,
	baseLogger zerolog.Logger,
) *Connector {
	return &Connector{
		decoder:  decoder,
		balances: balances,
		users:    users,
		audit:    audit,
		sessions: sessions,
		pepper:   pepper,
		logger:   logger.WithComponent(baseLogger, "wallet_connector"),
	}
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.WalletType) == "" {
		return &ValidationError{Field: "walletType", Message: "Please select a wallet"}
	}
	switch req.Method {
	case credential.MethodPrivateKey:
		if strings.TrimSpace(req.Secret) == "" {
			return &ValidationError{Field: "secret", Message: "Private key is required"}
		}
	case credential.MethodRecoveryPhrase:
		if strings.TrimSpace(req.Secret) == "" {
			return &ValidationError{Field: "secret", Message: "Recovery phrase is required"}
		}
	default:
		return &ValidationError{Field: "method", Message: "Please select a connection method"}
	}
	return nil
}

// Connect decodes the submitted credential, registers the wallet's user,
// records the audit entry and marks this device as connected
func (c *Connector) Connect(ctx context.Context, req Request) (ConnectResult, error) {
	if err := validateRequest(req); err != nil {
		metrics.RecordWalletConnection(string(req.Method), "invalid")
		return ConnectResult{}, err
	}
	if strings.TrimSpace(req.WalletName) == "" {
		req.WalletName = req.WalletType
	}

	decoded, err := c.decoder.Decode(req.Secret, req.Method)
	if err != nil {
		metrics.RecordWalletConnection(string(req.Method), "decode_failed")
		c.logger.Info().Str("method", string(req.Method)).Msg("Rejected wallet credential")
		return ConnectResult{}, err
	}

	address := decoded.Address()
	log := logger.WithWallet(c.logger, address)

	actual := decimal.Zero
	if c.balances != nil {
		actual, err = c.balances.GetBalance(ctx, address)
		if err != nil {
			log.Warn().Err(err).Msg("Could not fetch on-chain balance, using 0")
			actual = decimal.Zero
		}
	}

	user, err := c.users.AddUser(ctx, models.User{
		WalletAddress:    address,
		WalletType:       req.WalletType,
		WalletName:       req.WalletName,
		ConnectionMethod: string(req.Method),
	})
	if err != nil {
		metrics.RecordWalletConnection(string(req.Method), "failed")
		return ConnectResult{}, err
	}

	conn := &models.WalletConnection{
		WalletType:       req.WalletType,
		WalletName:       req.WalletName,
		WalletAddress:    address,
		Balance:          models.InitialBalance,
		ActualBalance:    actual,
		ConnectionMethod: string(req.Method),
		SecretCommitment: credential.Commitment(req.Secret, c.pepper),
	}
	if _, err := c.audit.RecordConnection(ctx, conn); err != nil {
		log.Warn().Err(err).Msg("Failed to record wallet connection, continuing")
	}

	c.sessions.Connect(ctx, req.WalletType, req.WalletName, address)
	metrics.RecordWalletConnection(string(req.Method), "success")

	log.Info().
		Str("wallet_type", req.WalletType).
		Str("method", string(req.Method)).
		Str("format", string(decoded.Format)).
		Str("actual_balance", actual.String()).
		Msg("Wallet connected")

	return ConnectResult{
		Address:       address,
		Balance:       user.Balance,
		ActualBalance: actual,
		WalletType:    req.WalletType,
		User:          user,
	}, nil
}

// Disconnect clears the session and the current user
func (c *Connector) Disconnect(ctx context.Context) models.WalletSession {
	c.users.SetCurrentUser("")
	return c.sessions.Disconnect(ctx)
}
