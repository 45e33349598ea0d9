package wallet

import (
	"context"
	"crypto/ed25519"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mevx/internal/credential"
	"github.com/wnt/mevx/internal/directory"
	"github.com/wnt/mevx/internal/events"
	"github.com/wnt/mevx/internal/localstate"
	"github.com/wnt/mevx/internal/models"
	"github.com/wnt/mevx/internal/users"
)

type fakeBalances struct {
	balance decimal.Decimal
	err     error
	calls   int
}

func (f *fakeBalances) GetBalance(context.Context, string) (decimal.Decimal, error) {
	f.calls++
	return f.balance, f.err
}

type recordingAudit struct {
	conns []models.WalletConnection
	err   error
}

func (r *recordingAudit) RecordConnection(_ context.Context, conn *models.WalletConnection) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.conns = append(r.conns, *conn)
	return "conn-id", nil
}

type fixture struct {
	connector *Connector
	users     *users.Store
	sessions  *SessionStore
	local     *localstate.Store
	audit     *recordingAudit
	balances  *fakeBalances
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	local := localstate.NewStore(localstate.NewMemoryBackend(), zerolog.Nop())
	userStore := users.NewStore(directory.New(nil, zerolog.Nop()), events.NewBus(zerolog.Nop()), zerolog.Nop())
	sessions := NewSessionStore(local, zerolog.Nop())
	audit := &recordingAudit{}
	balances := &fakeBalances{balance: decimal.RequireFromString("3.75")}

	return fixture{
		connector: NewConnector(credential.NewDecoder(), balances, userStore, audit, sessions, "pepper", zerolog.Nop()),
		users:     userStore,
		sessions:  sessions,
		local:     local,
		audit:     audit,
		balances:  balances,
	}
}

func testKey(t *testing.T) (string, string) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(200 - i)
	}
	key := ed25519.NewKeyFromSeed(seed)
	secret, err := credential.EncodeBase58(key)
	require.NoError(t, err)
	return secret, solana.PrivateKey(key).PublicKey().String()
}

func TestConnectPrivateKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	secret, address := testKey(t)

	result, err := f.connector.Connect(ctx, Request{
		WalletType: "phantom",
		WalletName: "Phantom",
		Method:     credential.MethodPrivateKey,
		Secret:     secret,
	})
	require.NoError(t, err)

	assert.Equal(t, address, result.Address)
	assert.True(t, result.Balance.IsZero())
	assert.Equal(t, "3.75", result.ActualBalance.String())
	assert.Equal(t, "phantom", result.WalletType)
	assert.Equal(t, address, result.User.WalletAddress)

	session := f.sessions.Current()
	assert.True(t, session.IsConnected)
	assert.Equal(t, address, session.WalletAddress)
	assert.True(t, session.Balance.IsZero())

	var persisted models.WalletSession
	ok, err := f.local.Load(ctx, localstate.KeyWalletSession, &persisted)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, session.WalletAddress, persisted.WalletAddress)
	assert.True(t, persisted.IsConnected)
	assert.True(t, persisted.Balance.Equal(session.Balance))

	require.Len(t, f.audit.conns, 1)
	conn := f.audit.conns[0]
	assert.Equal(t, address, conn.WalletAddress)
	assert.Equal(t, "3.75", conn.ActualBalance.String())
	assert.Equal(t, credential.Commitment(secret, "pepper"), conn.SecretCommitment)
	assert.NotContains(t, conn.SecretCommitment, secret)

	current, ok := f.users.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, result.User.ID, current.ID)
}

func TestConnectTwiceKeepsOneUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	secret, _ := testKey(t)
	req := Request{WalletType: "phantom", Method: credential.MethodPrivateKey, Secret: secret}

	first, err := f.connector.Connect(ctx, req)
	require.NoError(t, err)
	second, err := f.connector.Connect(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Len(t, f.users.GetAllUsers(), 1)
	assert.Len(t, f.audit.conns, 2)
	assert.Equal(t, "phantom", second.User.WalletName)
}

func TestConnectBalanceFailureFallsBackToZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.balances.err = errors.New("rpc down")
	f.audit.err = errors.New("audit down")

	result, err := f.connector.Connect(ctx, Request{
		WalletType: "solflare",
		Method:     credential.MethodRecoveryPhrase,
		Secret:     "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
	})
	require.NoError(t, err)
	assert.True(t, result.ActualBalance.IsZero())
	assert.True(t, f.sessions.Current().IsConnected)
}

func TestConnectValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing wallet type", Request{Method: credential.MethodPrivateKey, Secret: "x"}, "walletType"},
		{"missing method", Request{WalletType: "phantom", Secret: "x"}, "method"},
		{"missing private key", Request{WalletType: "phantom", Method: credential.MethodPrivateKey, Secret: " "}, "secret"},
		{"missing phrase", Request{WalletType: "phantom", Method: credential.MethodRecoveryPhrase}, "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.connector.Connect(ctx, tt.req)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}

	assert.Zero(t, f.balances.calls)
	assert.Empty(t, f.users.GetAllUsers())
}

func TestConnectRejectsBadCredential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.connector.Connect(ctx, Request{
		WalletType: "phantom",
		Method:     credential.MethodRecoveryPhrase,
		Secret:     strings.Repeat("word ", 5),
	})
	var decodeErr *credential.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	assert.False(t, f.sessions.Current().IsConnected)
	assert.Empty(t, f.users.GetAllUsers())
	assert.Empty(t, f.audit.conns)
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	secret, _ := testKey(t)

	_, err := f.connector.Connect(ctx, Request{WalletType: "phantom", Method: credential.MethodPrivateKey, Secret: secret})
	require.NoError(t, err)

	f.sessions.SetBalance(ctx, decimal.RequireFromString("1.5"))
	assert.Equal(t, "1.5", f.sessions.Current().Balance.String())

	session := f.connector.Disconnect(ctx)
	assert.Equal(t, models.WalletSession{}, session)
	_, ok := f.users.CurrentUser()
	assert.False(t, ok)

	// A fresh session store restores the disconnected state
	restored := NewSessionStore(f.local, zerolog.Nop())
	require.NoError(t, restored.Load(ctx))
	assert.False(t, restored.Current().IsConnected)
}

func TestSessionPersistsLatestBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sessions.Connect(ctx, "phantom", "Phantom", "SessionWallet")

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.sessions.SetBalance(ctx, decimal.NewFromInt(int64(i)))
		}(i)
	}
	wg.Wait()

	reloaded := NewSessionStore(f.local, zerolog.Nop())
	require.NoError(t, reloaded.Load(ctx))
	assert.True(t, reloaded.Current().Balance.Equal(f.sessions.Current().Balance))
	assert.Equal(t, "SessionWallet", reloaded.Current().WalletAddress)
}
