package directory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mevx/internal/database"
	"github.com/wnt/mevx/internal/models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Shared-cache memory databases lock per table; one connection serialises access
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newUser(address string, joined time.Time) *models.User {
	return &models.User{
		WalletAddress: address,
		WalletType:    "phantom",
		WalletName:    "Phantom",
		Balance:       models.InitialBalance,
		Status:        models.UserStatusActive,
		KYCStatus:     models.KYCPending,
		RiskLevel:     models.RiskLow,
		JoinDate:      joined,
		LastActive:    joined,
	}
}

func TestUnavailableClient(t *testing.T) {
	ctx := context.Background()
	client := New(nil, zerolog.Nop())
	assert.False(t, client.Available())

	_, err := client.CreateUser(ctx, newUser("addr", time.Now()))
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	_, err = client.ListUsers(ctx)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	_, err = client.FindUserByWallet(ctx, "addr")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	_, err = client.UpdateUser(ctx, "id", Patch{"is_vip": true})
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	_, err = client.DeleteUser(ctx, "id")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	_, err = client.RecordConnection(ctx, &models.WalletConnection{})
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	unsubscribe := client.SubscribeUsers(func([]models.User) { t.Fatal("unexpected push") })
	unsubscribe()
	unsubscribe()
}

func TestCreateFindAndList(t *testing.T) {
	ctx := context.Background()
	client := New(newTestDB(t), zerolog.Nop())

	base := time.Now().UTC().Add(-time.Hour)
	older := newUser("OlderWallet1111111111111111111111111111111", base)
	newer := newUser("NewerWallet1111111111111111111111111111111", base.Add(time.Minute))

	olderID, err := client.CreateUser(ctx, older)
	require.NoError(t, err)
	assert.NotEmpty(t, olderID)

	_, err = client.CreateUser(ctx, newer)
	require.NoError(t, err)

	users, err := client.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, newer.WalletAddress, users[0].WalletAddress)
	assert.Equal(t, older.WalletAddress, users[1].WalletAddress)

	found, err := client.FindUserByWallet(ctx, older.WalletAddress)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, olderID, found.ID)
	assert.True(t, found.Balance.Equal(decimal.Zero))

	missing, err := client.FindUserByWallet(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateDuplicateWallet(t *testing.T) {
	ctx := context.Background()
	client := New(newTestDB(t), zerolog.Nop())

	_, err := client.CreateUser(ctx, newUser("SameWallet", time.Now().UTC()))
	require.NoError(t, err)

	_, err = client.CreateUser(ctx, newUser("SameWallet", time.Now().UTC()))
	var writeErr *RemoteWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "create", writeErr.Op)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	client := New(newTestDB(t), zerolog.Nop())

	joined := time.Now().UTC().Add(-24 * time.Hour)
	user := newUser("UpdateWallet", joined)
	id, err := client.CreateUser(ctx, user)
	require.NoError(t, err)

	ok, err := client.UpdateUser(ctx, id, Patch{
		"balance":    decimal.RequireFromString("2.5"),
		"is_vip":     true,
		"kyc_status": models.KYCVerified,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := client.FindUserByWallet(ctx, "UpdateWallet")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Balance.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, found.IsVip)
	assert.Equal(t, models.KYCVerified, found.KYCStatus)
	assert.True(t, found.LastActive.After(joined))
	assert.WithinDuration(t, joined, found.JoinDate, time.Millisecond)

	ok, err = client.UpdateUser(ctx, "missing-id", Patch{"is_vip": false})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	client := New(newTestDB(t), zerolog.Nop())

	id, err := client.CreateUser(ctx, newUser("DeleteWallet", time.Now().UTC()))
	require.NoError(t, err)

	ok, err := client.DeleteUser(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.DeleteUser(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	users, err := client.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRecordConnection(t *testing.T) {
	ctx := context.Background()
	client := New(newTestDB(t), zerolog.Nop())

	id, err := client.RecordConnection(ctx, &models.WalletConnection{
		WalletType:       "phantom",
		WalletAddress:    "AuditWallet",
		ActualBalance:    decimal.RequireFromString("1.5"),
		ConnectionMethod: "private-key",
		SecretCommitment: "abc123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	conns, err := client.Connections(ctx, "AuditWallet")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "abc123", conns[0].SecretCommitment)
	assert.False(t, conns[0].ConnectedAt.IsZero())
}

func TestSubscribeUsers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	client := New(db, zerolog.Nop(), WithPollInterval(50*time.Millisecond))

	pushes := make(chan []models.User, 16)
	unsubscribe := client.SubscribeUsers(func(users []models.User) {
		pushes <- users
	})

	next := func() []models.User {
		select {
		case users := <-pushes:
			return users
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for push")
			return nil
		}
	}

	// Initial snapshot
	assert.Empty(t, next())

	// Writes through the client push the full collection
	id, err := client.CreateUser(ctx, newUser("SubscribedWallet", time.Now().UTC()))
	require.NoError(t, err)
	users := next()
	require.Len(t, users, 1)
	assert.Equal(t, id, users[0].ID)

	// A change made by another process is picked up by polling
	other := New(db, zerolog.Nop())
	_, err = other.UpdateUser(ctx, id, Patch{"wallet_name": "Solflare"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case users := <-pushes:
			return len(users) == 1 && users[0].WalletName == "Solflare"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	unsubscribe()
	unsubscribe()
	for len(pushes) > 0 {
		<-pushes
	}

	_, err = client.CreateUser(ctx, newUser("AfterUnsubscribe", time.Now().UTC()))
	require.NoError(t, err)

	select {
	case <-pushes:
		t.Fatal("push after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}
