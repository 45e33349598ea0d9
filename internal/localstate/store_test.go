package localstate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type session struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBackend(), zerolog.Nop())

	var missing session
	ok, err := store.Load(ctx, KeyWalletSession, &missing)
	require.NoError(t, err)
	assert.False(t, ok)

	want := session{Address: "So11111111111111111111111111111111111111112", Balance: 1.25}
	require.NoError(t, store.Save(ctx, KeyWalletSession, want))

	var got session
	ok, err = store.Load(ctx, KeyWalletSession, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, store.Remove(ctx, KeyWalletSession))
	ok, err = store.Load(ctx, KeyWalletSession, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreWritesEnvelope(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, zerolog.Nop())
	store.Register(KeyAutoSnipeStorage, 3, nil)

	require.NoError(t, store.Save(ctx, KeyAutoSnipeStorage, []string{"a"}))

	raw, ok, err := backend.Get(ctx, KeyAutoSnipeStorage)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"version":3,"data":["a"]}`, string(raw))
}

func TestStoreMigrations(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	// Version 0 blob in the legacy {state, version} layout
	require.NoError(t, backend.Put(ctx, KeyWalletSession, []byte(`{"state":{"addr":"abc"},"version":0}`)))

	var steps []int
	store := NewStore(backend, zerolog.Nop())
	store.Register(KeyWalletSession, 2, func(from int, data json.RawMessage) (json.RawMessage, error) {
		steps = append(steps, from)
		switch from {
		case 0:
			var old struct {
				Addr string `json:"addr"`
			}
			if err := json.Unmarshal(data, &old); err != nil {
				return nil, err
			}
			return json.Marshal(map[string]any{"address": old.Addr})
		case 1:
			var v map[string]any
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			v["balance"] = 0.5
			return json.Marshal(v)
		}
		return nil, fmt.Errorf("unexpected version %d", from)
	})

	var got session
	ok, err := store.Load(ctx, KeyWalletSession, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1}, steps)
	assert.Equal(t, session{Address: "abc", Balance: 0.5}, got)
}

func TestStoreRejectsFutureVersion(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Put(ctx, KeyWalletSession, []byte(`{"version":9,"data":{}}`)))

	store := NewStore(backend, zerolog.Nop())
	var got session
	_, err := store.Load(ctx, KeyWalletSession, &got)
	assert.ErrorIs(t, err, ErrFutureVersion)
}

func TestStoreCorruptBlob(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Put(ctx, KeyWalletSession, []byte(`not json`)))

	store := NewStore(backend, zerolog.Nop())
	var got session
	_, err := store.Load(ctx, KeyWalletSession, &got)
	assert.Error(t, err)
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")

	backend, err := Open("sqlite://"+path, zerolog.Nop())
	require.NoError(t, err)

	store := NewStore(backend, zerolog.Nop())
	require.NoError(t, store.Save(ctx, KeyWalletSession, session{Address: "first"}))
	require.NoError(t, store.Save(ctx, KeyWalletSession, session{Address: "second"}))
	require.NoError(t, store.Close())

	// State survives reopening the file
	backend, err = NewSQLiteBackend(path, zerolog.Nop())
	require.NoError(t, err)
	defer backend.Close()

	store = NewStore(backend, zerolog.Nop())
	var got session
	ok, err := store.Load(ctx, KeyWalletSession, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", got.Address)

	require.NoError(t, backend.Delete(ctx, KeyWalletSession))
	_, ok, err = backend.Get(ctx, KeyWalletSession)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenUnsupportedScheme(t *testing.T) {
	_, err := Open("ftp://example.com", zerolog.Nop())
	assert.Error(t, err)

	backend, err := Open("memory://", zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, backend)
}

func TestRedisBackend(t *testing.T) {
	if os.Getenv("RUN_REDIS_TESTS") != "true" {
		t.Skip("Skipping Redis test. Set RUN_REDIS_TESTS=true to run")
	}

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}

	ctx := context.Background()
	backend, err := Open(url, zerolog.Nop())
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Put(ctx, "test-key", []byte("value")))
	value, ok, err := backend.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", string(value))

	require.NoError(t, backend.Delete(ctx, "test-key"))
	_, ok, err = backend.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.False(t, ok)
}
