package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "11111111111111111111111111111111"

// newRPCServer answers each JSON-RPC method with the given result
func newRPCServer(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if result, ok := results[req.Method]; ok {
			resp["result"] = result
		} else {
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient("", zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingRPCURL)
}

func TestGetBalance(t *testing.T) {
	server := newRPCServer(t, map[string]any{
		"getBalance": map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   1500000000,
		},
	})
	defer server.Close()

	client, err := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, server.URL, client.Endpoint())

	balance, err := client.GetBalance(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, "1.5", balance.String())
}

func TestGetBalanceInvalidAddress(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", zerolog.Nop())
	require.NoError(t, err)

	_, err = client.GetBalance(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestGetBalanceRPCError(t *testing.T) {
	server := newRPCServer(t, map[string]any{})
	defer server.Close()

	client, err := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.GetBalance(context.Background(), testAddress)
	assert.Error(t, err)
}

func TestCheckWalletActivity(t *testing.T) {
	tests := []struct {
		name       string
		signatures []map[string]any
		want       bool
	}{
		{"no history", []map[string]any{}, false},
		{"has history", []map[string]any{{"signature": "5h6xBEauJ3PK6SWCZ1PGjBvj8vDdWG3KpwATGy1ARAXFSDwt8GFXM7W5Ncn16wmqokgpiKRLuS83KUxyZyv2sUYv", "slot": 10}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newRPCServer(t, map[string]any{"getSignaturesForAddress": tt.signatures})
			defer server.Close()

			client, err := NewClient(server.URL, zerolog.Nop())
			require.NoError(t, err)

			active, err := client.CheckWalletActivity(context.Background(), testAddress)
			require.NoError(t, err)
			assert.Equal(t, tt.want, active)
		})
	}
}
