package price

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mevx/internal/utils"
)

func TestParsers(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		body    string
		want    float64
		wantErr bool
	}{
		{"coingecko", KindCoinGecko, `{"solana":{"usd":228.45}}`, 228.45, false},
		{"coingecko missing", KindCoinGecko, `{"ethereum":{"usd":1}}`, 0, true},
		{"binance", KindBinance, `{"symbol":"SOLUSDT","price":"201.33000000"}`, 201.33, false},
		{"binance malformed", KindBinance, `{"price":"n/a"}`, 0, true},
		{"coincap", KindCoinCap, `{"data":{"id":"solana","priceUsd":"199.8765"}}`, 199.8765, false},
		{"coincap missing", KindCoinCap, `{"data":null}`, 0, true},
		{"not json", KindBinance, `<html>`, 0, true},
		{"empty body", KindCoinCap, ``, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsers[tt.kind](&utils.Response{StatusCode: 200, Body: []byte(tt.body)})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDefaultSourcesOrder(t *testing.T) {
	sources := DefaultSources()
	require.Len(t, sources, 3)
	assert.Equal(t, "CoinGecko", sources[0].Name)
	assert.Equal(t, "Binance", sources[1].Name)
	assert.Equal(t, "CoinCap", sources[2].Name)
	for _, s := range sources {
		assert.NotNil(t, s.Parse)
	}
	assert.Equal(t, "solana", sources[0].Query["ids"])
	assert.Equal(t, "SOLUSDT", sources[1].Query["symbol"])
}

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: Binance US
    kind: binance
    url: https://api.binance.us/api/v3/ticker/price
    query:
      symbol: SOLUSD
    rate_per_second: 1
    burst: 2
    cooldown: 15s
  - kind: CoinGecko
    url: https://pro-api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd
`), 0o600))

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "Binance US", sources[0].Name)
	assert.Equal(t, KindBinance, sources[0].Kind)
	assert.Equal(t, 15*time.Second, sources[0].Cooldown)
	assert.Equal(t, 2, sources[0].Burst)
	assert.Equal(t, map[string]string{"symbol": "SOLUSD"}, sources[0].Query)

	assert.Equal(t, KindCoinGecko, sources[1].Name)
	assert.Equal(t, defaultCooldown, sources[1].Cooldown)
}

func TestParseSourcesErrors(t *testing.T) {
	tests := map[string]string{
		"empty":        `sources: []`,
		"unknown kind": "sources:\n  - kind: kraken\n    url: http://x\n",
		"missing url":  "sources:\n  - kind: binance\n",
		"bad cooldown": "sources:\n  - kind: binance\n    url: http://x\n    cooldown: soon\n",
		"not yaml":     "sources: [",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSources([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := LoadSources(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
