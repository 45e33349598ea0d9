package price

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wnt/mevx/internal/utils"
	"gopkg.in/yaml.v3"
)

// Source is one public price endpoint
type Source struct {
	Name  string
	Kind  string
	URL   string
	Query map[string]string
	// Parse extracts the SOL/USD price from a response
	Parse func(resp *utils.Response) (float64, error)
	// RatePerSecond and Burst bound request frequency; zero means unlimited
	RatePerSecond float64
	Burst         int
	// Cooldown is how long the source is skipped after a failure
	Cooldown time.Duration
}

const (
	KindCoinGecko = "coingecko"
	KindBinance   = "binance"
	KindCoinCap   = "coincap"
)

const defaultCooldown = 60 * time.Second

var errNoPrice = errors.New("response carries no price")

var parsers = map[string]func(*utils.Response) (float64, error){
	KindCoinGecko: parseCoinGecko,
	KindBinance:   parseBinance,
	KindCoinCap:   parseCoinCap,
}

// DefaultSources returns the built-in sources in priority order
func DefaultSources() []Source {
	return []Source{
		{
			Name:          "CoinGecko",
			Kind:          KindCoinGecko,
			URL:           "https://api.coingecko.com/api/v3/simple/price",
			Query:         map[string]string{"ids": "solana", "vs_currencies": "usd"},
			Parse:         parseCoinGecko,
			RatePerSecond: 0.5,
			Burst:         2,
			Cooldown:      defaultCooldown,
		},
		{
			Name:          "Binance",
			Kind:          KindBinance,
			URL:           "https://api.binance.com/api/v3/ticker/price",
			Query:         map[string]string{"symbol": "SOLUSDT"},
			Parse:         parseBinance,
			RatePerSecond: 2,
			Burst:         5,
			Cooldown:      defaultCooldown,
		},
		{
			Name:          "CoinCap",
			Kind:          KindCoinCap,
			URL:           "https://api.coincap.io/v2/assets/solana",
			Parse:         parseCoinCap,
			RatePerSecond: 1,
			Burst:         2,
			Cooldown:      defaultCooldown,
		},
	}
}

type sourceFile struct {
	Sources []struct {
		Name          string            `yaml:"name"`
		Kind          string            `yaml:"kind"`
		URL           string            `yaml:"url"`
		Query         map[string]string `yaml:"query"`
		RatePerSecond float64           `yaml:"rate_per_second"`
		Burst         int               `yaml:"burst"`
		Cooldown      string            `yaml:"cooldown"`
	} `yaml:"sources"`
}

// LoadSources reads an ordered source list from a YAML file. Each entry
// names a kind whose response format it shares with a built-in source.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price sources: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes a YAML source list
func ParseSources(data []byte) ([]Source, error) {
	var file sourceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse price sources: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, errors.New("price sources file lists no sources")
	}

	sources := make([]Source, 0, len(file.Sources))
	for i, entry := range file.Sources {
		kind := strings.ToLower(entry.Kind)
		parse, ok := parsers[kind]
		if !ok {
			return nil, fmt.Errorf("source %d: unknown kind %q", i, entry.Kind)
		}
		if entry.URL == "" {
			return nil, fmt.Errorf("source %d: url is required", i)
		}

		name := entry.Name
		if name == "" {
			name = kind
		}

		cooldown := defaultCooldown
		if entry.Cooldown != "" {
			d, err := time.ParseDuration(entry.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("source %s: invalid cooldown: %w", name, err)
			}
			cooldown = d
		}

		sources = append(sources, Source{
			Name:          name,
			Kind:          kind,
			URL:           entry.URL,
			Query:         entry.Query,
			Parse:         parse,
			RatePerSecond: entry.RatePerSecond,
			Burst:         entry.Burst,
			Cooldown:      cooldown,
		})
	}
	return sources, nil
}

func parseCoinGecko(resp *utils.Response) (float64, error) {
	var body struct {
		Solana *struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return 0, err
	}
	if body.Solana == nil {
		return 0, errNoPrice
	}
	return body.Solana.USD, nil
}

func parseBinance(resp *utils.Response) (float64, error) {
	var body struct {
		Price string `json:"price"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return 0, err
	}
	if body.Price == "" {
		return 0, errNoPrice
	}
	return strconv.ParseFloat(body.Price, 64)
}

func parseCoinCap(resp *utils.Response) (float64, error) {
	var body struct {
		Data *struct {
			PriceUSD string `json:"priceUsd"`
		} `json:"data"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return 0, err
	}
	if body.Data == nil || body.Data.PriceUSD == "" {
		return 0, errNoPrice
	}
	return strconv.ParseFloat(body.Data.PriceUSD, 64)
}
