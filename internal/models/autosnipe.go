package models

import "time"

// AutoSnipeConfig is a named automated-buy rule owned by one wallet
type AutoSnipeConfig struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	TargetToken   string    `json:"targetToken"`
	MinLiquidity  float64   `json:"minLiquidity"`
	MaxBuyTax     float64   `json:"maxBuyTax"`
	MaxSellTax    float64   `json:"maxSellTax"`
	BuyAmount     float64   `json:"buyAmount"`
	Slippage      float64   `json:"slippage"`
	IsActive      bool      `json:"isActive"`
	Triggers      int       `json:"triggers"`
	Created       time.Time `json:"created"`
	WalletAddress string    `json:"walletAddress"`
	UserID        string    `json:"userId"`
}

// DefaultAutoSnipeConfig returns the parameter defaults of a fresh configuration
func DefaultAutoSnipeConfig() AutoSnipeConfig {
	return AutoSnipeConfig{
		MinLiquidity: 50,
		MaxBuyTax:    5,
		MaxSellTax:   5,
		BuyAmount:    0.1,
		Slippage:     15,
	}
}

// SnipeActivity records the last AutoSnipe toggle of a token by a wallet
type SnipeActivity struct {
	TokenID       string    `json:"tokenId"`
	WalletAddress string    `json:"walletAddress"`
	IsActive      bool      `json:"isActive"`
	Timestamp     time.Time `json:"timestamp"`
}
