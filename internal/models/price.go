package models

import "time"

// PriceSample is the cached SOL/USD quote
type PriceSample struct {
	SolPrice    float64   `json:"solPrice"`
	LastUpdated time.Time `json:"lastUpdated"`
}
