package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletConnection is one entry of the append-only connection audit log.
// Secret material is never stored; SecretCommitment is a keyed one-way hash.
type WalletConnection struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	WalletType       string          `gorm:"size:32" json:"walletType"`
	WalletName       string          `gorm:"size:64" json:"walletName"`
	WalletAddress    string          `gorm:"size:44;index" json:"walletAddress"`
	Balance          decimal.Decimal `gorm:"type:numeric(20,9);not null;default:0" json:"balance"`
	ActualBalance    decimal.Decimal `gorm:"type:numeric(20,9);not null;default:0" json:"actualBalance"`
	ConnectionMethod string          `gorm:"size:32" json:"connectionMethod"`
	SecretCommitment string          `gorm:"size:64" json:"-"`
	ConnectedAt      time.Time       `gorm:"index" json:"connectedAt"`
}

// WalletSession is the locally persisted connection state of this device
type WalletSession struct {
	IsConnected   bool            `json:"isConnected"`
	WalletType    string          `json:"walletType,omitempty"`
	WalletName    string          `json:"walletName,omitempty"`
	WalletAddress string          `json:"walletAddress,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
}
