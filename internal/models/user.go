package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStatus is the account state an admin can set on a user
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

// KYCStatus tracks identity verification
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// RiskLevel is the admin-assigned risk bucket of a user
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// InitialBalance is the platform balance every new account starts with,
// whatever the wallet holds on-chain. Funds are credited by an admin.
var InitialBalance = decimal.Zero

// User represents the platform identity of one connected wallet
type User struct {
	ID               string `gorm:"primaryKey;size:36" json:"id"`
	WalletAddress    string `gorm:"size:44;uniqueIndex;not null" json:"walletAddress"`
	WalletType       string `gorm:"size:32" json:"walletType"`
	WalletName       string `gorm:"size:64" json:"walletName"`
	ConnectionMethod string `gorm:"size:32" json:"connectionMethod"`

	// Financials
	Balance        decimal.Decimal `gorm:"type:numeric(20,9);not null;default:0" json:"balance"`
	TotalDeposited decimal.Decimal `gorm:"type:numeric(20,9);not null;default:0" json:"totalDeposited"`
	TotalWithdrawn decimal.Decimal `gorm:"type:numeric(20,9);not null;default:0" json:"totalWithdrawn"`
	ProfitLoss     decimal.Decimal `gorm:"type:numeric(20,9);not null;default:0" json:"profitLoss"`

	// Trading aggregates, denormalized from AutoSnipeConfig rows
	TotalTrades      int `gorm:"default:0" json:"totalTrades"`
	AutoSnipeConfigs int `gorm:"default:0" json:"autoSnipeConfigs"`
	ActiveSnipes     int `gorm:"default:0" json:"activeSnipes"`

	Status    UserStatus `gorm:"size:20;default:'active';index" json:"status"`
	IsVip     bool       `gorm:"default:false" json:"isVip"`
	KYCStatus KYCStatus  `gorm:"column:kyc_status;size:20;default:'pending'" json:"kycStatus"`
	RiskLevel RiskLevel  `gorm:"size:20;default:'low'" json:"riskLevel"`

	JoinDate   time.Time `gorm:"index;not null" json:"joinDate"`
	LastActive time.Time `json:"lastActive"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// AdminStats aggregates the user and configuration sets for the admin overview
type AdminStats struct {
	TotalUsers     int             `json:"totalUsers"`
	ActiveUsers    int             `json:"activeUsers"`
	SuspendedUsers int             `json:"suspendedUsers"`
	BannedUsers    int             `json:"bannedUsers"`
	VipUsers       int             `json:"vipUsers"`
	TotalBalance   decimal.Decimal `json:"totalBalance"`
	TotalDeposited decimal.Decimal `json:"totalDeposited"`
	TotalWithdrawn decimal.Decimal `json:"totalWithdrawn"`
	TotalTrades    int             `json:"totalTrades"`
	ActiveSnipes   int             `json:"activeSnipes"`
	TotalConfigs   int             `json:"totalConfigs"`
}
