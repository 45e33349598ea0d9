package users

import (
	"github.com/shopspring/decimal"
	"github.com/wnt/mevx/internal/directory"
	"github.com/wnt/mevx/internal/models"
)

// Patch is a partial user update. Nil fields are left unchanged. The
// configuration counters are owned by SyncTradingStats and cannot be patched.
type Patch struct {
	WalletType       *string            `json:"walletType,omitempty"`
	WalletName       *string            `json:"walletName,omitempty"`
	Balance          *decimal.Decimal   `json:"balance,omitempty"`
	TotalDeposited   *decimal.Decimal   `json:"totalDeposited,omitempty"`
	TotalWithdrawn   *decimal.Decimal   `json:"totalWithdrawn,omitempty"`
	ProfitLoss       *decimal.Decimal   `json:"profitLoss,omitempty"`
	TotalTrades      *int               `json:"totalTrades,omitempty"`
	Status           *models.UserStatus `json:"status,omitempty"`
	IsVip            *bool              `json:"isVip,omitempty"`
	KYCStatus        *models.KYCStatus  `json:"kycStatus,omitempty"`
	RiskLevel        *models.RiskLevel  `json:"riskLevel,omitempty"`
}

// apply copies the set fields onto u and returns them keyed by column
func (p Patch) apply(u *models.User) directory.Patch {
	cols := directory.Patch{}
	if p.WalletType != nil {
		u.WalletType = *p.WalletType
		cols["wallet_type"] = u.WalletType
	}
	if p.WalletName != nil {
		u.WalletName = *p.WalletName
		cols["wallet_name"] = u.WalletName
	}
	if p.Balance != nil {
		u.Balance = *p.Balance
		cols["balance"] = u.Balance
	}
	if p.TotalDeposited != nil {
		u.TotalDeposited = *p.TotalDeposited
		cols["total_deposited"] = u.TotalDeposited
	}
	if p.TotalWithdrawn != nil {
		u.TotalWithdrawn = *p.TotalWithdrawn
		cols["total_withdrawn"] = u.TotalWithdrawn
	}
	if p.ProfitLoss != nil {
		u.ProfitLoss = *p.ProfitLoss
		cols["profit_loss"] = u.ProfitLoss
	}
	if p.TotalTrades != nil {
		u.TotalTrades = *p.TotalTrades
		cols["total_trades"] = u.TotalTrades
	}
	if p.Status != nil {
		u.Status = *p.Status
		cols["status"] = u.Status
	}
	if p.IsVip != nil {
		u.IsVip = *p.IsVip
		cols["is_vip"] = u.IsVip
	}
	if p.KYCStatus != nil {
		u.KYCStatus = *p.KYCStatus
		cols["kyc_status"] = u.KYCStatus
	}
	if p.RiskLevel != nil {
		u.RiskLevel = *p.RiskLevel
		cols["risk_level"] = u.RiskLevel
	}
	return cols
}
