package events

import "github.com/wnt/mevx/internal/models"

// Change kinds carried in payloads
const (
	ChangeAdded   = "added"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
	ChangeToggled = "toggled"
	ChangeLoaded  = "loaded"
)

// ConfigChanged is the payload of TopicAutoSnipeConfigChanged
type ConfigChanged struct {
	Type          string                 `json:"type"`
	Config        models.AutoSnipeConfig `json:"config"`
	WalletAddress string                 `json:"walletAddress"`
}

// TokenChanged is the payload of TopicAutoSnipeTokenChanged
type TokenChanged struct {
	Type          string `json:"type"`
	TokenID       string `json:"tokenId"`
	WalletAddress string `json:"walletAddress"`
	IsActive      bool   `json:"isActive"`
}

// UsersChanged is the payload of TopicUsersChanged. User is nil for bulk reloads.
type UsersChanged struct {
	Type  string       `json:"type"`
	User  *models.User `json:"user,omitempty"`
	Count int          `json:"count"`
}
