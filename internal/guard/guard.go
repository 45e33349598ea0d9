package guard

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinimumBalance is the platform balance in SOL gated features require
var MinimumBalance = decimal.RequireFromString("0.5")

// lowRatio marks a balance below the minimum but within 80% of it as low
var lowRatio = decimal.RequireFromString("0.8")

// Validation is the outcome of comparing a balance to a requirement
type Validation struct {
	IsValid        bool            `json:"isValid"`
	Message        string          `json:"message"`
	RequiredAmount decimal.Decimal `json:"requiredAmount"`
	CurrentAmount  decimal.Decimal `json:"currentAmount"`
	Shortfall      decimal.Decimal `json:"shortfall"`
}

// ValidateBalance reports whether current covers required. Equality passes.
func ValidateBalance(current, required decimal.Decimal) Validation {
	valid := current.GreaterThanOrEqual(required)
	shortfall := decimal.Max(decimal.Zero, required.Sub(current))

	message := "Balance sufficient"
	if !valid {
		message = fmt.Sprintf("Insufficient balance. Need %s SOL, have %s SOL", required.String(), current.StringFixed(4))
	}

	return Validation{
		IsValid:        valid,
		Message:        message,
		RequiredAmount: required,
		CurrentAmount:  current,
		Shortfall:      shortfall,
	}
}

// InsufficientBalanceError is returned by Check when an operation is blocked
type InsufficientBalanceError struct {
	Operation  string
	Validation Validation
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("You need at least %s SOL to %s. Current balance: %s SOL",
		e.Validation.RequiredAmount.String(), e.Operation, e.Validation.CurrentAmount.StringFixed(4))
}

// Check gates operation on current covering required
func Check(current, required decimal.Decimal, operation string) error {
	v := ValidateBalance(current, required)
	if v.IsValid {
		return nil
	}
	return &InsufficientBalanceError{Operation: operation, Validation: v}
}

// Level classifies a balance against the minimum
type Level string

const (
	LevelSufficient   Level = "sufficient"
	LevelLow          Level = "low"
	LevelInsufficient Level = "insufficient"
)

// BalanceStatus is a Level with a display message
type BalanceStatus struct {
	Status  Level  `json:"status"`
	Message string `json:"message"`
}

// Status classifies current against minimum
func Status(current, minimum decimal.Decimal) BalanceStatus {
	switch {
	case current.GreaterThanOrEqual(minimum):
		return BalanceStatus{Status: LevelSufficient, Message: "Balance sufficient for all features"}
	case current.GreaterThanOrEqual(minimum.Mul(lowRatio)):
		return BalanceStatus{Status: LevelLow, Message: "Balance is getting low"}
	default:
		return BalanceStatus{
			Status:  LevelInsufficient,
			Message: fmt.Sprintf("Need %s more SOL", minimum.Sub(current).StringFixed(4)),
		}
	}
}
