package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType classifies a bank account.
type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
)

// AccountStatus is stored on the record but not enforced against
// transactions by the simulation.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
	AccountStatusFrozen   AccountStatus = "FROZEN"
)

// Account represents a bank account. Balance is a signed decimal with no
// floor: it always equals the sum of all amounts ever posted, by
// construction, and overdraft is a business decision left to callers.
type Account struct {
	AccountID    string          `db:"account_id" json:"account_id"`
	UserID       string          `db:"user_id" json:"user_id"`
	Type         AccountType     `db:"type" json:"type"`
	Currency     string          `db:"currency" json:"currency"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	SalaryAmount decimal.Decimal `db:"salary_amount" json:"salary_amount"`
	Status       AccountStatus   `db:"status" json:"status"`
}

// Validate checks the record for required fields.
func (a *Account) Validate() error {
	if a.AccountID == "" {
		return &ValidationError{Entity: "account", Field: "account_id"}
	}
	if a.UserID == "" {
		return &ValidationError{Entity: "account", Field: "user_id"}
	}
	if a.Currency == "" {
		return &ValidationError{Entity: "account", Field: "currency"}
	}
	return nil
}
