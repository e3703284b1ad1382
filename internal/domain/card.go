package domain

import (
	"github.com/shopspring/decimal"
)

// CardStatus is stored on the record but not enforced against charges.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// SpendingProfile names a behavior bucket parameterizing hourly transaction
// probability and the amount distribution.
type SpendingProfile string

const (
	ProfileFrugal  SpendingProfile = "FRUGAL"
	ProfileAverage SpendingProfile = "AVERAGE"
	ProfileSpender SpendingProfile = "SPENDER"
)

// SpendingProfiles lists all generator-assignable profiles.
func SpendingProfiles() []SpendingProfile {
	return []SpendingProfile{ProfileFrugal, ProfileAverage, ProfileSpender}
}

// Card represents a credit card linked to one account. CurrentSpend is the
// cycle-to-date total; it never exceeds Limit after a successful charge and
// is reset to zero on each billing event.
type Card struct {
	CardID          string          `db:"card_id" json:"card_id"`
	AccountID       string          `db:"account_id" json:"account_id"`
	MaskedNumber    string          `db:"masked_number" json:"masked_number"`
	Status          CardStatus      `db:"status" json:"status"`
	Limit           decimal.Decimal `db:"limit" json:"limit"`
	BillingDay      int             `db:"billing_day" json:"billing_day"`
	SpendingProfile SpendingProfile `db:"spending_profile" json:"spending_profile"`
	CurrentSpend    decimal.Decimal `db:"current_spend" json:"current_spend"`
	IssueDate       string          `db:"issue_date" json:"issue_date"`
	ExpiryDate      string          `db:"expiry_date" json:"expiry_date"`
	LastBillDate    *string         `db:"last_bill_date" json:"last_bill_date"`
}

// Validate checks the record for required fields.
func (c *Card) Validate() error {
	if c.CardID == "" {
		return &ValidationError{Entity: "card", Field: "card_id"}
	}
	if c.AccountID == "" {
		return &ValidationError{Entity: "card", Field: "account_id"}
	}
	if c.BillingDay < 1 || c.BillingDay > 31 {
		return &ValidationError{Entity: "card", Field: "billing_day"}
	}
	return nil
}
