package domain

import (
	"github.com/shopspring/decimal"
)

// TransactionType defines the direction of a financial transaction.
type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "DEBIT"
	TransactionTypeCredit TransactionType = "CREDIT"
)

// InferTransactionType derives the type from the amount sign: negative
// amounts are debits, everything else a credit.
func InferTransactionType(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionTypeDebit
	}
	return TransactionTypeCredit
}

// Transaction categories form a closed taxonomy used for weighting and
// filtering.
const (
	CategoryFoodDining     = "Food & Dining"
	CategoryShopping       = "Shopping"
	CategoryTransport      = "Transport"
	CategoryEntertainment  = "Entertainment"
	CategoryHealthWellness = "Health & Wellness"
	CategoryUtilities      = "Utilities"
	CategoryIncome         = "Income"
	CategoryTransfer       = "Transfer"
	CategoryBills          = "Bills"
	CategoryOther          = "Other"
	CategoryMisc           = "Misc"
)

// AccountTransaction is one immutable ledger entry against an account.
// Entries are append-only; the engine never mutates or deletes them.
type AccountTransaction struct {
	TransactionID   string          `db:"transaction_id" json:"transaction_id"`
	AccountID       string          `db:"account_id" json:"account_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Date            string          `db:"date" json:"date"`
	Description     string          `db:"description" json:"description"`
	Category        string          `db:"category" json:"category"`
	Location        string          `db:"location" json:"location"`
	Type            TransactionType `db:"type" json:"type"`
	TransferGroupID *string         `db:"transfer_group_id" json:"transfer_group_id,omitempty"`
}

// CardTransaction is one immutable ledger entry against a card.
type CardTransaction struct {
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	CardID        string          `db:"card_id" json:"card_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Date          string          `db:"date" json:"date"`
	Description   string          `db:"description" json:"description"`
	Category      string          `db:"category" json:"category"`
	Location      string          `db:"location" json:"location"`
	Type          TransactionType `db:"type" json:"type"`
}
