package sim

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bankgen/internal/domain"
	"bankgen/internal/util"
)

// Account is a hydrated account: the persisted record plus its owner (a
// weak reference used for city/name lookups — the account never owns the
// user) and any linked cards.
type Account struct {
	domain.Account
	Owner  *domain.User
	Cards  []*Card
	ledger *Ledger
}

// Post unconditionally adds amount to the balance and appends exactly one
// ledger entry carrying the same fields. No sign-vs-category validation
// happens here; overdraft is the caller's business decision. The record is
// created before the balance mutates, so a failed ID generation leaves no
// partial state.
func (a *Account) Post(amount decimal.Decimal, desc, category, location, date string, typeOverride domain.TransactionType, groupID *string) error {
	if _, err := a.ledger.RecordAccountTxn(a.AccountID, amount, desc, category, location, date, typeOverride, groupID); err != nil {
		return err
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Card is a hydrated card: the persisted record plus its linking account.
type Card struct {
	domain.Card
	Account *Account
	ledger  *Ledger
}

// Charge attempts to charge the card. A charge whose absolute amount would
// push CurrentSpend past the limit is declined with ErrCardLimitExceeded
// and leaves no state change and no ledger entry — a decline is an expected
// business outcome, not a failure. Approved charges store the amount as
// given (negative by convention) with type fixed to DEBIT.
func (c *Card) Charge(amount decimal.Decimal, desc, category, location, date string) (*domain.CardTransaction, error) {
	if c.CurrentSpend.Add(amount.Abs()).GreaterThan(c.Limit) {
		return nil, util.ErrCardLimitExceeded
	}
	record, err := c.ledger.RecordCardTxn(c.CardID, amount, desc, category, location, date)
	if err != nil {
		return nil, err
	}
	c.CurrentSpend = c.CurrentSpend.Add(amount.Abs())
	return &record, nil
}

// PayBill settles the current cycle: it debits the linking account for
// exactly the rounded pre-reset spend, zeroes CurrentSpend and records the
// bill date. No-op when nothing accrued. The account must be debited with
// the pre-reset value — resetting first would corrupt the bill amount.
func (c *Card) PayBill(date string) error {
	if c.CurrentSpend.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	bill := c.CurrentSpend.Round(2)
	desc := fmt.Sprintf("Credit Card Bill (Cycle %d)", c.BillingDay)
	if err := c.Account.Post(bill.Neg(), desc, domain.CategoryBills, "Online Payment", date, domain.TransactionTypeDebit, nil); err != nil {
		return err
	}
	c.CurrentSpend = decimal.Zero
	billDate := date
	c.LastBillDate = &billDate
	return nil
}
