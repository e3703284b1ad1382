package sim

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bankgen/internal/domain"
	"bankgen/internal/repository"
)

// Ledger buffers immutable transaction records pending a flush. Records are
// append-only: nothing here mutates or deletes a prior entry. Durability is
// the caller's job — Flush must run before generated history can be
// considered saved.
type Ledger struct {
	repo        repository.Repository
	accountTxns []domain.AccountTransaction
	cardTxns    []domain.CardTransaction
}

// NewLedger returns an empty ledger recording through the given repository's
// ID generator.
func NewLedger(repo repository.Repository) *Ledger {
	return &Ledger{repo: repo}
}

// RecordAccountTxn appends one account ledger entry. The type is inferred
// from the amount sign unless typeOverride is set; groupID links transfer
// legs and is attached only when non-nil.
func (l *Ledger) RecordAccountTxn(accountID string, amount decimal.Decimal, desc, category, location, date string, typeOverride domain.TransactionType, groupID *string) (domain.AccountTransaction, error) {
	id, err := l.repo.GenerateID(repository.IDAccountTxn)
	if err != nil {
		return domain.AccountTransaction{}, fmt.Errorf("ledger: generate account txn id: %w", err)
	}
	txnType := typeOverride
	if txnType == "" {
		txnType = domain.InferTransactionType(amount)
	}
	record := domain.AccountTransaction{
		TransactionID:   id,
		AccountID:       accountID,
		Amount:          amount,
		Date:            date,
		Description:     desc,
		Category:        category,
		Location:        location,
		Type:            txnType,
		TransferGroupID: groupID,
	}
	l.accountTxns = append(l.accountTxns, record)
	return record, nil
}

// RecordCardTxn appends one card ledger entry. Card entries are always
// debits by convention.
func (l *Ledger) RecordCardTxn(cardID string, amount decimal.Decimal, desc, category, location, date string) (domain.CardTransaction, error) {
	id, err := l.repo.GenerateID(repository.IDCardTransaction)
	if err != nil {
		return domain.CardTransaction{}, fmt.Errorf("ledger: generate card txn id: %w", err)
	}
	record := domain.CardTransaction{
		TransactionID: id,
		CardID:        cardID,
		Amount:        amount,
		Date:          date,
		Description:   desc,
		Category:      category,
		Location:      location,
		Type:          domain.TransactionTypeDebit,
	}
	l.cardTxns = append(l.cardTxns, record)
	return record, nil
}

// Pending reports how many records are buffered.
func (l *Ledger) Pending() int {
	return len(l.accountTxns) + len(l.cardTxns)
}

// Flush appends all buffered records through the repository and clears the
// buffer. On error the buffer is kept so a retry does not lose records.
func (l *Ledger) Flush(ctx context.Context) error {
	if l.Pending() == 0 {
		return nil
	}
	if err := l.repo.SaveTransactions(ctx, l.accountTxns, l.cardTxns); err != nil {
		return fmt.Errorf("ledger: flush: %w", err)
	}
	l.accountTxns = nil
	l.cardTxns = nil
	return nil
}

// Reset discards all buffered records.
func (l *Ledger) Reset() {
	l.accountTxns = nil
	l.cardTxns = nil
}
