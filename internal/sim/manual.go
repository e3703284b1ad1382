package sim

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankgen/internal/domain"
	"bankgen/internal/util"
)

// TxnOverrides carries optional caller-supplied fields for manual
// operations; unset fields fall back to configured defaults.
type TxnOverrides struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Location    *string          `json:"location,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// ManualResult holds the record produced by a manual transaction. Exactly
// one of the two fields is set, depending on the target entity.
type ManualResult struct {
	AccountTransaction *domain.AccountTransaction `json:"account_transaction,omitempty"`
	CardTransaction    *domain.CardTransaction    `json:"card_transaction,omitempty"`
}

// ProcessManualTransaction injects a single on-demand transaction against a
// card or an account, dispatching on the ID prefix. Defaults come from the
// financial configuration; the record lands in the ledger buffer and is
// persisted by the next Flush.
func (e *Engine) ProcessManualTransaction(ctx context.Context, entityID string, ov TxnOverrides) (*ManualResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case strings.HasPrefix(entityID, "card_"):
		return e.manualCardTxn(entityID, ov)
	case strings.HasPrefix(entityID, "acc_"):
		return e.manualAccountTxn(entityID, ov)
	default:
		return nil, fmt.Errorf("sim: %w: unrecognized entity id %q", util.ErrInvalidInput, entityID)
	}
}

func (e *Engine) manualCardTxn(cardID string, ov TxnOverrides) (*ManualResult, error) {
	card := e.findCard(cardID)
	if card == nil {
		return nil, util.ErrCardNotFound
	}

	amount := e.cfg.Financial.ManualTransactionDefault
	if ov.Amount != nil {
		amount = *ov.Amount
	}
	desc := "Manual Swipe"
	if ov.Description != nil {
		desc = *ov.Description
	}
	category := e.pickWeightedCategory()
	if ov.Category != nil {
		category = *ov.Category
	}
	location := e.pickLocation(card.Account.Owner.City)
	if ov.Location != nil {
		location = *ov.Location
	}

	record, err := card.Charge(amount, desc, category, location, e.meta.CurrentDate)
	if err != nil {
		return nil, err
	}
	return &ManualResult{CardTransaction: record}, nil
}

func (e *Engine) manualAccountTxn(accountID string, ov TxnOverrides) (*ManualResult, error) {
	account := e.findAccount(accountID)
	if account == nil {
		return nil, util.ErrAccountNotFound
	}

	amount := e.cfg.Financial.ManualTransactionDefault
	if ov.Amount != nil {
		amount = *ov.Amount
	}
	desc := "Manual Op"
	if ov.Description != nil {
		desc = *ov.Description
	}
	category := domain.CategoryMisc
	if ov.Category != nil {
		category = *ov.Category
	}
	location := e.pickLocation(account.Owner.City)
	if ov.Location != nil {
		location = *ov.Location
	}

	record, err := e.ledger.RecordAccountTxn(account.AccountID, amount, desc, category, location, e.meta.CurrentDate, "", nil)
	if err != nil {
		return nil, err
	}
	account.Balance = account.Balance.Add(amount)
	return &ManualResult{AccountTransaction: &record}, nil
}

// ProcessTransfer moves money between two accounts as a double-entry pair:
// a DEBIT leg on the sender followed by a CREDIT leg on the receiver, both
// tagged with a shared transfer group ID. The legs are not atomic; a
// failure after the debit leaves it buffered, mirroring real settlement
// where legs can land independently.
func (e *Engine) ProcessTransfer(ctx context.Context, senderID, receiverID string, ov TxnOverrides) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sender := e.findAccount(senderID)
	if sender == nil {
		return "", fmt.Errorf("sim: sender %s: %w", senderID, util.ErrAccountNotFound)
	}
	receiver := e.findAccount(receiverID)
	if receiver == nil {
		return "", fmt.Errorf("sim: receiver %s: %w", receiverID, util.ErrAccountNotFound)
	}
	if senderID == receiverID {
		return "", fmt.Errorf("sim: %w: cannot transfer to the same account", util.ErrInvalidInput)
	}

	amount := e.cfg.Financial.TransferDefaultAmount
	if ov.Amount != nil {
		amount = ov.Amount.Abs()
	}
	groupID := "grp_" + uuid.NewString()
	date := e.meta.CurrentDate

	debitDesc := "Transfer to " + receiver.Owner.FullName()
	if err := sender.Post(amount.Neg(), debitDesc, domain.CategoryTransfer, "Online", date, domain.TransactionTypeDebit, &groupID); err != nil {
		return "", fmt.Errorf("sim: transfer debit leg: %w", err)
	}

	creditDesc := "Transfer from " + sender.Owner.FullName()
	if err := receiver.Post(amount, creditDesc, domain.CategoryTransfer, "Online", date, domain.TransactionTypeCredit, &groupID); err != nil {
		return "", fmt.Errorf("sim: transfer credit leg: %w", err)
	}
	return groupID, nil
}
