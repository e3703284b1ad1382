package sim

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankgen/internal/domain"
	"bankgen/internal/util"
)

func TestManualCardTransactionDefaults(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T10:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)
	_, _, card := seedAccount(t, engine, nil, nil)

	result, err := engine.ProcessManualTransaction(ctx, card.CardID, TxnOverrides{})
	require.NoError(t, err)
	require.NotNil(t, result.CardTransaction)
	assert.Nil(t, result.AccountTransaction)

	txn := result.CardTransaction
	assert.True(t, txn.Amount.Equal(decimal.NewFromFloat(-10.00)))
	assert.Equal(t, "Manual Swipe", txn.Description)
	assert.Equal(t, "2023-01-14T10:00:00", txn.Date)
	assert.NotEmpty(t, txn.Category)

	assert.True(t, engine.findCard(card.CardID).CurrentSpend.Equal(decimal.NewFromInt(10)))
}

func TestManualCardTransactionOverrides(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T10:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)
	_, _, card := seedAccount(t, engine, nil, nil)

	result, err := engine.ProcessManualTransaction(ctx, card.CardID, TxnOverrides{
		Amount:      decPtr(decimal.NewFromFloat(-42.50)),
		Category:    strPtr(domain.CategoryEntertainment),
		Location:    strPtr("Las Vegas"),
		Description: strPtr("Show tickets"),
	})
	require.NoError(t, err)

	txn := result.CardTransaction
	assert.True(t, txn.Amount.Equal(decimal.NewFromFloat(-42.50)))
	assert.Equal(t, domain.CategoryEntertainment, txn.Category)
	assert.Equal(t, "Las Vegas", txn.Location)
	assert.Equal(t, "Show tickets", txn.Description)
}

func TestManualCardTransactionDeclined(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T10:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)
	_, _, card := seedAccount(t, engine, nil, &CardOverrides{
		Limit:        decPtr(decimal.NewFromInt(100)),
		CurrentSpend: decPtr(decimal.NewFromInt(95)),
	})

	result, err := engine.ProcessManualTransaction(ctx, card.CardID, TxnOverrides{})
	assert.Nil(t, result)
	assert.True(t, util.IsError(err, util.ErrCardLimitExceeded))
}

func TestManualAccountTransactionDefaults(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T10:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)
	_, account, _ := seedAccount(t, engine, &AccountOverrides{Balance: decPtr(decimal.NewFromInt(100))}, nil)

	result, err := engine.ProcessManualTransaction(ctx, account.AccountID, TxnOverrides{})
	require.NoError(t, err)
	require.NotNil(t, result.AccountTransaction)
	assert.Nil(t, result.CardTransaction)

	txn := result.AccountTransaction
	assert.True(t, txn.Amount.Equal(decimal.NewFromFloat(-10.00)))
	assert.Equal(t, "Manual Op", txn.Description)
	assert.Equal(t, domain.CategoryMisc, txn.Category)
	assert.Equal(t, domain.TransactionTypeDebit, txn.Type)

	assert.True(t, engine.findAccount(account.AccountID).Balance.Equal(decimal.NewFromInt(90)))
}

func TestManualTransactionUnknownEntity(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T10:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)

	_, err := engine.ProcessManualTransaction(ctx, "wallet_1_1", TxnOverrides{})
	assert.True(t, util.IsError(err, util.ErrInvalidInput))

	_, err = engine.ProcessManualTransaction(ctx, "card_999_999", TxnOverrides{})
	assert.True(t, util.IsError(err, util.ErrCardNotFound))

	_, err = engine.ProcessManualTransaction(ctx, "acc_999_999", TxnOverrides{})
	assert.True(t, util.IsError(err, util.ErrAccountNotFound))
}

func TestTransferDoubleEntry(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T10:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)

	_, sender, _ := seedAccount(t, engine, &AccountOverrides{Balance: decPtr(decimal.NewFromInt(500))}, nil)
	_, receiver, _ := seedAccount(t, engine, &AccountOverrides{Balance: decPtr(decimal.NewFromInt(100))}, nil)

	groupID, err := engine.ProcessTransfer(ctx, sender.AccountID, receiver.AccountID, TxnOverrides{
		Amount: decPtr(decimal.NewFromInt(75)),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(groupID, "grp_"))

	require.NoError(t, engine.Flush(ctx))

	debits, total, err := store.AccountTransactions(ctx, sender.AccountID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	credits, total, err := store.AccountTransactions(ctx, receiver.AccountID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	debit, credit := debits[0], credits[0]
	assert.True(t, debit.Amount.Equal(decimal.NewFromInt(-75)))
	assert.True(t, credit.Amount.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, domain.TransactionTypeDebit, debit.Type)
	assert.Equal(t, domain.TransactionTypeCredit, credit.Type)
	assert.Equal(t, domain.CategoryTransfer, debit.Category)

	// Both legs carry the same group id.
	require.NotNil(t, debit.TransferGroupID)
	require.NotNil(t, credit.TransferGroupID)
	assert.Equal(t, groupID, *debit.TransferGroupID)
	assert.Equal(t, groupID, *credit.TransferGroupID)

	// Money is conserved across the pair.
	assert.True(t, debit.Amount.Add(credit.Amount).IsZero())
	assert.True(t, engine.findAccount(sender.AccountID).Balance.Equal(decimal.NewFromInt(425)))
	assert.True(t, engine.findAccount(receiver.AccountID).Balance.Equal(decimal.NewFromInt(175)))
}

func TestTransferDefaultAmount(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T10:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)

	_, sender, _ := seedAccount(t, engine, &AccountOverrides{Balance: decPtr(decimal.NewFromInt(500))}, nil)
	_, receiver, _ := seedAccount(t, engine, &AccountOverrides{Balance: decPtr(decimal.Zero)}, nil)

	_, err := engine.ProcessTransfer(ctx, sender.AccountID, receiver.AccountID, TxnOverrides{})
	require.NoError(t, err)

	assert.True(t, engine.findAccount(sender.AccountID).Balance.Equal(decimal.NewFromInt(450)))
	assert.True(t, engine.findAccount(receiver.AccountID).Balance.Equal(decimal.NewFromInt(50)))
}

func TestTransferRejectsSameAccountAndMissingParties(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T10:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)

	_, account, _ := seedAccount(t, engine, nil, nil)

	_, err := engine.ProcessTransfer(ctx, account.AccountID, account.AccountID, TxnOverrides{})
	assert.True(t, util.IsError(err, util.ErrInvalidInput))

	_, err = engine.ProcessTransfer(ctx, "acc_999_999", account.AccountID, TxnOverrides{})
	assert.True(t, util.IsError(err, util.ErrAccountNotFound))

	_, err = engine.ProcessTransfer(ctx, account.AccountID, "acc_999_999", TxnOverrides{})
	assert.True(t, util.IsError(err, util.ErrAccountNotFound))
}
