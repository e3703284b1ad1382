package sim

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankgen/internal/domain"
	"bankgen/internal/repository/memory"
	"bankgen/internal/util"
)

func testAccount(ledger *Ledger, balance decimal.Decimal) *Account {
	return &Account{
		Account: domain.Account{
			AccountID:    "acc_1700000000_1",
			UserID:       "u_1700000000_1",
			Type:         domain.AccountTypeChecking,
			Currency:     "USD",
			Balance:      balance,
			SalaryAmount: decimal.NewFromInt(3000),
			Status:       domain.AccountStatusActive,
		},
		Owner:  &domain.User{UserID: "u_1700000000_1", FirstName: "Pat", LastName: "Doe", City: "Springfield"},
		ledger: ledger,
	}
}

func testCard(account *Account, limit, spend decimal.Decimal) *Card {
	card := &Card{
		Card: domain.Card{
			CardID:          "card_1700000000_1",
			AccountID:       account.AccountID,
			Status:          domain.CardStatusActive,
			Limit:           limit,
			BillingDay:      15,
			SpendingProfile: domain.ProfileAverage,
			CurrentSpend:    spend,
		},
		Account: account,
		ledger:  account.ledger,
	}
	account.Cards = append(account.Cards, card)
	return card
}

func TestAccountPostMutatesBalanceAndRecords(t *testing.T) {
	ledger := NewLedger(memory.New())
	account := testAccount(ledger, decimal.NewFromInt(100))

	err := account.Post(decimal.NewFromFloat(-25.50), "Groceries", domain.CategoryFoodDining, "Springfield", "2023-01-14T10:00:00", "", nil)
	require.NoError(t, err)

	assert.True(t, account.Balance.Equal(decimal.NewFromFloat(74.50)))
	require.Equal(t, 1, ledger.Pending())
	require.Len(t, ledger.accountTxns, 1)
	rec := ledger.accountTxns[0]
	assert.Equal(t, domain.TransactionTypeDebit, rec.Type)
	assert.Nil(t, rec.TransferGroupID)
}

func TestAccountPostAllowsOverdraft(t *testing.T) {
	ledger := NewLedger(memory.New())
	account := testAccount(ledger, decimal.NewFromInt(10))

	require.NoError(t, account.Post(decimal.NewFromInt(-100), "Rent", domain.CategoryBills, "Online", "2023-01-14T10:00:00", "", nil))
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(-90)))
}

func TestAccountBalanceEqualsSumOfPostings(t *testing.T) {
	ledger := NewLedger(memory.New())
	account := testAccount(ledger, decimal.Zero)

	amounts := []decimal.Decimal{
		decimal.NewFromFloat(1500.00),
		decimal.NewFromFloat(-42.17),
		decimal.NewFromFloat(-13.99),
		decimal.NewFromFloat(50.00),
	}
	sum := decimal.Zero
	for _, amt := range amounts {
		require.NoError(t, account.Post(amt, "txn", domain.CategoryMisc, "Online", "2023-01-14T10:00:00", "", nil))
		sum = sum.Add(amt)
	}

	assert.True(t, account.Balance.Equal(sum))
	assert.Equal(t, len(amounts), ledger.Pending())
}

func TestCardChargeDeclinedOverLimit(t *testing.T) {
	ledger := NewLedger(memory.New())
	account := testAccount(ledger, decimal.NewFromInt(1000))
	card := testCard(account, decimal.NewFromInt(500), decimal.NewFromInt(450))

	rec, err := card.Charge(decimal.NewFromInt(-100), "Purchase", domain.CategoryShopping, "Springfield", "2023-01-14T10:00:00")

	require.Error(t, err)
	assert.True(t, util.IsError(err, util.ErrCardLimitExceeded))
	assert.Nil(t, rec)
	// Declines leave no state change and no record.
	assert.True(t, card.CurrentSpend.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, 0, ledger.Pending())
}

func TestCardChargeExactlyToLimit(t *testing.T) {
	ledger := NewLedger(memory.New())
	account := testAccount(ledger, decimal.NewFromInt(1000))
	card := testCard(account, decimal.NewFromInt(500), decimal.NewFromInt(450))

	rec, err := card.Charge(decimal.NewFromInt(-50), "Purchase", domain.CategoryShopping, "Springfield", "2023-01-14T10:00:00")

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, card.CurrentSpend.Equal(card.Limit))
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(-50)))
	assert.Equal(t, domain.TransactionTypeDebit, rec.Type)
}

func TestCardChargeDoesNotTouchAccountBalance(t *testing.T) {
	ledger := NewLedger(memory.New())
	account := testAccount(ledger, decimal.NewFromInt(1000))
	card := testCard(account, decimal.NewFromInt(500), decimal.Zero)

	_, err := card.Charge(decimal.NewFromFloat(-75.25), "Purchase", domain.CategoryShopping, "Springfield", "2023-01-14T10:00:00")
	require.NoError(t, err)

	assert.True(t, account.Balance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, card.CurrentSpend.Equal(decimal.NewFromFloat(75.25)))
}

func TestPayBillDebitsPreResetSpend(t *testing.T) {
	ledger := NewLedger(memory.New())
	account := testAccount(ledger, decimal.NewFromInt(1000))
	card := testCard(account, decimal.NewFromInt(1000), decimal.Zero)

	_, err := card.Charge(decimal.NewFromInt(-200), "Purchase", domain.CategoryShopping, "Springfield", "2023-01-14T10:00:00")
	require.NoError(t, err)

	// Over-limit attempt changes nothing.
	_, err = card.Charge(decimal.NewFromInt(-900), "Purchase", domain.CategoryShopping, "Springfield", "2023-01-14T11:00:00")
	require.Error(t, err)

	require.NoError(t, card.PayBill("2023-01-15T00:00:00"))

	assert.True(t, card.CurrentSpend.IsZero())
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(800)))
	require.NotNil(t, card.LastBillDate)
	assert.Equal(t, "2023-01-15T00:00:00", *card.LastBillDate)

	// One card record for the charge, one account record for the bill.
	assert.Len(t, ledger.cardTxns, 1)
	require.Len(t, ledger.accountTxns, 1)
	bill := ledger.accountTxns[0]
	assert.True(t, bill.Amount.Equal(decimal.NewFromInt(-200)))
	assert.Equal(t, domain.CategoryBills, bill.Category)
	assert.Equal(t, domain.TransactionTypeDebit, bill.Type)
}

func TestPayBillNoOpWithZeroSpend(t *testing.T) {
	ledger := NewLedger(memory.New())
	account := testAccount(ledger, decimal.NewFromInt(1000))
	card := testCard(account, decimal.NewFromInt(1000), decimal.Zero)

	require.NoError(t, card.PayBill("2023-01-15T00:00:00"))

	assert.Equal(t, 0, ledger.Pending())
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(1000)))
	assert.Nil(t, card.LastBillDate)
}

func TestLedgerFlushPersistsAndClears(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ledger := NewLedger(store)
	account := testAccount(ledger, decimal.Zero)

	require.NoError(t, account.Post(decimal.NewFromInt(10), "Credit", domain.CategoryMisc, "Online", "2023-01-14T10:00:00", "", nil))
	require.Equal(t, 1, ledger.Pending())

	require.NoError(t, ledger.Flush(ctx))
	assert.Equal(t, 0, ledger.Pending())

	txns, total, err := store.AccountTransactions(ctx, account.AccountID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, txns, 1)
}
