package sim

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankgen/internal/domain"
	"bankgen/internal/repository"
	"bankgen/internal/repository/memory"
	"bankgen/internal/util"
)

func newMemoryStoreAt(t *testing.T, date string, cfg domain.Configuration) *memory.Store {
	t.Helper()
	store := memory.New()
	store.SetMetadata(domain.Metadata{CurrentDate: date})
	store.SetConfig(cfg)
	return store
}

func worldWithOrphanAccount() repository.World {
	return repository.World{
		Users: []domain.User{{UserID: "u_1_1", Username: "real", City: "Springfield"}},
		Accounts: []domain.Account{
			{AccountID: "acc_1_1", UserID: "u_1_1", Currency: "USD"},
			{AccountID: "acc_1_2", UserID: "u_gone", Currency: "USD"},
		},
	}
}

// deterministicConfig returns a configuration whose spending profile fires
// on every hourly step and always draws the same amount, so transaction
// counts and totals are exact.
func deterministicConfig(prob float64) domain.Configuration {
	cfg := domain.DefaultConfiguration()
	cfg.Behavior.SpendingProfiles[domain.ProfileAverage] = domain.SpendingProfileParams{
		Prob: prob, Mean: 10, Std: 0, Min: 10, Max: 10,
	}
	return cfg
}

func TestRunRejectsNonPositiveDuration(t *testing.T) {
	store := newMemoryStoreAt(t, "2023-01-14T00:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)

	_, err := engine.Run(context.Background(), Options{})
	assert.True(t, util.IsError(err, util.ErrInvalidInput))

	_, err = engine.Run(context.Background(), Options{Days: -1})
	assert.True(t, util.IsError(err, util.ErrInvalidInput))
}

func TestRunAdvancesClockExactly(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T00:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)

	stats, err := engine.Run(ctx, Options{Days: 2, Hours: 3, Minutes: 30, ProcessOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "2023-01-16T03:30:00", stats.CurrentDate)

	meta, err := store.LoadMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-16T03:30:00", meta.CurrentDate)
}

func TestRunPayrollScenario(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T00:00:00", domain.DefaultConfiguration())
	engine := newTestEngine(t, store, 1)

	_, account, _ := seedAccount(t, engine,
		&AccountOverrides{Balance: decPtr(decimal.Zero), SalaryAmount: decPtr(decimal.NewFromInt(3000))},
		nil,
	)

	stats, err := engine.Run(ctx, Options{Days: 2, ProcessOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "2023-01-16T00:00:00", stats.CurrentDate)

	// Jan 15 is a payroll day; Jan 16 is not. Salary splits across the two
	// configured payroll days.
	txns, total, err := store.AccountTransactions(ctx, account.AccountID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	payroll := txns[0]
	assert.True(t, payroll.Amount.Equal(decimal.NewFromFloat(1500.00)))
	assert.Equal(t, domain.TransactionTypeCredit, payroll.Type)
	assert.Equal(t, domain.CategoryIncome, payroll.Category)
	assert.Equal(t, "Direct Deposit", payroll.Location)
	assert.Contains(t, payroll.Description, "Payroll - ")
	assert.Equal(t, "2023-01-15T00:00:00", payroll.Date)

	stored, err := store.AccountByID(ctx, account.AccountID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromFloat(1500.00)))
}

func TestRunPayrollSameResultRegardlessOfStepPlan(t *testing.T) {
	ctx := context.Background()

	runPlan := func(plans []Options) decimal.Decimal {
		store := newMemoryStoreAt(t, "2023-01-14T12:00:00", domain.DefaultConfiguration())
		engine := newTestEngine(t, store, 1)
		_, account, _ := seedAccount(t, engine,
			&AccountOverrides{Balance: decPtr(decimal.Zero), SalaryAmount: decPtr(decimal.NewFromInt(3000))},
			nil,
		)
		for _, opts := range plans {
			_, err := engine.Run(ctx, opts)
			require.NoError(t, err)
		}
		stored, err := store.AccountByID(ctx, account.AccountID)
		require.NoError(t, err)
		_, total, err := store.AccountTransactions(ctx, account.AccountID, 0, 0)
		require.NoError(t, err)
		require.Equal(t, int64(1), total, "payroll must fire exactly once")
		return stored.Balance
	}

	oneRun := runPlan([]Options{{Days: 1, ProcessOnly: true}})
	twoRuns := runPlan([]Options{{Hours: 12, ProcessOnly: true}, {Hours: 12, ProcessOnly: true}})

	assert.True(t, oneRun.Equal(twoRuns))
	assert.True(t, oneRun.Equal(decimal.NewFromFloat(1500.00)))
}

func TestRunDeterministicSpending(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-03-10T08:00:00", deterministicConfig(1.0))
	engine := newTestEngine(t, store, 1)

	_, account, card := seedAccount(t, engine,
		&AccountOverrides{Balance: decPtr(decimal.NewFromInt(1000))},
		&CardOverrides{
			Limit:           decPtr(decimal.NewFromInt(100000)),
			SpendingProfile: profilePtr(domain.ProfileAverage),
			BillingDay:      intPtr(28),
		},
	)

	stats, err := engine.Run(ctx, Options{Hours: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TransactionsAdded)

	txns, total, err := store.CardTransactions(ctx, card.CardID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	for _, txn := range txns {
		assert.True(t, txn.Amount.Equal(decimal.NewFromInt(-10)))
		assert.Equal(t, domain.TransactionTypeDebit, txn.Type)
	}

	// Spending accrues on the card, not the account.
	storedAccount, err := store.AccountByID(ctx, account.AccountID)
	require.NoError(t, err)
	assert.True(t, storedAccount.Balance.Equal(decimal.NewFromInt(1000)))

	cards, err := store.CardsBatch(ctx, []string{account.AccountID})
	require.NoError(t, err)
	require.Len(t, cards[account.AccountID], 1)
	assert.True(t, cards[account.AccountID][0].CurrentSpend.Equal(decimal.NewFromInt(50)))
}

func TestRunProcessOnlySkipsSpending(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-03-10T08:00:00", deterministicConfig(1.0))
	engine := newTestEngine(t, store, 1)

	_, _, card := seedAccount(t, engine, nil, &CardOverrides{
		SpendingProfile: profilePtr(domain.ProfileAverage),
		BillingDay:      intPtr(28),
	})

	_, err := engine.Run(ctx, Options{Hours: 5, ProcessOnly: true})
	require.NoError(t, err)

	_, total, err := store.CardTransactions(ctx, card.CardID, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRunBillingResetsSpend(t *testing.T) {
	ctx := context.Background()
	cfg := domain.DefaultConfiguration()
	cfg.Time.PayrollDays = []int{28} // keep payroll out of this window
	store := newMemoryStoreAt(t, "2023-01-14T00:00:00", cfg)
	engine := newTestEngine(t, store, 1)

	_, account, _ := seedAccount(t, engine,
		&AccountOverrides{Balance: decPtr(decimal.NewFromInt(1000))},
		&CardOverrides{
			BillingDay:   intPtr(15),
			CurrentSpend: decPtr(decimal.NewFromInt(200)),
			Limit:        decPtr(decimal.NewFromInt(1000)),
		},
	)

	_, err := engine.Run(ctx, Options{Days: 1, ProcessOnly: true})
	require.NoError(t, err)

	txns, total, err := store.AccountTransactions(ctx, account.AccountID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	bill := txns[0]
	assert.True(t, bill.Amount.Equal(decimal.NewFromInt(-200)))
	assert.Equal(t, domain.CategoryBills, bill.Category)
	assert.Equal(t, "2023-01-15T00:00:00", bill.Date)

	cards, err := store.CardsBatch(ctx, []string{account.AccountID})
	require.NoError(t, err)
	updated := cards[account.AccountID][0]
	assert.True(t, updated.CurrentSpend.IsZero())
	require.NotNil(t, updated.LastBillDate)
	assert.Equal(t, "2023-01-15T00:00:00", *updated.LastBillDate)

	stored, err := store.AccountByID(ctx, account.AccountID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(800)))
}

func TestRunBillingDayClampsToMonthEnd(t *testing.T) {
	ctx := context.Background()
	cfg := domain.DefaultConfiguration()
	cfg.Time.PayrollDays = []int{2} // not crossed in this window
	store := newMemoryStoreAt(t, "2023-02-27T00:00:00", cfg)
	engine := newTestEngine(t, store, 1)

	_, account, _ := seedAccount(t, engine,
		&AccountOverrides{Balance: decPtr(decimal.NewFromInt(500))},
		&CardOverrides{
			BillingDay:   intPtr(31),
			CurrentSpend: decPtr(decimal.NewFromInt(100)),
		},
	)

	// Feb 2023 has 28 days; a day-31 cycle bills on Feb 28.
	_, err := engine.Run(ctx, Options{Days: 1, ProcessOnly: true})
	require.NoError(t, err)

	txns, total, err := store.AccountTransactions(ctx, account.AccountID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(-100)))
	assert.Equal(t, "2023-02-28T00:00:00", txns[0].Date)
}

func TestRunBillsBlockedCards(t *testing.T) {
	ctx := context.Background()
	cfg := domain.DefaultConfiguration()
	cfg.Time.PayrollDays = []int{28} // keep payroll out of this window
	store := newMemoryStoreAt(t, "2023-01-14T00:00:00", cfg)
	engine := newTestEngine(t, store, 1)

	_, account, _ := seedAccount(t, engine,
		&AccountOverrides{Balance: decPtr(decimal.NewFromInt(1000))},
		&CardOverrides{
			Status:       cardStatusPtr(domain.CardStatusBlocked),
			BillingDay:   intPtr(15),
			CurrentSpend: decPtr(decimal.NewFromInt(200)),
			Limit:        decPtr(decimal.NewFromInt(1000)),
		},
	)

	_, err := engine.Run(ctx, Options{Days: 1, ProcessOnly: true})
	require.NoError(t, err)

	txns, total, err := store.AccountTransactions(ctx, account.AccountID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(-200)))
	assert.Equal(t, domain.CategoryBills, txns[0].Category)

	cards, err := store.CardsBatch(ctx, []string{account.AccountID})
	require.NoError(t, err)
	assert.True(t, cards[account.AccountID][0].CurrentSpend.IsZero())
}

func TestRunBlockedCardsKeepSpending(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-03-10T08:00:00", deterministicConfig(1.0))
	engine := newTestEngine(t, store, 1)

	_, _, card := seedAccount(t, engine, nil, &CardOverrides{
		SpendingProfile: profilePtr(domain.ProfileAverage),
		Status:          cardStatusPtr(domain.CardStatusBlocked),
		BillingDay:      intPtr(28),
		Limit:           decPtr(decimal.NewFromInt(100000)),
	})

	_, err := engine.Run(ctx, Options{Hours: 5})
	require.NoError(t, err)

	_, total, err := store.CardTransactions(ctx, card.CardID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestRunExcludesAccountsWithMissingOwner(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStoreAt(t, "2023-01-14T00:00:00", domain.DefaultConfiguration())

	require.NoError(t, store.SaveEntities(ctx, worldWithOrphanAccount()))

	engine := newTestEngine(t, store, 1)
	stats, err := engine.Run(ctx, Options{Days: 1, ProcessOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AccountsProcessed)
}

// TestRunStepSizeInvariance checks that expected transaction counts depend
// only on elapsed virtual time, not on how it is sliced: 1000 one-hour
// steps at p=0.5 and 2000 half-hour steps (effective p=0.25) should both
// produce roughly 500 purchases.
func TestRunStepSizeInvariance(t *testing.T) {
	ctx := context.Background()

	countFor := func(seed int64, plans []Options) int64 {
		store := newMemoryStoreAt(t, "2023-01-01T00:00:00", invarianceConfig())
		engine := newTestEngine(t, store, seed)
		_, _, card := seedAccount(t, engine, nil, &CardOverrides{
			Limit:           decPtr(decimal.NewFromInt(1_000_000_000)),
			SpendingProfile: profilePtr(domain.ProfileAverage),
		})
		for _, opts := range plans {
			_, err := engine.Run(ctx, opts)
			require.NoError(t, err)
		}
		_, total, err := store.CardTransactions(ctx, card.CardID, 0, 0)
		require.NoError(t, err)
		return total
	}

	hourly := countFor(11, []Options{{Hours: 1000}})

	halfHour := make([]Options, 2000)
	for i := range halfHour {
		halfHour[i] = Options{Minutes: 30}
	}
	halves := countFor(12, halfHour)

	// Both are ~Binomial with mean 500; [380, 620] is far beyond any
	// plausible seeded deviation.
	assert.InDelta(t, 500, float64(hourly), 120)
	assert.InDelta(t, 500, float64(halves), 120)
}

func invarianceConfig() domain.Configuration {
	return deterministicConfig(0.5)
}

func profilePtr(p domain.SpendingProfile) *domain.SpendingProfile { return &p }
func cardStatusPtr(s domain.CardStatus) *domain.CardStatus        { return &s }
