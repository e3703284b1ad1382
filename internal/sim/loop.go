package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bankgen/internal/domain"
	"bankgen/internal/repository"
	"bankgen/internal/util"
)

// Options controls a simulation run. The advance duration is the sum of the
// three components; ProcessOnly advances the clock and applies scheduled
// events (payroll, billing) without generating random card spending.
type Options struct {
	Days        int
	Hours       int
	Minutes     int
	ProcessOnly bool
}

// Duration returns the total virtual time to advance.
func (o Options) Duration() time.Duration {
	return time.Duration(o.Days)*24*time.Hour +
		time.Duration(o.Hours)*time.Hour +
		time.Duration(o.Minutes)*time.Minute
}

// Stats summarizes a completed run.
type Stats struct {
	AccountsProcessed int    `json:"accounts_processed"`
	TransactionsAdded int    `json:"transactions_added"`
	Batches           int    `json:"batches"`
	CurrentDate       string `json:"current_date"`
}

// Run advances the virtual clock by the requested duration, simulating every
// account in the store in pages of batchSize. Each batch is hydrated,
// stepped through the full time range, and persisted (ledger flush plus
// entity upsert) before the next batch loads, so memory stays bounded by
// the batch size rather than the population.
//
// The clock only moves forward at the very end: a run that fails partway
// leaves CurrentDate untouched and can be retried, at the cost of some
// duplicated history for already-persisted batches.
func (e *Engine) Run(ctx context.Context, opts Options) (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dur := opts.Duration()
	if dur <= 0 {
		return Stats{}, fmt.Errorf("sim: %w: advance duration must be positive", util.ErrInvalidInput)
	}

	start, err := domain.ParseSimTime(e.meta.CurrentDate)
	if err != nil {
		return Stats{}, fmt.Errorf("sim: parse current date: %w", err)
	}
	end := start.Add(dur)

	e.log.Info("simulation run starting",
		"from", domain.FormatSimTime(start),
		"to", domain.FormatSimTime(end),
		"process_only", opts.ProcessOnly,
	)

	e.ledger.Reset()

	var stats Stats
	for offset := 0; ; offset += e.batchSize {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("sim: run canceled: %w", err)
		}

		records, err := e.repo.AccountsBatch(ctx, e.batchSize, offset)
		if err != nil {
			return stats, fmt.Errorf("sim: load account batch at offset %d: %w", offset, err)
		}
		if len(records) == 0 {
			break
		}

		batch, err := e.hydrateBatch(ctx, records)
		if err != nil {
			return stats, err
		}

		added := e.simulateRange(batch, start, end, opts.ProcessOnly)

		if err := e.ledger.Flush(ctx); err != nil {
			return stats, err
		}
		if err := e.saveBatch(ctx, batch); err != nil {
			return stats, err
		}

		stats.AccountsProcessed += len(batch)
		stats.TransactionsAdded += added
		stats.Batches++
		e.log.Debug("batch persisted", "offset", offset, "accounts", len(batch), "transactions", added)
	}

	e.meta.CurrentDate = domain.FormatSimTime(end)
	if err := e.repo.SaveMetadata(ctx, e.meta); err != nil {
		return stats, fmt.Errorf("sim: save metadata: %w", err)
	}
	stats.CurrentDate = e.meta.CurrentDate

	e.log.Info("simulation run finished",
		"accounts", stats.AccountsProcessed,
		"transactions", stats.TransactionsAdded,
		"current_date", stats.CurrentDate,
	)
	return stats, nil
}

// hydrateBatch joins one page of account records with their owners' cities
// and their cards using two batch queries. Accounts whose owner is absent
// from the store are excluded from the run.
func (e *Engine) hydrateBatch(ctx context.Context, records []domain.Account) ([]*Account, error) {
	accountIDs := make([]string, 0, len(records))
	userIDs := make([]string, 0, len(records))
	for _, rec := range records {
		accountIDs = append(accountIDs, rec.AccountID)
		userIDs = append(userIDs, rec.UserID)
	}

	cities, err := e.repo.UserCityMap(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("sim: load user cities: %w", err)
	}
	cardsByAccount, err := e.repo.CardsBatch(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("sim: load card batch: %w", err)
	}

	batch := make([]*Account, 0, len(records))
	for _, rec := range records {
		city, ok := cities[rec.UserID]
		if !ok {
			e.log.Warn("skipping account with missing owner", "account_id", rec.AccountID, "user_id", rec.UserID)
			continue
		}
		account := &Account{
			Account: rec,
			Owner:   &domain.User{UserID: rec.UserID, City: city},
			ledger:  e.ledger,
		}
		for _, c := range cardsByAccount[rec.AccountID] {
			account.Cards = append(account.Cards, &Card{Card: c, Account: account, ledger: e.ledger})
		}
		batch = append(batch, account)
	}
	return batch, nil
}

// simulateRange steps the batch from start to end in one-hour increments
// plus a final remainder step. Event probabilities scale with the step's
// share of an hour, so halving the step size does not change expected
// transaction counts. Returns the number of ledger records produced.
func (e *Engine) simulateRange(batch []*Account, start, end time.Time, processOnly bool) int {
	before := e.ledger.Pending()

	cur := start
	for cur.Before(end) {
		stepEnd := cur.Add(time.Hour)
		if stepEnd.After(end) {
			stepEnd = end
		}
		isNewDay := stepEnd.YearDay() != cur.YearDay() || stepEnd.Year() != cur.Year()
		timeFactor := stepEnd.Sub(cur).Hours()

		for _, account := range batch {
			e.processStep(account, stepEnd, isNewDay, timeFactor, processOnly)
		}
		cur = stepEnd
	}

	return e.ledger.Pending() - before
}

// processStep applies one time step to one account. Order within a step is
// fixed: payroll lands before any card activity, and billing settles last
// so a bill always covers the spend accrued up to and including this step.
func (e *Engine) processStep(account *Account, stepEnd time.Time, isNewDay bool, timeFactor float64, processOnly bool) {
	date := domain.FormatSimTime(stepEnd)

	if isNewDay && containsDay(e.cfg.Time.PayrollDays, stepEnd.Day()) {
		amount := account.SalaryAmount.Div(decimal.NewFromInt(int64(len(e.cfg.Time.PayrollDays)))).Round(2)
		desc := "Payroll - " + consistentEmployer(account.UserID)
		if err := account.Post(amount, desc, domain.CategoryIncome, "Direct Deposit", date, domain.TransactionTypeCredit, nil); err != nil {
			e.log.Error("payroll post failed", "account_id", account.AccountID, "error", err)
		}
	}

	// Card status is informational only; blocked and expired cards keep
	// spending and billing so accrued spend is always settled.
	for _, card := range account.Cards {
		if !processOnly {
			e.maybeSpend(card, date, timeFactor)
		}

		if isNewDay && billingDue(stepEnd, card.BillingDay) {
			if err := card.PayBill(date); err != nil {
				e.log.Error("bill payment failed", "card_id", card.CardID, "error", err)
			}
		}
	}
}

// maybeSpend rolls for one spontaneous card purchase this step, drawing the
// amount from the card profile's normal distribution clamped to its bounds.
func (e *Engine) maybeSpend(card *Card, date string, timeFactor float64) {
	params, _ := e.cfg.Profile(card.SpendingProfile)
	if e.rng.Float64() >= params.Prob*timeFactor {
		return
	}

	raw := e.rng.NormFloat64()*params.Std + params.Mean
	if raw < params.Min {
		raw = params.Min
	}
	if raw > params.Max {
		raw = params.Max
	}
	amount := decimal.NewFromFloat(raw).Round(2)

	category := e.pickWeightedCategory()
	location := e.pickLocation(card.Account.Owner.City)
	desc := "Purchase - " + e.faker.Company()

	_, err := card.Charge(amount.Neg(), desc, category, location, date)
	if err != nil {
		if util.IsError(err, util.ErrCardLimitExceeded) {
			e.log.Debug("charge declined over limit", "card_id", card.CardID, "amount", amount)
			return
		}
		e.log.Error("card charge failed", "card_id", card.CardID, "error", err)
	}
}

// saveBatch upserts the mutated balances and card spend for one batch.
func (e *Engine) saveBatch(ctx context.Context, batch []*Account) error {
	world := repository.World{
		Accounts: make([]domain.Account, 0, len(batch)),
	}
	for _, a := range batch {
		world.Accounts = append(world.Accounts, a.Account)
		for _, c := range a.Cards {
			world.Cards = append(world.Cards, c.Card)
		}
	}
	if err := e.repo.SaveEntities(ctx, world); err != nil {
		return fmt.Errorf("sim: save batch state: %w", err)
	}
	return nil
}

// billingDue reports whether the given day is this card's billing day,
// clamping billing days past the end of short months to the month's last
// day (a day-31 cycle bills on Feb 28).
func billingDue(t time.Time, billingDay int) bool {
	lastDay := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).
		AddDate(0, 1, -1).Day()
	due := billingDay
	if due > lastDay {
		due = lastDay
	}
	return t.Day() == due
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
