// Package postgres provides the SQL Repository implementation backed by
// PostgreSQL via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"bankgen/internal/domain"
	"bankgen/internal/repository"
	"bankgen/internal/util"
)

// Store implements repository.Repository on a PostgreSQL database.
type Store struct {
	db  *sqlx.DB
	ids *repository.IDGenerator
}

// New wraps an open connection pool. ID counters start at zero; InitSchema
// primes them from existing rows so a restart never reissues an ID.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, ids: repository.NewIDGenerator()}
}

// InitSchema creates the banking tables when they do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id       TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL DEFAULT '',
	settings      JSONB NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS accounts (
	account_id    TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL REFERENCES users(user_id),
	type          TEXT NOT NULL,
	currency      TEXT NOT NULL,
	balance       NUMERIC(20, 4) NOT NULL,
	salary_amount NUMERIC(20, 4) NOT NULL,
	status        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cards (
	card_id          TEXT PRIMARY KEY,
	account_id       TEXT NOT NULL REFERENCES accounts(account_id),
	masked_number    TEXT NOT NULL,
	status           TEXT NOT NULL,
	"limit"          NUMERIC(20, 4) NOT NULL,
	billing_day      INT NOT NULL,
	spending_profile TEXT NOT NULL,
	current_spend    NUMERIC(20, 4) NOT NULL,
	issue_date       TEXT NOT NULL,
	expiry_date      TEXT NOT NULL,
	last_bill_date   TEXT
);
CREATE TABLE IF NOT EXISTS account_transactions (
	transaction_id    TEXT PRIMARY KEY,
	account_id        TEXT NOT NULL REFERENCES accounts(account_id),
	amount            NUMERIC(20, 4) NOT NULL,
	date              TEXT NOT NULL,
	description       TEXT NOT NULL,
	category          TEXT NOT NULL,
	location          TEXT NOT NULL,
	type              TEXT NOT NULL,
	transfer_group_id TEXT
);
CREATE TABLE IF NOT EXISTS card_transactions (
	transaction_id TEXT PRIMARY KEY,
	card_id        TEXT NOT NULL REFERENCES cards(card_id),
	amount         NUMERIC(20, 4) NOT NULL,
	date           TEXT NOT NULL,
	description    TEXT NOT NULL,
	category       TEXT NOT NULL,
	location       TEXT NOT NULL,
	type           TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bank_metadata (
	key   TEXT PRIMARY KEY,
	value JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_account_txns_account ON account_transactions(account_id);
CREATE INDEX IF NOT EXISTS idx_card_txns_card ON card_transactions(card_id);
CREATE INDEX IF NOT EXISTS idx_cards_account ON cards(account_id);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: init schema: %w", err)
	}
	return s.primeIDCounters(ctx)
}

// primeIDCounters replays existing IDs into the generator so counters resume
// above the highest ordinal already stored.
func (s *Store) primeIDCounters(ctx context.Context) error {
	tables := []struct {
		kind  repository.IDKind
		query string
	}{
		{repository.IDUser, `SELECT user_id FROM users`},
		{repository.IDAccount, `SELECT account_id FROM accounts`},
		{repository.IDCard, `SELECT card_id FROM cards`},
		{repository.IDAccountTxn, `SELECT transaction_id FROM account_transactions`},
		{repository.IDCardTransaction, `SELECT transaction_id FROM card_transactions`},
	}
	for _, t := range tables {
		var ids []string
		if err := s.db.SelectContext(ctx, &ids, t.query); err != nil {
			return fmt.Errorf("postgres: prime %s ids: %w", t.kind, err)
		}
		for _, id := range ids {
			s.ids.Observe(t.kind, id)
		}
	}
	return nil
}

// LoadConfig returns the built-in defaults; the SQL backend does not carry
// its own configuration document.
func (s *Store) LoadConfig(ctx context.Context) (domain.Configuration, error) {
	return domain.DefaultConfiguration(), nil
}

func (s *Store) LoadMetadata(ctx context.Context) (domain.Metadata, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT value FROM bank_metadata WHERE key = 'metadata'`)
	if err == sql.ErrNoRows {
		return domain.Metadata{CurrentDate: time.Now().Format(domain.SimDateLayout)}, nil
	}
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("postgres: load metadata: %w", err)
	}
	var meta domain.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return domain.Metadata{}, fmt.Errorf("postgres: decode metadata: %w", err)
	}
	return meta, nil
}

func (s *Store) SaveMetadata(ctx context.Context, meta domain.Metadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("postgres: encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bank_metadata (key, value) VALUES ('metadata', $1)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, raw)
	if err != nil {
		return fmt.Errorf("postgres: save metadata: %w", err)
	}
	return nil
}

const accountColumns = `account_id, user_id, type, currency, balance, salary_amount, status`

func (s *Store) AccountsBatch(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	accounts := []domain.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY account_id LIMIT $1 OFFSET $2`
	if err := s.db.SelectContext(ctx, &accounts, query, limit, offset); err != nil {
		return nil, fmt.Errorf("postgres: accounts batch: %w", err)
	}
	return accounts, nil
}

func (s *Store) AllAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts := []domain.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY account_id`
	if err := s.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("postgres: all accounts: %w", err)
	}
	return accounts, nil
}

func (s *Store) AccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1`
	err := s.db.GetContext(ctx, &account, query, accountID)
	if err == sql.ErrNoRows {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: account %s: %w", accountID, err)
	}
	return &account, nil
}

const cardColumns = `card_id, account_id, masked_number, status, "limit", billing_day, spending_profile, current_spend, issue_date, expiry_date, last_bill_date`

func (s *Store) CardsBatch(ctx context.Context, accountIDs []string) (map[string][]domain.Card, error) {
	out := make(map[string][]domain.Card, len(accountIDs))
	for _, id := range accountIDs {
		out[id] = nil
	}
	if len(accountIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+cardColumns+` FROM cards WHERE account_id IN (?)`, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: cards batch query: %w", err)
	}
	cards := []domain.Card{}
	if err := s.db.SelectContext(ctx, &cards, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("postgres: cards batch: %w", err)
	}
	for _, c := range cards {
		out[c.AccountID] = append(out[c.AccountID], c)
	}
	return out, nil
}

func (s *Store) UserCityMap(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT user_id, city FROM users WHERE user_id IN (?)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: user city query: %w", err)
	}
	rows := []struct {
		UserID string `db:"user_id"`
		City   string `db:"city"`
	}{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("postgres: user city map: %w", err)
	}
	for _, r := range rows {
		out[r.UserID] = r.City
	}
	return out, nil
}

const userColumns = `user_id, username, password_hash, first_name, last_name, email, city, created_at, settings`

func (s *Store) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	err := s.db.GetContext(ctx, &user, query, username)
	if err == sql.ErrNoRows {
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: user %s: %w", username, err)
	}
	return &user, nil
}

func (s *Store) SaveTransactions(ctx context.Context, accountTxns []domain.AccountTransaction, cardTxns []domain.CardTransaction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin save transactions: %w", err)
	}
	defer tx.Rollback()

	for _, t := range accountTxns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO account_transactions
				(transaction_id, account_id, amount, date, description, category, location, type, transfer_group_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			t.TransactionID, t.AccountID, t.Amount, t.Date, t.Description, t.Category, t.Location, t.Type, t.TransferGroupID)
		if err != nil {
			return fmt.Errorf("postgres: insert account txn %s: %w", t.TransactionID, err)
		}
	}
	for _, t := range cardTxns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO card_transactions
				(transaction_id, card_id, amount, date, description, category, location, type)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.TransactionID, t.CardID, t.Amount, t.Date, t.Description, t.Category, t.Location, t.Type)
		if err != nil {
			return fmt.Errorf("postgres: insert card txn %s: %w", t.TransactionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit save transactions: %w", err)
	}
	return nil
}

func (s *Store) AccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.AccountTransaction, int64, error) {
	txns := []domain.AccountTransaction{}
	query := `
		SELECT transaction_id, account_id, amount, date, description, category, location, type, transfer_group_id
		FROM account_transactions WHERE account_id = $1
		ORDER BY date DESC LIMIT $2 OFFSET $3`
	if err := s.db.SelectContext(ctx, &txns, query, accountID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("postgres: account transactions: %w", err)
	}
	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM account_transactions WHERE account_id = $1`, accountID); err != nil {
		return nil, 0, fmt.Errorf("postgres: account transaction count: %w", err)
	}
	return txns, total, nil
}

func (s *Store) CardTransactions(ctx context.Context, cardID string, limit, offset int) ([]domain.CardTransaction, int64, error) {
	txns := []domain.CardTransaction{}
	query := `
		SELECT transaction_id, card_id, amount, date, description, category, location, type
		FROM card_transactions WHERE card_id = $1
		ORDER BY date DESC LIMIT $2 OFFSET $3`
	if err := s.db.SelectContext(ctx, &txns, query, cardID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("postgres: card transactions: %w", err)
	}
	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM card_transactions WHERE card_id = $1`, cardID); err != nil {
		return nil, 0, fmt.Errorf("postgres: card transaction count: %w", err)
	}
	return txns, total, nil
}

func (s *Store) LoadEntities(ctx context.Context) (repository.World, error) {
	var w repository.World
	if err := s.db.SelectContext(ctx, &w.Users, `SELECT `+userColumns+` FROM users ORDER BY user_id`); err != nil {
		return repository.World{}, fmt.Errorf("postgres: load users: %w", err)
	}
	if err := s.db.SelectContext(ctx, &w.Accounts, `SELECT `+accountColumns+` FROM accounts ORDER BY account_id`); err != nil {
		return repository.World{}, fmt.Errorf("postgres: load accounts: %w", err)
	}
	if err := s.db.SelectContext(ctx, &w.Cards, `SELECT `+cardColumns+` FROM cards ORDER BY card_id`); err != nil {
		return repository.World{}, fmt.Errorf("postgres: load cards: %w", err)
	}
	return w, nil
}

func (s *Store) SaveEntities(ctx context.Context, world repository.World) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin save entities: %w", err)
	}
	defer tx.Rollback()

	for _, u := range world.Users {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (user_id) DO UPDATE SET
				username = EXCLUDED.username, password_hash = EXCLUDED.password_hash,
				first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
				email = EXCLUDED.email, city = EXCLUDED.city,
				created_at = EXCLUDED.created_at, settings = EXCLUDED.settings`,
			u.UserID, u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Email, u.City, u.CreatedAt, u.Settings)
		if err != nil {
			return fmt.Errorf("postgres: upsert user %s: %w", u.UserID, err)
		}
	}
	for _, a := range world.Accounts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (`+accountColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (account_id) DO UPDATE SET
				user_id = EXCLUDED.user_id, type = EXCLUDED.type, currency = EXCLUDED.currency,
				balance = EXCLUDED.balance, salary_amount = EXCLUDED.salary_amount, status = EXCLUDED.status`,
			a.AccountID, a.UserID, a.Type, a.Currency, a.Balance, a.SalaryAmount, a.Status)
		if err != nil {
			return fmt.Errorf("postgres: upsert account %s: %w", a.AccountID, err)
		}
	}
	for _, c := range world.Cards {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cards (`+cardColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (card_id) DO UPDATE SET
				account_id = EXCLUDED.account_id, masked_number = EXCLUDED.masked_number,
				status = EXCLUDED.status, "limit" = EXCLUDED."limit",
				billing_day = EXCLUDED.billing_day, spending_profile = EXCLUDED.spending_profile,
				current_spend = EXCLUDED.current_spend, issue_date = EXCLUDED.issue_date,
				expiry_date = EXCLUDED.expiry_date, last_bill_date = EXCLUDED.last_bill_date`,
			c.CardID, c.AccountID, c.MaskedNumber, c.Status, c.Limit, c.BillingDay,
			c.SpendingProfile, c.CurrentSpend, c.IssueDate, c.ExpiryDate, c.LastBillDate)
		if err != nil {
			return fmt.Errorf("postgres: upsert card %s: %w", c.CardID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit save entities: %w", err)
	}
	return nil
}

func (s *Store) GenerateID(kind repository.IDKind) (string, error) {
	return s.ids.Next(kind), nil
}
