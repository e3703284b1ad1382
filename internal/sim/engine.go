// Package sim implements the banking simulation engine: it turns a
// configured population of users, accounts and cards into a chronologically
// consistent transaction history by advancing a virtual clock and applying
// payroll, spending and billing rules.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"bankgen/internal/domain"
	"bankgen/internal/repository"
)

// DefaultBatchSize bounds how many accounts are hydrated at once during a
// simulation run.
const DefaultBatchSize = 100

// Engine is the simulation engine. It owns an in-memory cache of entities
// for creation and manual operations, a ledger buffer for generated
// transactions, and all sources of randomness.
//
// A single mutex serializes runs and mutating operations: at most one
// simulation run may be active against a given store at a time, and the
// engine enforces that within one process.
type Engine struct {
	mu sync.Mutex

	repo      repository.Repository
	log       *slog.Logger
	rng       *rand.Rand
	faker     *gofakeit.Faker
	batchSize int

	cfg  domain.Configuration
	meta domain.Metadata

	users    []*domain.User
	accounts []*Account
	cards    []*Card
	ledger   *Ledger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source used for all probabilistic draws.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger injects the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithBatchSize overrides the account page size used by Run.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// New builds an engine on the given repository, loading configuration and
// metadata up front. All collaborators are explicit parameters; there is no
// process-wide singleton state.
func New(ctx context.Context, repo repository.Repository, opts ...Option) (*Engine, error) {
	e := &Engine{
		repo:      repo,
		log:       slog.Default(),
		batchSize: DefaultBatchSize,
		ledger:    NewLedger(repo),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.faker = gofakeit.New(uint64(e.rng.Int63()))

	cfg, err := repo.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("sim: load config: %w", err)
	}
	e.cfg = cfg

	meta, err := repo.LoadMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("sim: load metadata: %w", err)
	}
	e.meta = meta

	return e, nil
}

// Config returns the loaded simulation configuration.
func (e *Engine) Config() domain.Configuration {
	return e.cfg
}

// CurrentDate returns the simulation's current timestamp string.
func (e *Engine) CurrentDate() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta.CurrentDate
}

// LoadWorld hydrates the full entity state from the repository into the
// in-memory cache. Accounts whose owner is missing, and cards whose account
// is missing, are silently excluded rather than aborting the load.
func (e *Engine) LoadWorld(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	meta, err := e.repo.LoadMetadata(ctx)
	if err != nil {
		return fmt.Errorf("sim: reload metadata: %w", err)
	}
	e.meta = meta

	world, err := e.repo.LoadEntities(ctx)
	if err != nil {
		return fmt.Errorf("sim: load entities: %w", err)
	}

	e.users = make([]*domain.User, 0, len(world.Users))
	for i := range world.Users {
		u := world.Users[i]
		e.users = append(e.users, &u)
	}

	e.accounts = make([]*Account, 0, len(world.Accounts))
	for i := range world.Accounts {
		rec := world.Accounts[i]
		owner := e.findUser(rec.UserID)
		if owner == nil {
			e.log.Warn("skipping account with missing owner", "account_id", rec.AccountID, "user_id", rec.UserID)
			continue
		}
		e.accounts = append(e.accounts, &Account{Account: rec, Owner: owner, ledger: e.ledger})
	}

	e.cards = make([]*Card, 0, len(world.Cards))
	for i := range world.Cards {
		rec := world.Cards[i]
		account := e.findAccount(rec.AccountID)
		if account == nil {
			e.log.Warn("skipping card with missing account", "card_id", rec.CardID, "account_id", rec.AccountID)
			continue
		}
		card := &Card{Card: rec, Account: account, ledger: e.ledger}
		account.Cards = append(account.Cards, card)
		e.cards = append(e.cards, card)
	}
	return nil
}

// SaveWorld persists the in-memory entity cache (upsert).
func (e *Engine) SaveWorld(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveWorldLocked(ctx)
}

func (e *Engine) saveWorldLocked(ctx context.Context) error {
	world := repository.World{
		Users:    make([]domain.User, 0, len(e.users)),
		Accounts: make([]domain.Account, 0, len(e.accounts)),
		Cards:    make([]domain.Card, 0, len(e.cards)),
	}
	for _, u := range e.users {
		world.Users = append(world.Users, *u)
	}
	for _, a := range e.accounts {
		world.Accounts = append(world.Accounts, a.Account)
	}
	for _, c := range e.cards {
		world.Cards = append(world.Cards, c.Card)
	}
	if err := e.repo.SaveEntities(ctx, world); err != nil {
		return fmt.Errorf("sim: save world: %w", err)
	}
	if err := e.repo.SaveMetadata(ctx, e.meta); err != nil {
		return fmt.Errorf("sim: save metadata: %w", err)
	}
	return nil
}

// Flush persists all buffered ledger records.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Flush(ctx)
}

// Lookups hit the in-memory cache only; they are not persistence-layer
// existence checks.

func (e *Engine) findUser(userID string) *domain.User {
	for _, u := range e.users {
		if u.UserID == userID {
			return u
		}
	}
	return nil
}

func (e *Engine) findAccount(accountID string) *Account {
	for _, a := range e.accounts {
		if a.AccountID == accountID {
			return a
		}
	}
	return nil
}

func (e *Engine) findCard(cardID string) *Card {
	for _, c := range e.cards {
		if c.CardID == cardID {
			return c
		}
	}
	return nil
}
