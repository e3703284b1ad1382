// Package memory provides an in-memory Repository implementation. It backs
// unit tests and throwaway demo runs; nothing survives the process.
package memory

import (
	"context"
	"sync"
	"time"

	"bankgen/internal/domain"
	"bankgen/internal/repository"
	"bankgen/internal/util"
)

// Store is an in-memory repository.
type Store struct {
	mu sync.Mutex

	config      domain.Configuration
	metadata    domain.Metadata
	users       []domain.User
	accounts    []domain.Account
	cards       []domain.Card
	accountTxns []domain.AccountTransaction
	cardTxns    []domain.CardTransaction

	ids *repository.IDGenerator
}

// New returns an empty store with default configuration and metadata
// anchored at the current wall-clock date.
func New() *Store {
	return &Store{
		config:   domain.DefaultConfiguration(),
		metadata: domain.NewMetadata(time.Now().Truncate(24 * time.Hour)),
		ids:      repository.NewIDGenerator(),
	}
}

// SetMetadata overrides the stored metadata. Intended for tests and seeding.
func (s *Store) SetMetadata(meta domain.Metadata) {
	s.mu.Lock()
	s.metadata = meta
	s.mu.Unlock()
}

// SetConfig overrides the stored configuration.
func (s *Store) SetConfig(cfg domain.Configuration) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

func (s *Store) LoadConfig(ctx context.Context) (domain.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config, nil
}

func (s *Store) LoadMetadata(ctx context.Context) (domain.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata, nil
}

func (s *Store) SaveMetadata(ctx context.Context, meta domain.Metadata) error {
	s.mu.Lock()
	s.metadata = meta
	s.mu.Unlock()
	return nil
}

func (s *Store) AccountsBatch(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset >= len(s.accounts) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.accounts) {
		end = len(s.accounts)
	}
	out := make([]domain.Account, end-offset)
	copy(out, s.accounts[offset:end])
	return out, nil
}

func (s *Store) AllAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Account, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

func (s *Store) AccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].AccountID == accountID {
			acc := s.accounts[i]
			return &acc, nil
		}
	}
	return nil, util.ErrNotFound
}

func (s *Store) CardsBatch(ctx context.Context, accountIDs []string) (map[string][]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]bool, len(accountIDs))
	out := make(map[string][]domain.Card, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = true
		out[id] = nil
	}
	for _, c := range s.cards {
		if wanted[c.AccountID] {
			out[c.AccountID] = append(out[c.AccountID], c)
		}
	}
	return out, nil
}

func (s *Store) UserCityMap(ctx context.Context, userIDs []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	out := make(map[string]string, len(userIDs))
	for _, u := range s.users {
		if wanted[u.UserID] {
			out[u.UserID] = u.City
		}
	}
	return out, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].Username == username {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, util.ErrNotFound
}

func (s *Store) SaveTransactions(ctx context.Context, accountTxns []domain.AccountTransaction, cardTxns []domain.CardTransaction) error {
	s.mu.Lock()
	s.accountTxns = append(s.accountTxns, accountTxns...)
	s.cardTxns = append(s.cardTxns, cardTxns...)
	s.mu.Unlock()
	return nil
}

func (s *Store) AccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.AccountTransaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []domain.AccountTransaction
	for _, t := range s.accountTxns {
		if t.AccountID == accountID {
			matched = append(matched, t)
		}
	}
	total := int64(len(matched))
	return page(matched, limit, offset), total, nil
}

func (s *Store) CardTransactions(ctx context.Context, cardID string, limit, offset int) ([]domain.CardTransaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []domain.CardTransaction
	for _, t := range s.cardTxns {
		if t.CardID == cardID {
			matched = append(matched, t)
		}
	}
	total := int64(len(matched))
	return page(matched, limit, offset), total, nil
}

func (s *Store) LoadEntities(ctx context.Context) (repository.World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := repository.World{
		Users:    make([]domain.User, len(s.users)),
		Accounts: make([]domain.Account, len(s.accounts)),
		Cards:    make([]domain.Card, len(s.cards)),
	}
	copy(w.Users, s.users)
	copy(w.Accounts, s.accounts)
	copy(w.Cards, s.cards)
	return w, nil
}

func (s *Store) SaveEntities(ctx context.Context, world repository.World) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = upsert(s.users, world.Users, func(u domain.User) string { return u.UserID })
	s.accounts = upsert(s.accounts, world.Accounts, func(a domain.Account) string { return a.AccountID })
	s.cards = upsert(s.cards, world.Cards, func(c domain.Card) string { return c.CardID })
	return nil
}

func (s *Store) GenerateID(kind repository.IDKind) (string, error) {
	return s.ids.Next(kind), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func upsert[T any](existing, incoming []T, key func(T) string) []T {
	index := make(map[string]int, len(existing))
	for i, item := range existing {
		index[key(item)] = i
	}
	for _, item := range incoming {
		if i, ok := index[key(item)]; ok {
			existing[i] = item
		} else {
			index[key(item)] = len(existing)
			existing = append(existing, item)
		}
	}
	return existing
}
