// Package jsonfile provides a flat-file Repository implementation. Each
// collection lives in one JSON document under the data directory; writes go
// through a temp file and rename so a crash mid-write cannot corrupt the
// previous state. Suited to development and small demo worlds; the Postgres
// implementation is the one for anything larger.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bankgen/internal/domain"
	"bankgen/internal/repository"
	"bankgen/internal/util"
)

const (
	configFile      = "bank_configuration.json"
	metadataFile    = "bank_metadata.json"
	usersFile       = "users.json"
	accountsFile    = "accounts.json"
	cardsFile       = "cards.json"
	accountTxnsFile = "account_transactions.json"
	cardTxnsFile    = "card_transactions.json"
)

// Store persists the world as JSON files in a single directory.
type Store struct {
	mu      sync.Mutex
	dataDir string
	ids     *repository.IDGenerator
}

// New opens (or creates) a JSON data directory and primes the ID counters
// from whatever the directory already holds.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: create data dir: %w", err)
	}
	s := &Store{dataDir: dataDir, ids: repository.NewIDGenerator()}
	if err := s.primeIDCounters(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) primeIDCounters() error {
	var users []domain.User
	if err := s.load(usersFile, &users); err != nil {
		return err
	}
	for _, u := range users {
		s.ids.Observe(repository.IDUser, u.UserID)
	}
	var accounts []domain.Account
	if err := s.load(accountsFile, &accounts); err != nil {
		return err
	}
	for _, a := range accounts {
		s.ids.Observe(repository.IDAccount, a.AccountID)
	}
	var cards []domain.Card
	if err := s.load(cardsFile, &cards); err != nil {
		return err
	}
	for _, c := range cards {
		s.ids.Observe(repository.IDCard, c.CardID)
	}
	var accountTxns []domain.AccountTransaction
	if err := s.load(accountTxnsFile, &accountTxns); err != nil {
		return err
	}
	for _, t := range accountTxns {
		s.ids.Observe(repository.IDAccountTxn, t.TransactionID)
	}
	var cardTxns []domain.CardTransaction
	if err := s.load(cardTxnsFile, &cardTxns); err != nil {
		return err
	}
	for _, t := range cardTxns {
		s.ids.Observe(repository.IDCardTransaction, t.TransactionID)
	}
	return nil
}

// load decodes filename into dest, leaving dest untouched when the file
// does not exist yet.
func (s *Store) load(filename string, dest any) error {
	path := filepath.Join(s.dataDir, filename)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jsonfile: open %s: %w", filename, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(dest); err != nil {
		return fmt.Errorf("jsonfile: decode %s: %w", filename, err)
	}
	return nil
}

// save writes data atomically: temp file first, then rename over the
// original.
func (s *Store) save(filename string, data any) error {
	path := filepath.Join(s.dataDir, filename)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("jsonfile: create %s: %w", filename, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		return fmt.Errorf("jsonfile: encode %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("jsonfile: close %s: %w", filename, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("jsonfile: replace %s: %w", filename, err)
	}
	return nil
}

func (s *Store) LoadConfig(ctx context.Context) (domain.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.dataDir, configFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := domain.DefaultConfiguration()
		if err := s.save(configFile, cfg); err != nil {
			return domain.Configuration{}, err
		}
		return cfg, nil
	}
	var cfg domain.Configuration
	if err := s.load(configFile, &cfg); err != nil {
		return domain.Configuration{}, err
	}
	return cfg, nil
}

func (s *Store) LoadMetadata(ctx context.Context) (domain.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta := domain.Metadata{CurrentDate: time.Now().Format(domain.SimDateLayout)}
	if err := s.load(metadataFile, &meta); err != nil {
		return domain.Metadata{}, err
	}
	return meta, nil
}

func (s *Store) SaveMetadata(ctx context.Context, meta domain.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(metadataFile, meta)
}

func (s *Store) AccountsBatch(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	accounts, err := s.AllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(accounts) {
		return nil, nil
	}
	end := offset + limit
	if end > len(accounts) {
		end = len(accounts)
	}
	return accounts[offset:end], nil
}

func (s *Store) AllAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var accounts []domain.Account
	if err := s.load(accountsFile, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Store) AccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	accounts, err := s.AllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].AccountID == accountID {
			return &accounts[i], nil
		}
	}
	return nil, util.ErrNotFound
}

func (s *Store) CardsBatch(ctx context.Context, accountIDs []string) (map[string][]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cards []domain.Card
	if err := s.load(cardsFile, &cards); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(accountIDs))
	out := make(map[string][]domain.Card, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = true
		out[id] = nil
	}
	for _, c := range cards {
		if wanted[c.AccountID] {
			out[c.AccountID] = append(out[c.AccountID], c)
		}
	}
	return out, nil
}

func (s *Store) UserCityMap(ctx context.Context, userIDs []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []domain.User
	if err := s.load(usersFile, &users); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	out := make(map[string]string, len(userIDs))
	for _, u := range users {
		if wanted[u.UserID] {
			out[u.UserID] = u.City
		}
	}
	return out, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []domain.User
	if err := s.load(usersFile, &users); err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, util.ErrNotFound
}

func (s *Store) SaveTransactions(ctx context.Context, accountTxns []domain.AccountTransaction, cardTxns []domain.CardTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(accountTxns) > 0 {
		var existing []domain.AccountTransaction
		if err := s.load(accountTxnsFile, &existing); err != nil {
			return err
		}
		existing = append(existing, accountTxns...)
		if err := s.save(accountTxnsFile, existing); err != nil {
			return err
		}
	}
	if len(cardTxns) > 0 {
		var existing []domain.CardTransaction
		if err := s.load(cardTxnsFile, &existing); err != nil {
			return err
		}
		existing = append(existing, cardTxns...)
		if err := s.save(cardTxnsFile, existing); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) AccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.AccountTransaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.AccountTransaction
	if err := s.load(accountTxnsFile, &all); err != nil {
		return nil, 0, err
	}
	var matched []domain.AccountTransaction
	for _, t := range all {
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
	var all []domain.CardTransaction
	if err := s.load(cardTxnsFile, &all); err != nil {
		return nil, 0, err
	}
	var matched []domain.CardTransaction
	for _, t := range all {
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
	var w repository.World
	if err := s.load(usersFile, &w.Users); err != nil {
		return repository.World{}, err
	}
	if err := s.load(accountsFile, &w.Accounts); err != nil {
		return repository.World{}, err
	}
	if err := s.load(cardsFile, &w.Cards); err != nil {
		return repository.World{}, err
	}
	for i := range w.Users {
		if err := w.Users[i].Validate(); err != nil {
			return repository.World{}, fmt.Errorf("jsonfile: %s: %w", usersFile, err)
		}
	}
	for i := range w.Accounts {
		if err := w.Accounts[i].Validate(); err != nil {
			return repository.World{}, fmt.Errorf("jsonfile: %s: %w", accountsFile, err)
		}
	}
	for i := range w.Cards {
		if err := w.Cards[i].Validate(); err != nil {
			return repository.World{}, fmt.Errorf("jsonfile: %s: %w", cardsFile, err)
		}
	}
	return w, nil
}

func (s *Store) SaveEntities(ctx context.Context, world repository.World) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var existing repository.World
	if err := s.load(usersFile, &existing.Users); err != nil {
		return err
	}
	if err := s.load(accountsFile, &existing.Accounts); err != nil {
		return err
	}
	if err := s.load(cardsFile, &existing.Cards); err != nil {
		return err
	}
	users := upsert(existing.Users, world.Users, func(u domain.User) string { return u.UserID })
	accounts := upsert(existing.Accounts, world.Accounts, func(a domain.Account) string { return a.AccountID })
	cards := upsert(existing.Cards, world.Cards, func(c domain.Card) string { return c.CardID })
	if err := s.save(usersFile, users); err != nil {
		return err
	}
	if err := s.save(accountsFile, accounts); err != nil {
		return err
	}
	return s.save(cardsFile, cards)
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
