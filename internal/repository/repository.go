package repository

import (
	"context"

	"bankgen/internal/domain"
)

// IDKind names an entity namespace for ID generation.
type IDKind string

const (
	IDUser            IDKind = "user"
	IDAccount         IDKind = "account"
	IDCard            IDKind = "card"
	IDAccountTxn      IDKind = "atxn"
	IDCardTransaction IDKind = "ctxn"
)

// Prefix returns the wire prefix for IDs of this kind.
func (k IDKind) Prefix() string {
	switch k {
	case IDUser:
		return "u"
	case IDAccount:
		return "acc"
	case IDCard:
		return "card"
	case IDAccountTxn:
		return "atxn"
	case IDCardTransaction:
		return "ctxn"
	}
	return string(k)
}

// World bundles the full entity state of a store, used by initialization
// and the seeder.
type World struct {
	Users    []domain.User
	Accounts []domain.Account
	Cards    []domain.Card
}

// Repository is the persistence contract consumed by the simulation engine
// and the query API. Implementations: Postgres (sqlx), flat JSON files,
// and in-memory.
//
// SaveTransactions appends and never overwrites; GenerateID must stay
// collision-free across the store's lifetime, including process restarts.
type Repository interface {
	LoadConfig(ctx context.Context) (domain.Configuration, error)
	LoadMetadata(ctx context.Context) (domain.Metadata, error)
	SaveMetadata(ctx context.Context, meta domain.Metadata) error

	AccountsBatch(ctx context.Context, limit, offset int) ([]domain.Account, error)
	AllAccounts(ctx context.Context) ([]domain.Account, error)
	AccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	CardsBatch(ctx context.Context, accountIDs []string) (map[string][]domain.Card, error)
	UserCityMap(ctx context.Context, userIDs []string) (map[string]string, error)
	UserByUsername(ctx context.Context, username string) (*domain.User, error)

	SaveTransactions(ctx context.Context, accountTxns []domain.AccountTransaction, cardTxns []domain.CardTransaction) error
	AccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]domain.AccountTransaction, int64, error)
	CardTransactions(ctx context.Context, cardID string, limit, offset int) ([]domain.CardTransaction, int64, error)

	LoadEntities(ctx context.Context) (World, error)
	SaveEntities(ctx context.Context, world World) error

	GenerateID(kind IDKind) (string, error)
}
