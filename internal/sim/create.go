package sim

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"bankgen/internal/domain"
	"bankgen/internal/repository"
	"bankgen/internal/util"
)

// defaultPassword seeds every generated user's credential; the hash is
// opaque to the rest of the system.
const defaultPassword = "password123"

// UserOverrides lets callers replace generated user defaults. Overrides
// always win over generated values.
type UserOverrides struct {
	Username  *string
	FirstName *string
	LastName  *string
	Email     *string
	City      *string
	CreatedAt *string
	Settings  domain.SettingsMap
}

// AccountOverrides lets callers replace generated account defaults.
type AccountOverrides struct {
	Type         *domain.AccountType
	Currency     *string
	Balance      *decimal.Decimal
	SalaryAmount *decimal.Decimal
	Status       *domain.AccountStatus
}

// CardOverrides lets callers replace generated card defaults.
type CardOverrides struct {
	MaskedNumber    *string
	Status          *domain.CardStatus
	Limit           *decimal.Decimal
	BillingDay      *int
	SpendingProfile *domain.SpendingProfile
	CurrentSpend    *decimal.Decimal
	IssueDate       *string
	ExpiryDate      *string
}

// CreateUser generates a new user with plausible fake identity data and
// appends it to the in-memory cache. The caller is responsible for
// persisting the world afterwards.
func (e *Engine) CreateUser(ctx context.Context, overrides *UserOverrides) (*domain.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	uid, err := e.repo.GenerateID(repository.IDUser)
	if err != nil {
		return nil, fmt.Errorf("sim: generate user id: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("sim: hash password: %w", err)
	}

	username := "user" + uid
	if parts := strings.Split(uid, "_"); len(parts) > 1 {
		username = "user" + parts[1]
	}

	user := &domain.User{
		UserID:       uid,
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    e.faker.FirstName(),
		LastName:     e.faker.LastName(),
		Email:        e.faker.Email(),
		City:         e.faker.City(),
		CreatedAt:    e.meta.CurrentDate,
		Settings:     domain.SettingsMap{"theme": "light", "notifications": true},
	}

	if overrides != nil {
		if overrides.Username != nil {
			user.Username = *overrides.Username
		}
		if overrides.FirstName != nil {
			user.FirstName = *overrides.FirstName
		}
		if overrides.LastName != nil {
			user.LastName = *overrides.LastName
		}
		if overrides.Email != nil {
			user.Email = *overrides.Email
		}
		if overrides.City != nil {
			user.City = *overrides.City
		}
		if overrides.CreatedAt != nil {
			user.CreatedAt = *overrides.CreatedAt
		}
		if overrides.Settings != nil {
			user.Settings = overrides.Settings
		}
	}

	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("sim: create user: %w", err)
	}

	e.users = append(e.users, user)
	return user, nil
}

// CreateAccount opens a CHECKING account for an existing user. The parent
// lookup hits the currently loaded cache only; a missing user is a soft
// failure (ErrUserNotFound), not a panic.
func (e *Engine) CreateAccount(ctx context.Context, userID string, overrides *AccountOverrides) (*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	owner := e.findUser(userID)
	if owner == nil {
		e.log.Warn("create account: user not in loaded set", "user_id", userID)
		return nil, util.ErrUserNotFound
	}

	aid, err := e.repo.GenerateID(repository.IDAccount)
	if err != nil {
		return nil, fmt.Errorf("sim: generate account id: %w", err)
	}

	fin := e.cfg.Financial
	balance := decimal.NewFromFloat(
		fin.InitialBalanceRange[0] + e.rng.Float64()*(fin.InitialBalanceRange[1]-fin.InitialBalanceRange[0]),
	).Round(2)

	// Salaries land on round hundreds within the configured range.
	salary := decimal.NewFromInt(int64(fin.SalaryRange[0]))
	if steps := (fin.SalaryRange[1] - fin.SalaryRange[0]) / 100; steps > 0 {
		salary = decimal.NewFromInt(int64(fin.SalaryRange[0] + 100*e.rng.Intn(steps+1)))
	}

	account := &Account{
		Account: domain.Account{
			AccountID:    aid,
			UserID:       userID,
			Type:         domain.AccountTypeChecking,
			Currency:     "USD",
			Balance:      balance,
			SalaryAmount: salary,
			Status:       domain.AccountStatusActive,
		},
		Owner:  owner,
		ledger: e.ledger,
	}

	if overrides != nil {
		if overrides.Type != nil {
			account.Type = *overrides.Type
		}
		if overrides.Currency != nil {
			account.Currency = *overrides.Currency
		}
		if overrides.Balance != nil {
			account.Balance = *overrides.Balance
		}
		if overrides.SalaryAmount != nil {
			account.SalaryAmount = *overrides.SalaryAmount
		}
		if overrides.Status != nil {
			account.Status = *overrides.Status
		}
	}

	if err := account.Account.Validate(); err != nil {
		return nil, fmt.Errorf("sim: create account: %w", err)
	}

	e.accounts = append(e.accounts, account)
	return account, nil
}

// CreateCard issues a credit card linked to an existing account. The parent
// lookup hits the currently loaded cache only; a missing account is a soft
// failure (ErrAccountNotFound).
func (e *Engine) CreateCard(ctx context.Context, accountID string, overrides *CardOverrides) (*Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	account := e.findAccount(accountID)
	if account == nil {
		e.log.Warn("create card: account not in loaded set", "account_id", accountID)
		return nil, util.ErrAccountNotFound
	}

	cid, err := e.repo.GenerateID(repository.IDCard)
	if err != nil {
		return nil, fmt.Errorf("sim: generate card id: %w", err)
	}

	issueDate, err := domain.ParseSimTime(e.meta.CurrentDate)
	if err != nil {
		return nil, fmt.Errorf("sim: create card: %w", err)
	}
	expiry := issueDate.AddDate(0, 0, 365*e.cfg.Time.CardExpiryYears)

	profiles := domain.SpendingProfiles()
	billingOptions := e.cfg.Time.BillingCycleOptions

	card := &Card{
		Card: domain.Card{
			CardID:          cid,
			AccountID:       accountID,
			MaskedNumber:    fmt.Sprintf("****-****-****-%04d", 1000+e.rng.Intn(9000)),
			Status:          domain.CardStatusActive,
			Limit:           e.cfg.Financial.DefaultCreditLimit,
			BillingDay:      billingOptions[e.rng.Intn(len(billingOptions))],
			SpendingProfile: profiles[e.rng.Intn(len(profiles))],
			CurrentSpend:    decimal.Zero,
			IssueDate:       issueDate.Format(domain.SimDateLayout),
			ExpiryDate:      expiry.Format(domain.SimDateLayout),
			LastBillDate:    nil,
		},
		Account: account,
		ledger:  e.ledger,
	}

	if overrides != nil {
		if overrides.MaskedNumber != nil {
			card.MaskedNumber = *overrides.MaskedNumber
		}
		if overrides.Status != nil {
			card.Status = *overrides.Status
		}
		if overrides.Limit != nil {
			card.Limit = *overrides.Limit
		}
		if overrides.BillingDay != nil {
			card.BillingDay = *overrides.BillingDay
		}
		if overrides.SpendingProfile != nil {
			card.SpendingProfile = *overrides.SpendingProfile
		}
		if overrides.CurrentSpend != nil {
			card.CurrentSpend = *overrides.CurrentSpend
		}
		if overrides.IssueDate != nil {
			card.IssueDate = *overrides.IssueDate
		}
		if overrides.ExpiryDate != nil {
			card.ExpiryDate = *overrides.ExpiryDate
		}
	}

	if err := card.Card.Validate(); err != nil {
		return nil, fmt.Errorf("sim: create card: %w", err)
	}

	account.Cards = append(account.Cards, card)
	e.cards = append(e.cards, card)
	return card, nil
}
