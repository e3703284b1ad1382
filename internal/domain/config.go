package domain

import (
	"github.com/shopspring/decimal"
)

// Configuration holds the static, versionable simulation parameters. It is
// pure data: loaded through the repository and persisted alongside the
// generated world.
type Configuration struct {
	Probabilities ProbabilityConfig `json:"probabilities"`
	Financial     FinancialConfig   `json:"financial"`
	Time          TimeConfig        `json:"time"`
	Behavior      BehaviorConfig    `json:"behavior"`
}

// ProbabilityConfig drives location and category randomness.
type ProbabilityConfig struct {
	HomeLocationChance float64            `json:"home_location_chance"`
	Categories         map[string]float64 `json:"categories"`
}

// FinancialConfig bounds the randomized financial defaults.
type FinancialConfig struct {
	InitialBalanceRange      [2]float64      `json:"initial_balance_range"`
	SalaryRange              [2]int          `json:"salary_range"`
	DefaultCreditLimit       decimal.Decimal `json:"default_credit_limit"`
	ManualTransactionDefault decimal.Decimal `json:"manual_transaction_default"`
	TransferDefaultAmount    decimal.Decimal `json:"transfer_default_amount"`
}

// TimeConfig drives calendar-based events.
type TimeConfig struct {
	PayrollDays         []int `json:"payroll_days"`
	BillingCycleOptions []int `json:"billing_cycle_options"`
	CardExpiryYears     int   `json:"card_expiry_years"`
}

// BehaviorConfig maps spending profile names to their distributions.
type BehaviorConfig struct {
	SpendingProfiles map[SpendingProfile]SpendingProfileParams `json:"spending_profiles"`
}

// SpendingProfileParams parameterizes one spending profile. Prob is the
// PER-HOUR probability of a transaction; amounts are drawn from
// Normal(Mean, Std) clamped to [Min, Max].
type SpendingProfileParams struct {
	Prob float64 `json:"prob"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Profile returns the parameters for the named spending profile, falling
// back to AVERAGE when the name is unknown.
func (c *Configuration) Profile(name SpendingProfile) (SpendingProfileParams, bool) {
	if p, ok := c.Behavior.SpendingProfiles[name]; ok {
		return p, true
	}
	return c.Behavior.SpendingProfiles[ProfileAverage], false
}

// DefaultConfiguration returns the built-in simulation parameters used when
// a store carries no configuration of its own.
func DefaultConfiguration() Configuration {
	return Configuration{
		Probabilities: ProbabilityConfig{
			HomeLocationChance: 0.90,
			Categories: map[string]float64{
				CategoryFoodDining:     0.30,
				CategoryShopping:       0.20,
				CategoryTransport:      0.15,
				CategoryEntertainment:  0.10,
				CategoryHealthWellness: 0.10,
				CategoryOther:          0.05,
				CategoryUtilities:      0.10,
			},
		},
		Financial: FinancialConfig{
			InitialBalanceRange:      [2]float64{1000, 5000},
			SalaryRange:              [2]int{3000, 9000},
			DefaultCreditLimit:       decimal.NewFromInt(5000),
			ManualTransactionDefault: decimal.NewFromFloat(-10.00),
			TransferDefaultAmount:    decimal.NewFromFloat(50.00),
		},
		Time: TimeConfig{
			PayrollDays:         []int{1, 15},
			BillingCycleOptions: []int{1, 10, 15},
			CardExpiryYears:     3,
		},
		Behavior: BehaviorConfig{
			SpendingProfiles: map[SpendingProfile]SpendingProfileParams{
				ProfileFrugal:  {Prob: 0.01, Mean: 15.00, Std: 5.00, Min: 2.00, Max: 60.00},
				ProfileAverage: {Prob: 0.05, Mean: 45.00, Std: 20.00, Min: 5.00, Max: 200.00},
				ProfileSpender: {Prob: 0.15, Mean: 120.00, Std: 80.00, Min: 10.00, Max: 800.00},
			},
		},
	}
}
