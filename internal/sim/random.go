package sim

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// pickWeightedCategory selects a transaction category using the configured
// weights. Keys are walked in sorted order so a seeded run is reproducible.
func (e *Engine) pickWeightedCategory() string {
	categories := e.cfg.Probabilities.Categories
	names := make([]string, 0, len(categories))
	var total float64
	for name, w := range categories {
		names = append(names, name)
		total += w
	}
	sort.Strings(names)

	r := e.rng.Float64() * total
	for _, name := range names {
		r -= categories[name]
		if r < 0 {
			return name
		}
	}
	return names[len(names)-1]
}

// pickLocation returns the user's home city with the configured chance,
// otherwise a random city simulating travel or online purchases.
func (e *Engine) pickLocation(homeCity string) string {
	if e.rng.Float64() < e.cfg.Probabilities.HomeLocationChance {
		return homeCity
	}
	return e.faker.City()
}

// consistentEmployer derives a stable employer name from the user ID: the
// same user keeps the same employer across runs and re-simulations, which
// keeps payroll narratives coherent in demo data.
func consistentEmployer(userID string) string {
	seed, ok := parseIDSeed(userID)
	if !ok {
		h := fnv.New64a()
		h.Write([]byte(userID))
		seed = int64(h.Sum64())
	}
	f := gofakeit.New(uint64(seed))
	return f.Company() + " " + f.CompanySuffix()
}

// parseIDSeed extracts the numeric timestamp segment of a generated ID.
// The boolean result distinguishes malformed legacy IDs (which fall back to
// hashing) from well-formed ones.
func parseIDSeed(id string) (int64, bool) {
	parts := strings.Split(id, "_")
	if len(parts) < 2 {
		return 0, false
	}
	n, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
