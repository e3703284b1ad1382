// cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"

	"bankgen/internal/config"
	"bankgen/internal/repository"
	"bankgen/internal/repository/jsonfile"
	"bankgen/internal/repository/memory"
	"bankgen/internal/repository/postgres"
	"bankgen/internal/sim"
	"bankgen/internal/util"
	"bankgen/pkg/db"
)

func main() {
	users := flag.Int("users", 10, "number of users to create, each with one account and one card")
	days := flag.Int("days", 0, "days of history to simulate after seeding")
	seed := flag.Int64("seed", 0, "random seed (0 uses the current time)")
	flag.Parse()

	util.InitLogger(slog.LevelInfo)
	logger := util.GetLogger()

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	repo, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "backend", cfg.StorageBackend)
		os.Exit(1)
	}
	defer cleanup()

	opts := []sim.Option{sim.WithLogger(logger)}
	if *seed != 0 {
		opts = append(opts, sim.WithRand(rand.New(rand.NewSource(*seed))))
	}
	engine, err := sim.New(ctx, repo, opts...)
	if err != nil {
		logger.Error("Failed to build simulation engine", "error", err)
		os.Exit(1)
	}
	if err := engine.LoadWorld(ctx); err != nil {
		logger.Error("Failed to load world state", "error", err)
		os.Exit(1)
	}

	for i := 0; i < *users; i++ {
		user, err := engine.CreateUser(ctx, nil)
		if err != nil {
			logger.Error("Failed to create user", "error", err)
			os.Exit(1)
		}
		account, err := engine.CreateAccount(ctx, user.UserID, nil)
		if err != nil {
			logger.Error("Failed to create account", "error", err, "user_id", user.UserID)
			os.Exit(1)
		}
		if _, err := engine.CreateCard(ctx, account.AccountID, nil); err != nil {
			logger.Error("Failed to create card", "error", err, "account_id", account.AccountID)
			os.Exit(1)
		}
		logger.Info("Seeded user", "user_id", user.UserID, "account_id", account.AccountID, "username", user.Username)
	}

	if err := engine.SaveWorld(ctx); err != nil {
		logger.Error("Failed to save world state", "error", err)
		os.Exit(1)
	}
	logger.Info("World saved", "users_created", *users)

	if *days > 0 {
		stats, err := engine.Run(ctx, sim.Options{Days: *days})
		if err != nil {
			logger.Error("Simulation run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Simulation complete",
			"days", *days,
			"accounts", stats.AccountsProcessed,
			"transactions", stats.TransactionsAdded,
			"current_date", stats.CurrentDate,
		)
	}
}

// openStore builds the configured repository. The returned cleanup closes
// any underlying connection pool.
func openStore(ctx context.Context, cfg *config.AppConfig) (repository.Repository, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		database, err := db.NewPostgresDB(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(database)
		if err := store.InitSchema(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		return store, func() { database.Close() }, nil
	case config.BackendMemory:
		return memory.New(), func() {}, nil
	default:
		store, err := jsonfile.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
