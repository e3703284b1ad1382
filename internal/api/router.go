// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bankgen/internal/api/handler"
	"bankgen/internal/auth"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(bankHandler *handler.BankHandler, authHandler *handler.AuthHandler, authSvc *auth.Service, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Login is the only unauthenticated data endpoint.
	r.Post("/auth/login", authHandler.Login)

	// Everything else requires a bearer token.
	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", bankHandler.ListAccounts)
			r.Get("/{accountID}", bankHandler.GetAccount)
			r.Get("/{accountID}/transactions", bankHandler.GetAccountTransactions)
			r.Get("/{accountID}/cards", bankHandler.GetAccountCards)
		})
		r.Get("/cards/{cardID}/transactions", bankHandler.GetCardTransactions)

		r.Post("/simulation/advance", bankHandler.AdvanceSimulation)
		r.Post("/transactions", bankHandler.CreateTransaction)
		r.Post("/transfers", bankHandler.Transfer)
	})

	return r
}
