// internal/api/handler/bank.go
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"bankgen/internal/api/types"
	"bankgen/internal/domain"
	"bankgen/internal/repository"
	"bankgen/internal/sim"
	"bankgen/internal/util"
)

// DefaultTimeout bounds request handling time at the router level.
const DefaultTimeout = 60 * time.Second

// Pagination defaults for transaction listings.
const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Simulator is the slice of the engine the handlers drive. It is an
// interface so handler tests can mock the engine.
type Simulator interface {
	Run(ctx context.Context, opts sim.Options) (sim.Stats, error)
	ProcessManualTransaction(ctx context.Context, entityID string, ov sim.TxnOverrides) (*sim.ManualResult, error)
	ProcessTransfer(ctx context.Context, senderID, receiverID string, ov sim.TxnOverrides) (string, error)
	LoadWorld(ctx context.Context) error
	SaveWorld(ctx context.Context) error
	Flush(ctx context.Context) error
	CurrentDate() string
}

// BankHandler handles HTTP requests for bank data queries and simulation
// control.
type BankHandler struct {
	repo   repository.Repository
	sim    Simulator
	logger *slog.Logger
}

// NewBankHandler creates a new BankHandler.
func NewBankHandler(repo repository.Repository, simulator Simulator, logger *slog.Logger) *BankHandler {
	return &BankHandler{
		repo:   repo,
		sim:    simulator,
		logger: logger,
	}
}

// Helper function to send JSON responses.
func (h *BankHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h *BankHandler) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound),
		util.IsError(err, util.ErrAccountNotFound),
		util.IsError(err, util.ErrCardNotFound),
		util.IsError(err, util.ErrUserNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrCardLimitExceeded):
		statusCode = http.StatusPaymentRequired // 402 Payment Required
		message = "Card limit exceeded"
	case util.IsError(err, util.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		message = "Unauthorized"
	case util.IsError(err, util.ErrDuplicateEntry):
		statusCode = http.StatusConflict
		message = "Duplicate entry"
	default:
		h.logger.Error("Unhandled handler error", "error", err)
	}

	h.respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// parsePagination reads limit/offset query parameters with defaults.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// ListAccounts handles listing every account in the store.
// GET /accounts
func (h *BankHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.repo.AllAccounts(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"data":  accounts,
		"count": len(accounts),
	})
}

// GetAccount handles fetching a single account.
// GET /accounts/{accountID}
func (h *BankHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	account, err := h.repo.AccountByID(r.Context(), accountID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, account)
}

// GetAccountTransactions handles the paginated transaction history of an
// account.
// GET /accounts/{accountID}/transactions
func (h *BankHandler) GetAccountTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	limit, offset := parsePagination(r)

	txns, total, err := h.repo.AccountTransactions(r.Context(), accountID, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.AccountTransaction]{
		Data:       txns,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}

// GetAccountCards handles listing the cards linked to an account.
// GET /accounts/{accountID}/cards
func (h *BankHandler) GetAccountCards(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	// Confirm the account exists so a bad ID is a 404, not an empty list.
	if _, err := h.repo.AccountByID(r.Context(), accountID); err != nil {
		h.respondWithError(w, err)
		return
	}

	cardsByAccount, err := h.repo.CardsBatch(r.Context(), []string{accountID})
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	cards := cardsByAccount[accountID]
	if cards == nil {
		cards = []domain.Card{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"data":  cards,
		"count": len(cards),
	})
}

// GetCardTransactions handles the paginated transaction history of a card.
// GET /cards/{cardID}/transactions
func (h *BankHandler) GetCardTransactions(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	limit, offset := parsePagination(r)

	txns, total, err := h.repo.CardTransactions(r.Context(), cardID, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.CardTransaction]{
		Data:       txns,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}

// AdvanceRequest represents the request body for advancing the simulation.
type AdvanceRequest struct {
	Days        int  `json:"days"`
	Hours       int  `json:"hours"`
	Minutes     int  `json:"minutes"`
	ProcessOnly bool `json:"process_only"`
}

// AdvanceSimulation handles a simulation run request.
// POST /simulation/advance
func (h *BankHandler) AdvanceSimulation(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	ctx := r.Context()

	// Persist any entities created since the last save so the run sees them.
	if err := h.sim.SaveWorld(ctx); err != nil {
		h.respondWithError(w, err)
		return
	}

	stats, err := h.sim.Run(ctx, sim.Options{
		Days:        req.Days,
		Hours:       req.Hours,
		Minutes:     req.Minutes,
		ProcessOnly: req.ProcessOnly,
	})
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	// The run mutates persisted balances directly; refresh the cache.
	if err := h.sim.LoadWorld(ctx); err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Simulation advanced",
		"stats":   stats,
	})
}

// ManualTransactionRequest represents the request body for an on-demand
// transaction against a card or an account.
type ManualTransactionRequest struct {
	LinkID      string           `json:"link_id"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Location    *string          `json:"location,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// CreateTransaction handles a manual transaction request.
// POST /transactions
func (h *BankHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req ManualTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if req.LinkID == "" {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	ctx := r.Context()
	result, err := h.sim.ProcessManualTransaction(ctx, req.LinkID, sim.TxnOverrides{
		Amount:      req.Amount,
		Category:    req.Category,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	if err := h.persistAfterMutation(ctx); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, result)
}

// TransferRequest represents the request body for a transfer between two
// accounts.
type TransferRequest struct {
	SenderID   string           `json:"sender_id"`
	ReceiverID string           `json:"receiver_id"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

// Transfer handles a transfer request.
// POST /transfers
func (h *BankHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if req.SenderID == "" || req.ReceiverID == "" {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	ctx := r.Context()
	groupID, err := h.sim.ProcessTransfer(ctx, req.SenderID, req.ReceiverID, sim.TxnOverrides{Amount: req.Amount})
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	if err := h.persistAfterMutation(ctx); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, map[string]string{
		"message":           "Transfer recorded",
		"transfer_group_id": groupID,
	})
}

// persistAfterMutation flushes buffered ledger records and saves the mutated
// entity state after a manual operation.
func (h *BankHandler) persistAfterMutation(ctx context.Context) error {
	if err := h.sim.Flush(ctx); err != nil {
		return err
	}
	return h.sim.SaveWorld(ctx)
}
