// Package handlers provides HTTP handlers for the transaction ledger.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler handles ledger HTTP requests
type Handler struct {
	repo ledger.TransactionRepositoryInterface
	log  zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(repo ledger.TransactionRepositoryInterface, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "ledger").Logger(),
	}
}

type transactionRequest struct {
	Symbol   string          `json:"symbol"`
	Kind     string          `json:"kind"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Fees     decimal.Decimal `json:"fees"`
	Date     string          `json:"date"` // YYYY-MM-DD or RFC3339
}

type createTransactionsRequest struct {
	Transactions []transactionRequest `json:"transactions"`
}

func (req transactionRequest) toTransaction() (ledger.Transaction, error) {
	kind, err := ledger.ParseKind(req.Kind)
	if err != nil {
		return ledger.Transaction{}, err
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("%w: %v", ledger.ErrInvalidTransaction, err)
	}

	return ledger.Transaction{
		Symbol:   req.Symbol,
		Kind:     kind,
		Quantity: req.Quantity,
		Price:    req.Price,
		Fees:     req.Fees,
		Date:     date,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

// HandleCreateTransactions handles POST /api/ledger/transactions
func (h *Handler) HandleCreateTransactions(w http.ResponseWriter, r *http.Request) {
	var req createTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Transactions) == 0 {
		h.writeError(w, http.StatusBadRequest, "No transactions supplied")
		return
	}

	txs := make([]ledger.Transaction, 0, len(req.Transactions))
	for i, tr := range req.Transactions {
		tx, err := tr.toTransaction()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("transaction %d: %v", i, err))
			return
		}
		txs = append(txs, tx)
	}

	created, err := h.repo.CreateBatch(txs)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidTransaction) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to store transactions")
		h.writeError(w, http.StatusInternalServerError, "Failed to store transactions")
		return
	}

	h.writeData(w, http.StatusCreated, created)
}

// HandleGetTransactions handles GET /api/ledger/transactions[?symbol=X]
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		txs []ledger.Transaction
		err error
	)
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		txs, err = h.repo.GetBySymbol(symbol)
	} else {
		txs, err = h.repo.GetAll()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get transactions")
		h.writeError(w, http.StatusInternalServerError, "Failed to get transactions")
		return
	}

	h.writeData(w, http.StatusOK, txs)
}

// HandleDeleteTransaction handles DELETE /api/ledger/transactions/{id}
func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(id); err != nil {
		if ledger.IsNotFound(err) {
			h.writeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("Failed to delete transaction")
		h.writeError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type positionResponse struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avg_cost"`
	Cost     decimal.Decimal `json:"cost_basis"`
	Lots     []ledger.Lot    `json:"lots"`
}

// HandleGetPositions handles GET /api/ledger/positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	l, ok := h.applyLedger(w)
	if !ok {
		return
	}

	positions := l.Positions()
	out := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		out = append(out, positionResponse{
			Symbol:   p.Symbol,
			Quantity: p.Quantity(),
			AvgCost:  p.AverageCost(),
			Cost:     p.Cost(),
			Lots:     p.Lots,
		})
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"positions":    out,
		"cash_balance": l.CashBalance(),
		"oversells":    l.Oversells(),
	})
}

// HandleGetRealized handles GET /api/ledger/realized
func (h *Handler) HandleGetRealized(w http.ResponseWriter, r *http.Request) {
	l, ok := h.applyLedger(w)
	if !ok {
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"realized_trades": l.RealizedTrades(),
		"realized_pnl":    l.RealizedPnL(),
	})
}

// HandleGetCosts handles GET /api/ledger/costs
func (h *Handler) HandleGetCosts(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.loadTransactions(w)
	if !ok {
		return
	}
	h.writeData(w, http.StatusOK, ledger.AnalyzeCosts(txs))
}

// HandleGetActivity handles GET /api/ledger/activity
func (h *Handler) HandleGetActivity(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.loadTransactions(w)
	if !ok {
		return
	}
	h.writeData(w, http.StatusOK, ledger.AnalyzeActivity(txs))
}

// HandleGetSummary handles GET /api/ledger/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.loadTransactions(w)
	if !ok {
		return
	}
	h.writeData(w, http.StatusOK, ledger.Summarize(txs))
}

func (h *Handler) loadTransactions(w http.ResponseWriter) ([]ledger.Transaction, bool) {
	txs, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get transactions")
		h.writeError(w, http.StatusInternalServerError, "Failed to get transactions")
		return nil, false
	}
	return txs, true
}

func (h *Handler) applyLedger(w http.ResponseWriter) (*ledger.Ledger, bool) {
	txs, ok := h.loadTransactions(w)
	if !ok {
		return nil, false
	}

	l := ledger.New(h.log)
	if _, err := l.Apply(txs); err != nil {
		h.log.Error().Err(err).Msg("Failed to apply transactions")
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	return l, true
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
