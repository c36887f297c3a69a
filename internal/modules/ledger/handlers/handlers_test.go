package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	testingpkg "github.com/aristath/sentinel-analytics/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *chi.Mux {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	db := testingpkg.NewTestDB(t, "ledger")
	repo := ledger.NewTransactionRepository(db.Conn(), log)

	router := chi.NewRouter()
	NewHandler(repo, log).RegisterRoutes(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const scenario = `{"transactions": [
	{"symbol": "AAPL", "kind": "BUY", "quantity": 100, "price": 150, "fees": 10, "date": "2023-01-01"},
	{"symbol": "AAPL", "kind": "buy", "quantity": "50", "price": "180", "fees": "10", "date": "2023-06-01"},
	{"symbol": "AAPL", "kind": "SELL", "quantity": 25, "price": 200, "fees": 10, "date": "2023-12-01T00:00:00Z"},
	{"kind": "DEPOSIT", "quantity": 500, "price": 0, "date": "2023-01-01"}
]}`

func TestCreateAndReadPositions(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ledger/transactions", bytes.NewBufferString(scenario))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/ledger/positions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Positions []struct {
				Symbol   string `json:"symbol"`
				Quantity string `json:"quantity"`
				Lots     []struct {
					Quantity string `json:"quantity"`
				} `json:"lots"`
			} `json:"positions"`
			CashBalance string `json:"cash_balance"`
		} `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Data.Positions, 1)
	assert.Equal(t, "AAPL", resp.Data.Positions[0].Symbol)
	assert.Equal(t, "125", resp.Data.Positions[0].Quantity)
	require.Len(t, resp.Data.Positions[0].Lots, 2)
	assert.Equal(t, "75", resp.Data.Positions[0].Lots[0].Quantity)
	assert.Equal(t, "500", resp.Data.CashBalance)
	assert.Contains(t, resp.Metadata, "timestamp")

	w = do(t, router, http.MethodGet, "/ledger/realized", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"realized_pnl":"1237.5"`)
}

func TestCreateTransactions_Validation(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"transactions": [`},
		{"empty list", `{"transactions": []}`},
		{"unknown kind", `{"transactions": [{"symbol": "A", "kind": "SHORT", "quantity": 1, "price": 1, "date": "2023-01-01"}]}`},
		{"bad date", `{"transactions": [{"symbol": "A", "kind": "BUY", "quantity": 1, "price": 1, "date": "01/02/2023"}]}`},
		{"zero quantity", `{"transactions": [{"symbol": "A", "kind": "BUY", "quantity": 0, "price": 1, "date": "2023-01-01"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ledger/transactions", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestAnalysisEndpoints(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/ledger/transactions", bytes.NewBufferString(scenario))
	router.ServeHTTP(httptest.NewRecorder(), req)

	for _, path := range []string{"/ledger/costs", "/ledger/activity", "/ledger/summary", "/ledger/transactions?symbol=aapl"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, router, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"data"`)
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	router := setupRouter(t)

	w := do(t, router, http.MethodDelete, "/ledger/transactions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
