package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/services"
	"contas/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	svc := services.NewLedgerService(repo, nil)
	srv := NewServer(":0", svc, repo, 12)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = repo.Close()
	})
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func createTestAccount(t *testing.T, srv *Server, name string) string {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/accounts", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[accountResponse](t, rr).ID
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestSuspiciousRequestRejected(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/.env", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountLifecycle(t *testing.T) {
	srv := newTestServer(t)

	id := createTestAccount(t, srv, "Checking")

	rr := doJSON(t, srv, http.MethodGet, "/accounts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	accounts := decodeBody[[]accountResponse](t, rr)
	require.Len(t, accounts, 1)
	assert.Equal(t, id, accounts[0].ID)
	assert.Equal(t, "Checking", accounts[0].Name)
	assert.True(t, accounts[0].Active)

	rr = doJSON(t, srv, http.MethodDelete, "/accounts/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, srv, http.MethodDelete, "/accounts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateAccountValidation(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/accounts", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCreateTransaction(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	future := time.Now().AddDate(0, 1, 0).Format(dateLayout)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Rent",
		"amount":      "1250.00",
		"direction":   "expense",
		"category":    "housing",
		"due_date":    future,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	tx := decodeBody[transactionResponse](t, rr)
	assert.Equal(t, accountID, tx.AccountID)
	assert.Equal(t, int64(125000), tx.AmountCents)
	assert.Equal(t, "1250.00", tx.Amount)
	assert.Equal(t, "pending", tx.Status)
	assert.Equal(t, future, tx.DueDate)
	assert.Empty(t, tx.PaymentDate)
}

func TestCreateTransactionWithPaymentDateIsPaid(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	today := time.Now().Format(dateLayout)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":   accountID,
		"description":  "Groceries",
		"amount":       "84.20",
		"direction":    "expense",
		"due_date":     today,
		"payment_date": today,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	tx := decodeBody[transactionResponse](t, rr)
	assert.Equal(t, "paid", tx.Status)
	assert.Equal(t, today, tx.PaymentDate)
}

func TestCreateTransactionErrors(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	future := time.Now().AddDate(0, 1, 0).Format(dateLayout)

	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{
			name:     "invalid JSON body",
			body:     "not json",
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown account",
			body: map[string]any{
				"account_id":  "8b7f2b50-0000-0000-0000-000000000000",
				"description": "Rent",
				"amount":      "10.00",
				"direction":   "expense",
				"due_date":    future,
			},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "bad amount",
			body: map[string]any{
				"account_id":  accountID,
				"description": "Rent",
				"amount":      "abc",
				"direction":   "expense",
				"due_date":    future,
			},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "bad direction",
			body: map[string]any{
				"account_id":  accountID,
				"description": "Rent",
				"amount":      "10.00",
				"direction":   "sideways",
				"due_date":    future,
			},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "bad due date",
			body: map[string]any{
				"account_id":  accountID,
				"description": "Rent",
				"amount":      "10.00",
				"direction":   "expense",
				"due_date":    "01/02/2024",
			},
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/transactions", tt.body)
			assert.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
		})
	}
}

func TestSettleAndReopenTransaction(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	future := time.Now().AddDate(0, 1, 0).Format(dateLayout)
	paymentDate := time.Now().Format(dateLayout)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Invoice",
		"amount":      "300.00",
		"direction":   "income",
		"due_date":    future,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeBody[transactionResponse](t, rr).ID

	rr = doJSON(t, srv, http.MethodPost, "/transactions/"+id+"/settle", map[string]string{
		"payment_date": paymentDate,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	settled := decodeBody[transactionResponse](t, rr)
	assert.Equal(t, "paid", settled.Status)
	assert.Equal(t, paymentDate, settled.PaymentDate)

	rr = doJSON(t, srv, http.MethodPost, "/transactions/"+id+"/reopen", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	reopened := decodeBody[transactionResponse](t, rr)
	assert.Equal(t, "pending", reopened.Status)
	assert.Empty(t, reopened.PaymentDate)
}

func TestSettleWithoutBodyDefaultsToToday(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	future := time.Now().AddDate(0, 1, 0).Format(dateLayout)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Invoice",
		"amount":      "300.00",
		"direction":   "income",
		"due_date":    future,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeBody[transactionResponse](t, rr).ID

	rr = doJSON(t, srv, http.MethodPost, "/transactions/"+id+"/settle", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	settled := decodeBody[transactionResponse](t, rr)
	assert.Equal(t, "paid", settled.Status)
	assert.NotEmpty(t, settled.PaymentDate)
}

func TestDeleteTransaction(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	future := time.Now().AddDate(0, 1, 0).Format(dateLayout)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Subscription",
		"amount":      "9.99",
		"direction":   "expense",
		"due_date":    future,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeBody[transactionResponse](t, rr).ID

	rr = doJSON(t, srv, http.MethodDelete, "/transactions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/transactions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, srv, http.MethodDelete, "/accounts/"+accountID, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAccountBalance(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	today := time.Now().Format(dateLayout)
	future := time.Now().AddDate(0, 1, 0).Format(dateLayout)

	seed := func(desc, amount, direction, paymentDate string) {
		body := map[string]any{
			"account_id":  accountID,
			"description": desc,
			"amount":      amount,
			"direction":   direction,
			"due_date":    today,
		}
		if paymentDate != "" {
			body["payment_date"] = paymentDate
		} else {
			body["due_date"] = future
		}
		rr := doJSON(t, srv, http.MethodPost, "/transactions", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	seed("Salary", "100.00", "income", today)
	seed("Power bill", "40.00", "expense", today)
	seed("Pending invoice", "999.00", "income", "") // must not move the balance

	rr := doJSON(t, srv, http.MethodGet, "/accounts/"+accountID+"/balance", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	balance := decodeBody[balanceResponse](t, rr)
	assert.Equal(t, int64(6000), balance.BalanceCents)
	assert.Equal(t, "60.00", balance.Balance)
}

func TestTransactionOccurrences(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Gym membership",
		"amount":      "35.00",
		"direction":   "expense",
		"due_date":    "2024-01-15",
		"recurrence": map[string]string{
			"interval": "monthly",
			"start":    "2024-01-15",
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := decodeBody[transactionResponse](t, rr).ID

	rr = doJSON(t, srv, http.MethodGet, "/transactions/"+id+"/occurrences?from=2024-01-01&to=2024-04-01", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	occurrences := decodeBody[[]occurrenceResponse](t, rr)
	require.Len(t, occurrences, 3)
	assert.Equal(t, "2024-01-15", occurrences[0].Date)
	assert.Equal(t, "2024-02-15", occurrences[1].Date)
	assert.Equal(t, "2024-03-15", occurrences[2].Date)
	for _, occ := range occurrences {
		assert.Equal(t, int64(3500), occ.AmountCents)
		assert.Equal(t, "expense", occ.Direction)
	}
}

func TestOccurrencesOnConcreteTransaction(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	future := time.Now().AddDate(0, 1, 0).Format(dateLayout)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "One-off",
		"amount":      "10.00",
		"direction":   "expense",
		"due_date":    future,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeBody[transactionResponse](t, rr).ID

	rr = doJSON(t, srv, http.MethodGet, "/transactions/"+id+"/occurrences", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCashFlowReport(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Rent",
		"amount":      "800.00",
		"direction":   "expense",
		"due_date":    "2030-01-10",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Salary",
		"amount":      "2000.00",
		"direction":   "income",
		"due_date":    "2030-01-25",
		"recurrence": map[string]string{
			"interval": "monthly",
			"start":    "2030-01-25",
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, srv, http.MethodGet, "/reports/cash-flow?from=2030-01-01&to=2030-03-01", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	report := decodeBody[cashFlowResponse](t, rr)
	assert.Equal(t, "2030-01-01", report.From)
	assert.Equal(t, "2030-03-01", report.To)
	require.Len(t, report.Buckets, 2)

	jan := report.Buckets[0]
	assert.Equal(t, 2030, jan.Year)
	assert.Equal(t, 1, jan.Month)
	assert.Equal(t, int64(200000), jan.IncomeCents)
	assert.Equal(t, int64(80000), jan.ExpenseCents)
	assert.Equal(t, int64(120000), jan.NetCents)

	feb := report.Buckets[1]
	assert.Equal(t, int64(200000), feb.IncomeCents)
	assert.Equal(t, int64(0), feb.ExpenseCents)
}

func TestCashFlowCacheInvalidatedByWrite(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")

	query := "/reports/cash-flow?from=2030-01-01&to=2030-02-01"
	rr := doJSON(t, srv, http.MethodGet, query, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	empty := decodeBody[cashFlowResponse](t, rr)
	require.Len(t, empty.Buckets, 1)
	assert.Equal(t, int64(0), empty.Buckets[0].ExpenseCents)

	rr = doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Rent",
		"amount":      "800.00",
		"direction":   "expense",
		"due_date":    "2030-01-10",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, query, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	updated := decodeBody[cashFlowResponse](t, rr)
	require.Len(t, updated.Buckets, 1)
	assert.Equal(t, int64(80000), updated.Buckets[0].ExpenseCents)
}

func TestPeriodStatsReport(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	today := time.Now().Format(dateLayout)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Consulting",
		"amount":      "500.00",
		"direction":   "income",
		"due_date":    "2030-01-10",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":   accountID,
		"description":  "Groceries",
		"amount":       "120.00",
		"direction":    "expense",
		"due_date":     today,
		"payment_date": today,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	from := time.Now().AddDate(0, -1, 0).Format(dateLayout)
	rr = doJSON(t, srv, http.MethodGet, "/reports/period-stats?from="+from+"&to=2030-02-01", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	stats := decodeBody[periodStatsResponse](t, rr)
	assert.Equal(t, int64(50000), stats.TotalToReceiveCents)
	assert.Equal(t, int64(12000), stats.TotalPaidCents)
	assert.Equal(t, int64(0), stats.TotalReceivedCents)
	assert.NotEmpty(t, stats.CashFlow)
}

func TestInvalidWindow(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/reports/cash-flow?from=2030-02-01&to=2030-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/reports/cash-flow?from=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInvalidPathID(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/transactions/not-a-uuid",
		"/accounts/not-a-uuid/balance",
	} {
		rr := doJSON(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestUpdateTransactionEndpoint(t *testing.T) {
	srv := newTestServer(t)
	accountID := createTestAccount(t, srv, "Checking")
	future := time.Now().AddDate(0, 1, 0).Format(dateLayout)
	later := time.Now().AddDate(0, 2, 0).Format(dateLayout)

	rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
		"account_id":  accountID,
		"description": "Rent",
		"amount":      "950.00",
		"direction":   "expense",
		"due_date":    future,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeBody[transactionResponse](t, rr).ID

	rr = doJSON(t, srv, http.MethodPut, "/transactions/"+id, map[string]any{
		"account_id":  accountID,
		"description": "Rent with utilities",
		"amount":      "1020.00",
		"direction":   "expense",
		"due_date":    later,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated := decodeBody[transactionResponse](t, rr)
	assert.Equal(t, id, updated.ID)
	assert.Equal(t, "Rent with utilities", updated.Description)
	assert.Equal(t, int64(102000), updated.AmountCents)
	assert.Equal(t, later, updated.DueDate)
	assert.Equal(t, "pending", updated.Status)

	rr = doJSON(t, srv, http.MethodPut, "/transactions/"+uuid.NewString(), map[string]any{
		"account_id":  accountID,
		"description": "Ghost",
		"amount":      "1.00",
		"direction":   "expense",
		"due_date":    future,
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeactivateAccountEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := createTestAccount(t, srv, "Old savings")

	rr := doJSON(t, srv, http.MethodPost, "/accounts/"+id+"/deactivate", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/accounts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	accounts := decodeBody[[]accountResponse](t, rr)
	require.Len(t, accounts, 1)
	assert.False(t, accounts[0].Active)

	rr = doJSON(t, srv, http.MethodPost, "/accounts/"+uuid.NewString()+"/deactivate", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListTransactionsByAccount(t *testing.T) {
	srv := newTestServer(t)
	first := createTestAccount(t, srv, "Checking")
	second := createTestAccount(t, srv, "Savings")
	future := time.Now().AddDate(0, 1, 0).Format(dateLayout)

	for i, accountID := range []string{first, first, second} {
		rr := doJSON(t, srv, http.MethodPost, "/transactions", map[string]any{
			"account_id":  accountID,
			"description": fmt.Sprintf("tx %d", i),
			"amount":      "10.00",
			"direction":   "expense",
			"due_date":    future,
		})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := doJSON(t, srv, http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]transactionResponse](t, rr), 3)

	rr = doJSON(t, srv, http.MethodGet, "/transactions?account="+first, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]transactionResponse](t, rr), 2)

	// Window filter on the relevant date.
	rr = doJSON(t, srv, http.MethodGet, "/transactions?from=2000-01-01&to=2000-02-01", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[[]transactionResponse](t, rr))

	windowStart := time.Now().Format(dateLayout)
	windowEnd := time.Now().AddDate(0, 2, 0).Format(dateLayout)
	rr = doJSON(t, srv, http.MethodGet, "/transactions?from="+windowStart+"&to="+windowEnd, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]transactionResponse](t, rr), 3)
}
