// Package http provides the HTTP server and handler implementations.
//
// This file implements JSON response building: DTO mapping from domain
// types and consistent error envelopes across all handlers.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"contas/internal/core"
	"contas/internal/services"
	"contas/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

type accountResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type recurrenceResponse struct {
	Interval string `json:"interval"`
	Start    string `json:"start"`
	End      string `json:"end,omitempty"`
}

type transactionResponse struct {
	ID          string              `json:"id"`
	AccountID   string              `json:"account_id"`
	Description string              `json:"description"`
	Amount      string              `json:"amount"`
	AmountCents int64               `json:"amount_cents"`
	Direction   string              `json:"direction"`
	Category    string              `json:"category,omitempty"`
	DueDate     string              `json:"due_date"`
	PaymentDate string              `json:"payment_date,omitempty"`
	Status      string              `json:"status"`
	Recurrence  *recurrenceResponse `json:"recurrence,omitempty"`
}

type balanceResponse struct {
	AccountID    string `json:"account_id"`
	Balance      string `json:"balance"`
	BalanceCents int64  `json:"balance_cents"`
}

type occurrenceResponse struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Direction   string `json:"direction"`
}

type monthBucketResponse struct {
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	Income       string `json:"income"`
	IncomeCents  int64  `json:"income_cents"`
	Expense      string `json:"expense"`
	ExpenseCents int64  `json:"expense_cents"`
	Net          string `json:"net"`
	NetCents     int64  `json:"net_cents"`
}

type cashFlowResponse struct {
	From    string                `json:"from"`
	To      string                `json:"to"`
	Buckets []monthBucketResponse `json:"buckets"`
}

type periodStatsResponse struct {
	From                       string                `json:"from"`
	To                         string                `json:"to"`
	TotalToReceiveCents        int64                 `json:"total_to_receive_cents"`
	TotalToPayCents            int64                 `json:"total_to_pay_cents"`
	TotalReceivedCents         int64                 `json:"total_received_cents"`
	TotalPaidCents             int64                 `json:"total_paid_cents"`
	OverdueTodayCount          int                   `json:"overdue_today_count"`
	CurrentMonthToReceiveCents int64                 `json:"current_month_to_receive_cents"`
	CurrentMonthToPayCents     int64                 `json:"current_month_to_pay_cents"`
	CashFlow                   []monthBucketResponse `json:"cash_flow"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:     a.ID.String(),
		Name:   a.Name,
		Active: a.Active,
	}
}

func toAccountResponses(accounts []core.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          t.ID.String(),
		AccountID:   t.AccountID.String(),
		Description: t.Description,
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Direction:   string(t.Direction),
		Category:    t.Category,
		DueDate:     t.DueDate.Format(dateLayout),
		Status:      string(t.Status),
	}
	if !t.PaymentDate.IsZero() {
		resp.PaymentDate = t.PaymentDate.Format(dateLayout)
	}
	if t.Recurrence != nil {
		rec := &recurrenceResponse{
			Interval: string(t.Recurrence.Interval),
			Start:    t.Recurrence.Start.Format(dateLayout),
		}
		if !t.Recurrence.End.IsZero() {
			rec.End = t.Recurrence.End.Format(dateLayout)
		}
		resp.Recurrence = rec
	}
	return resp
}

func toTransactionResponses(txns []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

func toOccurrenceResponses(occurrences []core.Occurrence) []occurrenceResponse {
	out := make([]occurrenceResponse, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, occurrenceResponse{
			Date:        occ.Date.Format(dateLayout),
			Amount:      occ.Amount.String(),
			AmountCents: occ.Amount.Cents,
			Direction:   string(occ.Direction),
		})
	}
	return out
}

func toMonthBucketResponses(buckets []core.MonthBucket) []monthBucketResponse {
	out := make([]monthBucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, monthBucketResponse{
			Year:         b.Year,
			Month:        int(b.Month),
			Income:       b.Income.String(),
			IncomeCents:  b.Income.Cents,
			Expense:      b.Expense.String(),
			ExpenseCents: b.Expense.Cents,
			Net:          b.Net.String(),
			NetCents:     b.Net.Cents,
		})
	}
	return out
}

func toPeriodStatsResponse(stats services.PeriodStats, from, to string) periodStatsResponse {
	return periodStatsResponse{
		From:                       from,
		To:                         to,
		TotalToReceiveCents:        stats.TotalToReceive.Cents,
		TotalToPayCents:            stats.TotalToPay.Cents,
		TotalReceivedCents:         stats.TotalReceived.Cents,
		TotalPaidCents:             stats.TotalPaid.Cents,
		OverdueTodayCount:          stats.OverdueTodayCount,
		CurrentMonthToReceiveCents: stats.CurrentMonthToReceive.Cents,
		CurrentMonthToPayCents:     stats.CurrentMonthToPay.Cents,
		CashFlow:                   toMonthBucketResponses(stats.CashFlow),
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// validationErrors are domain errors caused by bad input, reported as 422.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrInvalidDirection,
	core.ErrInvalidInterval,
	core.ErrInvalidDueDate,
	core.ErrRecurrenceEnd,
	core.ErrEmptyAccountName,
	core.ErrPaidWithoutDate,
	core.ErrPaymentNotPaid,
	core.ErrMissingAccount,
}

// respondDomainError maps domain and storage errors onto HTTP statuses.
// Anything unrecognized is a 500 with a generic body so internals never
// leak to clients.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrAccountHasTransactions):
		respondError(w, http.StatusConflict, "account still has transactions")
	case isValidationError(err):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("Unhandled handler error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
