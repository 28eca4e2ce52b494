// Package http provides the HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: JSON body decoding, date and window query parameters, and input
// sanitization shared by all handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"contas/internal/core"
)

const dateLayout = "2006-01-02"

// maxBodySize caps request bodies. Ledger payloads are tiny.
const maxBodySize = 1 << 20

var (
	errInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
	errInvalidWindow = errors.New("window end must be after start")
	errInvalidID     = errors.New("invalid id")
)

type createAccountRequest struct {
	Name string `json:"name"`
}

type recurrenceRequest struct {
	Interval string `json:"interval"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

type createTransactionRequest struct {
	AccountID   string             `json:"account_id"`
	Description string             `json:"description"`
	Amount      string             `json:"amount"`
	Direction   string             `json:"direction"`
	Category    string             `json:"category"`
	DueDate     string             `json:"due_date"`
	PaymentDate string             `json:"payment_date"`
	Status      string             `json:"status"`
	Recurrence  *recurrenceRequest `json:"recurrence"`
}

type settleTransactionRequest struct {
	PaymentDate string `json:"payment_date"`
}

// decodeJSON decodes a request body into dst, rejecting unknown fields so
// typos in payloads surface as errors instead of silently dropped data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// toTransaction converts a create request into a domain transaction. Full
// validation happens in the service; this only parses the wire format.
func (req createTransactionRequest) toTransaction() (core.Transaction, error) {
	accountID, err := uuid.Parse(strings.TrimSpace(req.AccountID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("account_id: %w", errInvalidID)
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", req.Amount, err)
	}

	dueDate, err := parseDateField("due_date", req.DueDate)
	if err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		AccountID:   accountID,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Direction:   core.Direction(strings.TrimSpace(req.Direction)),
		Category:    sanitizeInput(req.Category),
		DueDate:     dueDate,
		Status:      core.Status(strings.TrimSpace(req.Status)),
	}

	if req.PaymentDate != "" {
		tx.PaymentDate, err = parseDateField("payment_date", req.PaymentDate)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	if req.Recurrence != nil {
		start, err := parseDateField("recurrence.start", req.Recurrence.Start)
		if err != nil {
			return core.Transaction{}, err
		}
		tmpl := &core.RecurrenceTemplate{
			Interval: core.Interval(strings.TrimSpace(req.Recurrence.Interval)),
			Start:    start,
		}
		if req.Recurrence.End != "" {
			tmpl.End, err = parseDateField("recurrence.end", req.Recurrence.End)
			if err != nil {
				return core.Transaction{}, err
			}
		}
		tx.Recurrence = tmpl
	}

	return tx, nil
}

func parseDateField(name, value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %q: %w", name, value, errInvalidDate)
	}
	return t, nil
}

// parsePathID extracts and parses the {id} path segment.
func parsePathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// parseWindow reads the from/to query parameters as a half-open window
// [from, to). Defaults cover the current month start through
// defaultMonths months ahead, which matches how projections are usually
// consumed.
func parseWindow(query url.Values, defaultMonths int, now time.Time) (time.Time, time.Time, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, defaultMonths, 0)

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		parsed, err := parseDateField("from", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
		end = start.AddDate(0, defaultMonths, 0)
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		parsed, err := parseDateField("to", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, errInvalidWindow
	}
	return start, end, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
