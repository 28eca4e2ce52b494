package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

const (
	Weekly    Interval = "weekly"
	Monthly   Interval = "monthly"
	Quarterly Interval = "quarterly"
	Yearly    Interval = "yearly"
)

type (
	Direction string

	Status string

	Interval string

	Money struct {
		Cents int64
	}

	// Account owns zero or more transactions. Its balance is always
	// derived from settled transactions, never stored.
	Account struct {
		ID     uuid.UUID
		Name   string
		Active bool
	}

	// RecurrenceTemplate turns the transaction embedding it into the
	// anchor of a recurring obligation. A zero End means open-ended.
	RecurrenceTemplate struct {
		Interval Interval
		Start    time.Time
		End      time.Time
	}

	Transaction struct {
		ID          uuid.UUID
		AccountID   uuid.UUID
		Description string
		Amount      Money
		Direction   Direction
		Category    string
		DueDate     time.Time
		PaymentDate time.Time // zero until settled
		Status      Status
		Recurrence  *RecurrenceTemplate
	}

	// Occurrence is one concrete calendar date produced by expanding a
	// recurring transaction template. Transient, never persisted.
	Occurrence struct {
		Date      time.Time
		Amount    Money
		Direction Direction
	}

	// MonthBucket is one calendar month of a projected cash-flow series.
	MonthBucket struct {
		Year    int
		Month   time.Month
		Income  Money
		Expense Money
		Net     Money
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidDirection   = errors.New("invalid direction")
	ErrInvalidInterval    = errors.New("invalid recurrence interval")
	ErrInvalidDueDate     = errors.New("invalid due date")
	ErrRecurrenceEnd      = errors.New("recurrence end before start")
	ErrEmptyAccountName   = errors.New("empty account name")
	ErrPaidWithoutDate    = errors.New("paid status without payment date")
	ErrPaymentNotPaid     = errors.New("payment date without paid status")
	ErrMissingAccount     = errors.New("missing account reference")
)

// NewDate builds a day-precision date in UTC. All ledger dates are
// compared in a single reference timezone chosen by the caller.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates t to day precision, keeping its location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m minus o. Derived values such as net cash flow may be
// negative even though stored amounts are always positive.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (d Direction) Validate() error {
	switch d {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidDirection
	}
}

func (i Interval) Validate() error {
	switch i {
	case Weekly, Monthly, Quarterly, Yearly:
		return nil
	default:
		return ErrInvalidInterval
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if len(a.Name) > 120 {
		return errors.New("account name too long (max 120 characters)")
	}
	return nil
}

func (rt RecurrenceTemplate) Validate() error {
	if err := rt.Interval.Validate(); err != nil {
		return err
	}
	if rt.Start.IsZero() {
		return errors.New("recurrence start cannot be zero")
	}
	if !rt.End.IsZero() && rt.End.Before(rt.Start) {
		return ErrRecurrenceEnd
	}
	return nil
}

// IsRecurring reports whether the transaction anchors a recurring
// obligation. Recurring anchors are expanded on read and must never be
// counted as concrete rows in windowed sums.
func (t Transaction) IsRecurring() bool {
	return t.Recurrence != nil
}

// IsSettled reports whether a payment date has been recorded.
func (t Transaction) IsSettled() bool {
	return !t.PaymentDate.IsZero()
}

func (t Transaction) Validate() error {
	if t.AccountID == uuid.Nil {
		return ErrMissingAccount
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Direction.Validate(); err != nil {
		return err
	}
	if t.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	if t.Status == StatusPaid && t.PaymentDate.IsZero() {
		return ErrPaidWithoutDate
	}
	if !t.PaymentDate.IsZero() && t.Status != StatusPaid {
		return ErrPaymentNotPaid
	}
	if t.Recurrence != nil {
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}
