// Package services provides the ledger's derivation and orchestration logic.
//
// This file implements the Strategy Pattern for recurrence interval stepping.
// Each interval (weekly, monthly, quarterly, yearly) has its own stepper that
// encapsulates how an anchor date advances, so the month-clamping arithmetic
// is implemented exactly once in AddMonths.

package services

import (
	"fmt"
	"time"

	"contas/internal/core"
)

// IntervalStepper is the strategy interface for recurrence date stepping.
// Step returns the date of the nth step away from the template start; the
// zeroth step is the start itself. Stepping is indexed from the start, not
// from the previous occurrence, so a clamped emission (Jan 31 -> Feb 29)
// does not lose the template's day-of-month on the next step.
type IntervalStepper interface {
	Step(start time.Time, n int) time.Time
}

// WeeklyStepper implements IntervalStepper with a fixed 7-day step.
type WeeklyStepper struct{}

func (WeeklyStepper) Step(start time.Time, n int) time.Time {
	return start.AddDate(0, 0, 7*n)
}

// MonthlyStepper implements IntervalStepper stepping one calendar month.
type MonthlyStepper struct{}

func (MonthlyStepper) Step(start time.Time, n int) time.Time {
	return AddMonths(start, n)
}

// QuarterlyStepper implements IntervalStepper stepping three calendar months.
type QuarterlyStepper struct{}

func (QuarterlyStepper) Step(start time.Time, n int) time.Time {
	return AddMonths(start, 3*n)
}

// YearlyStepper implements IntervalStepper stepping twelve calendar months,
// which clamps Feb 29 anchors to Feb 28 on non-leap destination years.
type YearlyStepper struct{}

func (YearlyStepper) Step(start time.Time, n int) time.Time {
	return AddMonths(start, 12*n)
}

// AddMonths adds n calendar months to t, clamping the day-of-month to the
// last valid day of the destination month (Jan 31 -> Feb 28 or 29). The
// result keeps day precision and t's location.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := lastDayOfMonth(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// lastDayOfMonth returns the number of days in the given month. Day zero of
// the following month normalizes to the last day of this one.
func lastDayOfMonth(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// intervalSteppers maps intervals to their corresponding steppers.
// The set is closed: validation rejects any other interval before a
// template reaches expansion.
var intervalSteppers = map[core.Interval]IntervalStepper{
	core.Weekly:    WeeklyStepper{},
	core.Monthly:   MonthlyStepper{},
	core.Quarterly: QuarterlyStepper{},
	core.Yearly:    YearlyStepper{},
}

// StepperFor returns the stepper for a recurrence interval.
// Returns an error if the interval is not supported.
func StepperFor(interval core.Interval) (IntervalStepper, error) {
	stepper, ok := intervalSteppers[interval]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence interval: %s", interval)
	}
	return stepper, nil
}
