package services

import (
	"fmt"
	"time"

	"contas/internal/core"
)

// ExpandDates materializes the occurrence dates of a recurrence template
// inside the half-open window [windowStart, windowEnd). The result is
// ordered, strictly increasing and deterministic: identical inputs always
// produce identical output, since recurring obligations are re-expanded on
// every query instead of being stored as rows.
//
// An empty window (windowEnd <= windowStart) or a template starting at or
// after windowEnd yields an empty result, not an error.
func ExpandDates(tmpl core.RecurrenceTemplate, windowStart, windowEnd time.Time) ([]time.Time, error) {
	if !windowEnd.After(windowStart) {
		return nil, nil
	}

	stepper, err := StepperFor(tmpl.Interval)
	if err != nil {
		return nil, err
	}

	effectiveStart := windowStart
	if tmpl.Start.After(effectiveStart) {
		effectiveStart = tmpl.Start
	}
	effectiveEnd := windowEnd
	if !tmpl.End.IsZero() && tmpl.End.Before(effectiveEnd) {
		effectiveEnd = tmpl.End
	}

	// Advance step by step; a closed form is not possible because month
	// lengths vary under clamping.
	n := 0
	anchor := tmpl.Start
	for anchor.Before(effectiveStart) {
		n++
		anchor = stepper.Step(tmpl.Start, n)
	}

	var dates []time.Time
	for anchor.Before(effectiveEnd) {
		dates = append(dates, anchor)
		n++
		anchor = stepper.Step(tmpl.Start, n)
	}
	return dates, nil
}

// Expand materializes the occurrences of a recurring anchor transaction
// inside [windowStart, windowEnd). Each occurrence inherits the anchor's
// amount and direction unchanged: no proration, no compounding.
func Expand(anchor core.Transaction, windowStart, windowEnd time.Time) ([]core.Occurrence, error) {
	if anchor.Recurrence == nil {
		return nil, fmt.Errorf("transaction %s has no recurrence template", anchor.ID)
	}

	dates, err := ExpandDates(*anchor.Recurrence, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	occurrences := make([]core.Occurrence, 0, len(dates))
	for _, d := range dates {
		occurrences = append(occurrences, core.Occurrence{
			Date:      d,
			Amount:    anchor.Amount,
			Direction: anchor.Direction,
		})
	}
	return occurrences, nil
}
