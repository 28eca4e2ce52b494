package services

import (
	"time"

	"contas/internal/core"
)

// ProjectCashFlow combines concrete transactions and expanded recurring
// occurrences into one bucket per calendar month overlapping the half-open
// window [windowStart, windowEnd). The first and last buckets are clipped
// to the window bounds.
//
// A concrete transaction counts in the month of its relevant date (payment
// date once settled, due date otherwise). Recurring anchors are expanded
// on read and contribute only through their occurrences; passing an anchor
// in both slices cannot double-count it. An empty window yields an empty
// series.
func ProjectCashFlow(concrete, recurring []core.Transaction, windowStart, windowEnd time.Time) ([]core.MonthBucket, error) {
	if !windowEnd.After(windowStart) {
		return nil, nil
	}

	type key struct {
		year  int
		month time.Month
	}

	buckets := make(map[key]*core.MonthBucket)
	var series []core.MonthBucket

	// One bucket per overlapping calendar month, in order.
	for cursor := time.Date(windowStart.Year(), windowStart.Month(), 1, 0, 0, 0, 0, windowStart.Location()); cursor.Before(windowEnd); cursor = cursor.AddDate(0, 1, 0) {
		series = append(series, core.MonthBucket{Year: cursor.Year(), Month: cursor.Month()})
	}
	for i := range series {
		buckets[key{series[i].Year, series[i].Month}] = &series[i]
	}

	add := func(date time.Time, amount core.Money, direction core.Direction) {
		b, ok := buckets[key{date.Year(), date.Month()}]
		if !ok {
			return
		}
		switch direction {
		case core.Income:
			b.Income = b.Income.Add(amount)
		case core.Expense:
			b.Expense = b.Expense.Add(amount)
		}
	}

	for _, tx := range concrete {
		if tx.IsRecurring() {
			continue
		}
		if date := RelevantDate(tx); InWindow(date, windowStart, windowEnd) {
			add(date, tx.Amount, tx.Direction)
		}
	}

	for _, anchor := range recurring {
		if !anchor.IsRecurring() {
			continue
		}
		occurrences, err := Expand(anchor, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		for _, occ := range occurrences {
			add(occ.Date, occ.Amount, occ.Direction)
		}
	}

	for i := range series {
		series[i].Net = series[i].Income.Sub(series[i].Expense)
	}
	return series, nil
}
