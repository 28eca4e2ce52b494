package services

import (
	"time"

	"contas/internal/core"
)

// PeriodStats is the aggregate report consumed by the reporting layer.
// All totals are derived on read from an immutable transaction snapshot.
type PeriodStats struct {
	TotalToReceive        core.Money
	TotalToPay            core.Money
	TotalReceived         core.Money
	TotalPaid             core.Money
	OverdueTodayCount     int
	CurrentMonthToReceive core.Money
	CurrentMonthToPay     core.Money
	CashFlow              []core.MonthBucket
}

// ComputePeriodStats derives the period report for the half-open window
// [windowStart, windowEnd) against the caller-supplied reference clock.
//
// Open totals sum concrete pending transactions due in the window plus the
// expanded occurrences of recurring templates; recurring anchors are
// excluded from the concrete sum so an anchor inside the window is never
// counted twice. Settled totals sum concrete paid transactions by payment
// date; occurrences are never individually settled.
func ComputePeriodStats(txns []core.Transaction, windowStart, windowEnd, now time.Time) (PeriodStats, error) {
	var stats PeriodStats

	recurring := make([]core.Transaction, 0)
	for _, tx := range txns {
		if tx.IsRecurring() {
			recurring = append(recurring, tx)
		}
	}

	toReceive, err := openTotal(txns, recurring, core.Income, windowStart, windowEnd)
	if err != nil {
		return stats, err
	}
	toPay, err := openTotal(txns, recurring, core.Expense, windowStart, windowEnd)
	if err != nil {
		return stats, err
	}
	stats.TotalToReceive = toReceive
	stats.TotalToPay = toPay

	stats.TotalReceived = SumBy(txns, func(tx core.Transaction) bool {
		return tx.Status == core.StatusPaid && tx.Direction == core.Income &&
			InWindow(tx.PaymentDate, windowStart, windowEnd)
	})
	stats.TotalPaid = SumBy(txns, func(tx core.Transaction) bool {
		return tx.Status == core.StatusPaid && tx.Direction == core.Expense &&
			InWindow(tx.PaymentDate, windowStart, windowEnd)
	})

	stats.OverdueTodayCount = CountBy(txns, func(tx core.Transaction) bool {
		return !tx.IsRecurring() && tx.Status == core.StatusOverdue && core.SameDay(tx.DueDate, now)
	})

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)
	monthToReceive, err := openTotal(txns, recurring, core.Income, monthStart, monthEnd)
	if err != nil {
		return stats, err
	}
	monthToPay, err := openTotal(txns, recurring, core.Expense, monthStart, monthEnd)
	if err != nil {
		return stats, err
	}
	stats.CurrentMonthToReceive = monthToReceive
	stats.CurrentMonthToPay = monthToPay

	stats.CashFlow, err = ProjectCashFlow(txns, recurring, windowStart, windowEnd)
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// openTotal sums what is still open in a window for one direction:
// concrete pending transactions due inside it, plus every expanded
// occurrence of the recurring templates.
func openTotal(txns, recurring []core.Transaction, direction core.Direction, windowStart, windowEnd time.Time) (core.Money, error) {
	total := SumBy(txns, func(tx core.Transaction) bool {
		return !tx.IsRecurring() && tx.Status == core.StatusPending && tx.Direction == direction &&
			InWindow(tx.DueDate, windowStart, windowEnd)
	})

	for _, anchor := range recurring {
		if anchor.Direction != direction {
			continue
		}
		occurrences, err := Expand(anchor, windowStart, windowEnd)
		if err != nil {
			return core.Money{}, err
		}
		for _, occ := range occurrences {
			total = total.Add(occ.Amount)
		}
	}
	return total, nil
}
