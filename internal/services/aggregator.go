package services

import (
	"time"

	"github.com/google/uuid"

	"contas/internal/core"
)

// Predicate selects transactions for a filtered total.
type Predicate func(core.Transaction) bool

// Balance derives an account balance from settled transactions:
// the sum of paid income minus the sum of paid expenses for that account.
// Pending and overdue transactions never move a balance.
func Balance(accountID uuid.UUID, txns []core.Transaction) core.Money {
	var balance core.Money
	for _, tx := range txns {
		if tx.AccountID != accountID || tx.Status != core.StatusPaid {
			continue
		}
		switch tx.Direction {
		case core.Income:
			balance = balance.Add(tx.Amount)
		case core.Expense:
			balance = balance.Sub(tx.Amount)
		}
	}
	return balance
}

// SumBy totals the amounts of transactions matching pred.
func SumBy(txns []core.Transaction, pred Predicate) core.Money {
	var total core.Money
	for _, tx := range txns {
		if pred(tx) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// CountBy counts the transactions matching pred.
func CountBy(txns []core.Transaction, pred Predicate) int {
	count := 0
	for _, tx := range txns {
		if pred(tx) {
			count++
		}
	}
	return count
}

// InWindow reports whether t falls inside the half-open range [start, end).
func InWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// RelevantDate is the date a transaction counts under in windowed
// aggregation: the payment date once settled, the due date otherwise.
func RelevantDate(tx core.Transaction) time.Time {
	if tx.Status == core.StatusPaid && !tx.PaymentDate.IsZero() {
		return tx.PaymentDate
	}
	return tx.DueDate
}
