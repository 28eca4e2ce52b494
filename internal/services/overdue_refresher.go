package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contas/internal/core"
	"contas/internal/storage"
)

// OverdueRefresher sweeps pending transactions whose due date has passed
// and marks them overdue. Recurring anchors are left alone, their dueness
// is derived at read time.
type OverdueRefresher struct {
	storage *storage.SQLiteRepository
	now     func() time.Time
}

func NewOverdueRefresher(storage *storage.SQLiteRepository) *OverdueRefresher {
	return &OverdueRefresher{
		storage: storage,
		now:     time.Now,
	}
}

// ProcessOverdue marks every pending past-due transaction overdue and
// returns how many rows changed.
func (p *OverdueRefresher) ProcessOverdue(ctx context.Context) (int, error) {
	now := p.now()

	pastDue, err := p.storage.ListPendingPastDue(ctx, core.DayOf(now))
	if err != nil {
		return 0, fmt.Errorf("list pending past due: %w", err)
	}

	updated := 0
	for _, tx := range pastDue {
		status, paymentDate := core.ResolveStatus(tx.DueDate, tx.PaymentDate, "", now)
		if status == tx.Status {
			continue
		}
		if err := p.storage.UpdateTransactionStatus(ctx, tx.ID, status, paymentDate); err != nil {
			return updated, fmt.Errorf("mark transaction %s overdue: %w", tx.ID, err)
		}
		updated++
	}

	if updated > 0 {
		slog.InfoContext(ctx, "Marked past-due transactions overdue", "count", updated)
	}

	return updated, nil
}
