package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
	"contas/internal/storage"
)

func TestProcessOverdue(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	account, err := repo.CreateAccount(ctx, core.Account{ID: uuid.New(), Name: "checking", Active: true})
	require.NoError(t, err)

	insert := func(desc string, due time.Time, recurring bool) core.Transaction {
		tx := core.Transaction{
			ID:          uuid.New(),
			AccountID:   account.ID,
			Description: desc,
			Amount:      core.Money{Cents: 1000},
			Direction:   core.Expense,
			DueDate:     due,
			Status:      core.StatusPending,
		}
		if recurring {
			tx.Recurrence = &core.RecurrenceTemplate{Interval: core.Monthly, Start: due}
		}
		created, err := repo.CreateTransaction(ctx, tx)
		require.NoError(t, err)
		return created
	}

	late := insert("late", core.NewDate(2024, 1, 10), false)
	dueToday := insert("due today", core.NewDate(2024, 2, 1), false)
	future := insert("future", core.NewDate(2024, 3, 1), false)
	anchor := insert("recurring anchor", core.NewDate(2024, 1, 5), true)

	refresher := NewOverdueRefresher(repo)
	refresher.now = func() time.Time { return core.NewDate(2024, 2, 1) }

	updated, err := refresher.ProcessOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got, err := repo.GetTransaction(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusOverdue, got.Status)

	// Due today is not yet overdue, future stays pending, anchors are
	// never swept.
	for _, tx := range []core.Transaction{dueToday, future, anchor} {
		got, err := repo.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, core.StatusPending, got.Status, tx.Description)
	}

	// Second sweep is a no-op.
	updated, err = refresher.ProcessOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}
