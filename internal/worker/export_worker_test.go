package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/export/memory"
	"contas/internal/storage"
)

func setup(t *testing.T) (*ExportWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	store := memory.New()
	return NewExportWorker(repo, store, 10), repo, store
}

func seedSettled(t *testing.T, repo *storage.SQLiteRepository) core.Transaction {
	t.Helper()
	ctx := context.Background()
	account, err := repo.CreateAccount(ctx, core.Account{ID: uuid.New(), Name: "checking", Active: true})
	require.NoError(t, err)

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		ID:          uuid.New(),
		AccountID:   account.ID,
		Description: "paid bill",
		Amount:      core.Money{Cents: 7000},
		Direction:   core.Expense,
		DueDate:     core.NewDate(2024, 1, 5),
		PaymentDate: core.NewDate(2024, 1, 6),
		Status:      core.StatusPaid,
	})
	require.NoError(t, err)
	return tx
}

func TestHandleSyncMessage(t *testing.T) {
	worker, repo, store := setup(t)
	ctx := context.Background()
	tx := seedSettled(t, repo)

	msg := amqp.NewSettlementSyncMessage(tx.ID.String(), amqp.KindSettled)
	require.NoError(t, worker.HandleSyncMessage(ctx, msg))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, tx.ID, items[0].ID)

	// The row is marked exported, the catch-up pass finds nothing.
	pending, err := repo.ListPendingExport(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestHandleSyncMessageVanishedTransaction(t *testing.T) {
	worker, _, store := setup(t)

	msg := amqp.NewSettlementSyncMessage(uuid.NewString(), amqp.KindSettled)
	assert.NoError(t, worker.HandleSyncMessage(context.Background(), msg))
	assert.Empty(t, store.Items())
}

func TestHandleSyncMessageDeletedKind(t *testing.T) {
	worker, repo, store := setup(t)
	tx := seedSettled(t, repo)

	msg := amqp.NewSettlementSyncMessage(tx.ID.String(), amqp.KindDeleted)
	assert.NoError(t, worker.HandleSyncMessage(context.Background(), msg))
	assert.Empty(t, store.Items())
}

func TestHandleSyncMessageBadID(t *testing.T) {
	worker, _, _ := setup(t)

	msg := amqp.NewSettlementSyncMessage("not-a-uuid", amqp.KindSettled)
	assert.Error(t, worker.HandleSyncMessage(context.Background(), msg))
}

func TestProcessPendingSettlements(t *testing.T) {
	worker, repo, store := setup(t)
	ctx := context.Background()
	seedSettled(t, repo)

	require.NoError(t, worker.ProcessPendingSettlements(ctx))
	assert.Len(t, store.Items(), 1)

	// Second run exports nothing new.
	require.NoError(t, worker.ProcessPendingSettlements(ctx))
	assert.Len(t, store.Items(), 1)
}

func TestStartupSyncCheck(t *testing.T) {
	worker, repo, store := setup(t)
	seedSettled(t, repo)

	require.NoError(t, worker.StartupSyncCheck(context.Background()))
	assert.Len(t, store.Items(), 1)
}
