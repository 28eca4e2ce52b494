package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/export"
	"contas/internal/storage"
)

// ExportWorker ships settled transactions from SQLite to the configured
// export backend.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	exporter  export.SettlementExporter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter export.SettlementExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single settlement sync message from AMQP
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SettlementSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "kind", msg.Kind)

	id, err := uuid.Parse(msg.ID)
	if err != nil {
		return fmt.Errorf("parse transaction id %q: %w", msg.ID, err)
	}

	if msg.Kind == amqp.KindDeleted {
		// Nothing to ship for a deleted transaction. The row is already
		// soft-deleted locally and never left the database unexported.
		slog.InfoContext(ctx, "Skipping deleted transaction", "id", msg.ID)
		return nil
	}

	tx, err := w.storage.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between publish and consume. Drop the message.
		slog.WarnContext(ctx, "Transaction vanished before export", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.exportSettlement(ctx, tx); err != nil {
		return fmt.Errorf("export settlement: %w", err)
	}

	return nil
}

// ProcessPendingSettlements exports settled transactions that have not been
// shipped yet. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingSettlements(ctx context.Context) error {
	pending, err := w.storage.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending settlements: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending settlements", "count", len(pending))

	for _, tx := range pending {
		if err := w.exportSettlement(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export settlement", "id", tx.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck exports any settlements left behind while the worker was
// down. Uses a larger batch than the periodic catch-up.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.ListPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending settlements for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending settlements found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending settlements on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, tx := range pending {
		if err := w.exportSettlement(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export settlement during startup",
				"id", tx.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportSettlement(ctx context.Context, tx core.Transaction) error {
	if !tx.IsSettled() {
		// Reopened before the worker got to it. Leave the row alone, a
		// future settlement publishes again.
		slog.InfoContext(ctx, "Transaction no longer settled, skipping export", "id", tx.ID)
		return nil
	}

	ref, err := w.exporter.Append(ctx, tx)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to exporter: %w", err)
	}

	if err := w.storage.MarkExported(ctx, tx.ID); err != nil {
		// The export itself worked, only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully exported settlement",
		"id", tx.ID,
		"sheets_ref", ref,
		"description", tx.Description,
		"amount_cents", tx.Amount.Cents)

	return nil
}
