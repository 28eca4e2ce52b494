package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/storage"
)

// LedgerService orchestrates account and transaction operations across
// SQLite and AMQP.
type LedgerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	now        func() time.Time
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		storage:    storage,
		amqpClient: amqpClient,
		now:        time.Now,
	}
}

// CreateAccount validates and persists a new account.
func (s *LedgerService) CreateAccount(ctx context.Context, name string) (core.Account, error) {
	account := core.Account{
		ID:     uuid.New(),
		Name:   name,
		Active: true,
	}
	if err := account.Validate(); err != nil {
		return core.Account{}, err
	}

	created, err := s.storage.CreateAccount(ctx, account)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

// DeactivateAccount flags an account inactive. Its transactions and
// derived balance stay untouched.
func (s *LedgerService) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	if _, err := s.storage.GetAccount(ctx, id); err != nil {
		return err
	}
	return s.storage.SetAccountActive(ctx, id, false)
}

// DeleteAccount removes an account. Fails with
// storage.ErrAccountHasTransactions when transactions still reference it.
func (s *LedgerService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if _, err := s.storage.GetAccount(ctx, id); err != nil {
		return err
	}
	return s.storage.DeleteAccount(ctx, id)
}

// CreateTransaction resolves the initial status, validates and persists a
// transaction, then notifies the export queue when it arrives already paid.
func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	status, paymentDate := core.ResolveStatus(tx.DueDate, tx.PaymentDate, tx.Status, s.now())
	tx.Status = status
	tx.PaymentDate = paymentDate

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if _, err := s.storage.GetAccount(ctx, tx.AccountID); err != nil {
		return core.Transaction{}, fmt.Errorf("account %s: %w", tx.AccountID, core.ErrMissingAccount)
	}

	created, err := s.storage.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if created.Status == core.StatusPaid {
		s.publish(ctx, created.ID, amqp.KindSettled)
	}

	return created, nil
}

// UpdateTransaction replaces the mutable fields of an existing
// transaction, re-resolving status unless the caller overrides it.
func (s *LedgerService) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	existing, err := s.storage.GetTransaction(ctx, tx.ID)
	if err != nil {
		return core.Transaction{}, err
	}

	status, paymentDate := core.ResolveStatus(tx.DueDate, tx.PaymentDate, tx.Status, s.now())
	tx.Status = status
	tx.PaymentDate = paymentDate

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.AccountID != existing.AccountID {
		if _, err := s.storage.GetAccount(ctx, tx.AccountID); err != nil {
			return core.Transaction{}, fmt.Errorf("account %s: %w", tx.AccountID, core.ErrMissingAccount)
		}
	}

	updated, err := s.storage.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	// A transaction settled by this update needs to reach the exporter.
	if updated.Status == core.StatusPaid && existing.Status != core.StatusPaid {
		s.publish(ctx, updated.ID, amqp.KindSettled)
	}

	return updated, nil
}

// SettleTransaction marks a transaction paid. A zero payment date defaults
// to the current time.
func (s *LedgerService) SettleTransaction(ctx context.Context, id uuid.UUID, paymentDate time.Time) (core.Transaction, error) {
	tx, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	status, resolvedDate := core.ResolveStatus(tx.DueDate, paymentDate, core.StatusPaid, s.now())
	if err := s.storage.UpdateTransactionStatus(ctx, id, status, resolvedDate); err != nil {
		return core.Transaction{}, fmt.Errorf("settle transaction: %w", err)
	}

	tx.Status = status
	tx.PaymentDate = resolvedDate
	s.publish(ctx, id, amqp.KindSettled)

	return tx, nil
}

// ReopenTransaction reverts a settled transaction to pending or overdue
// depending on its due date, clearing the payment date.
func (s *LedgerService) ReopenTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	tx, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}

	status, paymentDate := core.ResolveStatus(tx.DueDate, time.Time{}, "", s.now())
	if err := s.storage.UpdateTransactionStatus(ctx, id, status, paymentDate); err != nil {
		return core.Transaction{}, fmt.Errorf("reopen transaction: %w", err)
	}

	tx.Status = status
	tx.PaymentDate = paymentDate
	return tx, nil
}

// DeleteTransaction soft deletes a transaction and notifies the export queue.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if _, err := s.storage.GetTransaction(ctx, id); err != nil {
		return err
	}
	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publish(ctx, id, amqp.KindDeleted)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, id uuid.UUID, kind string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "id", id, "kind", kind)
		return
	}
	// The transaction is already durable locally, a failed publish must not
	// fail the request. The catch-up worker picks stragglers up later.
	if err := s.amqpClient.PublishSettlementSync(ctx, id.String(), kind); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "kind", kind, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
