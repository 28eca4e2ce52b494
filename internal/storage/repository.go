package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"contas/internal/core"
)

var (
	// ErrNotFound is returned when an account or transaction does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAccountHasTransactions is returned when deleting an account that
	// still owns transactions.
	ErrAccountHasTransactions = errors.New("account has transactions")
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	active := int64(0)
	if a.Active {
		active = 1
	}
	row, err := r.queries.InsertAccount(ctx, InsertAccountParams{
		ID:     a.ID.String(),
		Name:   a.Name,
		Active: active,
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return toAccount(row)
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return toAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		a, err := toAccount(row)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func (r *SQLiteRepository) SetAccountActive(ctx context.Context, id uuid.UUID, active bool) error {
	flag := int64(0)
	if active {
		flag = 1
	}
	if err := r.queries.SetAccountActive(ctx, SetAccountActiveParams{Active: flag, ID: id.String()}); err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	return nil
}

// DeleteAccount removes an account. Accounts that still own transactions
// cannot be removed.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	count, err := r.queries.CountTransactionsByAccount(ctx, id.String())
	if err != nil {
		return fmt.Errorf("count account transactions: %w", err)
	}
	if count > 0 {
		return ErrAccountHasTransactions
	}
	if err := r.queries.DeleteAccount(ctx, id.String()); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	row, err := r.queries.InsertTransaction(ctx, fromTransaction(tx))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return toTransaction(row)
}

// UpdateTransaction replaces every mutable field of an existing
// transaction.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	ins := fromTransaction(tx)
	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		AccountID:     ins.AccountID,
		Description:   ins.Description,
		AmountCents:   ins.AmountCents,
		Direction:     ins.Direction,
		Category:      ins.Category,
		DueDate:       ins.DueDate,
		PaymentDate:   ins.PaymentDate,
		Status:        ins.Status,
		RecurInterval: ins.RecurInterval,
		RecurStart:    ins.RecurStart,
		RecurEnd:      ins.RecurEnd,
		ID:            ins.ID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status core.Status, paymentDate time.Time) error {
	err := r.queries.UpdateTransactionStatus(ctx, UpdateTransactionStatusParams{
		Status:      string(status),
		PaymentDate: nullDate(paymentDate),
		ID:          id.String(),
	})
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.SoftDeleteTransaction(ctx, id.String()); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByAccount(ctx, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) ListRecurringTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListRecurringTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	return toTransactions(rows)
}

// ListPendingPastDue returns concrete pending transactions whose due date
// fell strictly before the given day.
func (r *SQLiteRepository) ListPendingPastDue(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	rows, err := r.queries.ListPendingPastDue(ctx, now.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list pending past due: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) ListPendingExport(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.ListPendingExport(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.MarkExported(ctx, id.String()); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.MarkExportError(ctx, id.String()); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	return nil
}

func toAccount(row Account) (core.Account, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse account id %q: %w", row.ID, err)
	}
	return core.Account{
		ID:     id,
		Name:   row.Name,
		Active: row.Active != 0,
	}, nil
}

func fromTransaction(tx core.Transaction) InsertTransactionParams {
	params := InsertTransactionParams{
		ID:          tx.ID.String(),
		AccountID:   tx.AccountID.String(),
		Description: tx.Description,
		AmountCents: tx.Amount.Cents,
		Direction:   string(tx.Direction),
		Category:    tx.Category,
		DueDate:     tx.DueDate.Format(DateLayout),
		PaymentDate: nullDate(tx.PaymentDate),
		Status:      string(tx.Status),
	}
	if tx.Recurrence != nil {
		params.RecurInterval = sql.NullString{String: string(tx.Recurrence.Interval), Valid: true}
		params.RecurStart = sql.NullString{String: tx.Recurrence.Start.Format(DateLayout), Valid: true}
		params.RecurEnd = nullDate(tx.Recurrence.End)
	}
	return params
}

func toTransaction(row Transaction) (core.Transaction, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction id %q: %w", row.ID, err)
	}
	accountID, err := uuid.Parse(row.AccountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse account id %q: %w", row.AccountID, err)
	}
	dueDate, err := parseDate(row.DueDate)
	if err != nil {
		return core.Transaction{}, err
	}
	paymentDate, err := parseNullDate(row.PaymentDate)
	if err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		ID:          id,
		AccountID:   accountID,
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		Direction:   core.Direction(row.Direction),
		Category:    row.Category,
		DueDate:     dueDate,
		PaymentDate: paymentDate,
		Status:      core.Status(row.Status),
	}

	if row.RecurInterval.Valid {
		start, err := parseNullDate(row.RecurStart)
		if err != nil {
			return core.Transaction{}, err
		}
		end, err := parseNullDate(row.RecurEnd)
		if err != nil {
			return core.Transaction{}, err
		}
		tx.Recurrence = &core.RecurrenceTemplate{
			Interval: core.Interval(row.RecurInterval.String),
			Start:    start,
			End:      end,
		}
	}

	return tx, nil
}

func toTransactions(rows []Transaction) ([]core.Transaction, error) {
	txns := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		txns = append(txns, tx)
	}
	return txns, nil
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(DateLayout), Valid: true}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func parseNullDate(s sql.NullString) (time.Time, error) {
	if !s.Valid {
		return time.Time{}, nil
	}
	return parseDate(s.String)
}
