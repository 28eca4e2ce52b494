package storage

import (
	"context"
	"database/sql"
	"time"
)

// DateLayout is how due, payment and recurrence dates are stored.
const DateLayout = "2006-01-02"

// DBTX is the subset of *sql.DB and *sql.Tx the query layer needs.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Account struct {
	ID        string
	Name      string
	Active    int64
	CreatedAt time.Time
}

type Transaction struct {
	ID            string
	AccountID     string
	Description   string
	AmountCents   int64
	Direction     string
	Category      string
	DueDate       string
	PaymentDate   sql.NullString
	Status        string
	RecurInterval sql.NullString
	RecurStart    sql.NullString
	RecurEnd      sql.NullString
	ExportStatus  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const insertAccount = `
INSERT INTO accounts (id, name, active)
VALUES (?, ?, ?)
RETURNING id, name, active, created_at
`

type InsertAccountParams struct {
	ID     string
	Name   string
	Active int64
}

func (q *Queries) InsertAccount(ctx context.Context, arg InsertAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, insertAccount, arg.ID, arg.Name, arg.Active)
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Active, &a.CreatedAt)
	return a, err
}

const getAccount = `
SELECT id, name, active, created_at
FROM accounts
WHERE id = ?
`

func (q *Queries) GetAccount(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRowContext(ctx, getAccount, id)
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Active, &a.CreatedAt)
	return a, err
}

const listAccounts = `
SELECT id, name, active, created_at
FROM accounts
ORDER BY name
`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const setAccountActive = `
UPDATE accounts SET active = ? WHERE id = ?
`

type SetAccountActiveParams struct {
	Active int64
	ID     string
}

func (q *Queries) SetAccountActive(ctx context.Context, arg SetAccountActiveParams) error {
	_, err := q.db.ExecContext(ctx, setAccountActive, arg.Active, arg.ID)
	return err
}

const countTransactionsByAccount = `
SELECT COUNT(*)
FROM transactions
WHERE account_id = ? AND deleted_at IS NULL
`

func (q *Queries) CountTransactionsByAccount(ctx context.Context, accountID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactionsByAccount, accountID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteAccount = `
DELETE FROM accounts WHERE id = ?
`

func (q *Queries) DeleteAccount(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteAccount, id)
	return err
}

const transactionColumns = `id, account_id, description, amount_cents, direction, category,
	due_date, payment_date, status, recur_interval, recur_start, recur_end,
	export_status, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.AccountID, &t.Description, &t.AmountCents, &t.Direction, &t.Category,
		&t.DueDate, &t.PaymentDate, &t.Status, &t.RecurInterval, &t.RecurStart, &t.RecurEnd,
		&t.ExportStatus, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

const insertTransaction = `
INSERT INTO transactions (
	id, account_id, description, amount_cents, direction, category,
	due_date, payment_date, status, recur_interval, recur_start, recur_end
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type InsertTransactionParams struct {
	ID            string
	AccountID     string
	Description   string
	AmountCents   int64
	Direction     string
	Category      string
	DueDate       string
	PaymentDate   sql.NullString
	Status        string
	RecurInterval sql.NullString
	RecurStart    sql.NullString
	RecurEnd      sql.NullString
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, insertTransaction,
		arg.ID, arg.AccountID, arg.Description, arg.AmountCents, arg.Direction, arg.Category,
		arg.DueDate, arg.PaymentDate, arg.Status, arg.RecurInterval, arg.RecurStart, arg.RecurEnd,
	)
	return scanTransaction(row)
}

const getTransaction = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ? AND deleted_at IS NULL
`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const updateTransaction = `
UPDATE transactions
SET account_id = ?, description = ?, amount_cents = ?, direction = ?, category = ?,
	due_date = ?, payment_date = ?, status = ?,
	recur_interval = ?, recur_start = ?, recur_end = ?,
	updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND deleted_at IS NULL
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	AccountID     string
	Description   string
	AmountCents   int64
	Direction     string
	Category      string
	DueDate       string
	PaymentDate   sql.NullString
	Status        string
	RecurInterval sql.NullString
	RecurStart    sql.NullString
	RecurEnd      sql.NullString
	ID            string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.AccountID, arg.Description, arg.AmountCents, arg.Direction, arg.Category,
		arg.DueDate, arg.PaymentDate, arg.Status, arg.RecurInterval, arg.RecurStart, arg.RecurEnd,
		arg.ID,
	)
	return scanTransaction(row)
}

const updateTransactionStatus = `
UPDATE transactions
SET status = ?, payment_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND deleted_at IS NULL
`

type UpdateTransactionStatusParams struct {
	Status      string
	PaymentDate sql.NullString
	ID          string
}

func (q *Queries) UpdateTransactionStatus(ctx context.Context, arg UpdateTransactionStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateTransactionStatus, arg.Status, arg.PaymentDate, arg.ID)
	return err
}

const softDeleteTransaction = `
UPDATE transactions
SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND deleted_at IS NULL
`

func (q *Queries) SoftDeleteTransaction(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, softDeleteTransaction, id)
	return err
}

const listTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE deleted_at IS NULL
ORDER BY due_date, id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactions)
}

const listTransactionsByAccount = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE account_id = ? AND deleted_at IS NULL
ORDER BY due_date, id
`

func (q *Queries) ListTransactionsByAccount(ctx context.Context, accountID string) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactionsByAccount, accountID)
}

const listRecurringTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE recur_interval IS NOT NULL AND deleted_at IS NULL
ORDER BY due_date, id
`

func (q *Queries) ListRecurringTransactions(ctx context.Context) ([]Transaction, error) {
	return q.queryTransactions(ctx, listRecurringTransactions)
}

const listPendingPastDue = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE status = 'pending' AND due_date < ? AND recur_interval IS NULL AND deleted_at IS NULL
ORDER BY due_date, id
`

func (q *Queries) ListPendingPastDue(ctx context.Context, before string) ([]Transaction, error) {
	return q.queryTransactions(ctx, listPendingPastDue, before)
}

const listPendingExport = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE status = 'paid' AND export_status = 'pending' AND deleted_at IS NULL
ORDER BY updated_at, id
LIMIT ?
`

func (q *Queries) ListPendingExport(ctx context.Context, limit int64) ([]Transaction, error) {
	return q.queryTransactions(ctx, listPendingExport, limit)
}

const markExported = `
UPDATE transactions
SET export_status = 'synced', exported_at = CURRENT_TIMESTAMP
WHERE id = ?
`

func (q *Queries) MarkExported(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markExported, id)
	return err
}

const markExportError = `
UPDATE transactions
SET export_status = 'error'
WHERE id = ?
`

func (q *Queries) MarkExportError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markExportError, id)
	return err
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
