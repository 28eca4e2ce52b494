package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contas/internal/core"
)

func settledTx() core.Transaction {
	return core.Transaction{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		Description: "groceries",
		Amount:      core.Money{Cents: 4500},
		Direction:   core.Expense,
		DueDate:     core.NewDate(2024, 1, 10),
		PaymentDate: core.NewDate(2024, 1, 10),
		Status:      core.StatusPaid,
	}
}

func TestAppendAndItems(t *testing.T) {
	store := New()
	ctx := context.Background()

	ref, err := store.Append(ctx, settledTx())
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	ref, err = store.Append(ctx, settledTx())
	require.NoError(t, err)
	assert.Equal(t, "mem:2", ref)

	assert.Len(t, store.Items(), 2)
}

func TestAppendRejectsUnsettled(t *testing.T) {
	store := New()

	unpaid := settledTx()
	unpaid.Status = core.StatusPending
	unpaid.PaymentDate = time.Time{}

	_, err := store.Append(context.Background(), unpaid)
	assert.Error(t, err)
	assert.Empty(t, store.Items())
}

func TestAppendValidates(t *testing.T) {
	store := New()

	invalid := settledTx()
	invalid.Description = ""

	_, err := store.Append(context.Background(), invalid)
	assert.ErrorIs(t, err, core.ErrEmptyDescription)
	assert.Empty(t, store.Items())
}
