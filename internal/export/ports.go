package export

import (
	"context"

	"contas/internal/core"
)

// SettlementExporter receives settled transactions bound for an external
// destination (a spreadsheet, an in-memory store in tests).
type SettlementExporter interface {
	Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}
