// Package sheets mirrors the ledger into a spreadsheet so it can be browsed
// and shared outside the application.
package sheets

import (
	"context"
	"strconv"

	"financas/internal/core"
)

// Row is one mirrored record. ID and Kind together identify it in the sheet.
type Row struct {
	ID          int64
	Kind        core.EntryKind
	Date        core.Date
	Description string
	Category    string
	Amount      core.Money
}

// Header is written as the first row of an empty sheet.
var Header = []string{"ID", "Tipo", "Data", "Descrição", "Categoria", "Valor"}

// Values renders r in Header order. Amounts are written in reais with a dot
// so USER_ENTERED input keeps them numeric.
func (r Row) Values() []any {
	return []any{
		strconv.FormatInt(r.ID, 10),
		string(r.Kind),
		r.Date.String(),
		r.Description,
		r.Category,
		r.Amount.Decimal().StringFixed(2),
	}
}

// Mirror is the outbound port implemented by the Google client and by the
// in-memory mirror.
type Mirror interface {
	// AppendRow adds r and returns a reference to where it was written.
	AppendRow(ctx context.Context, r Row) (rowRef string, err error)
	// RemoveRow clears the row for (kind, id). Missing rows are not an error.
	RemoveRow(ctx context.Context, kind core.EntryKind, id int64) error
}
