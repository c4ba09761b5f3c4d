// Package memory is a Mirror that keeps rows in process. The worker uses it
// when no spreadsheet is configured, and tests use it to observe mirroring.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"financas/internal/core"
	"financas/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// AppendRow stores r and returns a synthetic row reference.
func (m *Mirror) AppendRow(_ context.Context, r sheets.Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, r)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) RemoveRow(_ context.Context, kind core.EntryKind, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = slices.DeleteFunc(m.rows, func(r sheets.Row) bool {
		return r.Kind == kind && r.ID == id
	})
	return nil
}

// Rows returns a copy of the mirrored rows in insertion order.
func (m *Mirror) Rows() []sheets.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rows)
}
