package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/resilience"
	"financas/internal/sheets"
	sheetsmem "financas/internal/sheets/memory"
	"financas/internal/storage/memory"
)

var fastRetry = resilience.RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

func TestHandleEvent_CreatedAndDeleted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(store, mirror, nil).WithRetry(fastRetry)

	e, _ := store.AddEntry(ctx, core.Entry{
		Kind:        core.KindExpense,
		Description: "Mercado",
		Amount:      core.FromCents(5000),
		Category:    "alimentação",
		Date:        core.NewDate(2024, 5, 2),
	})
	d, _ := store.AddDebt(ctx, core.Debt{
		Description: "Cartão",
		Amount:      core.FromCents(20000),
		CreatedDate: core.NewDate(2024, 5, 1),
	})

	for _, ev := range []*amqp.LedgerEvent{
		amqp.NewLedgerEvent(amqp.ActionCreated, core.KindExpense, e.ID, e.Description),
		amqp.NewLedgerEvent(amqp.ActionCreated, core.KindDebt, d.ID, d.Description),
	} {
		if err := w.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("HandleEvent(%s): %v", ev.Kind, err)
		}
	}

	rows := mirror.Rows()
	if len(rows) != 2 {
		t.Fatalf("mirrored %d rows, want 2", len(rows))
	}
	if rows[0].Category != "alimentação" || rows[0].Amount.Cents != 5000 {
		t.Errorf("unexpected expense row %+v", rows[0])
	}
	if rows[1].Date.String() != "2024-05-01" {
		t.Errorf("debt without due date should use created date, got %q", rows[1].Date.String())
	}

	if err := w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.ActionDeleted, core.KindExpense, e.ID, "")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows = mirror.Rows()
	if len(rows) != 1 || rows[0].Kind != core.KindDebt {
		t.Errorf("rows after delete = %+v", rows)
	}
}

func TestHandleEvent_SkipsVanishedRecord(t *testing.T) {
	mirror := sheetsmem.New()
	w := NewMirrorWorker(memory.New(), mirror, nil).WithRetry(fastRetry)

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.ActionCreated, core.KindIncome, 404, ""))
	if err != nil {
		t.Fatalf("expected vanished record to be skipped, got %v", err)
	}
	if len(mirror.Rows()) != 0 {
		t.Error("nothing should be mirrored")
	}
}

type flakyMirror struct {
	sheets.Mirror
	failures int
	calls    int
}

func (f *flakyMirror) AppendRow(ctx context.Context, r sheets.Row) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("503 backend unavailable")
	}
	return f.Mirror.AppendRow(ctx, r)
}

func TestHandleEvent_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e, _ := store.AddEntry(ctx, core.Entry{Kind: core.KindIncome, Description: "Salário", Amount: core.FromCents(100)})

	flaky := &flakyMirror{Mirror: sheetsmem.New(), failures: 2}
	w := NewMirrorWorker(store, flaky, nil).WithRetry(fastRetry)

	if err := w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.ActionCreated, core.KindIncome, e.ID, "")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("calls = %d, want 3", flaky.calls)
	}
}

func TestHandleEvent_ReturnsErrorWhenRetriesRunOut(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e, _ := store.AddEntry(ctx, core.Entry{Kind: core.KindIncome, Description: "Salário", Amount: core.FromCents(100)})

	flaky := &flakyMirror{Mirror: sheetsmem.New(), failures: 10}
	w := NewMirrorWorker(store, flaky, nil).WithRetry(fastRetry)

	if err := w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.ActionCreated, core.KindIncome, e.ID, "")); err == nil {
		t.Fatal("expected error")
	}
}
