// Package worker consumes ledger events and mirrors them into a spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/metrics"
	"financas/internal/resilience"
	"financas/internal/sheets"
	"financas/internal/storage"
)

// MirrorWorker handles synchronization of ledger records to a Mirror.
type MirrorWorker struct {
	store   storage.LedgerStore
	mirror  sheets.Mirror
	retry   resilience.RetryConfig
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func NewMirrorWorker(store storage.LedgerStore, mirror sheets.Mirror, m *metrics.Metrics) *MirrorWorker {
	return &MirrorWorker{
		store:   store,
		mirror:  mirror,
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewCircuitBreaker("sheets-mirror"),
		metrics: m,
	}
}

// WithRetry overrides the retry policy used for mirror calls.
func (w *MirrorWorker) WithRetry(cfg resilience.RetryConfig) *MirrorWorker {
	w.retry = cfg
	return w
}

// HandleEvent processes a single ledger event from AMQP. A returned error
// makes the consumer requeue the message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"message_id", ev.MessageID,
		"action", ev.Action,
		"kind", ev.Kind,
		"id", ev.ID)

	var err error
	switch ev.Action {
	case amqp.ActionCreated:
		err = w.mirrorCreated(ctx, ev)
	case amqp.ActionDeleted:
		err = w.call(ctx, func(ctx context.Context) error {
			return w.mirror.RemoveRow(ctx, ev.Kind, ev.ID)
		})
	default:
		err = fmt.Errorf("unknown action %q", ev.Action)
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	w.metrics.Mirror(string(ev.Action), result)
	return err
}

func (w *MirrorWorker) mirrorCreated(ctx context.Context, ev *amqp.LedgerEvent) error {
	row, err := w.loadRow(ctx, ev.Kind, ev.ID)
	if core.IsNotFound(err) {
		// deleted before we got to it; the delete event clears nothing
		slog.WarnContext(ctx, "Record no longer exists, skipping mirror", "kind", ev.Kind, "id", ev.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s %d: %w", ev.Kind, ev.ID, err)
	}

	var ref string
	err = w.call(ctx, func(ctx context.Context) error {
		var err error
		ref, err = w.mirror.AppendRow(ctx, row)
		return err
	})
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored record",
		"kind", row.Kind,
		"id", row.ID,
		"sheets_ref", ref,
		"amount_cents", row.Amount.Cents)
	return nil
}

func (w *MirrorWorker) loadRow(ctx context.Context, kind core.EntryKind, id int64) (sheets.Row, error) {
	if kind == core.KindDebt {
		d, err := w.store.GetDebt(ctx, id)
		if err != nil {
			return sheets.Row{}, err
		}
		return sheets.Row{
			ID:          d.ID,
			Kind:        core.KindDebt,
			Date:        d.RecordDate(),
			Description: d.Description,
			Amount:      d.Amount,
		}, nil
	}

	e, err := w.store.GetEntry(ctx, id)
	if err != nil {
		return sheets.Row{}, err
	}
	return sheets.Row{
		ID:          e.ID,
		Kind:        e.Kind,
		Date:        e.Date,
		Description: e.Description,
		Category:    e.Category,
		Amount:      e.Amount,
	}, nil
}

// call retries fn through the breaker. An open breaker stops retrying.
func (w *MirrorWorker) call(ctx context.Context, fn func(context.Context) error) error {
	return resilience.RetryWithBackoff(ctx, w.retry, func(ctx context.Context) error {
		_, err := w.breaker.Execute(func() (any, error) {
			return nil, fn(ctx)
		})
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return resilience.Permanent(err)
		}
		return err
	})
}
