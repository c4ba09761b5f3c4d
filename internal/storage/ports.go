package storage

import (
	"context"

	"golang.org/x/sync/errgroup"

	"financas/internal/core"
)

// Ports implemented by the SQLite repository and the in-memory store.
// Lookups of unknown ids fail with *core.NotFoundError.
type (
	LedgerStore interface {
		AddEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		AddDebt(ctx context.Context, d core.Debt) (core.Debt, error)
		UpsertFixedCharge(ctx context.Context, f core.FixedCharge) error

		// ListEntries returns incomes and expenses in insertion order.
		ListEntries(ctx context.Context) ([]core.Entry, error)
		ListDebts(ctx context.Context) ([]core.Debt, error)
		ListFixedCharges(ctx context.Context) ([]core.FixedCharge, error)

		GetEntry(ctx context.Context, id int64) (core.Entry, error)
		GetDebt(ctx context.Context, id int64) (core.Debt, error)

		// DeleteEntry and DeleteDebt report whether a record was removed.
		DeleteEntry(ctx context.Context, id int64) (bool, error)
		DeleteDebt(ctx context.Context, id int64) (bool, error)
	}

	AttachmentStore interface {
		AddAttachment(ctx context.Context, a core.Attachment) (core.Attachment, error)
		// ListAttachments returns metadata without file bytes, newest upload
		// first. An empty period lists everything.
		ListAttachments(ctx context.Context, period string) ([]core.Attachment, error)
		GetAttachment(ctx context.Context, id int64) (core.Attachment, error)
	}

	PayslipStore interface {
		AddPayslip(ctx context.Context, p core.Payslip) (core.Payslip, error)
		UpdatePayslipAnalysis(ctx context.Context, id int64, status core.PayslipStatus, a core.PayslipAnalysis) error
		// ListPayslips returns metadata and analysis without file bytes,
		// newest upload first.
		ListPayslips(ctx context.Context) ([]core.Payslip, error)
		GetPayslip(ctx context.Context, id int64) (core.Payslip, error)
		DeletePayslip(ctx context.Context, id int64) (bool, error)
	}

	Store interface {
		LedgerStore
		AttachmentStore
		PayslipStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// Ledger loads a full snapshot from s, splitting entries by kind. The three
// lists are requested concurrently; SQLiteRepository holds a single
// connection, so against it the queries still run one after another.
func Ledger(ctx context.Context, s LedgerStore) (core.Ledger, error) {
	var (
		l       core.Ledger
		entries []core.Entry
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.ListEntries(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		l.Debts, err = s.ListDebts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		l.Fixed, err = s.ListFixedCharges(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Ledger{}, err
	}

	for _, e := range entries {
		if e.Kind == core.KindIncome {
			l.Incomes = append(l.Incomes, e)
		} else {
			l.Expenses = append(l.Expenses, e)
		}
	}
	return l, nil
}
