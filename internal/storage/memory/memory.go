// Package memory is a process-local implementation of the storage ports,
// used for local development and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/storage"
)

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	nextID      int64
	entries     []core.Entry
	debts       []core.Debt
	fixed       map[string]core.Money
	attachments []core.Attachment
	payslips    []core.Payslip
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now, fixed: make(map[string]core.Money)}
}

// WithClock replaces the time source used for upload timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) AddEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *Store) AddDebt(_ context.Context, d core.Debt) (core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.id()
	s.debts = append(s.debts, d)
	return d, nil
}

func (s *Store) UpsertFixedCharge(_ context.Context, f core.FixedCharge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixed[f.Name] = f.Monthly
	return nil
}

func (s *Store) ListEntries(context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries), nil
}

func (s *Store) ListDebts(context.Context) ([]core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.debts), nil
}

func (s *Store) ListFixedCharges(context.Context) ([]core.FixedCharge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FixedCharge, 0, len(s.fixed))
	for name, m := range s.fixed {
		out = append(out, core.FixedCharge{Name: name, Monthly: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id int64) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Entry{}, &core.NotFoundError{Resource: "entry", ID: id}
}

func (s *Store) GetDebt(_ context.Context, id int64) (core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.debts {
		if d.ID == id {
			return d, nil
		}
	}
	return core.Debt{}, &core.NotFoundError{Resource: "debt", ID: id}
}

func (s *Store) DeleteEntry(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = slices.DeleteFunc(s.entries, func(e core.Entry) bool { return e.ID == id })
	return len(s.entries) < n, nil
}

func (s *Store) DeleteDebt(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.debts)
	s.debts = slices.DeleteFunc(s.debts, func(d core.Debt) bool { return d.ID == id })
	return len(s.debts) < n, nil
}

func (s *Store) AddAttachment(_ context.Context, a core.Attachment) (core.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	if a.UploadedAt.IsZero() {
		a.UploadedAt = s.now()
	}
	a.Data = slices.Clone(a.Data)
	s.attachments = append(s.attachments, a)
	return a, nil
}

func (s *Store) ListAttachments(_ context.Context, period string) ([]core.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Attachment
	for i := len(s.attachments) - 1; i >= 0; i-- {
		a := s.attachments[i]
		if period != "" && a.Period != period {
			continue
		}
		a.Data = nil
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (s *Store) GetAttachment(_ context.Context, id int64) (core.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attachments {
		if a.ID == id {
			a.Data = slices.Clone(a.Data)
			return a, nil
		}
	}
	return core.Attachment{}, &core.NotFoundError{Resource: "attachment", ID: id}
}

func (s *Store) AddPayslip(_ context.Context, p core.Payslip) (core.Payslip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	if p.UploadedAt.IsZero() {
		p.UploadedAt = s.now()
	}
	if p.Status == "" {
		p.Status = core.PayslipAnalyzed
	}
	p.Data = slices.Clone(p.Data)
	s.payslips = append(s.payslips, p)
	return p, nil
}

func (s *Store) UpdatePayslipAnalysis(_ context.Context, id int64, status core.PayslipStatus, a core.PayslipAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payslips {
		if s.payslips[i].ID == id {
			s.payslips[i].Status = status
			s.payslips[i].Analysis = a
			return nil
		}
	}
	return &core.NotFoundError{Resource: "payslip", ID: id}
}

func (s *Store) ListPayslips(context.Context) ([]core.Payslip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Payslip, 0, len(s.payslips))
	for i := len(s.payslips) - 1; i >= 0; i-- {
		p := s.payslips[i]
		p.Data = nil
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (s *Store) GetPayslip(_ context.Context, id int64) (core.Payslip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payslips {
		if p.ID == id {
			p.Data = slices.Clone(p.Data)
			return p, nil
		}
	}
	return core.Payslip{}, &core.NotFoundError{Resource: "payslip", ID: id}
}

func (s *Store) DeletePayslip(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.payslips)
	s.payslips = slices.DeleteFunc(s.payslips, func(p core.Payslip) bool { return p.ID == id })
	return len(s.payslips) < n, nil
}
