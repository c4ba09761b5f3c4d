// Package services orchestrates the stores, the aggregation engine and the
// event publisher behind the HTTP handlers and the chat.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/metrics"
	"financas/internal/report"
	"financas/internal/storage"
)

var tracer = otel.Tracer("services")

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger operations across the store, the summary
// cache and AMQP.
type LedgerService struct {
	store   storage.LedgerStore
	events  EventPublisher
	policy  report.TipPolicy
	cache   *cache.LRUCache[report.Summary]
	group   singleflight.Group
	// gen counts writes; summaries are keyed by it so a load that raced a
	// write can never be served after that write.
	gen     atomic.Uint64
	metrics *metrics.Metrics
	now     func() time.Time
}

type LedgerOption func(*LedgerService)

// WithEvents publishes a LedgerEvent after every create and delete.
func WithEvents(p EventPublisher) LedgerOption {
	return func(s *LedgerService) { s.events = p }
}

// WithSummaryCache memoizes summaries per period until the next write.
func WithSummaryCache(c *cache.LRUCache[report.Summary]) LedgerOption {
	return func(s *LedgerService) { s.cache = c }
}

func WithTipPolicy(p report.TipPolicy) LedgerOption {
	return func(s *LedgerService) { s.policy = p }
}

func WithMetrics(m *metrics.Metrics) LedgerOption {
	return func(s *LedgerService) { s.metrics = m }
}

func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(store storage.LedgerStore, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		store:  store,
		policy: report.DefaultTipPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) today() core.Date {
	return core.DateOf(s.now())
}

// Listing holds the records of one period, newest first.
type Listing struct {
	Incomes  []core.Entry
	Expenses []core.Entry
	Debts    []core.Debt
}

// Report is a summary together with the advice derived from it.
type Report struct {
	Summary report.Summary
	Tips    []string
}

// FixedChargeResult is the outcome of saving one fixed charge.
type FixedChargeResult struct {
	Name    string
	Saved   bool
	Skipped bool
	Err     error
}

// AddEntry stores an income or expense. Expenses without a category get
// core.DefaultCategory, incomes never carry one, and a missing date becomes
// today.
func (s *LedgerService) AddEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	e.ID = 0
	switch e.Kind {
	case core.KindExpense:
		if e.Category == "" {
			e.Category = core.DefaultCategory
		}
	case core.KindIncome:
		e.Category = ""
	}
	if e.Date.IsEmpty() {
		e.Date = s.today()
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	saved, err := s.store.AddEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	s.invalidate()
	s.publish(ctx, amqp.ActionCreated, saved.Kind, saved.ID, saved.Description)
	return saved, nil
}

// AddDebt stores a debt stamped with today's date as its creation date. The
// due date is optional.
func (s *LedgerService) AddDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	d.ID = 0
	if d.CreatedDate.IsEmpty() {
		d.CreatedDate = s.today()
	}
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}

	saved, err := s.store.AddDebt(ctx, d)
	if err != nil {
		return core.Debt{}, fmt.Errorf("save debt: %w", err)
	}
	s.invalidate()
	s.publish(ctx, amqp.ActionCreated, core.KindDebt, saved.ID, saved.Description)
	return saved, nil
}

// SaveFixedCharge upserts one charge under its canonical name. Zero amounts
// are not persisted and report saved=false.
func (s *LedgerService) SaveFixedCharge(ctx context.Context, name string, amount core.Money) (bool, error) {
	canonical, err := core.CanonicalFixedCharge(name)
	if err != nil {
		return false, err
	}
	if err := amount.Validate(); err != nil {
		return false, &core.ValidationError{Field: "valor", Err: err}
	}
	if amount.IsZero() {
		return false, nil
	}

	if err := s.store.UpsertFixedCharge(ctx, core.FixedCharge{Name: canonical, Monthly: amount}); err != nil {
		return false, fmt.Errorf("save fixed charge: %w", err)
	}
	s.invalidate()
	slog.InfoContext(ctx, "Fixed charge saved", "name", canonical, "amount_cents", amount.Cents)
	return true, nil
}

// SaveFixedCharges saves each charge independently, in the canonical display
// order followed by unknown names. A failure does not undo earlier saves.
func (s *LedgerService) SaveFixedCharges(ctx context.Context, charges map[string]core.Money) []FixedChargeResult {
	names := make([]string, 0, len(charges))
	for name := range charges {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		ia, ib := fixedOrder(a), fixedOrder(b)
		if ia != ib {
			return ia - ib
		}
		return strings.Compare(a, b)
	})

	results := make([]FixedChargeResult, 0, len(names))
	for _, name := range names {
		saved, err := s.SaveFixedCharge(ctx, name, charges[name])
		results = append(results, FixedChargeResult{
			Name:    name,
			Saved:   saved,
			Skipped: err == nil && !saved,
			Err:     err,
		})
	}
	return results
}

func fixedOrder(name string) int {
	canonical, err := core.CanonicalFixedCharge(name)
	if err != nil {
		return len(core.FixedChargeNames)
	}
	return slices.Index(core.FixedChargeNames, canonical)
}

func (s *LedgerService) FixedCharges(ctx context.Context) ([]core.FixedCharge, error) {
	return s.store.ListFixedCharges(ctx)
}

// List returns the records inside p, newest first. Undated records only
// appear when p is unbounded.
func (s *LedgerService) List(ctx context.Context, p core.Period) (Listing, error) {
	ledger, err := storage.Ledger(ctx, s.store)
	if err != nil {
		return Listing{}, fmt.Errorf("load ledger: %w", err)
	}
	l := Listing{
		Incomes:  slices.Collect(core.Filter(ledger.Incomes, p)),
		Expenses: slices.Collect(core.Filter(ledger.Expenses, p)),
		Debts:    slices.Collect(core.Filter(ledger.Debts, p)),
	}
	slices.Reverse(l.Incomes)
	slices.Reverse(l.Expenses)
	slices.Reverse(l.Debts)
	return l, nil
}

// Summary aggregates the ledger over p as of today. Concurrent requests for
// the same period share one load.
func (s *LedgerService) Summary(ctx context.Context, p core.Period) (report.Summary, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.Summary")
	defer span.End()

	ref := s.today()
	gen := s.gen.Load()
	key := fmt.Sprintf("%s@%s#%d", p.Key(), ref, gen)
	span.SetAttributes(attribute.String("period", p.Key()))

	if s.cache != nil {
		if sum, ok := s.cache.Get(key); ok {
			s.metrics.SummaryCache(true)
			return sum, nil
		}
		s.metrics.SummaryCache(false)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		ledger, err := storage.Ledger(ctx, s.store)
		if err != nil {
			return report.Summary{}, err
		}
		sum := report.Summarize(ledger, p, ref)
		if s.cache != nil && s.gen.Load() == gen {
			s.cache.Set(key, sum)
		}
		return sum, nil
	})
	if err != nil {
		span.RecordError(err)
		return report.Summary{}, fmt.Errorf("load ledger: %w", err)
	}
	return v.(report.Summary), nil
}

// Report is Summary plus tips.
func (s *LedgerService) Report(ctx context.Context, p core.Period) (Report, error) {
	sum, err := s.Summary(ctx, p)
	if err != nil {
		return Report{}, err
	}
	return Report{Summary: sum, Tips: report.Tips(sum, s.policy)}, nil
}

func (s *LedgerService) Chart(ctx context.Context, p core.Period) (report.Chart, error) {
	sum, err := s.Summary(ctx, p)
	if err != nil {
		return report.Chart{}, err
	}
	return report.ChartData(sum), nil
}

// ReportPDF renders the report for p as a PDF document.
func (s *LedgerService) ReportPDF(ctx context.Context, p core.Period) ([]byte, error) {
	r, err := s.Report(ctx, p)
	if err != nil {
		return nil, err
	}
	_, span := tracer.Start(ctx, "LedgerService.ReportPDF")
	defer span.End()
	return report.RenderPDF(r.Summary, r.Tips, s.now())
}

// DeleteEntry fails with *core.NotFoundError for unknown ids.
func (s *LedgerService) DeleteEntry(ctx context.Context, id int64) error {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.store.DeleteEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if !ok {
		// removed concurrently
		return &core.NotFoundError{Resource: "entry", ID: id}
	}
	s.invalidate()
	s.publish(ctx, amqp.ActionDeleted, e.Kind, e.ID, e.Description)
	return nil
}

// DeleteDebt fails with *core.NotFoundError for unknown ids.
func (s *LedgerService) DeleteDebt(ctx context.Context, id int64) error {
	d, err := s.store.GetDebt(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.store.DeleteDebt(ctx, id)
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	if !ok {
		// removed concurrently
		return &core.NotFoundError{Resource: "debt", ID: id}
	}
	s.invalidate()
	s.publish(ctx, amqp.ActionDeleted, core.KindDebt, d.ID, d.Description)
	return nil
}

// DeleteMatching removes every entry and debt whose description contains
// term, ignoring case and accents. It returns how many records went away.
func (s *LedgerService) DeleteMatching(ctx context.Context, term string) (int, error) {
	needle := core.Fold(term)
	if needle == "" {
		return 0, &core.ValidationError{Field: "descricao", Err: core.ErrEmptyDescription}
	}

	ledger, err := storage.Ledger(ctx, s.store)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	var (
		removed int
		errs    []error
	)
	for _, e := range ledger.AllEntries() {
		if !containsFolded(e.Description, needle) {
			continue
		}
		switch err := s.DeleteEntry(ctx, e.ID); {
		case err == nil:
			removed++
		case !core.IsNotFound(err):
			errs = append(errs, err)
		}
	}
	for _, d := range ledger.Debts {
		if !containsFolded(d.Description, needle) {
			continue
		}
		switch err := s.DeleteDebt(ctx, d.ID); {
		case err == nil:
			removed++
		case !core.IsNotFound(err):
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

func containsFolded(s, foldedNeedle string) bool {
	return len(foldedNeedle) > 0 && strings.Contains(core.Fold(s), foldedNeedle)
}

func (s *LedgerService) invalidate() {
	s.gen.Add(1)
	if s.cache != nil {
		s.cache.Purge()
	}
}

// publish is best effort: the write already happened.
func (s *LedgerService) publish(ctx context.Context, action amqp.EventAction, kind core.EntryKind, id int64, desc string) {
	if s.events == nil {
		return
	}
	ev := amqp.NewLedgerEvent(action, kind, id, desc)
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"message_id", ev.MessageID,
			"action", action,
			"id", id,
			"error", err)
		s.metrics.Event(string(action), "error")
		return
	}
	s.metrics.Event(string(action), "ok")
}
