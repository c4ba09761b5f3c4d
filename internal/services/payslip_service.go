package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"financas/internal/core"
	"financas/internal/metrics"
	"financas/internal/payslip"
	"financas/internal/resilience"
	"financas/internal/storage"
)

// maxConcurrentAnalyses bounds how many PDFs are parsed at once.
const maxConcurrentAnalyses = 2

// PayslipService stores payslips and analyzes them after they are safely
// written.
type PayslipService struct {
	store    storage.PayslipStore
	analyzer *payslip.Analyzer
	bulkhead *resilience.Bulkhead
	metrics  *metrics.Metrics
}

func NewPayslipService(store storage.PayslipStore, analyzer *payslip.Analyzer, m *metrics.Metrics) *PayslipService {
	return &PayslipService{
		store:    store,
		analyzer: analyzer,
		bulkhead: resilience.NewBulkhead(maxConcurrentAnalyses),
		metrics:  m,
	}
}

// Upload validates, stores and then analyzes a payslip.
//
// Non-PDF input fails with *core.UnsupportedFormatError and nothing is
// stored. Once stored, the payslip is returned even when analysis fails; the
// failure is recorded as a warning and the status becomes AnalysisFailed.
func (s *PayslipService) Upload(ctx context.Context, monthLabel, fileName string, data []byte) (core.Payslip, error) {
	ctx, span := tracer.Start(ctx, "PayslipService.Upload")
	defer span.End()
	span.SetAttributes(attribute.Int("payslip.bytes", len(data)))

	p := core.Payslip{
		MonthLabel: strings.TrimSpace(monthLabel),
		FileName:   strings.TrimSpace(fileName),
		Data:       data,
		Status:     core.PayslipStored,
	}
	if err := s.validate(p); err != nil {
		s.metrics.Upload("payslip", "rejected")
		return core.Payslip{}, err
	}

	saved, err := s.store.AddPayslip(ctx, p)
	if err != nil {
		s.metrics.Upload("payslip", "error")
		return core.Payslip{}, fmt.Errorf("save payslip: %w", err)
	}
	s.metrics.Upload("payslip", "stored")

	saved.Status, saved.Analysis = s.analyze(ctx, saved.Data)
	if err := s.store.UpdatePayslipAnalysis(ctx, saved.ID, saved.Status, saved.Analysis); err != nil {
		// the bytes are safe; the analysis can be redone
		slog.ErrorContext(ctx, "Failed to record payslip analysis", "payslip_id", saved.ID, "error", err)
	}
	s.metrics.PayslipAnalysis(string(saved.Status))

	slog.InfoContext(ctx, "Payslip uploaded",
		"payslip_id", saved.ID,
		"month", saved.MonthLabel,
		"status", saved.Status,
		"warnings", len(saved.Analysis.Warnings))
	return saved, nil
}

func (s *PayslipService) validate(p core.Payslip) error {
	if p.MonthLabel == "" {
		return &core.ValidationError{Field: "mes", Err: core.ErrEmptyMonthLabel}
	}
	if len(p.Data) == 0 {
		return &core.ValidationError{Field: "arquivo_dados", Err: core.ErrEmptyFile}
	}
	if err := core.CheckUploadSize(len(p.Data)); err != nil {
		return err
	}
	return s.analyzer.Validate(p.Data)
}

func (s *PayslipService) analyze(ctx context.Context, data []byte) (core.PayslipStatus, core.PayslipAnalysis) {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return core.PayslipAnalysisFailed, core.PayslipAnalysis{Warnings: []string{"análise cancelada: " + err.Error()}}
	}
	defer s.bulkhead.Release()

	analysis, err := s.analyzer.Analyze(ctx, data)
	var failure *core.AnalysisFailure
	switch {
	case err == nil:
		return core.PayslipAnalyzed, analysis
	case errors.As(err, &failure):
		return core.PayslipAnalysisFailed, analysis
	default:
		return core.PayslipAnalysisFailed, core.PayslipAnalysis{Warnings: []string{err.Error()}}
	}
}

// Reanalyze runs the analyzer again over stored bytes.
func (s *PayslipService) Reanalyze(ctx context.Context, id int64) (core.Payslip, error) {
	p, err := s.store.GetPayslip(ctx, id)
	if err != nil {
		return core.Payslip{}, err
	}
	p.Status, p.Analysis = s.analyze(ctx, p.Data)
	if err := s.store.UpdatePayslipAnalysis(ctx, id, p.Status, p.Analysis); err != nil {
		return core.Payslip{}, fmt.Errorf("update payslip analysis: %w", err)
	}
	s.metrics.PayslipAnalysis(string(p.Status))
	return p, nil
}

func (s *PayslipService) List(ctx context.Context) ([]core.Payslip, error) {
	return s.store.ListPayslips(ctx)
}

func (s *PayslipService) Fetch(ctx context.Context, id int64) (core.Payslip, error) {
	return s.store.GetPayslip(ctx, id)
}

// Delete fails with *core.NotFoundError for unknown ids.
func (s *PayslipService) Delete(ctx context.Context, id int64) error {
	ok, err := s.store.DeletePayslip(ctx, id)
	if err != nil {
		return fmt.Errorf("delete payslip: %w", err)
	}
	if !ok {
		return &core.NotFoundError{Resource: "payslip", ID: id}
	}
	slog.InfoContext(ctx, "Payslip deleted", "payslip_id", id)
	return nil
}
