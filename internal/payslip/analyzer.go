// Package payslip reads net pay, gross pay and payment date out of payslip
// PDFs. Extraction is best-effort: a field that cannot be located is left
// empty and reported as a warning.
package payslip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"financas/internal/core"

	"github.com/ledongthuc/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("payslip")

var pdfMagic = []byte("%PDF-")

// Analyzer extracts structured values from payslip documents. It never
// modifies the bytes it is given.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Validate checks that data is a PDF the reader can open. It fails with
// *core.UnsupportedFormatError otherwise.
func (a *Analyzer) Validate(data []byte) error {
	_, err := open(data)
	return err
}

// Analyze validates data and scans its text.
//
// A document that is not a PDF yields *core.UnsupportedFormatError and no
// analysis. A PDF whose text cannot be extracted yields *core.AnalysisFailure
// together with an analysis whose warnings explain what went wrong.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (core.PayslipAnalysis, error) {
	_, span := tracer.Start(ctx, "Analyzer.Analyze")
	defer span.End()
	span.SetAttributes(attribute.Int("payslip.bytes", len(data)))

	r, err := open(data)
	if err != nil {
		return core.PayslipAnalysis{}, err
	}

	text, err := extractText(r)
	if err != nil {
		failure := &core.AnalysisFailure{Err: err}
		analysis := scan("")
		analysis.Warnings = append([]string{failure.Error()}, analysis.Warnings...)
		span.RecordError(failure)
		return analysis, failure
	}

	analysis := scan(text)
	if strings.TrimSpace(text) == "" {
		analysis.Warnings = append(analysis.Warnings, WarnNoText)
	}
	span.SetAttributes(attribute.Int("payslip.warnings", len(analysis.Warnings)))
	return analysis, nil
}

func open(data []byte) (r *pdf.Reader, err error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, &core.UnsupportedFormatError{Reason: "file is not a PDF"}
	}
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, &core.UnsupportedFormatError{Reason: fmt.Sprintf("malformed PDF: %v", p)}
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &core.UnsupportedFormatError{Reason: "malformed PDF: " + err.Error()}
	}
	return r, nil
}

func extractText(r *pdf.Reader) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("read pdf text: %v", p)
		}
	}()

	var b strings.Builder
	var errs []error
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", i, err))
			continue
		}
		b.WriteString(t)
		b.WriteByte('\n')
	}
	if b.Len() == 0 && len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return b.String(), nil
}
