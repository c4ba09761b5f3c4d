package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

// RenderPDF writes the summary, its category breakdown and the tips as an A4
// document.
func RenderPDF(s Summary, tips []string, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Relatorio financeiro", true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(stripWide(s)) }

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, text("Relatório financeiro"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, text(periodLabel(s)))
	pdf.Ln(6)
	pdf.Cell(0, 6, text("Gerado em "+generatedAt.Format("02/01/2006 15:04")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Totais")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Entradas", s.TotalIncome.String()},
		{"Gastos", s.TotalExpense.String()},
		{"Despesas fixas", s.TotalFixed.String()},
		{"Dívidas", s.TotalDebt.String()},
		{"Saldo", s.Balance.String()},
	}
	for _, r := range rows {
		pdf.CellFormat(80, 7, text(r[0]), "B", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, text(r[1]), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, text("Gastos por categoria"))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	if len(s.ByCategory) == 0 {
		pdf.Cell(0, 7, text("Nenhum gasto no período."))
		pdf.Ln(7)
	}
	for _, c := range s.ByCategory {
		pdf.CellFormat(80, 7, text(c.Category), "B", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, text(c.Amount.String()), "B", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, c.Percentage.StringFixed(1)+"%", "B", 1, "R", false, 0, "")
	}

	if len(tips) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Dicas")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, t := range tips {
			pdf.MultiCell(0, 6, text("- "+strings.TrimSpace(t)), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func periodLabel(s Summary) string {
	p := s.Period
	switch {
	case !p.Bounded():
		return "Período: todos os lançamentos"
	case p.Start.IsEmpty():
		return "Período: até " + p.End.Format("02/01/2006")
	case p.End.IsEmpty():
		return "Período: a partir de " + p.Start.Format("02/01/2006")
	}
	return fmt.Sprintf("Período: %s a %s", p.Start.Format("02/01/2006"), p.End.Format("02/01/2006"))
}

// stripWide drops runes the core PDF fonts cannot encode, such as emoji.
func stripWide(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r > 0xFF {
			return -1
		}
		return r
	}, s))
}
