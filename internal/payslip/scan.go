package payslip

import (
	"regexp"
	"strconv"
	"time"

	"financas/internal/core"
)

const (
	WarnNetMissing   = "valor líquido não encontrado"
	WarnGrossMissing = "valor bruto não encontrado"
	WarnDateMissing  = "data não encontrada"
	WarnNoText       = "nenhum texto extraído do documento"
)

// amount matches Brazilian formatted values: 3.250,00 or 3250,00
const amountPattern = `(\d{1,3}(?:\.\d{3})+,\d{2}|\d+,\d{2})`

var (
	netLabels = []string{
		"liquido a receber", "valor liquido", "total liquido", "salario liquido", "liquido",
	}
	grossLabels = []string{
		"total de vencimentos", "total vencimentos", "salario bruto", "total bruto", "valor bruto", "vencimentos",
	}
	payDateLabels = []string{
		"data de pagamento", "data pagamento", "data do credito", "pago em", "credito em",
	}

	netPatterns     = labelPatterns(netLabels, amountPattern)
	grossPatterns   = labelPatterns(grossLabels, amountPattern)
	payDatePatterns = labelPatterns(payDateLabels, `(\d{2})/(\d{2})/(\d{4})`)

	fullDateRe  = regexp.MustCompile(`(?:^|[^0-9/])(\d{2})/(\d{2})/(\d{4})`)
	monthYearRe = regexp.MustCompile(`(?:^|[^0-9/])(\d{2})/(\d{4})(?:[^0-9/]|$)`)
	monthNameRe = regexp.MustCompile(`(janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)\s*(?:de|/|-)?\s*(\d{4})`)
)

var monthNames = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February, "marco": time.March,
	"abril": time.April, "maio": time.May, "junho": time.June,
	"julho": time.July, "agosto": time.August, "setembro": time.September,
	"outubro": time.October, "novembro": time.November, "dezembro": time.December,
}

func labelPatterns(labels []string, value string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(labels))
	for i, l := range labels {
		out[i] = regexp.MustCompile(regexp.QuoteMeta(l) + `[^0-9]{0,40}?` + value)
	}
	return out
}

// scan looks for the net pay, gross pay and payment date in extracted text.
// Every field it cannot find adds one warning.
func scan(text string) core.PayslipAnalysis {
	folded := core.Fold(text)
	var a core.PayslipAnalysis

	if m, ok := findAmount(folded, netPatterns); ok {
		a.NetAmount = &m
	} else {
		a.Warnings = append(a.Warnings, WarnNetMissing)
	}
	if m, ok := findAmount(folded, grossPatterns); ok {
		a.GrossAmount = &m
	} else {
		a.Warnings = append(a.Warnings, WarnGrossMissing)
	}
	if d, ok := findDate(folded); ok {
		a.DetectedDate = &d
	} else {
		a.Warnings = append(a.Warnings, WarnDateMissing)
	}
	return a
}

func findAmount(text string, patterns []*regexp.Regexp) (core.Money, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := core.ParseAmount(m[1]); err == nil {
			return v, true
		}
	}
	return core.Money{}, false
}

func findDate(text string) (core.Date, bool) {
	for _, re := range payDatePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if d, ok := dayMonthYear(m[1], m[2], m[3]); ok {
				return d, true
			}
		}
	}
	if m := fullDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := dayMonthYear(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	if m := monthYearRe.FindStringSubmatch(text); m != nil {
		if d, ok := dayMonthYear("01", m[1], m[2]); ok {
			return d, true
		}
	}
	if m := monthNameRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[2])
		return core.NewDate(year, int(monthNames[m[1]]), 1), true
	}
	return core.Date{}, false
}

func dayMonthYear(day, month, year string) (core.Date, bool) {
	d, _ := strconv.Atoi(day)
	m, _ := strconv.Atoi(month)
	y, _ := strconv.Atoi(year)
	if d < 1 || m < 1 || m > 12 || y < 1900 {
		return core.Date{}, false
	}
	if d > core.LastDayOfMonth(y, time.Month(m)) {
		return core.Date{}, false
	}
	return core.NewDate(y, m, d), true
}
