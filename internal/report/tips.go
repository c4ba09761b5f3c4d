package report

import (
	"fmt"
	"strings"
	"time"

	"financas/internal/core"

	"github.com/shopspring/decimal"
)

// TipPolicy holds the thresholds the advice rules compare against.
type TipPolicy struct {
	// FixedIncomeRatio flags fixed charges above this share of income.
	FixedIncomeRatio float64
	// CategoryShare flags a single category above this share of expenses.
	CategoryShare float64
	// DueHorizon flags debts due within this window of the reference date.
	DueHorizon time.Duration
	// LowBalance flags a non-negative balance below this amount.
	LowBalance core.Money
}

func DefaultTipPolicy() TipPolicy {
	return TipPolicy{
		FixedIncomeRatio: 0.30,
		CategoryShare:    0.40,
		DueHorizon:       7 * 24 * time.Hour,
		LowBalance:       core.FromCents(100_00),
	}
}

// Tips derives advice from a summary. Each rule adds at most one line and the
// output order is fixed: balance, fixed charges, category, due debts.
func Tips(s Summary, p TipPolicy) []string {
	var tips []string
	if t, ok := balanceTip(s, p); ok {
		tips = append(tips, t)
	}
	if t, ok := fixedRatioTip(s, p); ok {
		tips = append(tips, t)
	}
	if t, ok := categoryShareTip(s, p); ok {
		tips = append(tips, t)
	}
	if t, ok := dueDebtTip(s, p); ok {
		tips = append(tips, t)
	}
	return tips
}

func balanceTip(s Summary, p TipPolicy) (string, bool) {
	switch {
	case s.Balance.Cents < 0:
		return fmt.Sprintf("⚠️ Seu saldo está negativo (%s). Reduza gastos ou renegocie dívidas.", s.Balance), true
	case s.TotalIncome.Cents > 0 && s.Balance.Cents < p.LowBalance.Cents:
		return fmt.Sprintf("💡 Saldo baixo (%s). Evite gastos não essenciais até o próximo recebimento.", s.Balance), true
	}
	return "", false
}

func fixedRatioTip(s Summary, p TipPolicy) (string, bool) {
	if s.TotalFixed.Cents == 0 || p.FixedIncomeRatio <= 0 {
		return "", false
	}
	if s.TotalIncome.Cents == 0 {
		return fmt.Sprintf("🏠 Despesas fixas de %s sem nenhuma entrada registrada no período.", s.TotalFixed), true
	}
	fixed := s.TotalFixed.Decimal()
	limit := s.TotalIncome.Decimal().Mul(decimal.NewFromFloat(p.FixedIncomeRatio))
	if !fixed.GreaterThan(limit) {
		return "", false
	}
	share := fixed.Div(s.TotalIncome.Decimal()).Shift(2).Round(1)
	return fmt.Sprintf("🏠 Despesas fixas consomem %s%% da renda (sugerido até %s%%).",
		share.StringFixed(1), decimal.NewFromFloat(p.FixedIncomeRatio).Shift(2).String()), true
}

func categoryShareTip(s Summary, p TipPolicy) (string, bool) {
	if s.TotalExpense.Cents == 0 || p.CategoryShare <= 0 {
		return "", false
	}
	var top CategoryTotal
	for _, c := range s.ByCategory {
		if c.Amount.Cents > top.Amount.Cents {
			top = c
		}
	}
	limit := s.TotalExpense.Decimal().Mul(decimal.NewFromFloat(p.CategoryShare))
	if !top.Amount.Decimal().GreaterThan(limit) {
		return "", false
	}
	return fmt.Sprintf("📊 A categoria '%s' concentra %s%% dos gastos.", top.Category, top.Percentage.StringFixed(1)), true
}

func dueDebtTip(s Summary, p TipPolicy) (string, bool) {
	if s.ReferenceDate.IsEmpty() {
		return "", false
	}
	horizon := int(p.DueHorizon.Hours() / 24)
	var names []string
	var total core.Money
	for _, d := range s.Upcoming {
		if d.DueDate.IsEmpty() {
			continue
		}
		days := s.ReferenceDate.DaysUntil(d.DueDate)
		if days < 0 || days > horizon {
			continue
		}
		names = append(names, d.Description)
		total = total.Add(d.Amount)
	}
	if len(names) == 0 {
		return "", false
	}
	noun := "dívida vence"
	if len(names) > 1 {
		noun = "dívidas vencem"
	}
	return fmt.Sprintf("📅 %d %s nos próximos %d dias (%s): %s.",
		len(names), noun, horizon, total, strings.Join(names, ", ")), true
}
