// Package report turns a ledger snapshot into totals, chart series, advice
// and printable documents. Every function here is pure: callers pass the
// snapshot in and nothing is read from or written to storage.
package report

import (
	"slices"
	"sort"

	"financas/internal/core"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the expense total of one category and its share of all
// expenses, in percent with one decimal place.
type CategoryTotal struct {
	Category   string
	Amount     core.Money
	Percentage decimal.Decimal
}

// Summary is the aggregate view of a ledger over a period.
type Summary struct {
	Period        core.Period
	ReferenceDate core.Date

	TotalIncome  core.Money
	TotalExpense core.Money
	TotalFixed   core.Money
	TotalDebt    core.Money
	Balance      core.Money

	// ByCategory is ordered by category name so repeated calls agree.
	ByCategory []CategoryTotal

	// Debts are the debts that fell inside the period.
	Debts []core.Debt

	// Upcoming are the debts of the whole ledger due on or after the
	// reference date, regardless of the period. Due-date advice reads these
	// so that a debt due early next month is still flagged.
	Upcoming []core.Debt
}

// Summarize aggregates the ledger records that fall in p. Fixed charges are
// monthly and always count in full. ref is the date used for due-date advice.
func Summarize(l core.Ledger, p core.Period, ref core.Date) Summary {
	s := Summary{Period: p, ReferenceDate: ref}

	for e := range core.Filter(l.Incomes, p) {
		s.TotalIncome = s.TotalIncome.Add(e.Amount)
	}

	byCat := make(map[string]int64)
	for e := range core.Filter(l.Expenses, p) {
		s.TotalExpense = s.TotalExpense.Add(e.Amount)
		cat := e.Category
		if cat == "" {
			cat = core.DefaultCategory
		}
		byCat[cat] += e.Amount.Cents
	}

	for _, f := range l.Fixed {
		s.TotalFixed = s.TotalFixed.Add(f.Monthly)
	}

	s.Debts = slices.Collect(core.Filter(l.Debts, p))
	for _, d := range s.Debts {
		s.TotalDebt = s.TotalDebt.Add(d.Amount)
	}

	if !ref.IsEmpty() {
		for _, d := range l.Debts {
			if !d.DueDate.IsEmpty() && ref.DaysUntil(d.DueDate) >= 0 {
				s.Upcoming = append(s.Upcoming, d)
			}
		}
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpense).Sub(s.TotalFixed).Sub(s.TotalDebt)
	s.ByCategory = categoryTotals(byCat, s.TotalExpense.Cents)
	return s
}

// Category looks up a single category total.
func (s Summary) Category(name string) (CategoryTotal, bool) {
	for _, c := range s.ByCategory {
		if c.Category == name {
			return c, true
		}
	}
	return CategoryTotal{}, false
}

func categoryTotals(byCat map[string]int64, total int64) []CategoryTotal {
	names := make([]string, 0, len(byCat))
	for name := range byCat {
		names = append(names, name)
	}
	sort.Strings(names)

	amounts := make([]int64, len(names))
	for i, name := range names {
		amounts[i] = byCat[name]
	}
	tenths := percentTenths(amounts, total)

	out := make([]CategoryTotal, len(names))
	for i, name := range names {
		out[i] = CategoryTotal{
			Category:   name,
			Amount:     core.FromCents(amounts[i]),
			Percentage: decimal.New(tenths[i], -1),
		}
	}
	return out
}

// percentTenths returns each amount's share of total in tenths of a percent,
// rounded half-up. When independent rounding drifts the sum more than one
// tenth away from 100%, the largest remainders absorb the difference.
//
// 1000*amount exceeds int64 for large ledgers, so the division runs on
// decimals.
func percentTenths(amounts []int64, total int64) []int64 {
	out := make([]int64, len(amounts))
	if total <= 0 {
		return out
	}

	t := decimal.NewFromInt(total)
	thousand := decimal.NewFromInt(1000)
	rem := make([]decimal.Decimal, len(amounts))
	// roundsUp reports whether the remainder is at least half of total
	roundsUp := make([]bool, len(amounts))
	var sum int64
	for i, a := range amounts {
		q, r := decimal.NewFromInt(a).Mul(thousand).QuoRem(t, 0)
		out[i] = q.IntPart()
		rem[i] = r
		roundsUp[i] = r.Add(r).GreaterThanOrEqual(t)
		if roundsUp[i] {
			out[i]++
		}
		sum += out[i]
	}

	diff := 1000 - sum
	if diff >= -1 && diff <= 1 {
		return out
	}

	idx := make([]int, len(amounts))
	for i := range idx {
		idx[i] = i
	}
	if diff > 0 {
		// hand extra tenths to the values that were cut the most
		sort.SliceStable(idx, func(a, b int) bool { return rem[idx[a]].GreaterThan(rem[idx[b]]) })
		for _, i := range idx {
			if diff <= 1 {
				break
			}
			if !roundsUp[i] {
				out[i]++
				diff--
			}
		}
		return out
	}
	sort.SliceStable(idx, func(a, b int) bool { return rem[idx[a]].LessThan(rem[idx[b]]) })
	for _, i := range idx {
		if diff >= -1 {
			break
		}
		if roundsUp[i] && !rem[i].IsZero() {
			out[i]--
			diff++
		}
	}
	return out
}
