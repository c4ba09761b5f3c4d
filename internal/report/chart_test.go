package report

import (
	"slices"
	"testing"

	"financas/internal/core"
)

func TestChartData(t *testing.T) {
	day := core.NewDate(2025, 4, 3)
	l := core.Ledger{
		Expenses: []core.Entry{
			expense("Uber", 30_00, "transporte", day),
			expense("Mercado", 200_00, "alimentação", day),
			expense("Ônibus", 10_00, "transporte", day),
		},
		Fixed: []core.FixedCharge{{Name: "Internet", Monthly: core.FromCents(100_00)}},
	}
	c := ChartData(Summarize(l, april, day))

	wantLabels := []string{"alimentação", "transporte", FixedBucketLabel}
	if !slices.Equal(c.Labels, wantLabels) {
		t.Fatalf("labels = %v, want %v", c.Labels, wantLabels)
	}
	wantValues := []float64{200, 40, 100}
	if !slices.Equal(c.Values, wantValues) {
		t.Fatalf("values = %v, want %v", c.Values, wantValues)
	}
}

func TestChartData_Empty(t *testing.T) {
	c := ChartData(Summarize(core.Ledger{}, core.Period{}, core.Date{}))
	if !slices.Equal(c.Labels, []string{EmptyChartLabel}) || !slices.Equal(c.Values, []float64{0}) {
		t.Fatalf("empty chart = %+v", c)
	}
}

func TestChartData_StableOrder(t *testing.T) {
	day := core.NewDate(2025, 4, 3)
	a := core.Ledger{Expenses: []core.Entry{expense("1", 1, "z", day), expense("2", 1, "a", day)}}
	b := core.Ledger{Expenses: []core.Entry{expense("2", 1, "a", day), expense("1", 1, "z", day)}}
	ca := ChartData(Summarize(a, core.Period{}, day))
	cb := ChartData(Summarize(b, core.Period{}, day))
	if !slices.Equal(ca.Labels, cb.Labels) {
		t.Fatalf("label order depends on insertion order: %v vs %v", ca.Labels, cb.Labels)
	}
}
