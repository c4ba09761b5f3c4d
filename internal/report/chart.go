package report

const (
	FixedBucketLabel = "Despesas Fixas"
	EmptyChartLabel  = "Nenhum gasto"
)

// Chart is a pie chart series. Labels and Values always have the same length.
type Chart struct {
	Labels []string
	Values []float64
}

// ChartData lays out expense categories in summary order, followed by a
// bucket for fixed charges when there are any.
func ChartData(s Summary) Chart {
	c := Chart{
		Labels: make([]string, 0, len(s.ByCategory)+1),
		Values: make([]float64, 0, len(s.ByCategory)+1),
	}
	for _, cat := range s.ByCategory {
		c.Labels = append(c.Labels, cat.Category)
		c.Values = append(c.Values, cat.Amount.Reais())
	}
	if s.TotalFixed.Cents > 0 {
		c.Labels = append(c.Labels, FixedBucketLabel)
		c.Values = append(c.Values, s.TotalFixed.Reais())
	}
	if len(c.Labels) == 0 {
		c.Labels = append(c.Labels, EmptyChartLabel)
		c.Values = append(c.Values, 0)
	}
	return c
}
