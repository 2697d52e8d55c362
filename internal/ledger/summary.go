package ledger

import (
	"time"

	"warung/internal/core"
)

// ProfitSummary is today's income against today's outgoing money.
type ProfitSummary struct {
	Date          time.Time
	IncomeTotal   int64
	OutgoingTotal int64
	IncomeCount   int
	OutgoingCount int
}

// Profit is income minus expenses and purchases; negative means a loss.
func (p ProfitSummary) Profit() int64 {
	return p.IncomeTotal - p.OutgoingTotal
}

// Margin is profit as a percentage of income, or 0 without income.
func (p ProfitSummary) Margin() float64 {
	if p.IncomeTotal <= 0 {
		return 0
	}
	return float64(p.Profit()) / float64(p.IncomeTotal) * 100
}

// ItemSales aggregates income records sharing the same item text.
type ItemSales struct {
	Item     string
	Quantity int64
	Total    int64
}

// Report is the aggregate of one period window.
type Report struct {
	Period        core.Period
	From          time.Time
	To            time.Time
	Count         int
	IncomeTotal   int64
	OutgoingTotal int64
	Items         []ItemSales // income only, first seen in newest-first order
}

// IsEmpty reports whether no record fell in the window.
func (r Report) IsEmpty() bool {
	return r.Count == 0
}

func (r Report) Profit() int64 {
	return r.IncomeTotal - r.OutgoingTotal
}
