package scoring

import (
	"math"

	"github.com/joelkehle/proposal-vetting/internal/proposal"
)

type Metrics struct {
	LTVCACRatio         float64 `json:"ltv_cac_ratio"`
	PaybackPeriodMonths Bound   `json:"payback_period_months"`
	BurnMultiple        Bound   `json:"burn_multiple"`
}

// CalculateMetrics derives the unit-economics ratios. Every division is
// guarded; a zero denominator yields 0 or Unbounded, never a fault.
func CalculateMetrics(p proposal.Proposal) Metrics {
	m := Metrics{
		PaybackPeriodMonths: Unbounded(),
		BurnMultiple:        Unbounded(),
	}

	if p.CAC > 0 {
		m.LTVCACRatio = p.LTV / p.CAC
		if p.ARR > 0 {
			revenuePerCustomerMonth := p.ARR / 12 / float64(max(p.CurrentCustomers, 1))
			m.PaybackPeriodMonths = BoundOf(p.CAC / revenuePerCustomerMonth)
		}
	}

	if p.BurnRate > 0 && p.CurrentMRR > 0 {
		netBurn := p.BurnRate - p.CurrentMRR
		if netBurn > 0 && p.MonthlyGrowthRate > 0 {
			m.BurnMultiple = BoundOf(netBurn / (p.CurrentMRR * p.MonthlyGrowthRate / 100))
		} else {
			m.BurnMultiple = BoundOf(0)
		}
	}
	return m
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
