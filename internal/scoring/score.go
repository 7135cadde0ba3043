package scoring

import (
	"fmt"
	"math"

	"github.com/joelkehle/proposal-vetting/internal/proposal"
)

type Dimension string

const (
	DimensionEfficiency Dimension = "efficiency"
	DimensionGrowth     Dimension = "growth"
	DimensionMarket     Dimension = "market"
	DimensionTeam       Dimension = "team"
	DimensionTraction   Dimension = "traction"
	DimensionRisk       Dimension = "risk"
)

type Weight struct {
	Dimension Dimension
	Label     string
	Weight    float64
}

// Weights is ordered as the sub-scores appear in reports and sums to 1.
var Weights = []Weight{
	{Dimension: DimensionEfficiency, Label: "Efficiency", Weight: 0.20},
	{Dimension: DimensionGrowth, Label: "Growth", Weight: 0.20},
	{Dimension: DimensionMarket, Label: "Market", Weight: 0.15},
	{Dimension: DimensionTeam, Label: "Team", Weight: 0.15},
	{Dimension: DimensionTraction, Label: "Traction", Weight: 0.20},
	{Dimension: DimensionRisk, Label: "Risk", Weight: 0.10},
}

type SubScores struct {
	Efficiency float64 `json:"efficiency_score"`
	Growth     float64 `json:"growth_score"`
	Market     float64 `json:"market_score"`
	Team       float64 `json:"team_score"`
	Traction   float64 `json:"traction_score"`
	Risk       float64 `json:"risk_score"`
}

func (s SubScores) Get(d Dimension) float64 {
	switch d {
	case DimensionEfficiency:
		return s.Efficiency
	case DimensionGrowth:
		return s.Growth
	case DimensionMarket:
		return s.Market
	case DimensionTeam:
		return s.Team
	case DimensionTraction:
		return s.Traction
	case DimensionRisk:
		return s.Risk
	}
	return 0
}

// Scorecard is the full derived set for one proposal. When Degraded is
// set every number is zero and Fault says why.
type Scorecard struct {
	Metrics
	SubScores
	Overall  float64 `json:"overall_score"`
	Degraded bool    `json:"degraded,omitempty"`
	Fault    string  `json:"-"`
}

func Overall(s SubScores) float64 {
	total := 0.0
	for _, w := range Weights {
		total += s.Get(w.Dimension) * w.Weight
	}
	return clamp(total)
}

// Score runs the metric, sub-score and aggregation steps. It never fails:
// a fault anywhere yields a zeroed, degraded scorecard so a report can
// still be produced.
func Score(p proposal.Proposal) (card Scorecard) {
	defer func() {
		if r := recover(); r != nil {
			card = degraded(fmt.Sprintf("panic: %v", r))
		}
	}()

	if field, ok := nonFiniteInput(p); ok {
		return degraded(fmt.Sprintf("non-finite value in %s", field))
	}

	m := CalculateMetrics(p)
	subs := SubScores{
		Efficiency: Efficiency(p, m),
		Growth:     Growth(p),
		Market:     Market(p),
		Team:       Team(p),
		Traction:   Traction(p),
		Risk:       Risk(p),
	}
	card = Scorecard{
		Metrics:   m,
		SubScores: subs,
		Overall:   Overall(subs),
	}
	if field, ok := nonFiniteOutput(card); ok {
		return degraded(fmt.Sprintf("non-finite value in %s", field))
	}
	return card
}

func degraded(fault string) Scorecard {
	return Scorecard{Degraded: true, Fault: fault}
}

// nonFiniteOutput catches derived numbers that overflowed even though every
// input was finite, e.g. an LTV near the float64 limit over a tiny CAC.
func nonFiniteOutput(c Scorecard) (string, bool) {
	fields := []struct {
		name string
		v    float64
	}{
		{"ltv_cac_ratio", c.LTVCACRatio},
		{"efficiency_score", c.Efficiency},
		{"growth_score", c.Growth},
		{"market_score", c.Market},
		{"team_score", c.Team},
		{"traction_score", c.Traction},
		{"risk_score", c.Risk},
		{"overall_score", c.Overall},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return f.name, true
		}
	}
	return "", false
}

func nonFiniteInput(p proposal.Proposal) (string, bool) {
	fields := []struct {
		name string
		v    float64
	}{
		{"tam", p.TAM},
		{"sam", p.SAM},
		{"som", p.SOM},
		{"current_mrr", p.CurrentMRR},
		{"arr", p.ARR},
		{"burn_rate", p.BurnRate},
		{"runway_months", p.RunwayMonths},
		{"cac", p.CAC},
		{"ltv", p.LTV},
		{"gross_margin", p.GrossMargin},
		{"funding_raised", p.FundingRaised},
		{"monthly_growth_rate", p.MonthlyGrowthRate},
		{"churn_rate", p.ChurnRate},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return f.name, true
		}
	}
	return "", false
}
