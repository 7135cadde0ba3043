package scoring

import (
	"fmt"
	"strconv"

	"github.com/joelkehle/proposal-vetting/internal/proposal"
)

// Benchmarks the recommendation rules and report tables compare against.
const (
	BenchmarkLTVCAC       = 3.0
	BenchmarkRunwayMonths = 18.0
	BenchmarkGrossMargin  = 70.0
	BenchmarkGrowthRate   = 10.0
	BenchmarkChurnRate    = 5.0
	BenchmarkBurnMultiple = 2.0
)

// AllClearMessage is shown when no recommendation fires.
const AllClearMessage = "No specific recommendations. The company shows strong metrics across all areas."

type Recommendation struct {
	Area   string `json:"area"`
	Issue  string `json:"issue"`
	Action string `json:"action"`
}

type rule struct {
	area    string
	action  string
	applies func(p proposal.Proposal, m Metrics) bool
	issue   func(p proposal.Proposal, m Metrics) string
}

// rules run in this order and the output preserves it.
var rules = []rule{
	{
		area:    "Unit Economics",
		action:  "Focus on improving customer retention and reducing acquisition costs",
		applies: func(_ proposal.Proposal, m Metrics) bool { return m.LTVCACRatio < BenchmarkLTVCAC },
		issue: func(_ proposal.Proposal, m Metrics) string {
			return fmt.Sprintf("LTV/CAC ratio is %.1f (below 3.0 benchmark)", m.LTVCACRatio)
		},
	},
	{
		area:    "Financial Health",
		action:  "Extend runway to 18-24 months through fundraising or burn reduction",
		applies: func(p proposal.Proposal, _ Metrics) bool { return p.RunwayMonths < BenchmarkRunwayMonths },
		issue: func(p proposal.Proposal, _ Metrics) string {
			return fmt.Sprintf("Runway is only %s months", plain(p.RunwayMonths))
		},
	},
	{
		area:    "Business Model",
		action:  "Optimize pricing strategy and reduce COGS to improve margins",
		applies: func(p proposal.Proposal, _ Metrics) bool { return p.GrossMargin < BenchmarkGrossMargin },
		issue: func(p proposal.Proposal, _ Metrics) string {
			return fmt.Sprintf("Gross margin is %s%% (below SaaS benchmark)", plain(p.GrossMargin))
		},
	},
	{
		area:    "Growth",
		action:  "Accelerate growth through improved sales/marketing efficiency",
		applies: func(p proposal.Proposal, _ Metrics) bool { return p.MonthlyGrowthRate < BenchmarkGrowthRate },
		issue: func(p proposal.Proposal, _ Metrics) string {
			return fmt.Sprintf("Monthly growth rate is %s%%", plain(p.MonthlyGrowthRate))
		},
	},
	{
		area:    "Customer Retention",
		action:  "Implement customer success initiatives to reduce churn below 5%",
		applies: func(p proposal.Proposal, _ Metrics) bool { return p.ChurnRate > BenchmarkChurnRate },
		issue: func(p proposal.Proposal, _ Metrics) string {
			return fmt.Sprintf("Monthly churn rate is %s%%", plain(p.ChurnRate))
		},
	},
}

// Recommend compares the proposal against fixed benchmarks. An empty
// result means every benchmark is met.
func Recommend(p proposal.Proposal, m Metrics) []Recommendation {
	var out []Recommendation
	for _, r := range rules {
		if !r.applies(p, m) {
			continue
		}
		out = append(out, Recommendation{Area: r.area, Issue: r.issue(p, m), Action: r.action})
	}
	return out
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
