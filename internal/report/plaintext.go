package report

import (
	"fmt"
	"strings"

	"github.com/joelkehle/proposal-vetting/internal/scoring"
)

// PlainText is the summary served when the PDF cannot be produced.
func PlainText(in Input) string {
	p := in.Proposal
	card := in.Scorecard
	tam, sam, som := marketSizes(p)

	var b strings.Builder
	b.WriteString("# INVESTMENT ANALYSIS REPORT\n")
	fmt.Fprintf(&b, "# %s\n", p.CompanyName)
	fmt.Fprintf(&b, "Generated: %s\n\n", in.GeneratedAt.Format("2006-01-02 15:04"))

	b.WriteString("## EXECUTIVE SUMMARY\n")
	fmt.Fprintf(&b, "Overall Investment Score: %s\n", scoreText(card.Overall))
	fmt.Fprintf(&b, "Stage: %s\n", p.Stage)
	fmt.Fprintf(&b, "Industry: %s\n", p.Industry)
	fmt.Fprintf(&b, "Funding Seeking: %s\n\n", money(p.FundingSeeking))

	b.WriteString("## KEY METRICS SUMMARY\n")
	fmt.Fprintf(&b, "- LTV/CAC Ratio: %.2f\n", card.LTVCACRatio)
	fmt.Fprintf(&b, "- Monthly Growth Rate: %s%%\n", plain(p.MonthlyGrowthRate))
	fmt.Fprintf(&b, "- Burn Rate: %s/month\n", money(p.BurnRate))
	fmt.Fprintf(&b, "- Burn Multiple: %s\n", card.BurnMultiple.Format(2))
	fmt.Fprintf(&b, "- Runway: %s months\n", plain(p.RunwayMonths))
	fmt.Fprintf(&b, "- Gross Margin: %s%%\n", plain(p.GrossMargin))
	fmt.Fprintf(&b, "- ARR: %s\n\n", money(p.ARR))

	b.WriteString("## MARKET OPPORTUNITY\n")
	fmt.Fprintf(&b, "- TAM: $%sM\n", plain(tam))
	fmt.Fprintf(&b, "- SAM: $%sM\n", plain(sam))
	fmt.Fprintf(&b, "- SOM: $%sM\n\n", plain(som))

	b.WriteString("## SCORE BREAKDOWN\n")
	for _, w := range scoring.Weights {
		fmt.Fprintf(&b, "- %s Score: %s\n", w.Label, scoreText(card.SubScores.Get(w.Dimension)))
	}

	b.WriteString("\n## KEY RECOMMENDATIONS\n")
	for _, r := range in.Recommendations {
		fmt.Fprintf(&b, "\n### %s\n", r.Area)
		fmt.Fprintf(&b, "- Issue: %s\n", r.Issue)
		fmt.Fprintf(&b, "- Action: %s\n", r.Action)
	}

	if in.hasInsights() {
		fmt.Fprintf(&b, "\n## AI INVESTMENT THESIS\n%s\n", orNA(in.Insights.InvestmentThesis))
		fmt.Fprintf(&b, "\n## AI RECOMMENDATION\n%s\n", orNA(string(in.Insights.InvestmentRecommendation)))
	}
	return b.String()
}
