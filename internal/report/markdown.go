// Package report turns a scored proposal into the investor-facing
// document: a markdown source rendered to PDF, with a plain-text summary
// when rendering is not possible.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joelkehle/proposal-vetting/internal/insights"
	"github.com/joelkehle/proposal-vetting/internal/proposal"
	"github.com/joelkehle/proposal-vetting/internal/scoring"
)

const Disclaimer = "This report is generated from the information supplied by the company and " +
	"is for informational purposes only. It is not investment advice. Scores and AI commentary " +
	"may be incomplete or wrong; conduct your own due diligence before making any investment decision."

// Input is everything a report is built from. Insights is nil when no
// usable AI analysis exists.
type Input struct {
	SubmissionID    string
	Proposal        proposal.Proposal
	Scorecard       scoring.Scorecard
	Recommendations []scoring.Recommendation
	Insights        *insights.Insights
	GeneratedAt     time.Time
}

func (in Input) hasInsights() bool {
	return in.Insights != nil && !in.Insights.IsFallback()
}

var printer = message.NewPrinter(language.English)

func money(v float64) string {
	return printer.Sprintf("$%.0f", v)
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func scoreText(v float64) string {
	return fmt.Sprintf("%.0f/100", v)
}

// Band names the overall score range.
func Band(overall float64) string {
	switch {
	case overall >= 70:
		return "Strong"
	case overall >= 50:
		return "Moderate"
	default:
		return "Weak"
	}
}

func check(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func row(cells ...string) string {
	for i, c := range cells {
		cells[i] = cellEscaper.Replace(c)
	}
	return "| " + strings.Join(cells, " | ") + " |\n"
}

func separator(n int) string {
	return "|" + strings.Repeat("---|", n) + "\n"
}

// marketSizes applies the display defaults for missing SAM and SOM.
func marketSizes(p proposal.Proposal) (tam, sam, som float64) {
	tam, sam, som = p.TAM, p.SAM, p.SOM
	if sam <= 0 {
		sam = tam * 0.1
	}
	if som <= 0 {
		som = tam * 0.01
	}
	return tam, sam, som
}

// BuildMarkdown assembles the full report source.
func BuildMarkdown(in Input) string {
	p := in.Proposal
	card := in.Scorecard
	var b strings.Builder

	b.WriteString("# INVESTMENT ANALYSIS REPORT\n\n")
	fmt.Fprintf(&b, "## %s\n\n", orNA(p.CompanyName))
	fmt.Fprintf(&b, "%s | %s\n\n", orNA(string(p.Industry)), orNA(string(p.Stage)))
	fmt.Fprintf(&b, "Generated: %s\n\n", in.GeneratedAt.Format("January 02, 2006"))
	if in.SubmissionID != "" {
		fmt.Fprintf(&b, "Submission: `%s`\n\n", in.SubmissionID)
	}

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(row("Item", "Value"))
	b.WriteString(separator(2))
	b.WriteString(row("Overall Investment Score", fmt.Sprintf("%s (%s)", scoreText(card.Overall), Band(card.Overall))))
	b.WriteString(row("Company Stage", orNA(string(p.Stage))))
	b.WriteString(row("Industry", orNA(string(p.Industry))))
	b.WriteString(row("Funding Seeking", money(p.FundingSeeking)))
	b.WriteString(row("Current ARR", money(p.ARR)))
	b.WriteString(row("Runway", plain(p.RunwayMonths)+" months"))
	b.WriteString("\n")
	if card.Degraded {
		b.WriteString("*Scoring could not be completed for this submission; all scores are shown as zero.*\n\n")
	}

	b.WriteString("### Investment Score Breakdown\n\n")
	b.WriteString(row("Dimension", "Weight", "Score", "Status"))
	b.WriteString(separator(4))
	for _, w := range scoring.Weights {
		s := card.SubScores.Get(w.Dimension)
		b.WriteString(row(w.Label, fmt.Sprintf("%.0f%%", w.Weight*100), scoreText(s), check(s >= 70)))
	}
	b.WriteString("\n")

	writeFinancials(&b, p, card.Metrics)
	writeMarket(&b, p)

	b.WriteString("## Business Overview\n\n")
	fmt.Fprintf(&b, "### Problem & Solution\n\n%s\n\n", orNotProvided(p.ProblemSolution))
	fmt.Fprintf(&b, "### Business Model\n\n%s\n\n", orNotProvided(p.BusinessModelDesc))
	fmt.Fprintf(&b, "### Competitive Advantage\n\n%s\n\n", orNotProvided(p.CompetitiveAdvantage))

	b.WriteString("## Team Analysis\n\n")
	b.WriteString(row("Team Metric", "Value"))
	b.WriteString(separator(2))
	b.WriteString(row("Team Size", strconv.Itoa(p.TeamSize)))
	b.WriteString(row("Technical Team", strconv.Itoa(p.TechnicalTeam)))
	b.WriteString(row("Technical Ratio", fmt.Sprintf("%.0f%%", float64(p.TechnicalTeam)/float64(max(p.TeamSize, 1))*100)))
	b.WriteString(row("Advisors", strconv.Itoa(p.AdvisorsCount)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "### Team Experience\n\n%s\n\n", orNotProvided(p.TeamExperience))

	if in.hasInsights() {
		writeInsights(&b, *in.Insights)
	}

	b.WriteString("## Recommendations & Action Items\n\n")
	if len(in.Recommendations) == 0 {
		b.WriteString(scoring.AllClearMessage + "\n\n")
	}
	for i, r := range in.Recommendations {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, r.Area)
		fmt.Fprintf(&b, "**Issue:** %s\n\n", r.Issue)
		fmt.Fprintf(&b, "**Action:** %s\n\n", r.Action)
	}

	b.WriteString("## Disclaimer\n\n")
	b.WriteString(Disclaimer + "\n")
	return b.String()
}

func writeFinancials(b *strings.Builder, p proposal.Proposal, m scoring.Metrics) {
	b.WriteString("## Key Financial Metrics\n\n")
	b.WriteString(row("Metric", "Value", "Benchmark", "Status"))
	b.WriteString(separator(4))
	b.WriteString(row("LTV/CAC Ratio", fmt.Sprintf("%.2f", m.LTVCACRatio), "≥ 3.0", check(m.LTVCACRatio >= scoring.BenchmarkLTVCAC)))
	b.WriteString(row("Monthly Growth Rate", plain(p.MonthlyGrowthRate)+"%", "≥ 10%", check(p.MonthlyGrowthRate >= scoring.BenchmarkGrowthRate)))
	b.WriteString(row("Gross Margin", plain(p.GrossMargin)+"%", "≥ 70%", check(p.GrossMargin >= scoring.BenchmarkGrossMargin)))
	b.WriteString(row("Burn Rate", money(p.BurnRate)+"/month", "Sustainable", check(p.RunwayMonths >= 12)))
	b.WriteString(row("Burn Multiple", m.BurnMultiple.Format(2), "≤ 2.0", check(m.BurnMultiple.AtMost(scoring.BenchmarkBurnMultiple))))
	payback := m.PaybackPeriodMonths.Format(1)
	if !m.PaybackPeriodMonths.IsUnbounded() {
		payback += " months"
	}
	b.WriteString(row("CAC Payback Period", payback, "-", "-"))
	b.WriteString(row("Runway", plain(p.RunwayMonths)+" months", "≥ 18 months", check(p.RunwayMonths >= scoring.BenchmarkRunwayMonths)))
	b.WriteString(row("Churn Rate", plain(p.ChurnRate)+"%", "≤ 5%", check(p.ChurnRate <= scoring.BenchmarkChurnRate)))
	b.WriteString("\n")
}

func writeMarket(b *strings.Builder, p proposal.Proposal) {
	tam, sam, som := marketSizes(p)
	b.WriteString("## Market Opportunity\n\n")
	b.WriteString(row("Market Segment", "Size"))
	b.WriteString(separator(2))
	b.WriteString(row("Total Addressable Market (TAM)", "$"+plain(tam)+"M"))
	b.WriteString(row("Serviceable Addressable Market (SAM)", "$"+plain(sam)+"M"))
	b.WriteString(row("Serviceable Obtainable Market (SOM)", "$"+plain(som)+"M"))
	b.WriteString(row("Current Market Capture", fmt.Sprintf("$%.2fM", p.ARR/1e6)))
	b.WriteString("\n")

	b.WriteString("### Revenue Trajectory\n\n")
	b.WriteString(row("Period", "Revenue"))
	b.WriteString(separator(2))
	b.WriteString(row("Current ARR", money(p.ARR)))
	b.WriteString(row("Year 1 (projected)", money(p.RevenueProjection1Y)))
	b.WriteString(row("Year 2 (estimated)", money(p.RevenueProjection1Y*2.5)))
	b.WriteString(row("Year 3 (projected)", money(p.RevenueProjection3Y)))
	b.WriteString("\n")
}

func writeInsights(b *strings.Builder, ai insights.Insights) {
	b.WriteString("## AI Investment Analysis\n\n")
	fmt.Fprintf(b, "### Investment Thesis\n\n%s\n\n", orNA(ai.InvestmentThesis))
	fmt.Fprintf(b, "**Recommendation: %s**\n\n", orNA(string(ai.InvestmentRecommendation)))
	fmt.Fprintf(b, "**AI Investment Score:** %s/100\n\n", plain(ai.InvestmentScore))
	fmt.Fprintf(b, "**Valuation:** %s\n\n", orNA(ai.ValuationAssessment))

	if n := max(len(ai.KeyStrengths), len(ai.KeyConcerns)); n > 0 {
		b.WriteString("### Strengths vs Concerns\n\n")
		b.WriteString(row("Key Strengths", "Key Concerns"))
		b.WriteString(separator(2))
		for i := 0; i < n; i++ {
			b.WriteString(row(bulletAt(ai.KeyStrengths, i), bulletAt(ai.KeyConcerns, i)))
		}
		b.WriteString("\n")
	}

	if len(ai.DueDiligencePriorities) > 0 {
		b.WriteString("### Due Diligence Priorities\n\n")
		for i, item := range ai.DueDiligencePriorities {
			fmt.Fprintf(b, "%d. %s\n", i+1, item)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Assessment Detail\n\n")
	b.WriteString(row("Area", "Assessment"))
	b.WriteString(separator(2))
	b.WriteString(row("Growth Potential", orNA(ai.GrowthPotential)))
	b.WriteString(row("Team", orNA(ai.TeamAssessment)))
	b.WriteString(row("Market Timing", orNA(ai.MarketTiming)))
	b.WriteString(row("Competitive Position", orNA(ai.CompetitivePosition)))
	b.WriteString(row("Financial Health", orNA(ai.FinancialHealth)))
	b.WriteString(row("Comparable Exits", orNA(ai.ComparableExits)))
	b.WriteString("\n")

	fmt.Fprintf(b, "### Risk Assessment\n\n%s\n\n", orNA(ai.RiskAssessment))
	fmt.Fprintf(b, "### Recommended Terms\n\n%s\n\n", orNA(ai.RecommendedTerms))
	if len(ai.PostInvestmentSupport) > 0 {
		b.WriteString("### Post-Investment Support\n\n")
		for _, item := range ai.PostInvestmentSupport {
			fmt.Fprintf(b, "- %s\n", item)
		}
		b.WriteString("\n")
	}
}

func bulletAt(items []string, i int) string {
	if i >= len(items) {
		return ""
	}
	return "• " + items[i]
}
