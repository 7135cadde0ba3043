package insights

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joelkehle/proposal-vetting/internal/proposal"
)

const systemPrompt = "You are a venture capital investment assistant. You must always respond with valid JSON only, no markdown formatting, no code blocks, no explanations."

// maxDocPromptChars bounds each uploaded document's share of the prompt.
const maxDocPromptChars = 2000

const responseContract = `YOU MUST respond with ONLY a valid JSON object (no markdown, no explanation, no formatting).
The JSON must have this exact structure:
{
    "investment_thesis": "2-3 sentence executive summary of the investment opportunity",
    "investment_recommendation": "STRONG BUY or BUY or HOLD or PASS",
    "valuation_assessment": "Assessment of the proposed valuation and terms",
    "key_strengths": ["strength 1", "strength 2", "strength 3", "strength 4"],
    "key_concerns": ["concern 1", "concern 2", "concern 3", "concern 4"],
    "due_diligence_priorities": ["priority 1", "priority 2", "priority 3"],
    "growth_potential": "Assessment of growth trajectory and scalability",
    "team_assessment": "Evaluation of team capability and experience",
    "market_timing": "Assessment of market timing and opportunity window",
    "competitive_position": "Analysis of competitive positioning and moat",
    "financial_health": "Assessment of unit economics and financial sustainability",
    "risk_assessment": "Overall risk level: LOW or MEDIUM or HIGH with explanation",
    "recommended_terms": "Suggested investment terms or modifications",
    "post_investment_support": ["support area 1", "support area 2", "support area 3"],
    "comparable_exits": "Similar companies and their exit multiples",
    "investment_score": 85
}

Remember: Return ONLY the JSON object, nothing else.`

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// BuildPrompt serializes the proposal into labeled sections followed by
// the response contract.
func BuildPrompt(p proposal.Proposal) string {
	var b strings.Builder
	b.WriteString("You are a seasoned venture capital investment partner analyzing a startup proposal.\n")
	b.WriteString("Based on the comprehensive information provided, generate a detailed investment analysis.\n\n")

	fmt.Fprintf(&b, "Company: %s\n", orNA(p.CompanyName))
	fmt.Fprintf(&b, "Industry: %s\n", orNA(string(p.Industry)))
	fmt.Fprintf(&b, "Stage: %s\n\n", orNA(string(p.Stage)))

	b.WriteString("BUSINESS & PRODUCT:\n")
	fmt.Fprintf(&b, "Problem/Solution: %s\n", orNA(p.ProblemSolution))
	fmt.Fprintf(&b, "Market Info: %s\n", orNA(p.MarketInfo))
	fmt.Fprintf(&b, "Business Model: %s\n", orNA(p.BusinessModelDesc))
	fmt.Fprintf(&b, "Uniqueness: %s\n", orNA(p.Uniqueness))
	fmt.Fprintf(&b, "IP Assets: %s\n", orNA(p.IPAssets))
	fmt.Fprintf(&b, "Progress: %s\n\n", orNA(p.Progress))

	b.WriteString("TEAM:\n")
	fmt.Fprintf(&b, "Experience: %s\n", orNA(p.TeamExperience))
	fmt.Fprintf(&b, "Structure: %s\n", orNA(p.TeamStructure))
	fmt.Fprintf(&b, "Team Size: %d\n\n", p.TeamSize)

	b.WriteString("FINANCIALS:\n")
	fmt.Fprintf(&b, "MRR: $%s\n", num(p.CurrentMRR))
	fmt.Fprintf(&b, "ARR: $%s\n", num(p.ARR))
	fmt.Fprintf(&b, "Burn Rate: $%s\n", num(p.BurnRate))
	fmt.Fprintf(&b, "Runway: %s months\n", num(p.RunwayMonths))
	fmt.Fprintf(&b, "CAC: $%s\n", num(p.CAC))
	fmt.Fprintf(&b, "LTV: $%s\n", num(p.LTV))
	fmt.Fprintf(&b, "Gross Margin: %s%%\n", num(p.GrossMargin))
	fmt.Fprintf(&b, "Funding Seeking: $%s\n\n", num(p.FundingSeeking))

	b.WriteString("MARKET & COMPETITION:\n")
	fmt.Fprintf(&b, "TAM: $%sM\n", num(p.TAM))
	fmt.Fprintf(&b, "Competitors: %s\n", orNA(p.Competitors))
	fmt.Fprintf(&b, "Competitive Advantage: %s\n", orNA(p.CompetitiveAdvantage))
	fmt.Fprintf(&b, "Customer Acquisition: %s\n\n", orNA(p.CustomerAcquisition))

	b.WriteString("RISKS:\n")
	fmt.Fprintf(&b, "Legal: %s\n", orNA(p.LegalRisks))
	fmt.Fprintf(&b, "Regulatory: %s\n", orNA(p.RegulatoryRisks))
	fmt.Fprintf(&b, "Other: %s\n\n", orNA(p.OtherRisks))

	fmt.Fprintf(&b, "EXIT STRATEGY: %s\n", orNA(p.ExitStrategy))

	for _, slot := range proposal.DocSlots {
		content := p.UploadedDocs[slot]
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s DOCUMENT CONTENT:\n%s...", strings.ToUpper(string(slot)), truncateRunes(content, maxDocPromptChars))
	}

	b.WriteString("\n\n")
	b.WriteString(responseContract)
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
