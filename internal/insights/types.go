package insights

type Verdict string

const (
	VerdictStrongBuy Verdict = "STRONG BUY"
	VerdictBuy       Verdict = "BUY"
	VerdictHold      Verdict = "HOLD"
	VerdictPass      Verdict = "PASS"
)

// Insights is the qualitative assessment returned by the language model.
// Fields the model omitted stay zero; display code substitutes "N/A".
// Error is set only on the fallback record.
type Insights struct {
	Error                    string   `json:"error,omitempty"`
	InvestmentThesis         string   `json:"investment_thesis"`
	InvestmentRecommendation Verdict  `json:"investment_recommendation"`
	ValuationAssessment      string   `json:"valuation_assessment"`
	KeyStrengths             []string `json:"key_strengths"`
	KeyConcerns              []string `json:"key_concerns"`
	DueDiligencePriorities   []string `json:"due_diligence_priorities"`
	GrowthPotential          string   `json:"growth_potential"`
	TeamAssessment           string   `json:"team_assessment"`
	MarketTiming             string   `json:"market_timing"`
	CompetitivePosition      string   `json:"competitive_position"`
	FinancialHealth          string   `json:"financial_health"`
	RiskAssessment           string   `json:"risk_assessment"`
	RecommendedTerms         string   `json:"recommended_terms"`
	PostInvestmentSupport    []string `json:"post_investment_support"`
	ComparableExits          string   `json:"comparable_exits"`
	InvestmentScore          float64  `json:"investment_score"`
}

// IsFallback reports whether the record is the placeholder substituted
// for an unreadable model response.
func (i Insights) IsFallback() bool { return i.Error != "" }

const FallbackError = "JSON parsing failed"

// Fallback is the fixed "please retry" record.
func Fallback() Insights {
	return Insights{
		Error:                    FallbackError,
		InvestmentThesis:         "Unable to parse AI response. Please try again.",
		InvestmentRecommendation: VerdictHold,
		ValuationAssessment:      "Analysis incomplete",
		KeyStrengths:             []string{"Data provided", "Comprehensive information", "Clear metrics", "Established team"},
		KeyConcerns:              []string{"Technical analysis error", "Please retry", "Consider manual review", "System processing issue"},
		DueDiligencePriorities:   []string{"Retry analysis", "Manual review", "Verify data"},
		GrowthPotential:          "Requires reanalysis",
		TeamAssessment:           "Team information provided",
		MarketTiming:             "Market analysis pending",
		CompetitivePosition:      "Competitive data available",
		FinancialHealth:          "Financial metrics provided",
		RiskAssessment:           "MEDIUM - Analysis incomplete",
		RecommendedTerms:         "Rerun analysis for recommendations",
		PostInvestmentSupport:    []string{"Technical review", "Strategic planning", "Market analysis"},
		ComparableExits:          "Data pending",
		InvestmentScore:          50,
	}
}
