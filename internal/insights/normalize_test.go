package insights

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `{
  "investment_thesis": "Capital-efficient vertical SaaS with strong retention.",
  "investment_recommendation": "BUY",
  "valuation_assessment": "Fair at 8x ARR.",
  "key_strengths": ["Retention", "Founders", "Margins", "Distribution"],
  "key_concerns": ["Concentration", "Runway", "Hiring", "Competition"],
  "due_diligence_priorities": ["Cohorts", "Pipeline", "References"],
  "growth_potential": "High",
  "team_assessment": "Experienced",
  "market_timing": "Favorable",
  "competitive_position": "Defensible",
  "financial_health": "Improving",
  "risk_assessment": "MEDIUM - execution risk",
  "recommended_terms": "Standard seed terms",
  "post_investment_support": ["Hiring", "Pricing", "Partnerships"],
  "comparable_exits": "Acquired peers at 6-10x ARR",
  "investment_score": 78
}`

func TestNormalizeRecoversFencedObjectWithProse(t *testing.T) {
	raw := "Sure! Here is the analysis:\n```json\n" + wellFormed + "\n```\nLet me know if you need more."

	var want Insights
	require.NoError(t, json.Unmarshal([]byte(wellFormed), &want))

	res := Inspect(raw)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Deviations)
	assert.Equal(t, want, res.Insights)
}

func TestNormalizeBareFenceWithoutLanguageTag(t *testing.T) {
	got := Normalize("```\n" + wellFormed + "\n```")
	assert.Equal(t, VerdictBuy, got.InvestmentRecommendation)
	assert.Equal(t, 78.0, got.InvestmentScore)
}

func TestNormalizeUnfencedLeadingAndTrailingProse(t *testing.T) {
	got := Normalize("Analysis follows. " + wellFormed + " Hope this helps.")
	assert.False(t, got.IsFallback())
	assert.Equal(t, "Fair at 8x ARR.", got.ValuationAssessment)
}

func TestNormalizeMalformedReturnsFallback(t *testing.T) {
	for _, raw := range []string{
		"",
		"I cannot help with that.",
		`{"investment_thesis": "cut off mid`,
		"```json\n{\"investment_score\": 80,,}\n```",
		"[1,2,3]",
		"null",
	} {
		res := Inspect(raw)
		assert.True(t, res.Fallback, "raw %q", raw)
		assert.Equal(t, Fallback(), res.Insights, "raw %q", raw)
	}
}

func TestFallbackLiterals(t *testing.T) {
	fb := Fallback()
	assert.True(t, fb.IsFallback())
	assert.Equal(t, "JSON parsing failed", fb.Error)
	assert.Equal(t, VerdictHold, fb.InvestmentRecommendation)
	assert.Equal(t, 50.0, fb.InvestmentScore)
	assert.Equal(t, "MEDIUM - Analysis incomplete", fb.RiskAssessment)
	assert.Len(t, fb.KeyStrengths, 4)
	assert.Len(t, fb.DueDiligencePriorities, 3)
}

func TestNormalizeIsPermissiveAboutMissingAndLooseFields(t *testing.T) {
	got := Inspect(`{"investment_recommendation":"strong buy","investment_score":"91.6","key_strengths":"Team"}`)
	assert.False(t, got.Fallback)
	assert.Equal(t, Verdict("strong buy"), got.Insights.InvestmentRecommendation)
	assert.Equal(t, 91.6, got.Insights.InvestmentScore)
	assert.Equal(t, []string{"Team"}, got.Insights.KeyStrengths)
	assert.Empty(t, got.Insights.InvestmentThesis)
	assert.NotEmpty(t, got.Deviations)
}

func TestNormalizeKeepsOffSchemaValuesAsReturned(t *testing.T) {
	got := Inspect(`{"investment_recommendation":" Buy ","investment_score":150.5,"key_strengths":["Team","",""],"key_concerns":" "}`)
	require.False(t, got.Fallback)
	assert.Equal(t, Verdict(" Buy "), got.Insights.InvestmentRecommendation)
	assert.Equal(t, 150.5, got.Insights.InvestmentScore)
	assert.Equal(t, []string{"Team", "", ""}, got.Insights.KeyStrengths)
	assert.Equal(t, []string{" "}, got.Insights.KeyConcerns)
	assert.NotEmpty(t, got.Deviations)
}

func TestSchemaDeviationsFlagged(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(wellFormed), &doc))
	doc["investment_recommendation"] = "MAYBE"
	doc["investment_score"] = 140
	doc["risk_assessment"] = "Moderate overall"

	devs := checkSchema(doc)
	assert.Len(t, devs, 3)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSON(`noise {"a":{"b":2}} trailing`))
	assert.Equal(t, `{"a":1}`, extractJSON(`{"a":1}`))
}
