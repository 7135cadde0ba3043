package insights

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Result is a normalized model response. Fallback is set when the text
// could not be parsed; Deviations lists schema mismatches in a response
// that did parse. Deviations never cause a fallback.
type Result struct {
	Insights   Insights
	Fallback   bool
	Deviations []string
}

// Normalize turns a raw model reply into Insights, substituting Fallback()
// when no JSON object can be recovered.
func Normalize(raw string) Insights {
	return Inspect(raw).Insights
}

func Inspect(raw string) Result {
	doc, err := decodeObject(extractJSON(raw))
	if err != nil {
		return Result{Insights: Fallback(), Fallback: true}
	}
	return Result{Insights: fromDocument(doc), Deviations: checkSchema(doc)}
}

// extractJSON applies the recovery heuristics: take the body of the first
// fenced block, drop anything before the first '{' and after the last '}'.
func extractJSON(raw string) string {
	s := stripFence(strings.TrimSpace(raw))
	if i := strings.IndexByte(s, '{'); i > 0 {
		s = s[i:]
	}
	if j := strings.LastIndexByte(s, '}'); j >= 0 && j < len(s)-1 {
		s = s[:j+1]
	}
	return s
}

func stripFence(s string) string {
	const fence = "```"
	start := strings.Index(s, fence)
	if start < 0 {
		return s
	}
	body := s[start+len(fence):]
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	// A language tag such as "json" precedes the '{' and is removed with
	// the rest of the leading text.
	return strings.TrimSpace(body)
}

var errNotObject = errors.New("response is not a JSON object")

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errNotObject
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON object")
	}
	return doc, nil
}

func fromDocument(doc map[string]any) Insights {
	return Insights{
		InvestmentThesis:         text(doc["investment_thesis"]),
		InvestmentRecommendation: Verdict(text(doc["investment_recommendation"])),
		ValuationAssessment:      text(doc["valuation_assessment"]),
		KeyStrengths:             list(doc["key_strengths"]),
		KeyConcerns:              list(doc["key_concerns"]),
		DueDiligencePriorities:   list(doc["due_diligence_priorities"]),
		GrowthPotential:          text(doc["growth_potential"]),
		TeamAssessment:           text(doc["team_assessment"]),
		MarketTiming:             text(doc["market_timing"]),
		CompetitivePosition:      text(doc["competitive_position"]),
		FinancialHealth:          text(doc["financial_health"]),
		RiskAssessment:           text(doc["risk_assessment"]),
		RecommendedTerms:         text(doc["recommended_terms"]),
		PostInvestmentSupport:    list(doc["post_investment_support"]),
		ComparableExits:          text(doc["comparable_exits"]),
		InvestmentScore:          score(doc["investment_score"]),
	}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func list(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, text(item))
		}
		return out
	case string:
		return []string{t}
	}
	return nil
}

// score keeps the number the model sent. Out-of-range or fractional values
// are reported through the schema check, not corrected here.
func score(v any) float64 {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
