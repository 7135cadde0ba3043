package insights

import (
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

var textFields = []string{
	"investment_thesis",
	"valuation_assessment",
	"growth_potential",
	"team_assessment",
	"market_timing",
	"competitive_position",
	"financial_health",
	"recommended_terms",
	"comparable_exits",
}

var listFields = []string{
	"key_strengths",
	"key_concerns",
	"due_diligence_priorities",
	"post_investment_support",
}

func schemaDocument() map[string]any {
	props := map[string]any{
		"investment_recommendation": map[string]any{
			"type": "string",
			"enum": []any{string(VerdictStrongBuy), string(VerdictBuy), string(VerdictHold), string(VerdictPass)},
		},
		"risk_assessment": map[string]any{
			"type":    "string",
			"pattern": "^\\s*(LOW|MEDIUM|HIGH)",
		},
		"investment_score": map[string]any{
			"type":    "integer",
			"minimum": 0,
			"maximum": 100,
		},
	}
	required := []any{"investment_recommendation", "risk_assessment", "investment_score"}
	for _, f := range textFields {
		props[f] = map[string]any{"type": "string"}
		required = append(required, f)
	}
	for _, f := range listFields {
		props[f] = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		required = append(required, f)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

// checkSchema lists the ways doc departs from the expected response shape.
func checkSchema(doc map[string]any) []string {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaDocument()))
	})
	if schemaErr != nil {
		return []string{"schema unavailable: " + schemaErr.Error()}
	}
	result, err := compiledSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return []string{err.Error()}
	}
	if result.Valid() {
		return nil
	}
	out := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, e.String())
	}
	return out
}
