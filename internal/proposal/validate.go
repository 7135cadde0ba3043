package proposal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// RequiredFields is the canonical order in which missing fields are reported.
var RequiredFields = []string{
	"company_name",
	"problem_solution",
	"market_info",
	"business_model_desc",
	"uniqueness",
	"team_experience",
	"team_structure",
	"funding_seeking",
	"use_of_funds",
	"cac",
	"ltv",
	"burn_rate",
	"runway_months",
	"competitors",
	"competitive_advantage",
	"customer_acquisition",
	"other_risks",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate returns the names of required fields that are absent. Text
// fields are absent when empty and numeric fields when zero. An empty
// result means the proposal may be scored.
func Validate(p Proposal) []string {
	err := fieldValidator().Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only reachable with a malformed struct definition.
		return append([]string(nil), RequiredFields...)
	}
	missing := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		missing[fe.Field()] = true
	}
	out := make([]string, 0, len(missing))
	for _, name := range RequiredFields {
		if missing[name] {
			out = append(out, name)
		}
	}
	return out
}

// ValidationError reports required fields that were not supplied.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("please fill in all required fields: %s", strings.Join(e.Missing, ", "))
}
