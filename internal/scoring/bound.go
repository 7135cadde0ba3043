package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

const unboundedLiteral = "unbounded"

// Bound is a ratio that may have no finite value, such as a payback
// period when there is no revenue. The zero value is a finite 0.
type Bound struct {
	value     float64
	unbounded bool
}

// BoundOf wraps v. A ratio that overflowed to infinity, or came out NaN,
// has no finite value and is stored as Unbounded.
func BoundOf(v float64) Bound {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unbounded()
	}
	return Bound{value: v}
}

func Unbounded() Bound { return Bound{unbounded: true} }

func (b Bound) IsUnbounded() bool { return b.unbounded }

// Float returns the finite value and false when the bound is unbounded.
func (b Bound) Float() (float64, bool) {
	if b.unbounded {
		return 0, false
	}
	return b.value, true
}

// AtMost reports whether the value is finite and no greater than limit.
func (b Bound) AtMost(limit float64) bool {
	return !b.unbounded && b.value <= limit
}

// Format renders the value with prec decimals, or "N/A" when unbounded.
func (b Bound) Format(prec int) string {
	if b.unbounded {
		return "N/A"
	}
	return strconv.FormatFloat(b.value, 'f', prec, 64)
}

func (b Bound) String() string { return b.Format(2) }

func (b Bound) MarshalJSON() ([]byte, error) {
	if b.unbounded {
		return json.Marshal(unboundedLiteral)
	}
	return json.Marshal(b.value)
}

func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != unboundedLiteral {
			return fmt.Errorf("bound: unexpected string %q", s)
		}
		*b = Unbounded()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("bound: %w", err)
	}
	*b = BoundOf(v)
	return nil
}
