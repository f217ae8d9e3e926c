package metrics

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Ratio is a tagged optional for derived metrics. A ratio whose denominator
// was zero is undefined, which is distinct from a ratio of value zero:
// CPC of a group with no clicks is undefined, CTR of a group with clicks=0
// and impressions>0 is a defined zero.
//
// JSON form is {"value": <number|null>, "defined": <bool>} so downstream
// consumers never mistake missing data for a zero cost.
type Ratio struct {
	Value   decimal.Decimal
	Defined bool
}

// DefinedRatio wraps a value as a defined ratio.
func DefinedRatio(v decimal.Decimal) Ratio {
	return Ratio{Value: v, Defined: true}
}

// ratioDiv divides num by den, returning an undefined Ratio when den is zero.
func ratioDiv(num, den decimal.Decimal) Ratio {
	if den.IsZero() {
		return Ratio{}
	}
	return Ratio{Value: num.Div(den), Defined: true}
}

// Equal compares two ratios. Undefined ratios compare equal to each other
// regardless of the zero value they carry.
func (r Ratio) Equal(o Ratio) bool {
	if r.Defined != o.Defined {
		return false
	}
	if !r.Defined {
		return true
	}
	return r.Value.Equal(o.Value)
}

type ratioJSON struct {
	Value   *decimal.Decimal `json:"value"`
	Defined bool             `json:"defined"`
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	out := ratioJSON{Defined: r.Defined}
	if r.Defined {
		v := r.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	var in ratioJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if !in.Defined || in.Value == nil {
		*r = Ratio{}
		return nil
	}
	*r = Ratio{Value: *in.Value, Defined: true}
	return nil
}
