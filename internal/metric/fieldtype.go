package metric

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/berrycheck/internal/models"
)

// FieldType names the kind of input a metric field accepts
type FieldType string

const (
	TypeNumber FieldType = "number"
	TypeSelect FieldType = "select"
	TypeText   FieldType = "text"
)

// ParseFieldType normalizes a stored field_type value
func ParseFieldType(s string) (FieldType, bool) {
	switch FieldType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeNumber:
		return TypeNumber, true
	case TypeSelect:
		return TypeSelect, true
	case TypeText:
		return TypeText, true
	}
	return "", false
}

// Spec is the runtime descriptor of a field: one of NumberSpec, SelectSpec or TextSpec.
type Spec interface {
	Kind() FieldType
	// Validate checks a non-empty value against the field's constraints
	Validate(value interface{}) error
}

// NumberSpec accepts numeric values within optional inclusive bounds
type NumberSpec struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// SelectSpec accepts one of a fixed list of options
type SelectSpec struct {
	Options []string
}

// TextSpec accepts any scalar
type TextSpec struct{}

func (NumberSpec) Kind() FieldType { return TypeNumber }
func (SelectSpec) Kind() FieldType { return TypeSelect }
func (TextSpec) Kind() FieldType   { return TypeText }

func (s NumberSpec) Validate(value interface{}) error {
	n, err := toDecimal(value)
	if err != nil {
		return err
	}
	if s.Min != nil && n.LessThan(*s.Min) {
		return fmt.Errorf("must be >= %s", s.Min.String())
	}
	if s.Max != nil && n.GreaterThan(*s.Max) {
		return fmt.Errorf("must be <= %s", s.Max.String())
	}
	return nil
}

func (s SelectSpec) Validate(value interface{}) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("must be one of the listed options")
	}
	for _, opt := range s.Options {
		if opt == str {
			return nil
		}
	}
	return fmt.Errorf("%q is not a valid option", str)
}

func (TextSpec) Validate(value interface{}) error {
	switch value.(type) {
	case string, float64, bool, json.Number, int, int64:
		return nil
	}
	return fmt.Errorf("must be a scalar value")
}

// SpecFor builds the descriptor of a stored field
func SpecFor(f models.MetricField) (Spec, error) {
	kind, ok := ParseFieldType(f.FieldType)
	if !ok {
		return nil, fmt.Errorf("unknown field type %q", f.FieldType)
	}
	switch kind {
	case TypeNumber:
		spec := NumberSpec{}
		if f.MinValue != nil {
			lo := decimal.NewFromFloat(*f.MinValue)
			spec.Min = &lo
		}
		if f.MaxValue != nil {
			hi := decimal.NewFromFloat(*f.MaxValue)
			spec.Max = &hi
		}
		return spec, nil
	case TypeSelect:
		return SelectSpec{Options: SafeParseOptions(f.Options)}, nil
	default:
		return TextSpec{}, nil
	}
}

// ValidateValues checks values against the template fields and returns
// field key -> message for each violation. Keys unknown to the template are ignored.
func ValidateValues(fields []models.MetricField, values map[string]interface{}) map[string]string {
	problems := make(map[string]string)
	for _, f := range fields {
		value, present := values[f.Key]
		if !present || isEmpty(value) {
			if f.Required {
				problems[f.Key] = "is required"
			}
			continue
		}
		spec, err := SpecFor(f)
		if err != nil {
			problems[f.Key] = err.Error()
			continue
		}
		if err := spec.Validate(value); err != nil {
			problems[f.Key] = err.Error()
		}
	}
	return problems
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(n, ",", ".")))
		if err != nil {
			return decimal.Zero, fmt.Errorf("must be a number")
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("must be a number")
}
