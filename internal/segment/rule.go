package segment

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Rule is a single audience filter: Field Operator Value
type Rule struct {
	Field    FieldName `json:"field" yaml:"field"`
	Operator Operator  `json:"operator" yaml:"operator"`
	Value    RuleValue `json:"value" yaml:"value"`
}

// DefaultRule returns the rule appended by the editor: tags in []
func DefaultRule() Rule {
	return Rule{
		Field:    FieldTags,
		Operator: OpIn,
		Value:    ListValue(),
	}
}

// NewRule builds a rule, rejecting unknown fields, operators not permitted
// for the field type and values of the wrong variant.
func NewRule(field FieldName, op Operator, value RuleValue) (Rule, error) {
	r := Rule{Field: field, Operator: op, Value: value}
	if err := r.CheckShape(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// CheckShape verifies the field, operator and value variant agree.
// It does not require the value to be filled in.
func (r Rule) CheckShape() error {
	if !r.Field.Valid() {
		return validationErrorf("field", "unknown field %q", r.Field)
	}
	t := r.Field.Type()
	if !t.Allows(r.Operator) {
		return validationErrorf("operator", "operator %q is not valid for %s field %q", r.Operator, t, r.Field)
	}
	if t.IsList() != (r.Value.Kind() == KindList) {
		want := KindString
		if t.IsList() {
			want = KindList
		}
		return validationErrorf("value", "field %q expects a %s value, got %s", r.Field, want, r.Value.Kind())
	}
	return nil
}

// Validate checks the shape and that the rule carries a usable value
func (r Rule) Validate() error {
	if err := r.CheckShape(); err != nil {
		return err
	}
	if r.Value.IsEmpty() {
		return validationErrorf("value", "a value is required for %q", r.Field)
	}

	switch r.Field.Type() {
	case TypeDate:
		if _, err := parseDate(r.Value.Str()); err != nil {
			return validationErrorf("value", "invalid date %q for %q, expected YYYY-MM-DD", r.Value.Str(), r.Field)
		}
	case TypeSelect:
		options := r.Field.Options()
		for _, item := range r.Value.List() {
			if !slices.Contains(options, item) {
				return validationErrorf("value", "%q is not a valid option for %q", item, r.Field)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the rule
func (r Rule) Clone() Rule {
	if r.Value.Kind() == KindList {
		r.Value = ListValue(r.Value.list...)
	}
	return r
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s %s", r.Field, r.Operator, r.Value)
}

// CloneRules deep-copies a rule list
func CloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = r.Clone()
	}
	return out
}

// ValidateRules validates each rule and reports the first failure with its
// position.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			ve, ok := err.(*ValidationError)
			if !ok {
				return err
			}
			return &ValidationError{
				Field:   fmt.Sprintf("rules[%d].%s", i, ve.Field),
				Message: ve.Message,
			}
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}
