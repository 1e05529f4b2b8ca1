package segment

import (
	"fmt"
	"sync"
)

// Attribute names the part of a rule an update targets
type Attribute string

const (
	AttrField    Attribute = "field"
	AttrOperator Attribute = "operator"
	AttrValue    Attribute = "value"
)

// Editor holds an ordered, never-empty list of rules and notifies a listener
// after every successful mutation.
type Editor struct {
	mu       sync.Mutex
	rules    []Rule
	onChange func([]Rule)
}

// NewEditor starts from a copy of rules, or a single default rule when empty
func NewEditor(rules []Rule) *Editor {
	e := &Editor{rules: CloneRules(rules)}
	if len(e.rules) == 0 {
		e.rules = []Rule{DefaultRule()}
	}
	return e
}

// OnChange registers the mutation listener. It receives a copy of the rules
// and runs under the editor lock, so notifications arrive in mutation order.
// The listener must not call back into the editor.
func (e *Editor) OnChange(fn func([]Rule)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// Rules returns a copy of the current rules
func (e *Editor) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CloneRules(e.rules)
}

// Len returns the number of rules
func (e *Editor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rules)
}

// Add appends the default rule
func (e *Editor) Add() {
	e.mutate(func() error {
		e.rules = append(e.rules, DefaultRule())
		return nil
	})
}

// Remove deletes the rule at index. The last remaining rule cannot be removed.
func (e *Editor) Remove(index int) error {
	return e.mutate(func() error {
		if err := e.checkIndex(index); err != nil {
			return err
		}
		if len(e.rules) == 1 {
			return ErrLastRule
		}
		e.rules = append(e.rules[:index], e.rules[index+1:]...)
		return nil
	})
}

// SetField changes the field of a rule and resets its operator to the first
// one valid for the new field type and its value to the type's empty form.
func (e *Editor) SetField(index int, field FieldName) error {
	if !field.Valid() {
		return validationErrorf("field", "unknown field %q", field)
	}
	return e.mutate(func() error {
		if err := e.checkIndex(index); err != nil {
			return err
		}
		t := field.Type()
		e.rules[index] = Rule{
			Field:    field,
			Operator: t.DefaultOperator(),
			Value:    t.EmptyValue(),
		}
		return nil
	})
}

// SetOperator changes the operator of a rule. It must be permitted for the
// rule's field type.
func (e *Editor) SetOperator(index int, op Operator) error {
	return e.mutate(func() error {
		if err := e.checkIndex(index); err != nil {
			return err
		}
		r := e.rules[index]
		if !r.Field.Type().Allows(op) {
			return validationErrorf("operator", "operator %q is not valid for field %q", op, r.Field)
		}
		e.rules[index].Operator = op
		return nil
	})
}

// SetValue changes the value of a rule. The variant must match the field type.
func (e *Editor) SetValue(index int, value RuleValue) error {
	return e.mutate(func() error {
		if err := e.checkIndex(index); err != nil {
			return err
		}
		candidate := e.rules[index]
		candidate.Value = value
		if err := candidate.CheckShape(); err != nil {
			return err
		}
		e.rules[index] = candidate.Clone()
		return nil
	})
}

// Update dispatches to SetField, SetOperator or SetValue. Field and operator
// accept a string or their named type; value accepts a RuleValue, a string or
// a []string.
func (e *Editor) Update(index int, attr Attribute, value any) error {
	switch attr {
	case AttrField:
		switch v := value.(type) {
		case FieldName:
			return e.SetField(index, v)
		case string:
			return e.SetField(index, FieldName(v))
		}
	case AttrOperator:
		switch v := value.(type) {
		case Operator:
			return e.SetOperator(index, v)
		case string:
			return e.SetOperator(index, Operator(v))
		}
	case AttrValue:
		switch v := value.(type) {
		case RuleValue:
			return e.SetValue(index, v)
		case string:
			return e.SetValue(index, StringValue(v))
		case []string:
			return e.SetValue(index, ListValue(v...))
		}
	default:
		return validationErrorf("attribute", "unknown rule attribute %q", attr)
	}
	return validationErrorf(string(attr), "unsupported %s value of type %T", attr, value)
}

func (e *Editor) checkIndex(index int) error {
	if index < 0 || index >= len(e.rules) {
		return fmt.Errorf("%w: %d (have %d)", ErrRuleIndex, index, len(e.rules))
	}
	return nil
}

// mutate applies fn under the lock and notifies the listener on success
func (e *Editor) mutate(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	if e.onChange != nil {
		e.onChange(CloneRules(e.rules))
	}
	return nil
}
