package segment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind tags which variant a RuleValue holds
type ValueKind int

const (
	KindString ValueKind = iota
	KindList
)

func (k ValueKind) String() string {
	if k == KindList {
		return "list"
	}
	return "string"
}

// RuleValue is either a single string (date and string fields) or a list of
// strings (array and select fields). The zero value is an empty string.
type RuleValue struct {
	kind ValueKind
	str  string
	list []string
}

// StringValue returns a string variant
func StringValue(s string) RuleValue {
	return RuleValue{kind: KindString, str: s}
}

// ListValue returns a list variant. The items are copied.
func ListValue(items ...string) RuleValue {
	list := make([]string, len(items))
	copy(list, items)
	return RuleValue{kind: KindList, list: list}
}

// Kind returns the variant tag
func (v RuleValue) Kind() ValueKind {
	return v.kind
}

// Str returns the string variant's value, "" for lists
func (v RuleValue) Str() string {
	return v.str
}

// List returns a copy of the list variant's items, nil for strings
func (v RuleValue) List() []string {
	if v.kind != KindList {
		return nil
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

// IsEmpty reports whether the value carries nothing to compare against
func (v RuleValue) IsEmpty() bool {
	if v.kind == KindList {
		return len(v.list) == 0
	}
	return strings.TrimSpace(v.str) == ""
}

// Equal reports whether two values hold the same variant and contents
func (v RuleValue) Equal(o RuleValue) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindString {
		return v.str == o.str
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

func (v RuleValue) String() string {
	if v.kind == KindList {
		return "[" + strings.Join(v.list, ", ") + "]"
	}
	return v.str
}

// MarshalJSON encodes a string variant as a JSON string and a list as an array
func (v RuleValue) MarshalJSON() ([]byte, error) {
	if v.kind == KindList {
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return json.Marshal(v.str)
}

// UnmarshalJSON picks the variant from the JSON shape. null decodes to an
// empty string.
func (v *RuleValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = StringValue("")
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("rule value list: %w", err)
		}
		*v = ListValue(items...)
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("rule value must be a string or a list of strings: %w", err)
		}
		*v = StringValue(s)
		return nil
	}
}

// UnmarshalYAML accepts a scalar or a sequence of scalars
func (v *RuleValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return fmt.Errorf("rule value list: %w", err)
		}
		*v = ListValue(items...)
	case yaml.ScalarNode:
		*v = StringValue(node.Value)
	default:
		return fmt.Errorf("line %d: rule value must be a string or a list of strings", node.Line)
	}
	return nil
}

// MarshalYAML encodes the value as a scalar or a sequence
func (v RuleValue) MarshalYAML() (any, error) {
	if v.kind == KindList {
		return v.List(), nil
	}
	return v.str, nil
}
