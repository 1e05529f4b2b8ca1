// Package segment implements the audience rule engine: typed segment rules,
// the rule list editor, local matching for previews, debounced remote counts
// and the segment form lifecycle.
package segment

// FieldName identifies the contact attribute a rule filters on
type FieldName string

const (
	FieldTags                 FieldName = "tags"
	FieldEngagementStatus     FieldName = "engagement_status"
	FieldLastActiveDate       FieldName = "last_active_date"
	FieldCreatedAt            FieldName = "created_at"
	FieldCampaignParticipated FieldName = "campaign_participated"
	FieldPhone                FieldName = "phone"
	FieldContactName          FieldName = "name"
)

// FieldType determines the operators and value shape a field accepts
type FieldType string

const (
	TypeArray  FieldType = "array"
	TypeSelect FieldType = "select"
	TypeDate   FieldType = "date"
	TypeString FieldType = "string"
)

// Operator is a comparison between a contact attribute and a rule value
type Operator string

const (
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpEq       Operator = "eq"
	OpContains Operator = "contains"
	OpNe       Operator = "ne"
)

// DateLayout is the wire format of date rule values
const DateLayout = "2006-01-02"

// Engagement statuses accepted by the engagement_status select field
const (
	EngagementActive   = "active"
	EngagementInactive = "inactive"
	EngagementNew      = "new"
	EngagementAtRisk   = "at_risk"
)

var fieldTypes = map[FieldName]FieldType{
	FieldTags:                 TypeArray,
	FieldEngagementStatus:     TypeSelect,
	FieldLastActiveDate:       TypeDate,
	FieldCreatedAt:            TypeDate,
	FieldCampaignParticipated: TypeArray,
	FieldPhone:                TypeString,
	FieldContactName:          TypeString,
}

// Order matters: the first operator is the default for the type
var typeOperators = map[FieldType][]Operator{
	TypeArray:  {OpIn, OpNotIn},
	TypeSelect: {OpIn, OpNotIn},
	TypeDate:   {OpGte, OpLte, OpEq},
	TypeString: {OpEq, OpContains, OpNe},
}

var selectOptions = map[FieldName][]string{
	FieldEngagementStatus: {EngagementActive, EngagementInactive, EngagementNew, EngagementAtRisk},
}

// Fields returns all rule fields in display order
func Fields() []FieldName {
	return []FieldName{
		FieldTags,
		FieldEngagementStatus,
		FieldLastActiveDate,
		FieldCreatedAt,
		FieldCampaignParticipated,
		FieldPhone,
		FieldContactName,
	}
}

// Valid reports whether f is a known field
func (f FieldName) Valid() bool {
	_, ok := fieldTypes[f]
	return ok
}

// Type returns the value type of the field, or "" for unknown fields
func (f FieldName) Type() FieldType {
	return fieldTypes[f]
}

// Operators returns the operators permitted for the field
func (f FieldName) Operators() []Operator {
	return f.Type().Operators()
}

// Options returns the allowed values of a select field, nil otherwise
func (f FieldName) Options() []string {
	return selectOptions[f]
}

// Operators returns the operators permitted for the type
func (t FieldType) Operators() []Operator {
	ops := typeOperators[t]
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// DefaultOperator returns the first operator of the type
func (t FieldType) DefaultOperator() Operator {
	ops := typeOperators[t]
	if len(ops) == 0 {
		return ""
	}
	return ops[0]
}

// Allows reports whether op is permitted for the type
func (t FieldType) Allows(op Operator) bool {
	for _, o := range typeOperators[t] {
		if o == op {
			return true
		}
	}
	return false
}

// IsList reports whether values of this type are lists
func (t FieldType) IsList() bool {
	return t == TypeArray || t == TypeSelect
}

// EmptyValue returns the reset value for the type: [] for lists, "" otherwise
func (t FieldType) EmptyValue() RuleValue {
	if t.IsList() {
		return ListValue()
	}
	return StringValue("")
}
