package segment

import (
	"strings"
	"time"
)

// Type distinguishes rule-defined segments from fixed contact lists
type Type string

const (
	TypeDynamic Type = "dynamic"
	TypeStatic  Type = "static"
)

// Segment is a named audience. Dynamic segments carry rules, static segments
// carry contact ids.
type Segment struct {
	ID          string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Type        Type      `json:"type" yaml:"type"`
	Rules       []Rule    `json:"rules,omitempty" yaml:"rules,omitempty"`
	ContactIDs  []string  `json:"contact_ids,omitempty" yaml:"contact_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Payload is the body sent to create or update a segment
type Payload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        Type     `json:"type"`
	Rules       []Rule   `json:"rules,omitempty"`
	ContactIDs  []string `json:"contact_ids,omitempty"`
}

// Validate checks the segment locally before any network call
func (s *Segment) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Message: "Segment name is required"}
	}

	switch s.Type {
	case TypeDynamic:
		if len(s.Rules) == 0 {
			return &ValidationError{Field: "rules", Message: "At least one rule is required"}
		}
		return ValidateRules(s.Rules)
	case TypeStatic:
		for i, id := range s.ContactIDs {
			if strings.TrimSpace(id) == "" {
				return validationErrorf("contact_ids", "contact id at position %d is empty", i)
			}
		}
		return nil
	default:
		return validationErrorf("type", "segment type must be %q or %q", TypeDynamic, TypeStatic)
	}
}

// Payload builds the request body. Only the member list matching the
// segment type is included.
func (s *Segment) Payload() *Payload {
	p := &Payload{
		Name:        strings.TrimSpace(s.Name),
		Description: s.Description,
		Type:        s.Type,
	}
	if s.Type == TypeStatic {
		p.ContactIDs = append([]string(nil), s.ContactIDs...)
	} else {
		p.Rules = CloneRules(s.Rules)
	}
	return p
}

// Segment converts a payload back into a segment without an id
func (p *Payload) Segment() *Segment {
	return &Segment{
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
		Rules:       CloneRules(p.Rules),
		ContactIDs:  append([]string(nil), p.ContactIDs...),
	}
}

// CountLocal evaluates the segment against contacts. Static segments count
// their listed contacts that exist.
func (s *Segment) CountLocal(contacts []*Contact) int {
	if s.Type == TypeStatic {
		ids := make(map[string]struct{}, len(s.ContactIDs))
		for _, id := range s.ContactIDs {
			ids[id] = struct{}{}
		}
		n := 0
		for _, c := range contacts {
			if _, ok := ids[c.ID]; ok {
				n++
			}
		}
		return n
	}
	return Count(s.Rules, contacts)
}
