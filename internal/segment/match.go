package segment

import (
	"slices"
	"strings"
	"time"
)

// Contact is the subset of a contact record the rules can filter on
type Contact struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Phone                 string    `json:"phone"`
	Email                 string    `json:"email,omitempty"`
	Tags                  []string  `json:"tags,omitempty"`
	EngagementStatus      string    `json:"engagement_status,omitempty"`
	LastActiveDate        time.Time `json:"last_active_date"`
	CreatedAt             time.Time `json:"created_at"`
	CampaignsParticipated []string  `json:"campaigns_participated,omitempty"`
}

// Match reports whether the contact satisfies every rule. An empty rule list
// matches no contact. Malformed rules never match.
func Match(rules []Rule, c *Contact) bool {
	if len(rules) == 0 || c == nil {
		return false
	}
	for _, r := range rules {
		if !r.Matches(c) {
			return false
		}
	}
	return true
}

// Count returns how many contacts satisfy the rules
func Count(rules []Rule, contacts []*Contact) int {
	if len(rules) == 0 {
		return 0
	}
	n := 0
	for _, c := range contacts {
		if Match(rules, c) {
			n++
		}
	}
	return n
}

// Matches evaluates a single rule against the contact
func (r Rule) Matches(c *Contact) bool {
	if r.CheckShape() != nil {
		return false
	}

	switch r.Field.Type() {
	case TypeArray, TypeSelect:
		return matchList(r.Operator, contactList(r.Field, c), r.Value.List())
	case TypeDate:
		return matchDate(r.Operator, contactDate(r.Field, c), r.Value.Str())
	case TypeString:
		return matchString(r.Operator, contactString(r.Field, c), r.Value.Str())
	}
	return false
}

func contactList(f FieldName, c *Contact) []string {
	switch f {
	case FieldTags:
		return c.Tags
	case FieldCampaignParticipated:
		return c.CampaignsParticipated
	case FieldEngagementStatus:
		if c.EngagementStatus == "" {
			return nil
		}
		return []string{c.EngagementStatus}
	}
	return nil
}

func contactDate(f FieldName, c *Contact) time.Time {
	switch f {
	case FieldLastActiveDate:
		return c.LastActiveDate
	case FieldCreatedAt:
		return c.CreatedAt
	}
	return time.Time{}
}

func contactString(f FieldName, c *Contact) string {
	switch f {
	case FieldPhone:
		return c.Phone
	case FieldContactName:
		return c.Name
	}
	return ""
}

// matchList: in means any overlap, not_in means none
func matchList(op Operator, have, want []string) bool {
	overlap := false
	for _, h := range have {
		if slices.ContainsFunc(want, func(w string) bool { return strings.EqualFold(h, w) }) {
			overlap = true
			break
		}
	}

	switch op {
	case OpIn:
		return overlap
	case OpNotIn:
		return !overlap
	}
	return false
}

// matchDate compares UTC calendar days. Contacts without a date never match.
func matchDate(op Operator, have time.Time, want string) bool {
	if have.IsZero() {
		return false
	}
	day, err := parseDate(want)
	if err != nil {
		return false
	}
	y, m, d := have.UTC().Date()
	haveDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch op {
	case OpGte:
		return !haveDay.Before(day)
	case OpLte:
		return !haveDay.After(day)
	case OpEq:
		return haveDay.Equal(day)
	}
	return false
}

func matchString(op Operator, have, want string) bool {
	have = strings.TrimSpace(have)
	want = strings.TrimSpace(want)

	switch op {
	case OpEq:
		return strings.EqualFold(have, want)
	case OpNe:
		return !strings.EqualFold(have, want)
	case OpContains:
		return strings.Contains(strings.ToLower(have), strings.ToLower(want))
	}
	return false
}
