package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/foxzi/reachgate/internal/segment"
)

// ErrNoPhoneColumn is returned when no header maps to the phone field
var ErrNoPhoneColumn = errors.New("CSV header has no phone column")

// headerAliases maps contact fields to accepted column names
var headerAliases = map[string][]string{
	"name":                   {"name", "full_name", "fullname", "contact_name"},
	"phone":                  {"phone", "phone_number", "phonenumber", "mobile", "msisdn", "whatsapp"},
	"email":                  {"email", "email_address", "e_mail", "mail"},
	"tags":                   {"tags", "labels", "categories"},
	"engagement_status":      {"engagement_status", "engagement", "status"},
	"last_active_date":       {"last_active_date", "last_active", "last_seen"},
	"created_at":             {"created_at", "created", "signup_date"},
	"campaigns_participated": {"campaigns_participated", "campaigns", "campaign_participated"},
}

// RowError reports a rejected CSV row
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Result is the outcome of parsing a CSV file
type Result struct {
	Contacts []*segment.Contact
	Skipped  []*RowError
}

// ParseCSV reads contacts from CSV with a header row. List columns (tags,
// campaigns) are split on ';' or '|'. Rows without a phone or with bad dates
// are skipped and reported.
func ParseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := mapColumns(header)
	if _, ok := columns["phone"]; !ok {
		return nil, ErrNoPhoneColumn
	}

	result := &Result{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		c, err := parseRecord(record, columns)
		if err != nil {
			result.Skipped = append(result.Skipped, &RowError{Line: line, Err: err})
			continue
		}
		result.Contacts = append(result.Contacts, c)
	}

	return result, nil
}

func parseRecord(record []string, columns map[string]int) (*segment.Contact, error) {
	get := func(field string) string {
		idx, ok := columns[field]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	c := &segment.Contact{
		Name:                  get("name"),
		Phone:                 get("phone"),
		Email:                 get("email"),
		Tags:                  splitList(get("tags")),
		EngagementStatus:      strings.ToLower(get("engagement_status")),
		CampaignsParticipated: splitList(get("campaigns_participated")),
	}
	if c.Phone == "" {
		return nil, fmt.Errorf("phone is empty")
	}

	var err error
	if c.LastActiveDate, err = parseDate(get("last_active_date")); err != nil {
		return nil, fmt.Errorf("last_active_date: %w", err)
	}
	if c.CreatedAt, err = parseDate(get("created_at")); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}

	return c, nil
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for idx, h := range header {
		normalized := normalizeHeader(h)
		for field, aliases := range headerAliases {
			if _, taken := columns[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if normalized == alias {
					columns[field] = idx
					break
				}
			}
		}
	}
	return columns
}

func normalizeHeader(header string) string {
	normalized := strings.ToLower(strings.TrimSpace(header))
	normalized = strings.TrimPrefix(normalized, "\ufeff")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return normalized
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty means no date.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(segment.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
