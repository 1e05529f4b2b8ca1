// Package money implements fixed-point currency amounts stored as integer
// minor units (cents).
package money

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Amount is a currency value in cents
type Amount int64

const (
	// Zero is the zero amount
	Zero Amount = 0
	// Max and Min bound every amount. Arithmetic saturates at them.
	Max Amount = math.MaxInt64
	Min Amount = math.MinInt64
)

// FromCents returns the amount for the given number of cents
func FromCents(cents int64) Amount {
	return Amount(cents)
}

// Parse parses a decimal string such as "1.70", "18", "-3.5" or "0.05".
// More than two fractional digits is an error.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q: more than two decimal places", s)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("amount %q out of range", s)
	}

	v := units*100 + cents
	if neg {
		v = -v
	}
	return Amount(v), nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Cents returns the amount in minor units
func (a Amount) Cents() int64 {
	return int64(a)
}

// Add returns a+b, saturating at Max or Min
func (a Amount) Add(b Amount) Amount {
	switch {
	case b > 0 && a > Max-b:
		return Max
	case b < 0 && a < Min-b:
		return Min
	}
	return a + b
}

// Sub returns a-b, saturating at Max or Min
func (a Amount) Sub(b Amount) Amount {
	switch {
	case b < 0 && a > Max+b:
		return Max
	case b > 0 && a < Min+b:
		return Min
	}
	return a - b
}

// Mul returns a*n, saturating at Max or Min
func (a Amount) Mul(n int64) Amount {
	if a == 0 || n == 0 {
		return 0
	}
	p := a * Amount(n)
	if (a == Min && n == -1) || (n == math.MinInt64 && a == -1) || p/Amount(n) != a {
		if (a < 0) != (n < 0) {
			return Min
		}
		return Max
	}
	return p
}

// AddChecked returns a+b and false when the sum does not fit
func (a Amount) AddChecked(b Amount) (Amount, bool) {
	if (b > 0 && a > Max-b) || (b < 0 && a < Min-b) {
		return 0, false
	}
	return a + b, true
}

// Cmp compares a and b and returns -1, 0 or +1
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsNegative reports whether a < 0
func (a Amount) IsNegative() bool {
	return a < 0
}

// IsZero reports whether a == 0
func (a Amount) IsZero() bool {
	return a == 0
}

// String formats the amount with two decimal places
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// UnmarshalYAML accepts a decimal scalar such as 1.70
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", value.Line)
	}
	v, err := Parse(value.Value)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalYAML encodes the amount as a decimal string
func (a Amount) MarshalYAML() (any, error) {
	return a.String(), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
