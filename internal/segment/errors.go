package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrLastRule is returned when removing the only remaining rule
	ErrLastRule = errors.New("segment must keep at least one rule")
	// ErrRuleIndex is returned for an index outside the rule list
	ErrRuleIndex = errors.New("rule index out of range")
	// ErrFormLocked is returned for edits while a submission is in flight
	ErrFormLocked = errors.New("segment form is locked while submitting")
	// ErrFormClosed is returned for operations on a closed form
	ErrFormClosed = errors.New("segment form is not open")
)

// ValidationError is a local input error. Message is safe to show to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
