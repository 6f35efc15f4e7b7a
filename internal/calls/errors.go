package calls

import (
	"errors"
	"strings"
)

var ErrValidation = errors.New("calls: invalid call config")

// ValidationError names the first mandatory field that was missing or invalid.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	return "calls: " + e.Field + " " + reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type field struct {
	name  string
	value string
}

// requireFields reports the first blank field, prefixed with scope when set.
func requireFields(scope string, fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			name := f.name
			if scope != "" {
				name = scope + "." + f.name
			}
			return &ValidationError{Field: name}
		}
	}
	return nil
}
