package validate

import "errors"

// ValidationError is a rejected selection. Message is shown to the user as is.
type ValidationError struct {
	Rule    Rule
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError
func NewValidationError(rule Rule, message string) *ValidationError {
	return &ValidationError{
		Rule:    rule,
		Message: message,
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsRule checks if an error is a ValidationError raised by rule
func IsRule(err error, rule Rule) bool {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Rule == rule
	}
	return false
}

// Messages maps failures by rule name, the shape the page renders.
func Messages(failures []*ValidationError) map[string]string {
	out := make(map[string]string, len(failures))
	for _, f := range failures {
		out[string(f.Rule)] = f.Message
	}
	return out
}

func asValidationError(rule Rule, err error) *ValidationError {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr
	}
	return NewValidationError(rule, err.Error())
}
