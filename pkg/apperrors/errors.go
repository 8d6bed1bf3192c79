package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")

	ErrInvalidRole         = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrNotApproved         = fmt.Errorf("%w: supervision is not approved", ErrValidation)
	ErrAlreadyAcknowledged = fmt.Errorf("%w: supervision already acknowledged", ErrConflict)
	ErrInUse               = fmt.Errorf("%w: entity is still referenced", ErrConflict)
	ErrSelfDelete          = fmt.Errorf("%w: cannot delete your own account", ErrValidation)
	ErrNoSchoolForActor    = fmt.Errorf("%w: no school is linked to this account", ErrForbidden)
	ErrNotAssigned         = fmt.Errorf("%w: you are not assigned to this school", ErrForbidden)
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError carries a human readable message plus per-field details.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

// NewValidationError builds a ValidationError with an optional list of field errors.
func NewValidationError(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
