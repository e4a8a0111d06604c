package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of these.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateName      = errors.New("name already exists")
	ErrInUse              = errors.New("in use")
	ErrCircularDependency = errors.New("circular dependency detected")
	ErrRequiredField      = errors.New("required field")
	ErrFieldTypeMismatch  = errors.New("field type mismatch")
	ErrOutOfRange         = errors.New("out of range")
	ErrPatternMismatch    = errors.New("pattern mismatch")
	ErrFileTooLarge       = errors.New("file size exceeds maximum allowed size")
	ErrInvalidFileType    = errors.New("file type is not allowed")
	ErrInvalidSchedule    = errors.New("scheduled date must be in the future")
	ErrInvalidField       = errors.New("invalid field")
)

var (
	ErrComponentNotFound   = fmt.Errorf("component %w", ErrNotFound)
	ErrContentTypeNotFound = fmt.Errorf("content type %w", ErrNotFound)
	ErrEntryNotFound       = fmt.Errorf("entry %w", ErrNotFound)
	ErrMediaNotFound       = fmt.Errorf("media file %w", ErrNotFound)
	ErrFieldNotFound       = fmt.Errorf("field %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrTokenNotFound       = fmt.Errorf("api token %w", ErrNotFound)
	ErrWebhookNotFound     = fmt.Errorf("webhook %w", ErrNotFound)
	ErrLocaleNotFound      = fmt.Errorf("locale %w", ErrNotFound)
)

// FieldError is a validation failure attributed to a single field.
// Kind is one of the error kinds above.
type FieldError struct {
	Field   string      `json:"field"`
	Kind    error       `json:"-"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *FieldError) Error() string {
	return e.Message
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// NewFieldError builds a FieldError with a formatted message
func NewFieldError(kind error, field, format string, args ...interface{}) *FieldError {
	return &FieldError{
		Field:   field,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}
