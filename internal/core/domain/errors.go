package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound   = errors.New("upload session not found")
	ErrInvalidFile       = errors.New("invalid file")
	ErrUploadSetup       = errors.New("upload setup failed")
	ErrSuggestionRequest = errors.New("suggestion request failed")
	ErrStateConflict     = errors.New("workflow state conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

func errInvalidField(field string) error {
	return fmt.Errorf("unknown form field %q", field)
}
