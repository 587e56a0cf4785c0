package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a missing or malformed required field.
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey indicates a uniqueness violation on insert.
	ErrDuplicateKey = errors.New("duplicate key")
)

// UpstreamGatewayError reports a failed call against the external gateway,
// carrying the identifier of the step that failed so operators can re-run
// provisioning safely.
type UpstreamGatewayError struct {
	Step       string // e.g. "group_filter", "mt_route", "dest_filter"
	FilterID   string
	StatusCode int
	Err        error
}

func (e *UpstreamGatewayError) Error() string {
	if e.FilterID != "" {
		return fmt.Sprintf("gateway %s step failed for %s (status %d): %v", e.Step, e.FilterID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s step failed (status %d): %v", e.Step, e.StatusCode, e.Err)
}

func (e *UpstreamGatewayError) Unwrap() error { return e.Err }
