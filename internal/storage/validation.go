package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/digital-twin/internal/simulation"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRun   = errors.New("invalid run")
	ErrRunNotFound  = errors.New("run not found")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateResult checks a run before it is written.
func validateResult(result *simulation.Result) error {
	if result == nil {
		return fmt.Errorf("%w: result", ErrNilParameter)
	}
	if strings.TrimSpace(result.RunID) == "" {
		return fmt.Errorf("%w: run ID is required", ErrInvalidRun)
	}
	for i, rec := range result.Records {
		if rec.ID == "" {
			return fmt.Errorf("%w: record at index %d has no customer ID", ErrInvalidRun, i)
		}
		if !rec.TwinResponse.Valid() {
			return fmt.Errorf("%w: record %s has unknown response %q", ErrInvalidRun, rec.ID, rec.TwinResponse)
		}
	}
	return nil
}
