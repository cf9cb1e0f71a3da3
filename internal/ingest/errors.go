package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/stockfinder/internal/external/apierr"
	"github.com/wonny/stockfinder/internal/store"
)

// Error kinds emitted in JSON error objects
const (
	KindMissingCredential = "missing_credential"
	KindInvalidWindow     = "invalid_window"
	KindEmptyScope        = "empty_scope"
	KindRunNotFound       = "run_not_found"
	KindPersistence       = "persistence"
	KindProvider          = "provider"
	KindInternal          = "internal"
)

// MissingCredentialError names every missing credential key at once
type MissingCredentialError struct {
	Keys []string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing credentials: %s", strings.Join(e.Keys, ", "))
}

// InvalidWindowError reports contradictory window bounds
type InvalidWindowError struct {
	From string
	To   string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid window: as_of_from %s is after as_of_to %s", e.From, e.To)
}

// InvalidDateError reports an unparseable date flag value
type InvalidDateError struct {
	Field string
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date for %s: %q", e.Field, e.Value)
}

// EmptyScopeError reports that no symbol could be resolved for the run
type EmptyScopeError struct {
	Scope Scope
}

func (e *EmptyScopeError) Error() string {
	return fmt.Sprintf("empty scope: no symbol resolvable for scope=%s", e.Scope)
}

// RunNotFoundError reports an unknown run_id on a query command
type RunNotFoundError struct {
	RunID string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// PersistenceError wraps a store write failure for one work item
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// KindOf maps an error to its machine-readable kind
func KindOf(err error) string {
	var mc *MissingCredentialError
	var iw *InvalidWindowError
	var id *InvalidDateError
	var es *EmptyScopeError
	var rnf *RunNotFoundError
	var pe *PersistenceError
	var ae *apierr.Error

	switch {
	case errors.As(err, &mc):
		return KindMissingCredential
	case errors.As(err, &iw), errors.As(err, &id):
		return KindInvalidWindow
	case errors.As(err, &es):
		return KindEmptyScope
	case errors.As(err, &rnf), errors.Is(err, store.ErrRunNotFound):
		return KindRunNotFound
	case errors.As(err, &pe):
		return KindPersistence
	case errors.As(err, &ae):
		return KindProvider
	default:
		return KindInternal
	}
}

// ErrorObject is the JSON body emitted on fatal error paths
type ErrorObject struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable kind and human message
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewErrorObject builds the JSON error body for err
func NewErrorObject(err error) ErrorObject {
	return ErrorObject{Error: ErrorDetail{Kind: KindOf(err), Message: err.Error()}}
}

// outcomeError converts an item failure into a stored outcome error entry
func outcomeError(symbol string, err error) store.OutcomeError {
	provider := "store"
	var ae *apierr.Error
	if errors.As(err, &ae) {
		provider = ae.Provider
	}
	return store.OutcomeError{
		Provider: provider,
		Symbol:   symbol,
		Message:  err.Error(),
	}
}
