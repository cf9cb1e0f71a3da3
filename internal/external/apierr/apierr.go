// Package apierr defines the typed error surface shared by provider clients.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure
type Kind string

const (
	KindAuth        Kind = "auth"
	KindRateLimit   Kind = "rate_limit"
	KindNotFound    Kind = "not_found"
	KindTransport   Kind = "transport"
	KindBadResponse Kind = "bad_response"
)

// Error is a typed provider error
// ⭐ SSOT: 외부 API 오류는 이 타입으로만 전달
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (%s, status %d)", e.Provider, e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed provider error
func New(provider string, kind Kind, message string) *Error {
	return &Error{Provider: provider, Kind: kind, Message: message}
}

// Wrap creates a transport-kind error around err
func Wrap(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: KindTransport, Message: err.Error(), Err: err}
}

// FromStatus maps an HTTP status code to a typed error
func FromStatus(provider string, statusCode int, body string) *Error {
	kind := KindBadResponse
	switch {
	case statusCode == 401 || statusCode == 403:
		kind = KindAuth
	case statusCode == 404:
		kind = KindNotFound
	case statusCode == 429:
		kind = KindRateLimit
	case statusCode >= 500:
		kind = KindTransport
	}
	msg := fmt.Sprintf("unexpected status %d", statusCode)
	if body != "" {
		if len(body) > 300 {
			body = body[:300]
		}
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	return &Error{Provider: provider, Kind: kind, StatusCode: statusCode, Message: msg}
}

// KindOf extracts the kind from err, KindTransport when untyped
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransport
}

// Is reports whether err is a provider error of the given kind
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
