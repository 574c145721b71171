// Package rpcerr defines the typed error taxonomy shared by the
// storage-RPC client, the send/receive paths, and the open-group REST
// client, so callers can distinguish recoverable failures from ones that
// require re-entering a higher-level flow (swarm migration, a PoW bump, a
// cleared auth token).
package rpcerr

import "fmt"

// Kind identifies one of the error classes.
type Kind string

const (
	KindHTTPRequestFailed           Kind = "http_request_failed"
	KindSnodeMigrated               Kind = "snode_migrated"
	KindInsufficientProofOfWork     Kind = "insufficient_proof_of_work"
	KindTokenExpired                Kind = "token_expired"
	KindParsingFailed               Kind = "parsing_failed"
	KindMessageSigningFailed        Kind = "message_signing_failed"
	KindMessageConversionFailed     Kind = "message_conversion_failed"
	KindProofOfWorkCalculationFailed Kind = "proof_of_work_calculation_failed"
	KindMaxSizeExceeded             Kind = "max_size_exceeded"
	KindGeneric                     Kind = "generic"
)

// Error is the common error type across the core. Status is populated for
// HTTPRequestFailed (0 means a transport-level failure, never an HTTP
// response).
type Error struct {
	Kind    Kind
	Status  int
	Body    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Kind == KindHTTPRequestFailed {
		return fmt.Sprintf("%s: status=%d", e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can use errors.Is(err, rpcerr.New(rpcerr.KindTokenExpired, "")) style
// checks, or more commonly errors.As plus a Kind comparison.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error of the given kind with a human-readable message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind, wrapping an underlying cause.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// HTTPRequestFailed builds the error the HTTP client returns for transport
// failures (status 0) and non-2xx responses.
func HTTPRequestFailed(status int, body string) *Error {
	return &Error{Kind: KindHTTPRequestFailed, Status: status, Body: body}
}

// IsFatal reports whether err belongs to the "fatal to this call" set the
// bounded retry wrapper must not retry: SnodeMigrated, InsufficientProofOfWork
// (difficulty has already been updated as a side effect), and TokenExpired
// (the token has already been cleared). These are surfaced so callers can
// react and re-enter the higher-level flow instead of blindly retrying.
func IsFatal(err error) bool {
	rpcErr, ok := err.(*Error)
	if !ok {
		return false
	}
	switch rpcErr.Kind {
	case KindSnodeMigrated, KindInsufficientProofOfWork, KindTokenExpired:
		return true
	default:
		return false
	}
}
