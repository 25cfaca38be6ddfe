// Package errors defines the typed error taxonomy shared by every agentpay
// component. Every error carries a machine-readable Code plus a
// human-readable Message, and the transport layer maps Code to an HTTP
// status through a single table (see StatusFor).
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error identifier, stable across releases.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeMandateExpired    Code = "MANDATE_EXPIRED"
	CodeChainLinkage      Code = "CHAIN_LINKAGE_ERROR"
	CodePolicyDenied      Code = "POLICY_DENIED"
	CodeComplianceDenied  Code = "COMPLIANCE_DENIED"
	CodeReplayDetected    Code = "REPLAY_DETECTED"
	CodeTransactionFailed Code = "TRANSACTION_FAILED"
	CodeUpstreamUnavail   Code = "UPSTREAM_UNAVAILABLE"
	CodeTimeout           Code = "TIMEOUT"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// statusTable is the single code -> HTTP status mapping used by every
// transport (HTTP, gRPC-gateway, websocket error frames).
var statusTable = map[Code]int{
	CodeValidation:        400,
	CodeNotFound:          404,
	CodeConflict:          409,
	CodeMandateExpired:    400,
	CodeChainLinkage:      400,
	CodePolicyDenied:      403,
	CodeComplianceDenied:  451,
	CodeReplayDetected:    409,
	CodeTransactionFailed: 502,
	CodeUpstreamUnavail:   503,
	CodeTimeout:           504,
	CodeInternal:          500,
}

// StatusFor returns the HTTP status associated with a code, defaulting to
// 500 for unrecognized codes.
func StatusFor(code Code) int {
	if status, ok := statusTable[code]; ok {
		return status
	}
	return 500
}

// Error is the base type for every agentpay domain error. It implements the
// stdlib error interface and supports errors.Is/errors.As via Unwrap.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code this error maps to.
func (e *Error) Status() int { return StatusFor(e.Code) }

// WithDetail attaches a detail key/value and returns the receiver for
// chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

func newError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Validation reports malformed input: bad amount, missing field, etc.
func Validation(format string, args ...any) *Error {
	return newError(CodeValidation, fmt.Sprintf(format, args...), nil)
}

// NotFound reports a missing resource, named by kind and id.
func NotFound(kind, id string) *Error {
	return newError(CodeNotFound, fmt.Sprintf("%s not found: %s", kind, id), nil)
}

// Conflict reports an illegal state transition or a duplicate claim.
func Conflict(format string, args ...any) *Error {
	return newError(CodeConflict, fmt.Sprintf(format, args...), nil)
}

// MandateExpired reports that a mandate's expires_at has passed.
func MandateExpired(mandateID string) *Error {
	return newError(CodeMandateExpired, fmt.Sprintf("mandate expired: %s", mandateID), nil)
}

// ChainLinkageError reports a MandateChain invariant violation.
func ChainLinkageError(format string, args ...any) *Error {
	return newError(CodeChainLinkage, fmt.Sprintf(format, args...), nil)
}

// PolicyDenied reports a spending-policy rejection with its stable reason
// code (see native/policy for the full reason vocabulary).
func PolicyDenied(reason string) *Error {
	return newError(CodePolicyDenied, "policy denied: "+reason, nil).WithDetail("reason", reason)
}

// ComplianceDenied reports a compliance preflight rejection.
func ComplianceDenied(reason, provider, ruleID string) *Error {
	err := newError(CodeComplianceDenied, "compliance denied: "+reason, nil).WithDetail("reason", reason)
	if provider != "" {
		err.WithDetail("provider", provider)
	}
	if ruleID != "" {
		err.WithDetail("rule_id", ruleID)
	}
	return err
}

// ReplayDetected reports that a mandate_id has already been claimed.
func ReplayDetected(mandateID string) *Error {
	return newError(CodeReplayDetected, fmt.Sprintf("replay detected: %s", mandateID), nil)
}

// TransactionFailed reports an executor-port failure.
func TransactionFailed(chain, reason string) *Error {
	return newError(CodeTransactionFailed, fmt.Sprintf("transaction failed on %s: %s", chain, reason), nil).
		WithDetail("chain", chain).WithDetail("reason", reason)
}

// UpstreamUnavailable reports a downstream dependency outage.
func UpstreamUnavailable(what string, cause error) *Error {
	return newError(CodeUpstreamUnavail, fmt.Sprintf("%s unavailable", what), cause)
}

// Timeout reports an operation that exceeded its deadline.
func Timeout(what string, cause error) *Error {
	return newError(CodeTimeout, fmt.Sprintf("%s timed out", what), cause)
}

// Internal wraps an unexpected error without leaking its detail to callers;
// the original cause remains available to logs via Unwrap.
func Internal(cause error) *Error {
	return newError(CodeInternal, "internal error", cause)
}

// As is a convenience wrapper around errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// CodeOf extracts the Code from err, defaulting to CodeInternal when err is
// not an *Error.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}
