// Package faults defines the error taxonomy shared by all pipeline components.
// Each error carries a Kind; the Kind name doubles as the Temporal
// non-retryable error type, so workflow retry policies can name kinds directly.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry decisions and REST status mapping.
type Kind string

const (
	// BadInput covers malformed configuration, invalid domains, hostnames,
	// IPs, CPE strings, CVE ids, and missing required environment variables.
	BadInput Kind = "BadInput"

	// TransientNetwork covers connection refused, timeouts, and HTTP 5xx.
	TransientNetwork Kind = "TransientNetwork"

	// RateLimited is raised on HTTP 429 from the NVD API.
	RateLimited Kind = "RateLimited"

	// EnumerationToolError is raised when an external tool exits non-zero.
	EnumerationToolError Kind = "EnumerationToolError"

	// NoDomainsFound is raised when a merge of enumerator outputs is empty.
	NoDomainsFound Kind = "NoDomainsFoundError"

	// StoreTransient covers graph-store deadlocks and transient cluster errors.
	StoreTransient Kind = "StoreTransient"

	// StoreConstraint covers primary-key and constraint violations; callers
	// see it as bad input rather than as something worth retrying.
	StoreConstraint Kind = "StoreConstraint"

	// ScheduleAlreadyRunning signals that an idempotent schedule creation
	// found an existing schedule. Informational, not a failure.
	ScheduleAlreadyRunning Kind = "ScheduleAlreadyRunning"
)

// Retryable reports whether an error of this kind is worth retrying.
func (k Kind) Retryable() bool {
	switch k {
	case TransientNetwork, RateLimited, StoreTransient:
		return true
	default:
		return false
	}
}

// String returns the kind name used in Temporal non_retryable_error_types.
func (k Kind) String() string { return string(k) }

// Error is an error with a Kind attached.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, or returns the empty kind.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err should be retried. Unclassified errors are
// treated as retryable so that unexpected failures go through the declared
// retry budget instead of failing the workflow outright.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if k := KindOf(err); k != "" {
		return k.Retryable()
	}
	return true
}
