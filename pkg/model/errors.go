package model

import (
	"errors"
	"strings"
)

type ErrorKind string

const (
	// ErrorKindAuthentication aborts the suite before any probe runs.
	ErrorKindAuthentication ErrorKind = "authentication"
	// ErrorKindTransport covers network errors, timeouts and non-200 statuses.
	ErrorKindTransport ErrorKind = "transport"
	// ErrorKindMalformedResponse is raised by the response validator.
	ErrorKindMalformedResponse ErrorKind = "malformed_response"
	// ErrorKindNotification is only ever logged.
	ErrorKindNotification ErrorKind = "notification"
)

// ProbeError classifies a failure. Section is set when a malformed response
// can be pinned to one summary section or top-level field.
type ProbeError struct {
	Kind    ErrorKind
	Section string
	Err     error
}

func NewProbeError(kind ErrorKind, err error) *ProbeError {
	return &ProbeError{Kind: kind, Err: err}
}

func NewSectionError(section string, err error) *ProbeError {
	return &ProbeError{Kind: ErrorKindMalformedResponse, Section: section, Err: err}
}

func (e *ProbeError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Section != "" {
		b.WriteString(" [")
		b.WriteString(e.Section)
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProbeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf returns the kind of the first ProbeError in err's chain, or "" when
// there is none.
func KindOf(err error) ErrorKind {
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr.Kind
	}
	return ""
}

// AsProbeError returns err's ProbeError, wrapping it with fallback when the
// chain carries none.
func AsProbeError(err error, fallback ErrorKind) *ProbeError {
	if err == nil {
		return nil
	}
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr
	}
	return NewProbeError(fallback, err)
}
