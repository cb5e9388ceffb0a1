package main

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLine marks a line that looked structured but was missing a required space or delimiter.
	ErrMalformedLine = errors.New("malformed line")
	// ErrSourceUnavailable is returned when the log source cannot be read.
	ErrSourceUnavailable = errors.New("log source unavailable")
	// ErrPersistenceCorrupt marks a registry file that could not be decoded into its expected shape.
	ErrPersistenceCorrupt = errors.New("registry file corrupt")
	// ErrPersistenceWrite is returned when a registry could not be written; memory is still updated.
	ErrPersistenceWrite = errors.New("registry write failed")
	// ErrTransport wraps a notification channel failure.
	ErrTransport = errors.New("transport failed")
)

// LineError reports a malformed line together with its text.
type LineError struct {
	Line   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s: %s: %q", ErrMalformedLine, e.Reason, e.Line)
}

func (e *LineError) Unwrap() error { return ErrMalformedLine }
