package engine

import (
	"errors"
	"strings"
)

// ErrorKind classifies a reconciliation failure.
type ErrorKind string

const (
	KindIO        ErrorKind = "io"
	KindTransport ErrorKind = "transport"
	KindConflict  ErrorKind = "conflict"
	// KindInvariant means an operation reported success but the working copy
	// does not match the desired revision afterwards.
	KindInvariant ErrorKind = "invariant"
)

// Error is attached to every failed Outcome.
type Error struct {
	Kind     ErrorKind
	Path     string
	Expected string
	Actual   string
	Err      error
}

func (e *Error) Error() string {
	b := new(strings.Builder)
	b.WriteString(string(e.Kind))
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": expected ")
		b.WriteString(orNone(e.Expected))
		b.WriteString(", found ")
		b.WriteString(orNone(e.Actual))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

func orNone(s string) string {
	if s == "" {
		return "nothing"
	}
	return s
}

// failureAction maps an error kind to the outcome it produces.
func failureAction(kind ErrorKind) Action {
	switch kind {
	case KindIO:
		return ActionFailedIO
	case KindConflict:
		return ActionFailedConflict
	}
	return ActionFailedTransport
}
