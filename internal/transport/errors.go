package transport

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrorKind classifies a transport failure.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	GitNotFound
	UnknownReference
	AuthRequired
	RepositoryNotFound
	RepositoryUnavailable
	NotRepository
	Timeout
	Canceled
)

func (k ErrorKind) String() string {
	switch k {
	case GitNotFound:
		return "git not found"
	case UnknownReference:
		return "unknown reference"
	case AuthRequired:
		return "authentication required"
	case RepositoryNotFound:
		return "repository not found"
	case RepositoryUnavailable:
		return "repository unavailable"
	case NotRepository:
		return "not a repository"
	case Timeout:
		return "timeout"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// Error is returned by transport operations.
type Error struct {
	Kind   ErrorKind
	Op     string
	Args   []string
	Repo   string
	Ref    string
	Err    error
	StdErr string
}

func (e *Error) Error() string {
	b := new(strings.Builder)
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Repo != "" {
		b.WriteString(e.Repo)
		b.WriteString(": ")
	}
	if e.Ref != "" {
		b.WriteString(e.Ref)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Kind.String())
	}
	if s := strings.TrimSpace(e.StdErr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.Is(err, context.Canceled):
		return Canceled
	}
	return Unknown
}

// IsKind reports whether err carries a transport error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsError reports whether err originated in the transport.
func IsError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

var repoNotFoundPattern = regexp.MustCompile(`fatal: repository '.*' not found`)

func determineErrorKind(stdErr string) ErrorKind {
	switch {
	case strings.Contains(stdErr, "unknown revision or path not in the working tree"),
		strings.Contains(stdErr, "couldn't find remote ref"),
		strings.Contains(stdErr, "Couldn't find remote ref"),
		strings.Contains(stdErr, "did not match any file(s) known to git"),
		strings.Contains(stdErr, "reference is not a tree"),
		strings.Contains(stdErr, "Not a valid commit name"),
		strings.Contains(stdErr, "not our ref"):
		return UnknownReference
	case strings.Contains(stdErr, "could not read Username"),
		strings.Contains(stdErr, "Authentication failed"),
		strings.Contains(stdErr, "Permission denied (publickey"):
		return AuthRequired
	case strings.Contains(stdErr, "Could not resolve host"),
		strings.Contains(stdErr, "Connection refused"),
		strings.Contains(stdErr, "Connection timed out"):
		return RepositoryUnavailable
	case repoNotFoundPattern.MatchString(stdErr),
		strings.Contains(stdErr, "does not appear to be a git repository"):
		return RepositoryNotFound
	case strings.Contains(stdErr, "not a git repository"):
		return NotRepository
	}
	return Unknown
}
