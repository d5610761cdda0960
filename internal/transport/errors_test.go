package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDetermineErrorKind(t *testing.T) {
	tests := []struct {
		stderr string
		want   ErrorKind
	}{
		{"fatal: ambiguous argument 'nope': unknown revision or path not in the working tree.", UnknownReference},
		{"fatal: couldn't find remote ref refs/heads/nope", UnknownReference},
		{"error: pathspec 'nope' did not match any file(s) known to git", UnknownReference},
		{"fatal: could not read Username for 'https://example.com': terminal prompts disabled", AuthRequired},
		{"git@example.com: Permission denied (publickey).", AuthRequired},
		{"fatal: unable to access 'https://nohost/': Could not resolve host: nohost", RepositoryUnavailable},
		{"remote: Repository not found.\nfatal: repository 'https://example.com/x.git/' not found", RepositoryNotFound},
		{"fatal: '/tmp/x' does not appear to be a git repository", RepositoryNotFound},
		{"fatal: not a git repository (or any of the parent directories): .git", NotRepository},
		{"something else entirely", Unknown},
	}

	for _, tt := range tests {
		if got := determineErrorKind(tt.stderr); got != tt.want {
			t.Errorf("determineErrorKind(%q) = %v, want %v", tt.stderr, got, tt.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{
		Kind:   RepositoryNotFound,
		Op:     "clone",
		Repo:   "https://example.com/x.git",
		Err:    errors.New("git clone: exit status 128"),
		StdErr: "fatal: repository not found\n",
	}
	got := err.Error()
	for _, want := range []string{"clone", "https://example.com/x.git", "exit status 128", "fatal: repository not found"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	inner := &Error{Kind: AuthRequired, Err: errors.New("denied")}
	wrapped := fmt.Errorf("ensuring dep: %w", inner)

	if KindOf(wrapped) != AuthRequired {
		t.Errorf("KindOf = %v, want %v", KindOf(wrapped), AuthRequired)
	}
	if !IsError(wrapped) {
		t.Error("IsError should see through wrapping")
	}
	if KindOf(context.DeadlineExceeded) != Timeout {
		t.Errorf("KindOf(DeadlineExceeded) = %v", KindOf(context.DeadlineExceeded))
	}
	if IsKind(nil, Unknown) {
		t.Error("IsKind(nil) should be false")
	}
}

func TestRefShort(t *testing.T) {
	tests := []struct {
		ref    Ref
		short  string
		branch bool
		tag    bool
	}{
		{Ref{Name: "refs/heads/main"}, "main", true, false},
		{Ref{Name: "refs/heads/release/1.x"}, "release/1.x", true, false},
		{Ref{Name: "refs/tags/v1.0"}, "v1.0", false, true},
		{Ref{Name: "HEAD"}, "HEAD", false, false},
	}
	for _, tt := range tests {
		if got := tt.ref.Short(); got != tt.short {
			t.Errorf("%s.Short() = %q, want %q", tt.ref.Name, got, tt.short)
		}
		if tt.ref.IsBranch() != tt.branch || tt.ref.IsTag() != tt.tag {
			t.Errorf("%s: branch=%v tag=%v", tt.ref.Name, tt.ref.IsBranch(), tt.ref.IsTag())
		}
	}
}

func TestTargetString(t *testing.T) {
	commit := "0123456789abcdef0123456789abcdef01234567"
	if got := (Target{Ref: "v1.0", Commit: commit}).String(); got != "v1.0 (01234567)" {
		t.Errorf("String() = %q", got)
	}
	if got := (Target{Commit: commit}).String(); got != "01234567" {
		t.Errorf("String() = %q", got)
	}
}
