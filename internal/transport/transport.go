// Package transport is the boundary between the reconciliation engine and the
// version-control tool that performs network and object-store operations.
package transport

import (
	"context"
	"strings"
)

// Transport performs the version-control operations the engine depends on.
// Implementations must honour ctx cancellation on every call.
type Transport interface {
	// ResolveLatest returns the tip of the remote's default branch.
	ResolveLatest(ctx context.Context, source string) (Ref, error)

	// ListRefs returns the branches and tags advertised by the remote.
	// Annotated tags are reported with the commit they point to.
	ListRefs(ctx context.Context, source string) ([]Ref, error)

	// IsAncestor reports whether ancestor is reachable from descendant, both
	// taken from the working copy at dir. A descendant missing from dir is
	// fetched from its origin into scratch storage; dir is never written to.
	IsAncestor(ctx context.Context, dir, ancestor, descendant string) (bool, error)

	// HasCommit reports whether rev names a commit in the working copy at dir.
	HasCommit(ctx context.Context, dir, rev string) (bool, error)

	// Clone creates a working copy of source at dest checked out at target.
	// dest must not exist.
	Clone(ctx context.Context, source, dest string, target Target) error

	// FetchAndCheckout fetches from origin and moves the working copy at dir
	// to target. On failure the previous checkout is restored.
	FetchAndCheckout(ctx context.Context, dir string, target Target) error

	// Status describes the checkout at dir.
	Status(ctx context.Context, dir string) (Status, error)

	// Collisions returns the subset of paths that are tracked at rev. Like
	// IsAncestor it fetches a missing rev without writing to dir.
	Collisions(ctx context.Context, dir, rev string, paths []string) ([]string, error)
}

// Ref is a named reference advertised by a remote.
type Ref struct {
	Name   string // full name, e.g. refs/heads/main
	Commit string
}

// Short returns the reference name without its refs/heads/ or refs/tags/ prefix.
func (r Ref) Short() string {
	switch {
	case strings.HasPrefix(r.Name, "refs/heads/"):
		return strings.TrimPrefix(r.Name, "refs/heads/")
	case strings.HasPrefix(r.Name, "refs/tags/"):
		return strings.TrimPrefix(r.Name, "refs/tags/")
	}
	return r.Name
}

// IsBranch reports whether the reference is a branch head.
func (r Ref) IsBranch() bool {
	return strings.HasPrefix(r.Name, "refs/heads/")
}

// IsTag reports whether the reference is a tag.
func (r Ref) IsTag() bool {
	return strings.HasPrefix(r.Name, "refs/tags/")
}

// Target is a revision resolved to a concrete commit.
type Target struct {
	Ref    string // short branch or tag name; empty for a bare commit id
	Commit string
	Branch bool // Ref names a remote branch
}

// String returns a human-readable form such as "v1.0 (1a2b3c4d)".
func (t Target) String() string {
	if t.Ref == "" {
		return ShortCommit(t.Commit)
	}
	return t.Ref + " (" + ShortCommit(t.Commit) + ")"
}

// Status describes a working copy.
type Status struct {
	Head      string // full commit id of HEAD; empty on an unborn branch
	Branch    string // checked-out branch; empty when detached
	Modified  []string
	Untracked []string
}

// Dirty reports whether tracked files have uncommitted changes.
func (s Status) Dirty() bool {
	return len(s.Modified) > 0
}

// ShortCommit abbreviates a commit id for display.
func ShortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
