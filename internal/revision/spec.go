// Package revision resolves desired revisions to commits and classifies how a
// working copy's current commit relates to them.
package revision

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Latest is the revision spelling for the tip of the remote default branch.
const Latest = "latest"

// Kind says how a revision spec is resolved.
type Kind int

const (
	// KindLatest follows the remote default branch.
	KindLatest Kind = iota
	// KindConstraint picks the highest tag satisfying a semantic version constraint.
	KindConstraint
	// KindLiteral names a branch, a tag or a commit id.
	KindLiteral
)

// Spec is a parsed desired revision.
type Spec struct {
	Raw        string
	Kind       Kind
	constraint *semver.Constraints
}

// ParseSpec classifies raw. An exact version such as "v1.2.0" stays a literal
// tag name; only strings that parse as a constraint but not as a version
// ("^1.2", "~1.4", ">= 2, < 3", "1.x") select by constraint.
func ParseSpec(raw string) Spec {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", Latest, "HEAD":
		return Spec{Raw: raw, Kind: KindLatest}
	}

	if _, err := semver.NewVersion(raw); err == nil {
		return Spec{Raw: raw, Kind: KindLiteral}
	}
	if c, err := semver.NewConstraint(raw); err == nil && looksLikeConstraint(raw) {
		return Spec{Raw: raw, Kind: KindConstraint, constraint: c}
	}
	return Spec{Raw: raw, Kind: KindLiteral}
}

// looksLikeConstraint keeps branch names that the constraint grammar happens
// to accept from being treated as ranges.
func looksLikeConstraint(raw string) bool {
	return strings.ContainsAny(raw, "^~<>=*,|") ||
		strings.Contains(raw, ".x") || strings.Contains(raw, ".X")
}

func (s Spec) String() string {
	if s.Kind == KindLatest {
		return Latest
	}
	return s.Raw
}

// SameCommit reports whether two commit ids name the same commit, allowing
// either side to be an abbreviation of at least seven characters.
func SameCommit(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if len(a) < 7 || len(b) < 7 {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// looksLikeCommit reports whether s could be a full or abbreviated commit id.
func looksLikeCommit(s string) bool {
	return len(s) >= 7 && len(s) <= 64 && isHex(s)
}
