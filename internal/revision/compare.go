package revision

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/bianoble/depsync/internal/transport"
)

// Relation classifies a working copy's current commit against the desired one.
type Relation string

const (
	Identical       Relation = "identical"
	FastForwardable Relation = "fast-forward"
	Diverged        Relation = "diverged"
	RemoteOnly      Relation = "remote-only"
	Unknown         Relation = "unknown"
)

// Comparison is the result of Compare.
type Comparison struct {
	Relation Relation
	Target   transport.Target
	// Err explains an Unknown relation, or a Diverged one that was assumed
	// because the ancestry check failed.
	Err error
}

// Comparator resolves revision specs through a transport.
type Comparator struct {
	Transport transport.Transport
}

// Resolve turns spec into a concrete commit on source.
func (c *Comparator) Resolve(ctx context.Context, source string, spec Spec) (transport.Target, error) {
	switch spec.Kind {
	case KindLatest:
		ref, err := c.Transport.ResolveLatest(ctx, source)
		if err != nil {
			return transport.Target{}, err
		}
		return transport.Target{Ref: ref.Short(), Commit: ref.Commit, Branch: ref.IsBranch()}, nil
	case KindConstraint:
		refs, err := c.Transport.ListRefs(ctx, source)
		if err != nil {
			return transport.Target{}, err
		}
		return resolveConstraint(source, spec, refs)
	default:
		refs, err := c.Transport.ListRefs(ctx, source)
		if err != nil {
			return transport.Target{}, err
		}
		return resolveLiteral(source, spec.Raw, refs)
	}
}

// Compare resolves spec and classifies current, the commit checked out in the
// working copy at dir. A resolution failure yields Unknown and is also
// returned as the error.
func (c *Comparator) Compare(ctx context.Context, source, dir, current string, spec Spec) (Comparison, error) {
	target, err := c.Resolve(ctx, source, spec)
	if err != nil {
		return Comparison{Relation: Unknown, Err: err}, err
	}
	return c.Classify(ctx, dir, current, target), nil
}

// Classify relates current to an already resolved target.
func (c *Comparator) Classify(ctx context.Context, dir, current string, target transport.Target) Comparison {
	res := Comparison{Target: target}
	if current == "" {
		res.Relation = RemoteOnly
		return res
	}
	if SameCommit(current, target.Commit) {
		res.Relation = Identical
		return res
	}

	known, err := c.Transport.HasCommit(ctx, dir, current)
	if err != nil {
		res.Relation = Unknown
		res.Err = err
		return res
	}
	if !known {
		res.Relation = RemoteOnly
		res.Err = fmt.Errorf("current commit %s is not in the local object store", transport.ShortCommit(current))
		return res
	}

	ok, err := c.Transport.IsAncestor(ctx, dir, current, target.Commit)
	switch {
	case transport.IsKind(err, transport.UnknownReference):
		res.Relation = Unknown
		res.Err = err
	case err != nil:
		res.Relation = Diverged
		res.Err = fmt.Errorf("ancestry check failed: %w", err)
	case ok:
		res.Relation = FastForwardable
	default:
		res.Relation = Diverged
	}
	return res
}

func resolveConstraint(source string, spec Spec, refs []transport.Ref) (transport.Target, error) {
	type candidate struct {
		version *semver.Version
		ref     transport.Ref
	}
	var candidates []candidate
	for _, ref := range refs {
		if !ref.IsTag() {
			continue
		}
		v, err := semver.NewVersion(ref.Short())
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{version: v, ref: ref})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].version.GreaterThan(candidates[j].version)
	})

	for _, cand := range candidates {
		if spec.constraint.Check(cand.version) {
			return transport.Target{Ref: cand.ref.Short(), Commit: cand.ref.Commit}, nil
		}
	}
	return transport.Target{}, &transport.Error{
		Kind: transport.UnknownReference,
		Op:   "resolve",
		Repo: source,
		Ref:  spec.Raw,
		Err:  errors.New("no tag satisfies the version constraint"),
	}
}

// resolveLiteral looks name up the way git's rev-parse does: a full ref name,
// then tags, then branches; a hexadecimal name matching no ref is taken as a
// commit id.
func resolveLiteral(source, name string, refs []transport.Ref) (transport.Target, error) {
	byName := make(map[string]transport.Ref, len(refs))
	for _, ref := range refs {
		byName[ref.Name] = ref
	}
	for _, full := range []string{name, "refs/tags/" + name, "refs/heads/" + name} {
		if ref, ok := byName[full]; ok {
			return transport.Target{Ref: ref.Short(), Commit: ref.Commit, Branch: ref.IsBranch()}, nil
		}
	}
	if looksLikeCommit(name) {
		return transport.Target{Commit: name}, nil
	}
	return transport.Target{}, &transport.Error{
		Kind: transport.UnknownReference,
		Op:   "resolve",
		Repo: source,
		Ref:  name,
		Err:  errors.New("no such branch or tag"),
	}
}
