package transport

import (
	"context"
	"time"
)

// WithTimeout bounds every call made through t by d. A zero or negative d
// returns t unchanged.
//
// The deadline is attached to the context handed to t, so a git process is
// killed and reaped before the call returns and callers can clean up after it.
func WithTimeout(t Transport, d time.Duration) Transport {
	if d <= 0 {
		return t
	}
	return &timeoutTransport{inner: t, d: d}
}

type timeoutTransport struct {
	inner Transport
	d     time.Duration
}

func (t *timeoutTransport) ResolveLatest(ctx context.Context, source string) (Ref, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	ref, err := t.inner.ResolveLatest(ctx, source)
	return ref, t.check(ctx, err)
}

func (t *timeoutTransport) ListRefs(ctx context.Context, source string) ([]Ref, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	refs, err := t.inner.ListRefs(ctx, source)
	return refs, t.check(ctx, err)
}

func (t *timeoutTransport) IsAncestor(ctx context.Context, dir, ancestor, descendant string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	ok, err := t.inner.IsAncestor(ctx, dir, ancestor, descendant)
	return ok, t.check(ctx, err)
}

func (t *timeoutTransport) HasCommit(ctx context.Context, dir, rev string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	ok, err := t.inner.HasCommit(ctx, dir, rev)
	return ok, t.check(ctx, err)
}

func (t *timeoutTransport) Clone(ctx context.Context, source, dest string, target Target) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.check(ctx, t.inner.Clone(ctx, source, dest, target))
}

func (t *timeoutTransport) FetchAndCheckout(ctx context.Context, dir string, target Target) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.check(ctx, t.inner.FetchAndCheckout(ctx, dir, target))
}

func (t *timeoutTransport) Status(ctx context.Context, dir string) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	st, err := t.inner.Status(ctx, dir)
	return st, t.check(ctx, err)
}

func (t *timeoutTransport) Collisions(ctx context.Context, dir, rev string, paths []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	hits, err := t.inner.Collisions(ctx, dir, rev, paths)
	return hits, t.check(ctx, err)
}

// check marks err as a timeout when the call's own deadline expired.
func (t *timeoutTransport) check(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != context.DeadlineExceeded {
		return err
	}
	if IsKind(err, Timeout) {
		return err
	}
	return &Error{Kind: Timeout, Err: err, Op: "timed out after " + t.d.String()}
}
