package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/bianoble/depsync/internal/transport"
)

const (
	commitV1   = "1111111111111111111111111111111111111111"
	commitV2   = "2222222222222222222222222222222222222222"
	commitFork = "ffffffffffffffffffffffffffffffffffffffff"
)

// fakeTransport keeps working-copy state on disk so that it survives the
// engine's staging rename: .git/HEAD holds the commit, .git/modified lists
// modified files, and top-level files not named in .git/tracked are untracked.
type fakeTransport struct {
	mu    sync.Mutex
	calls []string

	latest     transport.Ref
	refs       []transport.Ref
	ancestors  map[[2]string]bool
	missing    map[string]bool // commits absent from the local object store
	collisions []string

	resolveErr error
	cloneErr   error
	cloneHead  string // checked out by Clone instead of the target when set
	fetchErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		latest: transport.Ref{Name: "refs/heads/main", Commit: commitV2},
		refs: []transport.Ref{
			{Name: "refs/heads/main", Commit: commitV2},
			{Name: "refs/tags/v1.0", Commit: commitV1},
			{Name: "refs/tags/v2.0", Commit: commitV2},
		},
		ancestors: map[[2]string]bool{{commitV1, commitV2}: true},
	}
}

func (f *fakeTransport) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTransport) called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.calls, name)
}

func (f *fakeTransport) ResolveLatest(ctx context.Context, source string) (transport.Ref, error) {
	f.record("ResolveLatest")
	return f.latest, f.resolveErr
}

func (f *fakeTransport) ListRefs(ctx context.Context, source string) ([]transport.Ref, error) {
	f.record("ListRefs")
	return f.refs, f.resolveErr
}

func (f *fakeTransport) IsAncestor(ctx context.Context, dir, ancestor, descendant string) (bool, error) {
	f.record("IsAncestor")
	return f.ancestors[[2]string{ancestor, descendant}], nil
}

func (f *fakeTransport) HasCommit(ctx context.Context, dir, rev string) (bool, error) {
	f.record("HasCommit")
	return !f.missing[rev], nil
}

func (f *fakeTransport) Clone(ctx context.Context, source, dest string, target transport.Target) error {
	f.record("Clone")
	if _, err := os.Stat(dest); err == nil {
		return errors.New("clone destination exists")
	}
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0755); err != nil {
		return err
	}
	if f.cloneErr != nil {
		// Leave a partial directory behind, as an interrupted clone would.
		return f.cloneErr
	}
	head := target.Commit
	if f.cloneHead != "" {
		head = f.cloneHead
	}
	writeFile(dest, ".git/HEAD", head)
	writeFile(dest, ".git/tracked", "README.md")
	writeFile(dest, "README.md", "upstream")
	return nil
}

func (f *fakeTransport) FetchAndCheckout(ctx context.Context, dir string, target transport.Target) error {
	f.record("FetchAndCheckout")
	if f.fetchErr != nil {
		return f.fetchErr
	}
	writeFile(dir, ".git/HEAD", target.Commit)
	return nil
}

func (f *fakeTransport) Status(ctx context.Context, dir string) (transport.Status, error) {
	f.record("Status")
	head, err := os.ReadFile(filepath.Join(dir, ".git", "HEAD"))
	if err != nil {
		return transport.Status{}, &transport.Error{Kind: transport.NotRepository, Err: err}
	}
	st := transport.Status{Head: strings.TrimSpace(string(head))}
	if b, err := os.ReadFile(filepath.Join(dir, ".git", "modified")); err == nil {
		st.Modified = strings.Fields(string(b))
	}
	var tracked []string
	if b, err := os.ReadFile(filepath.Join(dir, ".git", "tracked")); err == nil {
		tracked = strings.Fields(string(b))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return transport.Status{}, err
	}
	for _, e := range entries {
		if e.Name() != ".git" && !slices.Contains(tracked, e.Name()) {
			st.Untracked = append(st.Untracked, e.Name())
		}
	}
	return st, nil
}

func (f *fakeTransport) Collisions(ctx context.Context, dir, rev string, paths []string) ([]string, error) {
	f.record("Collisions")
	var hits []string
	for _, p := range paths {
		if slices.Contains(f.collisions, p) {
			hits = append(hits, p)
		}
	}
	return hits, nil
}

func writeFile(dir, rel, content string) {
	path := filepath.Join(dir, rel)
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	_ = os.WriteFile(path, []byte(content), 0644)
}

// workingCopy creates a fake working copy at commit under a fresh directory.
func workingCopy(t *testing.T, commit string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "dep")
	writeFile(dir, ".git/HEAD", commit)
	writeFile(dir, ".git/tracked", "README.md")
	writeFile(dir, "README.md", "upstream")
	return dir
}

// snapshot returns every file under dir with its content.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		files[rel] = string(b)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return files
}

// leftovers returns staging directories found in dir.
func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	var found []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".depsync-staging-") {
			found = append(found, e.Name())
		}
	}
	return found
}
