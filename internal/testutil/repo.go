// Package testutil builds throwaway git repositories for tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RequireGit skips the test when git is not installed.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// Remote is a non-bare repository used as the upstream of a dependency.
// Tests commit to it directly and clone from Dir.
type Remote struct {
	Dir string
	t   *testing.T
}

// NewRemote creates a repository on branch main with one initial commit.
func NewRemote(t *testing.T) *Remote {
	t.Helper()
	RequireGit(t)

	dir := filepath.Join(t.TempDir(), "upstream")
	r := &Remote{Dir: dir, t: t}
	Git(t, filepath.Dir(dir), "init", "--quiet", "-b", "main", dir)
	r.Commit("README.md", "# upstream\n", "initial commit")
	return r
}

// Commit writes content to file and commits it, returning the new commit id.
func (r *Remote) Commit(file, content, message string) string {
	r.t.Helper()
	path := filepath.Join(r.Dir, file)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil { //nolint:gosec // test file
		r.t.Fatal(err)
	}
	Git(r.t, r.Dir, "add", "--", file)
	Git(r.t, r.Dir, "commit", "--quiet", "-m", message)
	return r.Head()
}

// Tag creates an annotated tag at HEAD.
func (r *Remote) Tag(name string) {
	r.t.Helper()
	Git(r.t, r.Dir, "tag", "-a", name, "-m", "release "+name)
}

// Head returns the commit id of HEAD.
func (r *Remote) Head() string {
	r.t.Helper()
	return strings.TrimSpace(Git(r.t, r.Dir, "rev-parse", "HEAD"))
}

// Reset moves the current branch to rev, rewriting history.
func (r *Remote) Reset(rev string) {
	r.t.Helper()
	Git(r.t, r.Dir, "reset", "--quiet", "--hard", rev)
}

// Branch creates and switches to a new branch.
func (r *Remote) Branch(name string) {
	r.t.Helper()
	Git(r.t, r.Dir, "checkout", "--quiet", "-b", name)
}

// Checkout switches to an existing branch.
func (r *Remote) Checkout(name string) {
	r.t.Helper()
	Git(r.t, r.Dir, "checkout", "--quiet", name)
}

// Git runs git in dir with a fixed identity and returns its stdout.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	out, err := cmd.Output()
	if err != nil {
		stderr := ""
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = string(ee.Stderr)
		}
		t.Fatalf("git %v: %v: %s", args, err, stderr)
	}
	return string(out)
}
