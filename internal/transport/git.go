package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Git implements Transport by running the git executable.
type Git struct {
	gitPath string
	env     []string
}

// NewGit locates git on PATH and returns a Transport backed by it.
func NewGit() (*Git, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, &Error{Kind: GitNotFound, Op: "locate git", Err: fmt.Errorf("no 'git' program on path: %w", err)}
	}
	return &Git{
		gitPath: p,
		env:     append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C"),
	}, nil
}

var _ Transport = (*Git)(nil)

func (g *Git) ResolveLatest(ctx context.Context, source string) (Ref, error) {
	out, err := g.output(ctx, "", "ls-remote", "--symref", source, "HEAD")
	if err != nil {
		amend(err, func(e *Error) { e.Op = "resolve latest"; e.Repo = source })
		return Ref{}, err
	}

	// Expected output:
	//   ref: refs/heads/main	HEAD
	//   <sha>	HEAD
	var ref Ref
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		switch {
		case len(parts) >= 3 && parts[0] == "ref:" && parts[2] == "HEAD":
			ref.Name = parts[1]
		case len(parts) == 2 && parts[1] == "HEAD":
			ref.Commit = parts[0]
		}
	}
	if ref.Commit == "" {
		return Ref{}, &Error{Kind: UnknownReference, Op: "resolve latest", Repo: source, Err: errors.New("remote advertises no HEAD")}
	}
	if ref.Name == "" {
		ref.Name = "HEAD"
	}
	return ref, nil
}

var lsRemotePattern = regexp.MustCompile(`^([0-9a-f]+)\s+(refs/(?:heads|tags)/\S+)$`)

func (g *Git) ListRefs(ctx context.Context, source string) ([]Ref, error) {
	out, err := g.output(ctx, "", "ls-remote", "--heads", "--tags", source)
	if err != nil {
		amend(err, func(e *Error) { e.Op = "list refs"; e.Repo = source })
		return nil, err
	}

	commits := make(map[string]string)
	peeled := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		m := lsRemotePattern.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		name := m[2]
		if strings.HasSuffix(name, "^{}") {
			peeled[strings.TrimSuffix(name, "^{}")] = m[1]
			continue
		}
		commits[name] = m[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, &Error{Op: "list refs", Repo: source, Err: err}
	}

	refs := make([]Ref, 0, len(commits))
	for name, commit := range commits {
		if p, ok := peeled[name]; ok {
			commit = p
		}
		refs = append(refs, Ref{Name: name, Commit: commit})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (g *Git) HasCommit(ctx context.Context, dir, rev string) (bool, error) {
	_, err := g.output(ctx, dir, "cat-file", "-e", rev+"^{commit}")
	if err == nil {
		return true, nil
	}
	if exitCode(err) > 0 {
		return false, nil
	}
	return false, err
}

func (g *Git) IsAncestor(ctx context.Context, dir, ancestor, descendant string) (bool, error) {
	var ok bool
	err := g.withCommit(ctx, dir, descendant, func(repo string) error {
		_, err := g.output(ctx, repo, "merge-base", "--is-ancestor", ancestor, descendant)
		switch code := exitCode(err); {
		case err == nil:
			ok = true
		case code == 1:
			ok = false
		default:
			return err
		}
		return nil
	})
	if err != nil {
		amend(err, func(e *Error) { e.Op = "ancestry check" })
		return false, err
	}
	return ok, nil
}

func (g *Git) Clone(ctx context.Context, source, dest string, target Target) error {
	if _, err := g.output(ctx, "", "clone", "--quiet", "--no-checkout", source, dest); err != nil {
		amend(err, func(e *Error) { e.Op = "clone"; e.Repo = source })
		return err
	}
	if err := g.ensureCommit(ctx, dest, target.Commit); err != nil {
		amend(err, func(e *Error) { e.Op = "clone"; e.Repo = source; e.Ref = target.Ref })
		return err
	}

	var err error
	if target.Branch && target.Ref != "" {
		_, err = g.output(ctx, dest, "checkout", "--quiet", "-B", target.Ref, target.Commit)
		if err == nil {
			// Tracking is a convenience for people working in the copy.
			_, _ = g.output(ctx, dest, "branch", "--quiet", "--set-upstream-to=origin/"+target.Ref, target.Ref)
		}
	} else {
		_, err = g.output(ctx, dest, "checkout", "--quiet", "--detach", target.Commit)
	}
	if err != nil {
		amend(err, func(e *Error) { e.Op = "checkout"; e.Repo = source; e.Ref = target.String() })
		return err
	}
	return nil
}

func (g *Git) FetchAndCheckout(ctx context.Context, dir string, target Target) error {
	prev, err := g.Status(ctx, dir)
	if err != nil {
		return err
	}
	if err := g.fetch(ctx, dir); err != nil {
		return err
	}
	if err := g.ensureCommit(ctx, dir, target.Commit); err != nil {
		amend(err, func(e *Error) { e.Op = "fetch"; e.Ref = target.String() })
		return err
	}

	if target.Branch && prev.Branch != "" && prev.Branch == target.Ref {
		_, err = g.output(ctx, dir, "merge", "--quiet", "--ff-only", target.Commit)
	} else {
		_, err = g.output(ctx, dir, "checkout", "--quiet", "--detach", target.Commit)
	}
	if err == nil {
		return nil
	}
	amend(err, func(e *Error) { e.Op = "checkout"; e.Ref = target.String() })

	// The tree was clean before we started, so forcing back discards nothing of the caller's.
	restore := prev.Head
	if prev.Branch != "" {
		restore = prev.Branch
	}
	if restore != "" {
		if _, rerr := g.output(ctx, dir, "checkout", "--quiet", "--force", restore); rerr != nil {
			return fmt.Errorf("%w (restoring %s also failed: %v)", err, restore, rerr)
		}
	}
	return err
}

func (g *Git) Status(ctx context.Context, dir string) (Status, error) {
	top, err := g.output(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		amend(err, func(e *Error) { e.Op = "status" })
		return Status{}, err
	}
	if !samePath(strings.TrimSpace(top), dir) {
		return Status{}, &Error{Kind: NotRepository, Op: "status", Err: fmt.Errorf("%s is inside the working copy at %s", dir, strings.TrimSpace(top))}
	}

	var st Status
	if head, err := g.output(ctx, dir, "rev-parse", "--verify", "--quiet", "HEAD"); err == nil {
		st.Head = strings.TrimSpace(head)
	} else if exitCode(err) < 0 {
		return Status{}, err
	}
	if branch, err := g.output(ctx, dir, "symbolic-ref", "--quiet", "--short", "HEAD"); err == nil {
		st.Branch = strings.TrimSpace(branch)
	} else if exitCode(err) < 0 {
		return Status{}, err
	}

	out, err := g.output(ctx, dir, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		amend(err, func(e *Error) { e.Op = "status" })
		return Status{}, err
	}
	st.Modified, st.Untracked = parsePorcelain(out)
	return st, nil
}

func (g *Git) Collisions(ctx context.Context, dir, rev string, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	var out string
	err := g.withCommit(ctx, dir, rev, func(repo string) error {
		var err error
		out, err = g.output(ctx, repo, "ls-tree", "-r", "-z", "--name-only", rev)
		return err
	})
	if err != nil {
		amend(err, func(e *Error) { e.Op = "list tree"; e.Ref = rev })
		return nil, err
	}
	tracked := make(map[string]bool)
	for _, p := range strings.Split(out, "\x00") {
		if p != "" {
			tracked[p] = true
		}
	}
	var hits []string
	for _, p := range paths {
		if tracked[filepath.ToSlash(p)] {
			hits = append(hits, p)
		}
	}
	return hits, nil
}

// withCommit runs f against a repository holding rev and every object of the
// working copy at dir. That is dir itself when rev is already there.
// Otherwise it is a scratch bare repository that borrows dir's objects
// through alternates and fetches rev from dir's origin, so dir is never
// written to.
func (g *Git) withCommit(ctx context.Context, dir, rev string, f func(repo string) error) error {
	if rev == "" {
		return &Error{Kind: UnknownReference, Err: errors.New("empty revision")}
	}
	ok, err := g.HasCommit(ctx, dir, rev)
	if err != nil {
		return err
	}
	if ok {
		return f(dir)
	}

	scratch, err := g.borrow(ctx, dir)
	if scratch != "" {
		// Deferred calls run after git has exited.
		defer os.RemoveAll(scratch)
	}
	if err != nil {
		return err
	}
	url, err := g.originURL(ctx, dir)
	if err != nil {
		return err
	}
	if _, err := g.output(ctx, scratch, "fetch", "--quiet", "--tags", url, "+refs/heads/*:refs/heads/*"); err != nil {
		amend(err, func(e *Error) { e.Op = "fetch"; e.Repo = url })
		return err
	}
	if ok, err = g.HasCommit(ctx, scratch, rev); err != nil {
		return err
	}
	if !ok {
		_, _ = g.output(ctx, scratch, "fetch", "--quiet", url, rev)
		if ok, err = g.HasCommit(ctx, scratch, rev); err != nil {
			return err
		}
	}
	if !ok {
		return &Error{Kind: UnknownReference, Repo: url, Ref: rev, Err: fmt.Errorf("commit %s not found on origin", rev)}
	}
	return f(scratch)
}

// borrow creates an empty bare repository whose object store falls back to
// the one of the working copy at dir.
func (g *Git) borrow(ctx context.Context, dir string) (string, error) {
	objects, err := g.output(ctx, dir, "rev-parse", "--git-path", "objects")
	if err != nil {
		return "", err
	}
	objects = strings.TrimSpace(objects)
	if !filepath.IsAbs(objects) {
		objects = filepath.Join(dir, objects)
	}

	scratch, err := os.MkdirTemp("", "depsync-borrow-")
	if err != nil {
		return "", err
	}
	if _, err := g.output(ctx, "", "init", "--quiet", "--bare", scratch); err != nil {
		return scratch, err
	}
	info := filepath.Join(scratch, "objects", "info")
	if err := os.MkdirAll(info, 0755); err != nil {
		return scratch, err
	}
	if err := os.WriteFile(filepath.Join(info, "alternates"), []byte(objects+"\n"), 0644); err != nil {
		return scratch, err
	}
	return scratch, nil
}

// originURL returns the fetch URL of dir's origin. Relative filesystem URLs
// are made absolute so they work from another directory.
func (g *Git) originURL(ctx context.Context, dir string) (string, error) {
	out, err := g.output(ctx, dir, "config", "--get", "remote.origin.url")
	if err != nil {
		amend(err, func(e *Error) { e.Op = "read origin" })
		return "", err
	}
	url := strings.TrimSpace(out)
	if !filepath.IsAbs(url) && !strings.Contains(url, ":") {
		url = filepath.Join(dir, url)
	}
	return url, nil
}

// ensureCommit makes rev available in the object store at dir, fetching
// tags and then the revision itself from origin when it is missing.
func (g *Git) ensureCommit(ctx context.Context, dir, rev string) error {
	if rev == "" {
		return &Error{Kind: UnknownReference, Err: errors.New("empty revision")}
	}
	ok, err := g.HasCommit(ctx, dir, rev)
	if err != nil || ok {
		return err
	}
	if err := g.fetch(ctx, dir); err != nil {
		return err
	}
	if ok, err = g.HasCommit(ctx, dir, rev); err != nil || ok {
		return err
	}
	// Servers with uploadpack.allowReachableSHA1InWant can serve unadvertised commits.
	_, _ = g.output(ctx, dir, "fetch", "--quiet", "origin", rev)
	if ok, err = g.HasCommit(ctx, dir, rev); err != nil || ok {
		return err
	}
	return &Error{Kind: UnknownReference, Ref: rev, Err: fmt.Errorf("commit %s not found on origin", rev)}
}

func (g *Git) fetch(ctx context.Context, dir string) error {
	if _, err := g.output(ctx, dir, "fetch", "--quiet", "--tags", "--prune", "origin"); err != nil {
		amend(err, func(e *Error) { e.Op = "fetch" })
		return err
	}
	return nil
}

// output runs a git command and returns its stdout.
// Failures are reported as *Error with the kind derived from stderr.
func (g *Git) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = g.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		kind := determineErrorKind(stderr.String())
		switch ctxErr := ctx.Err(); {
		case errors.Is(ctxErr, context.DeadlineExceeded):
			kind, err = Timeout, ctxErr
		case errors.Is(ctxErr, context.Canceled):
			kind, err = Canceled, ctxErr
		}
		return "", &Error{
			Kind:   kind,
			Args:   args,
			Err:    fmt.Errorf("git %s: %w", strings.Join(args, " "), err),
			StdErr: stderr.String(),
		}
	}
	return stdout.String(), nil
}

// amend adjusts the *Error carried by err, if any.
func amend(err error, f func(e *Error)) {
	var te *Error
	if errors.As(err, &te) {
		f(te)
	}
}

// exitCode returns git's exit status, or -1 if err is not an exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if KindOf(err) == Timeout || KindOf(err) == Canceled {
		return -1
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// parsePorcelain splits `git status --porcelain=v1 -z` output into tracked
// modifications and untracked paths. Ignored files are not reported by git.
func parsePorcelain(out string) (modified, untracked []string) {
	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if len(entry) < 4 {
			continue
		}
		code, path := entry[:2], entry[3:]
		if code == "??" {
			untracked = append(untracked, path)
			continue
		}
		modified = append(modified, path)
		// Renames and copies carry the original path in the next field.
		if code[0] == 'R' || code[0] == 'C' {
			i++
		}
	}
	return modified, untracked
}

func samePath(a, b string) bool {
	ca, errA := filepath.EvalSymlinks(a)
	cb, errB := filepath.EvalSymlinks(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ca == cb
}
