// Package inspect derives the local state of a dependency path.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bianoble/depsync/internal/transport"
)

// StatusReader is the part of the transport the inspector needs.
type StatusReader interface {
	Status(ctx context.Context, dir string) (transport.Status, error)
}

// State describes what is on disk at a dependency path. It is derived fresh
// on every call and never cached.
type State struct {
	Exists    bool
	Valid     bool // a usable working copy
	Corrupted bool // a working-copy marker is present but the copy is unusable
	Empty     bool // an existing directory with no entries

	CurrentRevision       string
	Branch                string
	HasUncommittedChanges bool
	Modified              []string
	Untracked             []string

	// HasUntrackedConflictingFiles is filled in by the engine once the
	// desired commit is known.
	HasUntrackedConflictingFiles bool

	// Problem explains Corrupted.
	Problem error
}

// Inspector reads local state. It never writes.
type Inspector struct {
	Transport StatusReader
}

// Inspect reports the state of path. A symlink is followed, and a dangling
// one is reported as an existing non-directory. Errors are filesystem or
// environment failures that prevent deciding the state at all; they are never
// reported as an absent working copy.
func (i *Inspector) Inspect(ctx context.Context, path string) (State, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		if _, lerr := os.Lstat(path); lerr == nil {
			return State{Exists: true}, nil
		}
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("inspecting %s: %w", path, err)
	}

	st := State{Exists: true}
	if !info.IsDir() {
		return st, nil
	}

	marker := filepath.Join(path, ".git")
	markerInfo, err := os.Lstat(marker)
	if errors.Is(err, os.ErrNotExist) {
		empty, err := isEmptyDir(path)
		if err != nil {
			return State{}, fmt.Errorf("inspecting %s: %w", path, err)
		}
		st.Empty = empty
		return st, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("inspecting %s: %w", marker, err)
	}

	if markerInfo.IsDir() {
		if _, err := os.Stat(filepath.Join(marker, "HEAD")); errors.Is(err, os.ErrNotExist) {
			st.Corrupted = true
			st.Problem = errors.New(".git directory has no HEAD")
			return st, nil
		} else if err != nil {
			return State{}, fmt.Errorf("inspecting %s: %w", marker, err)
		}
	}

	status, err := i.Transport.Status(ctx, path)
	if err != nil {
		switch transport.KindOf(err) {
		case transport.GitNotFound, transport.Canceled, transport.Timeout:
			return State{}, err
		}
		st.Corrupted = true
		st.Problem = err
		return st, nil
	}
	if status.Head == "" {
		st.Corrupted = true
		st.Problem = errors.New("working copy has no commits")
		return st, nil
	}

	st.Valid = true
	st.CurrentRevision = status.Head
	st.Branch = status.Branch
	st.Modified = status.Modified
	st.Untracked = status.Untracked
	st.HasUncommittedChanges = status.Dirty()
	return st, nil
}

func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
