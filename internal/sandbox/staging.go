// Package sandbox keeps filesystem writes contained and all-or-nothing:
// paths are checked against a root, files are written via rename, and working
// copies are built in a staging directory before being moved into place.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/otiai10/copy"
)

// StagingPrefix starts the name of every staging directory.
const StagingPrefix = ".depsync-staging-"

// StagingPath returns a fresh, not yet existing path for building a copy of
// target. With an empty root the staging path is a sibling of target, which
// keeps the final move a same-filesystem rename.
func StagingPath(root, target string) string {
	if root == "" {
		root = filepath.Dir(target)
	}
	return filepath.Join(root, StagingPrefix+filepath.Base(target)+"-"+uuid.NewString())
}

// MkdirParents creates the missing parent directories of path and returns a
// function that removes exactly the directories it created, deepest first.
func MkdirParents(path string) (undo func(), err error) {
	var created []string
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if _, statErr := os.Stat(dir); statErr == nil {
			break
		} else if !os.IsNotExist(statErr) {
			return func() {}, fmt.Errorf("checking %s: %w", dir, statErr)
		}
		created = append(created, dir)
		if filepath.Dir(dir) == dir {
			break
		}
	}

	undo = func() {
		for _, dir := range created {
			_ = os.Remove(dir)
		}
	}
	for i := len(created) - 1; i >= 0; i-- {
		if err := os.Mkdir(created[i], 0755); err != nil && !os.IsExist(err) {
			undo()
			return func() {}, fmt.Errorf("creating %s: %w", created[i], err)
		}
	}
	return undo, nil
}

// Place moves the fully built directory staged into target.
//
// target must either not exist or be an empty directory; an empty directory is
// removed first and recreated if the move fails, so a failed Place leaves
// target as it was found. When staged lives on another filesystem the tree is
// copied next to target and renamed from there.
func Place(staged, target string) error {
	var restore func()
	info, err := os.Lstat(target)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("placing %s: target exists and is not a directory", target)
		}
		// os.Remove refuses non-empty directories, which is the guard we want.
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("placing %s: target directory is not empty: %w", target, err)
		}
		mode := info.Mode().Perm()
		restore = func() { _ = os.Mkdir(target, mode) }
	case os.IsNotExist(err):
		restore = func() {}
	default:
		return fmt.Errorf("placing %s: %w", target, err)
	}

	err = os.Rename(staged, target)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		restore()
		return fmt.Errorf("moving %s into place: %w", staged, err)
	}

	local := StagingPath("", target)
	if err := copy.Copy(staged, local, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction { return copy.Shallow },
	}); err != nil {
		_ = os.RemoveAll(local)
		restore()
		return fmt.Errorf("copying %s next to %s: %w", staged, target, err)
	}
	if err := os.Rename(local, target); err != nil {
		_ = os.RemoveAll(local)
		restore()
		return fmt.Errorf("moving %s into place: %w", local, err)
	}
	_ = os.RemoveAll(staged)
	return nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return false
}
