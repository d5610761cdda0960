package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStagingPathIsUniqueSibling(t *testing.T) {
	target := filepath.Join(t.TempDir(), "deps", "lib")

	a := StagingPath("", target)
	b := StagingPath("", target)
	if a == b {
		t.Fatal("staging paths should be unique")
	}
	if filepath.Dir(a) != filepath.Dir(target) {
		t.Errorf("staging %q is not a sibling of %q", a, target)
	}
	if !strings.HasPrefix(filepath.Base(a), StagingPrefix+"lib-") {
		t.Errorf("unexpected staging name %q", filepath.Base(a))
	}

	root := t.TempDir()
	if got := StagingPath(root, target); filepath.Dir(got) != root {
		t.Errorf("staging %q not under %q", got, root)
	}
}

func TestMkdirParentsUndo(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "a", "b", "lib")

	undo, err := MkdirParents(target)
	if err != nil {
		t.Fatalf("MkdirParents: %v", err)
	}
	if info, err := os.Stat(filepath.Join(base, "a", "b")); err != nil || !info.IsDir() {
		t.Fatalf("parents not created: %v", err)
	}

	undo()
	if _, err := os.Stat(filepath.Join(base, "a")); !os.IsNotExist(err) {
		t.Errorf("created parents should be removed, stat err = %v", err)
	}
	if _, err := os.Stat(base); err != nil {
		t.Errorf("pre-existing directory removed: %v", err)
	}
}

func stage(t *testing.T, dir string) string {
	t.Helper()
	staged := filepath.Join(dir, "staged")
	if err := os.MkdirAll(filepath.Join(staged, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staged, "sub", "f.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return staged
}

func TestPlaceIntoMissingTarget(t *testing.T) {
	dir := t.TempDir()
	staged := stage(t, dir)
	target := filepath.Join(dir, "lib")

	if err := Place(staged, target); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "sub", "f.txt")); err != nil {
		t.Errorf("placed file missing: %v", err)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Errorf("staging directory should be gone")
	}
}

func TestPlaceReplacesEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	staged := stage(t, dir)
	target := filepath.Join(dir, "lib")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}

	if err := Place(staged, target); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "sub", "f.txt")); err != nil {
		t.Errorf("placed file missing: %v", err)
	}
}

func TestPlaceRefusesNonEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	staged := stage(t, dir)
	target := filepath.Join(dir, "lib")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "keep.txt"), []byte("mine"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Place(staged, target); err == nil {
		t.Fatal("expected error for non-empty target")
	}
	got, err := os.ReadFile(filepath.Join(target, "keep.txt"))
	if err != nil || string(got) != "mine" {
		t.Errorf("existing content disturbed: %q, %v", got, err)
	}
}

func TestPlaceRestoresEmptyDirectoryOnFailure(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "lib")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}

	if err := Place(filepath.Join(dir, "does-not-exist"), target); err == nil {
		t.Fatal("expected error for missing staging directory")
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		t.Errorf("empty target directory should be restored: %v", err)
	}
}
