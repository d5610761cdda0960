package manifest

import (
	"path/filepath"
	"testing"
)

func TestDiscoverPathsAllLevels(t *testing.T) {
	layers := DiscoverPaths(DiscoverOptions{
		ProjectPath: "./depsync.yaml",
		SystemPath:  "/etc/depsync/depsync.yaml",
		UserPath:    "/home/user/.config/depsync/depsync.yaml",
	})

	if len(layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(layers))
	}
	for i, want := range []Level{LevelSystem, LevelUser, LevelProject} {
		if layers[i].Level != want {
			t.Errorf("layers[%d].Level = %q, want %q", i, layers[i].Level, want)
		}
	}
}

func TestDiscoverPathsDeduplication(t *testing.T) {
	samePath, err := filepath.Abs("./depsync.yaml")
	if err != nil {
		t.Fatal(err)
	}

	layers := DiscoverPaths(DiscoverOptions{
		ProjectPath: samePath,
		SystemPath:  samePath,
		UserPath:    "/other/path/depsync.yaml",
	})

	if len(layers) != 2 {
		t.Fatalf("expected 2 layers (deduped), got %d", len(layers))
	}
	if layers[0].Level != LevelSystem || layers[1].Level != LevelUser {
		t.Errorf("layers = %+v", layers)
	}
}

func TestEnvNoInherit(t *testing.T) {
	for value, want := range map[string]bool{"1": true, "TRUE": true, "no": false, "": false} {
		t.Setenv("DEPSYNC_NO_INHERIT", value)
		if got := EnvNoInherit(); got != want {
			t.Errorf("DEPSYNC_NO_INHERIT=%q: got %v, want %v", value, got, want)
		}
	}
}
