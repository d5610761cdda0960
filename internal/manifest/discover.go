package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const configDirName = "depsync"

// Level is the precedence level of a manifest layer.
type Level string

const (
	LevelSystem  Level = "system"
	LevelUser    Level = "user"
	LevelProject Level = "project"
)

// LayerInfo describes a discovered manifest file and its load status.
type LayerInfo struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  Level
	Loaded bool
}

// DiscoverOptions controls how manifest layers are discovered.
type DiscoverOptions struct {
	// ProjectPath is the project manifest (required).
	ProjectPath string

	// SystemPath overrides the default system manifest path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	SystemPath string

	// UserPath overrides the default user manifest path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	UserPath string

	// NoInherit loads only the project manifest.
	NoInherit bool
}

// DiscoverPaths returns the ordered list of manifest paths to check, from
// lowest precedence (system) to highest (project). Paths are deduplicated by
// absolute path.
func DiscoverPaths(opts DiscoverOptions) []LayerInfo {
	var layers []LayerInfo
	seen := make(map[string]bool)

	addLayer := func(level Level, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		layers = append(layers, LayerInfo{Path: path, Level: level})
	}

	if !opts.NoInherit {
		sysPath := opts.SystemPath
		if sysPath == "" {
			sysPath = defaultSystemPath()
		}
		addLayer(LevelSystem, sysPath)

		userPath := opts.UserPath
		if userPath == "" {
			userPath = defaultUserPath()
		}
		addLayer(LevelUser, userPath)
	}

	// Always last, highest precedence.
	addLayer(LevelProject, opts.ProjectPath)

	return layers
}

// LoadLayered reads every discovered layer, merges them and validates the
// result. Missing system and user layers are skipped; the project manifest
// must exist.
func LoadLayered(opts DiscoverOptions) (*Manifest, []LayerInfo, error) {
	layers := DiscoverPaths(opts)

	var manifests []*Manifest
	for i := range layers {
		l := &layers[i]
		m, err := read(l.Path)
		if err != nil {
			if l.Level != LevelProject && errors.Is(err, os.ErrNotExist) {
				continue
			}
			l.Err = err
			return nil, layers, err
		}
		l.Loaded = true
		manifests = append(manifests, m)
	}

	merged, err := MergeAll(manifests)
	if err != nil {
		return nil, layers, err
	}
	if errs := Validate(merged); len(errs) > 0 {
		return nil, layers, &ValidationError{Errors: errs}
	}
	return merged, layers, nil
}

func defaultSystemPath() string {
	switch runtime.GOOS {
	case "windows":
		pd := os.Getenv("ProgramData")
		if pd == "" {
			pd = `C:\ProgramData`
		}
		return filepath.Join(pd, configDirName, FileName)
	default:
		return filepath.Join("/etc", configDirName, FileName)
	}
}

func defaultUserPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDirName, FileName)
}

// EnvNoInherit returns true if DEPSYNC_NO_INHERIT is set to "1" or "true".
func EnvNoInherit() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DEPSYNC_NO_INHERIT")))
	return v == "1" || v == "true"
}
