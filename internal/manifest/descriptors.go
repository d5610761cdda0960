package manifest

import (
	"fmt"
	"path/filepath"

	"github.com/bianoble/depsync/internal/engine"
	"github.com/bianoble/depsync/internal/sandbox"
)

// Descriptors converts the manifest's dependencies into engine descriptors
// with paths resolved against projectRoot. When names is non-empty only
// those dependencies are returned, in manifest order. Every path must stay
// inside projectRoot and no two dependencies may resolve to the same path.
func (m *Manifest) Descriptors(projectRoot string, names []string) ([]engine.Descriptor, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for _, n := range names {
		if m.Find(n) == nil {
			return nil, fmt.Errorf("dependency '%s' is not defined in the manifest", n)
		}
	}

	var (
		ds   []engine.Descriptor
		errs []string
		seen = make(map[string]string)
	)
	for _, dep := range m.Dependencies {
		resolved, err := sandbox.ValidatePath(projectRoot, dep.Path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("dependency '%s': %v", dep.Name, err))
			continue
		}
		if other, ok := seen[resolved]; ok {
			errs = append(errs, fmt.Sprintf("dependency '%s': path resolves to the same location as '%s'", dep.Name, other))
			continue
		}
		seen[resolved] = dep.Name

		if len(want) > 0 && !want[dep.Name] {
			continue
		}
		policy, err := engine.ParsePolicy(dep.Policy)
		if err != nil {
			errs = append(errs, fmt.Sprintf("dependency '%s': %v", dep.Name, err))
			continue
		}
		ds = append(ds, engine.Descriptor{
			Name:     dep.Name,
			Source:   expandSource(projectRoot, dep.Source),
			Path:     resolved,
			Revision: dep.Revision,
			Policy:   policy,
		})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return ds, nil
}

// Find returns the dependency called name, or nil.
func (m *Manifest) Find(name string) *Dependency {
	for i := range m.Dependencies {
		if m.Dependencies[i].Name == name {
			return &m.Dependencies[i]
		}
	}
	return nil
}

// expandSource makes relative filesystem sources ("./vendor/lib.git",
// "../shared") relative to the project root so runs do not depend on the
// working directory.
func expandSource(projectRoot, source string) string {
	if len(source) > 1 && source[0] == '.' && (source[1] == '/' || source[1] == '.' || source[1] == filepath.Separator) {
		return filepath.Join(projectRoot, source)
	}
	return source
}

func cleanPath(p string) string {
	return filepath.Clean(filepath.FromSlash(p))
}
