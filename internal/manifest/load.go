package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/depsync/internal/engine"
)

// Load reads and validates a depsync.yaml file.
func Load(path string) (*Manifest, error) {
	m, err := read(path)
	if err != nil {
		return nil, err
	}

	if errs := Validate(m); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return m, nil
}

// read parses a manifest without validating it.
func read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Manifest for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(m *Manifest) []string {
	var errs []string

	if m.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d, only version 1 is supported", m.Version))
	}

	errs = append(errs, validateOptions(m.Options)...)

	names := make(map[string]bool)
	paths := make(map[string]string)
	for i, dep := range m.Dependencies {
		prefix := fmt.Sprintf("dependency[%d]", i)
		if dep.Name != "" {
			prefix = fmt.Sprintf("dependency '%s'", dep.Name)
		}

		if dep.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		} else if names[dep.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate dependency name '%s'", prefix, dep.Name))
		} else {
			names[dep.Name] = true
		}

		if strings.TrimSpace(dep.Source) == "" {
			errs = append(errs, fmt.Sprintf("%s: 'source' is required, add 'source: https://...' to the dependency", prefix))
		}

		if strings.TrimSpace(dep.Path) == "" {
			errs = append(errs, fmt.Sprintf("%s: 'path' is required, add 'path: third_party/<name>' to the dependency", prefix))
		} else if other, ok := paths[cleanPath(dep.Path)]; ok {
			errs = append(errs, fmt.Sprintf("%s: path '%s' is already used by '%s'", prefix, dep.Path, other))
		} else {
			paths[cleanPath(dep.Path)] = dep.Name
		}

		if _, err := engine.ParsePolicy(dep.Policy); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid policy '%s', must be one of: manual, auto", prefix, dep.Policy))
		}
	}

	return errs
}

func validateOptions(o Options) []string {
	var errs []string
	if o.Parallelism < 0 {
		errs = append(errs, fmt.Sprintf("options: 'parallelism' must not be negative, got %d", o.Parallelism))
	}
	if o.Retries != nil && *o.Retries < 0 {
		errs = append(errs, fmt.Sprintf("options: 'retries' must not be negative, got %d", *o.Retries))
	}
	if d, err := o.TimeoutOrDefault(); err != nil {
		errs = append(errs, fmt.Sprintf("options: invalid timeout '%s', use a duration such as 30s or 5m", o.Timeout))
	} else if d < 0 {
		errs = append(errs, fmt.Sprintf("options: 'timeout' must not be negative, got %s", o.Timeout))
	}
	return errs
}
