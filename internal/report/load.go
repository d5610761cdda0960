package report

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/depsync/internal/engine"
	"github.com/bianoble/depsync/internal/sandbox"
)

// Load reads and validates a report file.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}

	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}

	if errs := Validate(&r); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &r, nil
}

// Save writes a report atomically.
func Save(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := sandbox.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("report validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

var knownActions = map[engine.Action]bool{
	engine.ActionNoOp:            true,
	engine.ActionCloned:          true,
	engine.ActionUpdated:         true,
	engine.ActionLeftStale:       true,
	engine.ActionFailedConflict:  true,
	engine.ActionFailedTransport: true,
	engine.ActionFailedIO:        true,
}

// Validate checks a Report for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(r *Report) []string {
	var errs []string

	if r.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d, only version 1 is supported", r.Version))
	}

	for i, e := range r.Dependencies {
		prefix := fmt.Sprintf("dependencies[%d]", i)
		if e.Name != "" {
			prefix = fmt.Sprintf("dependency '%s'", e.Name)
		}

		if e.Path == "" {
			errs = append(errs, fmt.Sprintf("%s: 'path' is required", prefix))
		}
		if e.Action == "" {
			errs = append(errs, fmt.Sprintf("%s: 'action' is required", prefix))
		} else if !knownActions[engine.Action(e.Action)] {
			errs = append(errs, fmt.Sprintf("%s: unknown action '%s'", prefix, e.Action))
		}
	}

	return errs
}
