// Package manifest loads depsync.yaml, the host project's list of
// dependencies, and turns it into engine descriptors.
package manifest

import (
	"time"
)

// FileName is the default manifest file name.
const FileName = "depsync.yaml"

// Manifest represents a depsync.yaml file.
type Manifest struct {
	Version      int          `yaml:"version"`
	Options      Options      `yaml:"options,omitempty"`
	Dependencies []Dependency `yaml:"dependencies"`
}

// Options tune a run. Unset fields take the defaults below; CLI flags
// override them.
type Options struct {
	StopOnFirstError *bool  `yaml:"stop_on_first_error,omitempty"`
	Parallelism      int    `yaml:"parallelism,omitempty"`
	Timeout          string `yaml:"timeout,omitempty"` // per transport call, e.g. "5m"
	Retries          *int   `yaml:"retries,omitempty"`
	StagingDir       string `yaml:"staging_dir,omitempty"`
}

// Defaults for unset options.
const (
	DefaultParallelism = 1
	DefaultTimeout     = 5 * time.Minute
)

// Dependency is one external repository the project needs.
type Dependency struct {
	Name     string `yaml:"name"`
	Source   string `yaml:"source"`
	Path     string `yaml:"path"`
	Revision string `yaml:"revision,omitempty"`
	Policy   string `yaml:"policy,omitempty"` // "manual" (default) or "auto"
}

// StopOnFirstErrorOrDefault returns the configured value or false.
func (o Options) StopOnFirstErrorOrDefault() bool {
	return o.StopOnFirstError != nil && *o.StopOnFirstError
}

// ParallelismOrDefault returns the configured value or DefaultParallelism.
func (o Options) ParallelismOrDefault() int {
	if o.Parallelism > 0 {
		return o.Parallelism
	}
	return DefaultParallelism
}

// RetriesOrDefault returns the configured value or zero.
func (o Options) RetriesOrDefault() int {
	if o.Retries != nil {
		return *o.Retries
	}
	return 0
}

// TimeoutOrDefault parses Timeout, returning DefaultTimeout when unset.
// "0" disables the timeout.
func (o Options) TimeoutOrDefault() (time.Duration, error) {
	if o.Timeout == "" {
		return DefaultTimeout, nil
	}
	if o.Timeout == "0" {
		return 0, nil
	}
	return time.ParseDuration(o.Timeout)
}
