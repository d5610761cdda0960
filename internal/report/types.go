// Package report records the outcome of a run in depsync.report.yaml.
package report

import (
	"time"

	"github.com/bianoble/depsync/internal/engine"
)

// FileName is the default report file name.
const FileName = "depsync.report.yaml"

// Report is the on-disk record of one run.
type Report struct {
	Version      int       `yaml:"version"`
	GeneratedAt  time.Time `yaml:"generated_at"`
	Stopped      bool      `yaml:"stopped,omitempty"`
	Canceled     bool      `yaml:"canceled,omitempty"`
	Dependencies []Entry   `yaml:"dependencies"`
}

// Entry records the outcome for one dependency.
type Entry struct {
	Name       string `yaml:"name,omitempty"`
	Path       string `yaml:"path"`
	Source     string `yaml:"source,omitempty"`
	Action     string `yaml:"action"`
	Relation   string `yaml:"relation,omitempty"`
	DesiredRef string `yaml:"desired_ref,omitempty"`
	Desired    string `yaml:"desired,omitempty"`
	Final      string `yaml:"final,omitempty"`
	Message    string `yaml:"message,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

// FromResult builds a report from a run over descriptors.
func FromResult(res engine.RunResult, descriptors []engine.Descriptor, now time.Time) *Report {
	type key struct{ name, path string }
	sources := make(map[key]string, len(descriptors))
	for _, d := range descriptors {
		sources[key{d.Name, d.Path}] = d.Source
	}

	r := &Report{
		Version:     1,
		GeneratedAt: now.UTC(),
		Stopped:     res.Stopped,
		Canceled:    res.Canceled,
	}
	for _, o := range res.Outcomes {
		e := Entry{
			Name:       o.Name,
			Path:       o.Path,
			Source:     sources[key{o.Name, o.Path}],
			Action:     string(o.Action),
			Relation:   string(o.Relation),
			DesiredRef: o.DesiredRef,
			Desired:    o.DesiredRevision,
			Final:      o.FinalRevision,
			Message:    o.Message,
		}
		if o.Err != nil {
			e.Error = o.Err.Error()
		}
		r.Dependencies = append(r.Dependencies, e)
	}
	return r
}

// Failed returns the entries whose action is a failure.
func (r *Report) Failed() []Entry {
	var failed []Entry
	for _, e := range r.Dependencies {
		if engine.Action(e.Action).Failed() {
			failed = append(failed, e)
		}
	}
	return failed
}
