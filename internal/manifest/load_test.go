package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const exampleManifest = `version: 1
options:
  stop_on_first_error: true
  parallelism: 4
  timeout: 90s
  retries: 2
dependencies:
  - name: widgets
    source: https://example.com/widgets.git
    path: third_party/widgets
    revision: v1.0.0
  - name: gadgets
    source: ../gadgets.git
    path: third_party/gadgets
    revision: ^2.1
    policy: auto
  - name: tip
    source: https://example.com/tip.git
    path: third_party/tip
`

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidManifest(t *testing.T) {
	path := writeManifest(t, t.TempDir(), exampleManifest)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Version != 1 {
		t.Errorf("version = %d, want 1", m.Version)
	}
	if len(m.Dependencies) != 3 {
		t.Errorf("dependencies = %d, want 3", len(m.Dependencies))
	}
	if !m.Options.StopOnFirstErrorOrDefault() {
		t.Error("stop_on_first_error not read")
	}
	if got := m.Options.ParallelismOrDefault(); got != 4 {
		t.Errorf("parallelism = %d, want 4", got)
	}
	if got := m.Options.RetriesOrDefault(); got != 2 {
		t.Errorf("retries = %d, want 2", got)
	}
	if got, err := m.Options.TimeoutOrDefault(); err != nil || got != 90*time.Second {
		t.Errorf("timeout = %v, %v; want 90s", got, err)
	}
}

func TestOptionDefaults(t *testing.T) {
	var o Options
	if o.StopOnFirstErrorOrDefault() || o.ParallelismOrDefault() != DefaultParallelism || o.RetriesOrDefault() != 0 {
		t.Errorf("unexpected defaults: %+v", o)
	}
	if got, _ := o.TimeoutOrDefault(); got != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", got, DefaultTimeout)
	}
	o.Timeout = "0"
	if got, _ := o.TimeoutOrDefault(); got != 0 {
		t.Errorf("timeout \"0\" = %v, want disabled", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist: %v", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "version: [1\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parsing manifest") {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestValidate(t *testing.T) {
	negative := -1
	tests := []struct {
		name string
		m    Manifest
		want []string
	}{
		{
			name: "version",
			m:    Manifest{Version: 2},
			want: []string{"unsupported version 2"},
		},
		{
			name: "missing fields",
			m:    Manifest{Version: 1, Dependencies: []Dependency{{}}},
			want: []string{"'name' is required", "'source' is required", "'path' is required"},
		},
		{
			name: "duplicates",
			m: Manifest{Version: 1, Dependencies: []Dependency{
				{Name: "a", Source: "s", Path: "deps/a"},
				{Name: "a", Source: "s", Path: "deps/b"},
				{Name: "c", Source: "s", Path: "deps/./a"},
			}},
			want: []string{"duplicate dependency name 'a'", "already used by 'a'"},
		},
		{
			name: "policy",
			m:    Manifest{Version: 1, Dependencies: []Dependency{{Name: "a", Source: "s", Path: "a", Policy: "nightly"}}},
			want: []string{"invalid policy 'nightly'"},
		},
		{
			name: "options",
			m:    Manifest{Version: 1, Options: Options{Parallelism: -2, Retries: &negative, Timeout: "soon"}},
			want: []string{"'parallelism' must not be negative", "'retries' must not be negative", "invalid timeout 'soon'"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&tt.m)
			for _, w := range tt.want {
				if !containsSubstring(errs, w) {
					t.Errorf("missing %q in %v", w, errs)
				}
			}
		})
	}
}

func TestValidateValidManifest(t *testing.T) {
	m := &Manifest{
		Version: 1,
		Dependencies: []Dependency{
			{Name: "a", Source: "https://example.com/a.git", Path: "deps/a", Policy: "auto"},
			{Name: "b", Source: "https://example.com/b.git", Path: "deps/b"},
		},
	}
	if errs := Validate(m); len(errs) > 0 {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestValidationErrorFormat(t *testing.T) {
	verr := &ValidationError{Errors: []string{"error one", "error two"}}
	msg := verr.Error()
	if !strings.Contains(msg, "error one") || !strings.Contains(msg, "error two") {
		t.Errorf("error message missing details: %s", msg)
	}
}

func containsSubstring(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
