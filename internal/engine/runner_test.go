package engine

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// scriptedEnsurer returns a fixed action per descriptor name.
type scriptedEnsurer struct {
	mu      sync.Mutex
	actions map[string]Action
	seen    []string
	onCall  func(d Descriptor)
}

func (s *scriptedEnsurer) Ensure(ctx context.Context, d Descriptor) Outcome {
	s.mu.Lock()
	s.seen = append(s.seen, d.Name)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall(d)
	}
	action, ok := s.actions[d.Name]
	if !ok {
		action = ActionNoOp
	}
	return Outcome{Name: d.Name, Path: d.Path, Action: action}
}

func descriptors(names ...string) []Descriptor {
	ds := make([]Descriptor, len(names))
	for i, n := range names {
		ds[i] = Descriptor{Name: n, Source: "src", Path: n}
	}
	return ds
}

func names(outcomes []Outcome) []string {
	var out []string
	for _, o := range outcomes {
		out = append(out, o.Name)
	}
	return out
}

func TestRunnerIsolatesFailures(t *testing.T) {
	s := &scriptedEnsurer{actions: map[string]Action{"b": ActionFailedConflict}}
	r := &Runner{Engine: s}

	res := r.Run(context.Background(), descriptors("a", "b", "c"), RunOptions{})
	if res.Stopped || res.Canceled {
		t.Errorf("unexpected early termination: %+v", res)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, names(res.Outcomes)); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
	if got := len(res.Failed()); got != 1 {
		t.Errorf("failed = %d, want 1", got)
	}
	if got := res.Counts()[ActionNoOp]; got != 2 {
		t.Errorf("noop count = %d, want 2", got)
	}
}

func TestRunnerStopOnFirstError(t *testing.T) {
	s := &scriptedEnsurer{actions: map[string]Action{"b": ActionFailedTransport}}
	r := &Runner{Engine: s}

	res := r.Run(context.Background(), descriptors("a", "b", "c", "d"), RunOptions{StopOnFirstError: true})
	if !res.Stopped {
		t.Error("Stopped not set")
	}
	if diff := cmp.Diff([]string{"a", "b"}, names(res.Outcomes)); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, s.seen); diff != "" {
		t.Errorf("descriptors started after failure (-want +got):\n%s", diff)
	}
}

func TestRunnerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &scriptedEnsurer{onCall: func(d Descriptor) {
		if d.Name == "b" {
			cancel()
		}
	}}
	r := &Runner{Engine: s}

	res := r.Run(ctx, descriptors("a", "b", "c"), RunOptions{})
	if !res.Canceled {
		t.Error("Canceled not set")
	}
	if diff := cmp.Diff([]string{"a", "b"}, names(res.Outcomes)); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
}

func TestRunnerParallelKeepsInputOrder(t *testing.T) {
	var active, peak atomic.Int32
	s := &scriptedEnsurer{onCall: func(d Descriptor) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		// Later descriptors finish first.
		if d.Name == "a" {
			time.Sleep(30 * time.Millisecond)
		}
		active.Add(-1)
	}}
	r := &Runner{Engine: s}

	res := r.Run(context.Background(), descriptors("a", "b", "c", "d", "e"), RunOptions{Parallelism: 2})
	if diff := cmp.Diff([]string{"a", "b", "c", "d", "e"}, names(res.Outcomes)); diff != "" {
		t.Errorf("outcomes (-want +got):\n%s", diff)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestRunnerOnOutcome(t *testing.T) {
	s := &scriptedEnsurer{actions: map[string]Action{"b": ActionCloned}}
	r := &Runner{Engine: s}

	var mu sync.Mutex
	seen := make(map[string]Action)
	r.Run(context.Background(), descriptors("a", "b", "c"), RunOptions{
		Parallelism: 3,
		OnOutcome: func(o Outcome) {
			mu.Lock()
			seen[o.Name] = o.Action
			mu.Unlock()
		},
	})

	want := map[string]Action{"a": ActionNoOp, "b": ActionCloned, "c": ActionNoOp}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("callbacks (-want +got):\n%s", diff)
	}
}

func TestPathLocksSerializeSameKey(t *testing.T) {
	var locks pathLocks
	var active, peak atomic.Int32
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.lock("/deps/lib")
			defer release()
			n := active.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	if p := peak.Load(); p != 1 {
		t.Errorf("peak holders = %d, want 1", p)
	}
	if len(locks.locks) != 0 {
		t.Errorf("lock table not drained: %d entries", len(locks.locks))
	}
}

func TestEngineSerializesSamePath(t *testing.T) {
	ft := newFakeTransport()
	e := &Engine{Transport: ft}
	path := filepath.Join(t.TempDir(), "lib")
	d := Descriptor{Source: "src", Path: path, Revision: "v1.0"}

	r := &Runner{Engine: e}
	res := r.Run(context.Background(), []Descriptor{d, d, d, d}, RunOptions{Parallelism: 4})

	counts := res.Counts()
	if counts[ActionCloned] != 1 || counts[ActionNoOp] != 3 {
		t.Errorf("counts = %v, want one clone and three no-ops", counts)
	}
}
