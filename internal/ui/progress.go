package ui

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/bianoble/depsync/internal/engine"
)

// Progress reports per-dependency completion while a run is in flight. It
// is safe for concurrent use.
type Progress struct {
	out       io.Writer
	styler    *Styler
	total     int
	completed atomic.Int32
	mu        sync.Mutex
}

// NewProgress creates a progress tracker for total dependencies.
func NewProgress(out io.Writer, styler *Styler, total int) *Progress {
	return &Progress{out: out, styler: styler, total: total}
}

// Done records one finished outcome and prints a counter line.
func (p *Progress) Done(o engine.Outcome) {
	n := int(p.completed.Add(1))
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, "[%d/%d] %s %s\n", n, p.total, o.Label(), p.styler.Action(o.Action))
}

// Event prints an engine progress event.
func (p *Progress) Event(ev engine.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := ev.Label()
	if ev.Message != "" {
		_, _ = fmt.Fprintf(p.out, "  %s: %s %s\n", name, ev.Stage, ev.Message)
		return
	}
	_, _ = fmt.Fprintf(p.out, "  %s: %s\n", name, ev.Stage)
}
