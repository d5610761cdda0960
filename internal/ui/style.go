// Package ui renders run results for the terminal.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/bianoble/depsync/internal/engine"
)

// Styler colors status words. With color disabled every method returns its
// input unchanged.
type Styler struct {
	color bool

	ok    lipgloss.Style
	stale lipgloss.Style
	fail  lipgloss.Style
	bold  lipgloss.Style
}

// NewStyler returns a Styler for out. Color is used only when out is a
// terminal, noColor is false and NO_COLOR is unset.
func NewStyler(out io.Writer, noColor bool) *Styler {
	color := !noColor && os.Getenv("NO_COLOR") == "" && isTerminal(out)
	return newStyler(out, color)
}

func newStyler(out io.Writer, color bool) *Styler {
	r := lipgloss.NewRenderer(out)
	return &Styler{
		color: color,
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		stale: r.NewStyle().Foreground(lipgloss.Color("3")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		bold:  r.NewStyle().Bold(true),
	}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Action renders an action word in its status color.
func (s *Styler) Action(a engine.Action) string {
	text := string(a)
	if !s.color {
		return text
	}
	switch {
	case a.Failed():
		return s.fail.Render(text)
	case a == engine.ActionLeftStale:
		return s.stale.Render(text)
	default:
		return s.ok.Render(text)
	}
}

// Bold renders text in bold.
func (s *Styler) Bold(text string) string {
	if !s.color {
		return text
	}
	return s.bold.Render(text)
}
