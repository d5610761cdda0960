package ui

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/bianoble/depsync/internal/engine"
	"github.com/bianoble/depsync/internal/report"
	"github.com/bianoble/depsync/internal/transport"
)

// RenderOutcomes writes outcomes as a table.
func RenderOutcomes(out io.Writer, outcomes []engine.Outcome, s *Styler) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"DEPENDENCY", "ACTION", "RELATION", "DESIRED", "CURRENT", "DETAIL"})
	for _, o := range outcomes {
		t.AppendRow(table.Row{
			o.Label(),
			s.Action(o.Action),
			dash(string(o.Relation)),
			dash(desired(o)),
			dash(transport.ShortCommit(o.FinalRevision)),
			detail(o),
		})
	}
	t.Render()
}

func desired(o engine.Outcome) string {
	if o.DesiredRevision == "" {
		return ""
	}
	return transport.Target{Ref: o.DesiredRef, Commit: o.DesiredRevision}.String()
}

func detail(o engine.Outcome) string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return o.Message
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RenderReport writes the entries of a saved report as a table.
func RenderReport(out io.Writer, r *report.Report, s *Styler) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"DEPENDENCY", "ACTION", "RELATION", "DESIRED", "CURRENT", "DETAIL"})
	for _, e := range r.Dependencies {
		name := e.Name
		if name == "" {
			name = e.Path
		}
		var want string
		if e.Desired != "" {
			want = transport.Target{Ref: e.DesiredRef, Commit: e.Desired}.String()
		}
		msg := e.Message
		if e.Error != "" {
			msg = e.Error
		}
		t.AppendRow(table.Row{
			name,
			s.Action(engine.Action(e.Action)),
			dash(e.Relation),
			dash(want),
			dash(transport.ShortCommit(e.Final)),
			msg,
		})
	}
	t.Render()
}
