// Package report renders run results for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/goliatone/go-formpatch/internal/journal"
	"github.com/goliatone/go-formpatch/pkg/engine"
	"github.com/goliatone/go-formpatch/pkg/rules"
	"github.com/goliatone/go-formpatch/pkg/validation"
)

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Printer writes tables to an output stream.
type Printer struct {
	out io.Writer
}

// New returns a Printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Status prints a single styled status line.
func (p *Printer) Status(level Level, message string) {
	fmt.Fprintln(p.out, level.render()+" "+message)
}

// Level selects the status style.
type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelFail
)

func (l Level) render() string {
	switch l {
	case LevelWarn:
		return warnStyle.Render("WARN")
	case LevelFail:
		return failStyle.Render("FAIL")
	default:
		return okStyle.Render("OK")
	}
}

// Run prints the per-rule summary followed by any warnings.
func (p *Printer) Run(report engine.Report) {
	tw := p.table()
	tw.SetTitle("run " + report.RunID)
	tw.AppendHeader(table.Row{"Rule", "Changed", "Warnings"})
	for _, rule := range report.Rules {
		tw.AppendRow(table.Row{rule.Rule, rule.Changed, len(rule.Warnings)})
	}
	tw.AppendFooter(table.Row{"total", report.Changed(), len(report.Warnings())})
	tw.Render()

	p.Warnings(report.Warnings())
}

// Warnings prints a warnings table; nothing is printed when warnings is empty.
func (p *Printer) Warnings(warnings []rules.Warning) {
	if len(warnings) == 0 {
		return
	}
	tw := p.table()
	tw.AppendHeader(table.Row{"Rule", "Path", "Warning"})
	for _, w := range warnings {
		tw.AppendRow(table.Row{w.Rule, w.Path, w.Message})
	}
	tw.Render()
}

// Validation prints the validation verdict and its issues.
func (p *Printer) Validation(report validation.Report) {
	if report.Valid {
		p.Status(LevelOK, "document is valid")
		return
	}
	p.Status(LevelFail, fmt.Sprintf("%d validation issue(s)", len(report.Issues)))
	tw := p.table()
	tw.AppendHeader(table.Row{"Code", "Path", "Issue"})
	for _, issue := range report.Issues {
		tw.AppendRow(table.Row{issue.Code, issue.Path, issue.Message})
	}
	tw.Render()
}

// Rules lists registered rules with their ordering constraints.
func (p *Printer) Rules(infos []rules.Info) {
	tw := p.table()
	tw.AppendHeader(table.Row{"Rule", "Description", "Constraints"})
	for _, info := range infos {
		tw.AppendRow(table.Row{info.Name, info.Description, constraintSummary(info.Constraints)})
	}
	tw.Render()
}

// History lists journal entries.
func (p *Printer) History(entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(p.out, dimStyle.Render("no recorded runs"))
		return
	}
	tw := p.table()
	tw.AppendHeader(table.Row{"Run", "When", "Source", "Status", "Changed", "Warnings"})
	for _, e := range entries {
		tw.AppendRow(table.Row{
			e.RunID,
			e.RecordedAt.Local().Format(time.DateTime),
			e.Source,
			statusLabel(e.Status),
			e.Changed,
			len(e.Warnings),
		})
	}
	tw.Render()
}

func (p *Printer) table() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(p.out)
	tw.SetStyle(table.StyleLight)
	return tw
}

func statusLabel(status string) string {
	switch status {
	case journal.StatusFailed:
		return failStyle.Render(status)
	case journal.StatusDryRun:
		return warnStyle.Render(status)
	default:
		return okStyle.Render(status)
	}
}

func constraintSummary(c rules.Constraints) string {
	var parts []string
	if len(c.Labels) > 0 {
		parts = append(parts, "labels: "+strings.Join(c.Labels, ", "))
	}
	if len(c.Before) > 0 {
		parts = append(parts, "before: "+strings.Join(c.Before, ", "))
	}
	if len(c.After) > 0 {
		parts = append(parts, "after: "+strings.Join(c.After, ", "))
	}
	if len(c.Excludes) > 0 {
		parts = append(parts, "excludes: "+strings.Join(c.Excludes, ", "))
	}
	return strings.Join(parts, "\n")
}
