// Package report renders run summaries and stored histories for the terminal
// or for machines.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Outcome statuses.
const (
	StatusUpdated   = "updated"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
	StatusRendered  = "rendered"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

const yamlIndent = 2

// Outcome is the result of processing one repository.
type Outcome struct {
	Repo     string  `json:"repo"             yaml:"repo"`
	Key      string  `json:"key"              yaml:"key"`
	Status   string  `json:"status"           yaml:"status"`
	Lines    int     `json:"lines"            yaml:"lines"`
	Badge    string  `json:"badge,omitempty"  yaml:"badge,omitempty"`
	Records  int     `json:"records"          yaml:"records"`
	Days     int     `json:"days"             yaml:"days"`
	Appended int     `json:"appended"         yaml:"appended"`
	Failures int     `json:"measure_failures" yaml:"measure_failures"`
	Seconds  float64 `json:"duration_seconds" yaml:"duration_seconds"`
	Error    string  `json:"error,omitempty"  yaml:"error,omitempty"`
}

// Summary is the result of a whole run.
type Summary struct {
	RunID    string    `json:"run_id"   yaml:"run_id"`
	Started  time.Time `json:"started"  yaml:"started"`
	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Failed counts the repositories that failed.
func (s Summary) Failed() int {
	n := 0

	for _, o := range s.Outcomes {
		if o.Status == StatusFailed {
			n++
		}
	}

	return n
}

// Options controls terminal rendering.
type Options struct {
	Format  string
	NoColor bool
}

// WriteSummary renders s to w in the requested format.
func WriteSummary(w io.Writer, s Summary, opts Options) error {
	switch format(opts.Format) {
	case FormatTable:
		return writeSummaryTable(w, s, opts)
	case FormatJSON:
		return writeJSON(w, s)
	case FormatYAML:
		return writeYAML(w, s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

func format(f string) string {
	if f == "" {
		return FormatTable
	}

	return f
}

func writeSummaryTable(w io.Writer, s Summary, opts Options) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"Repository", "Status", "Lines", "Badge", "Records", "Days", "Appended", "Time"})

	for _, o := range s.Outcomes {
		status := statusColor(o.Status, opts.NoColor).Sprint(o.Status)
		if o.Error != "" {
			status += " " + o.Error
		}

		tbl.AppendRow(table.Row{
			o.Repo,
			status,
			humanize.Comma(int64(o.Lines)),
			o.Badge,
			o.Records,
			o.Days,
			o.Appended,
			time.Duration(o.Seconds * float64(time.Second)).Round(time.Millisecond).String(),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d repositories, %d failed", len(s.Outcomes), s.Failed())})
	tbl.Render()

	return nil
}

func statusColor(status string, noColor bool) *color.Color {
	var c *color.Color

	switch status {
	case StatusUpdated:
		c = color.New(color.FgGreen)
	case StatusFailed:
		c = color.New(color.FgRed)
	case StatusRendered:
		c = color.New(color.FgCyan)
	default:
		c = color.New(color.FgYellow)
	}

	if noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}

	return c
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return nil
}
