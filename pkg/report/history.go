package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/loctrack/pkg/history"
)

// HistoryView is a stored history with its repository name.
type HistoryView struct {
	Repo    string          `json:"repo"    yaml:"repo"`
	Key     string          `json:"key"     yaml:"key"`
	Records history.History `json:"records" yaml:"records"`
}

// WriteHistory renders a stored history to w in the requested format.
func WriteHistory(w io.Writer, view HistoryView, opts Options) error {
	if view.Records == nil {
		view.Records = history.History{}
	}

	switch format(opts.Format) {
	case FormatTable:
		return writeHistoryTable(w, view)
	case FormatJSON:
		return writeJSON(w, view)
	case FormatYAML:
		return writeYAML(w, view)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

func writeHistoryTable(w io.Writer, view HistoryView) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetTitle(view.Repo)
	tbl.SetStyle(table.StyleLight)
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	tbl.AppendHeader(table.Row{"Date", "Lines", "Change"})

	prev := 0

	for _, r := range view.Records {
		tbl.AppendRow(table.Row{r.Date.String(), humanize.Comma(int64(r.Lines)), delta(r.Lines - prev)})
		prev = r.Lines
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d records", len(view.Records)), ""})
	tbl.Render()

	return nil
}

func delta(d int) string {
	if d > 0 {
		return "+" + humanize.Comma(int64(d))
	}

	return humanize.Comma(int64(d))
}
