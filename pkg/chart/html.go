package chart

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/loctrack/pkg/history"
)

// DataZoom defaults.
const dataZoomEndPercent = 100

// BuildLineChart constructs a go-echarts step line chart of h on a time axis.
func BuildLineChart(title string, h history.History, o Options) *charts.Line {
	o = o.withDefaults()
	theme := GetThemeConfig(o.Theme)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           strconv.Itoa(o.Width) + "px",
			Height:          strconv.Itoa(o.Height) + "px",
			BackgroundColor: theme.Background,
			PageTitle:       title,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      title,
			Left:       "center",
			TitleStyle: &opts.TextStyle{Color: theme.Title},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: dataZoomEndPercent},
			opts.DataZoom{Type: "inside"},
		),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "time",
			AxisLabel: &opts.AxisLabel{Color: theme.TextMuted},
			AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: theme.Axis}},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "lines",
			AxisLabel: &opts.AxisLabel{Color: theme.TextMuted},
			AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: theme.Axis}},
			SplitLine: &opts.SplitLine{
				Show:      opts.Bool(true),
				LineStyle: &opts.LineStyle{Color: theme.Grid},
			},
		}),
	)

	data := make([]opts.LineData, len(h))
	for i, rec := range h {
		data[i] = opts.LineData{Value: []any{rec.Date.String(), rec.Lines}}
	}

	line.AddSeries("lines", data,
		charts.WithLineChartOpts(opts.LineChart{Step: "end", ShowSymbol: opts.Bool(false)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: SeriesColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: SeriesColor, Width: lineWidth}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: SeriesColor, Opacity: opts.Float(AreaOpacity)}),
	)

	return line
}

// RenderHTML writes an interactive page with the step chart of h.
func RenderHTML(w io.Writer, title string, h history.History, o Options) error {
	if len(h) == 0 {
		return ErrEmpty
	}

	err := BuildLineChart(title, h, o).Render(w)
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	return nil
}
