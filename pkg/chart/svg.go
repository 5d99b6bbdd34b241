package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/Sumatoshi-tech/loctrack/pkg/history"
)

// Layout defaults.
const (
	DefaultWidth  = 1000
	DefaultHeight = 500

	yTickTarget   = 5
	maxXTicks     = 12
	titleFontSize = 18
	tickFontSize  = 11
	lineWidth     = 2
	headroom      = 1.05
	monthsPerYear = 12
	day           = 24 * time.Hour
	monthFormat   = "2006-01"
	xLabelAngle   = math.Pi / 4
)

// gridDashes is the dash pattern of the grid lines.
var gridDashes = []vg.Length{vg.Points(4), vg.Points(4)}

// ErrEmpty is returned when asked to render an empty history.
var ErrEmpty = errors.New("empty history")

// Options configure rendering.
type Options struct {
	Width  int
	Height int
	Theme  Theme
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}

	if o.Height <= 0 {
		o.Height = DefaultHeight
	}

	if o.Theme == "" {
		o.Theme = ThemeDark
	}

	return o
}

// Title returns the chart title of a repository.
func Title(repo string) string {
	return "Lines of Code: " + repo
}

// NewStepLine builds the post-step series of h: each record's value holds
// until the next record. X is the record day in Unix seconds. A single
// record is held for one day so the step has a visible run.
func NewStepLine(h history.History) (*plotter.Line, error) {
	if len(h) == 0 {
		return nil, ErrEmpty
	}

	dates := h.Dates()
	pts := make(plotter.XYs, 0, len(h)+1)

	for i, rec := range h {
		pts = append(pts, plotter.XY{X: float64(dates[i].Unix()), Y: float64(rec.Lines)})
	}

	if len(h) == 1 {
		pts = append(pts, plotter.XY{X: float64(dates[0].Add(day).Unix()), Y: float64(h[0].Lines)})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("step line: %w", err)
	}

	series := hexColor(SeriesColor)

	line.StepStyle = plotter.PostStep
	line.LineStyle.Color = series
	line.LineStyle.Width = vg.Points(lineWidth)
	line.FillColor = withAlpha(series, AreaOpacity)

	return line, nil
}

// BuildPlot lays out the step chart of h in the theme of o.
func BuildPlot(title string, h history.History, o Options) (*plot.Plot, error) {
	o = o.withDefaults()
	theme := GetThemeConfig(o.Theme)

	line, err := NewStepLine(h)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.BackgroundColor = hexColor(theme.Background)

	p.Title.Text = title
	p.Title.TextStyle.Color = hexColor(theme.Title)
	p.Title.TextStyle.Font.Size = vg.Points(titleFontSize)

	styleAxis(&p.X, theme, theme.Text)
	styleAxis(&p.Y, theme, theme.TextMuted)

	p.X.Tick.Marker = monthTicker{}
	p.X.Tick.Label.Rotation = xLabelAngle
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.Y.Tick.Marker = linesTicker{}

	grid := plotter.NewGrid()
	grid.Vertical.Color = hexColor(theme.Grid)
	grid.Vertical.Dashes = gridDashes
	grid.Horizontal.Color = hexColor(theme.Grid)
	grid.Horizontal.Dashes = gridDashes

	p.Add(grid, line)

	maxLines := 0
	for _, v := range h.Values() {
		maxLines = max(maxLines, v)
	}

	p.Y.Min = 0
	p.Y.Max = niceCeil(float64(maxLines) * headroom)

	return p, nil
}

func styleAxis(axis *plot.Axis, theme ThemeConfig, labels string) {
	axisColor := hexColor(theme.Axis)

	axis.LineStyle.Color = axisColor
	axis.Tick.LineStyle.Color = axisColor
	axis.Tick.Label.Color = hexColor(labels)
	axis.Tick.Label.Font.Size = vg.Points(tickFontSize)
	axis.Label.TextStyle.Color = hexColor(labels)
}

// RenderSVG writes a standalone SVG step chart of h.
func RenderSVG(w io.Writer, title string, h history.History, o Options) error {
	if len(h) == 0 {
		return ErrEmpty
	}

	o = o.withDefaults()

	p, err := BuildPlot(title, h, o)
	if err != nil {
		return err
	}

	canvas := vgsvg.New(vg.Points(float64(o.Width)), vg.Points(float64(o.Height)))
	p.Draw(draw.New(canvas))

	_, err = canvas.WriteTo(w)
	if err != nil {
		return fmt.Errorf("write svg: %w", err)
	}

	return nil
}

// monthTicker labels the time axis on first-of-month boundaries.
type monthTicker struct{}

// Ticks implements plot.Ticker.
func (monthTicker) Ticks(lo, hi float64) []plot.Tick {
	months := MonthTicks(time.Unix(int64(lo), 0).UTC(), time.Unix(int64(hi), 0).UTC())

	ticks := make([]plot.Tick, 0, len(months))
	for _, t := range months {
		ticks = append(ticks, plot.Tick{Value: float64(t.Unix()), Label: t.Format(monthFormat)})
	}

	return ticks
}

// linesTicker is plot.DefaultTicks with thousands separators.
type linesTicker struct{}

// Ticks implements plot.Ticker.
func (linesTicker) Ticks(lo, hi float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(lo, hi)

	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = humanize.Comma(int64(math.Round(ticks[i].Value)))
		}
	}

	return ticks
}

// MonthTicks returns first-of-month instants in [from, to], thinned to at most
// a dozen evenly spaced ticks. A range inside one month yields its start
// clamped to from.
func MonthTicks(from, to time.Time) []time.Time {
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	if first.Before(from) {
		first = first.AddDate(0, 1, 0)
	}

	months := 0
	for t := first; !t.After(to); t = t.AddDate(0, 1, 0) {
		months++
	}

	if months == 0 {
		return []time.Time{from}
	}

	stride := (months + maxXTicks - 1) / maxXTicks
	if stride > 1 && stride < monthsPerYear && monthsPerYear%stride != 0 {
		stride = nextDivisor(stride)
	}

	ticks := make([]time.Time, 0, months/stride+1)
	for i := 0; i < months; i += stride {
		ticks = append(ticks, first.AddDate(0, i, 0))
	}

	return ticks
}

// nextDivisor rounds n up to the next divisor of twelve so ticks stay aligned
// to quarters and halves.
func nextDivisor(n int) int {
	for d := n; d < monthsPerYear; d++ {
		if monthsPerYear%d == 0 {
			return d
		}
	}

	return monthsPerYear
}

// niceCeil rounds v up to 1, 2, 2.5 or 5 times a power of ten so that five
// evenly spaced ticks get round labels.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return yTickTarget
	}

	step := v / yTickTarget
	magnitude := math.Pow(10, math.Floor(math.Log10(step)))

	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*magnitude >= step {
			return math.Max(m*magnitude*yTickTarget, yTickTarget)
		}
	}

	return 10 * magnitude * yTickTarget
}

// hexColor parses "#rrggbb". "transparent" and unparsable values give a
// nil color, which gonum/plot leaves unpainted.
func hexColor(s string) color.Color {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return nil
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil
	}

	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: math.MaxUint8}
}

func withAlpha(c color.Color, alpha float64) color.Color {
	nrgba, ok := c.(color.NRGBA)
	if !ok {
		return c
	}

	nrgba.A = uint8(math.Round(alpha * math.MaxUint8))

	return nrgba
}
