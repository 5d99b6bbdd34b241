// Package chart renders a history as a step chart: a standalone SVG image and
// an optional interactive go-echarts page.
package chart

// Theme represents a color theme for charts.
type Theme string

const (
	// ThemeLight is the light color theme.
	ThemeLight Theme = "light"
	// ThemeDark is the dark color theme.
	ThemeDark Theme = "dark"
)

// SeriesColor is the step line color; the area under it reuses it.
const SeriesColor = "#00f2ff"

// AreaOpacity is the opacity of the area under the step line.
const AreaOpacity = 0.15

// ThemeConfig holds the chart colors of a theme.
type ThemeConfig struct {
	Background string
	Title      string
	Grid       string
	Axis       string
	Text       string
	TextMuted  string
}

// GetThemeConfig returns the configuration for a given theme. Unknown themes
// fall back to dark.
func GetThemeConfig(theme Theme) ThemeConfig {
	if theme == ThemeLight {
		return lightTheme
	}

	return darkTheme
}

var lightTheme = ThemeConfig{
	Background: "transparent",
	Title:      "#1c1917", // stone-900.
	Grid:       "#e7e5e4", // stone-200.
	Axis:       "#a8a29e", // stone-400.
	Text:       "#44403c", // stone-700.
	TextMuted:  "#78716c", // stone-500.
}

var darkTheme = ThemeConfig{
	Background: "transparent",
	Title:      "#ffffff",
	Grid:       "#44403c", // stone-700.
	Axis:       "#57534e", // stone-600.
	Text:       "#d6d3d1", // stone-300.
	TextMuted:  "#a8a29e", // stone-400.
}
