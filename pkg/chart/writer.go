package chart

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/loctrack/pkg/history"
	"github.com/Sumatoshi-tech/loctrack/pkg/persist"
)

// ErrWriteOnly is returned when decoding a rendered chart.
var ErrWriteOnly = errors.New("charts cannot be decoded")

// Document is what the chart codecs encode.
type Document struct {
	Title   string
	History history.History
}

type renderFunc func(w io.Writer, title string, h history.History, o Options) error

// codec adapts a renderer to persist.Codec so charts share the atomic
// replace of the other artifacts.
type codec struct {
	render    renderFunc
	extension string
	options   Options
}

func (c codec) Encode(w io.Writer, state any) error {
	doc, ok := state.(Document)
	if !ok {
		return fmt.Errorf("encode chart: unexpected %T", state)
	}

	return c.render(w, doc.Title, doc.History, c.options)
}

func (c codec) Decode(io.Reader, any) error {
	return ErrWriteOnly
}

func (c codec) Extension() string {
	return c.extension
}

// WriterOptions select the formats a Writer emits.
type WriterOptions struct {
	SVG  bool
	HTML bool
	Options
}

// Writer writes charts as <dir>/<key>.svg and <dir>/<key>.html.
type Writer struct {
	dir    string
	codecs []persist.Codec
}

// NewWriter creates a writer for dir. The directory is created on demand.
func NewWriter(dir string, o WriterOptions) *Writer {
	w := &Writer{dir: dir}

	if o.SVG {
		w.codecs = append(w.codecs, codec{render: RenderSVG, extension: ".svg", options: o.Options})
	}

	if o.HTML {
		w.codecs = append(w.codecs, codec{render: RenderHTML, extension: ".html", options: o.Options})
	}

	return w
}

// Write regenerates every enabled chart of key from the full history and
// returns the written paths. An empty history writes nothing.
func (w *Writer) Write(repo, key string, h history.History) ([]string, error) {
	if len(h) == 0 {
		return nil, nil
	}

	doc := Document{Title: Title(repo), History: h}

	paths := make([]string, 0, len(w.codecs))

	for _, c := range w.codecs {
		err := persist.SaveState(w.dir, key, c, doc)
		if err != nil {
			return paths, fmt.Errorf("write chart %s: %w", key, err)
		}

		paths = append(paths, persist.Path(w.dir, key, c))
	}

	return paths, nil
}
