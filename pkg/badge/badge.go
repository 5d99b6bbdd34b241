// Package badge renders shields.io endpoint documents for the current line
// count of a repository.
package badge

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/loctrack/pkg/persist"
)

// Fixed badge fields.
const (
	SchemaVersion = 1
	Label         = "Lines of Code"
	Color         = "blue"
)

const (
	thousand = 1_000
	million  = 1_000_000
)

// ErrInvalid reports a document that does not match the endpoint schema.
var ErrInvalid = errors.New("invalid badge document")

//go:embed schema/endpoint.schema.json
var endpointSchema []byte

var endpointSchemaLoader = gojsonschema.NewBytesLoader(endpointSchema)

// Document is a shields.io endpoint badge.
type Document struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

// Format abbreviates a line count: above one million as "2.5M", above one
// thousand as "1.5k", otherwise the plain integer. The comparisons are strict,
// so exactly 1000 gives "1000" and exactly 1000000 gives "1000.0k".
func Format(count int) string {
	switch {
	case count > million:
		return fmt.Sprintf("%.1fM", float64(count)/million)
	case count > thousand:
		return fmt.Sprintf("%.1fk", float64(count)/thousand)
	default:
		return strconv.Itoa(count)
	}
}

// New builds the badge for count.
func New(count int) Document {
	return Document{
		SchemaVersion: SchemaVersion,
		Label:         Label,
		Message:       Format(count),
		Color:         Color,
	}
}

// Validate checks doc against the shields.io endpoint schema.
func Validate(doc Document) error {
	result, err := gojsonschema.Validate(endpointSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Writer writes badge documents as <dir>/<key>.json.
type Writer struct {
	docs *persist.Persister[Document]
}

// NewWriter creates a writer for dir. The directory is created on demand.
func NewWriter(dir string) *Writer {
	return &Writer{docs: persist.NewPersister[Document](dir, persist.NewJSONCodec())}
}

// Path returns the badge path of key.
func (w *Writer) Path(key string) string {
	return w.docs.Path(key)
}

// Write validates and overwrites the badge of key, returning the document.
func (w *Writer) Write(key string, count int) (Document, error) {
	doc := New(count)

	err := Validate(doc)
	if err != nil {
		return doc, err
	}

	err = w.docs.Save(key, doc)
	if err != nil {
		return doc, fmt.Errorf("write badge %s: %w", key, err)
	}

	return doc, nil
}
