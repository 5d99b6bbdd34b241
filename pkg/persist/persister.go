package persist

import (
	"bytes"
	"fmt"
	"os"
)

// Persister handles I/O of one document type in one directory using a Codec.
type Persister[T any] struct {
	dir   string
	codec Codec
}

// NewPersister creates a persister rooted at dir.
func NewPersister[T any](dir string, codec Codec) *Persister[T] {
	return &Persister[T]{
		dir:   dir,
		codec: codec,
	}
}

// Dir returns the directory documents are stored in.
func (p *Persister[T]) Dir() string {
	return p.dir
}

// Path returns the file path of the named document.
func (p *Persister[T]) Path(name string) string {
	return Path(p.dir, name, p.codec)
}

// Save atomically replaces the named document.
func (p *Persister[T]) Save(name string, state T) error {
	return SaveState(p.dir, name, p.codec, state)
}

// Load decodes the named document.
func (p *Persister[T]) Load(name string) (T, error) {
	var state T

	err := LoadState(p.dir, name, p.codec, &state)

	return state, err
}

// Read returns the raw bytes of the named document.
func (p *Persister[T]) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(p.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	return data, nil
}

// Decode decodes raw bytes previously returned by Read.
func (p *Persister[T]) Decode(data []byte) (T, error) {
	var state T

	err := p.codec.Decode(bytes.NewReader(data), &state)

	return state, err
}
