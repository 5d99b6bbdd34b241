package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/loctrack/pkg/history"
	"github.com/Sumatoshi-tech/loctrack/pkg/persist"
)

//go:embed schema/history.schema.json
var historySchema []byte

const jsonExt = ".json"

var historySchemaLoader = gojsonschema.NewBytesLoader(historySchema)

// JSONStore keeps one indented JSON document per key in a directory.
type JSONStore struct {
	docs *persist.Persister[history.History]
}

// NewJSONStore creates a store rooted at dir. The directory is created on the
// first save.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{docs: persist.NewPersister[history.History](dir, persist.NewJSONCodec())}
}

// Path returns the document path of key.
func (s *JSONStore) Path(key string) string {
	return s.docs.Path(key)
}

// Load implements Store.
func (s *JSONStore) Load(ctx context.Context, key string) (history.History, error) {
	err := checkKey(key)
	if err != nil {
		return history.History{}, err
	}

	err = ctx.Err()
	if err != nil {
		return history.History{}, err
	}

	data, err := s.docs.Read(key)
	if errors.Is(err, os.ErrNotExist) {
		return history.History{}, nil
	}

	if err != nil {
		return history.History{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	err = ValidateDocument(data)
	if err != nil {
		return history.History{}, err
	}

	h, err := s.docs.Decode(data)
	if err != nil {
		return history.History{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return validated(h)
}

// Save implements Store.
func (s *JSONStore) Save(ctx context.Context, key string, h history.History) error {
	err := checkKey(key)
	if err != nil {
		return err
	}

	err = ctx.Err()
	if err != nil {
		return err
	}

	if h == nil {
		h = history.History{}
	}

	err = s.docs.Save(key, h)
	if err != nil {
		return fmt.Errorf("save history %s: %w", key, err)
	}

	return nil
}

// Keys lists the stored keys in lexical order.
func (s *JSONStore) Keys(ctx context.Context) ([]string, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.docs.Dir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	var keys []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != jsonExt {
			continue
		}

		keys = append(keys, strings.TrimSuffix(name, jsonExt))
	}

	return keys, nil
}

// Close implements Store.
func (s *JSONStore) Close() error {
	return nil
}

// ValidateDocument checks raw bytes against the history document schema.
func ValidateDocument(data []byte) error {
	result, err := gojsonschema.Validate(historySchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(msgs, "; "))
}
