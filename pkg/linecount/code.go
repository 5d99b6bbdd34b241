package linecount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/loctrack/pkg/textutil"
)

// languageSniffLength bounds the content handed to enry for classification.
const languageSniffLength = 16 * 1024

// Code counts only source files: binaries, vendored paths, dot files,
// documentation and files without a detected language are skipped.
type Code struct{}

// Count implements Counter.
func (Code) Count(ctx context.Context, dir string) (int, error) {
	total := 0

	err := walkFiles(ctx, dir, func(full, rel string) error {
		if skipPath(rel) {
			return nil
		}

		data, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		n, err := countSource(rel, data)
		if errors.Is(err, textutil.ErrBinary) {
			return nil
		}

		if err != nil {
			return err
		}

		total += n

		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

func skipPath(rel string) bool {
	return enry.IsVendor(rel) || enry.IsDotFile(rel) || enry.IsDocumentation(rel)
}

func countSource(rel string, data []byte) (int, error) {
	if enry.IsBinary(data) {
		return 0, textutil.ErrBinary
	}

	sniff := data
	if len(sniff) > languageSniffLength {
		sniff = sniff[:languageSniffLength]
	}

	if enry.GetLanguage(path.Base(rel), sniff) == "" {
		return 0, nil
	}

	return textutil.CountLines(data)
}
