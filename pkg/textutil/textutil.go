// Package textutil provides byte-level text utilities: binary detection and
// line counting over buffers and streams.
package textutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// readBufferSize is the chunk size used by CountNewlines.
const readBufferSize = 64 * 1024

// ErrBinary is returned by CountLines for content that looks binary.
var ErrBinary = errors.New("binary")

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines returns the number of newline-delimited lines in data.
// A non-empty buffer without a trailing newline counts the last partial line.
// Binary data yields ErrBinary.
func CountLines(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	if IsBinary(data) {
		return 0, ErrBinary
	}

	lines := bytes.Count(data, []byte{'\n'})

	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines, nil
}

// CountNewlines returns the number of '\n' bytes read from r, the way
// `wc -l` does. A final partial line is not counted.
func CountNewlines(r io.Reader) (int, error) {
	buf := make([]byte, readBufferSize)
	count := 0

	for {
		n, err := r.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})

		if errors.Is(err, io.EOF) {
			return count, nil
		}

		if err != nil {
			return 0, fmt.Errorf("count newlines: %w", err)
		}
	}
}
