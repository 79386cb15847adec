// Package tokens reads the line-oriented "item consumed" input.
//
// Each non-empty line that does not start with '#' is one raw item
// identifier, whitespace-trimmed and otherwise taken literally. Files
// exported from Windows tools often carry a UTF-8 byte order mark or are
// UTF-16 encoded; both are decoded transparently.
package tokens

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CommentPrefix marks a line that is ignored.
const CommentPrefix = "#"

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// Read returns the identifiers from r in input order.
// Duplicates are preserved: each occurrence is one consumed unit.
func Read(r io.Reader) ([]string, error) {
	// BOMOverride only acts when a BOM is present; other bytes pass through
	// untouched so identifiers are never re-encoded.
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))

	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var ids []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}
	return ids, nil
}

// LoadFile reads identifiers from the file at path.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	return Read(f)
}
