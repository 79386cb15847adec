package tokens

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_SkipsBlankAndComments(t *testing.T) {
	input := "# header\nMAT-001\n\n  MAT-001  \n\t\nMAT-002\n   # indented comment\nMAT-001\n"

	ids, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"MAT-001", "MAT-001", "MAT-002", "MAT-001"}, ids)
}

func TestRead_TakesIdentifiersLiterally(t *testing.T) {
	ids, err := Read(strings.NewReader("mat-001\nMAT-001\nMAT 001\nMAT#1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mat-001", "MAT-001", "MAT 001", "MAT#1"}, ids)
}

func TestRead_CRLF(t *testing.T) {
	ids, err := Read(strings.NewReader("A\r\nB\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids)
}

func TestRead_UTF8BOM(t *testing.T) {
	ids, err := Read(strings.NewReader("\xef\xbb\xbfMAT-001\nMAT-002\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"MAT-001", "MAT-002"}, ids)
}

func TestRead_UTF16LE(t *testing.T) {
	// "A1\r\nB2\r\n" in UTF-16LE with BOM
	data := []byte{0xff, 0xfe, 'A', 0, '1', 0, '\r', 0, '\n', 0, 'B', 0, '2', 0, '\r', 0, '\n', 0}

	ids, err := Read(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, ids)
}

func TestRead_Empty(t *testing.T) {
	ids, err := Read(strings.NewReader("# only comments\n\n"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "used.txt")
	require.NoError(t, os.WriteFile(path, []byte("X\nY\nX\n"), 0644))

	ids, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y", "X"}, ids)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input")
}
