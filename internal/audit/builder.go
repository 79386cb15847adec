package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cyberscoundrel/jobbossutils/internal/aggregate"
	"github.com/cyberscoundrel/jobbossutils/internal/jbxml"
	"github.com/cyberscoundrel/jobbossutils/internal/update"
)

// ErrManifestExists is returned when the target directory already holds a
// manifest. Packages are never merged or overwritten.
var ErrManifestExists = errors.New("manifest already exists")

// Clock provides the generation timestamp.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock sets the clock used for generated_at.
func WithClock(c Clock) BuilderOption {
	return func(b *Builder) { b.clock = c }
}

// WithBatchIDs sets the batch ID generator.
func WithBatchIDs(g update.RunIDGenerator) BuilderOption {
	return func(b *Builder) { b.batchIDs = g }
}

// Builder writes review packages.
type Builder struct {
	clock    Clock
	batchIDs update.RunIDGenerator
}

// NewBuilder creates a builder using the system clock and UUIDv7 batch IDs.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		clock:    systemClock{},
		batchIDs: update.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders the documents for res into dir and writes the manifest last.
// inputIDs is the untouched token list, recorded for traceability.
//
// dir is created if needed. Build fails with ErrManifestExists if dir already
// holds a manifest.
func (b *Builder) Build(dir, reasonID string, res aggregate.Result, inputIDs []string) (*Manifest, error) {
	if len(res) == 0 {
		return nil, fmt.Errorf("build package: no materials")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("build package: %w", err)
	}

	manifestPath := filepath.Join(dir, ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		return nil, fmt.Errorf("build package: %w: %s", ErrManifestExists, manifestPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("build package: %w", err)
	}

	m := &Manifest{
		BatchID:        b.batchIDs.Generate(),
		GeneratedAt:    b.clock.Now(),
		ReasonID:       reasonID,
		TotalMaterials: len(res),
		TotalPieces:    res.TotalPieces(),
		InputIDs:       append([]string{}, inputIDs...),
	}

	names := newNameSet()
	for _, id := range res.IDs() {
		safe := names.claim(SafeName(id))
		e := Entry{
			MaterialID:     id,
			QuantityChange: res[id],
			Occurrences:    res.Occurrences(id),
			QueryFile:      "query_" + safe + ".xml",
			UpdateFile:     "update_" + safe + ".xml",
		}
		if err := os.WriteFile(filepath.Join(dir, e.QueryFile), jbxml.QueryTemplate(id), 0o644); err != nil {
			return nil, fmt.Errorf("build package: write query for %s: %w", id, err)
		}
		if err := os.WriteFile(filepath.Join(dir, e.UpdateFile), jbxml.UpdateTemplate(id, e.QuantityChange, reasonID), 0o644); err != nil {
			return nil, fmt.Errorf("build package: write update for %s: %w", id, err)
		}
		m.Materials = append(m.Materials, e)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("build package: encode manifest: %w", err)
	}
	if err := writeFileAtomic(manifestPath, append(data, '\n')); err != nil {
		return nil, fmt.Errorf("build package: %w", err)
	}
	return m, nil
}

// SafeName maps an identifier to a file-name fragment: every rune that is not
// a letter, a digit, '-' or '_' becomes '_'.
func SafeName(id string) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, id)
	if safe == "" {
		return "_"
	}
	return safe
}

// nameSet hands out unique safe names. Names are compared case-insensitively
// so packages survive case-insensitive file systems.
type nameSet map[string]bool

func newNameSet() nameSet { return make(nameSet) }

func (s nameSet) claim(name string) string {
	candidate := name
	for n := 2; s[strings.ToLower(candidate)]; n++ {
		candidate = name + "_" + strconv.Itoa(n)
	}
	s[strings.ToLower(candidate)] = true
	return candidate
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
