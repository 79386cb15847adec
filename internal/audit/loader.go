package audit

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cyberscoundrel/jobbossutils/internal/failure"
	"github.com/cyberscoundrel/jobbossutils/internal/jbxml"
	"github.com/cyberscoundrel/jobbossutils/internal/update"
)

// Package is a loaded, validated review package.
// It implements update.Documents by filling the persisted templates.
type Package struct {
	Manifest *Manifest
	Dir      string

	queries map[string][]byte
	updates map[string][]byte
}

var _ update.Documents = (*Package)(nil)

// Load reads the manifest at path and validates every referenced document:
// it must exist next to the manifest, parse as a request of the right kind,
// and name the same identifier and quantity as its manifest entry.
// Any mismatch is a VALIDATION error; nothing is executed from a package that
// fails to load.
func Load(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Validation("read manifest: %v", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, failure.Validation("decode manifest %s: %v", path, err)
	}
	if len(m.Materials) == 0 {
		return nil, failure.Validation("manifest %s lists no materials", path)
	}

	p := &Package{
		Manifest: &m,
		Dir:      filepath.Dir(path),
		queries:  make(map[string][]byte, len(m.Materials)),
		updates:  make(map[string][]byte, len(m.Materials)),
	}

	for _, e := range m.Materials {
		if e.MaterialID == "" {
			return nil, failure.Validation("manifest entry without material_id")
		}
		if _, dup := p.queries[e.MaterialID]; dup {
			return nil, failure.Validation("manifest lists %q twice", e.MaterialID)
		}

		query, err := p.readDocument(e.QueryFile, e, jbxml.KindQuery)
		if err != nil {
			return nil, err
		}
		upd, err := p.readDocument(e.UpdateFile, e, jbxml.KindUpdate)
		if err != nil {
			return nil, err
		}
		p.queries[e.MaterialID] = query
		p.updates[e.MaterialID] = upd
	}
	return p, nil
}

func (p *Package) readDocument(name string, e Entry, kind jbxml.RequestKind) ([]byte, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, failure.Validation("%s: invalid document reference %q", e.MaterialID, name)
	}

	data, err := os.ReadFile(filepath.Join(p.Dir, name))
	if err != nil {
		return nil, failure.Validation("%s: %v", e.MaterialID, err)
	}

	req, err := jbxml.ParseRequest(data)
	if err != nil {
		return nil, failure.Validation("%s: %s: %v", e.MaterialID, name, err)
	}
	if req.Kind != kind {
		return nil, failure.Validation("%s: %s holds %s, want %s", e.MaterialID, name, req.Kind, kind)
	}
	if req.ID != e.MaterialID {
		return nil, failure.Validation("%s: %s names %q", e.MaterialID, name, req.ID)
	}
	if kind == jbxml.KindUpdate && req.Quantity != e.QuantityChange {
		return nil, failure.Validation("%s: %s quantity %d, manifest says %d",
			e.MaterialID, name, req.Quantity, e.QuantityChange)
	}
	return data, nil
}

// Items returns the package's changes in processing order.
func (p *Package) Items() []update.Item {
	return p.Manifest.Items()
}

// QueryDocument implements update.Documents.
func (p *Package) QueryDocument(sessionID, itemID string) []byte {
	return jbxml.Fill(p.queries[itemID], sessionID, "")
}

// UpdateDocument implements update.Documents.
// quantity is fixed by the persisted document, which Load checked against the
// manifest.
func (p *Package) UpdateDocument(sessionID, itemID, lastUpdated string, _ int64) []byte {
	return jbxml.Fill(p.updates[itemID], sessionID, lastUpdated)
}
