// Package audit implements the two-phase workflow's review package.
//
// Generation renders one query document and one update document per item into
// a directory, with the session ID and concurrency token left as placeholders,
// and writes manifest.json describing every intended change. Execution loads
// the manifest, checks each document against it, and serves the documents to
// the update executor with the placeholders filled in. Execution never
// rewrites the package.
package audit

import (
	"time"

	"github.com/cyberscoundrel/jobbossutils/internal/aggregate"
	"github.com/cyberscoundrel/jobbossutils/internal/update"
)

// ManifestFile is the manifest's file name inside a package directory.
const ManifestFile = "manifest.json"

// Manifest is the persisted description of one generated batch.
type Manifest struct {
	BatchID        string    `json:"batch_id"`
	GeneratedAt    time.Time `json:"generated_at"`
	ReasonID       string    `json:"reason_id"`
	TotalMaterials int       `json:"total_materials"`
	TotalPieces    int64     `json:"total_pieces"`
	Materials      []Entry   `json:"materials"`
	InputIDs       []string  `json:"input_ids"`
}

// Entry describes the change for one material and where its documents live.
// File names are relative to the manifest's directory.
type Entry struct {
	MaterialID     string `json:"material_id"`
	QuantityChange int64  `json:"quantity_change"`
	Occurrences    int64  `json:"occurrences"`
	QueryFile      string `json:"query_file"`
	UpdateFile     string `json:"update_file"`
}

// Result rebuilds the aggregation result the manifest was generated from.
func (m *Manifest) Result() aggregate.Result {
	res := make(aggregate.Result, len(m.Materials))
	for _, e := range m.Materials {
		res[e.MaterialID] = e.QuantityChange
	}
	return res
}

// Items returns the manifest's changes in processing order.
func (m *Manifest) Items() []update.Item {
	return update.ItemsFrom(m.Result())
}
