// Package aggregate turns a stream of consumed-item tokens into net quantity
// deltas per item.
//
// Each token is one unit consumed, so the delta for an identifier is the
// negative of its occurrence count. Counting is order-independent and
// duplicates always combine.
package aggregate

import (
	"sort"

	"github.com/cyberscoundrel/jobbossutils/internal/failure"
)

// Result maps an item identifier to its signed net quantity delta.
type Result map[string]int64

// Aggregate counts ids into a Result.
// Returns a validation error if ids is empty; there is nothing to do.
func Aggregate(ids []string) (Result, error) {
	if len(ids) == 0 {
		return nil, failure.Validation("nothing to do: no item identifiers in input")
	}

	res := make(Result, len(ids))
	for _, id := range ids {
		res[id]--
	}
	return res, nil
}

// IDs returns the identifiers in ascending byte order.
// This is the processing order of a batch.
func (r Result) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Occurrences returns how many tokens named id.
func (r Result) Occurrences(id string) int64 {
	d := r[id]
	if d < 0 {
		return -d
	}
	return d
}

// TotalPieces returns the sum of absolute deltas, which equals the number of
// input tokens.
func (r Result) TotalPieces() int64 {
	var total int64
	for id := range r {
		total += r.Occurrences(id)
	}
	return total
}

// Net returns the sum of all deltas.
func (r Result) Net() int64 {
	var net int64
	for _, d := range r {
		net += d
	}
	return net
}
