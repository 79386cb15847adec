// Package report turns executor results into the process outcome: counts, the
// net quantity actually applied, and an enumerated failure list.
package report

import (
	"fmt"
	"io"

	"github.com/cyberscoundrel/jobbossutils/internal/failure"
	"github.com/cyberscoundrel/jobbossutils/internal/update"
)

// Applied is one item that was changed.
type Applied struct {
	ID          string `json:"id"`
	Quantity    int64  `json:"quantity"`
	OnHand      string `json:"on_hand,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// Failed is one item that was not changed.
type Failed struct {
	ID       string       `json:"id"`
	Quantity int64        `json:"quantity"`
	Kind     failure.Code `json:"kind"`
	Reason   string       `json:"reason"`
}

// Fatal describes a precondition that aborted the batch.
type Fatal struct {
	Kind    failure.Code `json:"kind"`
	Message string       `json:"message"`
}

// Summary is the machine-parseable outcome of one run.
type Summary struct {
	RunID      string        `json:"run_id"`
	DryRun     bool          `json:"dry_run"`
	Planned    []update.Item `json:"planned"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	NetApplied int64         `json:"net_applied"`
	Successes  []Applied     `json:"successes"`
	Failures   []Failed      `json:"failures"`
	Fatal      *Fatal        `json:"fatal,omitempty"`
}

// Summarize partitions res and computes the net delta of successes only.
// runErr is the error returned alongside res by the executor; res may be nil
// if the run never started.
func Summarize(res *update.Result, runErr error) *Summary {
	s := &Summary{
		Successes: []Applied{},
		Failures:  []Failed{},
	}

	if res != nil {
		s.RunID = res.RunID
		s.DryRun = res.DryRun
		s.Planned = res.Planned

		for _, o := range res.Successes {
			a := Applied{ID: o.ID, Quantity: o.Delta, LastUpdated: o.LastUpdated}
			if o.OnHand != nil {
				a.OnHand = o.OnHand.String()
			}
			s.Successes = append(s.Successes, a)
			s.NetApplied += o.Delta
		}
		for _, o := range res.Failures {
			s.Failures = append(s.Failures, Failed{
				ID:       o.ID,
				Quantity: o.Delta,
				Kind:     o.Err.Code,
				Reason:   o.Err.Reason(),
			})
		}
	}
	s.Succeeded = len(s.Successes)
	s.Failed = len(s.Failures)

	if runErr != nil {
		s.Fatal = &Fatal{Kind: failure.CodeOf(runErr), Message: runErr.Error()}
		if s.Fatal.Kind == "" {
			s.Fatal.Kind = failure.CodeTransport
		}
	}
	return s
}

// OK reports whether the run succeeded as a whole: no fatal error and no
// failed item. A partially applied batch is not OK.
func (s *Summary) OK() bool {
	return s.Fatal == nil && s.Failed == 0
}

// WritePlan renders the planned changes.
func WritePlan(w io.Writer, items []update.Item) {
	var net int64
	fmt.Fprintf(w, "Planned changes (%d material(s)):\n", len(items))
	for _, item := range items {
		fmt.Fprintf(w, "  %s: %+d\n", item.ID, item.Delta)
		net += item.Delta
	}
	fmt.Fprintf(w, "Net change: %+d\n", net)
}

// WriteText renders the human-readable summary.
func (s *Summary) WriteText(w io.Writer) {
	if s.Fatal != nil {
		fmt.Fprintf(w, "Batch aborted [%s]: %s\n", s.Fatal.Kind, s.Fatal.Message)
		return
	}
	if s.DryRun {
		fmt.Fprintln(w, "Dry run: no changes made.")
		return
	}

	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Succeeded: %d\n", s.Succeeded)
	fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "  Total adjusted: %+d\n", s.NetApplied)

	if len(s.Failures) > 0 {
		fmt.Fprintln(w, "Failures:")
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.ID, f.Reason)
		}
	}
}
