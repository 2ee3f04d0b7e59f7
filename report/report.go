// Package report aggregates findings from every pipeline stage into one
// run report. All checks run to completion; the report is the single
// place that decides the process exit contract.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a finding per the pipeline error taxonomy.
type Kind string

// Finding kinds. Parse and structural problems are intrinsic to a file;
// content violations come from registry-driven checks; network and drift
// findings come from the external checks.
const (
	KindParse      Kind = "parse"
	KindStructural Kind = "structural"
	KindContent    Kind = "content"
	KindNetwork    Kind = "network"
	KindDrift      Kind = "drift"
)

// Finding is one file-qualified violation.
type Finding struct {
	Kind    Kind   `json:"kind"`
	Check   string `json:"check"`
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	if f.File != "" {
		return fmt.Sprintf("[%s/%s] %s: %s", f.Kind, f.Check, f.File, f.Message)
	}
	return fmt.Sprintf("[%s/%s] %s", f.Kind, f.Check, f.Message)
}

// Report collects findings across a single batch run.
type Report struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Findings []Finding `json:"findings,omitempty"`
}

// New creates an empty report with a fresh run ID.
func New() *Report {
	return &Report{
		RunID:   uuid.New().String(),
		Started: time.Now(),
	}
}

// Add appends findings to the report.
func (r *Report) Add(findings ...Finding) {
	r.Findings = append(r.Findings, findings...)
}

// Failed reports whether any finding was collected. The process exits
// non-zero iff this is true.
func (r *Report) Failed() bool {
	return len(r.Findings) > 0
}

// CountByKind tallies findings per taxonomy kind.
func (r *Report) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, f := range r.Findings {
		counts[f.Kind]++
	}
	return counts
}

// Write enumerates every finding as a flat, file-qualified list,
// followed by a summary line. Ordering is deterministic: kind, then
// file, then message.
func (r *Report) Write(w io.Writer) {
	findings := make([]Finding, len(r.Findings))
	copy(findings, r.Findings)
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Kind != findings[j].Kind {
			return findings[i].Kind < findings[j].Kind
		}
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		return findings[i].Message < findings[j].Message
	})

	for _, f := range findings {
		fmt.Fprintln(w, f.String())
	}

	if len(findings) == 0 {
		fmt.Fprintf(w, "run %s: all checks passed\n", r.RunID)
		return
	}
	fmt.Fprintf(w, "run %s: %d finding(s)", r.RunID, len(findings))
	counts := r.CountByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, " %s=%d", k, counts[Kind(k)])
	}
	fmt.Fprintln(w)
}
