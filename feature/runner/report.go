package runner

import (
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/reconcile"
)

// Mode tells a reconciliation run from a retry of the error queue.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeRetry Mode = "retry"
)

// Report is the outcome of one run.
type Report struct {
	RunID       string                   `json:"run_id" yaml:"run_id"`
	Mode        Mode                     `json:"mode" yaml:"mode"`
	DryRun      bool                     `json:"dry_run" yaml:"dry_run"`
	Force       bool                     `json:"force" yaml:"force"`
	Since       *time.Time               `json:"since,omitempty" yaml:"since,omitempty"`
	StartedAt   time.Time                `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time                `json:"completed_at" yaml:"completed_at"`
	Status      domain.RunStatus         `json:"status" yaml:"status"`
	Phases      []*reconcile.PhaseResult `json:"phases" yaml:"phases"`
	// Errors is what the run history stores: every phase error, or only the cause of an
	// aborted run.
	Errors []string `json:"errors" yaml:"errors"`
}

// Processed returns the number of entities handled across phases.
func (r *Report) Processed() int {
	n := 0
	for _, p := range r.Phases {
		n += p.Processed()
	}
	return n
}

// Phase returns the result of one entity type, or nil.
func (r *Report) Phase(et domain.EntityType) *reconcile.PhaseResult {
	for _, p := range r.Phases {
		if p.EntityType == et {
			return p
		}
	}
	return nil
}

// HasErrors reports whether any phase recorded an error.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

func (r *Report) phaseErrors() []string {
	errs := []string{}
	for _, p := range r.Phases {
		errs = append(errs, p.Errors...)
	}
	return errs
}

func (r *Report) metricMode() string {
	if r.DryRun {
		return string(r.Mode) + "_dry_run"
	}
	return string(r.Mode)
}
