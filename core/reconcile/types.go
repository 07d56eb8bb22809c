package reconcile

import (
	"time"

	"ledger-sync/core/domain"
)

// Action is the outcome recorded for one entity.
type Action string

const (
	// ActionCreated means a new destination record was created.
	ActionCreated Action = "created"
	// ActionUpdated means an existing destination record was updated or linked.
	ActionUpdated Action = "updated"
	// ActionSkipped means nothing was pushed to the destination.
	ActionSkipped Action = "skipped"
)

// Options controls a run of the engine.
type Options struct {
	// DryRun reports the actions that would be taken without any remote mutation or store write.
	DryRun bool
}

// EntityAction is the action taken for one source entity.
type EntityAction struct {
	SourceID string `json:"source_id" yaml:"source_id"`
	Action   Action `json:"action" yaml:"action"`
}

// PhaseResult accumulates the outcome of one entity-type phase.
type PhaseResult struct {
	EntityType domain.EntityType `json:"entity_type" yaml:"entity_type"`
	Created    int               `json:"created" yaml:"created"`
	Updated    int               `json:"updated" yaml:"updated"`
	Skipped    int               `json:"skipped" yaml:"skipped"`
	// Failures counts entities whose sync failed.
	Failures int `json:"failures" yaml:"failures"`
	// Failed is set when the phase could not fetch its entities.
	Failed   bool           `json:"failed" yaml:"failed"`
	Errors   []string       `json:"errors" yaml:"errors"`
	Actions  []EntityAction `json:"-" yaml:"-"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
}

// NewPhaseResult creates an empty result for an entity type.
func NewPhaseResult(et domain.EntityType) *PhaseResult {
	return &PhaseResult{EntityType: et, Errors: []string{}}
}

// Record counts an action for a source entity.
func (r *PhaseResult) Record(sourceID string, action Action) {
	switch action {
	case ActionCreated:
		r.Created++
	case ActionUpdated:
		r.Updated++
	default:
		r.Skipped++
	}
	r.Actions = append(r.Actions, EntityAction{SourceID: sourceID, Action: action})
}

// Fail records a per-entity failure.
func (r *PhaseResult) Fail(message string) {
	r.Failures++
	r.Errors = append(r.Errors, message)
}

// Processed returns the number of entities the phase handled, successful or not.
func (r *PhaseResult) Processed() int {
	return r.Created + r.Updated + r.Skipped + r.Failures
}

// HasErrors reports whether the phase recorded any error.
func (r *PhaseResult) HasErrors() bool {
	return len(r.Errors) > 0
}
