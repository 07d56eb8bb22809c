package domain

import "time"

// Mapping links one source entity to its destination record.
type Mapping struct {
	SourceID        string     `json:"source_id" yaml:"source_id"`
	DestinationID   string     `json:"destination_id" yaml:"destination_id"`
	EntityType      EntityType `json:"entity_type" yaml:"entity_type"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty" yaml:"last_synced_at,omitempty"`
	SourceUpdatedAt *time.Time `json:"source_updated_at,omitempty" yaml:"source_updated_at,omitempty"`
	// Fingerprint is empty until the first successful push.
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
}

// RunStatus is the lifecycle state of a RunRecord.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// RunRecord is one orchestrator invocation.
type RunRecord struct {
	RunID             string     `json:"run_id" yaml:"run_id"`
	StartedAt         time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Status            RunStatus  `json:"status" yaml:"status"`
	EntitiesProcessed int        `json:"entities_processed" yaml:"entities_processed"`
	Errors            []string   `json:"errors" yaml:"errors"`
	DryRun            bool       `json:"dry_run" yaml:"dry_run"`
}

// RetryableError is the active failure for one entity.
type RetryableError struct {
	ID           uint
	EntityType   EntityType
	SourceID     string
	ErrorMessage string
	OccurredAt   time.Time
	RetryCount   int
}

// Stats summarizes the store without touching either remote system.
type Stats struct {
	Mappings        map[EntityType]int64 `json:"mappings" yaml:"mappings"`
	PendingErrors   int64                `json:"pending_errors" yaml:"pending_errors"`
	ExhaustedErrors int64                `json:"exhausted_errors" yaml:"exhausted_errors"`
	LastSuccessAt   *time.Time           `json:"last_success_at,omitempty" yaml:"last_success_at,omitempty"`
}

// TotalMappings sums the per-type mapping counts.
func (s *Stats) TotalMappings() int64 {
	var total int64
	for _, n := range s.Mappings {
		total += n
	}
	return total
}

// Record is an entity as seen by the destination.
type Record struct {
	ID string
	// NaturalKey is the email, item code or invoice reference.
	NaturalKey string
	Name       string
	Status     string
	Active     bool
}

// InvoiceLine is an order line with its destination item code resolved.
type InvoiceLine struct {
	LineItem
	// ItemCode is set only when the product is already mapped.
	ItemCode string
}

// InvoiceDraft is everything the destination needs to create an invoice.
type InvoiceDraft struct {
	Order     *Order
	Reference string
	ContactID string
	Lines     []InvoiceLine
}
