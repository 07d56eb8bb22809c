package store

import (
	"encoding/json"
	"time"

	"ledger-sync/core/domain"

	"gorm.io/datatypes"
)

type mappingRow struct {
	SourceID        string     `gorm:"column:source_id;primaryKey;size:64"`
	DestinationID   string     `gorm:"column:destination_id;size:64;not null;index:idx_mappings_destination_id"`
	EntityType      string     `gorm:"column:entity_type;size:16;not null;index:idx_mappings_entity_type"`
	LastSyncedAt    *time.Time `gorm:"column:last_synced_at"`
	SourceUpdatedAt *time.Time `gorm:"column:source_updated_at"`
	Fingerprint     *string    `gorm:"column:fingerprint;size:64"`
}

func (mappingRow) TableName() string { return "mappings" }

func (r mappingRow) toDomain() domain.Mapping {
	m := domain.Mapping{
		SourceID:        r.SourceID,
		DestinationID:   r.DestinationID,
		EntityType:      domain.EntityType(r.EntityType),
		LastSyncedAt:    r.LastSyncedAt,
		SourceUpdatedAt: r.SourceUpdatedAt,
	}
	if r.Fingerprint != nil {
		m.Fingerprint = *r.Fingerprint
	}
	return m
}

func mappingFromDomain(m domain.Mapping) mappingRow {
	r := mappingRow{
		SourceID:        m.SourceID,
		DestinationID:   m.DestinationID,
		EntityType:      string(m.EntityType),
		LastSyncedAt:    utc(m.LastSyncedAt),
		SourceUpdatedAt: utc(m.SourceUpdatedAt),
	}
	if m.Fingerprint != "" {
		fp := m.Fingerprint
		r.Fingerprint = &fp
	}
	return r
}

type runRow struct {
	RunID             string         `gorm:"column:run_id;primaryKey;size:64"`
	StartedAt         time.Time      `gorm:"column:started_at;not null;index:idx_run_history_started_at,sort:desc"`
	CompletedAt       *time.Time     `gorm:"column:completed_at"`
	Status            string         `gorm:"column:status;size:16;not null"`
	EntitiesProcessed int            `gorm:"column:entities_processed;not null;default:0"`
	Errors            datatypes.JSON `gorm:"column:errors_json"`
	DryRun            bool           `gorm:"column:dry_run;not null;default:false"`
}

func (runRow) TableName() string { return "run_history" }

func (r runRow) toDomain() domain.RunRecord {
	errs := decodeErrors(r.Errors)
	return domain.RunRecord{
		RunID:             r.RunID,
		StartedAt:         r.StartedAt,
		CompletedAt:       r.CompletedAt,
		Status:            domain.RunStatus(r.Status),
		EntitiesProcessed: r.EntitiesProcessed,
		Errors:            errs,
		DryRun:            r.DryRun,
	}
}

type errorRow struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	EntityType   string    `gorm:"column:entity_type;size:16;not null;uniqueIndex:idx_errors_entity"`
	SourceID     string    `gorm:"column:source_id;size:64;not null;uniqueIndex:idx_errors_entity"`
	ErrorMessage string    `gorm:"column:error_message;type:text"`
	OccurredAt   time.Time `gorm:"column:occurred_at;not null"`
	RetryCount   int       `gorm:"column:retry_count;not null;default:0"`
}

func (errorRow) TableName() string { return "errors" }

func (r errorRow) toDomain() domain.RetryableError {
	return domain.RetryableError{
		ID:           r.ID,
		EntityType:   domain.EntityType(r.EntityType),
		SourceID:     r.SourceID,
		ErrorMessage: r.ErrorMessage,
		OccurredAt:   r.OccurredAt,
		RetryCount:   r.RetryCount,
	}
}

func encodeErrors(errs []string) datatypes.JSON {
	if len(errs) == 0 {
		return datatypes.JSON("[]")
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}

func decodeErrors(raw datatypes.JSON) []string {
	errs := []string{}
	if len(raw) == 0 {
		return errs
	}
	if err := json.Unmarshal(raw, &errs); err != nil || errs == nil {
		return []string{}
	}
	return errs
}

// Schema lists the columns each table must expose.
var Schema = map[string][]string{
	"mappings":    {"source_id", "destination_id", "entity_type", "last_synced_at", "source_updated_at", "fingerprint"},
	"run_history": {"run_id", "started_at", "completed_at", "status", "entities_processed", "errors_json", "dry_run"},
	"errors":      {"id", "entity_type", "source_id", "error_message", "occurred_at", "retry_count"},
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
