package store

import (
	"context"
	"errors"
	"fmt"

	"ledger-sync/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Get returns the mapping for a source id, or nil when none exists.
func (s *Store) Get(ctx context.Context, sourceID string) (*domain.Mapping, error) {
	var row mappingRow
	err := s.db.WithContext(ctx).Where("source_id = ?", sourceID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping %s: %w", sourceID, classify(err))
	}
	m := row.toDomain()
	return &m, nil
}

// GetByDestinationID returns the first mapping pointing at a destination id, or nil.
func (s *Store) GetByDestinationID(ctx context.Context, destinationID string) (*domain.Mapping, error) {
	var row mappingRow
	err := s.db.WithContext(ctx).
		Where("destination_id = ?", destinationID).
		Order("source_id").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping by destination %s: %w", destinationID, classify(err))
	}
	m := row.toDomain()
	return &m, nil
}

// ListAll returns every mapping, optionally restricted to one entity type ("" means all).
func (s *Store) ListAll(ctx context.Context, entityType domain.EntityType) ([]domain.Mapping, error) {
	q := s.db.WithContext(ctx).Order("entity_type, source_id")
	if entityType != "" {
		q = q.Where("entity_type = ?", string(entityType))
	}

	var rows []mappingRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list mappings: %w", classify(err))
	}

	out := make([]domain.Mapping, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Upsert inserts the mapping or replaces the row with the same source id.
func (s *Store) Upsert(ctx context.Context, m domain.Mapping) error {
	if m.SourceID == "" {
		return errors.New("upsert mapping: empty source id")
	}
	row := mappingFromDomain(m)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"destination_id", "entity_type", "last_synced_at", "source_updated_at", "fingerprint",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert mapping %s: %w", m.SourceID, classify(err))
	}
	return nil
}

// Delete removes a mapping and reports whether a row existed.
func (s *Store) Delete(ctx context.Context, sourceID string) (bool, error) {
	res := s.db.WithContext(ctx).Where("source_id = ?", sourceID).Delete(&mappingRow{})
	if res.Error != nil {
		return false, fmt.Errorf("delete mapping %s: %w", sourceID, classify(res.Error))
	}
	return res.RowsAffected > 0, nil
}

// CountByType returns the number of mappings per entity type.
func (s *Store) CountByType(ctx context.Context) (map[domain.EntityType]int64, error) {
	type count struct {
		EntityType string
		Total      int64
	}
	var counts []count
	err := s.db.WithContext(ctx).Model(&mappingRow{}).
		Select("entity_type, COUNT(*) AS total").
		Group("entity_type").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count mappings: %w", classify(err))
	}

	out := make(map[domain.EntityType]int64, len(domain.EntityTypes))
	for _, et := range domain.EntityTypes {
		out[et] = 0
	}
	for _, c := range counts {
		out[domain.EntityType(c.EntityType)] = c.Total
	}
	return out, nil
}
