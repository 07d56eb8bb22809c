package store

import (
	"context"
	"errors"
	"fmt"

	"ledger-sync/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordError stores a failure for an entity. A repeated failure of the same entity replaces
// the message and increments the retry counter in one statement, so concurrent writers
// never lose an increment.
func (s *Store) RecordError(ctx context.Context, entityType domain.EntityType, sourceID, message string) error {
	now := s.clock()
	row := errorRow{
		EntityType:   string(entityType),
		SourceID:     sourceID,
		ErrorMessage: message,
		OccurredAt:   now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entity_type"}, {Name: "source_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"error_message": message,
			"occurred_at":   now,
			"retry_count":   gorm.Expr("errors.retry_count + 1"),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record error for %s %s: %w", entityType, sourceID, classify(err))
	}
	return nil
}

// ClearError removes the active failure of an entity and reports whether one existed.
func (s *Store) ClearError(ctx context.Context, entityType domain.EntityType, sourceID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("entity_type = ? AND source_id = ?", string(entityType), sourceID).
		Delete(&errorRow{})
	if res.Error != nil {
		return false, fmt.Errorf("clear error for %s %s: %w", entityType, sourceID, classify(res.Error))
	}
	return res.RowsAffected > 0, nil
}

// GetError returns the active failure of an entity, or nil.
func (s *Store) GetError(ctx context.Context, entityType domain.EntityType, sourceID string) (*domain.RetryableError, error) {
	var row errorRow
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND source_id = ?", string(entityType), sourceID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get error for %s %s: %w", entityType, sourceID, classify(err))
	}
	e := row.toDomain()
	return &e, nil
}

// RetryableErrors lists failures whose retry counter is below maxRetries, oldest first.
// An empty entityType selects every type.
func (s *Store) RetryableErrors(ctx context.Context, entityType domain.EntityType, maxRetries int) ([]domain.RetryableError, error) {
	q := s.db.WithContext(ctx).Where("retry_count < ?", maxRetries)
	if entityType != "" {
		q = q.Where("entity_type = ?", string(entityType))
	}

	var rows []errorRow
	if err := q.Order("occurred_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list retryable errors: %w", classify(err))
	}

	out := make([]domain.RetryableError, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Stats summarizes mappings, pending failures and the last successful run.
func (s *Store) Stats(ctx context.Context, maxRetries int) (*domain.Stats, error) {
	counts, err := s.CountByType(ctx)
	if err != nil {
		return nil, err
	}

	var pending, exhausted int64
	if err := s.db.WithContext(ctx).Model(&errorRow{}).Where("retry_count < ?", maxRetries).Count(&pending).Error; err != nil {
		return nil, fmt.Errorf("count pending errors: %w", classify(err))
	}
	if err := s.db.WithContext(ctx).Model(&errorRow{}).Where("retry_count >= ?", maxRetries).Count(&exhausted).Error; err != nil {
		return nil, fmt.Errorf("count exhausted errors: %w", classify(err))
	}

	stats := &domain.Stats{
		Mappings:        counts,
		PendingErrors:   pending,
		ExhaustedErrors: exhausted,
	}

	last, err := s.LastSuccessfulRun(ctx)
	if err != nil {
		return nil, err
	}
	if last != nil {
		stats.LastSuccessAt = last.CompletedAt
	}
	return stats, nil
}
