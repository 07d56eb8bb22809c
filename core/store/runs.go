package store

import (
	"context"
	"errors"
	"fmt"

	"ledger-sync/core/domain"

	"gorm.io/gorm"
)

// StartRun persists a new run in the running state.
func (s *Store) StartRun(ctx context.Context, runID string, dryRun bool) (*domain.RunRecord, error) {
	row := runRow{
		RunID:     runID,
		StartedAt: s.clock(),
		Status:    string(domain.RunRunning),
		Errors:    encodeErrors(nil),
		DryRun:    dryRun,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("start run %s: %w", runID, classify(err))
	}
	rec := row.toDomain()
	return &rec, nil
}

// CompleteRun finalizes a running record. It returns ErrRunFinalized when the run was
// already completed, and gorm.ErrRecordNotFound when it never existed.
func (s *Store) CompleteRun(ctx context.Context, runID string, status domain.RunStatus, processed int, errs []string) error {
	now := s.clock()

	res := s.db.WithContext(ctx).Model(&runRow{}).
		Where("run_id = ? AND status = ?", runID, string(domain.RunRunning)).
		Updates(map[string]any{
			"completed_at":       now,
			"status":             string(status),
			"entities_processed": processed,
			"errors_json":        encodeErrors(errs),
		})
	if res.Error != nil {
		return fmt.Errorf("complete run %s: %w", runID, classify(res.Error))
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&runRow{}).Where("run_id = ?", runID).Count(&count).Error; err != nil {
		return fmt.Errorf("complete run %s: %w", runID, classify(err))
	}
	if count == 0 {
		return fmt.Errorf("complete run %s: %w", runID, gorm.ErrRecordNotFound)
	}
	return fmt.Errorf("complete run %s: %w", runID, ErrRunFinalized)
}

// GetRun returns a run by id, or nil.
func (s *Store) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	var row runRow
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, classify(err))
	}
	rec := row.toDomain()
	return &rec, nil
}

// LastSuccessfulRun returns the most recently completed successful run that was not a dry run.
func (s *Store) LastSuccessfulRun(ctx context.Context) (*domain.RunRecord, error) {
	var row runRow
	err := s.db.WithContext(ctx).
		Where("status = ? AND dry_run = ? AND completed_at IS NOT NULL", string(domain.RunSuccess), false).
		Order("completed_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last successful run: %w", classify(err))
	}
	rec := row.toDomain()
	return &rec, nil
}

// History returns the most recent runs, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("run history: %w", classify(err))
	}
	out := make([]domain.RunRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
