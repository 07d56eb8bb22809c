package reconcile

import (
	"context"
	"errors"

	"ledger-sync/core/domain"

	"go.uber.org/zap"
)

// LookupFunc searches the destination by natural key.
type LookupFunc func(ctx context.Context, key string) (*domain.Record, error)

// FindActive looks for an active destination record with the given natural key.
//
// An empty key skips the lookup. Lookup failures fall through to "no match" so the caller
// creates the record, except authentication failures which are returned. Archived or
// otherwise inactive matches are ignored.
func (e *Engine) FindActive(ctx context.Context, et domain.EntityType, key string, find LookupFunc) (*domain.Record, error) {
	if key == "" {
		return nil, nil
	}

	rec, err := find(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) {
			return nil, err
		}
		if !domain.IsNotFound(err) {
			e.logger.Warn("Duplicate lookup failed, falling back to create",
				zap.String("entity_type", string(et)),
				zap.String("natural_key", key),
				zap.Error(err),
			)
		}
		return nil, nil
	}
	if rec == nil {
		return nil, nil
	}
	if !rec.Active {
		e.logger.Info("Ignoring inactive destination match",
			zap.String("entity_type", string(et)),
			zap.String("natural_key", key),
			zap.String("destination_id", rec.ID),
			zap.String("status", rec.Status),
		)
		return nil, nil
	}
	return rec, nil
}
