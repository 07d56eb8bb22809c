package products

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/fingerprint"
	"ledger-sync/core/reconcile"

	"go.uber.org/zap"
)

// Source is the part of the source adapter this handler reads from.
type Source interface {
	Products(ctx context.Context, since *time.Time) iter.Seq2[*domain.Product, error]
	Product(ctx context.Context, id string) (*domain.Product, error)
}

// Handler implements reconcile.Handler for products.
type Handler struct {
	source Source
	dest   domain.ItemDestination
}

// NewHandler creates a product handler.
func NewHandler(source Source, dest domain.ItemDestination) *Handler {
	return &Handler{source: source, dest: dest}
}

// EntityType implements reconcile.Handler.
func (h *Handler) EntityType() domain.EntityType {
	return domain.EntityProduct
}

// Fetch implements reconcile.Handler.
func (h *Handler) Fetch(ctx context.Context, since *time.Time) iter.Seq2[*domain.Product, error] {
	return h.source.Products(ctx, since)
}

// Get implements reconcile.Handler.
func (h *Handler) Get(ctx context.Context, id string) (*domain.Product, error) {
	return h.source.Product(ctx, id)
}

// Reconcile implements reconcile.Handler.
func (h *Handler) Reconcile(ctx context.Context, e *reconcile.Engine, p *domain.Product) (reconcile.Action, error) {
	sku := p.SKU()
	if sku == "" {
		e.Logger().Debug("Skipping product without SKU", zap.String("source_id", p.ID))
		return reconcile.ActionSkipped, nil
	}
	fp := fingerprint.Product(p)

	mapping, err := e.Mapping(ctx, p.ID)
	if err != nil {
		return "", err
	}

	if mapping != nil {
		if mapping.Fingerprint == fp {
			return reconcile.ActionSkipped, nil
		}

		current, err := h.currentItem(ctx, e, mapping.DestinationID)
		if err != nil {
			return "", err
		}
		if current != nil && current.NaturalKey != "" && current.NaturalKey != sku {
			return h.replace(ctx, e, p, current, fp)
		}

		if e.DryRun() {
			return reconcile.ActionUpdated, nil
		}
		if _, err := h.dest.UpdateItem(ctx, mapping.DestinationID, p); err != nil {
			return "", fmt.Errorf("update item %s: %w", mapping.DestinationID, err)
		}
		if err := e.Commit(ctx, domain.EntityProduct, p, mapping.DestinationID, fp); err != nil {
			return "", err
		}
		return reconcile.ActionUpdated, nil
	}

	return h.createOrLink(ctx, e, p, sku, fp)
}

// currentItem fetches the mapped item for the SKU change check. A missing item or a failed
// lookup yields nil so the caller falls back to a plain update.
func (h *Handler) currentItem(ctx context.Context, e *reconcile.Engine, id string) (*domain.Record, error) {
	rec, err := h.dest.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) {
			return nil, err
		}
		if !domain.IsNotFound(err) {
			e.Logger().Warn("Item lookup failed, skipping SKU change check",
				zap.String("destination_id", id),
				zap.Error(err),
			)
		}
		return nil, nil
	}
	return rec, nil
}

// replace archives the item of the previous SKU and maps the product to an item for the new one.
func (h *Handler) replace(ctx context.Context, e *reconcile.Engine, p *domain.Product, old *domain.Record, fp string) (reconcile.Action, error) {
	e.Logger().Info("Product SKU changed, replacing item",
		zap.String("source_id", p.ID),
		zap.String("old_sku", old.NaturalKey),
		zap.String("new_sku", p.SKU()),
		zap.String("old_item", old.ID),
	)
	if e.DryRun() {
		return reconcile.ActionCreated, nil
	}

	if old.Active {
		if err := h.dest.ArchiveItem(ctx, old.ID); err != nil {
			return "", fmt.Errorf("archive item %s: %w", old.ID, err)
		}
	}
	return h.createOrLink(ctx, e, p, p.SKU(), fp)
}

func (h *Handler) createOrLink(ctx context.Context, e *reconcile.Engine, p *domain.Product, sku, fp string) (reconcile.Action, error) {
	match, err := e.FindActive(ctx, domain.EntityProduct, sku, h.dest.FindItemByCode)
	if err != nil {
		return "", err
	}
	if match != nil {
		if e.DryRun() {
			return reconcile.ActionUpdated, nil
		}
		err := e.Link(ctx, domain.EntityProduct, p, match.ID, fp, func(ctx context.Context) error {
			_, err := h.dest.UpdateItem(ctx, match.ID, p)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("link item %s: %w", match.ID, err)
		}
		return reconcile.ActionUpdated, nil
	}

	if e.DryRun() {
		return reconcile.ActionCreated, nil
	}
	rec, err := h.dest.CreateItem(ctx, p)
	if err != nil {
		return "", fmt.Errorf("create item %s: %w", sku, err)
	}
	if err := e.Commit(ctx, domain.EntityProduct, p, rec.ID, fp); err != nil {
		return "", err
	}
	return reconcile.ActionCreated, nil
}
