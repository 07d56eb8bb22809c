package orders

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/fingerprint"
	"ledger-sync/core/reconcile"

	"go.uber.org/zap"
)

// DefaultPrefix is prepended to the order number to build the invoice reference.
const DefaultPrefix = "SHOP-"

// Source is the part of the source adapter this handler reads from.
type Source interface {
	Orders(ctx context.Context, since *time.Time) iter.Seq2[*domain.Order, error]
	Order(ctx context.Context, id string) (*domain.Order, error)
}

// Destination is the part of the destination adapter orders need.
type Destination interface {
	domain.InvoiceDestination
	FindContactByEmail(ctx context.Context, email string) (*domain.Record, error)
}

// Handler implements reconcile.Handler for orders.
type Handler struct {
	source Source
	dest   Destination
	prefix string
}

// NewHandler creates an order handler. An empty prefix uses DefaultPrefix.
func NewHandler(source Source, dest Destination, prefix string) *Handler {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Handler{source: source, dest: dest, prefix: prefix}
}

// Reference returns the invoice reference of an order.
func (h *Handler) Reference(o *domain.Order) string {
	return h.prefix + strconv.FormatInt(o.OrderNumber, 10)
}

// EntityType implements reconcile.Handler.
func (h *Handler) EntityType() domain.EntityType {
	return domain.EntityOrder
}

// Fetch implements reconcile.Handler.
func (h *Handler) Fetch(ctx context.Context, since *time.Time) iter.Seq2[*domain.Order, error] {
	return h.source.Orders(ctx, since)
}

// Get implements reconcile.Handler.
func (h *Handler) Get(ctx context.Context, id string) (*domain.Order, error) {
	return h.source.Order(ctx, id)
}

// Reconcile implements reconcile.Handler.
func (h *Handler) Reconcile(ctx context.Context, e *reconcile.Engine, o *domain.Order) (reconcile.Action, error) {
	fp := fingerprint.Order(o)

	mapping, err := e.Mapping(ctx, o.ID)
	if err != nil {
		return "", err
	}

	if mapping != nil {
		if mapping.Fingerprint != fp {
			e.Logger().Debug("Order changed after invoicing, refreshing fingerprint only",
				zap.String("source_id", o.ID),
				zap.String("destination_id", mapping.DestinationID),
			)
			if err := e.Commit(ctx, domain.EntityOrder, o, mapping.DestinationID, fp); err != nil {
				return "", err
			}
		}
		return reconcile.ActionSkipped, nil
	}

	ref := h.Reference(o)
	match, err := e.FindActive(ctx, domain.EntityOrder, ref, h.dest.FindInvoiceByReference)
	if err != nil {
		return "", err
	}
	if match != nil {
		if err := e.Commit(ctx, domain.EntityOrder, o, match.ID, fp); err != nil {
			return "", err
		}
		return reconcile.ActionSkipped, nil
	}

	contactID, err := h.contact(ctx, e, o)
	if err != nil {
		return "", err
	}
	lines, err := h.lines(ctx, e, o)
	if err != nil {
		return "", err
	}

	if e.DryRun() {
		return reconcile.ActionCreated, nil
	}
	rec, err := h.dest.CreateInvoice(ctx, &domain.InvoiceDraft{
		Order:     o,
		Reference: ref,
		ContactID: contactID,
		Lines:     lines,
	})
	if err != nil {
		return "", fmt.Errorf("create invoice %s: %w", ref, err)
	}
	if err := e.Commit(ctx, domain.EntityOrder, o, rec.ID, fp); err != nil {
		return "", err
	}
	return reconcile.ActionCreated, nil
}

// contact resolves the destination contact through the customer mapping, falling back to an
// email lookup.
func (h *Handler) contact(ctx context.Context, e *reconcile.Engine, o *domain.Order) (string, error) {
	if o.CustomerID != "" {
		m, err := e.Mapping(ctx, o.CustomerID)
		if err != nil {
			return "", err
		}
		if m != nil && m.EntityType == domain.EntityCustomer {
			return m.DestinationID, nil
		}
	}

	match, err := e.FindActive(ctx, domain.EntityCustomer, o.Email, h.dest.FindContactByEmail)
	if err != nil {
		return "", err
	}
	if match != nil {
		return match.ID, nil
	}
	return "", fmt.Errorf("order %d: %w", o.OrderNumber, domain.ErrNoContact)
}

func (h *Handler) lines(ctx context.Context, e *reconcile.Engine, o *domain.Order) ([]domain.InvoiceLine, error) {
	lines := make([]domain.InvoiceLine, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		line := domain.InvoiceLine{LineItem: li}
		if li.ProductID != "" && li.SKU != "" {
			m, err := e.Mapping(ctx, li.ProductID)
			if err != nil {
				return nil, err
			}
			if m != nil && m.EntityType == domain.EntityProduct {
				line.ItemCode = li.SKU
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}
