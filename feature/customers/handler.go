package customers

import (
	"context"
	"fmt"
	"iter"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/fingerprint"
	"ledger-sync/core/reconcile"
)

// Source is the part of the source adapter this handler reads from.
type Source interface {
	Customers(ctx context.Context, since *time.Time) iter.Seq2[*domain.Customer, error]
	Customer(ctx context.Context, id string) (*domain.Customer, error)
}

// Handler implements reconcile.Handler for customers.
type Handler struct {
	source Source
	dest   domain.ContactDestination
}

// NewHandler creates a customer handler.
func NewHandler(source Source, dest domain.ContactDestination) *Handler {
	return &Handler{source: source, dest: dest}
}

// EntityType implements reconcile.Handler.
func (h *Handler) EntityType() domain.EntityType {
	return domain.EntityCustomer
}

// Fetch implements reconcile.Handler.
func (h *Handler) Fetch(ctx context.Context, since *time.Time) iter.Seq2[*domain.Customer, error] {
	return h.source.Customers(ctx, since)
}

// Get implements reconcile.Handler.
func (h *Handler) Get(ctx context.Context, id string) (*domain.Customer, error) {
	return h.source.Customer(ctx, id)
}

// Reconcile implements reconcile.Handler.
func (h *Handler) Reconcile(ctx context.Context, e *reconcile.Engine, c *domain.Customer) (reconcile.Action, error) {
	fp := fingerprint.Customer(c)

	mapping, err := e.Mapping(ctx, c.ID)
	if err != nil {
		return "", err
	}

	if mapping != nil {
		if mapping.Fingerprint == fp {
			return reconcile.ActionSkipped, nil
		}
		if e.DryRun() {
			return reconcile.ActionUpdated, nil
		}
		if _, err := h.dest.UpdateContact(ctx, mapping.DestinationID, c); err != nil {
			return "", fmt.Errorf("update contact %s: %w", mapping.DestinationID, err)
		}
		if err := e.Commit(ctx, domain.EntityCustomer, c, mapping.DestinationID, fp); err != nil {
			return "", err
		}
		return reconcile.ActionUpdated, nil
	}

	match, err := e.FindActive(ctx, domain.EntityCustomer, c.Email, h.dest.FindContactByEmail)
	if err != nil {
		return "", err
	}
	if match != nil {
		if e.DryRun() {
			return reconcile.ActionUpdated, nil
		}
		err := e.Link(ctx, domain.EntityCustomer, c, match.ID, fp, func(ctx context.Context) error {
			_, err := h.dest.UpdateContact(ctx, match.ID, c)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("link contact %s: %w", match.ID, err)
		}
		return reconcile.ActionUpdated, nil
	}

	if e.DryRun() {
		return reconcile.ActionCreated, nil
	}
	rec, err := h.dest.CreateContact(ctx, c)
	if err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	if err := e.Commit(ctx, domain.EntityCustomer, c, rec.ID, fp); err != nil {
		return "", err
	}
	return reconcile.ActionCreated, nil
}
