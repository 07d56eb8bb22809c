package domain

import (
	"context"
	"iter"
	"time"
)

// Source is the commerce system entities are read from.
//
// The fetch methods return finite lazy sequences. Ranging over a sequence again restarts
// pagination from the beginning. A nil since means all time.
type Source interface {
	CheckConnection(ctx context.Context) error
	Customers(ctx context.Context, since *time.Time) iter.Seq2[*Customer, error]
	Products(ctx context.Context, since *time.Time) iter.Seq2[*Product, error]
	Orders(ctx context.Context, since *time.Time) iter.Seq2[*Order, error]
	// Customer, Product and Order return ErrNotFound when the entity no longer exists.
	Customer(ctx context.Context, id string) (*Customer, error)
	Product(ctx context.Context, id string) (*Product, error)
	Order(ctx context.Context, id string) (*Order, error)
}

// ConsentUpdater toggles the email marketing consent of a source customer.
type ConsentUpdater interface {
	UpdateEmailMarketing(ctx context.Context, customerID string, subscribed bool) error
}

// ConcurrentWriter is implemented by sources whose write budget allows parallel updates.
type ConcurrentWriter interface {
	ConcurrentWrites() bool
}

// ContactDestination manages destination contacts.
type ContactDestination interface {
	// FindContactByEmail returns nil when no contact matches.
	FindContactByEmail(ctx context.Context, email string) (*Record, error)
	CreateContact(ctx context.Context, c *Customer) (*Record, error)
	UpdateContact(ctx context.Context, id string, c *Customer) (*Record, error)
}

// ItemDestination manages destination inventory items.
type ItemDestination interface {
	// FindItemByCode returns nil when no item matches.
	FindItemByCode(ctx context.Context, code string) (*Record, error)
	// GetItem returns nil when the item does not exist.
	GetItem(ctx context.Context, id string) (*Record, error)
	CreateItem(ctx context.Context, p *Product) (*Record, error)
	UpdateItem(ctx context.Context, id string, p *Product) (*Record, error)
	// ArchiveItem marks the item inactive and prefixes its name.
	ArchiveItem(ctx context.Context, id string) error
}

// InvoiceDestination manages destination invoices.
type InvoiceDestination interface {
	// FindInvoiceByReference returns nil when no invoice matches.
	FindInvoiceByReference(ctx context.Context, reference string) (*Record, error)
	CreateInvoice(ctx context.Context, draft *InvoiceDraft) (*Record, error)
}

// Destination is the accounting system entities are written to.
type Destination interface {
	CheckConnection(ctx context.Context) error
	ContactDestination
	ItemDestination
	InvoiceDestination
}
