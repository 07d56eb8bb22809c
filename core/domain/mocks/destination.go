package mocks

import (
	"context"

	"ledger-sync/core/domain"

	"github.com/stretchr/testify/mock"
)

// Destination is a mock implementation of domain.Destination
type Destination struct {
	mock.Mock
}

func record(args mock.Arguments) (*domain.Record, error) {
	if rec, ok := args.Get(0).(*domain.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Destination) CheckConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Destination) FindContactByEmail(ctx context.Context, email string) (*domain.Record, error) {
	return record(m.Called(ctx, email))
}

func (m *Destination) CreateContact(ctx context.Context, c *domain.Customer) (*domain.Record, error) {
	return record(m.Called(ctx, c))
}

func (m *Destination) UpdateContact(ctx context.Context, id string, c *domain.Customer) (*domain.Record, error) {
	return record(m.Called(ctx, id, c))
}

func (m *Destination) FindItemByCode(ctx context.Context, code string) (*domain.Record, error) {
	return record(m.Called(ctx, code))
}

func (m *Destination) GetItem(ctx context.Context, id string) (*domain.Record, error) {
	return record(m.Called(ctx, id))
}

func (m *Destination) CreateItem(ctx context.Context, p *domain.Product) (*domain.Record, error) {
	return record(m.Called(ctx, p))
}

func (m *Destination) UpdateItem(ctx context.Context, id string, p *domain.Product) (*domain.Record, error) {
	return record(m.Called(ctx, id, p))
}

func (m *Destination) ArchiveItem(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Destination) FindInvoiceByReference(ctx context.Context, reference string) (*domain.Record, error) {
	return record(m.Called(ctx, reference))
}

func (m *Destination) CreateInvoice(ctx context.Context, draft *domain.InvoiceDraft) (*domain.Record, error) {
	return record(m.Called(ctx, draft))
}
