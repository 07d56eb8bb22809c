package mocks

import (
	"context"
	"iter"
	"time"

	"ledger-sync/core/domain"

	"github.com/stretchr/testify/mock"
)

// Seq yields the given items and then stops.
func Seq[T any](items ...T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// FailingSeq yields the given items and then err.
func FailingSeq[T any](err error, items ...T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
		var zero T
		yield(zero, err)
	}
}

// Source is a mock implementation of domain.Source and domain.ConsentUpdater
type Source struct {
	mock.Mock
}

func (m *Source) CheckConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Source) Customers(ctx context.Context, since *time.Time) iter.Seq2[*domain.Customer, error] {
	args := m.Called(ctx, since)
	return args.Get(0).(iter.Seq2[*domain.Customer, error])
}

func (m *Source) Products(ctx context.Context, since *time.Time) iter.Seq2[*domain.Product, error] {
	args := m.Called(ctx, since)
	return args.Get(0).(iter.Seq2[*domain.Product, error])
}

func (m *Source) Orders(ctx context.Context, since *time.Time) iter.Seq2[*domain.Order, error] {
	args := m.Called(ctx, since)
	return args.Get(0).(iter.Seq2[*domain.Order, error])
}

func (m *Source) Customer(ctx context.Context, id string) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if c, ok := args.Get(0).(*domain.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Source) Product(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*domain.Product); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Source) Order(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if o, ok := args.Get(0).(*domain.Order); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Source) UpdateEmailMarketing(ctx context.Context, customerID string, subscribed bool) error {
	args := m.Called(ctx, customerID, subscribed)
	return args.Error(0)
}
