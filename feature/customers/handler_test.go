package customers

import (
	"context"
	"errors"
	"testing"

	"ledger-sync/core/domain"
	"ledger-sync/core/domain/mocks"
	"ledger-sync/core/fingerprint"
	"ledger-sync/core/reconcile"
	"ledger-sync/core/store"
	"ledger-sync/core/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T, opts reconcile.Options) (*Handler, *mocks.Destination, *store.Store, *reconcile.Engine) {
	t.Helper()
	s := storetest.New(t)
	dest := new(mocks.Destination)
	h := NewHandler(new(mocks.Source), dest)
	return h, dest, s, reconcile.NewEngine(s, zap.NewNop(), opts)
}

func customerA() *domain.Customer {
	return &domain.Customer{ID: "1", Email: "a@x.com", FirstName: "A", LastName: "B"}
}

func TestReconcile_CreatesNewCustomer(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{})
	ctx := context.Background()
	c := customerA()

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(nil, nil).Once()
	dest.On("CreateContact", mock.Anything, c).Return(&domain.Record{ID: "d-new", Active: true}, nil).Once()

	action, err := h.Reconcile(ctx, e, c)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, action)

	m, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "d-new", m.DestinationID)
	assert.Equal(t, domain.EntityCustomer, m.EntityType)
	assert.Equal(t, fingerprint.Customer(c), m.Fingerprint)

	dest.AssertExpectations(t)
	dest.AssertNotCalled(t, "UpdateContact", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_LinksExistingContact(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{})
	ctx := context.Background()
	c := customerA()

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(&domain.Record{ID: "d1", Active: true}, nil).Once()
	dest.On("UpdateContact", mock.Anything, "d1", c).Return(&domain.Record{ID: "d1", Active: true}, nil).Once()

	action, err := h.Reconcile(ctx, e, c)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionUpdated, action)

	m, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "d1", m.DestinationID)
	assert.Equal(t, fingerprint.Customer(c), m.Fingerprint)

	dest.AssertExpectations(t)
	dest.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything)
}

func TestReconcile_Idempotent(t *testing.T) {
	h, dest, _, e := setup(t, reconcile.Options{})
	ctx := context.Background()

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(nil, nil).Once()
	dest.On("CreateContact", mock.Anything, mock.Anything).Return(&domain.Record{ID: "d-new"}, nil).Once()

	first, err := h.Reconcile(ctx, e, customerA())
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, first)

	second, err := h.Reconcile(ctx, e, customerA())
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionSkipped, second)

	dest.AssertNumberOfCalls(t, "CreateContact", 1)
	dest.AssertNumberOfCalls(t, "FindContactByEmail", 1)
	dest.AssertNotCalled(t, "UpdateContact", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_UpdatesChangedCustomer(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{})
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, domain.Mapping{SourceID: "1", DestinationID: "d1", EntityType: domain.EntityCustomer, Fingerprint: "stale"}))

	c := customerA()
	dest.On("UpdateContact", mock.Anything, "d1", c).Return(&domain.Record{ID: "d1"}, nil).Once()

	action, err := h.Reconcile(ctx, e, c)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionUpdated, action)

	m, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Customer(c), m.Fingerprint)
	dest.AssertNotCalled(t, "FindContactByEmail", mock.Anything, mock.Anything)
}

func TestReconcile_FailedUpdateKeepsFingerprint(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{})
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, domain.Mapping{SourceID: "1", DestinationID: "d1", EntityType: domain.EntityCustomer, Fingerprint: "stale"}))

	dest.On("UpdateContact", mock.Anything, "d1", mock.Anything).
		Return(nil, &domain.ValidationError{Service: "xero", Status: 400, Message: "name already exists"}).Once()

	_, err := h.Reconcile(ctx, e, customerA())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name already exists")

	m, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "stale", m.Fingerprint)
}

func TestReconcile_FailedCreateWritesNoMapping(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{})
	ctx := context.Background()

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(nil, nil).Once()
	dest.On("CreateContact", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	_, err := h.Reconcile(ctx, e, customerA())
	require.Error(t, err)

	m, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestReconcile_NoEmailSkipsLookup(t *testing.T) {
	h, dest, _, e := setup(t, reconcile.Options{})
	c := &domain.Customer{ID: "2", FirstName: "Walk", LastName: "In"}

	dest.On("CreateContact", mock.Anything, c).Return(&domain.Record{ID: "d2"}, nil).Once()

	action, err := h.Reconcile(context.Background(), e, c)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, action)
	dest.AssertNotCalled(t, "FindContactByEmail", mock.Anything, mock.Anything)
}

func TestReconcile_ArchivedMatchIsCreated(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{})
	ctx := context.Background()
	c := customerA()

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(&domain.Record{ID: "old", Status: "ARCHIVED", Active: false}, nil).Once()
	dest.On("CreateContact", mock.Anything, c).Return(&domain.Record{ID: "d-new"}, nil).Once()

	action, err := h.Reconcile(ctx, e, c)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, action)

	m, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "d-new", m.DestinationID)
}

func TestReconcile_LookupFailureFallsThroughToCreate(t *testing.T) {
	h, dest, _, e := setup(t, reconcile.Options{})
	c := customerA()

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").
		Return(nil, &domain.RemoteCallError{Service: "xero", Operation: "GET /Contacts", Attempts: 4, Err: errors.New("timeout")}).Once()
	dest.On("CreateContact", mock.Anything, c).Return(&domain.Record{ID: "d-new"}, nil).Once()

	action, err := h.Reconcile(context.Background(), e, c)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionCreated, action)
}

func TestReconcile_SharedEmailMapsToOneContact(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{})
	ctx := context.Background()
	first := customerA()
	second := &domain.Customer{ID: "2", Email: "a@x.com", FirstName: "A", LastName: "B"}

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(nil, nil).Once()
	dest.On("CreateContact", mock.Anything, first).Return(&domain.Record{ID: "d1", Active: true}, nil).Once()
	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(&domain.Record{ID: "d1", Active: true}, nil).Once()
	dest.On("UpdateContact", mock.Anything, "d1", second).Return(&domain.Record{ID: "d1"}, nil).Once()

	_, err := h.Reconcile(ctx, e, first)
	require.NoError(t, err)
	action, err := h.Reconcile(ctx, e, second)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionUpdated, action)

	all, err := s.ListAll(ctx, domain.EntityCustomer)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, all[0].DestinationID, all[1].DestinationID)
	dest.AssertNumberOfCalls(t, "CreateContact", 1)
}

func TestReconcile_FailedLinkPushIsRetriedAsUpdate(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{})
	ctx := context.Background()
	c := customerA()

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(&domain.Record{ID: "d1", Active: true}, nil).Once()
	dest.On("UpdateContact", mock.Anything, "d1", c).Return(nil, errors.New("timeout")).Once()

	_, err := h.Reconcile(ctx, e, c)
	require.Error(t, err)

	m, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "d1", m.DestinationID)
	assert.Empty(t, m.Fingerprint)

	dest.On("UpdateContact", mock.Anything, "d1", c).Return(&domain.Record{ID: "d1"}, nil).Once()
	action, err := h.Reconcile(ctx, e, c)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ActionUpdated, action)
	dest.AssertNumberOfCalls(t, "FindContactByEmail", 1)
	dest.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything)
}

func TestReconcile_DryRun(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{DryRun: true})
	ctx := context.Background()

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(nil, nil)
	dest.On("FindContactByEmail", mock.Anything, "b@x.com").Return(&domain.Record{ID: "d9", Active: true}, nil)

	for i := 0; i < 2; i++ {
		created, err := h.Reconcile(ctx, e, customerA())
		require.NoError(t, err)
		assert.Equal(t, reconcile.ActionCreated, created)

		linked, err := h.Reconcile(ctx, e, &domain.Customer{ID: "3", Email: "b@x.com"})
		require.NoError(t, err)
		assert.Equal(t, reconcile.ActionUpdated, linked)
	}

	all, err := s.ListAll(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
	dest.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything)
	dest.AssertNotCalled(t, "UpdateContact", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_ClearsPendingError(t *testing.T) {
	h, dest, s, e := setup(t, reconcile.Options{})
	ctx := context.Background()
	require.NoError(t, s.RecordError(ctx, domain.EntityCustomer, "1", "earlier failure"))

	dest.On("FindContactByEmail", mock.Anything, "a@x.com").Return(nil, nil).Once()
	dest.On("CreateContact", mock.Anything, mock.Anything).Return(&domain.Record{ID: "d1"}, nil).Once()

	_, err := h.Reconcile(ctx, e, customerA())
	require.NoError(t, err)

	pending, err := s.GetError(ctx, domain.EntityCustomer, "1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}
