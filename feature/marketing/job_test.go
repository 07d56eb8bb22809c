package marketing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/domain/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// parallelSource is a source that allows concurrent writes.
type parallelSource struct {
	*mocks.Source
}

func (parallelSource) ConcurrentWrites() bool { return true }

func customers(n int, subscribedEvery int) []*domain.Customer {
	out := make([]*domain.Customer, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &domain.Customer{
			ID:                  fmt.Sprint(i),
			Email:               fmt.Sprintf("c%d@x.com", i),
			MarketingSubscribed: subscribedEvery > 0 && i%subscribedEvery == 0,
		})
	}
	return out
}

type pauses struct {
	got []time.Duration
}

func (p *pauses) sleep(_ context.Context, d time.Duration) error {
	p.got = append(p.got, d)
	return nil
}

func TestRun_Batches(t *testing.T) {
	src := &mocks.Source{}
	all := customers(12, 4) // 4, 8 and 12 are already subscribed
	src.On("Customers", mock.Anything, (*time.Time)(nil)).Return(mocks.Seq(all...))
	src.On("UpdateEmailMarketing", mock.Anything, "5", true).Return(errors.New("throttled"))
	src.On("UpdateEmailMarketing", mock.Anything, mock.Anything, true).Return(nil)

	p := &pauses{}
	job := New(parallelSource{src}, Config{BatchSize: 4, BatchPause: 500 * time.Millisecond}, zap.NewNop(), WithSleep(p.sleep))

	res, err := job.Run(context.Background(), Options{Subscribed: true})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 8, res.Updated)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"customer 5: throttled"}, res.Errors)

	// nine updates in batches of four
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, p.got)
	src.AssertNumberOfCalls(t, "UpdateEmailMarketing", 9)
	src.AssertNotCalled(t, "UpdateEmailMarketing", mock.Anything, "4", true)
}

func TestRun_SequentialWithoutCapability(t *testing.T) {
	src := &mocks.Source{}
	src.On("Customers", mock.Anything, (*time.Time)(nil)).Return(mocks.Seq(customers(3, 0)...))
	src.On("UpdateEmailMarketing", mock.Anything, mock.Anything, true).Return(nil)

	p := &pauses{}
	job := New(src, Config{BatchSize: 2, BatchPause: time.Second}, zap.NewNop(), WithSleep(p.sleep))

	res, err := job.Run(context.Background(), Options{Subscribed: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
	assert.Empty(t, p.got, "sequential updates are paced by the limiter")
	src.AssertNumberOfCalls(t, "UpdateEmailMarketing", 3)
}

func TestRun_DryRunOnlyCounts(t *testing.T) {
	src := &mocks.Source{}
	src.On("Customers", mock.Anything, (*time.Time)(nil)).Return(mocks.Seq(customers(5, 5)...))

	res, err := New(parallelSource{src}, Config{}, zap.NewNop()).Run(context.Background(), Options{DryRun: true, Subscribed: true})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Updated)
	assert.Equal(t, 1, res.Skipped)
	src.AssertNotCalled(t, "UpdateEmailMarketing", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_Unsubscribe(t *testing.T) {
	src := &mocks.Source{}
	src.On("Customers", mock.Anything, (*time.Time)(nil)).Return(mocks.Seq(customers(4, 2)...))
	src.On("UpdateEmailMarketing", mock.Anything, mock.Anything, false).Return(nil)

	res, err := New(src, Config{}, zap.NewNop()).Run(context.Background(), Options{Subscribed: false})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	src.AssertCalled(t, "UpdateEmailMarketing", mock.Anything, "2", false)
	src.AssertCalled(t, "UpdateEmailMarketing", mock.Anything, "4", false)
}

func TestRun_FetchFailure(t *testing.T) {
	src := &mocks.Source{}
	src.On("Customers", mock.Anything, (*time.Time)(nil)).Return(mocks.FailingSeq(errors.New("boom"), customers(1, 0)...))

	_, err := New(src, Config{}, zap.NewNop()).Run(context.Background(), Options{Subscribed: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch customers")
	src.AssertNotCalled(t, "UpdateEmailMarketing", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_AuthFailureStops(t *testing.T) {
	src := &mocks.Source{}
	src.On("Customers", mock.Anything, (*time.Time)(nil)).Return(mocks.Seq(customers(5, 0)...))
	src.On("UpdateEmailMarketing", mock.Anything, mock.Anything, true).Return(domain.ErrAuthentication)

	res, err := New(src, Config{}, zap.NewNop()).Run(context.Background(), Options{Subscribed: true})
	require.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Equal(t, 1, res.Failed)
	src.AssertNumberOfCalls(t, "UpdateEmailMarketing", 1)
}
