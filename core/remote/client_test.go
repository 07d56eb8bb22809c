package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ledger-sync/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) (*Client, *recordedSleeps) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sleeps := &recordedSleeps{}
	c := New("test", srv.URL, cfg, WithSleep(sleeps.sleep), WithHeader("X-Token", "secret"))
	return c, sleeps
}

func TestDo_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "/items", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mug", body["name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"i1"}`))
	}, Config{})

	var out struct {
		ID string `json:"id"`
	}
	resp, err := c.JSON(context.Background(), http.MethodPost, "items", map[string][]string{"limit": {"5"}}, map[string]string{"name": "mug"}, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "i1", out.ID)
}

func TestDo_RateLimitHonorsRetryAfter(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1.5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, Config{MaxRetries: 3})

	_, err := c.Do(context.Background(), Request{Path: "/ping"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, sleeps.delays)
}

func TestDo_RateLimitFallbackDelay(t *testing.T) {
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, Config{MaxRetries: 2, RateLimitDelay: 3 * time.Second})

	_, err := c.Do(context.Background(), Request{Path: "/ping"})
	require.Error(t, err)

	var rce *domain.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, 3, rce.Attempts)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeps.delays)
}

func TestDo_ThrottledBodyIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			_, _ = w.Write([]byte(`{"throttled":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"throttled":false}`))
	}))
	t.Cleanup(srv.Close)

	sleeps := &recordedSleeps{}
	check := func(resp *Response) bool {
		var body struct {
			Throttled bool `json:"throttled"`
		}
		return json.Unmarshal(resp.Body, &body) == nil && body.Throttled
	}
	c := New("test", srv.URL, Config{MaxRetries: 2, RateLimitDelay: time.Second},
		WithSleep(sleeps.sleep), WithThrottleCheck(check))

	resp, err := c.Do(context.Background(), Request{Path: "/ping"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"throttled":false}`, string(resp.Body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second}, sleeps.delays)

	t.Run("Exhausted", func(t *testing.T) {
		always := New("test", srv.URL, Config{MaxRetries: 1},
			WithSleep(sleeps.sleep), WithThrottleCheck(func(*Response) bool { return true }))
		_, err := always.Do(context.Background(), Request{Path: "/ping"})

		var rce *domain.RemoteCallError
		require.True(t, errors.As(err, &rce))
		assert.Equal(t, 2, rce.Attempts)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})
}

func TestDo_GatewayErrorsBackOff(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, Config{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 30 * time.Second})

	_, err := c.Do(context.Background(), Request{Path: "/ping"})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.delays)
}

func TestDo_AuthFailureNotRetried(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}, Config{MaxRetries: 3})

	_, err := c.Do(context.Background(), Request{Path: "/ping"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.True(t, domain.IsFatal(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, sleeps.delays)
}

func TestDo_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, Config{})

	_, err := c.Do(context.Background(), Request{Path: "/items/x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDo_ValidationError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"Message":"name already exists"}`))
	}, Config{})

	_, err := c.Do(context.Background(), Request{Method: http.MethodPut, Path: "/items"})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, http.StatusBadRequest, ve.Status)
	assert.Equal(t, "name already exists", ve.Message)
	assert.False(t, domain.IsFatal(err))
}

func TestDo_InternalServerErrorNotRetried(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, Config{MaxRetries: 3})

	_, err := c.Do(context.Background(), Request{Path: "/ping"})
	var rce *domain.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, 1, rce.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_TransportTimeoutRetried(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	sleeps := &recordedSleeps{}
	c := New("slow", srv.URL, Config{Timeout: 50 * time.Millisecond, MaxRetries: 2}, WithSleep(sleeps.sleep))

	_, err := c.Do(context.Background(), Request{Path: "/slow"})
	var rce *domain.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, 3, rce.Attempts)
	assert.Len(t, sleeps.delays, 2)
}

func TestDo_ContextCancelled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, Request{Path: "/ping"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}
	assert.Equal(t, time.Second, p.NextDelay(0))
	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 5*time.Second, p.NextDelay(4))
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := http.Header{}
	assert.Equal(t, 2*time.Second, retryAfter(h, 2*time.Second, now))

	h.Set("Retry-After", "4")
	assert.Equal(t, 4*time.Second, retryAfter(h, 2*time.Second, now))

	h.Set("Retry-After", now.Add(10*time.Second).Format(http.TimeFormat))
	assert.Equal(t, 10*time.Second, retryAfter(h, 2*time.Second, now))

	h.Set("Retry-After", "soon")
	assert.Equal(t, 2*time.Second, retryAfter(h, 2*time.Second, now))
}

func TestDefaultErrorParser(t *testing.T) {
	assert.Equal(t, "bad", DefaultErrorParser(400, []byte(`{"errors":"bad"}`)))
	assert.Equal(t, `{"email":["is invalid"]}`, DefaultErrorParser(422, []byte(`{"errors":{"email":["is invalid"]}}`)))
	assert.Equal(t, "plain text", DefaultErrorParser(400, []byte("plain text")))
	assert.Equal(t, "Bad Request", DefaultErrorParser(400, nil))
}
