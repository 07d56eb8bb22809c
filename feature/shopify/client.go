package shopify

import (
	"fmt"
	"iter"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/remote"

	"go.uber.org/zap"
)

const service = "shopify"

// Client is a Shopify source adapter.
type Client interface {
	domain.Source
	domain.ConsentUpdater
}

// New returns the client selected by cfg.APIType.
func New(cfg Config, l *zap.Logger, opts ...remote.Option) (Client, error) {
	switch cfg.APIType {
	case APITypeREST:
		return NewREST(cfg, l, opts...), nil
	case APITypeGraphQL, "":
		return NewGraphQL(cfg, l, opts...), nil
	default:
		return nil, fmt.Errorf("unknown shopify api type %q", cfg.APIType)
	}
}

func newHTTP(cfg Config, l *zap.Logger, opts []remote.Option) *remote.Client {
	if l == nil {
		l = zap.NewNop()
	}
	base := []remote.Option{
		remote.WithHeader("X-Shopify-Access-Token", cfg.AccessToken),
		remote.WithLogger(l),
	}
	return remote.New(service, cfg.baseURL(), cfg.HTTP, append(base, opts...)...)
}

// eager yields the result of load once it has fully completed.
func eager[E any](load func() ([]E, error)) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		items, err := load()
		if err != nil {
			var zero E
			yield(zero, err)
			return
		}
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func formatSince(since *time.Time) string {
	return since.UTC().Format(time.RFC3339)
}
