package xero

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"ledger-sync/core/domain"
	"ledger-sync/core/remote"

	"go.uber.org/zap"
)

const service = "xero"

var _ domain.Destination = (*Client)(nil)

// Client talks to the Xero accounting API. It implements domain.Destination.
type Client struct {
	http   *remote.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a Xero client.
func New(cfg Config, l *zap.Logger, opts ...remote.Option) *Client {
	if l == nil {
		l = zap.NewNop()
	}
	base := []remote.Option{
		remote.WithHeader("Authorization", "Bearer "+cfg.AccessToken),
		remote.WithHeader("xero-tenant-id", cfg.TenantID),
		remote.WithErrorParser(parseError),
		remote.WithLogger(l),
	}
	return &Client{
		http:   remote.New(service, cfg.BaseURL, cfg.HTTP, append(base, opts...)...),
		cfg:    cfg,
		logger: l,
	}
}

// CheckConnection implements domain.Destination.
func (c *Client) CheckConnection(ctx context.Context) error {
	var out struct {
		Organisations []struct {
			Name string `json:"Name"`
		} `json:"Organisations"`
	}
	if _, err := c.http.JSON(ctx, http.MethodGet, "Organisation", nil, nil, &out); err != nil {
		return err
	}
	if len(out.Organisations) > 0 {
		c.logger.Debug("Connected to organisation", zap.String("name", out.Organisations[0].Name))
	}
	return nil
}

// where renders an equality filter, escaping quotes in the value.
func where(field, value string) url.Values {
	return url.Values{
		"where": {field + `=="` + strings.ReplaceAll(value, `"`, `\"`) + `"`},
	}
}

// parseError flattens the validation messages of a Xero error body.
func parseError(status int, body []byte) string {
	var payload struct {
		Message  string `json:"Message"`
		Elements []struct {
			ValidationErrors []struct {
				Message string `json:"Message"`
			} `json:"ValidationErrors"`
		} `json:"Elements"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return remote.DefaultErrorParser(status, body)
	}

	var msgs []string
	for _, el := range payload.Elements {
		for _, ve := range el.ValidationErrors {
			if ve.Message != "" {
				msgs = append(msgs, ve.Message)
			}
		}
	}
	if len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	if payload.Message != "" {
		return payload.Message
	}
	return remote.DefaultErrorParser(status, body)
}
