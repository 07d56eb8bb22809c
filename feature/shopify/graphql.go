package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/remote"
	"ledger-sync/core/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	customerFields = `id email firstName lastName phone tags updatedAt
		emailMarketingConsent { marketingState }
		defaultAddress { company address1 address2 city province zip country phone }`

	productFields = `id title descriptionHtml vendor productType status tags updatedAt
		variants(first: 100) { edges { node { id title sku price } } }`

	orderFields = `id name email currencyCode displayFinancialStatus createdAt updatedAt
		customer { id }
		totalPriceSet { shopMoney { amount } }
		subtotalPriceSet { shopMoney { amount } }
		totalTaxSet { shopMoney { amount } }
		totalDiscountsSet { shopMoney { amount } }
		lineItems(first: 250) { edges { node { title sku quantity product { id } discountedUnitPriceSet { shopMoney { amount } } } } }`

	consentMutation = `mutation consent($input: CustomerEmailMarketingConsentUpdateInput!) {
		customerEmailMarketingConsentUpdate(input: $input) {
			userErrors { field message }
		}
	}`
)

// GraphQLClient reads the store through the Admin GraphQL API.
type GraphQLClient struct {
	http     *remote.Client
	pageSize int
	logger   *zap.Logger
}

// NewGraphQL creates a GraphQL client.
func NewGraphQL(cfg Config, l *zap.Logger, opts ...remote.Option) *GraphQLClient {
	if l == nil {
		l = zap.NewNop()
	}
	return &GraphQLClient{
		http:     newHTTP(cfg, l, append([]remote.Option{remote.WithThrottleCheck(throttled)}, opts...)),
		pageSize: cfg.pageSize(),
		logger:   l,
	}
}

// throttled reports a 200 reply whose errors carry the THROTTLED code.
func throttled(resp *remote.Response) bool {
	var env gqlResponse
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return false
	}
	for _, e := range env.Errors {
		if e.Extensions.Code == "THROTTLED" {
			return true
		}
	}
	return false
}

// ConcurrentWrites implements domain.ConcurrentWriter. The GraphQL cost budget allows
// parallel consent updates.
func (c *GraphQLClient) ConcurrentWrites() bool { return true }

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type connection[N any] struct {
	Edges []struct {
		Node N `json:"node"`
	} `json:"edges"`
	PageInfo pageInfo `json:"pageInfo"`
}

func (c connection[N]) nodes() []N {
	out := make([]N, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node)
	}
	return out
}

type money struct {
	ShopMoney struct {
		Amount decimal.Decimal `json:"amount"`
	} `json:"shopMoney"`
}

type gqlCustomer struct {
	ID                    string       `json:"id"`
	Email                 string       `json:"email"`
	FirstName             string       `json:"firstName"`
	LastName              string       `json:"lastName"`
	Phone                 string       `json:"phone"`
	Tags                  []string     `json:"tags"`
	UpdatedAt             *time.Time   `json:"updatedAt"`
	DefaultAddress        *restAddress `json:"defaultAddress"`
	EmailMarketingConsent *struct {
		MarketingState string `json:"marketingState"`
	} `json:"emailMarketingConsent"`
}

type gqlProduct struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DescriptionHTML string     `json:"descriptionHtml"`
	Vendor          string     `json:"vendor"`
	ProductType     string     `json:"productType"`
	Status          string     `json:"status"`
	Tags            []string   `json:"tags"`
	UpdatedAt       *time.Time `json:"updatedAt"`
	Variants        connection[struct {
		ID    string          `json:"id"`
		Title string          `json:"title"`
		SKU   string          `json:"sku"`
		Price decimal.Decimal `json:"price"`
	}] `json:"variants"`
}

type gqlLineItem struct {
	Title    string `json:"title"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Product  *struct {
		ID string `json:"id"`
	} `json:"product"`
	DiscountedUnitPriceSet money `json:"discountedUnitPriceSet"`
}

type gqlOrder struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"`
	CurrencyCode           string     `json:"currencyCode"`
	DisplayFinancialStatus string     `json:"displayFinancialStatus"`
	CreatedAt              *time.Time `json:"createdAt"`
	UpdatedAt              *time.Time `json:"updatedAt"`
	Customer               *struct {
		ID string `json:"id"`
	} `json:"customer"`
	TotalPriceSet     money                   `json:"totalPriceSet"`
	SubtotalPriceSet  money                   `json:"subtotalPriceSet"`
	TotalTaxSet       money                   `json:"totalTaxSet"`
	TotalDiscountsSet money                   `json:"totalDiscountsSet"`
	LineItems         connection[gqlLineItem] `json:"lineItems"`
}

func (c gqlCustomer) toDomain() *domain.Customer {
	return &domain.Customer{
		ID:                  utils.TrailingID(c.ID),
		Email:               c.Email,
		FirstName:           c.FirstName,
		LastName:            c.LastName,
		Phone:               c.Phone,
		DefaultAddress:      c.DefaultAddress.toDomain(),
		Tags:                c.Tags,
		MarketingSubscribed: c.EmailMarketingConsent != nil && c.EmailMarketingConsent.MarketingState == "SUBSCRIBED",
		UpdatedAt:           c.UpdatedAt,
	}
}

func (p gqlProduct) toDomain() *domain.Product {
	out := &domain.Product{
		ID:          utils.TrailingID(p.ID),
		Title:       p.Title,
		Description: p.DescriptionHTML,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Status:      strings.ToLower(p.Status),
		Tags:        p.Tags,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variants.nodes() {
		out.Variants = append(out.Variants, domain.Variant{
			ID:    utils.TrailingID(v.ID),
			Title: v.Title,
			SKU:   v.SKU,
			Price: v.Price,
		})
	}
	return out
}

func (o gqlOrder) toDomain() *domain.Order {
	out := &domain.Order{
		ID:              utils.TrailingID(o.ID),
		OrderNumber:     utils.ParseOrderNumber(o.Name),
		Email:           o.Email,
		Currency:        o.CurrencyCode,
		FinancialStatus: strings.ToLower(o.DisplayFinancialStatus),
		TotalPrice:      o.TotalPriceSet.ShopMoney.Amount,
		SubtotalPrice:   o.SubtotalPriceSet.ShopMoney.Amount,
		TotalTax:        o.TotalTaxSet.ShopMoney.Amount,
		TotalDiscounts:  o.TotalDiscountsSet.ShopMoney.Amount,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.Customer != nil {
		out.CustomerID = utils.TrailingID(o.Customer.ID)
	}
	for _, li := range o.LineItems.nodes() {
		line := domain.LineItem{
			Title:    li.Title,
			SKU:      li.SKU,
			Quantity: li.Quantity,
			Price:    li.DiscountedUnitPriceSet.ShopMoney.Amount,
		}
		if li.Product != nil {
			line.ProductID = utils.TrailingID(li.Product.ID)
		}
		out.LineItems = append(out.LineItems, line)
	}
	return out
}

// query posts one GraphQL document and decodes its data into out.
func (c *GraphQLClient) query(ctx context.Context, doc string, vars map[string]any, out any) error {
	resp, err := c.http.Do(ctx, remote.Request{
		Method: http.MethodPost,
		Path:   "graphql.json",
		Body:   map[string]any{"query": doc, "variables": vars},
	})
	if err != nil {
		return err
	}

	var env gqlResponse
	if err := resp.Decode(&env); err != nil {
		return err
	}
	if len(env.Errors) > 0 {
		return graphQLErrors(env.Errors)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode graphql data: %w", err)
	}
	return nil
}

func graphQLErrors(errs []gqlError) error {
	msgs := make([]string, 0, len(errs))
	throttled := false
	for _, e := range errs {
		msgs = append(msgs, e.Message)
		if e.Extensions.Code == "THROTTLED" {
			throttled = true
		}
	}
	cause := fmt.Errorf("%s", strings.Join(msgs, "; "))
	if throttled {
		cause = fmt.Errorf("%w: %s", domain.ErrRateLimited, strings.Join(msgs, "; "))
	}
	return &domain.RemoteCallError{Service: service, Operation: "graphql", Attempts: 1, Err: cause}
}

// collect follows the cursor of a root connection until the last page.
func collect[N, E any](ctx context.Context, c *GraphQLClient, root, fields string, since *time.Time, convert func(N) E) ([]E, error) {
	doc := fmt.Sprintf(`query page($first: Int!, $after: String, $query: String) {
		%s(first: $first, after: $after, query: $query) {
			edges { node { %s } }
			pageInfo { hasNextPage endCursor }
		}
	}`, root, fields)

	vars := map[string]any{"first": c.pageSize}
	if since != nil {
		vars["query"] = fmt.Sprintf("updated_at:>='%s'", formatSince(since))
	}

	var out []E
	for {
		var data map[string]connection[N]
		if err := c.query(ctx, doc, vars, &data); err != nil {
			return nil, err
		}
		conn := data[root]
		for _, n := range conn.nodes() {
			out = append(out, convert(n))
		}
		c.logger.Debug("Fetched page", zap.String("connection", root), zap.Int("count", len(conn.Edges)))
		if !conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor == "" {
			return out, nil
		}
		vars["after"] = conn.PageInfo.EndCursor
	}
}

// single loads one node by id, returning domain.ErrNotFound when the node is null.
func single[N any](ctx context.Context, c *GraphQLClient, root, kind, fields, id string) (*N, error) {
	doc := fmt.Sprintf(`query one($id: ID!) { %s(id: $id) { %s } }`, root, fields)
	var data map[string]*N
	if err := c.query(ctx, doc, map[string]any{"id": utils.GlobalID(kind, id)}, &data); err != nil {
		return nil, err
	}
	n := data[root]
	if n == nil {
		return nil, fmt.Errorf("%s %s %s: %w", service, root, id, domain.ErrNotFound)
	}
	return n, nil
}

// CheckConnection implements domain.Source.
func (c *GraphQLClient) CheckConnection(ctx context.Context) error {
	return c.query(ctx, `{ shop { name } }`, nil, nil)
}

// Customers implements domain.Source.
func (c *GraphQLClient) Customers(ctx context.Context, since *time.Time) iter.Seq2[*domain.Customer, error] {
	return eager(func() ([]*domain.Customer, error) {
		return collect(ctx, c, "customers", customerFields, since, gqlCustomer.toDomain)
	})
}

// Products implements domain.Source.
func (c *GraphQLClient) Products(ctx context.Context, since *time.Time) iter.Seq2[*domain.Product, error] {
	return eager(func() ([]*domain.Product, error) {
		return collect(ctx, c, "products", productFields, since, gqlProduct.toDomain)
	})
}

// Orders implements domain.Source.
func (c *GraphQLClient) Orders(ctx context.Context, since *time.Time) iter.Seq2[*domain.Order, error] {
	return eager(func() ([]*domain.Order, error) {
		return collect(ctx, c, "orders", orderFields, since, gqlOrder.toDomain)
	})
}

// Customer implements domain.Source.
func (c *GraphQLClient) Customer(ctx context.Context, id string) (*domain.Customer, error) {
	n, err := single[gqlCustomer](ctx, c, "customer", "Customer", customerFields, id)
	if err != nil {
		return nil, err
	}
	return n.toDomain(), nil
}

// Product implements domain.Source.
func (c *GraphQLClient) Product(ctx context.Context, id string) (*domain.Product, error) {
	n, err := single[gqlProduct](ctx, c, "product", "Product", productFields, id)
	if err != nil {
		return nil, err
	}
	return n.toDomain(), nil
}

// Order implements domain.Source.
func (c *GraphQLClient) Order(ctx context.Context, id string) (*domain.Order, error) {
	n, err := single[gqlOrder](ctx, c, "order", "Order", orderFields, id)
	if err != nil {
		return nil, err
	}
	return n.toDomain(), nil
}

// UpdateEmailMarketing implements domain.ConsentUpdater.
func (c *GraphQLClient) UpdateEmailMarketing(ctx context.Context, customerID string, subscribed bool) error {
	state := "UNSUBSCRIBED"
	if subscribed {
		state = "SUBSCRIBED"
	}
	vars := map[string]any{
		"input": map[string]any{
			"customerId": utils.GlobalID("Customer", customerID),
			"emailMarketingConsent": map[string]any{
				"marketingState":      state,
				"marketingOptInLevel": "SINGLE_OPT_IN",
			},
		},
	}

	var data struct {
		Update struct {
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
			} `json:"userErrors"`
		} `json:"customerEmailMarketingConsentUpdate"`
	}
	if err := c.query(ctx, consentMutation, vars, &data); err != nil {
		return err
	}
	if errs := data.Update.UserErrors; len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Message)
		}
		return &domain.ValidationError{Service: service, Status: http.StatusOK, Message: strings.Join(msgs, "; ")}
	}
	return nil
}
