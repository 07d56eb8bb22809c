package shopify

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ledger-sync/core/domain"
	"ledger-sync/core/remote"
	"ledger-sync/core/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RESTClient reads the store through the Admin REST API.
type RESTClient struct {
	http     *remote.Client
	pageSize int
	logger   *zap.Logger
}

// NewREST creates a REST client.
func NewREST(cfg Config, l *zap.Logger, opts ...remote.Option) *RESTClient {
	if l == nil {
		l = zap.NewNop()
	}
	return &RESTClient{
		http:     newHTTP(cfg, l, opts),
		pageSize: cfg.pageSize(),
		logger:   l,
	}
}

type restAddress struct {
	Company  string `json:"company"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
}

type restConsent struct {
	State      string `json:"state"`
	OptInLevel string `json:"opt_in_level,omitempty"`
}

type restCustomer struct {
	ID                    int64        `json:"id"`
	Email                 string       `json:"email"`
	FirstName             string       `json:"first_name"`
	LastName              string       `json:"last_name"`
	Phone                 string       `json:"phone"`
	Tags                  string       `json:"tags"`
	DefaultAddress        *restAddress `json:"default_address"`
	EmailMarketingConsent *restConsent `json:"email_marketing_consent"`
	UpdatedAt             *time.Time   `json:"updated_at"`
}

type restVariant struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
}

type restProduct struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	BodyHTML    string        `json:"body_html"`
	Vendor      string        `json:"vendor"`
	ProductType string        `json:"product_type"`
	Status      string        `json:"status"`
	Tags        string        `json:"tags"`
	Variants    []restVariant `json:"variants"`
	UpdatedAt   *time.Time    `json:"updated_at"`
}

type restLineItem struct {
	Title     string          `json:"title"`
	SKU       string          `json:"sku"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type restOrder struct {
	ID              int64           `json:"id"`
	OrderNumber     int64           `json:"order_number"`
	Email           string          `json:"email"`
	Currency        string          `json:"currency"`
	FinancialStatus string          `json:"financial_status"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	SubtotalPrice   decimal.Decimal `json:"subtotal_price"`
	TotalTax        decimal.Decimal `json:"total_tax"`
	TotalDiscounts  decimal.Decimal `json:"total_discounts"`
	Customer        *struct {
		ID int64 `json:"id"`
	} `json:"customer"`
	LineItems []restLineItem `json:"line_items"`
	CreatedAt *time.Time     `json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at"`
}

func (a *restAddress) toDomain() *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		Company:  a.Company,
		Address1: a.Address1,
		Address2: a.Address2,
		City:     a.City,
		Province: a.Province,
		Zip:      a.Zip,
		Country:  a.Country,
		Phone:    a.Phone,
	}
}

func (c restCustomer) toDomain() *domain.Customer {
	return &domain.Customer{
		ID:                  utils.FormatID(c.ID),
		Email:               c.Email,
		FirstName:           c.FirstName,
		LastName:            c.LastName,
		Phone:               c.Phone,
		DefaultAddress:      c.DefaultAddress.toDomain(),
		Tags:                utils.SplitTags(c.Tags),
		MarketingSubscribed: c.EmailMarketingConsent != nil && c.EmailMarketingConsent.State == "subscribed",
		UpdatedAt:           c.UpdatedAt,
	}
}

func (p restProduct) toDomain() *domain.Product {
	out := &domain.Product{
		ID:          utils.FormatID(p.ID),
		Title:       p.Title,
		Description: p.BodyHTML,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Status:      p.Status,
		Tags:        utils.SplitTags(p.Tags),
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, domain.Variant{
			ID:    utils.FormatID(v.ID),
			Title: v.Title,
			SKU:   v.SKU,
			Price: v.Price,
		})
	}
	return out
}

func (o restOrder) toDomain() *domain.Order {
	out := &domain.Order{
		ID:              utils.FormatID(o.ID),
		OrderNumber:     o.OrderNumber,
		Email:           o.Email,
		Currency:        o.Currency,
		FinancialStatus: o.FinancialStatus,
		TotalPrice:      o.TotalPrice,
		SubtotalPrice:   o.SubtotalPrice,
		TotalTax:        o.TotalTax,
		TotalDiscounts:  o.TotalDiscounts,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.Customer != nil {
		out.CustomerID = utils.FormatID(o.Customer.ID)
	}
	for _, li := range o.LineItems {
		out.LineItems = append(out.LineItems, domain.LineItem{
			Title:     li.Title,
			SKU:       li.SKU,
			ProductID: utils.FormatID(li.ProductID),
			Quantity:  li.Quantity,
			Price:     li.Price,
		})
	}
	return out
}

// CheckConnection implements domain.Source.
func (c *RESTClient) CheckConnection(ctx context.Context) error {
	_, err := c.http.JSON(ctx, http.MethodGet, "shop.json", nil, nil, nil)
	return err
}

// Customers implements domain.Source.
func (c *RESTClient) Customers(ctx context.Context, since *time.Time) iter.Seq2[*domain.Customer, error] {
	return paginate(ctx, c, "customers.json", sinceQuery(since), func(resp *remote.Response) ([]restCustomer, error) {
		var page struct {
			Customers []restCustomer `json:"customers"`
		}
		err := resp.Decode(&page)
		return page.Customers, err
	}, func(r restCustomer) int64 { return r.ID }, restCustomer.toDomain)
}

// Products implements domain.Source.
func (c *RESTClient) Products(ctx context.Context, since *time.Time) iter.Seq2[*domain.Product, error] {
	return paginate(ctx, c, "products.json", sinceQuery(since), func(resp *remote.Response) ([]restProduct, error) {
		var page struct {
			Products []restProduct `json:"products"`
		}
		err := resp.Decode(&page)
		return page.Products, err
	}, func(r restProduct) int64 { return r.ID }, restProduct.toDomain)
}

// Orders implements domain.Source. Orders of every status are returned.
func (c *RESTClient) Orders(ctx context.Context, since *time.Time) iter.Seq2[*domain.Order, error] {
	q := sinceQuery(since)
	q.Set("status", "any")
	return paginate(ctx, c, "orders.json", q, func(resp *remote.Response) ([]restOrder, error) {
		var page struct {
			Orders []restOrder `json:"orders"`
		}
		err := resp.Decode(&page)
		return page.Orders, err
	}, func(r restOrder) int64 { return r.ID }, restOrder.toDomain)
}

// Customer implements domain.Source.
func (c *RESTClient) Customer(ctx context.Context, id string) (*domain.Customer, error) {
	var out struct {
		Customer restCustomer `json:"customer"`
	}
	if _, err := c.http.JSON(ctx, http.MethodGet, "customers/"+url.PathEscape(id)+".json", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Customer.toDomain(), nil
}

// Product implements domain.Source.
func (c *RESTClient) Product(ctx context.Context, id string) (*domain.Product, error) {
	var out struct {
		Product restProduct `json:"product"`
	}
	if _, err := c.http.JSON(ctx, http.MethodGet, "products/"+url.PathEscape(id)+".json", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Product.toDomain(), nil
}

// Order implements domain.Source.
func (c *RESTClient) Order(ctx context.Context, id string) (*domain.Order, error) {
	var out struct {
		Order restOrder `json:"order"`
	}
	if _, err := c.http.JSON(ctx, http.MethodGet, "orders/"+url.PathEscape(id)+".json", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Order.toDomain(), nil
}

// UpdateEmailMarketing implements domain.ConsentUpdater.
func (c *RESTClient) UpdateEmailMarketing(ctx context.Context, customerID string, subscribed bool) error {
	id, err := strconv.ParseInt(customerID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid customer id %q: %w", customerID, err)
	}
	state := "unsubscribed"
	if subscribed {
		state = "subscribed"
	}
	body := map[string]any{
		"customer": map[string]any{
			"id":                      id,
			"email_marketing_consent": restConsent{State: state, OptInLevel: "single_opt_in"},
		},
	}
	_, err = c.http.JSON(ctx, http.MethodPut, "customers/"+customerID+".json", nil, body, nil)
	return err
}

func sinceQuery(since *time.Time) url.Values {
	q := url.Values{}
	if since != nil {
		q.Set("updated_at_min", formatSince(since))
	}
	return q
}

// paginate walks a REST listing with since_id cursors, yielding each converted record as
// its page arrives.
func paginate[R, E any](ctx context.Context, c *RESTClient, path string, query url.Values, decode func(*remote.Response) ([]R, error), id func(R) int64, convert func(R) E) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		var zero E
		var sinceID int64
		for {
			q := maps.Clone(query)
			q.Set("limit", strconv.Itoa(c.pageSize))
			if sinceID > 0 {
				q.Set("since_id", strconv.FormatInt(sinceID, 10))
			}

			resp, err := c.http.Do(ctx, remote.Request{Method: http.MethodGet, Path: path, Query: q})
			if err != nil {
				yield(zero, err)
				return
			}
			items, err := decode(resp)
			if err != nil {
				yield(zero, fmt.Errorf("%s: %w", path, err))
				return
			}
			c.logger.Debug("Fetched page", zap.String("path", path), zap.Int("count", len(items)))

			for _, item := range items {
				if !yield(convert(item), nil) {
					return
				}
			}
			if len(items) < c.pageSize {
				return
			}
			sinceID = id(items[len(items)-1])
		}
	}
}
