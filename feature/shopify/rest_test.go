package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ledger-sync/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(url, apiType string) Config {
	return Config{
		ShopURL:     url + "/",
		AccessToken: "tok",
		APIVersion:  "2024-01",
		APIType:     apiType,
		PageSize:    2,
	}
}

func newRESTServer(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Shopify-Access-Token"))
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewREST(testConfig(srv.URL, APITypeREST), zap.NewNop())
}

func TestREST_CustomersPaginatesBySinceID(t *testing.T) {
	var calls int32
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/customers.json", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "2024-03-01T10:00:00Z", r.URL.Query().Get("updated_at_min"))

		switch atomic.AddInt32(&calls, 1) {
		case 1:
			assert.Empty(t, r.URL.Query().Get("since_id"))
			_, _ = w.Write([]byte(`{"customers":[
				{"id":1,"email":"a@x.com","first_name":"A","tags":"vip, wholesale","email_marketing_consent":{"state":"subscribed"}},
				{"id":2,"email":"b@x.com","default_address":{"city":"Leeds","phone":"123"}}
			]}`))
		default:
			assert.Equal(t, "2", r.URL.Query().Get("since_id"))
			_, _ = w.Write([]byte(`{"customers":[{"id":3,"email":"c@x.com"}]}`))
		}
	})

	since := time.Date(2024, 3, 1, 11, 0, 0, 0, time.FixedZone("CET", 3600))
	var got []*domain.Customer
	for cust, err := range c.Customers(context.Background(), &since) {
		require.NoError(t, err)
		got = append(got, cust)
	}

	require.Len(t, got, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, []string{"vip", "wholesale"}, got[0].Tags)
	assert.True(t, got[0].MarketingSubscribed)
	assert.False(t, got[1].MarketingSubscribed)
	require.NotNil(t, got[1].DefaultAddress)
	assert.Equal(t, "Leeds", got[1].DefaultAddress.City)
	assert.Equal(t, "123", got[1].ContactPhone())
}

func TestREST_StopsWhenConsumerBreaks(t *testing.T) {
	var calls int32
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"products":[{"id":1},{"id":2}]}`))
	})

	for range c.Products(context.Background(), nil) {
		break
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestREST_OrdersRequestEveryStatus(t *testing.T) {
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "any", r.URL.Query().Get("status"))
		assert.Empty(t, r.URL.Query().Get("updated_at_min"))
		_, _ = w.Write([]byte(`{"orders":[{
			"id":9,"order_number":1001,"email":"a@x.com","currency":"GBP","financial_status":"paid",
			"total_price":"12.50","total_discounts":"0.00","customer":{"id":1},
			"line_items":[{"title":"Mug","sku":"MUG-1","product_id":5,"quantity":2,"price":"6.25"}]
		}]}`))
	})

	var got []*domain.Order
	for o, err := range c.Orders(context.Background(), nil) {
		require.NoError(t, err)
		got = append(got, o)
	}

	require.Len(t, got, 1)
	o := got[0]
	assert.Equal(t, "9", o.ID)
	assert.Equal(t, int64(1001), o.OrderNumber)
	assert.Equal(t, "1", o.CustomerID)
	assert.True(t, o.IsPaid())
	assert.True(t, decimal.RequireFromString("12.5").Equal(o.TotalPrice))
	require.Len(t, o.LineItems, 1)
	assert.Equal(t, "5", o.LineItems[0].ProductID)
	assert.Equal(t, 2, o.LineItems[0].Quantity)
}

func TestREST_PageErrorIsYielded(t *testing.T) {
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	var errs []error
	for _, err := range c.Customers(context.Background(), nil) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrAuthentication)
}

func TestREST_SingleProductNotFound(t *testing.T) {
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/products/77.json", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Product(context.Background(), "77")
	assert.True(t, domain.IsNotFound(err))
}

func TestREST_UpdateEmailMarketing(t *testing.T) {
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/admin/api/2024-01/customers/42.json", r.URL.Path)

		var body struct {
			Customer struct {
				ID      int64       `json:"id"`
				Consent restConsent `json:"email_marketing_consent"`
			} `json:"customer"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(42), body.Customer.ID)
		assert.Equal(t, "unsubscribed", body.Customer.Consent.State)
		assert.Equal(t, "single_opt_in", body.Customer.Consent.OptInLevel)
		_, _ = w.Write([]byte(`{"customer":{"id":42}}`))
	})

	require.NoError(t, c.UpdateEmailMarketing(context.Background(), "42", false))
	assert.Error(t, c.UpdateEmailMarketing(context.Background(), "gid://x", true))
}

func TestNew_SelectsTransport(t *testing.T) {
	rest, err := New(testConfig("http://shop", APITypeREST), nil)
	require.NoError(t, err)
	assert.IsType(t, &RESTClient{}, rest)

	gql, err := New(testConfig("http://shop", ""), nil)
	require.NoError(t, err)
	assert.IsType(t, &GraphQLClient{}, gql)

	_, err = New(testConfig("http://shop", "soap"), nil)
	assert.Error(t, err)
}
