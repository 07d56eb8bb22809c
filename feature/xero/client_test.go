package xero

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledger-sync/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "tenant", r.Header.Get("xero-tenant-id"))
		w.Header().Set("Content-Type", "application/json")
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	return New(Config{
		BaseURL:          srv.URL,
		AccessToken:      "tok",
		TenantID:         "tenant",
		SalesAccount:     "200",
		PurchaseAccount:  "310",
		TaxType:          "OUTPUT2",
		PurchaseTaxType:  "INPUT2",
		CategoryAccounts: map[string]string{"Wax Melts": "206"},
		DefaultCurrency:  "GBP",
	}, zap.NewNop())
}

func decodeBody(t *testing.T, r *http.Request, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(out))
}

func TestCheckConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /Organisation", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Organisations":[{"Name":"Candles Ltd"}]}`))
	})
	require.NoError(t, newTestClient(t, mux).CheckConnection(context.Background()))
}

func TestFindContactByEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /Contacts", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("where") {
		case `EmailAddress=="a@x.com"`:
			_, _ = w.Write([]byte(`{"Contacts":[
				{"ContactID":"c-old","EmailAddress":"a@x.com","ContactStatus":"ARCHIVED"},
				{"ContactID":"c-1","EmailAddress":"a@x.com","ContactStatus":"ACTIVE","Name":"A B"}
			]}`))
		case `EmailAddress=="gone@x.com"`:
			_, _ = w.Write([]byte(`{"Contacts":[{"ContactID":"c-old","EmailAddress":"gone@x.com","ContactStatus":"ARCHIVED"}]}`))
		default:
			_, _ = w.Write([]byte(`{"Contacts":[]}`))
		}
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	rec, err := c.FindContactByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, &domain.Record{ID: "c-1", NaturalKey: "a@x.com", Name: "A B", Status: "ACTIVE", Active: true}, rec)

	rec, err = c.FindContactByEmail(ctx, "gone@x.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.Active)

	rec, err = c.FindContactByEmail(ctx, "none@x.com")
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = c.FindContactByEmail(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCreateAndUpdateContact(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /Contacts", func(w http.ResponseWriter, r *http.Request) {
		var body contacts
		decodeBody(t, r, &body)
		require.Len(t, body.Contacts, 1)
		ct := body.Contacts[0]
		assert.Equal(t, "Ann Bee (a@x.com)", ct.Name)
		assert.Equal(t, "555", ct.Phones[0].PhoneNumber)
		assert.Equal(t, "Leeds", ct.Addresses[0].City)
		assert.True(t, ct.IsCustomer)
		_, _ = w.Write([]byte(`{"Contacts":[{"ContactID":"c-new","EmailAddress":"a@x.com","ContactStatus":"ACTIVE"}]}`))
	})
	mux.HandleFunc("POST /Contacts/c-new", func(w http.ResponseWriter, r *http.Request) {
		var body contacts
		decodeBody(t, r, &body)
		assert.Equal(t, "c-new", body.Contacts[0].ContactID)
		_, _ = w.Write([]byte(`{"Contacts":[{"ContactID":"c-new","EmailAddress":"a@x.com","ContactStatus":"ACTIVE"}]}`))
	})
	c := newTestClient(t, mux)
	cust := &domain.Customer{
		ID: "1", Email: "a@x.com", FirstName: "Ann", LastName: "Bee",
		DefaultAddress: &domain.Address{City: "Leeds", Phone: "555"},
	}

	rec, err := c.CreateContact(context.Background(), cust)
	require.NoError(t, err)
	assert.Equal(t, "c-new", rec.ID)

	rec, err = c.UpdateContact(context.Background(), "c-new", cust)
	require.NoError(t, err)
	assert.True(t, rec.Active)
}

func TestValidationErrorsAreFlattened(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /Contacts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ErrorNumber":10,"Type":"ValidationException","Message":"A validation exception occurred",
			"Elements":[{"ValidationErrors":[{"Message":"The contact name Ann Bee is already assigned to another contact."}]}]}`))
	})
	_, err := newTestClient(t, mux).CreateContact(context.Background(), &domain.Customer{ID: "1", FirstName: "Ann"})

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, http.StatusBadRequest, ve.Status)
	assert.Equal(t, "The contact name Ann Bee is already assigned to another contact.", ve.Message)
}

func TestCreateItemPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /Items", func(w http.ResponseWriter, r *http.Request) {
		var body items
		decodeBody(t, r, &body)
		it := body.Items[0]
		assert.Equal(t, "MELT-1", it.Code)
		assert.Len(t, []rune(it.Name), maxItemName)
		assert.Equal(t, "206", it.SalesDetails.AccountCode)
		assert.Equal(t, json.Number("4.5"), it.SalesDetails.UnitPrice)
		assert.Equal(t, "310", it.PurchaseDetails.AccountCode)
		assert.Equal(t, "INPUT2", it.PurchaseDetails.TaxType)
		assert.True(t, it.IsSold)
		_, _ = w.Write([]byte(`{"Items":[{"ItemID":"i-1","Code":"MELT-1","Name":"x","IsSold":true,"IsPurchased":true}]}`))
	})
	p := &domain.Product{
		ID:          "5",
		Title:       "A very long candle wax melt name that exceeds the fifty character limit",
		ProductType: "wax melts",
		Variants:    []domain.Variant{{SKU: "MELT-1", Price: decimal.RequireFromString("4.50")}},
	}

	rec, err := newTestClient(t, mux).CreateItem(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, &domain.Record{ID: "i-1", NaturalKey: "MELT-1", Name: "x", Status: "ACTIVE", Active: true}, rec)
}

func TestGetItemMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /Items/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	rec, err := newTestClient(t, mux).GetItem(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestArchiveItem(t *testing.T) {
	var posted []item
	mux := http.NewServeMux()
	mux.HandleFunc("GET /Items/i-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Items":[{"ItemID":"i-1","Code":"OLD","Name":"Mug","IsSold":true,"IsPurchased":true}]}`))
	})
	mux.HandleFunc("GET /Items/i-2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Items":[{"ItemID":"i-2","Code":"OLD2","Name":"[ARCHIVED] Cup","IsSold":false,"IsPurchased":false}]}`))
	})
	mux.HandleFunc("POST /Items/i-1", func(w http.ResponseWriter, r *http.Request) {
		var body items
		decodeBody(t, r, &body)
		posted = append(posted, body.Items...)
		_, _ = w.Write([]byte(`{"Items":[{"ItemID":"i-1","Code":"OLD","Name":"[ARCHIVED] Mug"}]}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, c.ArchiveItem(ctx, "i-1"))
	require.Len(t, posted, 1)
	assert.Equal(t, "[ARCHIVED] Mug", posted[0].Name)
	assert.False(t, posted[0].IsSold)
	assert.False(t, posted[0].IsPurchased)

	require.NoError(t, c.ArchiveItem(ctx, "i-2"))
	assert.Len(t, posted, 1)
}

func TestCreateInvoicePayload(t *testing.T) {
	created := time.Date(2024, 5, 2, 23, 30, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /Invoices", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Invoices []invoice `json:"Invoices"`
		}
		decodeBody(t, r, &body)
		inv := body.Invoices[0]
		assert.Equal(t, "ACCREC", inv.Type)
		assert.Equal(t, invoiceAuthorised, inv.Status)
		assert.Equal(t, "SHOP-1001", inv.Reference)
		assert.Equal(t, "c-1", inv.Contact.ContactID)
		assert.Equal(t, "2024-05-02", inv.Date)
		assert.Equal(t, "GBP", inv.CurrencyCode)
		require.Len(t, inv.LineItems, 2)
		assert.Equal(t, "MUG-1", inv.LineItems[0].ItemCode)
		assert.Equal(t, json.Number("2"), inv.LineItems[0].Quantity)
		assert.Equal(t, "Discount", inv.LineItems[1].Description)
		assert.Equal(t, json.Number("-1.5"), inv.LineItems[1].UnitAmount)
		_, _ = w.Write([]byte(`{"Invoices":[{"InvoiceID":"inv-1","InvoiceNumber":"INV-0001","Reference":"SHOP-1001","Status":"AUTHORISED","Date":"/Date(1714608000000+0000)/"}]}`))
	})
	draft := &domain.InvoiceDraft{
		Order: &domain.Order{
			OrderNumber:     1001,
			FinancialStatus: "paid",
			TotalDiscounts:  decimal.RequireFromString("1.50"),
			CreatedAt:       &created,
		},
		Reference: "SHOP-1001",
		ContactID: "c-1",
		Lines: []domain.InvoiceLine{{
			LineItem: domain.LineItem{Title: "Mug", SKU: "MUG-1", Quantity: 2, Price: decimal.RequireFromString("6.25")},
			ItemCode: "MUG-1",
		}},
	}

	rec, err := newTestClient(t, mux).CreateInvoice(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, &domain.Record{ID: "inv-1", NaturalKey: "SHOP-1001", Name: "INV-0001", Status: "AUTHORISED", Active: true}, rec)
}

func TestUnpaidInvoiceIsDraft(t *testing.T) {
	c := New(Config{DefaultCurrency: "GBP"}, nil)
	inv := c.toInvoice(&domain.InvoiceDraft{Order: &domain.Order{FinancialStatus: "pending", Currency: "EUR"}})
	assert.Equal(t, invoiceDraft, inv.Status)
	assert.Equal(t, "EUR", inv.CurrencyCode)
	assert.Empty(t, inv.LineItems)
}

func TestFindInvoiceByReferenceSkipsVoided(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /Invoices", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `Reference=="SHOP-1"`, r.URL.Query().Get("where"))
		_, _ = w.Write([]byte(`{"Invoices":[{"InvoiceID":"v","Reference":"SHOP-1","Status":"VOIDED"}]}`))
	})
	rec, err := newTestClient(t, mux).FindInvoiceByReference(context.Background(), "SHOP-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.Active)
}
