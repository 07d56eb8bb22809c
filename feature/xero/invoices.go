package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ledger-sync/core/domain"
)

const (
	invoiceAuthorised = "AUTHORISED"
	invoiceDraft      = "DRAFT"
	dateLayout        = "2006-01-02"
)

type lineItem struct {
	Description string      `json:"Description"`
	Quantity    json.Number `json:"Quantity"`
	UnitAmount  json.Number `json:"UnitAmount"`
	AccountCode string      `json:"AccountCode"`
	ItemCode    string      `json:"ItemCode,omitempty"`
	TaxType     string      `json:"TaxType"`
}

type invoice struct {
	InvoiceID     string `json:"InvoiceID,omitempty"`
	InvoiceNumber string `json:"InvoiceNumber,omitempty"`
	Type          string `json:"Type"`
	Status        string `json:"Status"`
	Reference     string `json:"Reference"`
	Contact       struct {
		ContactID string `json:"ContactID"`
	} `json:"Contact"`
	Date         string     `json:"Date,omitempty"`
	DueDate      string     `json:"DueDate,omitempty"`
	CurrencyCode string     `json:"CurrencyCode,omitempty"`
	LineItems    []lineItem `json:"LineItems,omitempty"`
}

// invoiceResponse skips the date fields, which Xero returns in its own /Date()/ format.
type invoiceResponse struct {
	Invoices []struct {
		InvoiceID     string `json:"InvoiceID"`
		InvoiceNumber string `json:"InvoiceNumber"`
		Reference     string `json:"Reference"`
		Status        string `json:"Status"`
	} `json:"Invoices"`
}

func (r invoiceResponse) record(i int) *domain.Record {
	inv := r.Invoices[i]
	return &domain.Record{
		ID:         inv.InvoiceID,
		NaturalKey: inv.Reference,
		Name:       inv.InvoiceNumber,
		Status:     inv.Status,
		Active:     inv.Status != "DELETED" && inv.Status != "VOIDED",
	}
}

func (c *Client) toInvoice(d *domain.InvoiceDraft) invoice {
	o := d.Order
	out := invoice{
		Type:         "ACCREC",
		Status:       invoiceDraft,
		Reference:    d.Reference,
		CurrencyCode: o.Currency,
	}
	out.Contact.ContactID = d.ContactID
	if o.IsPaid() {
		out.Status = invoiceAuthorised
	}
	if out.CurrencyCode == "" {
		out.CurrencyCode = c.cfg.DefaultCurrency
	}

	date := time.Now().UTC()
	if o.CreatedAt != nil {
		date = o.CreatedAt.UTC()
	}
	out.Date = date.Format(dateLayout)
	out.DueDate = out.Date

	for _, l := range d.Lines {
		out.LineItems = append(out.LineItems, lineItem{
			Description: l.Title,
			Quantity:    json.Number(fmt.Sprint(l.Quantity)),
			UnitAmount:  json.Number(l.Price.String()),
			AccountCode: c.cfg.SalesAccount,
			ItemCode:    l.ItemCode,
			TaxType:     c.cfg.TaxType,
		})
	}
	if o.TotalDiscounts.IsPositive() {
		out.LineItems = append(out.LineItems, lineItem{
			Description: "Discount",
			Quantity:    "1",
			UnitAmount:  json.Number(o.TotalDiscounts.Neg().String()),
			AccountCode: c.cfg.SalesAccount,
			TaxType:     c.cfg.TaxType,
		})
	}
	return out
}

// FindInvoiceByReference implements domain.InvoiceDestination.
func (c *Client) FindInvoiceByReference(ctx context.Context, reference string) (*domain.Record, error) {
	if reference == "" {
		return nil, nil
	}
	var out invoiceResponse
	if _, err := c.http.JSON(ctx, http.MethodGet, "Invoices", where("Reference", reference), nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Invoices {
		if rec := out.record(i); rec.Active {
			return rec, nil
		}
	}
	if len(out.Invoices) > 0 {
		return out.record(0), nil
	}
	return nil, nil
}

// CreateInvoice implements domain.InvoiceDestination.
func (c *Client) CreateInvoice(ctx context.Context, d *domain.InvoiceDraft) (*domain.Record, error) {
	body := map[string][]invoice{"Invoices": {c.toInvoice(d)}}
	var out invoiceResponse
	if _, err := c.http.JSON(ctx, http.MethodPut, "Invoices", nil, body, &out); err != nil {
		return nil, err
	}
	if len(out.Invoices) == 0 {
		return nil, fmt.Errorf("%s create invoice %s: empty response", service, d.Reference)
	}
	return out.record(0), nil
}
