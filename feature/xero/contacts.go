package xero

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"ledger-sync/core/domain"
)

const contactArchived = "ARCHIVED"

type address struct {
	AddressType  string `json:"AddressType"`
	AddressLine1 string `json:"AddressLine1,omitempty"`
	AddressLine2 string `json:"AddressLine2,omitempty"`
	City         string `json:"City,omitempty"`
	Region       string `json:"Region,omitempty"`
	PostalCode   string `json:"PostalCode,omitempty"`
	Country      string `json:"Country,omitempty"`
}

type phone struct {
	PhoneType   string `json:"PhoneType"`
	PhoneNumber string `json:"PhoneNumber"`
}

type contact struct {
	ContactID     string    `json:"ContactID,omitempty"`
	ContactStatus string    `json:"ContactStatus,omitempty"`
	Name          string    `json:"Name"`
	FirstName     string    `json:"FirstName,omitempty"`
	LastName      string    `json:"LastName,omitempty"`
	EmailAddress  string    `json:"EmailAddress,omitempty"`
	Addresses     []address `json:"Addresses,omitempty"`
	Phones        []phone   `json:"Phones,omitempty"`
	IsCustomer    bool      `json:"IsCustomer"`
	IsSupplier    bool      `json:"IsSupplier"`
}

type contacts struct {
	Contacts []contact `json:"Contacts"`
}

func (c contact) record() *domain.Record {
	return &domain.Record{
		ID:         c.ContactID,
		NaturalKey: c.EmailAddress,
		Name:       c.Name,
		Status:     c.ContactStatus,
		Active:     c.ContactStatus != contactArchived,
	}
}

// contactName keeps names unique across customers sharing a display name.
func contactName(c *domain.Customer) string {
	if c.FirstName == "" && c.LastName == "" {
		return c.DisplayName()
	}
	if c.Email != "" {
		return fmt.Sprintf("%s (%s)", c.DisplayName(), c.Email)
	}
	return c.DisplayName()
}

func toContact(id string, c *domain.Customer) contact {
	out := contact{
		ContactID:     id,
		ContactStatus: "ACTIVE",
		Name:          contactName(c),
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		EmailAddress:  c.Email,
		IsCustomer:    true,
	}
	if a := c.DefaultAddress; a != nil {
		out.Addresses = []address{{
			AddressType:  "POBOX",
			AddressLine1: a.Address1,
			AddressLine2: a.Address2,
			City:         a.City,
			Region:       a.Province,
			PostalCode:   a.Zip,
			Country:      a.Country,
		}}
	}
	if p := c.ContactPhone(); p != "" {
		out.Phones = []phone{{PhoneType: "DEFAULT", PhoneNumber: p}}
	}
	return out
}

// FindContactByEmail implements domain.ContactDestination. Active contacts are preferred
// over archived ones sharing the address.
func (c *Client) FindContactByEmail(ctx context.Context, email string) (*domain.Record, error) {
	if email == "" {
		return nil, nil
	}
	var out contacts
	if _, err := c.http.JSON(ctx, http.MethodGet, "Contacts", where("EmailAddress", email), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Contacts) == 0 {
		return nil, nil
	}
	for _, ct := range out.Contacts {
		if ct.ContactStatus != contactArchived {
			return ct.record(), nil
		}
	}
	return out.Contacts[0].record(), nil
}

// CreateContact implements domain.ContactDestination.
func (c *Client) CreateContact(ctx context.Context, cust *domain.Customer) (*domain.Record, error) {
	return c.saveContact(ctx, http.MethodPut, "Contacts", toContact("", cust))
}

// UpdateContact implements domain.ContactDestination.
func (c *Client) UpdateContact(ctx context.Context, id string, cust *domain.Customer) (*domain.Record, error) {
	return c.saveContact(ctx, http.MethodPost, "Contacts/"+url.PathEscape(id), toContact(id, cust))
}

func (c *Client) saveContact(ctx context.Context, method, path string, ct contact) (*domain.Record, error) {
	var out contacts
	if _, err := c.http.JSON(ctx, method, path, nil, contacts{Contacts: []contact{ct}}, &out); err != nil {
		return nil, err
	}
	if len(out.Contacts) == 0 {
		return nil, fmt.Errorf("%s %s %s: empty response", service, method, path)
	}
	return out.Contacts[0].record(), nil
}
