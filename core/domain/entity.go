package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies which phase an entity belongs to.
type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntityProduct  EntityType = "product"
	EntityOrder    EntityType = "order"
)

// EntityTypes lists the phases in the order they must run.
var EntityTypes = []EntityType{EntityCustomer, EntityProduct, EntityOrder}

// ParseEntityType validates a user supplied entity type.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityCustomer, EntityProduct, EntityOrder:
		return EntityType(s), nil
	default:
		return "", fmt.Errorf("unknown entity type %q", s)
	}
}

// Address is a postal address attached to a customer.
type Address struct {
	Company  string
	Address1 string
	Address2 string
	City     string
	Province string
	Zip      string
	Country  string
	Phone    string
}

// Customer is a source customer.
type Customer struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	Phone          string
	DefaultAddress *Address
	Tags           []string
	// MarketingSubscribed reports whether email marketing consent is granted.
	MarketingSubscribed bool
	UpdatedAt           *time.Time
}

// SourceID implements Entity.
func (c *Customer) SourceID() string { return c.ID }

// SourceUpdatedAt implements Entity.
func (c *Customer) SourceUpdatedAt() *time.Time { return c.UpdatedAt }

// DisplayName returns the name used for the destination contact.
func (c *Customer) DisplayName() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" {
		name = c.Email
	}
	if name == "" {
		name = "Customer " + c.ID
	}
	return name
}

// ContactPhone returns the top-level phone, falling back to the default address phone.
func (c *Customer) ContactPhone() string {
	if c.Phone != "" {
		return c.Phone
	}
	if c.DefaultAddress != nil {
		return c.DefaultAddress.Phone
	}
	return ""
}

// Variant is a purchasable variant of a product.
type Variant struct {
	ID    string
	Title string
	SKU   string
	Price decimal.Decimal
}

// Product is a source product.
type Product struct {
	ID          string
	Title       string
	Description string
	Vendor      string
	ProductType string
	Status      string
	Tags        []string
	Variants    []Variant
	UpdatedAt   *time.Time
}

// SourceID implements Entity.
func (p *Product) SourceID() string { return p.ID }

// SourceUpdatedAt implements Entity.
func (p *Product) SourceUpdatedAt() *time.Time { return p.UpdatedAt }

// PrimaryVariant returns the first variant, or nil when the product has none.
func (p *Product) PrimaryVariant() *Variant {
	if len(p.Variants) == 0 {
		return nil
	}
	return &p.Variants[0]
}

// SKU returns the SKU of the primary variant.
func (p *Product) SKU() string {
	if v := p.PrimaryVariant(); v != nil {
		return v.SKU
	}
	return ""
}

// LineItem is one line of an order.
type LineItem struct {
	Title     string
	SKU       string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Order is a source order.
type Order struct {
	ID              string
	OrderNumber     int64
	Email           string
	CustomerID      string
	Currency        string
	FinancialStatus string
	TotalPrice      decimal.Decimal
	SubtotalPrice   decimal.Decimal
	TotalTax        decimal.Decimal
	TotalDiscounts  decimal.Decimal
	LineItems       []LineItem
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
}

// SourceID implements Entity.
func (o *Order) SourceID() string { return o.ID }

// SourceUpdatedAt implements Entity.
func (o *Order) SourceUpdatedAt() *time.Time { return o.UpdatedAt }

// IsPaid reports whether the order has been fully paid.
func (o *Order) IsPaid() bool {
	return o.FinancialStatus == "paid"
}

// Entity is implemented by every source entity.
type Entity interface {
	SourceID() string
	SourceUpdatedAt() *time.Time
}
