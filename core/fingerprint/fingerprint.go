package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"ledger-sync/core/domain"

	"github.com/shopspring/decimal"
)

const (
	fieldSep = "|"
	lineSep  = ";"
	partSep  = ":"
)

// Customer fingerprints the contact fields of a customer.
func Customer(c *domain.Customer) string {
	parts := []string{c.Email, c.FirstName, c.LastName, c.ContactPhone()}
	if a := c.DefaultAddress; a != nil {
		parts = append(parts, a.Address1, a.Address2, a.City, a.Province, a.Zip, a.Country)
	}
	return hash(parts)
}

// Product fingerprints the item fields of a product and its primary variant.
func Product(p *domain.Product) string {
	parts := []string{p.Title, p.Vendor, p.ProductType}
	if v := p.PrimaryVariant(); v != nil {
		parts = append(parts, money(v.Price), v.SKU)
	}
	return hash(parts)
}

// Order fingerprints the invoice fields of an order, keeping line items in order.
func Order(o *domain.Order) string {
	lines := make([]string, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		lines = append(lines, strings.Join([]string{li.Title, strconv.Itoa(li.Quantity), money(li.Price)}, partSep))
	}
	parts := []string{
		strconv.FormatInt(o.OrderNumber, 10),
		money(o.TotalPrice),
		money(o.SubtotalPrice),
		money(o.TotalTax),
		o.FinancialStatus,
		o.Email,
		strings.Join(lines, lineSep),
	}
	return hash(parts)
}

// Of dispatches on the concrete entity type. It returns "" for unknown types.
func Of(e domain.Entity) string {
	switch v := e.(type) {
	case *domain.Customer:
		return Customer(v)
	case *domain.Product:
		return Product(v)
	case *domain.Order:
		return Order(v)
	default:
		return ""
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func hash(parts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, fieldSep)))
	return hex.EncodeToString(sum[:])
}
