package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"ledger-sync/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func sha(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func baseCustomer() *domain.Customer {
	return &domain.Customer{
		ID:        "1",
		Email:     "a@x.com",
		FirstName: "A",
		LastName:  "B",
		Phone:     "111",
		DefaultAddress: &domain.Address{
			Address1: "1 Main St",
			Address2: "Unit 2",
			City:     "Auckland",
			Province: "AUK",
			Zip:      "1010",
			Country:  "NZ",
		},
	}
}

func baseOrder() *domain.Order {
	return &domain.Order{
		ID:              "9001",
		OrderNumber:     1001,
		Email:           "a@x.com",
		FinancialStatus: "paid",
		TotalPrice:      decimal.RequireFromString("30.00"),
		SubtotalPrice:   decimal.RequireFromString("26.09"),
		TotalTax:        decimal.RequireFromString("3.91"),
		LineItems: []domain.LineItem{
			{Title: "Mug", Quantity: 2, Price: decimal.RequireFromString("10")},
			{Title: "Tea", Quantity: 1, Price: decimal.RequireFromString("10.00")},
		},
	}
}

func TestCustomer_Encoding(t *testing.T) {
	c := &domain.Customer{ID: "1", Email: "a@x.com", FirstName: "A", LastName: "B"}
	assert.Equal(t, sha("a@x.com|A|B|"), Customer(c))

	full := baseCustomer()
	assert.Equal(t, sha("a@x.com|A|B|111|1 Main St|Unit 2|Auckland|AUK|1010|NZ"), Customer(full))
}

func TestCustomer_PhoneFallback(t *testing.T) {
	c := baseCustomer()
	c.Phone = ""
	c.DefaultAddress.Phone = "111"
	assert.Equal(t, Customer(baseCustomer()), Customer(c))
}

func TestCustomer_Sensitivity(t *testing.T) {
	base := Customer(baseCustomer())

	mutations := map[string]func(c *domain.Customer){
		"email":    func(c *domain.Customer) { c.Email = "b@x.com" },
		"first":    func(c *domain.Customer) { c.FirstName = "Z" },
		"last":     func(c *domain.Customer) { c.LastName = "Z" },
		"phone":    func(c *domain.Customer) { c.Phone = "222" },
		"address1": func(c *domain.Customer) { c.DefaultAddress.Address1 = "2 Main St" },
		"address2": func(c *domain.Customer) { c.DefaultAddress.Address2 = "" },
		"city":     func(c *domain.Customer) { c.DefaultAddress.City = "Wellington" },
		"zip":      func(c *domain.Customer) { c.DefaultAddress.Zip = "6011" },
		"country":  func(c *domain.Customer) { c.DefaultAddress.Country = "AU" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := baseCustomer()
			mutate(c)
			assert.NotEqual(t, base, Customer(c))
		})
	}
}

func TestIdentifierExcluded(t *testing.T) {
	c := baseCustomer()
	c.ID = "999"
	assert.Equal(t, Customer(baseCustomer()), Customer(c))

	o := baseOrder()
	o.ID = "1"
	assert.Equal(t, Order(baseOrder()), Order(o))
}

func TestCustomer_NonContactFieldsIgnored(t *testing.T) {
	c := baseCustomer()
	c.Tags = []string{"vip"}
	c.MarketingSubscribed = true
	assert.Equal(t, Customer(baseCustomer()), Customer(c))
}

func TestProduct(t *testing.T) {
	p := &domain.Product{
		ID:          "5",
		Title:       "Mug",
		Vendor:      "Acme",
		ProductType: "Kitchen",
		Variants:    []domain.Variant{{SKU: "MUG-1", Price: decimal.RequireFromString("12.5")}},
	}
	assert.Equal(t, sha("Mug|Acme|Kitchen|12.50|MUG-1"), Product(p))

	noVariant := &domain.Product{Title: "Mug", Vendor: "Acme", ProductType: "Kitchen"}
	assert.Equal(t, sha("Mug|Acme|Kitchen"), Product(noVariant))

	changed := *p
	changed.Variants = []domain.Variant{{SKU: "MUG-2", Price: decimal.RequireFromString("12.5")}}
	assert.NotEqual(t, Product(p), Product(&changed))
}

func TestOrder_Encoding(t *testing.T) {
	assert.Equal(t, sha("1001|30.00|26.09|3.91|paid|a@x.com|Mug:2:10.00;Tea:1:10.00"), Order(baseOrder()))
}

func TestOrder_LineItemSensitivity(t *testing.T) {
	base := Order(baseOrder())

	qty := baseOrder()
	qty.LineItems[1].Quantity = 3
	assert.NotEqual(t, base, Order(qty))

	price := baseOrder()
	price.LineItems[0].Price = decimal.RequireFromString("9.99")
	assert.NotEqual(t, base, Order(price))

	swapped := baseOrder()
	swapped.LineItems[0], swapped.LineItems[1] = swapped.LineItems[1], swapped.LineItems[0]
	assert.NotEqual(t, base, Order(swapped))

	added := baseOrder()
	added.LineItems = append(added.LineItems, domain.LineItem{Title: "Spoon", Quantity: 1})
	assert.NotEqual(t, base, Order(added))
}

func TestDeterministic(t *testing.T) {
	assert.Equal(t, Order(baseOrder()), Order(baseOrder()))
	assert.Len(t, Customer(&domain.Customer{}), 64)
}

func TestOf(t *testing.T) {
	assert.Equal(t, Customer(baseCustomer()), Of(baseCustomer()))
	assert.Equal(t, Order(baseOrder()), Of(baseOrder()))
	assert.Empty(t, Of(nil))
}
