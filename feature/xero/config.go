package xero

import (
	"strings"

	"ledger-sync/core/remote"
)

// Config holds the Xero connection settings and the chart of accounts used in payloads.
type Config struct {
	BaseURL     string `mapstructure:"base_url" default:"https://api.xero.com/api.xro/2.0" validate:"required,url"`
	AccessToken string `mapstructure:"access_token" default:"" validate:"required"`
	TenantID    string `mapstructure:"tenant_id" default:"" validate:"required"`

	// SalesAccount is the revenue account of items, invoice lines and discounts.
	SalesAccount string `mapstructure:"sales_account" default:"200" validate:"required"`
	// PurchaseAccount is the cost of goods account of items.
	PurchaseAccount string `mapstructure:"purchase_account" default:"310" validate:"required"`
	TaxType         string `mapstructure:"tax_type" default:"OUTPUT2" validate:"required"`
	PurchaseTaxType string `mapstructure:"purchase_tax_type" default:"INPUT2" validate:"required"`
	// CategoryAccounts overrides SalesAccount per product type, matched case-insensitively.
	CategoryAccounts map[string]string `mapstructure:"category_accounts"`
	// DefaultCurrency is used when an order carries no currency.
	DefaultCurrency string `mapstructure:"default_currency" default:"GBP"`

	HTTP remote.Config `mapstructure:"http"`
}

func (c Config) salesAccount(productType string) string {
	key := strings.ToLower(strings.TrimSpace(productType))
	for k, v := range c.CategoryAccounts {
		if strings.ToLower(k) == key && v != "" {
			return v
		}
	}
	return c.SalesAccount
}
