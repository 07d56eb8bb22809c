package shopify

import (
	"strings"

	"ledger-sync/core/remote"
)

const (
	APITypeREST    = "rest"
	APITypeGraphQL = "graphql"
)

// Config holds the Shopify connection settings.
type Config struct {
	// ShopURL is the store base URL, e.g. https://example.myshopify.com.
	ShopURL     string `mapstructure:"shop_url" default:"" validate:"required,url"`
	AccessToken string `mapstructure:"access_token" default:"" validate:"required"`
	APIVersion  string `mapstructure:"api_version" default:"2024-01" validate:"required"`
	// APIType selects the transport, rest or graphql.
	APIType string `mapstructure:"api_type" default:"graphql" validate:"oneof=rest graphql"`
	// PageSize is the number of records requested per page.
	PageSize int `mapstructure:"page_size" default:"250" validate:"min=1,max=250"`
	// HTTP is the retry and pacing policy of API calls.
	HTTP remote.Config `mapstructure:"http"`
}

func (c Config) baseURL() string {
	return strings.TrimRight(c.ShopURL, "/") + "/admin/api/" + c.APIVersion
}

func (c Config) pageSize() int {
	if c.PageSize <= 0 || c.PageSize > 250 {
		return 250
	}
	return c.PageSize
}
