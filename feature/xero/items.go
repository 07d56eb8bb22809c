package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ledger-sync/core/domain"
	"ledger-sync/core/utils"

	"go.uber.org/zap"
)

const (
	archivedPrefix = "[ARCHIVED] "
	maxItemName    = 50
)

type itemDetails struct {
	UnitPrice   json.Number `json:"UnitPrice,omitempty"`
	AccountCode string      `json:"AccountCode,omitempty"`
	TaxType     string      `json:"TaxType,omitempty"`
}

type item struct {
	ItemID          string       `json:"ItemID,omitempty"`
	Code            string       `json:"Code"`
	Name            string       `json:"Name"`
	Description     string       `json:"Description,omitempty"`
	SalesDetails    *itemDetails `json:"SalesDetails,omitempty"`
	PurchaseDetails *itemDetails `json:"PurchaseDetails,omitempty"`
	IsSold          bool         `json:"IsSold"`
	IsPurchased     bool         `json:"IsPurchased"`
}

type items struct {
	Items []item `json:"Items"`
}

func (it item) active() bool {
	return it.IsSold || it.IsPurchased
}

func (it item) record() *domain.Record {
	status := "ACTIVE"
	if !it.active() {
		status = "ARCHIVED"
	}
	return &domain.Record{
		ID:         it.ItemID,
		NaturalKey: it.Code,
		Name:       it.Name,
		Status:     status,
		Active:     it.active(),
	}
}

func (c *Client) toItem(id string, p *domain.Product) item {
	out := item{
		ItemID:      id,
		Code:        p.SKU(),
		Name:        utils.Truncate(p.Title, maxItemName),
		Description: p.Title,
		SalesDetails: &itemDetails{
			AccountCode: c.cfg.salesAccount(p.ProductType),
			TaxType:     c.cfg.TaxType,
		},
		PurchaseDetails: &itemDetails{
			AccountCode: c.cfg.PurchaseAccount,
			TaxType:     c.cfg.PurchaseTaxType,
		},
		IsSold:      true,
		IsPurchased: true,
	}
	if v := p.PrimaryVariant(); v != nil {
		out.SalesDetails.UnitPrice = json.Number(v.Price.String())
	}
	return out
}

// FindItemByCode implements domain.ItemDestination.
func (c *Client) FindItemByCode(ctx context.Context, code string) (*domain.Record, error) {
	if code == "" {
		return nil, nil
	}
	var out items
	if _, err := c.http.JSON(ctx, http.MethodGet, "Items", where("Code", code), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	return out.Items[0].record(), nil
}

// GetItem implements domain.ItemDestination.
func (c *Client) GetItem(ctx context.Context, id string) (*domain.Record, error) {
	it, err := c.item(ctx, id)
	if err != nil || it == nil {
		return nil, err
	}
	return it.record(), nil
}

func (c *Client) item(ctx context.Context, id string) (*item, error) {
	var out items
	if _, err := c.http.JSON(ctx, http.MethodGet, "Items/"+url.PathEscape(id), nil, nil, &out); err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	return &out.Items[0], nil
}

// CreateItem implements domain.ItemDestination.
func (c *Client) CreateItem(ctx context.Context, p *domain.Product) (*domain.Record, error) {
	return c.saveItem(ctx, http.MethodPut, "Items", c.toItem("", p))
}

// UpdateItem implements domain.ItemDestination.
func (c *Client) UpdateItem(ctx context.Context, id string, p *domain.Product) (*domain.Record, error) {
	return c.saveItem(ctx, http.MethodPost, "Items/"+url.PathEscape(id), c.toItem(id, p))
}

// ArchiveItem implements domain.ItemDestination. Items that are already archived are left
// untouched.
func (c *Client) ArchiveItem(ctx context.Context, id string) error {
	it, err := c.item(ctx, id)
	if err != nil {
		return err
	}
	if it == nil {
		return fmt.Errorf("%s item %s: %w", service, id, domain.ErrNotFound)
	}
	if !it.active() && strings.HasPrefix(it.Name, archivedPrefix) {
		return nil
	}

	name := it.Name
	if !strings.HasPrefix(name, archivedPrefix) {
		name = archivedPrefix + name
	}
	payload := item{
		ItemID:      it.ItemID,
		Code:        it.Code,
		Name:        utils.Truncate(name, maxItemName),
		IsSold:      false,
		IsPurchased: false,
	}
	if _, err := c.saveItem(ctx, http.MethodPost, "Items/"+url.PathEscape(id), payload); err != nil {
		return err
	}
	c.logger.Info("Archived item", zap.String("item_id", id), zap.String("code", it.Code))
	return nil
}

func (c *Client) saveItem(ctx context.Context, method, path string, it item) (*domain.Record, error) {
	var out items
	if _, err := c.http.JSON(ctx, method, path, nil, items{Items: []item{it}}, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%s %s %s: empty response", service, method, path)
	}
	return out.Items[0].record(), nil
}
