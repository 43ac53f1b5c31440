package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/shopspring/decimal"
)

// Snapshot types mirror the catalog provider's wire shapes. The builder
// copies what it needs out of them at selection time; a later catalog edit
// never changes an existing draft.

type CategorySnapshot struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type TemplateSnapshot struct {
	ID          int    `json:"id"`
	CategoryId  int    `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type VariationSnapshot struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type ProductSnapshot struct {
	ID         int                 `json:"id"`
	CategoryId int                 `json:"categoryId"`
	Name       string              `json:"name"`
	Unit       string              `json:"unit"`
	BasePrice  decimal.Decimal     `json:"basePrice"`
	Variations []VariationSnapshot `json:"variations,omitempty"`
}

// UnitPriceFor picks the variation price when variationName is set,
// the base price otherwise.
func (p *ProductSnapshot) UnitPriceFor(variationName string) (decimal.Decimal, error) {
	if variationName == "" {
		return p.BasePrice, nil
	}
	for _, v := range p.Variations {
		if v.Name == variationName {
			return v.Price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("product %d has no variation %q", p.ID, variationName)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient falls back to CATALOG_URL when baseURL is empty.
func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = strings.TrimSpace(os.Getenv("CATALOG_URL"))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if c.baseURL == "" {
		return errors.New("catalog url is not configured")
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("catalog api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, dest)
}

func (c *Client) Categories(ctx context.Context) ([]*CategorySnapshot, error) {
	cached, err := utils.RetrieveRedisList[CategorySnapshot]("")
	if err == nil && cached != nil {
		return cached, nil
	}

	var categories []*CategorySnapshot
	if err := c.getJSON(ctx, "/api/categories", nil, &categories); err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[CategorySnapshot](categories, "")
	return categories, nil
}

func (c *Client) Templates(ctx context.Context, categoryId int) ([]*TemplateSnapshot, error) {
	scope := strconv.Itoa(categoryId)
	cached, err := utils.RetrieveRedisList[TemplateSnapshot](scope)
	if err == nil && cached != nil {
		return cached, nil
	}

	params := url.Values{}
	params.Set("categoryId", scope)
	var templates []*TemplateSnapshot
	if err := c.getJSON(ctx, "/api/templates", params, &templates); err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[TemplateSnapshot](templates, scope)
	return templates, nil
}

func (c *Client) Products(ctx context.Context, categoryId int) ([]*ProductSnapshot, error) {
	scope := strconv.Itoa(categoryId)
	cached, err := utils.RetrieveRedisList[ProductSnapshot](scope)
	if err == nil && cached != nil {
		return cached, nil
	}

	params := url.Values{}
	params.Set("categoryId", scope)
	var products []*ProductSnapshot
	if err := c.getJSON(ctx, "/api/products", params, &products); err != nil {
		return nil, err
	}
	_ = utils.StoreRedisList[ProductSnapshot](products, scope)
	return products, nil
}

// ResolveProduct finds one product inside the draft's category.
// Returns ErrorRecordNotFound when the id is not in that category.
func (c *Client) ResolveProduct(ctx context.Context, categoryId int, productId int) (*ProductSnapshot, error) {
	if cached, err := utils.RetrieveRedis[ProductSnapshot](productId); err == nil && cached != nil && cached.CategoryId == categoryId {
		return cached, nil
	}

	products, err := c.Products(ctx, categoryId)
	if err != nil {
		return nil, err
	}
	for _, product := range products {
		if product.ID == productId {
			_ = utils.StoreRedis[ProductSnapshot](product, productId)
			return product, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

// ResolveTemplate finds one template inside the draft's category.
// Returns ErrorRecordNotFound when the id is not in that category.
func (c *Client) ResolveTemplate(ctx context.Context, categoryId int, templateId int) (*TemplateSnapshot, error) {
	templates, err := c.Templates(ctx, categoryId)
	if err != nil {
		return nil, err
	}
	for _, template := range templates {
		if template.ID == templateId {
			return template, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}
