package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/quotes_backend/utils"
)

func newCatalogTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":1,"name":"Construction"},
			{"id":2,"name":"Landscaping","description":"Garden and yard work"}
		]`)
	})
	mux.HandleFunc("/api/templates", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("categoryId") != "2" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[
			{"id":10,"categoryId":2,"name":"Standard landscaping"},
			{"id":11,"categoryId":2,"name":"Premium landscaping"}
		]`)
	})
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("categoryId") != "2" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[
			{"id":7,"categoryId":2,"name":"Lawn turf","unit":"sqm","basePrice":12.5,
			 "variations":[{"name":"Premium","price":150.5},{"name":"Budget","price":9.99}]},
			{"id":8,"categoryId":2,"name":"Fence panel","unit":"pc","basePrice":80}
		]`)
	})
	return httptest.NewServer(mux)
}

func TestCategoriesDecodesList(t *testing.T) {
	server := newCatalogTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	categories, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories got %d", len(categories))
	}
	if categories[1].Name != "Landscaping" || categories[1].Description == "" {
		t.Fatalf("unexpected category payload: %+v", categories[1])
	}
}

func TestTemplatesFiltersByCategory(t *testing.T) {
	server := newCatalogTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	templates, err := client.Templates(context.Background(), 2)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates got %d", len(templates))
	}
	if templates[0].CategoryId != 2 {
		t.Fatalf("expected categoryId 2 got %d", templates[0].CategoryId)
	}

	other, err := client.Templates(context.Background(), 99)
	if err != nil {
		t.Fatalf("templates other category: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty list got %d", len(other))
	}
}

func TestResolveProductSnapshotsPrices(t *testing.T) {
	server := newCatalogTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	product, err := client.ResolveProduct(context.Background(), 2, 7)
	if err != nil {
		t.Fatalf("resolve product: %v", err)
	}
	if product.Name != "Lawn turf" {
		t.Fatalf("unexpected product: %+v", product)
	}

	base, err := product.UnitPriceFor("")
	if err != nil {
		t.Fatalf("base price: %v", err)
	}
	if base.String() != "12.5" {
		t.Fatalf("expected base price 12.5 got %s", base.String())
	}

	premium, err := product.UnitPriceFor("Premium")
	if err != nil {
		t.Fatalf("variation price: %v", err)
	}
	if premium.String() != "150.5" {
		t.Fatalf("expected variation price 150.5 got %s", premium.String())
	}

	if _, err := product.UnitPriceFor("Gold"); err == nil {
		t.Fatal("expected error for unknown variation")
	}
}

func TestResolveProductNotFound(t *testing.T) {
	server := newCatalogTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ResolveProduct(context.Background(), 2, 999)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestResolveTemplateNotFound(t *testing.T) {
	server := newCatalogTestServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ResolveTemplate(context.Background(), 2, 999)
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}

	template, err := client.ResolveTemplate(context.Background(), 2, 11)
	if err != nil {
		t.Fatalf("resolve template: %v", err)
	}
	if template.Name != "Premium landscaping" {
		t.Fatalf("unexpected template: %+v", template)
	}
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "catalog exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Categories(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "catalog api error 500") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client := &Client{}
	if client.Configured() {
		t.Fatal("empty client should not report configured")
	}
	if _, err := client.Categories(context.Background()); err == nil {
		t.Fatal("expected error from unconfigured client")
	}
}
