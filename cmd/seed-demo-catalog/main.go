// seed-demo-catalog fills the quote store with a demo catalog (categories,
// templates, products with variations) for local runs. Safe to re-run:
// categories already present are skipped by name.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo-catalog
//
// Set REDIS_ADDRESS as well to clear cached catalog snapshots after seeding.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/quotes_backend/catalog"
	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type demoCategory struct {
	category  models.NewCategory
	templates []models.NewTemplate
	products  []models.NewProduct
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var demoCatalog = []demoCategory{
	{
		category: models.NewCategory{Name: "Landscaping", Description: "Outdoor works and garden builds"},
		templates: []models.NewTemplate{
			{Name: "Garden refresh", Description: "Turf, beds and edging"},
			{Name: "Full landscape build", Description: "Design, hardscape and planting"},
		},
		products: []models.NewProduct{
			{Name: "Lawn turf", Unit: "sqm", BasePrice: money("12.50"), Variations: []models.ProductVariationInfo{
				{Name: "Standard", Price: money("12.50")},
				{Name: "Premium", Price: money("18.00")},
			}},
			{Name: "Bed edging", Unit: "m", BasePrice: money("9.75")},
			{Name: "Irrigation line", Unit: "m", BasePrice: money("6.20")},
		},
	},
	{
		category: models.NewCategory{Name: "Kitchen renovation", Description: "Cabinetry and fit-out"},
		templates: []models.NewTemplate{
			{Name: "Cabinet replacement", Description: "Carcasses, doors and hardware"},
			{Name: "Full kitchen remodel", Description: "Strip-out, services and install"},
		},
		products: []models.NewProduct{
			{Name: "Base cabinet", Unit: "pc", BasePrice: money("240.00"), Variations: []models.ProductVariationInfo{
				{Name: "Laminate", Price: money("240.00")},
				{Name: "Oak veneer", Price: money("310.00")},
			}},
			{Name: "Benchtop", Unit: "m", BasePrice: money("185.00"), Variations: []models.ProductVariationInfo{
				{Name: "Laminate", Price: money("185.00")},
				{Name: "Stone", Price: money("420.00")},
			}},
			{Name: "Splashback tiling", Unit: "sqm", BasePrice: money("95.00")},
		},
	},
	{
		category: models.NewCategory{Name: "Solar installation", Description: "Rooftop PV systems"},
		templates: []models.NewTemplate{
			{Name: "Residential rooftop", Description: "Panels, inverter and mounting"},
		},
		products: []models.NewProduct{
			{Name: "PV panel 450W", Unit: "pc", BasePrice: money("175.00")},
			{Name: "Hybrid inverter", Unit: "pc", BasePrice: money("1150.00"), Variations: []models.ProductVariationInfo{
				{Name: "5kW", Price: money("1150.00")},
				{Name: "8kW", Price: money("1680.00")},
			}},
			{Name: "Mounting rail", Unit: "m", BasePrice: money("14.00")},
		},
	},
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	// Cache clears need a live client; skip them when the env has no redis.
	if strings.TrimSpace(os.Getenv("REDIS_ADDRESS")) != "" {
		config.ConnectRedisWithRetry()
	}

	models.MigrateTable()

	var categoryIds []int
	var productIds []int

	for _, seed := range demoCatalog {
		var existing models.Category
		err := db.WithContext(ctx).Where("name = ?", seed.category.Name).First(&existing).Error
		if err == nil {
			fmt.Printf("category %q already present; skipping\n", seed.category.Name)
			continue
		}
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup category %q: %v\n", seed.category.Name, err)
			os.Exit(1)
		}

		category, err := models.CreateCategory(ctx, &seed.category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create category %q: %v\n", seed.category.Name, err)
			os.Exit(1)
		}
		categoryIds = append(categoryIds, category.ID)

		for _, template := range seed.templates {
			template.CategoryId = category.ID
			if _, err := models.CreateTemplate(ctx, &template); err != nil {
				fmt.Fprintf(os.Stderr, "failed to create template %q: %v\n", template.Name, err)
				os.Exit(1)
			}
		}
		for _, product := range seed.products {
			product.CategoryId = category.ID
			created, err := models.CreateProduct(ctx, &product)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to create product %q: %v\n", product.Name, err)
				os.Exit(1)
			}
			productIds = append(productIds, created.ID)
		}

		fmt.Printf("seeded category %q with %d templates and %d products\n",
			category.Name, len(seed.templates), len(seed.products))
	}

	if len(categoryIds) == 0 {
		fmt.Println("nothing to seed")
		return
	}

	// Drop any cached snapshots so the next list reflects the new rows.
	_ = utils.RemoveRedisList[catalog.CategorySnapshot]("")
	_ = utils.RemoveRedisList[catalog.TemplateSnapshot]("")
	_ = utils.RemoveRedisList[catalog.ProductSnapshot]("")
	for _, id := range categoryIds {
		_ = utils.RemoveRedisList[catalog.TemplateSnapshot](strconv.Itoa(id))
		_ = utils.RemoveRedisList[catalog.ProductSnapshot](strconv.Itoa(id))
	}
	for _, id := range productIds {
		_ = utils.RemoveRedisItem[catalog.ProductSnapshot](id)
	}

	fmt.Printf("done: %d categories seeded\n", len(categoryIds))
}
