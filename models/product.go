package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item. Variations (size, tier, colour)
// override the base price; they are stored as a JSON column because the
// store only ever serves them whole.
type Product struct {
	ID          int             `gorm:"primary_key" json:"id"`
	CategoryId  int             `gorm:"not null;index" json:"category_id" binding:"required"`
	Name        string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Description string          `gorm:"type:text" json:"description"`
	Unit        string          `gorm:"size:50" json:"unit"`
	BasePrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"base_price"`
	// JSON array of ProductVariationInfo.
	VariationsJSON []byte    `gorm:"type:json" json:"variations_json"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ProductVariationInfo struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func (p *Product) Variations() ([]ProductVariationInfo, error) {
	if len(p.VariationsJSON) == 0 {
		return nil, nil
	}
	var variations []ProductVariationInfo
	if err := json.Unmarshal(p.VariationsJSON, &variations); err != nil {
		return nil, err
	}
	return variations, nil
}

type NewProduct struct {
	CategoryId  int                    `json:"categoryId" binding:"required"`
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	Unit        string                 `json:"unit"`
	BasePrice   decimal.Decimal        `json:"basePrice"`
	Variations  []ProductVariationInfo `json:"variations"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewProduct) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Product](ctx, "", id); err != nil {
			return err
		}
	}
	// category
	if err := utils.ValidateResourceId[Category](ctx, "", input.CategoryId); err != nil {
		return err
	}
	// name
	if err := utils.ValidateUnique[Product](ctx, "", "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	variationsJSON, err := json.Marshal(input.Variations)
	if err != nil {
		return nil, err
	}

	product := Product{
		CategoryId:     input.CategoryId,
		Name:           input.Name,
		Description:    input.Description,
		Unit:           input.Unit,
		BasePrice:      input.BasePrice,
		VariationsJSON: variationsJSON,
		IsActive:       utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Create(&product).Error
	if err != nil {
		return nil, err
	}

	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return utils.FetchSingleModel[Product](ctx, id)
}

func GetProducts(ctx context.Context, categoryId *int) ([]*Product, error) {

	db := config.GetDB()
	var results []*Product

	dbCtx := db.WithContext(ctx).Where("is_active = ?", true)
	if categoryId != nil && *categoryId > 0 {
		dbCtx = dbCtx.Where("category_id = ?", *categoryId)
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
