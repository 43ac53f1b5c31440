package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
)

// Template is a reusable quote layout that belongs to exactly one category.
type Template struct {
	ID          int       `gorm:"primary_key" json:"id"`
	CategoryId  int       `gorm:"not null;index" json:"category_id" binding:"required"`
	Name        string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Description string    `gorm:"size:255" json:"description"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTemplate struct {
	CategoryId  int    `json:"categoryId" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewTemplate) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Template](ctx, "", id); err != nil {
			return err
		}
	}
	// category
	if err := utils.ValidateResourceId[Category](ctx, "", input.CategoryId); err != nil {
		return err
	}
	// name
	if err := utils.ValidateUnique[Template](ctx, "", "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateTemplate(ctx context.Context, input *NewTemplate) (*Template, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	template := Template{
		CategoryId:  input.CategoryId,
		Name:        input.Name,
		Description: input.Description,
		IsActive:    utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&template).Error
	if err != nil {
		return nil, err
	}

	return &template, nil
}

func GetTemplate(ctx context.Context, id int) (*Template, error) {
	return utils.FetchSingleModel[Template](ctx, id)
}

func GetTemplates(ctx context.Context, categoryId *int) ([]*Template, error) {

	db := config.GetDB()
	var results []*Template

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
