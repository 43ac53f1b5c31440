package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
)

// Category is a catalog table shared by every company, so it carries no
// company scope.
type Category struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Description string    `gorm:"size:255" json:"description"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCategory struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewCategory) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Category](ctx, "", id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Category](ctx, "", "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	category := Category{
		Name:        input.Name,
		Description: input.Description,
		IsActive:    utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&category).Error
	if err != nil {
		return nil, err
	}

	return &category, nil
}

func GetCategory(ctx context.Context, id int) (*Category, error) {
	return utils.FetchSingleModel[Category](ctx, id)
}

func GetCategories(ctx context.Context) ([]*Category, error) {

	db := config.GetDB()
	var results []*Category

	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
