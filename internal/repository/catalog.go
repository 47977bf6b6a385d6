package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/needus/ecommerce-backend/internal/models"
)

type brandRepository struct {
	db *gorm.DB
}

func (r *brandRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.WithContext(ctx).First(&brand, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &brand, nil
}

func (r *brandRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, &models.Brand{}, "id = ?", id)
}

func (r *brandRepository) FindAllByDeletedFalse(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := r.db.WithContext(ctx).Where("deleted = ?", false).Order("name ASC").Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch brands: %w", err)
	}
	return brands, nil
}

func (r *brandRepository) Save(ctx context.Context, brand *models.Brand) error {
	if err := r.db.WithContext(ctx).Save(brand).Error; err != nil {
		return fmt.Errorf("failed to save brand: %w", err)
	}
	return nil
}

type categoryRepository struct {
	db *gorm.DB
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *categoryRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, &models.Category{}, "id = ?", id)
}

func (r *categoryRepository) FindAllByDeletedFalse(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Where("deleted = ?", false).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) Save(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

type filterRepository struct {
	db *gorm.DB
}

func (r *filterRepository) FindAll(ctx context.Context) ([]models.ProductFilter, error) {
	var filters []models.ProductFilter
	if err := r.db.WithContext(ctx).Order("label ASC").Find(&filters).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch filters: %w", err)
	}
	return filters, nil
}

func (r *filterRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ProductFilter, error) {
	var filters []models.ProductFilter
	if len(ids) == 0 {
		return filters, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&filters).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch filters: %w", err)
	}
	return filters, nil
}

func (r *filterRepository) Save(ctx context.Context, filter *models.ProductFilter) error {
	if err := r.db.WithContext(ctx).Save(filter).Error; err != nil {
		return fmt.Errorf("failed to save filter: %w", err)
	}
	return nil
}
