package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/needus/ecommerce-backend/internal/models"
)

type productRepository struct {
	db *gorm.DB
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Images", orderedImages).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}

	products := []models.Product{product}
	if err := r.loadFilterIDs(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (r *productRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, &models.Product{}, "id = ?", id)
}

func (r *productRepository) FindPage(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("Images", orderedImages).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	if err := r.loadFilterIDs(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) Save(ctx context.Context, product *models.Product) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(product).Error; err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	if err := db.Where("product_id = ?", product.ID).Delete(&models.ProductFilterTag{}).Error; err != nil {
		return fmt.Errorf("failed to clear filter tags: %w", err)
	}
	if len(product.FilterIDs) == 0 {
		return nil
	}

	tags := make([]models.ProductFilterTag, 0, len(product.FilterIDs))
	for i, filterID := range product.FilterIDs {
		tags = append(tags, models.ProductFilterTag{ProductID: product.ID, FilterID: filterID, Position: i})
	}
	if err := db.Create(&tags).Error; err != nil {
		return fmt.Errorf("failed to save filter tags: %w", err)
	}
	return nil
}

func (r *productRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&models.ProductFilterTag{}).Error; err != nil {
		return fmt.Errorf("failed to delete filter tags: %w", err)
	}

	result := db.Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) loadFilterIDs(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	var tags []models.ProductFilterTag
	if err := r.db.WithContext(ctx).Where("product_id IN ?", ids).
		Order("position ASC").Find(&tags).Error; err != nil {
		return fmt.Errorf("failed to load filter tags: %w", err)
	}

	byProduct := make(map[uuid.UUID][]uuid.UUID, len(products))
	for _, tag := range tags {
		byProduct[tag.ProductID] = append(byProduct[tag.ProductID], tag.FilterID)
	}
	for i := range products {
		products[i].FilterIDs = byProduct[products[i].ID]
	}
	return nil
}

type imageRepository struct {
	db *gorm.DB
}

func (r *imageRepository) Save(ctx context.Context, image *models.ProductImage) error {
	if err := r.db.WithContext(ctx).Save(image).Error; err != nil {
		return fmt.Errorf("failed to save product image: %w", err)
	}
	return nil
}

func (r *imageRepository) FindByProductID(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	var images []models.ProductImage
	if err := orderedImages(r.db.WithContext(ctx)).
		Where("product_id = ?", productID).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch product images: %w", err)
	}
	return images, nil
}

func (r *imageRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Delete(&models.ProductImage{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete product images: %w", err)
	}
	return nil
}
