// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/needus/ecommerce-backend/internal/apperr"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository"
	"github.com/needus/ecommerce-backend/internal/utils"
)

// CatalogService manages the lookups products point at: brands, categories
// and filter tags.
type CatalogService struct {
	store repository.Store
}

type CatalogEntryRequest struct {
	Name string `json:"name" form:"name" validate:"required,max=100"`
}

func NewCatalogService(store repository.Store) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	brands, err := s.store.Brands().FindAllByDeletedFalse(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list brands")
		return nil, apperr.Unexpected("Something went wrong while fetching the brands", err)
	}
	return brands, nil
}

func (s *CatalogService) CreateBrand(ctx context.Context, req *CatalogEntryRequest) (*models.Brand, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailure(err)
	}

	brand := &models.Brand{Name: req.Name}
	if err := s.store.Brands().Save(ctx, brand); err != nil {
		logrus.WithError(err).Error("Failed to create brand")
		return nil, apperr.Unexpected("Something went wrong while saving the brand", err)
	}
	return brand, nil
}

// DeleteBrand soft deletes the brand. Products keep pointing at it.
func (s *CatalogService) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	brand, err := s.store.Brands().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Brand not found")
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"brand_id": id, "error": err}).Error("Failed to fetch brand")
		return apperr.Unexpected("Something went wrong while fetching the brand", err)
	}

	brand.Deleted = true
	if err := s.store.Brands().Save(ctx, brand); err != nil {
		logrus.WithFields(logrus.Fields{"brand_id": id, "error": err}).Error("Failed to delete brand")
		return apperr.Unexpected("Something went wrong while deleting the brand", err)
	}
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.Categories().FindAllByDeletedFalse(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list categories")
		return nil, apperr.Unexpected("Something went wrong while fetching the categories", err)
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, req *CatalogEntryRequest) (*models.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailure(err)
	}

	category := &models.Category{Name: req.Name}
	if err := s.store.Categories().Save(ctx, category); err != nil {
		logrus.WithError(err).Error("Failed to create category")
		return nil, apperr.Unexpected("Something went wrong while saving the category", err)
	}
	return category, nil
}

// DeleteCategory soft deletes the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	category, err := s.store.Categories().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Category not found")
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"category_id": id, "error": err}).Error("Failed to fetch category")
		return apperr.Unexpected("Something went wrong while fetching the category", err)
	}

	category.Deleted = true
	if err := s.store.Categories().Save(ctx, category); err != nil {
		logrus.WithFields(logrus.Fields{"category_id": id, "error": err}).Error("Failed to delete category")
		return apperr.Unexpected("Something went wrong while deleting the category", err)
	}
	return nil
}

func (s *CatalogService) ListFilters(ctx context.Context) ([]models.ProductFilter, error) {
	filters, err := s.store.Filters().FindAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list filters")
		return nil, apperr.Unexpected("Something went wrong while fetching the filters", err)
	}
	return filters, nil
}

func (s *CatalogService) CreateFilter(ctx context.Context, req *CatalogEntryRequest) (*models.ProductFilter, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailure(err)
	}

	filter := &models.ProductFilter{Label: req.Name}
	if err := s.store.Filters().Save(ctx, filter); err != nil {
		logrus.WithError(err).Error("Failed to create filter")
		return nil, apperr.Unexpected("Something went wrong while saving the filter", err)
	}
	return filter, nil
}
