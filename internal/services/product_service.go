// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/needus/ecommerce-backend/internal/apperr"
	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository"
	"github.com/needus/ecommerce-backend/internal/utils"
)

const productResource = "product"

// Prices are stored as decimal(10,2).
var maxPrice = decimal.New(1, 8)

type ProductService struct {
	store        repository.Store
	images       *ProductImageService
	maxImageSize int64
	catalog      config.CatalogConfig
}

// UploadedFile is a file received with a product form.
type UploadedFile struct {
	Name string
	Data []byte
}

type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description" validate:"required"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	BrandID     uuid.UUID        `json:"brand_id"`
	CategoryID  uuid.UUID        `json:"category_id"`
	FilterIDs   []uuid.UUID      `json:"filter_ids"`
	Images      []UploadedFile   `json:"-"`
}

// UpdateProductRequest carries optional fields. Nil pointers, blank strings
// and an empty filter list leave the stored value alone.
type UpdateProductRequest struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	BrandID     *uuid.UUID
	CategoryID  *uuid.UUID
	FilterIDs   []uuid.UUID
	Images      []UploadedFile
}

type UpdateResult struct {
	Product *models.Product `json:"product"`
	Changes []string        `json:"changes"`
	Summary string          `json:"summary"`
}

func (r *UpdateResult) Changed() bool {
	return len(r.Changes) > 0
}

type ProductView struct {
	*models.Product
	ImageURLs []string `json:"image_urls"`
}

// ProductForm is the data behind the add and edit product screens.
type ProductForm struct {
	Product    *ProductView           `json:"product,omitempty"`
	Brands     []models.Brand         `json:"brands"`
	Categories []models.Category      `json:"categories"`
	Filters    []models.ProductFilter `json:"filters"`
}

func NewProductService(store repository.Store, images *ProductImageService, cfg *config.Config) *ProductService {
	return &ProductService{
		store:        store,
		images:       images,
		maxImageSize: cfg.Storage.MaxImageSize,
		catalog:      cfg.Catalog,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, userID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	log := logrus.WithFields(logrus.Fields{"op": "create_product", "user_id": userID})

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailure(err)
	}
	if req.Price == nil {
		return nil, apperr.Validation("Price is required")
	}
	if err := checkPrice(*req.Price); err != nil {
		return nil, err
	}
	if req.Stock == nil {
		return nil, apperr.Validation("Stock is required")
	}
	if *req.Stock < 0 {
		return nil, apperr.Validation("Stock must not be negative")
	}

	if err := s.requireActiveBrand(ctx, req.BrandID, log); err != nil {
		return nil, err
	}
	if err := s.requireActiveCategory(ctx, req.CategoryID, log); err != nil {
		return nil, err
	}

	var filterIDs []uuid.UUID
	if len(req.FilterIDs) > 0 {
		ids, err := s.resolveFilters(ctx, req.FilterIDs, log)
		if err != nil {
			return nil, err
		}
		filterIDs = ids
	}

	uploads, err := s.prepareUploads(req.Images)
	if err != nil {
		return nil, err
	}
	names, err := s.images.StoreUploads(ctx, uploads)
	if err != nil {
		log.WithError(err).Error("Failed to store product images")
		return nil, apperr.Storage("Failed to store image", err)
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
		Status:      models.ProductStatusActive,
		UserID:      userID,
		BrandID:     req.BrandID,
		CategoryID:  req.CategoryID,
		FilterIDs:   filterIDs,
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Products().Save(ctx, product); err != nil {
			return err
		}
		images, err := s.images.AttachRecords(ctx, tx, product.ID, names)
		if err != nil {
			return err
		}
		product.Images = images

		return tx.Audits().Create(ctx, newAuditLog(ctx, "product.create", productResource, product.ID,
			[]string{"name", "description", "price", "stock", "brand", "category", "filters", "images"},
			nil, productSnapshot(product)))
	})
	if err != nil {
		s.images.DiscardNames(ctx, names)
		log.WithError(err).Error("Failed to save product")
		return nil, apperr.Unexpected("Something went wrong while saving the product", err)
	}

	log.WithField("product_id", product.ID).Info("Product created")
	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	log := logrus.WithFields(logrus.Fields{"op": "get_product", "product_id": id})

	product, err := s.findProduct(ctx, id, log)
	if err != nil {
		return nil, err
	}
	return s.view(product), nil
}

// ListProducts returns one page of products, newest first. page is 1-based.
func (s *ProductService) ListProducts(ctx context.Context, page, pageSize int) (*utils.PaginationResult, error) {
	params := utils.NewPaginationParams(page, pageSize, s.catalog.DefaultPageSize, s.catalog.MaxPageSize)

	products, total, err := s.store.Products().FindPage(ctx, params.Offset(), params.PageSize)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"op":    "list_products",
			"page":  params.Page,
			"error": err,
		}).Error("Failed to list products")
		return nil, apperr.Unexpected("Something went wrong while fetching the products", err)
	}

	views := make([]*ProductView, len(products))
	for i := range products {
		views[i] = s.view(&products[i])
	}

	result := utils.CreatePaginationResult(views, total, params)
	return &result, nil
}

// ProductForm loads the selectable brands, categories and filters. When id
// is set the product being edited is included.
func (s *ProductService) ProductForm(ctx context.Context, id *uuid.UUID) (*ProductForm, error) {
	log := logrus.WithField("op", "product_form")
	form := &ProductForm{}

	if id != nil {
		log = log.WithField("product_id", *id)
		product, err := s.findProduct(ctx, *id, log)
		if err != nil {
			return nil, err
		}
		form.Product = s.view(product)
	}

	var err error
	if form.Brands, err = s.store.Brands().FindAllByDeletedFalse(ctx); err != nil {
		log.WithError(err).Error("Failed to fetch brands")
		return nil, apperr.Unexpected("Something went wrong while fetching the brands", err)
	}
	if form.Categories, err = s.store.Categories().FindAllByDeletedFalse(ctx); err != nil {
		log.WithError(err).Error("Failed to fetch categories")
		return nil, apperr.Unexpected("Something went wrong while fetching the categories", err)
	}
	if form.Filters, err = s.store.Filters().FindAll(ctx); err != nil {
		log.WithError(err).Error("Failed to fetch filters")
		return nil, apperr.Unexpected("Something went wrong while fetching the filters", err)
	}

	return form, nil
}

// UpdateProduct applies the fields of req that are present and differ from
// the stored product. Nothing is written when no field changes.
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest) (*UpdateResult, error) {
	log := logrus.WithFields(logrus.Fields{"op": "update_product", "product_id": id})

	current, err := s.findProduct(ctx, id, log)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.FilterIDs = append([]uuid.UUID(nil), current.FilterIDs...)
	diff := newChangeSet(log)

	if name, ok := presentString(req.Name); ok && name != current.Name {
		diff.record("name", current.Name, name)
		updated.Name = name
	}
	if description, ok := presentString(req.Description); ok && description != current.Description {
		diff.record("description", current.Description, description)
		updated.Description = description
	}
	if req.Price != nil {
		if err := checkPrice(*req.Price); err != nil {
			return nil, err
		}
		if !req.Price.Equal(current.Price) {
			diff.record("price", current.Price.String(), req.Price.String())
			updated.Price = *req.Price
		}
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, apperr.Validation("Stock must not be negative")
		}
		if *req.Stock != current.Stock {
			diff.record("stock", current.Stock, *req.Stock)
			updated.Stock = *req.Stock
		}
	}

	if brandID, ok := presentID(req.BrandID); ok {
		if err := s.requireActiveBrand(ctx, brandID, log); err != nil {
			return nil, err
		}
		if brandID != current.BrandID {
			diff.record("brand", current.BrandID.String(), brandID.String())
			updated.BrandID = brandID
		}
	} else if err := s.requireExisting(ctx, s.store.Brands().ExistsByID, current.BrandID, "Product brand no longer exists", log); err != nil {
		return nil, err
	}

	if categoryID, ok := presentID(req.CategoryID); ok {
		if err := s.requireActiveCategory(ctx, categoryID, log); err != nil {
			return nil, err
		}
		if categoryID != current.CategoryID {
			diff.record("category", current.CategoryID.String(), categoryID.String())
			updated.CategoryID = categoryID
		}
	} else if err := s.requireExisting(ctx, s.store.Categories().ExistsByID, current.CategoryID, "Product category no longer exists", log); err != nil {
		return nil, err
	}

	if len(req.FilterIDs) > 0 {
		filterIDs, err := s.resolveFilters(ctx, req.FilterIDs, log)
		if err != nil {
			return nil, err
		}
		if !sameIDs(filterIDs, current.FilterIDs) {
			diff.record("filters", joinIDs(current.FilterIDs), joinIDs(filterIDs))
			updated.FilterIDs = filterIDs
		}
	}

	uploads, err := s.prepareUploads(req.Images)
	if err != nil {
		return nil, err
	}

	if diff.empty() && len(uploads) == 0 {
		log.Debug("Product update without changes")
		return &UpdateResult{
			Product: current,
			Summary: fmt.Sprintf("Product : %s has no changes", current.Name),
		}, nil
	}

	names, err := s.images.StoreUploads(ctx, uploads)
	if err != nil {
		log.WithError(err).Error("Failed to store product images")
		return nil, apperr.Storage("Failed to store image", err)
	}
	if len(names) > 0 {
		diff.record("images", len(current.Images), len(names))
	}

	var discardOld func(context.Context) int
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if len(names) > 0 {
			images, err := s.images.AttachRecords(ctx, tx, id, names)
			if err != nil {
				return err
			}
			updated.Images = images

			discardOld, err = s.images.RemoveProductImages(ctx, tx, current.Images)
			if err != nil {
				return err
			}
		}

		if err := tx.Products().Save(ctx, &updated); err != nil {
			return err
		}
		return tx.Audits().Create(ctx, newAuditLog(ctx, "product.update", productResource, id,
			diff.fields, diff.oldValues, diff.newValues))
	})
	if err != nil {
		s.images.DiscardNames(ctx, names)
		log.WithError(err).Error("Failed to update product")
		return nil, apperr.Unexpected("Something went wrong while updating the product", err)
	}

	if discardOld != nil {
		removed := discardOld(ctx)
		log.WithFields(logrus.Fields{
			"removed": removed,
			"total":   len(current.Images),
		}).Debug("Discarded replaced product images")
	}

	return &UpdateResult{
		Product: &updated,
		Changes: diff.fields,
		Summary: fmt.Sprintf("Product : %s is updated (%s)", updated.Name, strings.Join(diff.fields, ", ")),
	}, nil
}

// ToggleBlock flips the product between active and blocked.
func (s *ProductService) ToggleBlock(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	log := logrus.WithFields(logrus.Fields{"op": "toggle_block", "product_id": id})

	product, err := s.findProduct(ctx, id, log)
	if err != nil {
		return nil, err
	}

	previous := product.Status
	if previous == "" {
		previous = models.ProductStatusActive
	}
	product.Status = previous.Toggled()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Products().Save(ctx, product); err != nil {
			return err
		}
		return tx.Audits().Create(ctx, newAuditLog(ctx, "product.toggle_block", productResource, id,
			[]string{"status"},
			models.JSONB{"status": string(previous)},
			models.JSONB{"status": string(product.Status)}))
	})
	if err != nil {
		log.WithError(err).Error("Failed to toggle product status")
		return nil, apperr.Unexpected("Something went wrong while blocking the product", err)
	}

	log.WithField("status", product.Status).Info("Product status changed")
	return product, nil
}

// DeleteProduct removes the product with its image records. Files are
// removed after the records are gone.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	log := logrus.WithFields(logrus.Fields{"op": "delete_product", "product_id": id})

	product, err := s.findProduct(ctx, id, log)
	if err != nil {
		return err
	}

	var discardFiles func(context.Context) int
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if discardFiles, err = s.images.RemoveProductImages(ctx, tx, product.Images); err != nil {
			return err
		}
		if err := tx.Products().DeleteByID(ctx, id); err != nil {
			return err
		}
		return tx.Audits().Create(ctx, newAuditLog(ctx, "product.delete", productResource, id,
			nil, productSnapshot(product), nil))
	})
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Product not found")
	}
	if err != nil {
		log.WithError(err).Error("Failed to delete product")
		return apperr.Unexpected("Something went wrong while deleting the product", err)
	}

	discardFiles(ctx)
	log.Info("Product deleted")
	return nil
}

// RequireProduct fails with NotFound when no product has the id.
func (s *ProductService) RequireProduct(ctx context.Context, id uuid.UUID) error {
	found, err := s.store.Products().ExistsByID(ctx, id)
	if err != nil {
		logrus.WithFields(logrus.Fields{"op": "require_product", "product_id": id, "error": err}).Error("Failed to check product")
		return apperr.Unexpected("Something went wrong while fetching the product", err)
	}
	if !found {
		return apperr.NotFound("Product not found")
	}
	return nil
}

func (s *ProductService) findProduct(ctx context.Context, id uuid.UUID, log *logrus.Entry) (*models.Product, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		log.WithError(err).Error("Failed to fetch product")
		return nil, apperr.Unexpected("Something went wrong while fetching the product", err)
	}
	return product, nil
}

func (s *ProductService) requireActiveBrand(ctx context.Context, id uuid.UUID, log *logrus.Entry) error {
	if id == uuid.Nil {
		return apperr.Validation("Brand is required")
	}
	brand, err := s.store.Brands().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Validation("Brand not found")
	}
	if err != nil {
		log.WithError(err).Error("Failed to fetch brand")
		return apperr.Unexpected("Something went wrong while fetching the brand", err)
	}
	if brand.Deleted {
		return apperr.Validation(fmt.Sprintf("Brand %s is no longer available", brand.Name))
	}
	return nil
}

func (s *ProductService) requireActiveCategory(ctx context.Context, id uuid.UUID, log *logrus.Entry) error {
	if id == uuid.Nil {
		return apperr.Validation("Category is required")
	}
	category, err := s.store.Categories().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Validation("Category not found")
	}
	if err != nil {
		log.WithError(err).Error("Failed to fetch category")
		return apperr.Unexpected("Something went wrong while fetching the category", err)
	}
	if category.Deleted {
		return apperr.Validation(fmt.Sprintf("Category %s is no longer available", category.Name))
	}
	return nil
}

// requireExisting checks a reference the request left untouched. Soft
// deleted rows still count as existing.
func (s *ProductService) requireExisting(ctx context.Context, exists func(context.Context, uuid.UUID) (bool, error), id uuid.UUID, message string, log *logrus.Entry) error {
	ok, err := exists(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to check product reference")
		return apperr.Unexpected("Something went wrong while checking the product references", err)
	}
	if !ok {
		return apperr.Validation(message)
	}
	return nil
}

// resolveFilters drops duplicates, keeping the first occurrence, and checks
// that every filter exists.
func (s *ProductService) resolveFilters(ctx context.Context, requested []uuid.UUID, log *logrus.Entry) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(requested))
	ids := make([]uuid.UUID, 0, len(requested))
	for _, id := range requested {
		if id == uuid.Nil {
			return nil, apperr.Validation("Invalid filter")
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	found, err := s.store.Filters().FindByIDs(ctx, ids)
	if err != nil {
		log.WithError(err).Error("Failed to fetch filters")
		return nil, apperr.Unexpected("Something went wrong while fetching the filters", err)
	}
	if len(found) != len(ids) {
		return nil, apperr.Validation("One or more filters do not exist")
	}
	return ids, nil
}

// prepareUploads skips empty files and validates the rest.
func (s *ProductService) prepareUploads(files []UploadedFile) ([]UploadedFile, error) {
	uploads := make([]UploadedFile, 0, len(files))
	for _, file := range files {
		if len(file.Data) == 0 {
			continue
		}
		if err := ValidateImage(file.Data, s.maxImageSize); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("%s: %v", file.Name, err))
		}
		uploads = append(uploads, file)
	}
	return uploads, nil
}

func (s *ProductService) view(product *models.Product) *ProductView {
	return &ProductView{Product: product, ImageURLs: s.images.URLs(product.Images)}
}

// changeSet collects the staged field changes for the audit row.
type changeSet struct {
	log       *logrus.Entry
	fields    []string
	oldValues models.JSONB
	newValues models.JSONB
}

func newChangeSet(log *logrus.Entry) *changeSet {
	return &changeSet{log: log, oldValues: models.JSONB{}, newValues: models.JSONB{}}
}

func (c *changeSet) record(field string, oldValue, newValue interface{}) {
	c.fields = append(c.fields, field)
	c.oldValues[field] = oldValue
	c.newValues[field] = newValue
	c.log.WithFields(logrus.Fields{
		"field": field,
		"old":   oldValue,
		"new":   newValue,
	}).Info("Product field changed")
}

func (c *changeSet) empty() bool {
	return len(c.fields) == 0
}

func presentString(value *string) (string, bool) {
	if value == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(*value)
	return trimmed, trimmed != ""
}

func presentID(value *uuid.UUID) (uuid.UUID, bool) {
	if value == nil || *value == uuid.Nil {
		return uuid.Nil, false
	}
	return *value, true
}

func sameIDs(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func productSnapshot(product *models.Product) models.JSONB {
	return models.JSONB{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price.String(),
		"stock":       product.Stock,
		"status":      string(product.Status),
		"brand":       product.BrandID.String(),
		"category":    product.CategoryID.String(),
		"filters":     joinIDs(product.FilterIDs),
		"images":      len(product.Images),
	}
}

// checkPrice rejects prices the price column cannot hold exactly.
func checkPrice(price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return apperr.Validation("Price must not be negative")
	case !price.Equal(price.Truncate(2)):
		return apperr.Validation("Price must have at most 2 decimal places")
	case price.GreaterThanOrEqual(maxPrice):
		return apperr.Validation("Price must be less than " + maxPrice.String())
	}
	return nil
}

func validationFailure(err error) error {
	if details := utils.GetValidationErrors(err); len(details) > 0 {
		return apperr.Validation(details[0].Message)
	}
	return apperr.Validation(err.Error())
}
