// Package repository is the persistence gateway for catalog, order and user records.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/needus/ecommerce-backend/internal/models"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("record not found")

type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	// FindPage returns products newest first together with the total count.
	FindPage(ctx context.Context, offset, limit int) ([]models.Product, int64, error)
	// Save inserts or updates the product columns and replaces its filter tags.
	// Images are managed through ImageRepository.
	Save(ctx context.Context, product *models.Product) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type ImageRepository interface {
	Save(ctx context.Context, image *models.ProductImage) error
	FindByProductID(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
}

type BrandRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Brand, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	FindAllByDeletedFalse(ctx context.Context) ([]models.Brand, error)
	Save(ctx context.Context, brand *models.Brand) error
}

type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	FindAllByDeletedFalse(ctx context.Context) ([]models.Category, error)
	Save(ctx context.Context, category *models.Category) error
}

type FilterRepository interface {
	FindAll(ctx context.Context) ([]models.ProductFilter, error)
	// FindByIDs returns the filters that exist, in no particular order.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ProductFilter, error)
	Save(ctx context.Context, filter *models.ProductFilter) error
}

type OrderRepository interface {
	FindByStatus(ctx context.Context, status models.OrderStatus) ([]models.UserOrder, error)
	FindByStatuses(ctx context.Context, statuses []models.OrderStatus) ([]models.UserOrder, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.UserOrder, error)
	Save(ctx context.Context, order *models.UserOrder) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context, role models.UserRole) (int64, error)
	Save(ctx context.Context, user *models.User) error
}

type TokenRepository interface {
	FindByToken(ctx context.Context, token string) (*models.ConfirmationToken, error)
	Save(ctx context.Context, token *models.ConfirmationToken) error
}

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	FindByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]models.AuditLog, error)
}

// Store groups the repositories. Repositories obtained from the Store passed to
// a Transaction callback share that transaction.
type Store interface {
	Products() ProductRepository
	Images() ImageRepository
	Brands() BrandRepository
	Categories() CategoryRepository
	Filters() FilterRepository
	Orders() OrderRepository
	Users() UserRepository
	Tokens() TokenRepository
	Audits() AuditRepository

	Transaction(ctx context.Context, fn func(tx Store) error) error
}
