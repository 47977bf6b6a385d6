// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	Status      ProductStatus   `json:"status" gorm:"type:varchar(20);default:'active';index"`
	UserID      uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	BrandID     uuid.UUID       `json:"brand_id" gorm:"type:uuid;not null;index"`
	CategoryID  uuid.UUID       `json:"category_id" gorm:"type:uuid;not null;index"`

	// Ordered filter tag references, persisted through product_filter_tags.
	FilterIDs []uuid.UUID `json:"filter_ids" gorm:"-"`

	// Relationships
	Images []ProductImage `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (p *Product) Active() bool {
	return p.Status != ProductStatusBlocked
}

// ProductImage is a stored attachment owned by exactly one product.
type ProductImage struct {
	BaseModel
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	FileName  string    `json:"file_name" gorm:"size:512;not null"`
	Position  int       `json:"position" gorm:"not null;default:0"`
}

// ProductFilterTag is the ordered join row between products and filter tags.
type ProductFilterTag struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	FilterID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position  int       `gorm:"not null;default:0"`
}
