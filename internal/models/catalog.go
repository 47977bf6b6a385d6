// internal/models/catalog.go
package models

type Brand struct {
	BaseModel
	Name    string `json:"name" gorm:"size:100;not null"`
	Deleted bool   `json:"deleted" gorm:"default:false;index"`
}

type Category struct {
	BaseModel
	Name    string `json:"name" gorm:"size:100;not null"`
	Deleted bool   `json:"deleted" gorm:"default:false;index"`
}

type ProductFilter struct {
	BaseModel
	Label string `json:"label" gorm:"size:100;not null;uniqueIndex"`
}
