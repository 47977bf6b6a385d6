package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Products() ProductRepository    { return &productRepository{db: s.db} }
func (s *GormStore) Images() ImageRepository        { return &imageRepository{db: s.db} }
func (s *GormStore) Brands() BrandRepository        { return &brandRepository{db: s.db} }
func (s *GormStore) Categories() CategoryRepository { return &categoryRepository{db: s.db} }
func (s *GormStore) Filters() FilterRepository      { return &filterRepository{db: s.db} }
func (s *GormStore) Orders() OrderRepository        { return &orderRepository{db: s.db} }
func (s *GormStore) Users() UserRepository          { return &userRepository{db: s.db} }
func (s *GormStore) Tokens() TokenRepository        { return &tokenRepository{db: s.db} }
func (s *GormStore) Audits() AuditRepository        { return &auditRepository{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func exists(ctx context.Context, db *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(model).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
