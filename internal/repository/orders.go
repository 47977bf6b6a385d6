package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/needus/ecommerce-backend/internal/models"
)

type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) FindByStatus(ctx context.Context, status models.OrderStatus) ([]models.UserOrder, error) {
	var orders []models.UserOrder
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("order_status = ?", status).Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch %s orders: %w", status, err)
	}
	return orders, nil
}

func (r *orderRepository) FindByStatuses(ctx context.Context, statuses []models.OrderStatus) ([]models.UserOrder, error) {
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}

	var orders []models.UserOrder
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("order_status = ANY(?)", pq.Array(values)).Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.UserOrder, error) {
	var orders []models.UserOrder
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) Save(ctx context.Context, order *models.UserOrder) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(order).Error; err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}
