// internal/services/admin_service.go
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/needus/ecommerce-backend/internal/apperr"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository"
)

type AdminService struct {
	store repository.Store
}

type AdminDashboardStats struct {
	TotalProducts  int64                      `json:"total_products"`
	OrdersByStatus map[models.OrderStatus]int `json:"orders_by_status"`
	PendingOrders  []models.UserOrder         `json:"pending_orders"`
}

var orderStatuses = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusDelivered,
	models.OrderStatusRefunded,
	models.OrderStatusCanceled,
}

func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{store: store}
}

func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{OrdersByStatus: make(map[models.OrderStatus]int, len(orderStatuses))}

	// Product count
	_, total, err := s.store.Products().FindPage(ctx, 0, 1)
	if err != nil {
		logrus.WithError(err).Error("Failed to count products")
		return nil, apperr.Unexpected("Something went wrong while loading the dashboard", err)
	}
	stats.TotalProducts = total

	// Order statistics
	orders, err := s.store.Orders().FindByStatuses(ctx, orderStatuses)
	if err != nil {
		logrus.WithError(err).Error("Failed to load orders")
		return nil, apperr.Unexpected("Something went wrong while loading the dashboard", err)
	}
	for _, status := range orderStatuses {
		stats.OrdersByStatus[status] = 0
	}
	stats.PendingOrders = []models.UserOrder{}
	for _, order := range orders {
		stats.OrdersByStatus[order.Status]++
		if order.Status == models.OrderStatusPending {
			stats.PendingOrders = append(stats.PendingOrders, order)
		}
	}

	return stats, nil
}

// GetProductHistory returns the audit rows recorded for a product, oldest first.
func (s *AdminService) GetProductHistory(ctx context.Context, productID uuid.UUID) ([]models.AuditLog, error) {
	entries, err := s.store.Audits().FindByResource(ctx, productResource, productID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"product_id": productID, "error": err}).Error("Failed to load product history")
		return nil, apperr.Unexpected("Something went wrong while loading the product history", err)
	}
	return entries, nil
}
