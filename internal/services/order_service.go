// internal/services/order_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/needus/ecommerce-backend/internal/apperr"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository"
)

// OrderService is read only; orders are placed and fulfilled elsewhere.
type OrderService struct {
	store repository.Store
}

func NewOrderService(store repository.Store) *OrderService {
	return &OrderService{store: store}
}

// ParseOrderStatus accepts a status name in any case.
func ParseOrderStatus(value string) (models.OrderStatus, error) {
	status := models.OrderStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", apperr.Validation(fmt.Sprintf("Unknown order status %q", value))
	}
	return status, nil
}

func (s *OrderService) ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.UserOrder, error) {
	if !status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("Unknown order status %q", status))
	}

	orders, err := s.store.Orders().FindByStatus(ctx, status)
	if err != nil {
		logrus.WithFields(logrus.Fields{"status": status, "error": err}).Error("Failed to list orders")
		return nil, apperr.Unexpected("Something went wrong while fetching the orders", err)
	}
	return orders, nil
}

func (s *OrderService) ListByStatuses(ctx context.Context, statuses []models.OrderStatus) ([]models.UserOrder, error) {
	if len(statuses) == 0 {
		return nil, apperr.Validation("At least one order status is required")
	}
	for _, status := range statuses {
		if !status.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("Unknown order status %q", status))
		}
	}

	orders, err := s.store.Orders().FindByStatuses(ctx, statuses)
	if err != nil {
		logrus.WithFields(logrus.Fields{"statuses": statuses, "error": err}).Error("Failed to list orders")
		return nil, apperr.Unexpected("Something went wrong while fetching the orders", err)
	}
	return orders, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserOrder, error) {
	orders, err := s.store.Orders().FindByUserID(ctx, userID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err}).Error("Failed to list user orders")
		return nil, apperr.Unexpected("Something went wrong while fetching the orders", err)
	}
	return orders, nil
}
