// internal/handlers/order.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/needus/ecommerce-backend/internal/i18n"
	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/services"
	"github.com/needus/ecommerce-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// GET /admin/orders?status=PENDING
// Several statuses may be given comma separated. Without a status the
// pending orders are listed.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	raw := c.DefaultQuery("status", string(models.OrderStatusPending))

	var statuses []models.OrderStatus
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		status, err := services.ParseOrderStatus(part)
		if err != nil {
			respondError(c, err)
			return
		}
		statuses = append(statuses, status)
	}

	var (
		orders []models.UserOrder
		err    error
	)
	if len(statuses) == 1 {
		orders, err = h.orderService.ListByStatus(c.Request.Context(), statuses[0])
	} else {
		orders, err = h.orderService.ListByStatuses(c.Request.Context(), statuses)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"orders": orders})
}

// GET /admin/orders/user/:id
func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "user id"), nil)
		return
	}

	orders, err := h.orderService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"orders": orders})
}
