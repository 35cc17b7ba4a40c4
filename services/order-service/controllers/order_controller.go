package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/order-service/services"
)

type OrderController struct {
	orders *services.OrderService
	logger *zap.Logger
}

func NewOrderController(orders *services.OrderService, logger *zap.Logger) *OrderController {
	return &OrderController{orders: orders, logger: logger}
}

// GetOrder returns a single order by id.
func (oc *OrderController) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.Error(apperrors.ErrBadRequest.WithCause(err))
		return
	}

	order, err := oc.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		oc.fail(c, err, "failed to fetch order")
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders returns a page of the caller's orders.
func (oc *OrderController) ListOrders(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.Error(apperrors.ErrUnauthorized)
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	resp, err := oc.orders.GetUserOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		oc.fail(c, err, "failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelOrder cancels an order if its state still allows it.
func (oc *OrderController) CancelOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.Error(apperrors.ErrBadRequest.WithCause(err))
		return
	}

	order, err := oc.orders.CancelOrder(c.Request.Context(), id)
	if err != nil {
		oc.fail(c, err, "failed to cancel order")
		return
	}

	c.JSON(http.StatusOK, order)
}

// ConfirmOrder moves a paid order into fulfillment.
func (oc *OrderController) ConfirmOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.Error(apperrors.ErrBadRequest.WithCause(err))
		return
	}

	order, err := oc.orders.ConfirmOrder(c.Request.Context(), id)
	if err != nil {
		oc.fail(c, err, "failed to confirm order")
		return
	}

	c.JSON(http.StatusOK, order)
}

// fail logs unexpected errors before handing them to the error middleware.
func (oc *OrderController) fail(c *gin.Context, err error, msg string) {
	oc.logger.Error(msg, zap.Error(err))
	c.Error(err)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
