package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/payment-service/services"
)

type PaymentController struct {
	payments *services.PaymentService
	logger   *zap.Logger
}

func NewPaymentController(payments *services.PaymentService, logger *zap.Logger) *PaymentController {
	return &PaymentController{payments: payments, logger: logger}
}

// GetByOrder returns the payment record for an order.
func (pc *PaymentController) GetByOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.Error(apperrors.ErrBadRequest.WithCause(err))
		return
	}

	payment, err := pc.payments.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		pc.logger.Error("failed to fetch payment", zap.String("order_id", orderID.String()), zap.Error(err))
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}
	if payment == nil {
		c.Error(apperrors.ErrPaymentNotFound)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// GetByTransaction returns the payment record for a saga transaction.
func (pc *PaymentController) GetByTransaction(c *gin.Context) {
	transactionID := c.Param("transaction_id")

	payment, err := pc.payments.GetByTransactionID(c.Request.Context(), transactionID)
	if err != nil {
		pc.logger.Error("failed to fetch payment", zap.String("transaction_id", transactionID), zap.Error(err))
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}
	if payment == nil {
		c.Error(apperrors.ErrPaymentNotFound)
		return
	}

	c.JSON(http.StatusOK, payment)
}
