package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "checkout-backend/services/common/errors"
	"checkout-backend/services/inventory-service/models"
	"checkout-backend/services/inventory-service/repository"
	"checkout-backend/services/inventory-service/services"
)

type InventoryController struct {
	svc    *services.InventoryService
	logger *zap.Logger
}

func NewInventoryController(svc *services.InventoryService, logger *zap.Logger) *InventoryController {
	return &InventoryController{svc: svc, logger: logger}
}

// GetStock returns the inventory record for one product.
func (ic *InventoryController) GetStock(c *gin.Context) {
	productID := c.Param("product_id")

	inv, err := ic.svc.GetStock(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.Error(apperrors.ErrNotFound.WithCause(err))
			return
		}
		ic.logger.Error("failed to get stock", zap.String("product_id", productID), zap.Error(err))
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}

	c.JSON(http.StatusOK, inv)
}

// SetStock upserts the inventory record for one product.
func (ic *InventoryController) SetStock(c *gin.Context) {
	var req models.SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.ErrBadRequest.WithCause(err))
		return
	}

	inv, err := ic.svc.SetStock(c.Request.Context(), &req)
	if err != nil {
		ic.logger.Error("failed to set stock", zap.String("product_id", req.ProductID), zap.Error(err))
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}

	c.JSON(http.StatusOK, inv)
}

// CheckStock reports availability for a set of requested lines.
func (ic *InventoryController) CheckStock(c *gin.Context) {
	var req models.CheckStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.ErrBadRequest.WithCause(err))
		return
	}

	results, err := ic.svc.CheckStock(c.Request.Context(), req.Items)
	if err != nil {
		ic.logger.Error("failed to check stock", zap.Error(err))
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
