package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkout-backend/services/cart-service/database"
	"checkout-backend/services/cart-service/models"
	"checkout-backend/services/cart-service/services"
	apperrors "checkout-backend/services/common/errors"
)

type CartController struct {
	repo      *database.CartRepository
	initiator *services.CheckoutInitiator
	logger    *zap.Logger
}

func NewCartController(repo *database.CartRepository, initiator *services.CheckoutInitiator, logger *zap.Logger) *CartController {
	return &CartController{repo: repo, initiator: initiator, logger: logger}
}

// GetCart returns the current cart for a user
func (cc *CartController) GetCart(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")

	cart, err := cc.repo.GetCart(c.Request.Context(), userID)
	if err != nil {
		cc.logger.Error("failed to get cart", zap.String("user_id", userID), zap.Error(err))
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}
	if cart == nil {
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}

	c.JSON(http.StatusOK, cart)
}

// AddItem adds or updates an item in the cart
func (cc *CartController) AddItem(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	var item models.CartItem

	if err := c.ShouldBindJSON(&item); err != nil {
		c.Error(apperrors.ErrBadRequest.WithCause(err))
		return
	}
	if item.ProductID == "" || item.Quantity <= 0 {
		c.Error(apperrors.ErrBadRequest.WithCause(fmt.Errorf("product id and positive quantity required")))
		return
	}

	ctx := c.Request.Context()
	cart, err := cc.repo.GetCart(ctx, userID)
	if err != nil {
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}
	if cart == nil {
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}

	if existing := cart.Find(item.ProductID); existing != nil {
		existing.Quantity += item.Quantity
	} else {
		cart.Items = append(cart.Items, item)
	}

	if err := cc.repo.SaveCart(ctx, cart); err != nil {
		cc.logger.Error("failed to save cart", zap.String("user_id", userID), zap.Error(err))
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}

	c.JSON(http.StatusOK, cart)
}

// RemoveItem removes a specific item from the cart
func (cc *CartController) RemoveItem(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	productID := c.Param("product_id")
	ctx := c.Request.Context()

	cart, err := cc.repo.GetCart(ctx, userID)
	if err != nil {
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}
	if cart == nil {
		c.Error(apperrors.ErrCartNotFound)
		return
	}

	if err := cc.repo.RemoveItems(ctx, userID, []string{productID}); err != nil {
		cc.logger.Error("failed to update cart", zap.String("user_id", userID), zap.Error(err))
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item removed"})
}

// ClearCart removes all items from the cart
func (cc *CartController) ClearCart(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")

	if err := cc.repo.DeleteCart(c.Request.Context(), userID); err != nil {
		cc.logger.Error("failed to clear cart", zap.String("user_id", userID), zap.Error(err))
		c.Error(apperrors.ErrInternalServer.WithCause(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}

// Checkout validates the request and starts the checkout saga. The response
// only confirms the saga has started; the outcome arrives via the
// notification channel, not this call.
func (cc *CartController) Checkout(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.Error(apperrors.ErrUnauthorized)
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.ErrBadRequest.WithCause(err))
		return
	}

	transactionID, err := cc.initiator.InitiateCheckout(c.Request.Context(), userID, &req)
	if err != nil {
		cc.logger.Error("checkout rejected", zap.String("user_id", userID), zap.Error(err))
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"transaction_id": transactionID,
		"message":        "checkout initiated",
	})
}
