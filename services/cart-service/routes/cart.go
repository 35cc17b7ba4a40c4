package routes

import (
	"github.com/gin-gonic/gin"

	"checkout-backend/services/cart-service/controllers"
)

func RegisterCartRoutes(r *gin.Engine, controller *controllers.CartController) {
	api := r.Group("/cart")
	{
		api.GET("/", controller.GetCart)
		api.POST("/add", controller.AddItem)
		api.DELETE("/remove/:product_id", controller.RemoveItem)
		api.DELETE("/clear", controller.ClearCart)
		api.POST("/checkout", controller.Checkout)
	}
}
