package routes

import (
	"github.com/gin-gonic/gin"

	"checkout-backend/services/order-service/controllers"
)

func RegisterOrderRoutes(r *gin.Engine, controller *controllers.OrderController) {
	api := r.Group("/orders")
	{
		api.GET("/", controller.ListOrders)
		api.GET("/:order_id", controller.GetOrder)
		api.POST("/:order_id/cancel", controller.CancelOrder)
		api.POST("/:order_id/confirm", controller.ConfirmOrder)
	}
}
