package routes

import (
	"github.com/gin-gonic/gin"

	"checkout-backend/services/inventory-service/controllers"
)

func RegisterInventoryRoutes(r *gin.Engine, controller *controllers.InventoryController) {
	api := r.Group("/inventory")
	{
		api.GET("/:product_id", controller.GetStock)
		api.PUT("/", controller.SetStock)
		api.POST("/check", controller.CheckStock)
	}
}
