package routes

import (
	"github.com/gin-gonic/gin"

	"checkout-backend/services/payment-service/controllers"
)

func RegisterPaymentRoutes(r *gin.Engine, controller *controllers.PaymentController) {
	api := r.Group("/payments")
	{
		api.GET("/order/:order_id", controller.GetByOrder)
		api.GET("/transaction/:transaction_id", controller.GetByTransaction)
	}
}
