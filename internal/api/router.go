package api

import (
	"github.com/example/promo-cart/internal/api/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(handlers *Handlers, allowedOrigins []string, log *zap.Logger) *gin.Engine {
	log = log.Named("http")
	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.RequestLogger(log), middleware.CORS(allowedOrigins))

	router.GET("/healthz", handlers.Health)

	// Products
	router.GET("/products", handlers.GetProducts)
	router.GET("/products/:productId", handlers.GetProduct)

	// Cart
	cartGroup := router.Group("/cart")
	cartGroup.GET("", handlers.GetCart)
	cartGroup.DELETE("", handlers.ClearCart)
	cartGroup.GET("/history", handlers.GetHistory)
	cartGroup.POST("/items", handlers.AddToCart)
	cartGroup.PATCH("/items/:productId", handlers.ChangeQuantity)
	cartGroup.DELETE("/items/:productId", handlers.RemoveFromCart)

	// Alerts
	router.GET("/alerts", handlers.GetAlerts)

	return router
}
