package handlers

import (
	"github.com/milosamec/engravape/middleware"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	ServiceName    string
	UploadDir      string
	PayPalClientID string
}

type Handlers struct {
	Orders   *OrderHandler
	Users    *UserHandler
	Products *ProductHandler
	Uploads  *UploadHandler
}

// NewRouter wires every public route. auth must populate the requester for
// downstream handlers.
func NewRouter(cfg RouterConfig, h Handlers, auth gin.HandlerFunc, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	// otelgin runs first so later middleware sees the request span
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())
	router.Static("/uploads", cfg.UploadDir)

	api := router.Group("/api")
	admin := middleware.Admin()

	orders := api.Group("/orders", auth)
	orders.POST("", h.Orders.CreateOrder)
	orders.GET("", admin, h.Orders.ListOrders)
	orders.GET("/myorders", h.Orders.ListMyOrders)
	orders.GET("/:id", h.Orders.GetOrder)
	orders.PUT("/:id/pay", h.Orders.PayOrder)
	orders.PUT("/:id/deliver", admin, h.Orders.DeliverOrder)

	users := api.Group("/users")
	users.POST("", h.Users.Register)
	users.POST("/login", h.Users.Login)
	users.GET("/profile", auth, h.Users.GetProfile)
	users.PUT("/profile", auth, h.Users.UpdateProfile)
	users.GET("", auth, admin, h.Users.ListUsers)
	users.GET("/:id", auth, admin, h.Users.GetUser)
	users.PUT("/:id", auth, admin, h.Users.UpdateUser)
	users.DELETE("/:id", auth, admin, h.Users.DeleteUser)

	products := api.Group("/products")
	products.GET("", h.Products.ListProducts)
	products.GET("/:id", h.Products.GetProduct)
	products.POST("", auth, admin, h.Products.CreateProduct)
	products.PUT("/:id", auth, admin, h.Products.UpdateProduct)
	products.DELETE("/:id", auth, admin, h.Products.DeleteProduct)

	api.POST("/upload", auth, admin, h.Uploads.UploadImage)
	api.GET("/config/paypal", PayPalClientID(cfg.PayPalClientID))

	router.NoRoute(NotFound)

	return router
}
