// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/needus/ecommerce-backend/internal/config"
	"github.com/needus/ecommerce-backend/internal/handlers"
	"github.com/needus/ecommerce-backend/internal/middleware"
	"github.com/needus/ecommerce-backend/internal/repository"
	"github.com/needus/ecommerce-backend/internal/services"
	"github.com/needus/ecommerce-backend/internal/utils"
)

func Initialize(store repository.Store, attachments services.AttachmentStore, audits *middleware.AuditRecorder, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(cfg)
	imageService := services.NewProductImageService(attachments)

	authService := services.NewAuthService(store, cfg)
	userService := services.NewUserService(store, notificationService, cfg)
	productService := services.NewProductService(store, imageService, cfg)
	catalogService := services.NewCatalogService(store)
	orderService := services.NewOrderService(store)
	adminService := services.NewAdminService(store)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	verificationHandler := handlers.NewVerificationHandler(userService)
	productHandler := handlers.NewProductHandler(productService, cfg.Catalog.DefaultPageSize, cfg.Catalog.MaxPageSize)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	orderHandler := handlers.NewOrderHandler(orderService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	metrics := middleware.NewMetrics(registry)

	generalLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	generalLimiter.StartCleanup(time.Minute, nil)
	authLimiter := middleware.NewRateLimiter(rate.Every(time.Minute), 5)
	authLimiter.StartCleanup(time.Minute, nil)

	// Initialize Gin router
	r := gin.New()
	r.MaxMultipartMemory = cfg.Storage.MaxImageSize

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(metrics.Middleware())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(generalLimiter.Middleware())
	r.Use(middleware.AuditLogMiddleware(audits))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Uploaded product images, when they are kept on local disk
	if local, ok := attachments.(*services.LocalAttachmentStore); ok {
		r.Static("/uploads", local.Root())
	}

	// Account routes
	account := r.Group("")
	account.Use(authLimiter.Middleware())
	{
		account.POST("/register", authHandler.Register)
		account.POST("/login", authHandler.Login)
		account.GET("/activation", verificationHandler.Activate)
	}

	// Admin back office
	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("/dashboard", adminHandler.GetDashboardStats)

		products := admin.Group("/products")
		{
			products.GET("/list", productHandler.ListProducts)
			products.GET("/view/:id", productHandler.GetProduct)
			products.GET("/addProduct", productHandler.NewProductForm)
			products.POST("/addProduct/save", productHandler.CreateProduct)
			products.POST("/block/:id", productHandler.ToggleBlock)
			products.GET("/editProduct/:id", productHandler.EditProductForm)
			products.POST("/editProduct/edit/:id", productHandler.UpdateProduct)
			products.POST("/deleteProduct/:id", productHandler.DeleteProduct)
			products.GET("/history/:id", adminHandler.GetProductHistory)
		}

		admin.GET("/brands", catalogHandler.ListBrands)
		admin.POST("/brands", catalogHandler.CreateBrand)
		admin.POST("/brands/:id/delete", catalogHandler.DeleteBrand)

		admin.GET("/categories", catalogHandler.ListCategories)
		admin.POST("/categories", catalogHandler.CreateCategory)
		admin.POST("/categories/:id/delete", catalogHandler.DeleteCategory)

		admin.GET("/filters", catalogHandler.ListFilters)
		admin.POST("/filters", catalogHandler.CreateFilter)

		admin.GET("/orders", orderHandler.ListOrders)
		admin.GET("/orders/user/:id", orderHandler.ListUserOrders)
	}

	return r
}
