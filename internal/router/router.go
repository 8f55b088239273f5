// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cardmeet/cardmeet-backend/internal/cache"
	"github.com/cardmeet/cardmeet-backend/internal/config"
	"github.com/cardmeet/cardmeet-backend/internal/handlers"
	"github.com/cardmeet/cardmeet-backend/internal/middleware"
	"github.com/cardmeet/cardmeet-backend/internal/services"
	"github.com/cardmeet/cardmeet-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, store cache.Cache) *gin.Engine {
	// Initialize services
	storageService, _ := services.NewStorageService(cfg)
	cardService := services.NewCardAPIService(cfg, store)
	recognitionService := services.NewRecognitionService(cfg, storageService, cardService)
	chatService := services.NewStreamChatService(cfg)
	paymentService := services.NewPaymentService(cfg)

	authService := services.NewAuthService(db, cfg)
	inventoryService := services.NewInventoryService(db, cardService)
	tradingService := services.NewTradingService(db, chatService)
	parentalService := services.NewParentalService(db)
	eventService := services.NewEventService(db, nil)
	vendorService := services.NewVendorService(db, paymentService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService, authService, cardService, recognitionService)
	tradingHandler := handlers.NewTradingHandler(tradingService, authService)
	parentalHandler := handlers.NewParentalHandler(parentalService)
	eventHandler := handlers.NewEventHandler(eventService, authService)
	vendorHandler := handlers.NewVendorHandler(vendorService, authService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Card catalog routes
		cards := v1.Group("/cards")
		{
			cards.GET("/search", middleware.OptionalAuth(), inventoryHandler.SearchCards)
			cards.GET("/:id/prices", middleware.OptionalAuth(), inventoryHandler.GetPriceHistory)
			cards.POST("/scan", middleware.AuthRequired(), middleware.ScanRateLimit(), inventoryHandler.ScanCard)
		}

		// Inventory routes
		inventory := v1.Group("/inventory")
		inventory.Use(middleware.AuthRequired())
		{
			inventory.POST("", inventoryHandler.CreateItem)
			inventory.GET("", inventoryHandler.ListOwn)
			inventory.GET("/:id", inventoryHandler.GetItem)
			inventory.PATCH("/:id", inventoryHandler.UpdateItem)
			inventory.DELETE("/:id", inventoryHandler.ArchiveItem)
		}

		// Public inventory of another user
		users := v1.Group("/users")
		{
			users.GET("/:id/inventory", middleware.OptionalAuth(), inventoryHandler.ListPublic)
		}

		// Event routes
		events := v1.Group("/events")
		{
			events.GET("", middleware.OptionalAuth(), eventHandler.ListEvents)

			protected := events.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", eventHandler.CreateEvent)
				protected.GET("/participations", eventHandler.GetMyParticipations)
				protected.POST("/:id/confirm", eventHandler.ConfirmPresence)
				protected.GET("/:id/inventory", eventHandler.GetAggregatedInventory)
			}
		}

		// Trade routes
		trades := v1.Group("/trades")
		trades.Use(middleware.AuthRequired())
		{
			trades.POST("", tradingHandler.ProposeTrade)
			trades.GET("", tradingHandler.ListTrades)
			trades.GET("/:id", tradingHandler.GetTrade)
			trades.POST("/:id/accept", tradingHandler.AcceptTrade)
			trades.POST("/:id/handshake", tradingHandler.ConfirmHandshake)
			trades.POST("/:id/cancel", tradingHandler.CancelTrade)
			trades.POST("/:id/reject", tradingHandler.RejectTrade)
		}

		// Parental routes
		parental := v1.Group("/parental")
		parental.Use(middleware.AuthRequired())
		{
			parental.POST("/link", parentalHandler.LinkAccount)
			parental.GET("/dashboard", parentalHandler.GetDashboard)
			parental.GET("/trades/pending", parentalHandler.ListPendingTradeApprovals)
			parental.POST("/trades/:id/approve", parentalHandler.ApproveTrade)
			parental.POST("/trades/:id/reject", parentalHandler.RejectTrade)
			parental.GET("/events/pending", parentalHandler.ListPendingEventApprovals)
			parental.POST("/events/:id/approve", parentalHandler.ApproveEventParticipation)
			parental.POST("/events/:id/reject", parentalHandler.RejectEventParticipation)
		}

		// Vendor routes
		vendor := v1.Group("/vendor")
		vendor.Use(middleware.AuthRequired(), middleware.RoleRequired("vendor", "admin"))
		{
			vendor.POST("/sales", vendorHandler.QuickSale)
			vendor.GET("/sales", vendorHandler.ListSales)
			vendor.POST("/payments", vendorHandler.OpenCardPayment)
			vendor.GET("/dashboard", vendorHandler.GetDashboard)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r
}
