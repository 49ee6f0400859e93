package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pairlink-server/internal/config"
	"pairlink-server/internal/handlers"
	"pairlink-server/internal/middleware"
	"pairlink-server/internal/ws"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, hub *ws.Hub, cfg *config.Config) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	messageHandler := handlers.NewMessageHandler(db)
	clearRequestHandler := handlers.NewClearRequestHandler(db, hub)
	clearExecutorHandler := handlers.NewClearExecutorHandler(db, hub)
	feedHandler := handlers.NewFeedHandler(hub, cfg)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Change feed; authenticates itself via the token query parameter
		public.GET("/ws", feedHandler.Handle)

		// Pre-flight for the privileged executor carries no credentials
		public.OPTIONS("/clear-messages", clearExecutorHandler.HandlePreflight)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// Messaging routes
		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("", messageHandler.SendMessage)
			messageRoutes.GET("", messageHandler.GetMessagesForUser)
			messageRoutes.GET("/:messageId", messageHandler.GetMessageByID) // Auth in handler
			messageRoutes.PATCH("/:messageId/read", messageHandler.MarkMessageAsRead)
			// No DELETE route: bulk deletion goes through the privileged
			// executor only
		}

		// Clear-request protocol routes
		clearRequestRoutes := private.Group("/clear-requests")
		{
			clearRequestRoutes.POST("", clearRequestHandler.CreateRequest)
			clearRequestRoutes.POST("/:requestId/respond", clearRequestHandler.Respond) // Receiver-only, auth in handler
			clearRequestRoutes.GET("/active", clearRequestHandler.GetActive)
		}

		// Privileged executor
		private.POST("/clear-messages", clearExecutorHandler.ClearMessages)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
