package http

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// Apply CSRF protection if auth is enabled
	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Apply session middleware if enabled
	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Apply auth middleware if enabled
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No gate configured - inject the default acting user
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Next()
		})
	}

	// Register login/register/setup routes if the gate is enabled
	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		authController, err := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig)
		if err != nil {
			log.Printf("Auth routes disabled: %v", err)
		} else {
			authController.RegisterRoutes(router)
		}
	}

	// Create controllers with appropriate interfaces
	health := NewHealthController(cfg.Database, cfg.Version)
	sectionsController := NewSectionsController(cfg.Catalog)
	booksController := NewBooksController(cfg.Catalog)
	cartController := NewCartController(cfg.Cart)
	loansController := NewLoansController(cfg.Loans, taskEnqueuer(cfg))
	feedbackController := NewFeedbackController(cfg.Feedback, taskEnqueuer(cfg))

	// Static assets (exempt from auth via the middleware's public prefixes)
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Catalog endpoints
	router.GET("/api/sections", sectionsController.ListSections)
	router.GET("/api/sections/:id", sectionsController.GetSection)
	router.GET("/api/books/:id", booksController.GetBook)
	router.GET("/api/books/:id/document", booksController.DownloadDocument)

	// Cart endpoints
	router.POST("/api/cart", cartController.RequestBook)
	router.GET("/api/cart", cartController.ListMine)

	// Loan endpoints
	router.GET("/api/loans", loansController.ListMine)
	router.POST("/api/loans/:bookId/return", loansController.ReturnBook)

	// Feedback endpoints
	router.GET("/api/books/:id/feedback", feedbackController.ListForBook)
	router.POST("/api/books/:id/feedback", feedbackController.Submit)

	// Profile endpoints
	if cfg.AuthService != nil {
		profileController := NewProfileController(cfg.AuthService)
		router.GET("/api/profile", profileController.GetProfile)
		router.PUT("/api/profile", profileController.UpdateProfile)
		router.PUT("/api/profile/password", profileController.ChangePassword)
	}

	// Administrative endpoints
	admin := router.Group("/api")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
	}

	admin.POST("/sections", sectionsController.CreateSection)
	admin.PUT("/sections/:id", sectionsController.RenameSection)
	admin.DELETE("/sections/:id", sectionsController.DeleteSection)

	admin.POST("/books", booksController.CreateBook)
	admin.PUT("/books/:id", booksController.UpdateBook)
	admin.DELETE("/books/:id", booksController.DeleteBook)

	admin.GET("/admin/cart", cartController.ListAll)
	admin.DELETE("/admin/cart/:id", cartController.Reject)
	admin.POST("/admin/cart/:id/issue", loansController.Issue)

	admin.GET("/admin/loans", loansController.ListAll)
	admin.GET("/admin/loans/overdue", loansController.ListOverdue)
	admin.POST("/admin/loans/revoke", loansController.Revoke)
	admin.POST("/admin/loans/sweep", loansController.Sweep)

	admin.GET("/admin/feedback", feedbackController.ListAll)
	admin.POST("/admin/feedback/cleanup", feedbackController.Cleanup)

	return router
}

// taskEnqueuer avoids handing a typed nil to controllers that check for an
// absent task client.
func taskEnqueuer(cfg RouterConfig) TaskEnqueuer {
	if cfg.TaskClient == nil {
		return nil
	}
	return cfg.TaskClient
}
