package http

import (
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces the long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database

	// Domain stores
	Catalog  CatalogStore
	Cart     CartStore
	Loans    LoanStore
	Feedback FeedbackStore

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}

// CatalogStore combines section and book operations; the catalog repository
// satisfies both.
type CatalogStore interface {
	SectionStore
	BookStore
}
