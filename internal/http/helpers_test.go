package http

import (
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/cart"
	"github.com/openshelf/openshelf/internal/database/catalog"
	"github.com/openshelf/openshelf/internal/database/feedback"
	"github.com/openshelf/openshelf/internal/database/loans"
	"github.com/openshelf/openshelf/internal/entities"
)

// testRepos bundles a fresh database with every repository for handler tests.
type testRepos struct {
	db       *database.Database
	catalog  *catalog.Repository
	cart     *cart.Repository
	loans    *loans.Repository
	feedback *feedback.Repository
}

// setupTestRepos creates a fresh test database with all repositories
func setupTestRepos(t *testing.T) (*testRepos, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	repos := &testRepos{
		db:       db,
		catalog:  catalog.NewRepository(db.DB),
		cart:     cart.NewRepository(db.DB, 5, 90),
		loans:    loans.NewRepository(db.DB, 7),
		feedback: feedback.NewRepository(db.DB),
	}
	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return repos, cleanup
}

// asUser returns a middleware that injects the acting user into the context,
// standing in for the session-backed auth middleware.
func asUser(userID uint, role entities.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, userID)
		c.Set(auth.ContextKeyRole, role)
		c.Next()
	}
}

func seedTestUser(t *testing.T, repos *testRepos, name, username string) *entities.User {
	t.Helper()
	user := entities.User{Name: name, Username: username, Role: entities.UserRoleMember}
	require.NoError(t, repos.db.DB.Create(&user).Error)
	return &user
}

func seedTestBook(t *testing.T, repos *testRepos, sectionName, bookName, author string) *entities.Book {
	t.Helper()
	section, err := repos.catalog.CreateSection(sectionName)
	require.NoError(t, err)
	book, err := repos.catalog.CreateBook(section.ID, bookName, author, "Some content.")
	require.NoError(t, err)
	return book
}
