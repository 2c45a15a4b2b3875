package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/tasks"
)

func loansRouter(repos *testRepos, userID uint) *gin.Engine {
	controller := NewLoansController(repos.loans, nil)

	router := gin.New()
	router.Use(asUser(userID, entities.UserRoleAdmin))
	router.GET("/api/loans", controller.ListMine)
	router.POST("/api/loans/:bookId/return", controller.ReturnBook)
	router.POST("/api/admin/cart/:id/issue", controller.Issue)
	router.GET("/api/admin/loans", controller.ListAll)
	router.GET("/api/admin/loans/overdue", controller.ListOverdue)
	router.POST("/api/admin/loans/revoke", controller.Revoke)
	router.POST("/api/admin/loans/sweep", controller.Sweep)
	return router
}

func TestLoansController_IssueAndReturn(t *testing.T) {
	repos, cleanup := setupTestRepos(t)
	defer cleanup()

	user := seedTestUser(t, repos, "Asha", "asha")
	book := seedTestBook(t, repos, "Fiction", "Dune", "Frank Herbert")
	router := loansRouter(repos, user.ID)

	entry, err := repos.cart.RequestBook(user.ID, book.ID, 14)
	require.NoError(t, err)

	t.Run("issue promotes the entry", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", fmt.Sprintf("/api/admin/cart/%d/issue", entry.ID), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var loan map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loan))
		assert.Equal(t, "Dune", loan["book_name"])
		assert.Equal(t, "Frank Herbert", loan["author"])
	})

	t.Run("issuing the same entry again returns 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", fmt.Sprintf("/api/admin/cart/%d/issue", entry.ID), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("list mine shows the active loan", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/loans", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Loans []struct {
				BookName string `json:"book_name"`
				Overdue  bool   `json:"overdue"`
			} `json:"loans"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Loans, 1)
		assert.Equal(t, "Dune", response.Loans[0].BookName)
		assert.False(t, response.Loans[0].Overdue)
	})

	t.Run("return ends the loan", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", fmt.Sprintf("/api/loans/%d/return", book.ID), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("POST", fmt.Sprintf("/api/loans/%d/return", book.ID), nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLoansController_RevokeAndSweep(t *testing.T) {
	repos, cleanup := setupTestRepos(t)
	defer cleanup()

	user := seedTestUser(t, repos, "Asha", "asha")
	dune := seedTestBook(t, repos, "Fiction", "Dune", "Frank Herbert")
	spqr := seedTestBook(t, repos, "History", "SPQR", "Mary Beard")
	router := loansRouter(repos, user.ID)

	for _, book := range []*entities.Book{dune, spqr} {
		entry, err := repos.cart.RequestBook(user.ID, book.ID, 7)
		require.NoError(t, err)
		_, err = repos.loans.Issue(entry.ID)
		require.NoError(t, err)
	}

	// Push one loan past its due date
	require.NoError(t, repos.db.DB.Model(&entities.Loan{}).
		Where("book_id = ?", dune.ID).
		Update("due_date", time.Now().AddDate(0, 0, -2)).Error)

	t.Run("overdue listing flags the late loan", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/admin/loans/overdue", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Loans []struct {
				BookName string `json:"book_name"`
				Overdue  bool   `json:"overdue"`
			} `json:"loans"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Loans, 1)
		assert.Equal(t, "Dune", response.Loans[0].BookName)
		assert.True(t, response.Loans[0].Overdue)
	})

	t.Run("sweep revokes overdue loans and reports the count", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/admin/loans/sweep", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(1), response["revoked"])
	})

	t.Run("second sweep revokes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/admin/loans/sweep", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(0), response["revoked"])
	})

	t.Run("revoke ends the remaining loan early", func(t *testing.T) {
		body := fmt.Sprintf(`{"user_id": %d, "book_id": %d}`, user.ID, spqr.ID)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/admin/loans/revoke", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/api/admin/loans", nil)
		router.ServeHTTP(w, req)

		var response struct {
			Loans []json.RawMessage `json:"loans"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Empty(t, response.Loans)
	})

	t.Run("revoking a missing loan returns 404", func(t *testing.T) {
		body := fmt.Sprintf(`{"user_id": %d, "book_id": %d}`, user.ID, spqr.ID)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/admin/loans/revoke", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLoansController_SweepEnqueues(t *testing.T) {
	repos, cleanup := setupTestRepos(t)
	defer cleanup()

	taskClient, err := tasks.NewClient(filepath.Join(t.TempDir(), "test.db"), tasks.DefaultConfig())
	require.NoError(t, err)
	defer taskClient.Close()
	taskClient.Register(tasks.NewSweepOverdueLoansQueue(repos.loans))

	user := seedTestUser(t, repos, "Asha", "asha")
	controller := NewLoansController(repos.loans, taskClient)

	router := gin.New()
	router.Use(asUser(user.ID, entities.UserRoleAdmin))
	router.POST("/api/admin/loans/sweep", controller.Sweep)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/admin/loans/sweep", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}
