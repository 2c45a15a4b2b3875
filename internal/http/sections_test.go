package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionsRouter(repos *testRepos) *gin.Engine {
	controller := NewSectionsController(repos.catalog)

	router := gin.New()
	router.GET("/api/sections", controller.ListSections)
	router.GET("/api/sections/:id", controller.GetSection)
	router.POST("/api/sections", controller.CreateSection)
	router.PUT("/api/sections/:id", controller.RenameSection)
	router.DELETE("/api/sections/:id", controller.DeleteSection)
	return router
}

func TestSectionsController_CRUD(t *testing.T) {
	repos, cleanup := setupTestRepos(t)
	defer cleanup()
	router := sectionsRouter(repos)

	t.Run("create section", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sections", strings.NewReader(`{"name": "Fiction"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var section map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &section))
		assert.Equal(t, "Fiction", section["name"])
	})

	t.Run("duplicate section name conflicts", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sections", strings.NewReader(`{"name": "Fiction"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing name is a bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/sections", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list sections", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/sections", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response["sections"], 1)
	})

	t.Run("rename section", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/sections/1", strings.NewReader(`{"name": "Novels"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var section map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &section))
		assert.Equal(t, "Novels", section["name"])
	})

	t.Run("get missing section returns 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/sections/999", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id is a bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/sections/abc", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete section", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/sections/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/api/sections/1", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSectionsController_Search(t *testing.T) {
	repos, cleanup := setupTestRepos(t)
	defer cleanup()
	router := sectionsRouter(repos)

	seedTestBook(t, repos, "Fiction", "Dune", "Frank Herbert")
	seedTestBook(t, repos, "History", "SPQR", "Mary Beard")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/sections?q=dune", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Sections []struct {
			Name  string `json:"name"`
			Books []struct {
				Name string `json:"name"`
			} `json:"books"`
		} `json:"sections"`
		Query string `json:"query"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "dune", response.Query)
	require.Len(t, response.Sections, 1)
	assert.Equal(t, "Fiction", response.Sections[0].Name)
	require.Len(t, response.Sections[0].Books, 1)
	assert.Equal(t, "Dune", response.Sections[0].Books[0].Name)
}
