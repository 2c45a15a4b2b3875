package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/entities"
)

// SectionStore defines catalog operations for section management.
type SectionStore interface {
	CreateSection(name string) (*entities.Section, error)
	RenameSection(id uint, name string) (*entities.Section, error)
	GetSectionByID(id uint) (*entities.Section, error)
	GetAllSections() ([]entities.Section, error)
	SearchSections(query string) ([]entities.Section, error)
	DeleteSection(id uint) error
}

type SectionsController struct {
	store SectionStore
}

func NewSectionsController(store SectionStore) *SectionsController {
	return &SectionsController{store: store}
}

type sectionRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListSections returns all sections with their books, optionally filtered by
// a case-insensitive substring on section name, book title or author.
// GET /api/sections?q=...
func (sc *SectionsController) ListSections(c *gin.Context) {
	query := c.Query("q")

	sections, err := sc.store.SearchSections(query)
	if err != nil {
		respondInternalError(c, err, "list sections")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sections": sections, "query": query})
}

// GetSection returns one section with its books.
// GET /api/sections/:id
func (sc *SectionsController) GetSection(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	section, err := sc.store.GetSectionByID(id)
	if err != nil {
		respondStoreError(c, err, "get section")
		return
	}

	c.JSON(http.StatusOK, section)
}

// CreateSection adds a new section. Admin only.
// POST /api/sections
func (sc *SectionsController) CreateSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	section, err := sc.store.CreateSection(req.Name)
	if err != nil {
		respondStoreError(c, err, "create section")
		return
	}

	respondCreated(c, section)
}

// RenameSection updates a section's name. Admin only.
// PUT /api/sections/:id
func (sc *SectionsController) RenameSection(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	section, err := sc.store.RenameSection(id, req.Name)
	if err != nil {
		respondStoreError(c, err, "rename section")
		return
	}

	c.JSON(http.StatusOK, section)
}

// DeleteSection removes a section and cascades to its books. Admin only.
// DELETE /api/sections/:id
func (sc *SectionsController) DeleteSection(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := sc.store.DeleteSection(id); err != nil {
		respondStoreError(c, err, "delete section")
		return
	}

	respondSuccess(c, "section deleted")
}
