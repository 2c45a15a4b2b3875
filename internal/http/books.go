package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/export"
)

// BookStore defines catalog operations for book management.
type BookStore interface {
	CreateBook(sectionID uint, name, author, content string) (*entities.Book, error)
	GetBookByID(id uint) (*entities.Book, error)
	UpdateBook(id uint, sectionID uint, name, author, content string) (*entities.Book, error)
	DeleteBook(id uint) error
}

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{store: store}
}

type bookRequest struct {
	SectionID uint   `json:"section_id"`
	Name      string `json:"name"`
	Author    string `json:"author"`
	Content   string `json:"content"`
}

// GetBook returns a single book.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(id)
	if err != nil {
		respondStoreError(c, err, "get book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// CreateBook adds a book under an existing section. Admin only.
// POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid book payload")
		return
	}

	book, err := bc.store.CreateBook(req.SectionID, req.Name, req.Author, req.Content)
	if err != nil {
		respondStoreError(c, err, "create book")
		return
	}

	respondCreated(c, book)
}

// UpdateBook edits a book; active loan snapshots follow the new name/author.
// Admin only.
// PUT /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid book payload")
		return
	}

	book, err := bc.store.UpdateBook(id, req.SectionID, req.Name, req.Author, req.Content)
	if err != nil {
		respondStoreError(c, err, "update book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// DeleteBook removes a book after deleting its cart entries and loans.
// Admin only.
// DELETE /api/books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.store.DeleteBook(id); err != nil {
		respondStoreError(c, err, "delete book")
		return
	}

	respondSuccess(c, "book deleted")
}

// DownloadDocument serves the book as a self-contained markdown document.
// GET /api/books/:id/document
func (bc *BooksController) DownloadDocument(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(id)
	if err != nil {
		respondStoreError(c, err, "download document")
		return
	}

	doc := export.RenderBookDocument(book, time.Now())
	filename := export.DocumentFileName(book)

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", doc)
}
