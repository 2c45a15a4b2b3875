package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/database/cart"
	"github.com/openshelf/openshelf/internal/entities"
)

// CartStore defines operations over pending book requests.
type CartStore interface {
	RequestBook(userID, bookID uint, days int) (*entities.CartEntry, error)
	RejectEntry(entryID uint) error
	GetAllEntries() ([]entities.CartEntry, error)
	GetEntriesForUser(userID uint) ([]entities.CartEntry, error)
	Capacity() int
}

type CartController struct {
	store CartStore
}

func NewCartController(store CartStore) *CartController {
	return &CartController{store: store}
}

type cartRequest struct {
	BookID uint `json:"book_id" binding:"required"`
	Days   int  `json:"days"`
}

// RequestBook places a book into the caller's cart. A repeated request for
// the same book is reported back as a notice rather than an error.
// POST /api/cart
func (cc *CartController) RequestBook(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid cart payload")
		return
	}

	entry, err := cc.store.RequestBook(userID, req.BookID, req.Days)
	if errors.Is(err, cart.ErrAlreadyRequested) {
		c.JSON(http.StatusOK, gin.H{
			"message": "book already in your cart",
			"entry":   entry,
		})
		return
	}
	if err != nil {
		respondStoreError(c, err, "request book")
		return
	}

	respondCreated(c, entry)
}

// ListMine returns the caller's pending requests.
// GET /api/cart
func (cc *CartController) ListMine(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	entries, err := cc.store.GetEntriesForUser(userID)
	if err != nil {
		respondStoreError(c, err, "list cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":  entries,
		"capacity": cc.store.Capacity(),
	})
}

// ListAll returns every pending request across users. Admin only.
// GET /api/admin/cart
func (cc *CartController) ListAll(c *gin.Context) {
	entries, err := cc.store.GetAllEntries()
	if err != nil {
		respondStoreError(c, err, "list all cart entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Reject declines a pending request without issuing the book. Admin only.
// DELETE /api/admin/cart/:id
func (cc *CartController) Reject(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := cc.store.RejectEntry(id); err != nil {
		respondStoreError(c, err, "reject cart entry")
		return
	}

	respondSuccess(c, "request rejected")
}
