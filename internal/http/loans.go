package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/tasks"
)

// LoanStore defines operations over the loan ledger.
type LoanStore interface {
	Issue(entryID uint) (*entities.Loan, error)
	Return(userID, bookID uint) error
	Revoke(userID, bookID uint) error
	Sweep(asOf time.Time) (int64, error)
	GetAll() ([]entities.Loan, error)
	GetForUser(userID uint) ([]entities.Loan, error)
	GetOverdue(asOf time.Time) ([]entities.Loan, error)
}

type LoansController struct {
	store LoanStore
	tasks TaskEnqueuer
}

func NewLoansController(store LoanStore, tasks TaskEnqueuer) *LoansController {
	return &LoansController{store: store, tasks: tasks}
}

// ListMine returns the caller's active loans with overdue flags.
// GET /api/loans
func (lc *LoansController) ListMine(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	loans, err := lc.store.GetForUser(userID)
	if err != nil {
		respondStoreError(c, err, "list loans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"loans": annotateOverdue(loans, time.Now())})
}

// ReturnBook ends the caller's loan for a book.
// POST /api/loans/:bookId/return
func (lc *LoansController) ReturnBook(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}

	if err := lc.store.Return(userID, bookID); err != nil {
		respondStoreError(c, err, "return book")
		return
	}

	respondSuccess(c, "book returned")
}

// Issue promotes a cart entry into a loan. Admin only.
// POST /api/admin/cart/:id/issue
func (lc *LoansController) Issue(c *gin.Context) {
	entryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := lc.store.Issue(entryID)
	if err != nil {
		respondStoreError(c, err, "issue loan")
		return
	}

	respondCreated(c, loan)
}

// ListAll returns every active loan. Admin only.
// GET /api/admin/loans
func (lc *LoansController) ListAll(c *gin.Context) {
	loans, err := lc.store.GetAll()
	if err != nil {
		respondStoreError(c, err, "list all loans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"loans": annotateOverdue(loans, time.Now())})
}

// ListOverdue returns loans past due as of now. Admin only.
// GET /api/admin/loans/overdue
func (lc *LoansController) ListOverdue(c *gin.Context) {
	loans, err := lc.store.GetOverdue(time.Now())
	if err != nil {
		respondStoreError(c, err, "list overdue loans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"loans": annotateOverdue(loans, time.Now())})
}

type revokeRequest struct {
	UserID uint `json:"user_id" binding:"required"`
	BookID uint `json:"book_id" binding:"required"`
}

// Revoke ends a loan regardless of its due date. Admin only.
// POST /api/admin/loans/revoke
func (lc *LoansController) Revoke(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid revoke payload")
		return
	}

	if err := lc.store.Revoke(req.UserID, req.BookID); err != nil {
		respondStoreError(c, err, "revoke loan")
		return
	}

	respondSuccess(c, "loan revoked")
}

// Sweep revokes every loan past its due date. With a task client the sweep
// runs in the background; otherwise it runs inline and reports the count.
// Admin only.
// POST /api/admin/loans/sweep
func (lc *LoansController) Sweep(c *gin.Context) {
	if lc.tasks != nil {
		if _, err := lc.tasks.Add(tasks.SweepOverdueLoansTask{AsOf: time.Now()}).Save(); err != nil {
			respondInternalError(c, err, "enqueue overdue sweep")
			return
		}
		c.JSON(http.StatusAccepted, SuccessResponse{Message: "overdue sweep scheduled"})
		return
	}

	revoked, err := lc.store.Sweep(time.Now())
	if err != nil {
		respondStoreError(c, err, "sweep overdue loans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

type loanView struct {
	entities.Loan
	Overdue bool `json:"overdue"`
}

func annotateOverdue(loans []entities.Loan, asOf time.Time) []loanView {
	views := make([]loanView, 0, len(loans))
	for _, loan := range loans {
		views = append(views, loanView{Loan: loan, Overdue: loan.Overdue(asOf)})
	}
	return views
}
