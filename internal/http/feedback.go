package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/tasks"
)

// FeedbackStore defines operations over the feedback log.
type FeedbackStore interface {
	Submit(userID, bookID uint, body string) (*entities.Feedback, error)
	GetForBook(bookID uint) ([]entities.Feedback, error)
	GetAll() ([]entities.Feedback, error)
}

// TaskEnqueuer enqueues background tasks.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

type FeedbackController struct {
	store FeedbackStore
	tasks TaskEnqueuer
}

// NewFeedbackController creates a feedback controller. taskClient may be nil
// when background tasks are disabled; the cleanup endpoint then reports 503.
func NewFeedbackController(store FeedbackStore, taskClient TaskEnqueuer) *FeedbackController {
	return &FeedbackController{store: store, tasks: taskClient}
}

type feedbackRequest struct {
	Body string `json:"body" binding:"required"`
}

// Submit records a timestamped feedback entry for a book.
// POST /api/books/:id/feedback
func (fc *FeedbackController) Submit(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "feedback text is required")
		return
	}

	record, err := fc.store.Submit(userID, bookID, req.Body)
	if err != nil {
		respondStoreError(c, err, "submit feedback")
		return
	}

	respondCreated(c, record)
}

// ListForBook returns feedback for one book in insertion order.
// GET /api/books/:id/feedback
func (fc *FeedbackController) ListForBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	records, err := fc.store.GetForBook(bookID)
	if err != nil {
		respondStoreError(c, err, "list feedback")
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": records})
}

// ListAll returns the full feedback log. Admin only.
// GET /api/admin/feedback
func (fc *FeedbackController) ListAll(c *gin.Context) {
	records, err := fc.store.GetAll()
	if err != nil {
		respondStoreError(c, err, "list all feedback")
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": records})
}

// Cleanup enqueues a background task that removes feedback whose book no
// longer exists. Admin only.
// POST /api/admin/feedback/cleanup
func (fc *FeedbackController) Cleanup(c *gin.Context) {
	if fc.tasks == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "background tasks are disabled"})
		return
	}

	if _, err := fc.tasks.Add(tasks.CleanupOrphanFeedbackTask{}).Save(); err != nil {
		respondInternalError(c, err, "enqueue feedback cleanup")
		return
	}

	c.JSON(http.StatusAccepted, SuccessResponse{Message: "feedback cleanup scheduled"})
}
