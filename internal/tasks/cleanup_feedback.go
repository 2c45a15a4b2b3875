package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// OrphanFeedbackCleaner provides the ability to delete feedback rows whose
// book no longer exists.
type OrphanFeedbackCleaner interface {
	DeleteOrphans() (int64, error)
}

// CleanupOrphanFeedbackTask removes feedback referencing deleted books.
// Book deletion does not cascade feedback, so orphans accumulate until an
// admin runs this.
type CleanupOrphanFeedbackTask struct{}

// Config returns the queue configuration for cleanup tasks.
func (t CleanupOrphanFeedbackTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_orphan_feedback",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupOrphanFeedbackProcessor creates a processor function for CleanupOrphanFeedbackTask.
func CleanupOrphanFeedbackProcessor(cleaner OrphanFeedbackCleaner) backlite.QueueProcessor[CleanupOrphanFeedbackTask] {
	return func(ctx context.Context, task CleanupOrphanFeedbackTask) error {
		if cleaner == nil {
			return fmt.Errorf("orphan feedback cleaner not configured")
		}

		deleted, err := cleaner.DeleteOrphans()
		if err != nil {
			return fmt.Errorf("cleanup orphan feedback: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d orphan feedback records", deleted)
		return nil
	}
}

// NewCleanupOrphanFeedbackQueue creates a backlite queue for feedback cleanup tasks.
func NewCleanupOrphanFeedbackQueue(cleaner OrphanFeedbackCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupOrphanFeedbackProcessor(cleaner))
}
