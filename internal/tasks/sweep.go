package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// LoanSweeper provides the ability to revoke overdue loans.
type LoanSweeper interface {
	Sweep(asOf time.Time) (int64, error)
}

// SweepOverdueLoansTask revokes every loan past its due date.
// AsOf defaults to enqueue-time now when zero.
type SweepOverdueLoansTask struct {
	AsOf time.Time `json:"as_of"`
}

// Config returns the queue configuration for sweep tasks.
func (t SweepOverdueLoansTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sweep_overdue_loans",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SweepOverdueLoansProcessor creates a processor function for SweepOverdueLoansTask.
func SweepOverdueLoansProcessor(sweeper LoanSweeper) backlite.QueueProcessor[SweepOverdueLoansTask] {
	return func(ctx context.Context, task SweepOverdueLoansTask) error {
		if sweeper == nil {
			return fmt.Errorf("loan sweeper not configured")
		}

		asOf := task.AsOf
		if asOf.IsZero() {
			asOf = time.Now()
		}

		revoked, err := sweeper.Sweep(asOf)
		if err != nil {
			return fmt.Errorf("sweep overdue loans: %w", err)
		}

		log.Printf("[TASK] Revoked %d overdue loans", revoked)
		return nil
	}
}

// NewSweepOverdueLoansQueue creates a backlite queue for loan sweep tasks.
func NewSweepOverdueLoansQueue(sweeper LoanSweeper) backlite.Queue {
	return backlite.NewQueue(SweepOverdueLoansProcessor(sweeper))
}
