// Package scheduler runs the periodic overdue-loan sweep.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepLedger is the slice of the loan ledger the scheduler needs.
type SweepLedger interface {
	Sweep(asOf time.Time) (int64, error)
}

// SweepScheduler revokes overdue loans on a cron schedule.
type SweepScheduler struct {
	ledger   SweepLedger
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewSweepScheduler creates a scheduler for the given ledger and cron schedule.
func NewSweepScheduler(ledger SweepLedger, schedule string) *SweepScheduler {
	return &SweepScheduler{
		ledger:   ledger,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler. Safe to call more than once.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Overdue sweep scheduler: started with schedule '%s'", s.schedule)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep to finish.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Overdue sweep scheduler: stopped")
}

// RunNow triggers an immediate sweep without waiting for the schedule.
func (s *SweepScheduler) RunNow() {
	go s.runSweep()
}

// IsRunning returns whether the scheduler is active.
func (s *SweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next sweep will occur.
func (s *SweepScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *SweepScheduler) runSweep() {
	start := time.Now()
	revoked, err := s.ledger.Sweep(start)
	if err != nil {
		log.Printf("Overdue sweep: failed: %v", err)
		return
	}
	log.Printf("Overdue sweep: revoked %d loans in %v", revoked, time.Since(start).Round(time.Millisecond))
}
