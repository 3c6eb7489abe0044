/*
scheduler.go - Automated backfill scheduler

PURPOSE:
  Periodically sweeps every organization and runs the historical payroll
  backfill, so elapsed months get completed even when nobody requests
  payslip history.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates the actual work to the Backfiller, which is memoized: a sweep
    over fully-computed history touches nothing
  - A sweep failure for one organization does not stop the others

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewBackfillScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go:         TriggerBackfill endpoint (manual sweep)
  - payroll/backfill.go: The backfill itself
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/payroll-engine/store/sqlite"
)

// BackfillScheduler sweeps all organizations on a timer.
type BackfillScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBackfillScheduler creates a new scheduler.
func NewBackfillScheduler(store *sqlite.Store, handler *Handler) *BackfillScheduler {
	return &BackfillScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (bs *BackfillScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	bs.ticker = time.NewTicker(bs.CheckInterval)
	bs.wg.Add(1)

	go bs.run()

	log.Printf("[Scheduler] Started with check interval: %v", bs.CheckInterval)
}

// Stop stops the scheduler.
func (bs *BackfillScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (bs *BackfillScheduler) run() {
	defer bs.wg.Done()

	// Run immediately on start
	bs.sweep()

	for {
		select {
		case <-bs.ticker.C:
			bs.sweep()
		case <-bs.stop:
			return
		}
	}
}

func (bs *BackfillScheduler) sweep() {
	ctx := context.Background()

	orgs, err := bs.Store.ListOrganizations(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing organizations: %v", err)
		return
	}

	var filled, completed int
	for _, org := range orgs {
		report, err := bs.Handler.Backfill.Run(ctx, org.ID)
		if err != nil {
			log.Printf("[Scheduler] Backfill for %s failed: %v", org.ID, err)
			continue
		}
		filled += report.ItemsComputed
		completed += report.CyclesCompleted
	}

	if filled > 0 || completed > 0 {
		log.Printf("[Scheduler] Sweep completed: %d items computed, %d cycles completed across %d orgs",
			filled, completed, len(orgs))
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (bs *BackfillScheduler) RunNow() {
	bs.sweep()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (bs *BackfillScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(bs.CheckInterval)
}
