/*
backfill.go - Lazy historical payroll backfill

PURPOSE:
  Generates and completes payroll history on demand, never on a timer. The
  scan runs when payslip history is requested (or an admin triggers it) and
  fills every month from the earliest active join month up to but excluding
  the current month.

DESIGN:
  - Month enumeration is a pure function of (earliest join, now); the scan
    is derived from stored data on every run, so a crash mid-backfill
    self-heals on the next request.
  - Memoized: an existing PayrollItem short-circuits that employee-month.
    Re-running over fully-computed history touches nothing.
  - Each month completes independently with totals recomputed from its full
    item set; a failure in one month leaves earlier months finished.

USAGE:
  bf := payroll.NewBackfiller(store, leave)
  history, err := bf.History(ctx, employeeID)   // backfills, then reads

SEE ALSO:
  - engine.go: computeItems (the shared per-employee computation loop)
  - month.go:  MonthsBetween (the half-open month generator)
*/
package payroll

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// BACKFILLER
// =============================================================================

type Backfiller struct {
	Store Store
	Leave LeaveSource

	Now func() time.Time
}

// BackfillReport summarizes a scan for logging and admin endpoints.
type BackfillReport struct {
	MonthsScanned   int `json:"months_scanned"`
	ItemsComputed   int `json:"items_computed"`
	CyclesCompleted int `json:"cycles_completed"`
}

func NewBackfiller(store Store, leave LeaveSource) *Backfiller {
	if leave == nil {
		leave = ZeroLeaveSource{}
	}
	return &Backfiller{
		Store: store,
		Leave: leave,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// Run scans every month from the earliest active employee's join month up to
// (and excluding) the current month, fills missing employee-months, and
// completes each touched cycle. Idempotent: a second run over the same data
// computes nothing and produces identical totals.
func (b *Backfiller) Run(ctx context.Context, orgID OrgID) (BackfillReport, error) {
	var report BackfillReport

	employees, err := b.Store.ListEmployees(ctx, orgID)
	if err != nil {
		return report, err
	}

	var earliest *time.Time
	for _, emp := range employees {
		if emp.Status != EmploymentActive {
			continue
		}
		if earliest == nil || emp.JoinDate.Before(*earliest) {
			join := emp.JoinDate
			earliest = &join
		}
	}
	if earliest == nil {
		return report, nil // no active employees, nothing to fill
	}

	current := MonthOf(b.Now())
	months := MonthsBetween(MonthOf(*earliest), current)
	report.MonthsScanned = len(months)

	for _, month := range months {
		computed, completed, err := b.fillMonth(ctx, orgID, month)
		if err != nil {
			log.Printf("[Backfill] %s %s: %v", orgID, month, err)
			return report, err
		}
		report.ItemsComputed += computed
		if completed {
			report.CyclesCompleted++
		}
	}

	if report.ItemsComputed > 0 || report.CyclesCompleted > 0 {
		log.Printf("[Backfill] %s: %d months scanned, %d items computed, %d cycles completed",
			orgID, report.MonthsScanned, report.ItemsComputed, report.CyclesCompleted)
	}
	return report, nil
}

// History backfills the employee's organization and returns the employee's
// payslip lines, oldest first. This is the read path that makes history
// appear complete without any background job.
func (b *Backfiller) History(ctx context.Context, employeeID EmployeeID) ([]PayrollItem, error) {
	emp, err := b.Store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}

	if _, err := b.Run(ctx, emp.OrgID); err != nil {
		return nil, err
	}
	return b.Store.ListItemsByEmployee(ctx, employeeID)
}

// =============================================================================
// PER-MONTH FILL
// =============================================================================

// fillMonth ensures the month's cycle exists, computes items for eligible
// employees that lack one, and completes the cycle with recomputed totals.
// A fully-computed completed month is left untouched.
func (b *Backfiller) fillMonth(ctx context.Context, orgID OrgID, month Month) (int, bool, error) {
	cycle, err := b.Store.GetCycleByMonth(ctx, orgID, month)
	if err != nil {
		return 0, false, err
	}
	if cycle == nil {
		now := b.Now()
		created, err := b.Store.CreateCycle(ctx, PayrollCycle{
			ID:        CycleID(uuid.NewString()),
			OrgID:     orgID,
			Month:     month,
			Status:    CycleDraft,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return 0, false, err
		}
		cycle = &created
	}

	before, err := b.Store.ListItems(ctx, cycle.ID)
	if err != nil {
		return 0, false, err
	}

	svc := &CycleService{Store: b.Store, Leave: b.Leave, Now: b.Now}
	if err := svc.computeItems(ctx, cycle, nil, true); err != nil {
		return 0, false, err
	}

	after, err := b.Store.ListItems(ctx, cycle.ID)
	if err != nil {
		return 0, false, err
	}
	computed := len(after) - len(before)

	if computed == 0 && cycle.Status.Terminal() {
		return 0, false, nil
	}

	cycle.Status = CycleCompleted
	if err := svc.storeTotals(ctx, cycle); err != nil {
		return computed, false, err
	}
	return computed, true, nil
}
