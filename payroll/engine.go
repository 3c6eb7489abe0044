/*
engine.go - Cycle Lifecycle Manager

PURPOSE:
  CycleService owns every mutation of payroll cycles and their items. It
  validates lifecycle transitions against the table in lifecycle.go,
  enforces the immutability rules, runs the per-employee computation loop,
  and recomputes cycle totals from the full item set after every mutation.

COMPUTATION FLOW:
  eligible employees (active, joined <= month end)
      -> Compensation Resolver  (skip employee when none found)
      -> Rate/Settings Provider (resolved once, passed by value)
      -> LeaveSource            (0 when unavailable)
      -> Salary Calculator
      -> idempotent item upsert keyed on (cycle, employee)
      -> totals recomputed from the full item set, never incrementally

SPECIAL CASES:
  - Creating a cycle for a past month computes everything synchronously and
    lands in `completed`: draft is skipped entirely for historical months.
  - Listing or querying auto-completes any cycle whose month has fully
    elapsed; such a month cannot remain open.

CONCURRENCY:
  No explicit locking. The storage layer's unique constraints and
  replace-on-conflict upserts make two simultaneous `process` calls for the
  same cycle converge to one row per employee.

SEE ALSO:
  - lifecycle.go: The transition table
  - backfill.go:  The read-triggered historical fill
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CYCLE SERVICE
// =============================================================================

// ItemOverride carries caller-supplied per-employee figures for `process`.
// Nil fields keep the computed/stored values.
type ItemOverride struct {
	LOPDays   *int
	Incentive *Money
}

type CycleService struct {
	Store Store
	Leave LeaveSource

	// Now is the clock; overridable in tests. Defaults to time.Now UTC.
	Now func() time.Time
}

func NewCycleService(store Store, leave LeaveSource) *CycleService {
	if leave == nil {
		leave = ZeroLeaveSource{}
	}
	return &CycleService{
		Store: store,
		Leave: leave,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *CycleService) currentMonth() Month { return MonthOf(s.Now()) }

// =============================================================================
// CREATION
// =============================================================================

// CreateCycle ensures a cycle exists for (org, month). A concurrent or
// repeated create converges on the same row via the storage uniqueness
// constraint. When the month is already fully in the past, the cycle is
// computed synchronously and left `completed` — there is no approval value
// in gating data that already occurred.
func (s *CycleService) CreateCycle(ctx context.Context, orgID OrgID, month Month) (*PayrollCycle, error) {
	org, err := s.Store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrOrganizationNotFound
	}

	now := s.Now()
	cycle, err := s.Store.CreateCycle(ctx, PayrollCycle{
		ID:        CycleID(uuid.NewString()),
		OrgID:     orgID,
		Month:     month,
		Status:    CycleDraft,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if month.Before(s.currentMonth()) && !cycle.Status.Terminal() {
		if err := s.computeAndComplete(ctx, &cycle); err != nil {
			return nil, err
		}
	}
	return &cycle, nil
}

// =============================================================================
// LIFECYCLE ACTIONS
// =============================================================================

// Submit moves draft -> pending_approval. Requires at least one item.
func (s *CycleService) Submit(ctx context.Context, cycleID CycleID) (*PayrollCycle, error) {
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	next, err := NextStatus(cycle.ID, cycle.Status, ActionSubmit)
	if err != nil {
		return nil, err
	}

	items, err := s.Store.ListItems(ctx, cycle.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: process at least one employee before submitting", ErrEmptyCycle)
	}

	now := s.Now()
	cycle.Status = next
	cycle.SubmittedAt = &now
	cycle.UpdatedAt = now
	if err := s.Store.UpdateCycle(ctx, *cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// Approve moves pending_approval -> approved.
func (s *CycleService) Approve(ctx context.Context, cycleID CycleID, approverID string) (*PayrollCycle, error) {
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	next, err := NextStatus(cycle.ID, cycle.Status, ActionApprove)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	cycle.Status = next
	cycle.ApprovedBy = approverID
	cycle.ApprovedAt = &now
	cycle.UpdatedAt = now
	if err := s.Store.UpdateCycle(ctx, *cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// Reject moves pending_approval back to draft, recording who, when, and why.
// This is the only backward edge in the lifecycle.
func (s *CycleService) Reject(ctx context.Context, cycleID CycleID, rejecterID, reason string) (*PayrollCycle, error) {
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	next, err := NextStatus(cycle.ID, cycle.Status, ActionReject)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	cycle.Status = next
	cycle.RejectedBy = rejecterID
	cycle.RejectedAt = &now
	cycle.RejectionReason = reason
	cycle.UpdatedAt = now
	if err := s.Store.UpdateCycle(ctx, *cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// Process moves approved -> processing, computes (or accepts overrides for)
// every eligible employee, upserts items idempotently, and stores totals
// recomputed from the full item set.
func (s *CycleService) Process(ctx context.Context, cycleID CycleID, overrides map[EmployeeID]ItemOverride) (*PayrollCycle, error) {
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	next, err := NextStatus(cycle.ID, cycle.Status, ActionProcess)
	if err != nil {
		return nil, err
	}

	cycle.Status = next
	cycle.UpdatedAt = s.Now()
	if err := s.Store.UpdateCycle(ctx, *cycle); err != nil {
		return nil, err
	}

	if err := s.computeItems(ctx, cycle, overrides, false); err != nil {
		return nil, err
	}
	if err := s.storeTotals(ctx, cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// ComputeDraft runs the computation for a mutable cycle without changing its
// status, so HR can preview figures before submitting for approval.
func (s *CycleService) ComputeDraft(ctx context.Context, cycleID CycleID) (*PayrollCycle, error) {
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status.Immutable() {
		return nil, &ImmutableCycleError{CycleID: cycle.ID, Status: cycle.Status}
	}

	if err := s.computeItems(ctx, cycle, nil, false); err != nil {
		return nil, err
	}
	if err := s.storeTotals(ctx, cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// =============================================================================
// READS (with auto-completion of elapsed months)
// =============================================================================

// GetCycle returns a cycle, auto-completing it when its month has elapsed.
func (s *CycleService) GetCycle(ctx context.Context, cycleID CycleID) (*PayrollCycle, error) {
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if err := s.autoComplete(ctx, cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// ListCycles returns an org's cycles, auto-completing elapsed months as a
// side effect of being listed.
func (s *CycleService) ListCycles(ctx context.Context, orgID OrgID) ([]PayrollCycle, error) {
	cycles, err := s.Store.ListCycles(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for i := range cycles {
		if err := s.autoComplete(ctx, &cycles[i]); err != nil {
			return nil, err
		}
	}
	return cycles, nil
}

// =============================================================================
// INCENTIVES
// =============================================================================

// SetIncentive writes the single ad-hoc incentive for (cycle, employee).
// A zero amount deletes the row. Rejected once the cycle is immutable.
func (s *CycleService) SetIncentive(ctx context.Context, cycleID CycleID, employeeID EmployeeID, amount Money, note string) error {
	cycle, err := s.loadCycle(ctx, cycleID)
	if err != nil {
		return err
	}
	if cycle.Status.Immutable() {
		return &ImmutableCycleError{CycleID: cycle.ID, Status: cycle.Status}
	}

	if amount.IsZero() {
		return s.Store.DeleteIncentive(ctx, cycleID, employeeID)
	}
	return s.Store.SaveIncentive(ctx, PayrollIncentive{
		CycleID:    cycleID,
		EmployeeID: employeeID,
		Amount:     amount,
		Note:       note,
		CreatedAt:  s.Now(),
	})
}

// =============================================================================
// COMPUTATION LOOP (shared with the backfill scheduler)
// =============================================================================

// computeItems runs the calculator for every eligible employee and upserts
// the result. With onlyMissing set, employees that already have an item are
// short-circuited — the memoization property the backfill relies on.
func (s *CycleService) computeItems(ctx context.Context, cycle *PayrollCycle, overrides map[EmployeeID]ItemOverride, onlyMissing bool) error {
	monthEnd := cycle.Month.End()

	employees, err := s.Store.ActiveEmployeesAsOf(ctx, cycle.OrgID, monthEnd)
	if err != nil {
		return err
	}

	stored, err := s.Store.GetSettings(ctx, cycle.OrgID)
	if err != nil {
		return err
	}
	settings := ResolveSettings(stored, cycle.OrgID)

	existing := map[EmployeeID]PayrollItem{}
	if onlyMissing {
		items, err := s.Store.ListItems(ctx, cycle.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			existing[it.EmployeeID] = it
		}
	}

	for _, emp := range employees {
		if onlyMissing {
			if _, done := existing[emp.ID]; done {
				continue
			}
		}

		records, err := s.Store.ListCompensation(ctx, emp.ID)
		if err != nil {
			return err
		}
		comp, ok := ResolveCompensation(records, monthEnd)
		if !ok {
			// No compensation effective for this month: deliberate omission.
			continue
		}

		lop, err := s.Leave.LOPDays(ctx, emp.ID, cycle.Month)
		if err != nil {
			lop = 0 // unavailable attendance source counts as zero LOP
		}

		incentive := ZeroMoney()
		if inc, err := s.Store.GetIncentive(ctx, cycle.ID, emp.ID); err != nil {
			return err
		} else if inc != nil {
			incentive = inc.Amount
		}

		if ov, ok := overrides[emp.ID]; ok {
			if ov.LOPDays != nil {
				lop = *ov.LOPDays
			}
			if ov.Incentive != nil {
				// Persist the override so recomputation converges on it. The
				// store is written directly: the SetIncentive status guard is
				// for external callers, and the cycle is already `processing`
				// by the time this loop runs.
				incentive = *ov.Incentive
				if incentive.IsZero() {
					if err := s.Store.DeleteIncentive(ctx, cycle.ID, emp.ID); err != nil {
						return err
					}
				} else {
					if err := s.Store.SaveIncentive(ctx, PayrollIncentive{
						CycleID:    cycle.ID,
						EmployeeID: emp.ID,
						Amount:     incentive,
						Note:       "process override",
						CreatedAt:  s.Now(),
					}); err != nil {
						return err
					}
				}
			}
		}

		breakdown := Calculate(CalculationInput{
			Compensation: comp,
			Settings:     settings,
			WorkingDays:  cycle.Month.Days(),
			LOPDays:      lop,
			Incentive:    incentive,
		})

		item := breakdown.Item(uuid.NewString(), cycle.ID, emp.ID)
		item.ComputedAt = s.Now()
		if err := s.Store.UpsertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// storeTotals recomputes cycle totals from the full item set and persists
// them. Totals are never maintained incrementally, to avoid drift.
func (s *CycleService) storeTotals(ctx context.Context, cycle *PayrollCycle) error {
	items, err := s.Store.ListItems(ctx, cycle.ID)
	if err != nil {
		return err
	}

	total := ZeroMoney()
	for _, it := range items {
		total = total.Add(it.Gross)
	}
	cycle.TotalEmployees = len(items)
	cycle.TotalAmount = total
	cycle.UpdatedAt = s.Now()
	return s.Store.UpdateCycle(ctx, *cycle)
}

// computeAndComplete fills a historical cycle in one shot and marks it
// completed, as if approve+process had been called.
func (s *CycleService) computeAndComplete(ctx context.Context, cycle *PayrollCycle) error {
	if err := s.computeItems(ctx, cycle, nil, true); err != nil {
		return err
	}
	cycle.Status = CycleCompleted
	return s.storeTotals(ctx, cycle)
}

// autoComplete finalizes a cycle whose month has fully elapsed. Totals are
// recomputed from whatever items exist; filling missing employee-months is
// the backfill scheduler's job.
func (s *CycleService) autoComplete(ctx context.Context, cycle *PayrollCycle) error {
	if cycle.Status.Terminal() || !cycle.Month.Before(s.currentMonth()) {
		return nil
	}
	cycle.Status = CycleCompleted
	return s.storeTotals(ctx, cycle)
}

func (s *CycleService) loadCycle(ctx context.Context, cycleID CycleID) (*PayrollCycle, error) {
	cycle, err := s.Store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrCycleNotFound
	}
	return cycle, nil
}
