package payroll

import "context"

// =============================================================================
// LEAVE SOURCE - External attendance/leave collaborator
// =============================================================================

// LeaveSource reports the loss-of-pay day count for an employee-month.
// The engine treats the source as authoritative and does not recompute
// leave policy. When no source is available, days are treated as 0.
type LeaveSource interface {
	// LOPDays returns the number of loss-of-pay days for the employee in
	// the given month.
	LOPDays(ctx context.Context, employeeID EmployeeID, month Month) (int, error)
}

// ZeroLeaveSource is the default no-op source: every month has 0 LOP days.
type ZeroLeaveSource struct{}

func (ZeroLeaveSource) LOPDays(context.Context, EmployeeID, Month) (int, error) { return 0, nil }
