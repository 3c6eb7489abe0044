/*
store.go - Persistence interfaces for the payroll engine

PURPOSE:
  Defines the interface between the engine and the database. Different
  implementations can use SQLite, PostgreSQL, or in-memory storage.

UPSERT CONTRACT:
  The unique constraints at (org, month, year) for cycles and
  (cycle, employee) for items and incentives are the sole concurrency
  mechanism. Implementations MUST resolve conflicts by replace-on-conflict
  so that two concurrent computations for the same employee-month converge
  to one row. Conflicts are never surfaced to callers.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:  Production SQLite (same patterns for Postgres)
  - payroll/store/memory.go: In-memory for testing

SEE ALSO:
  - engine.go:   CycleService, the only writer of cycles and items
  - backfill.go: Reads and fills through the same interfaces
*/
package payroll

import (
	"context"
	"time"
)

// =============================================================================
// ORGANIZATION / EMPLOYEE DIRECTORY
// =============================================================================

type OrganizationStore interface {
	SaveOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, id OrgID) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
}

// EmployeeStore is the employee-directory contract: identity, status, and
// join date, filterable by "active as of date X".
type EmployeeStore interface {
	SaveEmployee(ctx context.Context, emp Employee) error
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context, orgID OrgID) ([]Employee, error)

	// ActiveEmployeesAsOf returns employees that are active and joined on
	// or before asOf — the payroll-eligible set for a month ending then.
	ActiveEmployeesAsOf(ctx context.Context, orgID OrgID, asOf time.Time) ([]Employee, error)
}

// =============================================================================
// COMPENSATION + SETTINGS (read-only from the engine's perspective)
// =============================================================================

type CompensationStore interface {
	SaveCompensation(ctx context.Context, comp CompensationStructure) error

	// ListCompensation returns all versions for an employee ordered by
	// EffectiveFrom ascending.
	ListCompensation(ctx context.Context, employeeID EmployeeID) ([]CompensationStructure, error)
}

type SettingsStore interface {
	// SaveSettings upserts the single settings row for an org.
	SaveSettings(ctx context.Context, s PayrollSettings) error

	// GetSettings returns nil when the org never configured settings;
	// callers resolve defaults via ResolveSettings.
	GetSettings(ctx context.Context, orgID OrgID) (*PayrollSettings, error)
}

// =============================================================================
// CYCLES, ITEMS, INCENTIVES
// =============================================================================

type CycleStore interface {
	// CreateCycle inserts a cycle, or returns the existing row when one
	// already exists for (org, month, year). Never a user-visible conflict.
	CreateCycle(ctx context.Context, cycle PayrollCycle) (PayrollCycle, error)

	GetCycle(ctx context.Context, id CycleID) (*PayrollCycle, error)
	GetCycleByMonth(ctx context.Context, orgID OrgID, month Month) (*PayrollCycle, error)
	ListCycles(ctx context.Context, orgID OrgID) ([]PayrollCycle, error)

	// UpdateCycle persists status, totals, and approval metadata.
	UpdateCycle(ctx context.Context, cycle PayrollCycle) error

	// UpsertItem writes a payroll item, replacing any existing row for the
	// same (cycle, employee).
	UpsertItem(ctx context.Context, item PayrollItem) error

	GetItem(ctx context.Context, cycleID CycleID, employeeID EmployeeID) (*PayrollItem, error)
	ListItems(ctx context.Context, cycleID CycleID) ([]PayrollItem, error)

	// ListItemsByEmployee returns an employee's payslip lines across all
	// cycles, oldest month first. This is the payslip-history read path.
	ListItemsByEmployee(ctx context.Context, employeeID EmployeeID) ([]PayrollItem, error)

	// SaveIncentive upserts the single incentive for (cycle, employee).
	SaveIncentive(ctx context.Context, inc PayrollIncentive) error
	DeleteIncentive(ctx context.Context, cycleID CycleID, employeeID EmployeeID) error
	GetIncentive(ctx context.Context, cycleID CycleID, employeeID EmployeeID) (*PayrollIncentive, error)
	ListIncentives(ctx context.Context, cycleID CycleID) ([]PayrollIncentive, error)
}

// Store is everything the engine needs from persistence.
type Store interface {
	OrganizationStore
	EmployeeStore
	CompensationStore
	SettingsStore
	CycleStore
}
