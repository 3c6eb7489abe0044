/*
Package payroll provides the core payroll computation engine.

PURPOSE:
  This package contains the tenant-scoped types and algorithms for turning
  versioned compensation records into monthly payslips: proration arithmetic,
  deduction rules, the payroll-cycle approval state machine, and the lazy
  backfill of historical months.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency quantity backed by decimal.Decimal
  - Organization/Employee: The tenant boundary and who gets paid
  - CompensationStructure: Versioned salary components (effective-dated)
  - PayrollSettings: Per-org deduction rates with system defaults
  - PayrollCycle/PayrollItem/PayrollIncentive: One month's computation

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors in pay
  2. Type Safety: Strong typing for IDs prevents mixing org/employee/cycle IDs
  3. Purity: The Salary Calculator is a pure function of its inputs; settings
     are resolved once per computation and passed by value
  4. Convergence: Uniqueness is enforced at the (org, month, year) and
     (cycle, employee) grain; concurrent computations converge via upsert

USAGE:
  comp, ok := payroll.ResolveCompensation(records, month.End())
  if ok {
      breakdown := payroll.Calculate(payroll.CalculationInput{
          Compensation: comp,
          Settings:     settings,
          WorkingDays:  month.Days(),
          LOPDays:      lop,
      })
  }

SEE ALSO:
  - calculator.go: Gross/deduction/net arithmetic
  - lifecycle.go:  Cycle status transition table
  - engine.go:     CycleService orchestration
  - backfill.go:   Lazy historical fill
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency quantity (single-currency payroll)
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money             { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money             { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money   { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money   { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                    { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                  { return m.Value.IsZero() }
func (m Money) IsNegative() bool              { return m.Value.IsNegative() }
func (m Money) IsPositive() bool              { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool            { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool      { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThanOrEqual(o Money) bool  { return m.Value.LessThanOrEqual(o.Value) }
func (m Money) Round2() Money                 { return Money{Value: m.Value.Round(2)} }
func (m Money) String() string                { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OrgID string
type EmployeeID string
type CycleID string

// =============================================================================
// ORGANIZATION - Tenant boundary
// =============================================================================

type Organization struct {
	ID        OrgID
	Name      string
	CreatedAt time.Time
}

// =============================================================================
// EMPLOYEE
// =============================================================================

type EmploymentStatus string

const (
	EmploymentActive   EmploymentStatus = "active"
	EmploymentInactive EmploymentStatus = "inactive"
)

type Employee struct {
	ID       EmployeeID
	OrgID    OrgID
	Name     string
	Email    string
	Status   EmploymentStatus
	JoinDate time.Time

	CreatedAt time.Time
}

// EligibleFor reports whether the employee is payroll-eligible for a month
// ending at monthEnd: active and joined on or before the month's end.
func (e Employee) EligibleFor(monthEnd time.Time) bool {
	return e.Status == EmploymentActive && !e.JoinDate.After(monthEnd)
}

// =============================================================================
// COMPENSATION STRUCTURE - Versioned salary components
// =============================================================================

// CompensationStructure is one version of an employee's pay. Multiple rows
// exist per employee ordered by EffectiveFrom; the resolver picks the latest
// row not after the target month's end. Immutable once superseded.
type CompensationStructure struct {
	ID            string
	EmployeeID    EmployeeID
	EffectiveFrom time.Time

	CTC              Money // annual, used only for the component fallback split
	Basic            Money
	HRA              Money
	SpecialAllowance Money
	DA               Money
	LTA              Money
	Bonus            Money

	CreatedAt time.Time
}

// MonthlyGross is the unadjusted monthly gross: the sum of all earning
// components. A zero sum signals the CTC fallback path in the calculator.
func (c CompensationStructure) MonthlyGross() Money {
	return c.Basic.Add(c.HRA).Add(c.SpecialAllowance).Add(c.DA).Add(c.LTA).Add(c.Bonus)
}

// =============================================================================
// PAYROLL SETTINGS - Per-org deduction rates
// =============================================================================

// PayrollSettings holds an organization's configurable rates. Zero-valued
// fields mean "unset"; ResolveSettings substitutes system defaults.
// The three split percentages must sum to 100 when operator-supplied.
type PayrollSettings struct {
	OrgID OrgID

	PFRate       decimal.Decimal // percent of adjusted basic
	ESIRate      decimal.Decimal // stored for operators; withholding uses the statutory rate
	PTRate       Money           // flat monthly amount
	TDSThreshold Money           // annual

	BasicSplit   decimal.Decimal // percent of CTC/12 in the fallback path
	HRASplit     decimal.Decimal
	SpecialSplit decimal.Decimal

	UpdatedAt time.Time
}

// =============================================================================
// PAYROLL CYCLE - One organization-month computation
// =============================================================================

// PayrollCycle is unique per (org, month, year). Totals are derived from the
// cycle's PayrollItems, never maintained incrementally.
type PayrollCycle struct {
	ID     CycleID
	OrgID  OrgID
	Month  Month
	Status CycleStatus

	TotalEmployees int
	TotalAmount    Money // sum of gross across items

	SubmittedAt     *time.Time
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectedBy      string
	RejectedAt      *time.Time
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// PAYROLL ITEM - One employee's payslip line in a cycle
// =============================================================================

// PayrollItem is unique per (cycle, employee) and upserted idempotently.
// Invariants: Net = GrossWithIncentive - (PF+ESI+PT+TDS), and
// PaidDays + LOPDays = TotalWorkingDays.
type PayrollItem struct {
	ID         string
	CycleID    CycleID
	EmployeeID EmployeeID

	// Earnings (prorated by paid days)
	Basic            Money
	HRA              Money
	SpecialAllowance Money
	DA               Money
	LTA              Money
	Bonus            Money
	Gross            Money // prorated gross, excluding incentive
	Incentive        Money // never prorated

	GrossWithIncentive Money

	// Deductions
	PF              Money
	ESI             Money
	PT              Money
	TDS             Money
	TotalDeductions Money

	Net Money

	TotalWorkingDays int
	LOPDays          int
	PaidDays         int

	ComputedAt time.Time
}

// =============================================================================
// PAYROLL INCENTIVE - Ad-hoc, non-prorated addition
// =============================================================================

// PayrollIncentive is one optional amount per (cycle, employee).
// A zero amount is equivalent to absence: writes with zero delete the row.
type PayrollIncentive struct {
	CycleID    CycleID
	EmployeeID EmployeeID
	Amount     Money
	Note       string
	CreatedAt  time.Time
}
