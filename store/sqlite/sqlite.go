/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements payroll.Store using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  organizations:           Tenant boundary
  employees:               Who gets paid
  compensation_structures: Versioned salary components (effective-dated)
  payroll_settings:        Per-org deduction rates (one row per org)
  payroll_cycles:          One row per (org, month, year)
  payroll_items:           One row per (cycle, employee)
  payroll_incentives:      At most one row per (cycle, employee)

UNIQUENESS AS CONCURRENCY CONTROL:
  The engine relies on two unique constraints:
  - payroll_cycles UNIQUE(org_id, month, year): concurrent cycle creation
    converges on one row; CreateCycle returns the surviving row.
  - payroll_items UNIQUE(cycle_id, employee_id): concurrent computation of
    the same employee-month converges via ON CONFLICT DO UPDATE.
  There is no other locking protocol.

MONEY STORAGE:
  Monetary values and rates are stored as TEXT in decimal string form,
  never as REAL. Parsing back through shopspring/decimal keeps arithmetic
  exact across a round-trip.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := payroll.NewCycleService(store, nil)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Store implements payroll.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Organizations (tenant boundary)
	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		join_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_org
		ON employees(org_id);
	CREATE INDEX IF NOT EXISTS idx_employees_org_status
		ON employees(org_id, status);

	-- Compensation structures (versioned; resolver picks latest effective)
	CREATE TABLE IF NOT EXISTS compensation_structures (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		ctc TEXT NOT NULL DEFAULT '0',
		basic TEXT NOT NULL DEFAULT '0',
		hra TEXT NOT NULL DEFAULT '0',
		special_allowance TEXT NOT NULL DEFAULT '0',
		da TEXT NOT NULL DEFAULT '0',
		lta TEXT NOT NULL DEFAULT '0',
		bonus TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Resolver hot path: latest record with effective_from <= month end
	CREATE INDEX IF NOT EXISTS idx_compensation_employee_effective
		ON compensation_structures(employee_id, effective_from);

	-- Payroll settings (one row per org; absent row = all defaults)
	CREATE TABLE IF NOT EXISTS payroll_settings (
		org_id TEXT PRIMARY KEY,
		pf_rate TEXT NOT NULL DEFAULT '0',
		esi_rate TEXT NOT NULL DEFAULT '0',
		pt_rate TEXT NOT NULL DEFAULT '0',
		tds_threshold TEXT NOT NULL DEFAULT '0',
		basic_split TEXT NOT NULL DEFAULT '0',
		hra_split TEXT NOT NULL DEFAULT '0',
		special_split TEXT NOT NULL DEFAULT '0',
		updated_at TEXT NOT NULL
	);

	-- Payroll cycles
	-- CRITICAL: UNIQUE(org_id, month, year) is the concurrency mechanism
	-- for cycle creation; two simultaneous creates converge on one row.
	CREATE TABLE IF NOT EXISTS payroll_cycles (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		total_employees INTEGER NOT NULL DEFAULT 0,
		total_amount TEXT NOT NULL DEFAULT '0',
		submitted_at TEXT,
		approved_by TEXT,
		approved_at TEXT,
		rejected_by TEXT,
		rejected_at TEXT,
		rejection_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(org_id, month, year)
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_org
		ON payroll_cycles(org_id, year DESC, month DESC);

	-- Payroll items
	-- CRITICAL: UNIQUE(cycle_id, employee_id) makes recomputation converge;
	-- the replace-on-conflict upsert is the only write path.
	CREATE TABLE IF NOT EXISTS payroll_items (
		id TEXT PRIMARY KEY,
		cycle_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		basic TEXT NOT NULL DEFAULT '0',
		hra TEXT NOT NULL DEFAULT '0',
		special_allowance TEXT NOT NULL DEFAULT '0',
		da TEXT NOT NULL DEFAULT '0',
		lta TEXT NOT NULL DEFAULT '0',
		bonus TEXT NOT NULL DEFAULT '0',
		gross TEXT NOT NULL DEFAULT '0',
		incentive TEXT NOT NULL DEFAULT '0',
		gross_with_incentive TEXT NOT NULL DEFAULT '0',
		pf TEXT NOT NULL DEFAULT '0',
		esi TEXT NOT NULL DEFAULT '0',
		pt TEXT NOT NULL DEFAULT '0',
		tds TEXT NOT NULL DEFAULT '0',
		total_deductions TEXT NOT NULL DEFAULT '0',
		net TEXT NOT NULL DEFAULT '0',
		total_working_days INTEGER NOT NULL DEFAULT 0,
		lop_days INTEGER NOT NULL DEFAULT 0,
		paid_days INTEGER NOT NULL DEFAULT 0,
		computed_at TEXT NOT NULL,
		UNIQUE(cycle_id, employee_id)
	);

	CREATE INDEX IF NOT EXISTS idx_items_cycle
		ON payroll_items(cycle_id);
	-- Payslip history read path
	CREATE INDEX IF NOT EXISTS idx_items_employee
		ON payroll_items(employee_id);

	-- Payroll incentives (at most one per employee per cycle)
	CREATE TABLE IF NOT EXISTS payroll_incentives (
		cycle_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		note TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(cycle_id, employee_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ORGANIZATION STORE
// =============================================================================

// SaveOrganization saves an organization record.
func (s *Store) SaveOrganization(ctx context.Context, org payroll.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO organizations (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query,
		string(org.ID), org.Name, timeString(org.CreatedAt),
	)
	return err
}

// GetOrganization retrieves an organization by ID.
func (s *Store) GetOrganization(ctx context.Context, id payroll.OrgID) (*payroll.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var org payroll.Organization
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM organizations WHERE id = ?",
		string(id),
	).Scan(&org.ID, &org.Name, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	org.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &org, nil
}

// ListOrganizations returns all organizations.
func (s *Store) ListOrganizations(ctx context.Context) ([]payroll.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM organizations ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []payroll.Organization
	for rows.Next() {
		var org payroll.Organization
		var createdAt string
		if err := rows.Scan(&org.ID, &org.Name, &createdAt); err != nil {
			return nil, err
		}
		org.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee saves an employee record.
func (s *Store) SaveEmployee(ctx context.Context, emp payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, org_id, name, email, status, join_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			org_id = excluded.org_id,
			name = excluded.name,
			email = excluded.email,
			status = excluded.status,
			join_date = excluded.join_date
	`

	_, err := s.db.ExecContext(ctx, query,
		string(emp.ID), string(emp.OrgID), emp.Name, emp.Email,
		string(emp.Status), timeString(emp.JoinDate), timeString(emp.CreatedAt),
	)
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id payroll.EmployeeID) (*payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, org_id, name, email, status, join_date, created_at FROM employees WHERE id = ?",
		string(id),
	)

	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns all of an organization's employees.
func (s *Store) ListEmployees(ctx context.Context, orgID payroll.OrgID) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx,
		"SELECT id, org_id, name, email, status, join_date, created_at FROM employees WHERE org_id = ? ORDER BY name",
		string(orgID))
}

// ActiveEmployeesAsOf returns active employees who joined on or before asOf.
// This is the eligibility query the cycle computation loop runs.
func (s *Store) ActiveEmployeesAsOf(ctx context.Context, orgID payroll.OrgID, asOf time.Time) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx,
		"SELECT id, org_id, name, email, status, join_date, created_at FROM employees WHERE org_id = ? AND status = 'active' AND join_date <= ? ORDER BY name",
		string(orgID), timeString(asOf))
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []payroll.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func scanEmployee(row interface{ Scan(...any) error }) (payroll.Employee, error) {
	var emp payroll.Employee
	var email sql.NullString
	var joinDate, createdAt string

	err := row.Scan(&emp.ID, &emp.OrgID, &emp.Name, &email, &emp.Status, &joinDate, &createdAt)
	if err != nil {
		return emp, err
	}

	emp.Email = email.String
	emp.JoinDate, _ = time.Parse(time.RFC3339, joinDate)
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return emp, nil
}

// =============================================================================
// COMPENSATION STORE
// =============================================================================

// SaveCompensation saves a compensation structure version.
func (s *Store) SaveCompensation(ctx context.Context, comp payroll.CompensationStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO compensation_structures
			(id, employee_id, effective_from, ctc, basic, hra, special_allowance, da, lta, bonus, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			effective_from = excluded.effective_from,
			ctc = excluded.ctc,
			basic = excluded.basic,
			hra = excluded.hra,
			special_allowance = excluded.special_allowance,
			da = excluded.da,
			lta = excluded.lta,
			bonus = excluded.bonus
	`

	_, err := s.db.ExecContext(ctx, query,
		comp.ID, string(comp.EmployeeID), timeString(comp.EffectiveFrom),
		comp.CTC.Value.String(), comp.Basic.Value.String(), comp.HRA.Value.String(),
		comp.SpecialAllowance.Value.String(), comp.DA.Value.String(),
		comp.LTA.Value.String(), comp.Bonus.Value.String(),
		timeString(comp.CreatedAt),
	)
	return err
}

// ListCompensation returns an employee's compensation versions, oldest first.
func (s *Store) ListCompensation(ctx context.Context, employeeID payroll.EmployeeID) ([]payroll.CompensationStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, effective_from, ctc, basic, hra, special_allowance, da, lta, bonus, created_at
		FROM compensation_structures
		WHERE employee_id = ?
		ORDER BY effective_from ASC`,
		string(employeeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []payroll.CompensationStructure
	for rows.Next() {
		var c payroll.CompensationStructure
		var effectiveFrom, createdAt string
		var ctc, basic, hra, special, da, lta, bonus string

		if err := rows.Scan(&c.ID, &c.EmployeeID, &effectiveFrom,
			&ctc, &basic, &hra, &special, &da, &lta, &bonus, &createdAt); err != nil {
			return nil, err
		}

		c.EffectiveFrom, _ = time.Parse(time.RFC3339, effectiveFrom)
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		c.CTC = parseMoney(ctc)
		c.Basic = parseMoney(basic)
		c.HRA = parseMoney(hra)
		c.SpecialAllowance = parseMoney(special)
		c.DA = parseMoney(da)
		c.LTA = parseMoney(lta)
		c.Bonus = parseMoney(bonus)
		records = append(records, c)
	}
	return records, rows.Err()
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

// SaveSettings upserts an organization's payroll settings row.
func (s *Store) SaveSettings(ctx context.Context, settings payroll.PayrollSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payroll_settings
			(org_id, pf_rate, esi_rate, pt_rate, tds_threshold, basic_split, hra_split, special_split, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id) DO UPDATE SET
			pf_rate = excluded.pf_rate,
			esi_rate = excluded.esi_rate,
			pt_rate = excluded.pt_rate,
			tds_threshold = excluded.tds_threshold,
			basic_split = excluded.basic_split,
			hra_split = excluded.hra_split,
			special_split = excluded.special_split,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(settings.OrgID),
		settings.PFRate.String(), settings.ESIRate.String(),
		settings.PTRate.Value.String(), settings.TDSThreshold.Value.String(),
		settings.BasicSplit.String(), settings.HRASplit.String(), settings.SpecialSplit.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetSettings returns an org's stored settings, or nil when none exist.
// Resolution against system defaults happens in the payroll package, not here.
func (s *Store) GetSettings(ctx context.Context, orgID payroll.OrgID) (*payroll.PayrollSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var settings payroll.PayrollSettings
	var pfRate, esiRate, ptRate, tdsThreshold, basicSplit, hraSplit, specialSplit string
	var updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT org_id, pf_rate, esi_rate, pt_rate, tds_threshold, basic_split, hra_split, special_split, updated_at
		FROM payroll_settings WHERE org_id = ?`,
		string(orgID),
	).Scan(&settings.OrgID, &pfRate, &esiRate, &ptRate, &tdsThreshold,
		&basicSplit, &hraSplit, &specialSplit, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	settings.PFRate = parseDecimal(pfRate)
	settings.ESIRate = parseDecimal(esiRate)
	settings.PTRate = parseMoney(ptRate)
	settings.TDSThreshold = parseMoney(tdsThreshold)
	settings.BasicSplit = parseDecimal(basicSplit)
	settings.HRASplit = parseDecimal(hraSplit)
	settings.SpecialSplit = parseDecimal(specialSplit)
	settings.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &settings, nil
}

// =============================================================================
// CYCLE STORE
// =============================================================================

// CreateCycle inserts a cycle if none exists for (org, month, year) and
// returns the surviving row either way. The unique constraint, not a lock,
// is what makes concurrent creation converge.
func (s *Store) CreateCycle(ctx context.Context, cycle payroll.PayrollCycle) (payroll.PayrollCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payroll_cycles
			(id, org_id, month, year, status, total_employees, total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, month, year) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		string(cycle.ID), string(cycle.OrgID), int(cycle.Month.Month), cycle.Month.Year,
		string(cycle.Status), cycle.TotalEmployees, cycle.TotalAmount.Value.String(),
		timeString(cycle.CreatedAt), timeString(cycle.UpdatedAt),
	)
	if err != nil {
		return payroll.PayrollCycle{}, err
	}

	row := s.db.QueryRowContext(ctx,
		cycleSelect+" WHERE org_id = ? AND month = ? AND year = ?",
		string(cycle.OrgID), int(cycle.Month.Month), cycle.Month.Year)
	existing, err := scanCycle(row)
	if err != nil {
		return payroll.PayrollCycle{}, err
	}
	return existing, nil
}

const cycleSelect = `
	SELECT id, org_id, month, year, status, total_employees, total_amount,
	       submitted_at, approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	       created_at, updated_at
	FROM payroll_cycles`

// GetCycle retrieves a cycle by ID.
func (s *Store) GetCycle(ctx context.Context, id payroll.CycleID) (*payroll.PayrollCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, cycleSelect+" WHERE id = ?", string(id))
	cycle, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

// GetCycleByMonth retrieves the cycle for (org, month), or nil.
func (s *Store) GetCycleByMonth(ctx context.Context, orgID payroll.OrgID, month payroll.Month) (*payroll.PayrollCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		cycleSelect+" WHERE org_id = ? AND month = ? AND year = ?",
		string(orgID), int(month.Month), month.Year)
	cycle, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

// ListCycles returns an org's cycles, newest month first.
func (s *Store) ListCycles(ctx context.Context, orgID payroll.OrgID) ([]payroll.PayrollCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		cycleSelect+" WHERE org_id = ? ORDER BY year DESC, month DESC",
		string(orgID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []payroll.PayrollCycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}

// UpdateCycle persists status, totals, and approval metadata.
func (s *Store) UpdateCycle(ctx context.Context, cycle payroll.PayrollCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE payroll_cycles SET
			status = ?,
			total_employees = ?,
			total_amount = ?,
			submitted_at = ?,
			approved_by = ?,
			approved_at = ?,
			rejected_by = ?,
			rejected_at = ?,
			rejection_reason = ?,
			updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		string(cycle.Status), cycle.TotalEmployees, cycle.TotalAmount.Value.String(),
		nullTime(cycle.SubmittedAt),
		nullString(cycle.ApprovedBy), nullTime(cycle.ApprovedAt),
		nullString(cycle.RejectedBy), nullTime(cycle.RejectedAt),
		nullString(cycle.RejectionReason),
		timeString(cycle.UpdatedAt),
		string(cycle.ID),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return payroll.ErrCycleNotFound
	}
	return nil
}

func scanCycle(row interface{ Scan(...any) error }) (payroll.PayrollCycle, error) {
	var cycle payroll.PayrollCycle
	var month, year int
	var totalAmount, createdAt, updatedAt string
	var submittedAt, approvedBy, approvedAt, rejectedBy, rejectedAt, rejectionReason sql.NullString

	err := row.Scan(&cycle.ID, &cycle.OrgID, &month, &year, &cycle.Status,
		&cycle.TotalEmployees, &totalAmount,
		&submittedAt, &approvedBy, &approvedAt, &rejectedBy, &rejectedAt, &rejectionReason,
		&createdAt, &updatedAt)
	if err != nil {
		return cycle, err
	}

	cycle.Month = payroll.NewMonth(year, time.Month(month))
	cycle.TotalAmount = parseMoney(totalAmount)
	cycle.SubmittedAt = parseNullTime(submittedAt)
	cycle.ApprovedBy = approvedBy.String
	cycle.ApprovedAt = parseNullTime(approvedAt)
	cycle.RejectedBy = rejectedBy.String
	cycle.RejectedAt = parseNullTime(rejectedAt)
	cycle.RejectionReason = rejectionReason.String
	cycle.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	cycle.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return cycle, nil
}

// =============================================================================
// ITEM STORE
// =============================================================================

// UpsertItem writes a payroll item, replacing figures when a row already
// exists for (cycle, employee). The original row's id is kept.
func (s *Store) UpsertItem(ctx context.Context, item payroll.PayrollItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payroll_items
			(id, cycle_id, employee_id, basic, hra, special_allowance, da, lta, bonus,
			 gross, incentive, gross_with_incentive, pf, esi, pt, tds, total_deductions, net,
			 total_working_days, lop_days, paid_days, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cycle_id, employee_id) DO UPDATE SET
			basic = excluded.basic,
			hra = excluded.hra,
			special_allowance = excluded.special_allowance,
			da = excluded.da,
			lta = excluded.lta,
			bonus = excluded.bonus,
			gross = excluded.gross,
			incentive = excluded.incentive,
			gross_with_incentive = excluded.gross_with_incentive,
			pf = excluded.pf,
			esi = excluded.esi,
			pt = excluded.pt,
			tds = excluded.tds,
			total_deductions = excluded.total_deductions,
			net = excluded.net,
			total_working_days = excluded.total_working_days,
			lop_days = excluded.lop_days,
			paid_days = excluded.paid_days,
			computed_at = excluded.computed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		item.ID, string(item.CycleID), string(item.EmployeeID),
		item.Basic.Value.String(), item.HRA.Value.String(), item.SpecialAllowance.Value.String(),
		item.DA.Value.String(), item.LTA.Value.String(), item.Bonus.Value.String(),
		item.Gross.Value.String(), item.Incentive.Value.String(), item.GrossWithIncentive.Value.String(),
		item.PF.Value.String(), item.ESI.Value.String(), item.PT.Value.String(), item.TDS.Value.String(),
		item.TotalDeductions.Value.String(), item.Net.Value.String(),
		item.TotalWorkingDays, item.LOPDays, item.PaidDays,
		timeString(item.ComputedAt),
	)
	return err
}

const itemSelect = `
	SELECT id, cycle_id, employee_id, basic, hra, special_allowance, da, lta, bonus,
	       gross, incentive, gross_with_incentive, pf, esi, pt, tds, total_deductions, net,
	       total_working_days, lop_days, paid_days, computed_at
	FROM payroll_items`

// GetItem retrieves the item for (cycle, employee), or nil.
func (s *Store) GetItem(ctx context.Context, cycleID payroll.CycleID, employeeID payroll.EmployeeID) (*payroll.PayrollItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		itemSelect+" WHERE cycle_id = ? AND employee_id = ?",
		string(cycleID), string(employeeID))
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns a cycle's items.
func (s *Store) ListItems(ctx context.Context, cycleID payroll.CycleID) ([]payroll.PayrollItem, error) {
	return s.queryItems(ctx,
		itemSelect+" WHERE cycle_id = ? ORDER BY employee_id",
		string(cycleID))
}

// ListItemsByEmployee returns an employee's payslip lines across all cycles,
// oldest month first.
func (s *Store) ListItemsByEmployee(ctx context.Context, employeeID payroll.EmployeeID) ([]payroll.PayrollItem, error) {
	return s.queryItems(ctx, `
		SELECT i.id, i.cycle_id, i.employee_id, i.basic, i.hra, i.special_allowance, i.da, i.lta, i.bonus,
		       i.gross, i.incentive, i.gross_with_incentive, i.pf, i.esi, i.pt, i.tds, i.total_deductions, i.net,
		       i.total_working_days, i.lop_days, i.paid_days, i.computed_at
		FROM payroll_items i
		JOIN payroll_cycles c ON c.id = i.cycle_id
		WHERE i.employee_id = ?
		ORDER BY c.year ASC, c.month ASC`,
		string(employeeID))
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]payroll.PayrollItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []payroll.PayrollItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row interface{ Scan(...any) error }) (payroll.PayrollItem, error) {
	var item payroll.PayrollItem
	var basic, hra, special, da, lta, bonus string
	var gross, incentive, grossWith, pf, esi, pt, tds, totalDeductions, net string
	var computedAt string

	err := row.Scan(&item.ID, &item.CycleID, &item.EmployeeID,
		&basic, &hra, &special, &da, &lta, &bonus,
		&gross, &incentive, &grossWith, &pf, &esi, &pt, &tds, &totalDeductions, &net,
		&item.TotalWorkingDays, &item.LOPDays, &item.PaidDays, &computedAt)
	if err != nil {
		return item, err
	}

	item.Basic = parseMoney(basic)
	item.HRA = parseMoney(hra)
	item.SpecialAllowance = parseMoney(special)
	item.DA = parseMoney(da)
	item.LTA = parseMoney(lta)
	item.Bonus = parseMoney(bonus)
	item.Gross = parseMoney(gross)
	item.Incentive = parseMoney(incentive)
	item.GrossWithIncentive = parseMoney(grossWith)
	item.PF = parseMoney(pf)
	item.ESI = parseMoney(esi)
	item.PT = parseMoney(pt)
	item.TDS = parseMoney(tds)
	item.TotalDeductions = parseMoney(totalDeductions)
	item.Net = parseMoney(net)
	item.ComputedAt, _ = time.Parse(time.RFC3339, computedAt)
	return item, nil
}

// =============================================================================
// INCENTIVE STORE
// =============================================================================

// SaveIncentive upserts the single incentive for (cycle, employee).
func (s *Store) SaveIncentive(ctx context.Context, inc payroll.PayrollIncentive) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payroll_incentives (cycle_id, employee_id, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cycle_id, employee_id) DO UPDATE SET
			amount = excluded.amount,
			note = excluded.note
	`

	_, err := s.db.ExecContext(ctx, query,
		string(inc.CycleID), string(inc.EmployeeID),
		inc.Amount.Value.String(), nullString(inc.Note), timeString(inc.CreatedAt),
	)
	return err
}

// DeleteIncentive removes the incentive for (cycle, employee). Deleting a
// missing row is not an error.
func (s *Store) DeleteIncentive(ctx context.Context, cycleID payroll.CycleID, employeeID payroll.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM payroll_incentives WHERE cycle_id = ? AND employee_id = ?",
		string(cycleID), string(employeeID))
	return err
}

// GetIncentive retrieves the incentive for (cycle, employee), or nil.
func (s *Store) GetIncentive(ctx context.Context, cycleID payroll.CycleID, employeeID payroll.EmployeeID) (*payroll.PayrollIncentive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var inc payroll.PayrollIncentive
	var amount, createdAt string
	var note sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT cycle_id, employee_id, amount, note, created_at FROM payroll_incentives WHERE cycle_id = ? AND employee_id = ?",
		string(cycleID), string(employeeID),
	).Scan(&inc.CycleID, &inc.EmployeeID, &amount, &note, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	inc.Amount = parseMoney(amount)
	inc.Note = note.String
	inc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &inc, nil
}

// ListIncentives returns a cycle's incentives.
func (s *Store) ListIncentives(ctx context.Context, cycleID payroll.CycleID) ([]payroll.PayrollIncentive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT cycle_id, employee_id, amount, note, created_at FROM payroll_incentives WHERE cycle_id = ? ORDER BY employee_id",
		string(cycleID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incentives []payroll.PayrollIncentive
	for rows.Next() {
		var inc payroll.PayrollIncentive
		var amount, createdAt string
		var note sql.NullString
		if err := rows.Scan(&inc.CycleID, &inc.EmployeeID, &amount, &note, &createdAt); err != nil {
			return nil, err
		}
		inc.Amount = parseMoney(amount)
		inc.Note = note.String
		inc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		incentives = append(incentives, inc)
	}
	return incentives, rows.Err()
}

// =============================================================================
// ADMIN / UTILITY
// =============================================================================

// Reset clears all data (for testing).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"payroll_incentives", "payroll_items", "payroll_cycles",
		"payroll_settings", "compensation_structures", "employees", "organizations",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func timeString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: timeString(*t), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseMoney(s string) payroll.Money {
	return payroll.Money{Value: parseDecimal(s)}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
