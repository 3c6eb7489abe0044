package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEmployee(id, orgID string, status payroll.EmploymentStatus, join time.Time) payroll.Employee {
	return payroll.Employee{
		ID:        payroll.EmployeeID(id),
		OrgID:     payroll.OrgID(orgID),
		Name:      "Employee " + id,
		Email:     id + "@example.com",
		Status:    status,
		JoinDate:  join,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testItem(id string, cycleID payroll.CycleID, employeeID payroll.EmployeeID, net float64) payroll.PayrollItem {
	return payroll.PayrollItem{
		ID:               id,
		CycleID:          cycleID,
		EmployeeID:       employeeID,
		Basic:            payroll.NewMoney(20000),
		Gross:            payroll.NewMoney(33000),
		Net:              payroll.NewMoney(net),
		TotalWorkingDays: 30,
		PaidDays:         30,
		ComputedAt:       time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// ORGANIZATIONS AND EMPLOYEES
// =============================================================================

func TestOrganizationRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetOrganization(ctx, "org-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	org := payroll.Organization{
		ID:        "org-1",
		Name:      "Acme",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveOrganization(ctx, org))

	got, err := store.GetOrganization(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Name)
	assert.True(t, got.CreatedAt.Equal(org.CreatedAt))

	// Save again with a new name: upsert, not duplicate.
	org.Name = "Acme Renamed"
	require.NoError(t, store.SaveOrganization(ctx, org))

	all, err := store.ListOrganizations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Acme Renamed", all[0].Name)
}

func TestEmployeeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	join := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveEmployee(ctx, testEmployee("emp-1", "org-1", payroll.EmploymentActive, join)))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, payroll.OrgID("org-1"), got.OrgID)
	assert.Equal(t, payroll.EmploymentActive, got.Status)
	assert.True(t, got.JoinDate.Equal(join))

	missing, err := store.GetEmployee(ctx, "emp-ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestActiveEmployeesAsOf(t *testing.T) {
	// GIVEN: An active employee, an inactive one, and one joining later
	// WHEN: Querying as-of July month end
	// THEN: Only the active, already-joined employee comes back

	store := newTestStore(t)
	ctx := context.Background()

	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sep := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveEmployee(ctx, testEmployee("emp-active", "org-1", payroll.EmploymentActive, jan)))
	require.NoError(t, store.SaveEmployee(ctx, testEmployee("emp-inactive", "org-1", payroll.EmploymentInactive, jan)))
	require.NoError(t, store.SaveEmployee(ctx, testEmployee("emp-future", "org-1", payroll.EmploymentActive, sep)))
	require.NoError(t, store.SaveEmployee(ctx, testEmployee("emp-other-org", "org-2", payroll.EmploymentActive, jan)))

	asOf := payroll.NewMonth(2025, time.July).End()
	active, err := store.ActiveEmployeesAsOf(ctx, "org-1", asOf)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, payroll.EmployeeID("emp-active"), active[0].ID)
}

// =============================================================================
// COMPENSATION AND SETTINGS
// =============================================================================

func TestCompensationRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	second := payroll.CompensationStructure{
		ID:            "comp-2",
		EmployeeID:    "emp-1",
		EffectiveFrom: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Basic:         payroll.NewMoney(25000),
		HRA:           payroll.NewMoney(10000),
		CreatedAt:     time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
	}
	first := payroll.CompensationStructure{
		ID:            "comp-1",
		EmployeeID:    "emp-1",
		EffectiveFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		CTC:           payroll.NewMoney(480000),
		CreatedAt:     time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveCompensation(ctx, second))
	require.NoError(t, store.SaveCompensation(ctx, first))

	records, err := store.ListCompensation(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Ascending by effective date regardless of insertion order.
	assert.Equal(t, "comp-1", records[0].ID)
	assert.Equal(t, "comp-2", records[1].ID)
	assert.Equal(t, "480000.00", records[0].CTC.String())
	assert.Equal(t, "25000.00", records[1].Basic.String())
}

func TestSettings_AbsentRowIsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetSettings(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := payroll.DefaultSettings("org-1")
	settings.UpdatedAt = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSettings(ctx, settings))

	got, err := store.GetSettings(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.PFRate.Equal(settings.PFRate))
	assert.Equal(t, "200.00", got.PTRate.String())
	assert.True(t, got.BasicSplit.Equal(settings.BasicSplit))
}

// =============================================================================
// CYCLES
// =============================================================================

func baseCycle(id string, month payroll.Month) payroll.PayrollCycle {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	return payroll.PayrollCycle{
		ID:        payroll.CycleID(id),
		OrgID:     "org-1",
		Month:     month,
		Status:    payroll.CycleDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateCycle_ConflictReturnsExisting(t *testing.T) {
	// The UNIQUE(org_id, month, year) constraint is the concurrency
	// mechanism: a second create for the same month loses silently and gets
	// the winner's row back.

	store := newTestStore(t)
	ctx := context.Background()
	month := payroll.NewMonth(2025, time.July)

	winner, err := store.CreateCycle(ctx, baseCycle("cycle-1", month))
	require.NoError(t, err)
	assert.Equal(t, payroll.CycleID("cycle-1"), winner.ID)

	loser, err := store.CreateCycle(ctx, baseCycle("cycle-2", month))
	require.NoError(t, err)
	assert.Equal(t, payroll.CycleID("cycle-1"), loser.ID)

	cycles, err := store.ListCycles(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
}

func TestCycleRoundTrip_LifecycleColumns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cycle, err := store.CreateCycle(ctx, baseCycle("cycle-1", payroll.NewMonth(2025, time.July)))
	require.NoError(t, err)

	submitted := time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)
	approved := time.Date(2025, 7, 21, 9, 0, 0, 0, time.UTC)
	cycle.Status = payroll.CycleApproved
	cycle.SubmittedAt = &submitted
	cycle.ApprovedBy = "hr-admin"
	cycle.ApprovedAt = &approved
	cycle.TotalEmployees = 3
	cycle.TotalAmount = payroll.NewMoney(99000)
	require.NoError(t, store.UpdateCycle(ctx, cycle))

	got, err := store.GetCycle(ctx, "cycle-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, payroll.CycleApproved, got.Status)
	assert.Equal(t, "hr-admin", got.ApprovedBy)
	require.NotNil(t, got.SubmittedAt)
	assert.True(t, got.SubmittedAt.Equal(submitted))
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, got.ApprovedAt.Equal(approved))
	assert.Nil(t, got.RejectedAt)
	assert.Equal(t, 3, got.TotalEmployees)
	assert.Equal(t, "99000.00", got.TotalAmount.String())
}

func TestGetCycleByMonth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCycle(ctx, baseCycle("cycle-jul", payroll.NewMonth(2025, time.July)))
	require.NoError(t, err)

	got, err := store.GetCycleByMonth(ctx, "org-1", payroll.NewMonth(2025, time.July))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, payroll.CycleID("cycle-jul"), got.ID)

	none, err := store.GetCycleByMonth(ctx, "org-1", payroll.NewMonth(2025, time.June))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListCycles_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCycle(ctx, baseCycle("cycle-nov", payroll.NewMonth(2024, time.November)))
	require.NoError(t, err)
	_, err = store.CreateCycle(ctx, baseCycle("cycle-feb", payroll.NewMonth(2025, time.February)))
	require.NoError(t, err)
	_, err = store.CreateCycle(ctx, baseCycle("cycle-jan", payroll.NewMonth(2025, time.January)))
	require.NoError(t, err)

	cycles, err := store.ListCycles(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, cycles, 3)
	assert.Equal(t, payroll.CycleID("cycle-feb"), cycles[0].ID)
	assert.Equal(t, payroll.CycleID("cycle-jan"), cycles[1].ID)
	assert.Equal(t, payroll.CycleID("cycle-nov"), cycles[2].ID)
}

func TestUpdateCycle_Missing(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateCycle(context.Background(), baseCycle("cycle-ghost", payroll.NewMonth(2025, time.July)))
	assert.ErrorIs(t, err, payroll.ErrCycleNotFound)
}

// =============================================================================
// ITEMS
// =============================================================================

func TestUpsertItem_ConvergesOnOneRow(t *testing.T) {
	// GIVEN: An item already stored for (cycle, employee)
	// WHEN: Upserting fresh figures under a new item ID
	// THEN: Still one row, original identity kept, figures replaced

	store := newTestStore(t)
	ctx := context.Background()

	cycle, err := store.CreateCycle(ctx, baseCycle("cycle-1", payroll.NewMonth(2025, time.July)))
	require.NoError(t, err)

	require.NoError(t, store.UpsertItem(ctx, testItem("item-1", cycle.ID, "emp-1", 29791.67)))

	recomputed := testItem("item-2", cycle.ID, "emp-1", 19976.67)
	recomputed.LOPDays = 10
	recomputed.PaidDays = 20
	require.NoError(t, store.UpsertItem(ctx, recomputed))

	items, err := store.ListItems(ctx, cycle.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "item-1", items[0].ID)
	assert.Equal(t, "19976.67", items[0].Net.String())
	assert.Equal(t, 10, items[0].LOPDays)
}

func TestListItemsByEmployee_OldestMonthFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	julCycle, err := store.CreateCycle(ctx, baseCycle("cycle-jul", payroll.NewMonth(2025, time.July)))
	require.NoError(t, err)
	novCycle, err := store.CreateCycle(ctx, baseCycle("cycle-nov", payroll.NewMonth(2024, time.November)))
	require.NoError(t, err)
	marCycle, err := store.CreateCycle(ctx, baseCycle("cycle-mar", payroll.NewMonth(2025, time.March)))
	require.NoError(t, err)

	require.NoError(t, store.UpsertItem(ctx, testItem("item-jul", julCycle.ID, "emp-1", 100)))
	require.NoError(t, store.UpsertItem(ctx, testItem("item-nov", novCycle.ID, "emp-1", 200)))
	require.NoError(t, store.UpsertItem(ctx, testItem("item-mar", marCycle.ID, "emp-1", 300)))
	require.NoError(t, store.UpsertItem(ctx, testItem("item-other", julCycle.ID, "emp-2", 400)))

	items, err := store.ListItemsByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "item-nov", items[0].ID)
	assert.Equal(t, "item-mar", items[1].ID)
	assert.Equal(t, "item-jul", items[2].ID)
}

func TestGetItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cycle, err := store.CreateCycle(ctx, baseCycle("cycle-1", payroll.NewMonth(2025, time.July)))
	require.NoError(t, err)
	require.NoError(t, store.UpsertItem(ctx, testItem("item-1", cycle.ID, "emp-1", 29791.67)))

	got, err := store.GetItem(ctx, cycle.ID, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "33000.00", got.Gross.String())

	missing, err := store.GetItem(ctx, cycle.ID, "emp-ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// INCENTIVES
// =============================================================================

func TestIncentiveLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inc := payroll.PayrollIncentive{
		CycleID:    "cycle-1",
		EmployeeID: "emp-1",
		Amount:     payroll.NewMoney(5000),
		Note:       "quarterly bonus",
		CreatedAt:  time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveIncentive(ctx, inc))

	got, err := store.GetIncentive(ctx, "cycle-1", "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "5000.00", got.Amount.String())
	assert.Equal(t, "quarterly bonus", got.Note)

	// Re-saving replaces the amount: one incentive per employee per cycle.
	inc.Amount = payroll.NewMoney(7500)
	require.NoError(t, store.SaveIncentive(ctx, inc))
	list, err := store.ListIncentives(ctx, "cycle-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "7500.00", list[0].Amount.String())

	require.NoError(t, store.DeleteIncentive(ctx, "cycle-1", "emp-1"))
	gone, err := store.GetIncentive(ctx, "cycle-1", "emp-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

// =============================================================================
// RESET
// =============================================================================

func TestReset_EmptiesEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveOrganization(ctx, payroll.Organization{ID: "org-1", Name: "Acme", CreatedAt: time.Now().UTC()}))
	require.NoError(t, store.SaveEmployee(ctx, testEmployee("emp-1", "org-1", payroll.EmploymentActive, time.Now().UTC())))
	_, err := store.CreateCycle(ctx, baseCycle("cycle-1", payroll.NewMonth(2025, time.July)))
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	orgs, err := store.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Empty(t, orgs)
	cycles, err := store.ListCycles(ctx, "org-1")
	require.NoError(t, err)
	assert.Empty(t, cycles)
}
