/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates an organization,
	employees, compensation records, and optionally runs part of the cycle
	lifecycle to demonstrate specific features.

AVAILABLE SCENARIOS:

	standard-monthly:    Component-based salaries, current cycle computed in draft
	ctc-fallback:        CTC-only compensation split via org percentages
	full-lifecycle:      Last month processed end to end with LOP and incentive
	historical-backfill: Employees who joined months ago, no cycles yet -
	                     reading payslips fills the history lazily

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create organization and settings
 3. Create employees with compensation
 4. Optionally create/compute/advance a cycle

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "full-lifecycle"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/settings.go: Settings JSON presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-monthly",
		Name:        "Standard Monthly Payroll",
		Description: "Component-based salaries with the current cycle computed in draft",
	},
	{
		ID:          "ctc-fallback",
		Name:        "CTC Fallback Split",
		Description: "Employees with only an annual CTC, split 50/30/20 at computation",
	},
	{
		ID:          "full-lifecycle",
		Name:        "Full Cycle Lifecycle",
		Description: "Last month taken draft through completed with LOP days and an incentive",
	},
	{
		ID:          "historical-backfill",
		Name:        "Historical Backfill",
		Description: "Employees who joined months ago with no cycles; payslip reads fill history",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "standard-monthly":
		err = h.loadStandardMonthlyScenario(ctx)
	case "ctc-fallback":
		err = h.loadCTCFallbackScenario(ctx)
	case "full-lifecycle":
		err = h.loadFullLifecycleScenario(ctx)
	case "historical-backfill":
		err = h.loadHistoricalBackfillScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

const demoOrgID = payroll.OrgID("org-demo")

func (h *Handler) seedOrganization(ctx context.Context, name string) error {
	return h.Store.SaveOrganization(ctx, payroll.Organization{
		ID:        demoOrgID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
}

func (h *Handler) seedEmployee(ctx context.Context, id, name, email string, joined time.Time, comp payroll.CompensationStructure) error {
	emp := payroll.Employee{
		ID:        payroll.EmployeeID(id),
		OrgID:     demoOrgID,
		Name:      name,
		Email:     email,
		Status:    payroll.EmploymentActive,
		JoinDate:  joined,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	comp.ID = id + "-comp-1"
	comp.EmployeeID = emp.ID
	comp.EffectiveFrom = joined
	comp.CreatedAt = time.Now().UTC()
	return h.Store.SaveCompensation(ctx, comp)
}

// loadStandardMonthlyScenario: three salaried employees, explicit statutory
// settings, and the current month's cycle computed in draft.
func (h *Handler) loadStandardMonthlyScenario(ctx context.Context) error {
	if err := h.seedOrganization(ctx, "Acme Engineering"); err != nil {
		return err
	}

	settings, err := h.SettingsFactory.ParseSettings(demoOrgID, factory.StatutoryDefaultsJSON())
	if err != nil {
		return err
	}
	if err := h.Store.SaveSettings(ctx, settings); err != nil {
		return err
	}

	joined := payroll.CurrentMonth().Previous().Previous().Start()
	employees := []struct {
		id, name, email string
		basic, hra, special float64
	}{
		{"emp-001", "Asha Rao", "asha@acme.example", 20000, 8000, 5000},
		{"emp-002", "Vikram Shah", "vikram@acme.example", 45000, 18000, 12000},
		{"emp-003", "Meera Iyer", "meera@acme.example", 15000, 6000, 4000},
	}
	for _, e := range employees {
		comp := payroll.CompensationStructure{
			Basic:            payroll.NewMoney(e.basic),
			HRA:              payroll.NewMoney(e.hra),
			SpecialAllowance: payroll.NewMoney(e.special),
		}
		if err := h.seedEmployee(ctx, e.id, e.name, e.email, joined, comp); err != nil {
			return err
		}
	}

	cycle, err := h.Cycles.CreateCycle(ctx, demoOrgID, payroll.CurrentMonth())
	if err != nil {
		return err
	}
	_, err = h.Cycles.ComputeDraft(ctx, cycle.ID)
	return err
}

// loadCTCFallbackScenario: compensation records with only an annual CTC.
func (h *Handler) loadCTCFallbackScenario(ctx context.Context) error {
	if err := h.seedOrganization(ctx, "Bharat Traders"); err != nil {
		return err
	}

	joined := payroll.CurrentMonth().Previous().Start()
	ctcs := []struct {
		id, name string
		ctc      float64
	}{
		{"emp-101", "Ravi Kumar", 480000},
		{"emp-102", "Sunita Devi", 840000},
	}
	for _, e := range ctcs {
		comp := payroll.CompensationStructure{CTC: payroll.NewMoney(e.ctc)}
		if err := h.seedEmployee(ctx, e.id, e.name, "", joined, comp); err != nil {
			return err
		}
	}

	cycle, err := h.Cycles.CreateCycle(ctx, demoOrgID, payroll.CurrentMonth())
	if err != nil {
		return err
	}
	_, err = h.Cycles.ComputeDraft(ctx, cycle.ID)
	return err
}

// loadFullLifecycleScenario: last month's cycle taken through the whole
// lifecycle with an LOP override and an incentive.
func (h *Handler) loadFullLifecycleScenario(ctx context.Context) error {
	if err := h.seedOrganization(ctx, "Nimbus Labs"); err != nil {
		return err
	}

	month := payroll.CurrentMonth().Previous()
	joined := month.Previous().Previous().Start()

	comp := payroll.CompensationStructure{
		Basic:            payroll.NewMoney(30000),
		HRA:              payroll.NewMoney(12000),
		SpecialAllowance: payroll.NewMoney(8000),
	}
	if err := h.seedEmployee(ctx, "emp-201", "Farah Khan", "farah@nimbus.example", joined, comp); err != nil {
		return err
	}

	// Creating a past-month cycle lands completed; walk the lifecycle on the
	// current month instead, then let the past month auto-complete.
	cycle, err := h.Cycles.CreateCycle(ctx, demoOrgID, payroll.CurrentMonth())
	if err != nil {
		return err
	}
	if _, err := h.Cycles.ComputeDraft(ctx, cycle.ID); err != nil {
		return err
	}
	incentive := payroll.NewMoney(5000)
	if err := h.Cycles.SetIncentive(ctx, cycle.ID, "emp-201", incentive, "quarterly bonus"); err != nil {
		return err
	}
	if _, err := h.Cycles.Submit(ctx, cycle.ID); err != nil {
		return err
	}
	if _, err := h.Cycles.Approve(ctx, cycle.ID, "hr-admin"); err != nil {
		return err
	}
	lop := 2
	_, err = h.Cycles.Process(ctx, cycle.ID, map[payroll.EmployeeID]payroll.ItemOverride{
		"emp-201": {LOPDays: &lop},
	})
	return err
}

// loadHistoricalBackfillScenario: employees with months of elapsed history
// and no cycles. The first payslip read (or backfill trigger) fills
// everything in.
func (h *Handler) loadHistoricalBackfillScenario(ctx context.Context) error {
	if err := h.seedOrganization(ctx, "Meridian Services"); err != nil {
		return err
	}

	now := payroll.CurrentMonth()
	seeds := []struct {
		id, name string
		monthsAgo int
		basic     float64
	}{
		{"emp-301", "Dev Patel", 6, 25000},
		{"emp-302", "Lakshmi Nair", 3, 40000},
	}
	for _, e := range seeds {
		joined := now
		for i := 0; i < e.monthsAgo; i++ {
			joined = joined.Previous()
		}
		comp := payroll.CompensationStructure{
			Basic:            payroll.NewMoney(e.basic),
			HRA:              payroll.NewMoney(e.basic * 0.4),
			SpecialAllowance: payroll.NewMoney(e.basic * 0.2),
		}
		if err := h.seedEmployee(ctx, e.id, e.name, "", joined.Start(), comp); err != nil {
			return err
		}
	}
	return nil
}
