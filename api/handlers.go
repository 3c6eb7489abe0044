/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Organizations:
    GET    /api/organizations                   List organizations
    POST   /api/organizations                   Create organization
    GET    /api/organizations/{id}              Get organization
    GET    /api/organizations/{id}/settings     Resolved payroll settings
    PUT    /api/organizations/{id}/settings     Store settings (JSON doc)
    GET    /api/organizations/{id}/employees    List employees
    POST   /api/organizations/{id}/employees    Create employee
    GET    /api/organizations/{id}/cycles       List cycles (auto-completes past)
    POST   /api/organizations/{id}/cycles       Ensure cycle for a month
    POST   /api/organizations/{id}/backfill     Trigger historical backfill

  Employees:
    GET    /api/employees/{id}                  Get employee
    GET    /api/employees/{id}/compensation     List compensation versions
    POST   /api/employees/{id}/compensation     Add compensation version
    GET    /api/employees/{id}/payslips         Payslip history (backfills first)

  Cycles:
    GET    /api/cycles/{id}                     Cycle with items
    POST   /api/cycles/{id}/compute             Compute draft figures
    POST   /api/cycles/{id}/submit              draft -> pending_approval
    POST   /api/cycles/{id}/approve             pending_approval -> approved
    POST   /api/cycles/{id}/reject              pending_approval -> draft
    POST   /api/cycles/{id}/process             approved -> processing
    PUT    /api/cycles/{id}/incentives          Set/remove an incentive

  Scenarios:
    GET    /api/scenarios                       List demo scenarios
    POST   /api/scenarios/load                  Load a demo scenario
    POST   /api/scenarios/reset                 Reset database

ERROR HANDLING:
  Domain errors map to HTTP statuses via the payroll Is* helpers:
  - 400: Validation errors, malformed input, empty-cycle submit
  - 404: Missing org/employee/cycle
  - 409: Illegal lifecycle transition, immutable cycle
  - 500: Everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store           *sqlite.Store
	Cycles          *payroll.CycleService
	Backfill        *payroll.Backfiller
	SettingsFactory *factory.SettingsFactory

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	leave := payroll.ZeroLeaveSource{}
	return &Handler{
		Store:           store,
		Cycles:          payroll.NewCycleService(store, leave),
		Backfill:        payroll.NewBackfiller(store, leave),
		SettingsFactory: factory.NewSettingsFactory(),
	}
}

// =============================================================================
// ORGANIZATION HANDLERS
// =============================================================================

// ListOrganizations returns all organizations.
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Store.ListOrganizations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list organizations", err)
		return
	}

	dtos := make([]OrganizationDTO, len(orgs))
	for i, o := range orgs {
		dtos[i] = OrganizationDTO{
			ID:        string(o.ID),
			Name:      o.Name,
			CreatedAt: o.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOrganization creates a new organization.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	org := payroll.Organization{
		ID:        payroll.OrgID(req.ID),
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveOrganization(r.Context(), org); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create organization", err)
		return
	}

	writeJSON(w, http.StatusCreated, OrganizationDTO{
		ID:        string(org.ID),
		Name:      org.Name,
		CreatedAt: org.CreatedAt.Format(time.RFC3339),
	})
}

// GetOrganization returns a single organization.
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id := payroll.OrgID(chi.URLParam(r, "id"))

	org, err := h.Store.GetOrganization(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get organization", err)
		return
	}
	if org == nil {
		writeError(w, http.StatusNotFound, "Organization not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, OrganizationDTO{
		ID:        string(org.ID),
		Name:      org.Name,
		CreatedAt: org.CreatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the org's resolved settings: stored values with
// system defaults filled in.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	orgID := payroll.OrgID(chi.URLParam(r, "id"))

	stored, err := h.Store.GetSettings(r.Context(), orgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get settings", err)
		return
	}

	resolved := payroll.ResolveSettings(stored, orgID)
	writeJSON(w, http.StatusOK, toSettingsDTO(resolved))
}

// PutSettings validates and stores an org's settings document.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	orgID := payroll.OrgID(chi.URLParam(r, "id"))

	var doc json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings, err := h.SettingsFactory.ParseSettings(orgID, string(doc))
	if err != nil {
		h.writeDomainError(w, "Invalid settings", err)
		return
	}

	if err := h.Store.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}

	resolved := payroll.ResolveSettings(&settings, orgID)
	writeJSON(w, http.StatusOK, toSettingsDTO(resolved))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns an organization's employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	orgID := payroll.OrgID(chi.URLParam(r, "id"))

	employees, err := h.Store.ListEmployees(r.Context(), orgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates a new employee under an organization.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	orgID := payroll.OrgID(chi.URLParam(r, "id"))

	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	joinDate, err := time.Parse("2006-01-02", req.JoinDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid join_date format (use YYYY-MM-DD)", err)
		return
	}

	status := payroll.EmploymentStatus(req.Status)
	if status == "" {
		status = payroll.EmploymentActive
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	emp := payroll.Employee{
		ID:        payroll.EmployeeID(req.ID),
		OrgID:     orgID,
		Name:      req.Name,
		Email:     req.Email,
		Status:    status,
		JoinDate:  joinDate,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// =============================================================================
// COMPENSATION HANDLERS
// =============================================================================

// ListCompensation returns an employee's compensation versions, oldest first.
func (h *Handler) ListCompensation(w http.ResponseWriter, r *http.Request) {
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))

	records, err := h.Store.ListCompensation(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list compensation", err)
		return
	}

	dtos := make([]CompensationDTO, len(records))
	for i, c := range records {
		dtos[i] = toCompensationDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCompensation adds a new compensation version for an employee.
// Past cycles keep the figures they were computed with; the new version
// applies from its effective date forward.
func (h *Handler) CreateCompensation(w http.ResponseWriter, r *http.Request) {
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), employeeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	var req CreateCompensationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	effectiveFrom, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_from format (use YYYY-MM-DD)", err)
		return
	}

	comp := payroll.CompensationStructure{
		ID:               uuid.NewString(),
		EmployeeID:       employeeID,
		EffectiveFrom:    effectiveFrom,
		CTC:              payroll.NewMoney(req.CTC),
		Basic:            payroll.NewMoney(req.Basic),
		HRA:              payroll.NewMoney(req.HRA),
		SpecialAllowance: payroll.NewMoney(req.SpecialAllowance),
		DA:               payroll.NewMoney(req.DA),
		LTA:              payroll.NewMoney(req.LTA),
		Bonus:            payroll.NewMoney(req.Bonus),
		CreatedAt:        time.Now().UTC(),
	}
	if comp.MonthlyGross().IsZero() && !comp.CTC.IsPositive() {
		writeError(w, http.StatusBadRequest, "Supply component amounts or a positive ctc", nil)
		return
	}

	if err := h.Store.SaveCompensation(r.Context(), comp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save compensation", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCompensationDTO(comp))
}

// GetPayslips returns an employee's payslip history, running the lazy
// backfill first so every elapsed month since joining is present.
func (h *Handler) GetPayslips(w http.ResponseWriter, r *http.Request) {
	employeeID := payroll.EmployeeID(chi.URLParam(r, "id"))

	items, err := h.Backfill.History(r.Context(), employeeID)
	if err != nil {
		h.writeDomainError(w, "Failed to get payslips", err)
		return
	}

	dtos := make([]PayrollItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toItemDTO(item)
		if cycle, err := h.Store.GetCycle(r.Context(), item.CycleID); err == nil && cycle != nil {
			dtos[i].Month = cycle.Month.String()
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CYCLE HANDLERS
// =============================================================================

// ListCycles returns an org's cycles, newest first. Elapsed months are
// auto-completed as a side effect of being listed.
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	orgID := payroll.OrgID(chi.URLParam(r, "id"))

	cycles, err := h.Cycles.ListCycles(r.Context(), orgID)
	if err != nil {
		h.writeDomainError(w, "Failed to list cycles", err)
		return
	}

	dtos := make([]CycleDTO, len(cycles))
	for i, c := range cycles {
		dtos[i] = toCycleDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCycle ensures a cycle exists for (org, month). Creating the cycle
// for an already-elapsed month computes it synchronously and returns it
// completed. Repeats converge on the existing cycle.
func (h *Handler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	orgID := payroll.OrgID(chi.URLParam(r, "id"))

	var req CreateCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	month, err := payroll.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYY-MM)", err)
		return
	}

	cycle, err := h.Cycles.CreateCycle(r.Context(), orgID, month)
	if err != nil {
		h.writeDomainError(w, "Failed to create cycle", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCycleDTO(*cycle))
}

// GetCycle returns a cycle with its items.
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	cycleID := payroll.CycleID(chi.URLParam(r, "id"))

	cycle, err := h.Cycles.GetCycle(r.Context(), cycleID)
	if err != nil {
		h.writeDomainError(w, "Failed to get cycle", err)
		return
	}

	items, err := h.Store.ListItems(r.Context(), cycle.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list items", err)
		return
	}

	writeJSON(w, http.StatusOK, CycleDetailResponse{
		Cycle: toCycleDTO(*cycle),
		Items: toItemDTOs(items),
	})
}

// ComputeCycle computes draft figures for every eligible employee so HR can
// review them before submitting.
func (h *Handler) ComputeCycle(w http.ResponseWriter, r *http.Request) {
	cycleID := payroll.CycleID(chi.URLParam(r, "id"))

	cycle, err := h.Cycles.ComputeDraft(r.Context(), cycleID)
	if err != nil {
		h.writeDomainError(w, "Failed to compute cycle", err)
		return
	}

	writeJSON(w, http.StatusOK, toCycleDTO(*cycle))
}

// SubmitCycle moves draft -> pending_approval.
func (h *Handler) SubmitCycle(w http.ResponseWriter, r *http.Request) {
	cycleID := payroll.CycleID(chi.URLParam(r, "id"))

	cycle, err := h.Cycles.Submit(r.Context(), cycleID)
	if err != nil {
		h.writeDomainError(w, "Failed to submit cycle", err)
		return
	}

	writeJSON(w, http.StatusOK, toCycleDTO(*cycle))
}

// ApproveCycle moves pending_approval -> approved.
func (h *Handler) ApproveCycle(w http.ResponseWriter, r *http.Request) {
	cycleID := payroll.CycleID(chi.URLParam(r, "id"))

	var req ApproveCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cycle, err := h.Cycles.Approve(r.Context(), cycleID, req.ApproverID)
	if err != nil {
		h.writeDomainError(w, "Failed to approve cycle", err)
		return
	}

	writeJSON(w, http.StatusOK, toCycleDTO(*cycle))
}

// RejectCycle moves pending_approval back to draft with a reason.
func (h *Handler) RejectCycle(w http.ResponseWriter, r *http.Request) {
	cycleID := payroll.CycleID(chi.URLParam(r, "id"))

	var req RejectCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cycle, err := h.Cycles.Reject(r.Context(), cycleID, req.RejecterID, req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to reject cycle", err)
		return
	}

	writeJSON(w, http.StatusOK, toCycleDTO(*cycle))
}

// ProcessCycle moves approved -> processing and computes every eligible
// employee, applying any caller-supplied overrides.
func (h *Handler) ProcessCycle(w http.ResponseWriter, r *http.Request) {
	cycleID := payroll.CycleID(chi.URLParam(r, "id"))

	var req ProcessCycleRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	overrides := make(map[payroll.EmployeeID]payroll.ItemOverride, len(req.Overrides))
	for _, ov := range req.Overrides {
		if ov.EmployeeID == "" {
			writeError(w, http.StatusBadRequest, "Override missing employee_id", nil)
			return
		}
		var incentive *payroll.Money
		if ov.Incentive != nil {
			m := payroll.NewMoney(*ov.Incentive)
			incentive = &m
		}
		overrides[payroll.EmployeeID(ov.EmployeeID)] = payroll.ItemOverride{
			LOPDays:   ov.LOPDays,
			Incentive: incentive,
		}
	}

	cycle, err := h.Cycles.Process(r.Context(), cycleID, overrides)
	if err != nil {
		h.writeDomainError(w, "Failed to process cycle", err)
		return
	}

	writeJSON(w, http.StatusOK, toCycleDTO(*cycle))
}

// SetIncentive writes (or removes, when zero) the incentive for one
// employee in a mutable cycle.
func (h *Handler) SetIncentive(w http.ResponseWriter, r *http.Request) {
	cycleID := payroll.CycleID(chi.URLParam(r, "id"))

	var req SetIncentiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}
	if req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "amount must be non-negative", nil)
		return
	}

	err := h.Cycles.SetIncentive(r.Context(), cycleID,
		payroll.EmployeeID(req.EmployeeID), payroll.NewMoney(req.Amount), req.Note)
	if err != nil {
		h.writeDomainError(w, "Failed to set incentive", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerBackfill runs the historical backfill for an organization and
// reports what it did. Safe to call repeatedly.
func (h *Handler) TriggerBackfill(w http.ResponseWriter, r *http.Request) {
	orgID := payroll.OrgID(chi.URLParam(r, "id"))

	org, err := h.Store.GetOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get organization", err)
		return
	}
	if org == nil {
		writeError(w, http.StatusNotFound, "Organization not found", nil)
		return
	}

	report, err := h.Backfill.Run(r.Context(), orgID)
	if err != nil {
		h.writeDomainError(w, "Backfill failed", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps payroll errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case payroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, payroll.ErrInvalidTransition) || errors.Is(err, payroll.ErrCycleImmutable):
		writeError(w, http.StatusConflict, message, err)
	case payroll.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
