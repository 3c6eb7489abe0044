/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ENCODING:
  Monetary figures are emitted as fixed two-decimal strings ("29791.67"),
  never as JSON numbers, so clients don't reintroduce float rounding.
  Request amounts are accepted as numbers for convenience.

TYPES:
  Organization:
    OrganizationDTO, CreateOrganizationRequest

  Employee:
    EmployeeDTO, CreateEmployeeRequest

  Compensation:
    CompensationDTO, CreateCompensationRequest

  Settings:
    SettingsDTO (resolved view)

  Cycle:
    CycleDTO, PayrollItemDTO, CreateCycleRequest, ApproveCycleRequest,
    RejectCycleRequest, ProcessCycleRequest, SetIncentiveRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/settings.go: SettingsJSON (the PUT settings body)
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// ORGANIZATION
// =============================================================================

// OrganizationDTO represents an organization in API responses.
type OrganizationDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateOrganizationRequest is the request to create an organization.
type CreateOrganizationRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	OrgID     string `json:"org_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	JoinDate  string `json:"join_date"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Status   string `json:"status,omitempty"` // defaults to active
	JoinDate string `json:"join_date"`        // YYYY-MM-DD
}

// =============================================================================
// COMPENSATION
// =============================================================================

// CompensationDTO represents one compensation version.
type CompensationDTO struct {
	ID               string `json:"id"`
	EmployeeID       string `json:"employee_id"`
	EffectiveFrom    string `json:"effective_from"`
	CTC              string `json:"ctc"`
	Basic            string `json:"basic"`
	HRA              string `json:"hra"`
	SpecialAllowance string `json:"special_allowance"`
	DA               string `json:"da"`
	LTA              string `json:"lta"`
	Bonus            string `json:"bonus"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// CreateCompensationRequest adds a new compensation version. Either the
// component amounts or a bare CTC (triggering the fallback split) can be
// supplied.
type CreateCompensationRequest struct {
	EffectiveFrom    string  `json:"effective_from"` // YYYY-MM-DD
	CTC              float64 `json:"ctc,omitempty"`
	Basic            float64 `json:"basic,omitempty"`
	HRA              float64 `json:"hra,omitempty"`
	SpecialAllowance float64 `json:"special_allowance,omitempty"`
	DA               float64 `json:"da,omitempty"`
	LTA              float64 `json:"lta,omitempty"`
	Bonus            float64 `json:"bonus,omitempty"`
}

// =============================================================================
// SETTINGS
// =============================================================================

// SettingsDTO is the fully-resolved view: stored values with system
// defaults filled in, which is what the calculator will actually use.
type SettingsDTO struct {
	OrgID        string `json:"org_id"`
	PFRate       string `json:"pf_rate"`
	ESIRate      string `json:"esi_rate"`
	PTRate       string `json:"pt_rate"`
	TDSThreshold string `json:"tds_threshold"`
	BasicSplit   string `json:"basic_split"`
	HRASplit     string `json:"hra_split"`
	SpecialSplit string `json:"special_split"`
}

// =============================================================================
// CYCLE
// =============================================================================

// CycleDTO represents a payroll cycle in API responses.
type CycleDTO struct {
	ID             string   `json:"id"`
	OrgID          string   `json:"org_id"`
	Month          string   `json:"month"` // YYYY-MM
	Status         string   `json:"status"`
	TotalEmployees int      `json:"total_employees"`
	TotalAmount    string   `json:"total_amount"`
	AllowedActions []string `json:"allowed_actions"`

	SubmittedAt     string `json:"submitted_at,omitempty"`
	ApprovedBy      string `json:"approved_by,omitempty"`
	ApprovedAt      string `json:"approved_at,omitempty"`
	RejectedBy      string `json:"rejected_by,omitempty"`
	RejectedAt      string `json:"rejected_at,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CreateCycleRequest is the request to ensure a cycle for a month.
type CreateCycleRequest struct {
	Month string `json:"month"` // YYYY-MM
}

// ApproveCycleRequest records who approved.
type ApproveCycleRequest struct {
	ApproverID string `json:"approver_id"`
}

// RejectCycleRequest records who rejected and why.
type RejectCycleRequest struct {
	RejecterID string `json:"rejecter_id"`
	Reason     string `json:"reason"`
}

// ProcessCycleRequest carries optional per-employee overrides.
type ProcessCycleRequest struct {
	Overrides []ItemOverrideDTO `json:"overrides,omitempty"`
}

// ItemOverrideDTO overrides computed figures for one employee. Nil fields
// keep computed/stored values.
type ItemOverrideDTO struct {
	EmployeeID string   `json:"employee_id"`
	LOPDays    *int     `json:"lop_days,omitempty"`
	Incentive  *float64 `json:"incentive,omitempty"`
}

// SetIncentiveRequest writes the single incentive for (cycle, employee).
// A zero amount removes it.
type SetIncentiveRequest struct {
	EmployeeID string  `json:"employee_id"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note,omitempty"`
}

// =============================================================================
// PAYROLL ITEM
// =============================================================================

// PayrollItemDTO represents one employee's payslip line.
type PayrollItemDTO struct {
	ID         string `json:"id"`
	CycleID    string `json:"cycle_id"`
	EmployeeID string `json:"employee_id"`
	Month      string `json:"month,omitempty"` // set on payslip-history reads

	Basic            string `json:"basic"`
	HRA              string `json:"hra"`
	SpecialAllowance string `json:"special_allowance"`
	DA               string `json:"da"`
	LTA              string `json:"lta"`
	Bonus            string `json:"bonus"`

	Gross              string `json:"gross"`
	Incentive          string `json:"incentive"`
	GrossWithIncentive string `json:"gross_with_incentive"`

	PF              string `json:"pf"`
	ESI             string `json:"esi"`
	PT              string `json:"pt"`
	TDS             string `json:"tds"`
	TotalDeductions string `json:"total_deductions"`

	Net string `json:"net"`

	TotalWorkingDays int `json:"total_working_days"`
	LOPDays          int `json:"lop_days"`
	PaidDays         int `json:"paid_days"`

	ComputedAt string `json:"computed_at,omitempty"`
}

// CycleDetailResponse bundles a cycle with its items.
type CycleDetailResponse struct {
	Cycle CycleDTO         `json:"cycle"`
	Items []PayrollItemDTO `json:"items"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCycleDTO(c payroll.PayrollCycle) CycleDTO {
	actions := payroll.AllowedActions(c.Status)
	actionStrs := make([]string, len(actions))
	for i, a := range actions {
		actionStrs[i] = string(a)
	}

	return CycleDTO{
		ID:              string(c.ID),
		OrgID:           string(c.OrgID),
		Month:           c.Month.String(),
		Status:          string(c.Status),
		TotalEmployees:  c.TotalEmployees,
		TotalAmount:     c.TotalAmount.String(),
		AllowedActions:  actionStrs,
		SubmittedAt:     formatTimePtr(c.SubmittedAt),
		ApprovedBy:      c.ApprovedBy,
		ApprovedAt:      formatTimePtr(c.ApprovedAt),
		RejectedBy:      c.RejectedBy,
		RejectedAt:      formatTimePtr(c.RejectedAt),
		RejectionReason: c.RejectionReason,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       c.UpdatedAt.Format(time.RFC3339),
	}
}

func toItemDTO(item payroll.PayrollItem) PayrollItemDTO {
	return PayrollItemDTO{
		ID:                 item.ID,
		CycleID:            string(item.CycleID),
		EmployeeID:         string(item.EmployeeID),
		Basic:              item.Basic.String(),
		HRA:                item.HRA.String(),
		SpecialAllowance:   item.SpecialAllowance.String(),
		DA:                 item.DA.String(),
		LTA:                item.LTA.String(),
		Bonus:              item.Bonus.String(),
		Gross:              item.Gross.String(),
		Incentive:          item.Incentive.String(),
		GrossWithIncentive: item.GrossWithIncentive.String(),
		PF:                 item.PF.String(),
		ESI:                item.ESI.String(),
		PT:                 item.PT.String(),
		TDS:                item.TDS.String(),
		TotalDeductions:    item.TotalDeductions.String(),
		Net:                item.Net.String(),
		TotalWorkingDays:   item.TotalWorkingDays,
		LOPDays:            item.LOPDays,
		PaidDays:           item.PaidDays,
		ComputedAt:         item.ComputedAt.Format(time.RFC3339),
	}
}

func toItemDTOs(items []payroll.PayrollItem) []PayrollItemDTO {
	dtos := make([]PayrollItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toItemDTO(item)
	}
	return dtos
}

func toEmployeeDTO(e payroll.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		OrgID:     string(e.OrgID),
		Name:      e.Name,
		Email:     e.Email,
		Status:    string(e.Status),
		JoinDate:  e.JoinDate.Format("2006-01-02"),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

func toCompensationDTO(c payroll.CompensationStructure) CompensationDTO {
	return CompensationDTO{
		ID:               c.ID,
		EmployeeID:       string(c.EmployeeID),
		EffectiveFrom:    c.EffectiveFrom.Format("2006-01-02"),
		CTC:              c.CTC.String(),
		Basic:            c.Basic.String(),
		HRA:              c.HRA.String(),
		SpecialAllowance: c.SpecialAllowance.String(),
		DA:               c.DA.String(),
		LTA:              c.LTA.String(),
		Bonus:            c.Bonus.String(),
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
	}
}

func toSettingsDTO(s payroll.PayrollSettings) SettingsDTO {
	return SettingsDTO{
		OrgID:        string(s.OrgID),
		PFRate:       s.PFRate.String(),
		ESIRate:      s.ESIRate.String(),
		PTRate:       s.PTRate.String(),
		TDSThreshold: s.TDSThreshold.String(),
		BasicSplit:   s.BasicSplit.String(),
		HRASplit:     s.HRASplit.String(),
		SpecialSplit: s.SpecialSplit.String(),
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
