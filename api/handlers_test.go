/*
handlers_test.go - HTTP-level tests for the payroll API

Tests drive the full chi router against an in-memory sqlite store:
- The full cycle lifecycle end to end (create through process)
- Error mapping: 400 for bad input, 404 for missing, 409 for bad transitions
- Payslip history with on-demand backfill
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Pinned clock: mid July 2025, so "2025-07" is the open month.
var apiTestNow = time.Date(2025, time.July, 15, 10, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	h.Cycles.Now = func() time.Time { return apiTestNow }
	h.Backfill.Now = func() time.Time { return apiTestNow }
	return NewRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}

// seedOrg creates an org with one employee and a component compensation,
// returning the org ID and employee ID.
func seedOrg(t *testing.T, router http.Handler) (string, string) {
	t.Helper()

	rec := doJSON(t, router, "POST", "/api/organizations", CreateOrganizationRequest{Name: "Acme"})
	expectStatus(t, rec, http.StatusCreated)
	org := decode[OrganizationDTO](t, rec)

	rec = doJSON(t, router, "POST", "/api/organizations/"+org.ID+"/employees", CreateEmployeeRequest{
		Name:     "Asha",
		Email:    "asha@example.com",
		JoinDate: "2025-01-01",
	})
	expectStatus(t, rec, http.StatusCreated)
	emp := decode[EmployeeDTO](t, rec)

	rec = doJSON(t, router, "POST", "/api/employees/"+emp.ID+"/compensation", CreateCompensationRequest{
		EffectiveFrom:    "2025-01-01",
		Basic:            20000,
		HRA:              8000,
		SpecialAllowance: 5000,
	})
	expectStatus(t, rec, http.StatusCreated)

	return org.ID, emp.ID
}

// =============================================================================
// FULL LIFECYCLE
// =============================================================================

func TestCycleLifecycle_EndToEnd(t *testing.T) {
	router := newTestRouter(t)
	orgID, _ := seedOrg(t, router)

	// Create the current month's cycle: starts as a draft.
	rec := doJSON(t, router, "POST", "/api/organizations/"+orgID+"/cycles", CreateCycleRequest{Month: "2025-07"})
	expectStatus(t, rec, http.StatusCreated)
	cycle := decode[CycleDTO](t, rec)
	if cycle.Status != "draft" {
		t.Fatalf("status = %s, want draft", cycle.Status)
	}

	// Submitting before computing is rejected: nothing to review.
	rec = doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/submit", nil)
	expectStatus(t, rec, http.StatusBadRequest)

	// Compute, then inspect the detail.
	rec = doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/compute", nil)
	expectStatus(t, rec, http.StatusOK)

	rec = doJSON(t, router, "GET", "/api/cycles/"+cycle.ID, nil)
	expectStatus(t, rec, http.StatusOK)
	detail := decode[CycleDetailResponse](t, rec)
	if len(detail.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(detail.Items))
	}
	if detail.Items[0].Net != "29791.67" {
		t.Errorf("net = %s, want 29791.67", detail.Items[0].Net)
	}
	if detail.Cycle.TotalAmount != "33000.00" {
		t.Errorf("total = %s, want 33000.00", detail.Cycle.TotalAmount)
	}

	// submit -> approve -> process
	rec = doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/submit", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[CycleDTO](t, rec); got.Status != "pending_approval" {
		t.Fatalf("status after submit = %s", got.Status)
	}

	rec = doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/approve", ApproveCycleRequest{ApproverID: "hr-admin"})
	expectStatus(t, rec, http.StatusOK)
	approved := decode[CycleDTO](t, rec)
	if approved.Status != "approved" || approved.ApprovedBy != "hr-admin" {
		t.Fatalf("approve response = %+v", approved)
	}

	rec = doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/process", ProcessCycleRequest{})
	expectStatus(t, rec, http.StatusOK)
	processed := decode[CycleDTO](t, rec)
	if processed.Status != "processing" {
		t.Fatalf("status after process = %s", processed.Status)
	}
	if processed.TotalEmployees != 1 || processed.TotalAmount != "33000.00" {
		t.Errorf("totals = %d / %s", processed.TotalEmployees, processed.TotalAmount)
	}
}

func TestRejectCycle_BackToDraft(t *testing.T) {
	router := newTestRouter(t)
	orgID, _ := seedOrg(t, router)

	rec := doJSON(t, router, "POST", "/api/organizations/"+orgID+"/cycles", CreateCycleRequest{Month: "2025-07"})
	cycle := decode[CycleDTO](t, rec)
	doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/compute", nil)
	doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/submit", nil)

	rec = doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/reject", RejectCycleRequest{
		RejecterID: "cfo",
		Reason:     "numbers look off",
	})
	expectStatus(t, rec, http.StatusOK)
	rejected := decode[CycleDTO](t, rec)
	if rejected.Status != "draft" || rejected.RejectedBy != "cfo" || rejected.RejectionReason != "numbers look off" {
		t.Errorf("reject response = %+v", rejected)
	}
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestIllegalTransition_Conflict(t *testing.T) {
	router := newTestRouter(t)
	orgID, _ := seedOrg(t, router)

	rec := doJSON(t, router, "POST", "/api/organizations/"+orgID+"/cycles", CreateCycleRequest{Month: "2025-07"})
	cycle := decode[CycleDTO](t, rec)

	// Approving a draft skips pending_approval: rejected as a conflict.
	rec = doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/approve", ApproveCycleRequest{ApproverID: "hr-admin"})
	expectStatus(t, rec, http.StatusConflict)
}

func TestNotFoundMapping(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/cycles/cycle-ghost", nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = doJSON(t, router, "GET", "/api/employees/emp-ghost/payslips", nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = doJSON(t, router, "POST", "/api/organizations/org-ghost/cycles", CreateCycleRequest{Month: "2025-07"})
	expectStatus(t, rec, http.StatusNotFound)
}

func TestCreateCycle_BadMonth(t *testing.T) {
	router := newTestRouter(t)
	orgID, _ := seedOrg(t, router)

	rec := doJSON(t, router, "POST", "/api/organizations/"+orgID+"/cycles", CreateCycleRequest{Month: "07-2025"})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestPutSettings_InvalidSplitRejected(t *testing.T) {
	router := newTestRouter(t)
	orgID, _ := seedOrg(t, router)

	body := json.RawMessage(`{"ctc_split": {"basic": 60, "hra": 30, "special": 20}}`)
	rec := doJSON(t, router, "PUT", "/api/organizations/"+orgID+"/settings", body)
	expectStatus(t, rec, http.StatusBadRequest)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_ResolvedViewAndOverride(t *testing.T) {
	router := newTestRouter(t)
	orgID, _ := seedOrg(t, router)

	// Before any write the resolved defaults come back.
	rec := doJSON(t, router, "GET", "/api/organizations/"+orgID+"/settings", nil)
	expectStatus(t, rec, http.StatusOK)
	settings := decode[SettingsDTO](t, rec)
	if settings.PFRate != "12" || settings.PTRate != "200.00" {
		t.Errorf("defaults = pf %s, pt %s", settings.PFRate, settings.PTRate)
	}

	// A partial override only moves the fields it names.
	body := json.RawMessage(`{"pf_rate": 10}`)
	rec = doJSON(t, router, "PUT", "/api/organizations/"+orgID+"/settings", body)
	expectStatus(t, rec, http.StatusOK)
	updated := decode[SettingsDTO](t, rec)
	if updated.PFRate != "10" {
		t.Errorf("pf rate = %s, want 10", updated.PFRate)
	}
	if updated.TDSThreshold != "250000.00" {
		t.Errorf("tds threshold = %s, want default", updated.TDSThreshold)
	}
}

// =============================================================================
// PAYSLIP HISTORY AND BACKFILL
// =============================================================================

func TestPayslips_BackfilledOnRead(t *testing.T) {
	// GIVEN: An employee who joined in January with no cycles ever created
	// WHEN: Requesting payslip history in July
	// THEN: January through June appear completed, oldest first; July does not

	router := newTestRouter(t)
	_, empID := seedOrg(t, router)

	rec := doJSON(t, router, "GET", "/api/employees/"+empID+"/payslips", nil)
	expectStatus(t, rec, http.StatusOK)
	payslips := decode[[]PayrollItemDTO](t, rec)
	if len(payslips) != 6 {
		t.Fatalf("payslips = %d, want 6 (Jan..Jun)", len(payslips))
	}
	if payslips[0].Month != "2025-01" || payslips[5].Month != "2025-06" {
		t.Errorf("months = %s..%s, want 2025-01..2025-06", payslips[0].Month, payslips[5].Month)
	}
	for _, p := range payslips {
		if p.Net != "29791.67" {
			t.Errorf("%s: net = %s, want 29791.67", p.Month, p.Net)
		}
	}
}

func TestTriggerBackfill_ReportsAndIsIdempotent(t *testing.T) {
	router := newTestRouter(t)
	orgID, _ := seedOrg(t, router)

	rec := doJSON(t, router, "POST", "/api/organizations/"+orgID+"/backfill", nil)
	expectStatus(t, rec, http.StatusOK)
	first := decode[payroll.BackfillReport](t, rec)
	if first.MonthsScanned != 6 || first.ItemsComputed != 6 {
		t.Errorf("first report = %+v", first)
	}

	rec = doJSON(t, router, "POST", "/api/organizations/"+orgID+"/backfill", nil)
	expectStatus(t, rec, http.StatusOK)
	second := decode[payroll.BackfillReport](t, rec)
	if second.ItemsComputed != 0 || second.CyclesCompleted != 0 {
		t.Errorf("second report = %+v, want nothing new", second)
	}
}

// =============================================================================
// INCENTIVES AND OVERRIDES
// =============================================================================

func TestSetIncentive_FlowsIntoComputation(t *testing.T) {
	router := newTestRouter(t)
	orgID, empID := seedOrg(t, router)

	rec := doJSON(t, router, "POST", "/api/organizations/"+orgID+"/cycles", CreateCycleRequest{Month: "2025-07"})
	cycle := decode[CycleDTO](t, rec)

	rec = doJSON(t, router, "PUT", "/api/cycles/"+cycle.ID+"/incentives", SetIncentiveRequest{
		EmployeeID: empID,
		Amount:     5000,
		Note:       "quarterly bonus",
	})
	expectStatus(t, rec, http.StatusNoContent)

	doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/compute", nil)
	rec = doJSON(t, router, "GET", "/api/cycles/"+cycle.ID, nil)
	detail := decode[CycleDetailResponse](t, rec)
	if len(detail.Items) != 1 {
		t.Fatalf("items = %d", len(detail.Items))
	}
	if detail.Items[0].Incentive != "5000.00" || detail.Items[0].GrossWithIncentive != "38000.00" {
		t.Errorf("incentive = %s, gross_with_incentive = %s",
			detail.Items[0].Incentive, detail.Items[0].GrossWithIncentive)
	}
	// Incentives ride on top of the cycle total, which stays a sum of gross.
	if detail.Cycle.TotalAmount != "33000.00" {
		t.Errorf("total = %s, want 33000.00", detail.Cycle.TotalAmount)
	}
}

func TestSetIncentive_NegativeRejected(t *testing.T) {
	router := newTestRouter(t)
	orgID, empID := seedOrg(t, router)

	rec := doJSON(t, router, "POST", "/api/organizations/"+orgID+"/cycles", CreateCycleRequest{Month: "2025-07"})
	cycle := decode[CycleDTO](t, rec)

	rec = doJSON(t, router, "PUT", "/api/cycles/"+cycle.ID+"/incentives", SetIncentiveRequest{
		EmployeeID: empID,
		Amount:     -100,
	})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestProcess_WithOverrides(t *testing.T) {
	router := newTestRouter(t)
	orgID, empID := seedOrg(t, router)

	rec := doJSON(t, router, "POST", "/api/organizations/"+orgID+"/cycles", CreateCycleRequest{Month: "2025-07"})
	cycle := decode[CycleDTO](t, rec)
	doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/compute", nil)
	doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/submit", nil)
	doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/approve", ApproveCycleRequest{ApproverID: "hr-admin"})

	lop := 10
	incentive := 1000.0
	rec = doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/process", ProcessCycleRequest{
		Overrides: []ItemOverrideDTO{{EmployeeID: empID, LOPDays: &lop, Incentive: &incentive}},
	})
	expectStatus(t, rec, http.StatusOK)

	rec = doJSON(t, router, "GET", "/api/cycles/"+cycle.ID, nil)
	detail := decode[CycleDetailResponse](t, rec)
	if detail.Items[0].LOPDays != 10 {
		t.Errorf("lop days = %d, want 10", detail.Items[0].LOPDays)
	}
	// 21 of 31 July days paid.
	if detail.Items[0].Gross != "22354.84" {
		t.Errorf("gross = %s, want 22354.84", detail.Items[0].Gross)
	}
	if detail.Items[0].Incentive != "1000.00" {
		t.Errorf("incentive = %s, want 1000.00", detail.Items[0].Incentive)
	}
	if detail.Items[0].GrossWithIncentive != "23354.84" {
		t.Errorf("gross_with_incentive = %s, want 23354.84", detail.Items[0].GrossWithIncentive)
	}
}

// =============================================================================
// COMPENSATION
// =============================================================================

func TestCreateCompensation_RequiresFigures(t *testing.T) {
	router := newTestRouter(t)
	_, empID := seedOrg(t, router)

	rec := doJSON(t, router, "POST", "/api/employees/"+empID+"/compensation", CreateCompensationRequest{
		EffectiveFrom: "2025-06-01",
	})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestCompensationVersioning_LatestWins(t *testing.T) {
	// A raise effective June changes July's computation; history keeps both
	// records.

	router := newTestRouter(t)
	orgID, empID := seedOrg(t, router)

	rec := doJSON(t, router, "POST", "/api/employees/"+empID+"/compensation", CreateCompensationRequest{
		EffectiveFrom:    "2025-06-01",
		Basic:            30000,
		HRA:              12000,
		SpecialAllowance: 8000,
	})
	expectStatus(t, rec, http.StatusCreated)

	rec = doJSON(t, router, "GET", "/api/employees/"+empID+"/compensation", nil)
	records := decode[[]CompensationDTO](t, rec)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	rec = doJSON(t, router, "POST", fmt.Sprintf("/api/organizations/%s/cycles", orgID), CreateCycleRequest{Month: "2025-07"})
	cycle := decode[CycleDTO](t, rec)
	doJSON(t, router, "POST", "/api/cycles/"+cycle.ID+"/compute", nil)

	rec = doJSON(t, router, "GET", "/api/cycles/"+cycle.ID, nil)
	detail := decode[CycleDetailResponse](t, rec)
	if detail.Items[0].Gross != "50000.00" {
		t.Errorf("gross = %s, want 50000.00 from the raised structure", detail.Items[0].Gross)
	}
}
