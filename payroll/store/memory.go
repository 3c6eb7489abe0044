// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	organizations map[payroll.OrgID]payroll.Organization
	employees     map[payroll.EmployeeID]payroll.Employee
	compensation  map[payroll.EmployeeID][]payroll.CompensationStructure
	settings      map[payroll.OrgID]payroll.PayrollSettings
	cycles        map[payroll.CycleID]payroll.PayrollCycle
	cycleByMonth  map[monthKey]payroll.CycleID
	items         map[itemKey]payroll.PayrollItem
	incentives    map[itemKey]payroll.PayrollIncentive
}

type monthKey struct {
	OrgID payroll.OrgID
	Month payroll.Month
}

type itemKey struct {
	CycleID    payroll.CycleID
	EmployeeID payroll.EmployeeID
}

func NewMemory() *Memory {
	return &Memory{
		organizations: make(map[payroll.OrgID]payroll.Organization),
		employees:     make(map[payroll.EmployeeID]payroll.Employee),
		compensation:  make(map[payroll.EmployeeID][]payroll.CompensationStructure),
		settings:      make(map[payroll.OrgID]payroll.PayrollSettings),
		cycles:        make(map[payroll.CycleID]payroll.PayrollCycle),
		cycleByMonth:  make(map[monthKey]payroll.CycleID),
		items:         make(map[itemKey]payroll.PayrollItem),
		incentives:    make(map[itemKey]payroll.PayrollIncentive),
	}
}

// =============================================================================
// ORGANIZATIONS
// =============================================================================

func (m *Memory) SaveOrganization(_ context.Context, org payroll.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.organizations[org.ID] = org
	return nil
}

func (m *Memory) GetOrganization(_ context.Context, id payroll.OrgID) (*payroll.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	org, ok := m.organizations[id]
	if !ok {
		return nil, nil
	}
	return &org, nil
}

func (m *Memory) ListOrganizations(_ context.Context) ([]payroll.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]payroll.Organization, 0, len(m.organizations))
	for _, org := range m.organizations {
		result = append(result, org)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, emp payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id payroll.EmployeeID) (*payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (m *Memory) ListEmployees(_ context.Context, orgID payroll.OrgID) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.Employee
	for _, emp := range m.employees {
		if emp.OrgID == orgID {
			result = append(result, emp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ActiveEmployeesAsOf(_ context.Context, orgID payroll.OrgID, asOf time.Time) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.Employee
	for _, emp := range m.employees {
		if emp.OrgID == orgID && emp.EligibleFor(asOf) {
			result = append(result, emp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// COMPENSATION
// =============================================================================

func (m *Memory) SaveCompensation(_ context.Context, comp payroll.CompensationStructure) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.compensation[comp.EmployeeID]
	replaced := false
	for i, r := range records {
		if r.ID == comp.ID {
			records[i] = comp
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, comp)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].EffectiveFrom.Before(records[j].EffectiveFrom)
	})
	m.compensation[comp.EmployeeID] = records
	return nil
}

func (m *Memory) ListCompensation(_ context.Context, employeeID payroll.EmployeeID) ([]payroll.CompensationStructure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]payroll.CompensationStructure, len(m.compensation[employeeID]))
	copy(result, m.compensation[employeeID])
	return result, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) SaveSettings(_ context.Context, s payroll.PayrollSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.OrgID] = s
	return nil
}

func (m *Memory) GetSettings(_ context.Context, orgID payroll.OrgID) (*payroll.PayrollSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[orgID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// =============================================================================
// CYCLES
// =============================================================================

func (m *Memory) CreateCycle(_ context.Context, cycle payroll.PayrollCycle) (payroll.PayrollCycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := monthKey{OrgID: cycle.OrgID, Month: cycle.Month}
	if existingID, ok := m.cycleByMonth[k]; ok {
		// Uniqueness on (org, month): a concurrent create gets the winner.
		return m.cycles[existingID], nil
	}
	m.cycles[cycle.ID] = cycle
	m.cycleByMonth[k] = cycle.ID
	return cycle, nil
}

func (m *Memory) GetCycle(_ context.Context, id payroll.CycleID) (*payroll.PayrollCycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cycle, ok := m.cycles[id]
	if !ok {
		return nil, nil
	}
	return &cycle, nil
}

func (m *Memory) GetCycleByMonth(_ context.Context, orgID payroll.OrgID, month payroll.Month) (*payroll.PayrollCycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.cycleByMonth[monthKey{OrgID: orgID, Month: month}]
	if !ok {
		return nil, nil
	}
	cycle := m.cycles[id]
	return &cycle, nil
}

func (m *Memory) ListCycles(_ context.Context, orgID payroll.OrgID) ([]payroll.PayrollCycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.PayrollCycle
	for _, cycle := range m.cycles {
		if cycle.OrgID == orgID {
			result = append(result, cycle)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[j].Month.Before(result[i].Month) // newest first
	})
	return result, nil
}

func (m *Memory) UpdateCycle(_ context.Context, cycle payroll.PayrollCycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cycles[cycle.ID]; !ok {
		return payroll.ErrCycleNotFound
	}
	m.cycles[cycle.ID] = cycle
	return nil
}

// =============================================================================
// ITEMS
// =============================================================================

func (m *Memory) UpsertItem(_ context.Context, item payroll.PayrollItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := itemKey{CycleID: item.CycleID, EmployeeID: item.EmployeeID}
	if existing, ok := m.items[k]; ok {
		item.ID = existing.ID // replace figures, keep identity
	}
	m.items[k] = item
	return nil
}

func (m *Memory) GetItem(_ context.Context, cycleID payroll.CycleID, employeeID payroll.EmployeeID) (*payroll.PayrollItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[itemKey{CycleID: cycleID, EmployeeID: employeeID}]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *Memory) ListItems(_ context.Context, cycleID payroll.CycleID) ([]payroll.PayrollItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.PayrollItem
	for _, item := range m.items {
		if item.CycleID == cycleID {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result, nil
}

func (m *Memory) ListItemsByEmployee(_ context.Context, employeeID payroll.EmployeeID) ([]payroll.PayrollItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.PayrollItem
	for _, item := range m.items {
		if item.EmployeeID == employeeID {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		ci, cj := m.cycles[result[i].CycleID], m.cycles[result[j].CycleID]
		return ci.Month.Before(cj.Month) // oldest first
	})
	return result, nil
}

// =============================================================================
// INCENTIVES
// =============================================================================

func (m *Memory) SaveIncentive(_ context.Context, inc payroll.PayrollIncentive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incentives[itemKey{CycleID: inc.CycleID, EmployeeID: inc.EmployeeID}] = inc
	return nil
}

func (m *Memory) DeleteIncentive(_ context.Context, cycleID payroll.CycleID, employeeID payroll.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.incentives, itemKey{CycleID: cycleID, EmployeeID: employeeID})
	return nil
}

func (m *Memory) GetIncentive(_ context.Context, cycleID payroll.CycleID, employeeID payroll.EmployeeID) (*payroll.PayrollIncentive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inc, ok := m.incentives[itemKey{CycleID: cycleID, EmployeeID: employeeID}]
	if !ok {
		return nil, nil
	}
	return &inc, nil
}

func (m *Memory) ListIncentives(_ context.Context, cycleID payroll.CycleID) ([]payroll.PayrollIncentive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []payroll.PayrollIncentive
	for _, inc := range m.incentives {
		if inc.CycleID == cycleID {
			result = append(result, inc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result, nil
}
