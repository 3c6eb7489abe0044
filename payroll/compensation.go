package payroll

import "time"

// =============================================================================
// COMPENSATION RESOLVER - Which salary version applies to a month
// =============================================================================

// ResolveCompensation returns the compensation record with the maximum
// EffectiveFrom not exceeding monthEnd. The second return is false when the
// employee predates every record, in which case the employee is skipped for
// that month. That is a deliberate omission, not an error: it shows up only
// as a lower total_employees count on the cycle.
func ResolveCompensation(records []CompensationStructure, monthEnd time.Time) (CompensationStructure, bool) {
	var best CompensationStructure
	found := false
	for _, r := range records {
		if r.EffectiveFrom.After(monthEnd) {
			continue
		}
		if !found || r.EffectiveFrom.After(best.EffectiveFrom) {
			best = r
			found = true
		}
	}
	return best, found
}
