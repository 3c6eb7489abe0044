/*
settings.go - Per-organization payroll rates with system defaults

PURPOSE:
  PayrollSettings rows are optional and may be partially filled. This file
  turns whatever is stored into a fully-populated value the calculator can
  use: unset (zero) fields fall back to system defaults, and the resolved
  value is passed by value so the calculator stays a pure function — no
  ambient or global rate lookup anywhere downstream.

SYSTEM DEFAULTS:
  PF 12% of adjusted basic, ESI 0.75% statutory, PT 200 flat/month,
  TDS threshold 250000/year, CTC split 50/30/20 (basic/hra/special).

VALIDATION:
  Operator-supplied split percentages must sum to exactly 100. Rates must be
  non-negative. Validation happens on write; ResolveSettings on the read
  path never fails.
*/
package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SYSTEM DEFAULTS
// =============================================================================

var (
	defaultPFRate       = decimal.NewFromInt(12)
	defaultESIRate      = decimal.RequireFromString("0.75")
	defaultPTRate       = NewMoneyFromInt(200)
	defaultTDSThreshold = NewMoneyFromInt(250000)
	defaultBasicSplit   = decimal.NewFromInt(50)
	defaultHRASplit     = decimal.NewFromInt(30)
	defaultSpecialSplit = decimal.NewFromInt(20)

	hundred = decimal.NewFromInt(100)
)

// DefaultSettings returns the full system-default configuration for an org.
func DefaultSettings(orgID OrgID) PayrollSettings {
	return PayrollSettings{
		OrgID:        orgID,
		PFRate:       defaultPFRate,
		ESIRate:      defaultESIRate,
		PTRate:       defaultPTRate,
		TDSThreshold: defaultTDSThreshold,
		BasicSplit:   defaultBasicSplit,
		HRASplit:     defaultHRASplit,
		SpecialSplit: defaultSpecialSplit,
	}
}

// ResolveSettings fills unset fields of a stored settings row with system
// defaults. A nil stored row yields pure defaults. The three splits are
// defaulted as a unit: either the operator supplied all of them (validated
// to sum to 100 on write) or none.
func ResolveSettings(stored *PayrollSettings, orgID OrgID) PayrollSettings {
	resolved := DefaultSettings(orgID)
	if stored == nil {
		return resolved
	}

	if !stored.PFRate.IsZero() {
		resolved.PFRate = stored.PFRate
	}
	if !stored.ESIRate.IsZero() {
		resolved.ESIRate = stored.ESIRate
	}
	if !stored.PTRate.IsZero() {
		resolved.PTRate = stored.PTRate
	}
	if !stored.TDSThreshold.IsZero() {
		resolved.TDSThreshold = stored.TDSThreshold
	}
	if !stored.BasicSplit.IsZero() || !stored.HRASplit.IsZero() || !stored.SpecialSplit.IsZero() {
		resolved.BasicSplit = stored.BasicSplit
		resolved.HRASplit = stored.HRASplit
		resolved.SpecialSplit = stored.SpecialSplit
	}
	return resolved
}

// Validate checks operator-supplied settings before they are stored.
func (s PayrollSettings) Validate() error {
	if s.PFRate.IsNegative() || s.ESIRate.IsNegative() {
		return fmt.Errorf("%w: rates must be non-negative", ErrInvalidSettings)
	}
	if s.PTRate.IsNegative() || s.TDSThreshold.IsNegative() {
		return fmt.Errorf("%w: amounts must be non-negative", ErrInvalidSettings)
	}

	supplied := !s.BasicSplit.IsZero() || !s.HRASplit.IsZero() || !s.SpecialSplit.IsZero()
	if supplied {
		if s.BasicSplit.IsNegative() || s.HRASplit.IsNegative() || s.SpecialSplit.IsNegative() {
			return fmt.Errorf("%w: split percentages must be non-negative", ErrInvalidSettings)
		}
		sum := s.BasicSplit.Add(s.HRASplit).Add(s.SpecialSplit)
		if !sum.Equal(hundred) {
			return fmt.Errorf("%w: split percentages sum to %s, want 100", ErrInvalidSettings, sum)
		}
	}
	return nil
}
