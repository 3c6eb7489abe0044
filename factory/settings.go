/*
Package factory provides JSON to Go payroll-settings conversion.

PURPOSE:
  Converts JSON settings documents into payroll.PayrollSettings. This
  enables rate configuration without code changes - operations staff can
  adjust deduction rates in JSON, and the factory creates validated Go
  structs with system defaults filled in.

WHY JSON?
  - Non-developers can adjust rates
  - Easy integration with admin UI
  - Version control for rate changes
  - Database storage of settings payloads

JSON SCHEMA:
  {
    "pf_rate": 12,
    "esi_rate": 0.75,
    "pt_rate": 200,
    "tds_threshold": 250000,
    "ctc_split": {
      "basic": 50,
      "hra": 30,
      "special": 20
    }
  }

  All fields are optional. Omitted fields keep the system defaults. When
  ctc_split is supplied, the three percentages must sum to exactly 100.

USAGE:
  f := factory.NewSettingsFactory()
  settings, err := f.ParseSettings(orgID, jsonString)

  // Preset for a standard India-statutory configuration
  settings, err = f.ParseSettings(orgID, factory.StatutoryDefaultsJSON())

SEE ALSO:
  - payroll/settings.go: Defaults, resolution, and validation rules
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SettingsJSON is the JSON representation of an org's payroll settings.
// Pointer fields distinguish "omitted" from an explicit zero.
type SettingsJSON struct {
	PFRate       *float64   `json:"pf_rate,omitempty"`       // percent of adjusted basic
	ESIRate      *float64   `json:"esi_rate,omitempty"`      // percent of adjusted gross
	PTRate       *float64   `json:"pt_rate,omitempty"`       // flat monthly amount
	TDSThreshold *float64   `json:"tds_threshold,omitempty"` // annual
	CTCSplit     *SplitJSON `json:"ctc_split,omitempty"`
}

// SplitJSON is the CTC fallback component split. All three must be present
// together and sum to 100.
type SplitJSON struct {
	Basic   float64 `json:"basic"`
	HRA     float64 `json:"hra"`
	Special float64 `json:"special"`
}

// =============================================================================
// SETTINGS FACTORY
// =============================================================================

type SettingsFactory struct{}

func NewSettingsFactory() *SettingsFactory {
	return &SettingsFactory{}
}

// ParseSettings converts a JSON settings document into a validated
// PayrollSettings value. Omitted fields are left zero so the resolution in
// the payroll package substitutes system defaults at computation time.
func (f *SettingsFactory) ParseSettings(orgID payroll.OrgID, jsonStr string) (payroll.PayrollSettings, error) {
	var doc SettingsJSON
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return payroll.PayrollSettings{}, fmt.Errorf("invalid settings JSON: %w", err)
	}
	return f.build(orgID, doc)
}

func (f *SettingsFactory) build(orgID payroll.OrgID, doc SettingsJSON) (payroll.PayrollSettings, error) {
	settings := payroll.PayrollSettings{OrgID: orgID}

	if doc.PFRate != nil {
		settings.PFRate = decimal.NewFromFloat(*doc.PFRate)
	}
	if doc.ESIRate != nil {
		settings.ESIRate = decimal.NewFromFloat(*doc.ESIRate)
	}
	if doc.PTRate != nil {
		settings.PTRate = payroll.NewMoney(*doc.PTRate)
	}
	if doc.TDSThreshold != nil {
		settings.TDSThreshold = payroll.NewMoney(*doc.TDSThreshold)
	}
	if doc.CTCSplit != nil {
		settings.BasicSplit = decimal.NewFromFloat(doc.CTCSplit.Basic)
		settings.HRASplit = decimal.NewFromFloat(doc.CTCSplit.HRA)
		settings.SpecialSplit = decimal.NewFromFloat(doc.CTCSplit.Special)
	}

	if err := settings.Validate(); err != nil {
		return payroll.PayrollSettings{}, err
	}
	return settings, nil
}

// =============================================================================
// PRESETS
// =============================================================================

// StatutoryDefaultsJSON returns the standard statutory configuration as an
// explicit document: PF 12%, ESI 0.75%, PT 200/month, TDS threshold 250000,
// CTC split 50/30/20.
func StatutoryDefaultsJSON() string {
	return `{
		"pf_rate": 12,
		"esi_rate": 0.75,
		"pt_rate": 200,
		"tds_threshold": 250000,
		"ctc_split": {"basic": 50, "hra": 30, "special": 20}
	}`
}
