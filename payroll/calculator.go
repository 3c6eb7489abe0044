/*
calculator.go - Per-employee salary computation for one month

PURPOSE:
  Turns a compensation record + attendance-impacted days + incentive into a
  gross/deduction/net breakdown. This is a pure function: everything it
  needs arrives as input, nothing is read from shared state, and it raises
  no domain errors — missing data degrades gracefully (CTC fallback, LOP
  clamping) rather than failing.

ALGORITHM:
  1. paid_days = total_working_days - lop_days
  2. Components come from the compensation record; when their sum is zero
     but a CTC exists, basic/hra/special are derived from CTC/12 using the
     org's split percentages (da/lta/bonus stay 0 on this path).
  3. Proration ratio r = paid_days / total_working_days. All earning
     components scale by r; the incentive never does.
  4. Deductions:
       pf  = adjusted_basic * pf_rate%
       esi = adjusted_gross * 0.75%  only when adjusted_gross <= 21000
             (statutory rate and ceiling, independent of the org's esi_rate)
       pt  = flat monthly amount
       tds = (gross_with_incentive*12 - tds_threshold) * 5% / 12 when the
             annualized figure exceeds the threshold, else 0
  5. net = gross_with_incentive - (pf + esi + pt + tds)

ROUNDING:
  Every stored figure is rounded to 2 places at assignment; net is then the
  exact difference of rounded figures, so the payslip invariant
  net = gross_with_incentive - deductions holds byte-for-byte.

SEE ALSO:
  - settings.go: Where the rates come from
  - engine.go:   Feeds this from the cycle computation loop
*/
package payroll

import "github.com/shopspring/decimal"

// Statutory ESI withholding: fixed 0.75% applied only at or below the
// monthly eligibility ceiling.
var (
	esiCeiling       = NewMoneyFromInt(21000)
	esiStatutoryRate = decimal.RequireFromString("0.0075")
	tdsExcessRate    = decimal.RequireFromString("0.05")
	twelve           = decimal.NewFromInt(12)
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// CalculationInput carries everything the calculator needs, by value.
type CalculationInput struct {
	Compensation CompensationStructure
	Settings     PayrollSettings
	WorkingDays  int // calendar days in the month, always >= 28
	LOPDays      int
	Incentive    Money
}

// SalaryBreakdown is the computed payslip line, before persistence identity
// (cycle/item IDs) is attached.
type SalaryBreakdown struct {
	Basic            Money
	HRA              Money
	SpecialAllowance Money
	DA               Money
	LTA              Money
	Bonus            Money

	Gross              Money // prorated, excluding incentive
	Incentive          Money
	GrossWithIncentive Money

	PF              Money
	ESI             Money
	PT              Money
	TDS             Money
	TotalDeductions Money

	Net Money

	TotalWorkingDays int
	LOPDays          int
	PaidDays         int
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculate computes one employee-month breakdown.
func Calculate(in CalculationInput) SalaryBreakdown {
	lop := in.LOPDays
	if lop < 0 {
		lop = 0
	}
	if lop > in.WorkingDays {
		lop = in.WorkingDays
	}
	paid := in.WorkingDays - lop

	basic := in.Compensation.Basic
	hra := in.Compensation.HRA
	special := in.Compensation.SpecialAllowance
	da := in.Compensation.DA
	lta := in.Compensation.LTA
	bonus := in.Compensation.Bonus

	// CTC fallback: records created with only an annual figure are split
	// into basic/hra/special from CTC/12; da/lta/bonus stay 0 here.
	if in.Compensation.MonthlyGross().IsZero() && in.Compensation.CTC.IsPositive() {
		monthly := in.Compensation.CTC.Div(twelve)
		basic = monthly.Mul(in.Settings.BasicSplit).Div(hundred)
		hra = monthly.Mul(in.Settings.HRASplit).Div(hundred)
		special = monthly.Mul(in.Settings.SpecialSplit).Div(hundred)
		da, lta, bonus = ZeroMoney(), ZeroMoney(), ZeroMoney()
	}

	grossMonthly := basic.Add(hra).Add(special).Add(da).Add(lta).Add(bonus)

	ratio := decimal.NewFromInt(int64(paid)).Div(decimal.NewFromInt(int64(in.WorkingDays)))

	out := SalaryBreakdown{
		Basic:            basic.Mul(ratio).Round2(),
		HRA:              hra.Mul(ratio).Round2(),
		SpecialAllowance: special.Mul(ratio).Round2(),
		DA:               da.Mul(ratio).Round2(),
		LTA:              lta.Mul(ratio).Round2(),
		Bonus:            bonus.Mul(ratio).Round2(),
		Gross:            grossMonthly.Mul(ratio).Round2(),
		Incentive:        in.Incentive.Round2(),
		TotalWorkingDays: in.WorkingDays,
		LOPDays:          lop,
		PaidDays:         paid,
	}
	out.GrossWithIncentive = out.Gross.Add(out.Incentive)

	// PF on the adjusted basic.
	out.PF = out.Basic.Mul(in.Settings.PFRate).Div(hundred).Round2()

	// ESI only at or below the eligibility ceiling.
	if out.Gross.LessThanOrEqual(esiCeiling) {
		out.ESI = out.Gross.Mul(esiStatutoryRate).Round2()
	} else {
		out.ESI = ZeroMoney()
	}

	// PT is a flat monthly amount.
	out.PT = in.Settings.PTRate.Round2()

	// Flat-rate withholding on the annualized excess over the threshold.
	annualized := out.GrossWithIncentive.Mul(twelve)
	if annualized.GreaterThan(in.Settings.TDSThreshold) {
		out.TDS = annualized.Sub(in.Settings.TDSThreshold).Mul(tdsExcessRate).Div(twelve).Round2()
	} else {
		out.TDS = ZeroMoney()
	}

	out.TotalDeductions = out.PF.Add(out.ESI).Add(out.PT).Add(out.TDS)
	out.Net = out.GrossWithIncentive.Sub(out.TotalDeductions)
	return out
}

// Item attaches persistence identity to a breakdown.
func (b SalaryBreakdown) Item(id string, cycleID CycleID, employeeID EmployeeID) PayrollItem {
	return PayrollItem{
		ID:                 id,
		CycleID:            cycleID,
		EmployeeID:         employeeID,
		Basic:              b.Basic,
		HRA:                b.HRA,
		SpecialAllowance:   b.SpecialAllowance,
		DA:                 b.DA,
		LTA:                b.LTA,
		Bonus:              b.Bonus,
		Gross:              b.Gross,
		Incentive:          b.Incentive,
		GrossWithIncentive: b.GrossWithIncentive,
		PF:                 b.PF,
		ESI:                b.ESI,
		PT:                 b.PT,
		TDS:                b.TDS,
		TotalDeductions:    b.TotalDeductions,
		Net:                b.Net,
		TotalWorkingDays:   b.TotalWorkingDays,
		LOPDays:            b.LOPDays,
		PaidDays:           b.PaidDays,
	}
}
