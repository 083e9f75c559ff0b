package calculator

import (
	"riparto/internal/core"
)

// WaterBalance is the outcome of reconciling private meters against the
// water-utility invoices ("fatturato AQP"). All maps are keyed by unit id.
type WaterBalance struct {
	// Consumption is each unit's private consumption in cubic meters:
	// latest reading minus meter baseline, clamped at zero, summed over the
	// unit's meters.
	Consumption map[string]float64

	// DirectCost is each unit's billed line-items in euros (consumption +
	// discharge + fixed amounts over all readings).
	DirectCost map[string]float64

	// Dispersion is each unit's share of the undetected loss, rounded to two
	// decimals. Zero everywhere when the invoiced total does not exceed the
	// metered total.
	Dispersion map[string]float64

	TotalConsumption float64
	TotalDirectCost  float64
	// BilledTotal is the sum of the condominium's "acqua" expense invoices.
	BilledTotal float64
}

// HasPrivateMeters reports whether any non-general water meter exists. When
// none do, water invoices are apportioned through the normal millesimal
// mechanism and the reconciliation never runs.
func HasPrivateMeters(meters []core.WaterMeter) bool {
	for _, m := range meters {
		if m.UnitID != core.GeneralMeterUnit {
			return true
		}
	}
	return false
}

// IsWaterInvoice reports whether an expense belongs to the water category,
// matching the resolved category name or the raw transaction category.
func IsWaterInvoice(tx core.Transaction, categories []core.Category) bool {
	if tx.Type != core.Expense {
		return false
	}
	if category := resolveCategory(categories, tx.Category); category != nil {
		return core.NormalizeName(category.Name) == core.WaterCategoryName
	}
	return core.NormalizeName(tx.Category) == core.WaterCategoryName
}

// ReconcileWaterBalance aggregates private meter consumption and cost per
// unit and distributes any positive billing surplus (bulk invoice exceeding
// the sum of private costs, i.e. leakage) proportionally to consumption.
// Negative discrepancies are never refunded.
func ReconcileWaterBalance(txs []core.Transaction, categories []core.Category, units []core.Unit, meters []core.WaterMeter, readings []core.WaterReading) WaterBalance {
	wb := WaterBalance{
		Consumption: make(map[string]float64, len(units)),
		DirectCost:  make(map[string]float64, len(units)),
		Dispersion:  make(map[string]float64, len(units)),
	}
	for _, u := range units {
		wb.Consumption[u.ID] = 0
		wb.DirectCost[u.ID] = 0
		wb.Dispersion[u.ID] = 0
	}

	byMeter := make(map[string][]core.WaterReading)
	for _, r := range readings {
		byMeter[r.MeterID] = append(byMeter[r.MeterID], r)
	}

	for _, meter := range meters {
		if meter.UnitID == core.GeneralMeterUnit {
			continue
		}
		unit := resolveUnit(units, meter.UnitID)
		if unit == nil {
			continue
		}

		var latest *core.WaterReading
		for i := range byMeter[meter.ID] {
			r := &byMeter[meter.ID][i]
			if latest == nil || r.Date.After(latest.Date.Time) {
				latest = r
			}
			cost := r.ConsumptionAmount.Euros() + r.DischargeAmount.Euros() + r.FixedAmount.Euros()
			wb.DirectCost[unit.ID] += cost
			wb.TotalDirectCost += cost
		}
		if latest != nil {
			consumed := latest.Value - meter.Baseline
			if consumed > 0 {
				wb.Consumption[unit.ID] += consumed
				wb.TotalConsumption += consumed
			}
		}
	}

	for _, tx := range txs {
		if IsWaterInvoice(tx, categories) {
			wb.BilledTotal += tx.Amount.Euros()
		}
	}

	surplus := wb.BilledTotal - wb.TotalDirectCost
	if surplus > 0 && wb.TotalConsumption > 0 {
		for unitID, consumed := range wb.Consumption {
			if consumed <= 0 {
				continue
			}
			wb.Dispersion[unitID] = round2(surplus * consumed / wb.TotalConsumption)
		}
	}

	return wb
}
