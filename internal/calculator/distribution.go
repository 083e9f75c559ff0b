package calculator

import (
	"riparto/internal/core"
)

// GenerateCondoDistribution folds a fiscal year's records into per-unit
// balances. Callers pre-filter transactions and readings to the year; the
// engine does no date filtering of its own.
//
// The phases run in a fixed order — water reconciliation, expenses, incomes,
// finalize — because the expense phase must know that "acqua" invoices were
// already settled by the meters. Reordering would double-count them.
func GenerateCondoDistribution(
	txs []core.Transaction,
	categories []core.Category,
	units []core.Unit,
	tables []core.MillesimalTable,
	readings []core.WaterReading,
	meters []core.WaterMeter,
) map[string]*UnitResult {
	results := make(map[string]*UnitResult, len(units))
	for _, u := range units {
		results[u.ID] = &UnitResult{
			UnitID:                      u.ID,
			SaldoPrecedenteProprietario: u.OwnerPreviousBalance.Euros(),
			SaldoPrecedenteInquilino:    u.TenantPreviousBalance.Euros(),
		}
	}

	metered := HasPrivateMeters(meters)
	if metered {
		applyWaterBalance(results, ReconcileWaterBalance(txs, categories, units, meters, readings))
	}
	applyExpenses(results, txs, categories, units, tables, metered)
	applyIncomes(results, txs, units)
	finalize(results)

	return results
}

// applyWaterBalance charges each unit its private water cost plus its share
// of the dispersion. In-unit water is the resident's responsibility, so the
// whole charge lands on the tenant side regardless of lease dates.
func applyWaterBalance(results map[string]*UnitResult, wb WaterBalance) {
	for unitID, r := range results {
		r.ConsumoAcquaMc = wb.Consumption[unitID]

		cost := wb.DirectCost[unitID]
		r.AddebitoAcqua += cost
		r.SpeseTotaliInquilino += cost

		if d := wb.Dispersion[unitID]; d > 0 {
			r.ScompensoAcqua = d
			r.AddebitoAcqua += d
			r.SpeseTotaliInquilino += d
		}
	}
}

// applyExpenses runs the splitter over every expense. Water invoices are
// skipped when private meters exist: phase one already settled them.
func applyExpenses(results map[string]*UnitResult, txs []core.Transaction, categories []core.Category, units []core.Unit, tables []core.MillesimalTable, metered bool) {
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		if metered && IsWaterInvoice(tx, categories) {
			continue
		}
		sr := CalculateTransactionSplit(tx, tables, units, categories)
		for unitID, split := range sr.UnitSplits {
			r, ok := results[unitID]
			if !ok {
				continue
			}
			r.AddebitoMillesimale += split.Amount
			r.SpeseTotaliProprietario += split.OwnerPart
			r.SpeseTotaliInquilino += split.TenantPart
		}
	}
}

// applyIncomes credits receipts to the paying side of the matched unit. Only
// an explicit INQUILINO tag routes to the tenant; unspecified and ENTRAMBI
// both count as owner payments for this aggregation.
func applyIncomes(results map[string]*UnitResult, txs []core.Transaction, units []core.Unit) {
	for _, tx := range txs {
		if tx.Type != core.Income {
			continue
		}
		unit := resolveUnit(units, tx.Unit)
		if unit == nil {
			continue
		}
		r, ok := results[unit.ID]
		if !ok {
			continue
		}
		if tx.PayerType == core.PayerTenant {
			r.VersamentiTotaliInquilino += tx.Amount.Euros()
		} else {
			r.VersamentiTotaliProprietario += tx.Amount.Euros()
		}
	}
}

// finalize computes the closing balances and rounds every monetary output to
// two decimals, so downstream renderers never re-round.
func finalize(results map[string]*UnitResult) {
	for _, r := range results {
		r.TotaleDovutoGestione = round2(r.AddebitoMillesimale + r.AddebitoAcqua)
		r.RipartoProprietario = round2(r.SpeseTotaliProprietario - r.VersamentiTotaliProprietario + r.SaldoPrecedenteProprietario)
		r.RipartoInquilino = round2(r.SpeseTotaliInquilino - r.VersamentiTotaliInquilino + r.SaldoPrecedenteInquilino)
		r.TotaleDaPagare = round2(r.RipartoProprietario + r.RipartoInquilino)

		r.AddebitoMillesimale = round2(r.AddebitoMillesimale)
		r.AddebitoAcqua = round2(r.AddebitoAcqua)
		r.ScompensoAcqua = round2(r.ScompensoAcqua)
		r.SpeseTotaliProprietario = round2(r.SpeseTotaliProprietario)
		r.SpeseTotaliInquilino = round2(r.SpeseTotaliInquilino)
		r.VersamentiTotaliProprietario = round2(r.VersamentiTotaliProprietario)
		r.VersamentiTotaliInquilino = round2(r.VersamentiTotaliInquilino)
		r.SaldoPrecedenteProprietario = round2(r.SaldoPrecedenteProprietario)
		r.SaldoPrecedenteInquilino = round2(r.SaldoPrecedenteInquilino)
	}
}
