package calculator

import (
	"riparto/internal/core"
)

// CalculateTransactionSplit apportions one transaction across units and,
// within each unit, between owner and tenant.
//
// The paths, in order:
//   - incomes produce an all-zero map;
//   - a transaction naming a specific unit (not CONDOMINIO) is charged 100%
//     to that unit's owner and bypasses every table;
//   - a transaction whose category is excluded produces an all-zero map
//     ("spesa esclusa");
//   - otherwise the amount flows through the manual splits if present, or
//     through every table matching the category at equal weight.
//
// Within a table the weight denominator is the sum of non-excluded positive
// row values — never the literal 1000 — and duplicate rows for the same unit
// accumulate. A unit's share lands entirely on the owner when the transaction
// predates the unit's lease start; otherwise the unit's category distribution
// decides the tenant fraction.
func CalculateTransactionSplit(tx core.Transaction, tables []core.MillesimalTable, units []core.Unit, categories []core.Category) SplitResult {
	result := SplitResult{
		UnitSplits:     newZeroSplits(units),
		InvolvedTables: []string{},
	}

	if tx.Type != core.Expense {
		return result
	}

	amount := tx.Amount.Euros()

	// Direct charge: the whole amount to one unit's owner, no tables.
	if tx.Unit != "" && !core.SameName(tx.Unit, core.CondominiumUnit) {
		if target := resolveUnit(units, tx.Unit); target != nil {
			split := result.UnitSplits[target.ID]
			split.Amount += amount
			split.OwnerPart += amount
			result.InvolvedTables = append(result.InvolvedTables, core.DirectChargeLabel)
		}
		return result
	}

	category := resolveCategory(categories, tx.Category)
	if category != nil && category.IsExcluded {
		return result
	}

	splits := tx.Splits
	if len(splits) == 0 {
		splits = autoDiscoverSplits(tables, category, tx.Category)
	}

	seenTables := make(map[string]bool)
	for _, ts := range splits {
		table := resolveTable(tables, ts.TableID)
		if table == nil || len(table.UnitValues) == 0 {
			continue
		}

		tableShare := amount * ts.Percentage / 100

		var denominator float64
		for _, uv := range table.UnitValues {
			if uv.IsExcluded || uv.Value <= 0 {
				continue
			}
			denominator += uv.Value
		}
		if denominator <= 0 {
			continue
		}

		for _, uv := range table.UnitValues {
			if uv.IsExcluded || uv.Value <= 0 {
				continue
			}
			unit := resolveUnit(units, uv.UnitID)
			if unit == nil {
				continue
			}
			unitShare := tableShare * uv.Value / denominator
			addUnitShare(result.UnitSplits[unit.ID], unit, tx, category, unitShare)
		}

		if !seenTables[table.Name] {
			seenTables[table.Name] = true
			result.InvolvedTables = append(result.InvolvedTables, table.Name)
		}
	}

	return result
}

// autoDiscoverSplits finds every table matching the category and weighs them
// equally (100/N). The fallback is deliberately unweighted; see the category
// distribution policy notes in DESIGN.md.
func autoDiscoverSplits(tables []core.MillesimalTable, category *core.Category, rawName string) []core.TableSplit {
	var matched []string
	for _, table := range tables {
		if categoryMatchesTable(table, category, rawName) {
			matched = append(matched, table.ID)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	share := 100.0 / float64(len(matched))
	splits := make([]core.TableSplit, len(matched))
	for i, id := range matched {
		splits[i] = core.TableSplit{TableID: id, Percentage: share}
	}
	return splits
}

// addUnitShare accumulates one apportioned amount onto a unit, applying the
// lease-date rule and the owner/tenant split. The lease check runs per
// amount, not per transaction: the same expense can be pre-lease for one
// unit and post-lease for another.
func addUnitShare(split *UnitSplit, unit *core.Unit, tx core.Transaction, category *core.Category, share float64) {
	split.Amount += share

	// Expenses incurred before the lease began are the owner's alone.
	if !unit.LeaseStartDate.IsEmpty() && tx.Date.Before(unit.LeaseStartDate.Time) {
		split.OwnerPart += share
		return
	}

	tenantPct := tenantPercentageFor(unit, category, tx.Category)
	tenantShare := share * tenantPct / 100
	split.TenantPart += tenantShare
	split.OwnerPart += share - tenantShare
}
