package calculator

import (
	"riparto/internal/core"
)

// resolveCategory finds a category by id first, then by normalized name.
// Free-text and AI-extracted transactions carry names never reconciled to an
// id, so the name fallback is part of the contract, not a convenience.
// Returns nil when nothing matches.
func resolveCategory(categories []core.Category, idOrName string) *core.Category {
	for i := range categories {
		if categories[i].ID != "" && categories[i].ID == idOrName {
			return &categories[i]
		}
	}
	for i := range categories {
		if core.SameName(categories[i].Name, idOrName) {
			return &categories[i]
		}
	}
	return nil
}

// resolveUnit finds a unit by id first, then by normalized name.
func resolveUnit(units []core.Unit, idOrName string) *core.Unit {
	for i := range units {
		if units[i].ID != "" && units[i].ID == idOrName {
			return &units[i]
		}
	}
	for i := range units {
		if core.SameName(units[i].Name, idOrName) {
			return &units[i]
		}
	}
	return nil
}

// resolveTable finds a table by id. Tables are never matched by name.
func resolveTable(tables []core.MillesimalTable, id string) *core.MillesimalTable {
	for i := range tables {
		if tables[i].ID == id {
			return &tables[i]
		}
	}
	return nil
}

// categoryMatchesTable reports whether a table applies to a category.
// Inactive tables and tables with no category bindings never match. Each
// CategoryIDs entry is tried as an exact category id, then as a normalized
// name against the raw category string.
func categoryMatchesTable(table core.MillesimalTable, category *core.Category, rawName string) bool {
	if !table.IsActive || len(table.CategoryIDs) == 0 {
		return false
	}
	for _, entry := range table.CategoryIDs {
		if category != nil && category.ID != "" && entry == category.ID {
			return true
		}
		if core.SameName(entry, rawName) {
			return true
		}
		if category != nil && core.SameName(entry, category.Name) {
			return true
		}
	}
	return false
}

// tenantPercentageFor returns the tenant share (0-100) configured for this
// unit and category. Absent a matching distribution the owner pays all: the
// default is deliberately 0.
func tenantPercentageFor(unit *core.Unit, category *core.Category, rawName string) float64 {
	for _, cd := range unit.CategoryDistributions {
		if category != nil && category.ID != "" && cd.Category == category.ID {
			return cd.TenantPercentage
		}
		if core.SameName(cd.Category, rawName) {
			return cd.TenantPercentage
		}
		if category != nil && core.SameName(cd.Category, category.Name) {
			return cd.TenantPercentage
		}
	}
	return 0
}
