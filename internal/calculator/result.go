// Package calculator implements the condominium expense-distribution engine:
// millesimal apportionment of expense transactions, owner/tenant splitting
// with lease-date rules, water-balance reconciliation against the bulk meter,
// and the per-year fold producing final unit balances.
//
// Every function here is a pure computation over its arguments. Missing or
// unresolvable references (categories, tables, units) contribute zero instead
// of raising errors: condominium data is frequently half-configured and a hard
// failure would block all financial reporting. Callers validate; the engine
// always produces a best-effort number.
package calculator

import (
	"github.com/shopspring/decimal"

	"riparto/internal/core"
)

// UnitSplit is one unit's share of a single transaction, already divided
// between owner and tenant.
type UnitSplit struct {
	Amount     float64 `json:"amount"`
	OwnerPart  float64 `json:"owner_part"`
	TenantPart float64 `json:"tenant_part"`
}

// SplitResult is the outcome of apportioning one transaction. UnitSplits has
// an entry for every known unit, zero-valued when the unit gets nothing.
// InvolvedTables lists the distinct table names actually used, or the
// direct-charge label.
type SplitResult struct {
	UnitSplits     map[string]*UnitSplit `json:"unit_splits"`
	InvolvedTables []string              `json:"involved_tables"`
}

// UnitResult is the year-end statement for one unit. All monetary fields are
// euros rounded to two decimals after Finalize; positive riparto values are
// owed by the unit, negative ones are credit.
type UnitResult struct {
	UnitID string `json:"unit_id"`

	AddebitoMillesimale float64 `json:"addebito_millesimale"`
	AddebitoAcqua       float64 `json:"addebito_acqua"`
	ScompensoAcqua      float64 `json:"scompenso_aqp"`
	ConsumoAcquaMc      float64 `json:"consumo_acqua_mc"`

	SpeseTotaliProprietario      float64 `json:"spese_totali_proprietario"`
	SpeseTotaliInquilino         float64 `json:"spese_totali_inquilino"`
	VersamentiTotaliProprietario float64 `json:"versamenti_totali_proprietario"`
	VersamentiTotaliInquilino    float64 `json:"versamenti_totali_inquilino"`
	SaldoPrecedenteProprietario  float64 `json:"saldo_precedente_proprietario"`
	SaldoPrecedenteInquilino     float64 `json:"saldo_precedente_inquilino"`

	TotaleDovutoGestione float64 `json:"totale_dovuto_gestione"`
	RipartoProprietario  float64 `json:"riparto_proprietario"`
	RipartoInquilino     float64 `json:"riparto_inquilino"`
	TotaleDaPagare       float64 `json:"totale_da_pagare"`
}

// round2 rounds a euro amount to two decimals (half away from zero).
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// newZeroSplits builds a zero-valued split map covering every unit.
func newZeroSplits(units []core.Unit) map[string]*UnitSplit {
	m := make(map[string]*UnitSplit, len(units))
	for _, u := range units {
		m[u.ID] = &UnitSplit{}
	}
	return m
}
