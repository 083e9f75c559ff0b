package calculator

import (
	"math"
	"testing"

	"riparto/internal/core"
)

func TestGenerateCondoDistributionYearEndBalance(t *testing.T) {
	units := []core.Unit{{
		ID: "u1", Name: "Int. 1", Owner: "Rossi",
		OwnerPreviousBalance: euro(100),
	}}
	tables := []core.MillesimalTable{{
		ID: "t1", Name: "Tabella A", IsActive: true,
		CategoryIDs: []string{"cat-manutenzione"},
		UnitValues:  []core.UnitMillesimalValue{{UnitID: "u1", Value: 1000}},
	}}
	categories := []core.Category{maintenanceCategory()}
	txs := []core.Transaction{
		{Type: core.Expense, Date: core.NewDate(2024, 2, 1), Amount: euro(500), Category: "Manutenzione"},
		{Type: core.Income, Date: core.NewDate(2024, 3, 1), Amount: euro(300), Unit: "u1", PayerType: core.PayerOwner},
	}

	results := GenerateCondoDistribution(txs, categories, units, tables, nil, nil)

	r := results["u1"]
	if r == nil {
		t.Fatalf("missing result for u1")
	}
	if r.SpeseTotaliProprietario != 500 {
		t.Errorf("spese proprietario = %v, want 500", r.SpeseTotaliProprietario)
	}
	if r.VersamentiTotaliProprietario != 300 {
		t.Errorf("versamenti proprietario = %v, want 300", r.VersamentiTotaliProprietario)
	}
	if r.RipartoProprietario != 300 {
		t.Errorf("riparto proprietario = %v, want 300.00 (500-300+100)", r.RipartoProprietario)
	}
	if r.TotaleDaPagare != 300 {
		t.Errorf("totale da pagare = %v, want 300.00", r.TotaleDaPagare)
	}
}

func TestGenerateCondoDistributionIncomeRouting(t *testing.T) {
	units := []core.Unit{{ID: "u1", Name: "Int. 1", Owner: "Rossi", Tenant: "Verdi"}}

	tests := []struct {
		name       string
		payer      core.PayerType
		wantOwner  float64
		wantTenant float64
	}{
		{"explicit tenant", core.PayerTenant, 0, 100},
		{"explicit owner", core.PayerOwner, 100, 0},
		{"entrambi counts as owner", core.PayerBoth, 100, 0},
		{"unspecified counts as owner", "", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := []core.Transaction{{
				Type: core.Income, Date: core.NewDate(2024, 5, 1),
				Amount: euro(100), Unit: "Int. 1", PayerType: tt.payer,
			}}
			results := GenerateCondoDistribution(txs, nil, units, nil, nil, nil)
			r := results["u1"]
			if r.VersamentiTotaliProprietario != tt.wantOwner {
				t.Errorf("versamenti proprietario = %v, want %v", r.VersamentiTotaliProprietario, tt.wantOwner)
			}
			if r.VersamentiTotaliInquilino != tt.wantTenant {
				t.Errorf("versamenti inquilino = %v, want %v", r.VersamentiTotaliInquilino, tt.wantTenant)
			}
		})
	}
}

func TestGenerateCondoDistributionSkipsWaterWhenMetered(t *testing.T) {
	units := []core.Unit{{ID: "u1", Name: "Int. 1", Owner: "Rossi", Tenant: "Verdi"}}
	tables := []core.MillesimalTable{{
		ID: "t1", Name: "Tabella A", IsActive: true,
		CategoryIDs: []string{"cat-acqua"},
		UnitValues:  []core.UnitMillesimalValue{{UnitID: "u1", Value: 1000}},
	}}
	categories := []core.Category{waterCategory()}
	meters := []core.WaterMeter{{ID: "m1", UnitID: "u1", Baseline: 0}}
	readings := []core.WaterReading{
		{ID: "r1", MeterID: "m1", Date: core.NewDate(2024, 12, 1), Value: 10, ConsumptionAmount: euro(80)},
	}
	txs := []core.Transaction{
		{Type: core.Expense, Date: core.NewDate(2024, 6, 1), Amount: euro(100), Category: "cat-acqua"},
	}

	results := GenerateCondoDistribution(txs, categories, units, tables, readings, meters)
	r := results["u1"]

	// The invoice must flow through the reconciliation only: direct cost 80
	// plus the 20 dispersion, nothing through the millesimal table.
	if r.AddebitoMillesimale != 0 {
		t.Errorf("addebito millesimale = %v, want 0 (acqua skipped when metered)", r.AddebitoMillesimale)
	}
	if math.Abs(r.AddebitoAcqua-100) > 1e-6 {
		t.Errorf("addebito acqua = %v, want 100 (80 direct + 20 dispersion)", r.AddebitoAcqua)
	}
	if math.Abs(r.ScompensoAcqua-20) > 1e-6 {
		t.Errorf("scompenso = %v, want 20", r.ScompensoAcqua)
	}
	if math.Abs(r.SpeseTotaliInquilino-100) > 1e-6 {
		t.Errorf("spese inquilino = %v, want 100 (water is always tenant-side)", r.SpeseTotaliInquilino)
	}
	if r.SpeseTotaliProprietario != 0 {
		t.Errorf("spese proprietario = %v, want 0", r.SpeseTotaliProprietario)
	}
}

func TestGenerateCondoDistributionWaterViaTablesWithoutMeters(t *testing.T) {
	units := []core.Unit{
		{ID: "u1", Name: "Int. 1", Owner: "Rossi"},
		{ID: "u2", Name: "Int. 2", Owner: "Bianchi"},
	}
	tables := []core.MillesimalTable{{
		ID: "t1", Name: "Tabella A", IsActive: true,
		CategoryIDs: []string{"cat-acqua"},
		UnitValues: []core.UnitMillesimalValue{
			{UnitID: "u1", Value: 600},
			{UnitID: "u2", Value: 400},
		},
	}}
	txs := []core.Transaction{
		{Type: core.Expense, Date: core.NewDate(2024, 6, 1), Amount: euro(100), Category: "cat-acqua"},
	}

	results := GenerateCondoDistribution(txs, []core.Category{waterCategory()}, units, tables, nil, nil)

	if got := results["u1"].AddebitoMillesimale; math.Abs(got-60) > 1e-6 {
		t.Errorf("u1 addebito millesimale = %v, want 60 via normal apportionment", got)
	}
	if got := results["u1"].AddebitoAcqua; got != 0 {
		t.Errorf("u1 addebito acqua = %v, want 0 without meters", got)
	}
}

func TestGenerateCondoDistributionRoundsOutputs(t *testing.T) {
	units := []core.Unit{
		{ID: "u1", Name: "Int. 1", Owner: "Rossi"},
		{ID: "u2", Name: "Int. 2", Owner: "Bianchi"},
		{ID: "u3", Name: "Int. 3", Owner: "Verdi"},
	}
	tables := []core.MillesimalTable{{
		ID: "t1", Name: "Tabella A", IsActive: true,
		CategoryIDs: []string{"cat-manutenzione"},
		UnitValues: []core.UnitMillesimalValue{
			{UnitID: "u1", Value: 1},
			{UnitID: "u2", Value: 1},
			{UnitID: "u3", Value: 1},
		},
	}}
	txs := []core.Transaction{
		{Type: core.Expense, Date: core.NewDate(2024, 6, 1), Amount: euro(100), Category: "Manutenzione"},
	}

	results := GenerateCondoDistribution(txs, []core.Category{maintenanceCategory()}, units, tables, nil, nil)

	for unitID, r := range results {
		if got := r.AddebitoMillesimale; got != 33.33 {
			t.Errorf("unit %s addebito = %v, want 33.33 after rounding", unitID, got)
		}
		if got := r.RipartoProprietario; got != 33.33 {
			t.Errorf("unit %s riparto = %v, want 33.33 after rounding", unitID, got)
		}
	}
}

func TestGenerateCondoDistributionNeverPanicsOnBrokenReferences(t *testing.T) {
	units := []core.Unit{{ID: "u1", Name: "Int. 1", Owner: "Rossi"}}
	tables := []core.MillesimalTable{{
		ID: "t1", Name: "Tabella A", IsActive: true,
		CategoryIDs: []string{"cat-x"},
		UnitValues:  []core.UnitMillesimalValue{{UnitID: "u-ghost", Value: 1000}},
	}}
	txs := []core.Transaction{
		{Type: core.Expense, Date: core.NewDate(2024, 6, 1), Amount: euro(100), Category: "cat-x"},
		{Type: core.Expense, Date: core.NewDate(2024, 6, 1), Amount: euro(50), Category: "nessuna"},
		{Type: core.Expense, Date: core.NewDate(2024, 6, 1), Amount: euro(50), Unit: "Int. 9"},
		{Type: core.Income, Date: core.NewDate(2024, 6, 1), Amount: euro(10), Unit: "Int. 9"},
		{Type: core.Income, Date: core.NewDate(2024, 6, 1), Amount: euro(10)},
	}
	meters := []core.WaterMeter{{ID: "m1", UnitID: "u-ghost"}}

	results := GenerateCondoDistribution(txs, nil, units, tables, nil, meters)

	r := results["u1"]
	if r.AddebitoMillesimale != 0 || r.TotaleDaPagare != 0 {
		t.Errorf("broken references must contribute zero, got %+v", *r)
	}
}
