package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"riparto/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "riparto-test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestUnitRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	unit := core.Unit{
		Name:                 "Int. 1",
		Owner:                "Rossi",
		Tenant:               "Verdi",
		Floor:                "2",
		Staircase:            "A",
		LeaseStartDate:       core.NewDate(2023, 6, 1),
		MonthlyFee:           core.Money{Cents: 5000},
		OwnerPreviousBalance: core.Money{Cents: 12345},
		CategoryDistributions: []core.CategoryDistribution{
			{Category: "Pulizie", TenantPercentage: 100},
			{Category: "Manutenzione", TenantPercentage: 30},
		},
	}

	id, err := repo.CreateUnit(ctx, unit)
	if err != nil {
		t.Fatalf("CreateUnit() error = %v", err)
	}
	if id == "" {
		t.Fatalf("CreateUnit() returned empty id")
	}

	units, err := repo.ListUnits(ctx)
	if err != nil {
		t.Fatalf("ListUnits() error = %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("ListUnits() returned %d units, want 1", len(units))
	}

	got := units[0]
	if got.Owner != "Rossi" || got.Tenant != "Verdi" {
		t.Errorf("unit people = %s/%s, want Rossi/Verdi", got.Owner, got.Tenant)
	}
	if got.LeaseStartDate.ISO() != "2023-06-01" {
		t.Errorf("lease start = %s, want 2023-06-01", got.LeaseStartDate.ISO())
	}
	if got.OwnerPreviousBalance.Cents != 12345 {
		t.Errorf("owner previous balance = %d, want 12345", got.OwnerPreviousBalance.Cents)
	}
	if len(got.CategoryDistributions) != 2 {
		t.Fatalf("category distributions = %d, want 2", len(got.CategoryDistributions))
	}
}

func TestUpdateUnitReplacesDistributions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateUnit(ctx, core.Unit{
		Name: "Int. 1", Owner: "Rossi",
		CategoryDistributions: []core.CategoryDistribution{{Category: "Pulizie", TenantPercentage: 100}},
	})
	if err != nil {
		t.Fatalf("CreateUnit() error = %v", err)
	}

	err = repo.UpdateUnit(ctx, core.Unit{
		ID: id, Name: "Int. 1", Owner: "Bianchi",
		CategoryDistributions: []core.CategoryDistribution{{Category: "Ascensore", TenantPercentage: 50}},
	})
	if err != nil {
		t.Fatalf("UpdateUnit() error = %v", err)
	}

	units, _ := repo.ListUnits(ctx)
	if units[0].Owner != "Bianchi" {
		t.Errorf("owner = %s, want Bianchi", units[0].Owner)
	}
	if len(units[0].CategoryDistributions) != 1 || units[0].CategoryDistributions[0].Category != "Ascensore" {
		t.Errorf("distributions not replaced: %+v", units[0].CategoryDistributions)
	}

	if err := repo.UpdateUnit(ctx, core.Unit{ID: "ghost", Name: "x", Owner: "y"}); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("UpdateUnit(ghost) error = %v, want sql.ErrNoRows", err)
	}
}

func TestMillesimalTableRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	table := core.MillesimalTable{
		Name:        "Tabella A - Proprietà",
		Description: "Millesimi di proprietà generale",
		IsActive:    true,
		Order:       1,
		CategoryIDs: []string{"cat-manutenzione", "Pulizie Scale"},
		UnitValues: []core.UnitMillesimalValue{
			{UnitID: "u1", Value: 600},
			{UnitID: "u2", Value: 400},
			{UnitID: "u1", Value: 55, Label: "Quota Box"},
		},
	}

	id, err := repo.CreateTable(ctx, table)
	if err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	tables, err := repo.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("ListTables() returned %d, want 1", len(tables))
	}
	got := tables[0]
	if got.ID != id || !got.IsActive {
		t.Errorf("table = %+v", got)
	}
	if len(got.CategoryIDs) != 2 {
		t.Errorf("category bindings = %d, want 2", len(got.CategoryIDs))
	}
	if len(got.UnitValues) != 3 {
		t.Errorf("unit values = %d, want 3 (duplicate unit rows must survive)", len(got.UnitValues))
	}

	if err := repo.DeleteTable(ctx, id); err != nil {
		t.Fatalf("DeleteTable() error = %v", err)
	}
	tables, _ = repo.ListTables(ctx)
	if len(tables) != 0 {
		t.Errorf("table rows not cascaded away, %d left", len(tables))
	}
}

func TestTransactionYearFiltering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, tx := range []core.Transaction{
		{Date: core.NewDate(2023, 12, 31), Amount: core.Money{Cents: 1000}, Type: core.Expense, Category: "Manutenzione"},
		{Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 2000}, Type: core.Expense, Category: "Manutenzione"},
		{Date: core.NewDate(2024, 7, 15), Amount: core.Money{Cents: 3000}, Type: core.Income, Unit: "Int. 1", PayerType: core.PayerOwner},
	} {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	txs, err := repo.ListTransactionsByYear(ctx, 2024)
	if err != nil {
		t.Fatalf("ListTransactionsByYear() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("year 2024 has %d transactions, want 2", len(txs))
	}
	if txs[0].Date.ISO() != "2024-01-01" {
		t.Errorf("transactions not ordered by date: first is %s", txs[0].Date.ISO())
	}

	years, err := repo.ListTransactionYears(ctx)
	if err != nil {
		t.Fatalf("ListTransactionYears() error = %v", err)
	}
	if len(years) != 2 || years[0] != 2024 || years[1] != 2023 {
		t.Errorf("years = %v, want [2024 2023]", years)
	}
}

func TestTransactionSplitsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 10000},
		Type: core.Expense, Category: "Manutenzione straordinaria",
		Splits: []core.TableSplit{
			{TableID: "t1", Percentage: 70},
			{TableID: "t2", Percentage: 30},
		},
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	got, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if len(got.Splits) != 2 {
		t.Fatalf("splits = %d, want 2", len(got.Splits))
	}

	got.Splits = []core.TableSplit{{TableID: "t3", Percentage: 100}}
	if err := repo.UpdateTransaction(ctx, *got); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	got, _ = repo.GetTransaction(ctx, id)
	if len(got.Splits) != 1 || got.Splits[0].TableID != "t3" {
		t.Errorf("splits not replaced on update: %+v", got.Splits)
	}

	if err := repo.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second delete error = %v, want sql.ErrNoRows", err)
	}
}

func TestWaterReadingsByYear(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	meterID, err := repo.CreateWaterMeter(ctx, core.WaterMeter{UnitID: "u1", Baseline: 120.5})
	if err != nil {
		t.Fatalf("CreateWaterMeter() error = %v", err)
	}

	_, err = repo.CreateWaterReading(ctx, core.WaterReading{
		MeterID: meterID, Date: core.NewDate(2024, 6, 30), Value: 145.2,
		ConsumptionAmount: core.Money{Cents: 8000},
		FixedAmount:       core.Money{Cents: 1200},
	})
	if err != nil {
		t.Fatalf("CreateWaterReading() error = %v", err)
	}
	if _, err := repo.CreateWaterReading(ctx, core.WaterReading{
		MeterID: meterID, Date: core.NewDate(2023, 6, 30), Value: 120.5,
	}); err != nil {
		t.Fatalf("CreateWaterReading() error = %v", err)
	}

	readings, err := repo.ListWaterReadingsByYear(ctx, 2024)
	if err != nil {
		t.Fatalf("ListWaterReadingsByYear() error = %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("year 2024 has %d readings, want 1", len(readings))
	}
	if readings[0].Value != 145.2 || readings[0].ConsumptionAmount.Cents != 8000 {
		t.Errorf("reading = %+v", readings[0])
	}

	meters, err := repo.ListWaterMeters(ctx)
	if err != nil {
		t.Fatalf("ListWaterMeters() error = %v", err)
	}
	if len(meters) != 1 || meters[0].Baseline != 120.5 {
		t.Errorf("meters = %+v", meters)
	}
}

func TestSnapshotLatestWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.SaveSnapshot(ctx, 2024, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if _, err := repo.SaveSnapshot(ctx, 2024, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	snap, err := repo.LatestSnapshot(ctx, 2024)
	if err != nil {
		t.Fatalf("LatestSnapshot() error = %v", err)
	}
	if string(snap.Payload) != `{"v":2}` {
		t.Errorf("latest payload = %s, want second snapshot", snap.Payload)
	}
	if snap.FiscalYear != 2024 {
		t.Errorf("fiscal year = %d, want 2024", snap.FiscalYear)
	}

	if _, err := repo.LatestSnapshot(ctx, 1999); err == nil {
		t.Errorf("LatestSnapshot for empty year must fail")
	}
}

func TestCategoryCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateCategory(ctx, core.Category{Name: "Acqua", Color: "#0099ff"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	if err := repo.UpdateCategory(ctx, core.Category{ID: id, Name: "Acqua", IsExcluded: true}); err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}

	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != 1 || !cats[0].IsExcluded {
		t.Errorf("categories = %+v", cats)
	}

	if err := repo.DeleteCategory(ctx, id); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if err := repo.DeleteCategory(ctx, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second delete error = %v, want sql.ErrNoRows", err)
	}
}
