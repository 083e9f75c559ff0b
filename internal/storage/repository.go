// Package storage persists the condominium registry (units, categories,
// millesimal tables), the transaction ledger, water metering data and the
// computed distribution snapshots in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"riparto/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// yearPrefix matches the yyyy prefix of ISO dates stored as text.
func yearPrefix(year int) string {
	return fmt.Sprintf("%04d", year)
}

// -- Units --------------------------------------------------------------

func (r *SQLiteRepository) ListUnits(ctx context.Context) ([]core.Unit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, owner, tenant, floor, staircase, lease_start_date,
		       monthly_fee_cents, owner_previous_balance_cents, tenant_previous_balance_cents
		FROM units ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []core.Unit
	for rows.Next() {
		var u core.Unit
		var lease string
		if err := rows.Scan(&u.ID, &u.Name, &u.Owner, &u.Tenant, &u.Floor, &u.Staircase,
			&lease, &u.MonthlyFee.Cents, &u.OwnerPreviousBalance.Cents, &u.TenantPreviousBalance.Cents); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		if lease != "" {
			if d, err := core.ParseISODate(lease); err == nil {
				u.LeaseStartDate = d
			}
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}

	for i := range units {
		dists, err := r.listCategoryDistributions(ctx, units[i].ID)
		if err != nil {
			return nil, err
		}
		units[i].CategoryDistributions = dists
	}

	return units, nil
}

func (r *SQLiteRepository) listCategoryDistributions(ctx context.Context, unitID string) ([]core.CategoryDistribution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, tenant_percentage FROM unit_category_distributions WHERE unit_id = ? ORDER BY category`, unitID)
	if err != nil {
		return nil, fmt.Errorf("list category distributions: %w", err)
	}
	defer rows.Close()

	var dists []core.CategoryDistribution
	for rows.Next() {
		var cd core.CategoryDistribution
		if err := rows.Scan(&cd.Category, &cd.TenantPercentage); err != nil {
			return nil, fmt.Errorf("scan category distribution: %w", err)
		}
		dists = append(dists, cd)
	}
	return dists, rows.Err()
}

func (r *SQLiteRepository) CreateUnit(ctx context.Context, u core.Unit) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	lease := ""
	if !u.LeaseStartDate.IsEmpty() {
		lease = u.LeaseStartDate.ISO()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO units (id, name, owner, tenant, floor, staircase, lease_start_date,
		                   monthly_fee_cents, owner_previous_balance_cents, tenant_previous_balance_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Owner, u.Tenant, u.Floor, u.Staircase, lease,
		u.MonthlyFee.Cents, u.OwnerPreviousBalance.Cents, u.TenantPreviousBalance.Cents)
	if err != nil {
		return "", fmt.Errorf("insert unit: %w", err)
	}

	if err := insertCategoryDistributions(ctx, tx, u.ID, u.CategoryDistributions); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit unit: %w", err)
	}

	slog.InfoContext(ctx, "Unit saved", "unit_id", u.ID, "name", u.Name)
	return u.ID, nil
}

func (r *SQLiteRepository) UpdateUnit(ctx context.Context, u core.Unit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	lease := ""
	if !u.LeaseStartDate.IsEmpty() {
		lease = u.LeaseStartDate.ISO()
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE units SET name = ?, owner = ?, tenant = ?, floor = ?, staircase = ?,
		       lease_start_date = ?, monthly_fee_cents = ?,
		       owner_previous_balance_cents = ?, tenant_previous_balance_cents = ?,
		       updated_at = datetime('now')
		WHERE id = ?`,
		u.Name, u.Owner, u.Tenant, u.Floor, u.Staircase, lease,
		u.MonthlyFee.Cents, u.OwnerPreviousBalance.Cents, u.TenantPreviousBalance.Cents, u.ID)
	if err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM unit_category_distributions WHERE unit_id = ?`, u.ID); err != nil {
		return fmt.Errorf("clear category distributions: %w", err)
	}
	if err := insertCategoryDistributions(ctx, tx, u.ID, u.CategoryDistributions); err != nil {
		return err
	}

	return tx.Commit()
}

func insertCategoryDistributions(ctx context.Context, tx *sql.Tx, unitID string, dists []core.CategoryDistribution) error {
	for _, cd := range dists {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO unit_category_distributions (unit_id, category, tenant_percentage) VALUES (?, ?, ?)`,
			unitID, cd.Category, cd.TenantPercentage)
		if err != nil {
			return fmt.Errorf("insert category distribution: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteUnit(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM units WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// -- Categories ---------------------------------------------------------

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, is_excluded, is_included_in_monthly_quota, is_adjustment_category
		FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.IsExcluded,
			&c.IsIncludedInMonthlyQuota, &c.IsAdjustmentCategory); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, color, is_excluded, is_included_in_monthly_quota, is_adjustment_category)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Color, c.IsExcluded, c.IsIncludedInMonthlyQuota, c.IsAdjustmentCategory)
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return c.ID, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, color = ?, is_excluded = ?,
		       is_included_in_monthly_quota = ?, is_adjustment_category = ?
		WHERE id = ?`,
		c.Name, c.Color, c.IsExcluded, c.IsIncludedInMonthlyQuota, c.IsAdjustmentCategory, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// -- Millesimal tables --------------------------------------------------

func (r *SQLiteRepository) ListTables(ctx context.Context) ([]core.MillesimalTable, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, is_active, sort_order
		FROM millesimal_tables ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list millesimal tables: %w", err)
	}
	defer rows.Close()

	var tables []core.MillesimalTable
	for rows.Next() {
		var t core.MillesimalTable
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.IsActive, &t.Order); err != nil {
			return nil, fmt.Errorf("scan millesimal table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate millesimal tables: %w", err)
	}

	for i := range tables {
		if err := r.loadTableDetails(ctx, &tables[i]); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func (r *SQLiteRepository) loadTableDetails(ctx context.Context, t *core.MillesimalTable) error {
	catRows, err := r.db.QueryContext(ctx,
		`SELECT category FROM millesimal_table_categories WHERE table_id = ? ORDER BY category`, t.ID)
	if err != nil {
		return fmt.Errorf("list table categories: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var c string
		if err := catRows.Scan(&c); err != nil {
			return fmt.Errorf("scan table category: %w", err)
		}
		t.CategoryIDs = append(t.CategoryIDs, c)
	}
	if err := catRows.Err(); err != nil {
		return err
	}

	valRows, err := r.db.QueryContext(ctx,
		`SELECT unit_id, value, is_excluded, label FROM millesimal_values WHERE table_id = ? ORDER BY unit_id, label`, t.ID)
	if err != nil {
		return fmt.Errorf("list millesimal values: %w", err)
	}
	defer valRows.Close()
	for valRows.Next() {
		var v core.UnitMillesimalValue
		if err := valRows.Scan(&v.UnitID, &v.Value, &v.IsExcluded, &v.Label); err != nil {
			return fmt.Errorf("scan millesimal value: %w", err)
		}
		t.UnitValues = append(t.UnitValues, v)
	}
	return valRows.Err()
}

func (r *SQLiteRepository) CreateTable(ctx context.Context, t core.MillesimalTable) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO millesimal_tables (id, name, description, is_active, sort_order)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.IsActive, t.Order)
	if err != nil {
		return "", fmt.Errorf("insert millesimal table: %w", err)
	}

	if err := insertTableDetails(ctx, tx, t); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit millesimal table: %w", err)
	}

	slog.InfoContext(ctx, "Millesimal table saved", "table_id", t.ID, "name", t.Name, "rows", len(t.UnitValues))
	return t.ID, nil
}

func (r *SQLiteRepository) UpdateTable(ctx context.Context, t core.MillesimalTable) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE millesimal_tables SET name = ?, description = ?, is_active = ?, sort_order = ?
		WHERE id = ?`,
		t.Name, t.Description, t.IsActive, t.Order, t.ID)
	if err != nil {
		return fmt.Errorf("update millesimal table: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM millesimal_table_categories WHERE table_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clear table categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM millesimal_values WHERE table_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clear millesimal values: %w", err)
	}
	if err := insertTableDetails(ctx, tx, t); err != nil {
		return err
	}

	return tx.Commit()
}

func insertTableDetails(ctx context.Context, tx *sql.Tx, t core.MillesimalTable) error {
	for _, c := range t.CategoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO millesimal_table_categories (table_id, category) VALUES (?, ?)`, t.ID, c); err != nil {
			return fmt.Errorf("insert table category: %w", err)
		}
	}
	for _, v := range t.UnitValues {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO millesimal_values (table_id, unit_id, value, is_excluded, label) VALUES (?, ?, ?, ?, ?)`,
			t.ID, v.UnitID, v.Value, v.IsExcluded, v.Label); err != nil {
			return fmt.Errorf("insert millesimal value: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteTable(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM millesimal_tables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete millesimal table: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// -- Transactions -------------------------------------------------------

func (r *SQLiteRepository) ListTransactionsByYear(ctx context.Context, year int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, amount_cents, type, category, description, unit_ref, payer_type
		FROM transactions WHERE substr(date, 1, 4) = ? ORDER BY date, id`, yearPrefix(year))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date string
		if err := rows.Scan(&t.ID, &date, &t.Amount.Cents, &t.Type, &t.Category,
			&t.Description, &t.Unit, &t.PayerType); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if d, err := core.ParseISODate(date); err == nil {
			t.Date = d
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	for i := range txs {
		splits, err := r.listSplits(ctx, txs[i].ID)
		if err != nil {
			return nil, err
		}
		txs[i].Splits = splits
	}
	return txs, nil
}

func (r *SQLiteRepository) listSplits(ctx context.Context, txID string) ([]core.TableSplit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_id, percentage FROM transaction_splits WHERE transaction_id = ? ORDER BY table_id`, txID)
	if err != nil {
		return nil, fmt.Errorf("list transaction splits: %w", err)
	}
	defer rows.Close()

	var splits []core.TableSplit
	for rows.Next() {
		var s core.TableSplit
		if err := rows.Scan(&s.TableID, &s.Percentage); err != nil {
			return nil, fmt.Errorf("scan transaction split: %w", err)
		}
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	var t core.Transaction
	var date string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, date, amount_cents, type, category, description, unit_ref, payer_type
		FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &date, &t.Amount.Cents, &t.Type, &t.Category, &t.Description, &t.Unit, &t.PayerType)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if d, err := core.ParseISODate(date); err == nil {
		t.Date = d
	}
	splits, err := r.listSplits(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Splits = splits
	return &t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, date, amount_cents, type, category, description, unit_ref, payer_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date.ISO(), t.Amount.Cents, string(t.Type), t.Category, t.Description, t.Unit, string(t.PayerType))
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	if err := insertSplits(ctx, tx, t.ID, t.Splits); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", t.ID,
		"type", string(t.Type),
		"category", t.Category,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.ISO())
	return t.ID, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions SET date = ?, amount_cents = ?, type = ?, category = ?,
		       description = ?, unit_ref = ?, payer_type = ?
		WHERE id = ?`,
		t.Date.ISO(), t.Amount.Cents, string(t.Type), t.Category, t.Description, t.Unit, string(t.PayerType), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_splits WHERE transaction_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clear transaction splits: %w", err)
	}
	if err := insertSplits(ctx, tx, t.ID, t.Splits); err != nil {
		return err
	}

	return tx.Commit()
}

func insertSplits(ctx context.Context, tx *sql.Tx, txID string, splits []core.TableSplit) error {
	for _, s := range splits {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_splits (transaction_id, table_id, percentage) VALUES (?, ?, ?)`,
			txID, s.TableID, s.Percentage); err != nil {
			return fmt.Errorf("insert transaction split: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTransactionYears returns the distinct fiscal years present in the
// ledger, newest first.
func (r *SQLiteRepository) ListTransactionYears(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT CAST(substr(date, 1, 4) AS INTEGER) AS y FROM transactions ORDER BY y DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transaction years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// -- Water metering -----------------------------------------------------

func (r *SQLiteRepository) ListWaterMeters(ctx context.Context) ([]core.WaterMeter, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, unit_id, baseline FROM water_meters ORDER BY unit_id`)
	if err != nil {
		return nil, fmt.Errorf("list water meters: %w", err)
	}
	defer rows.Close()

	var meters []core.WaterMeter
	for rows.Next() {
		var m core.WaterMeter
		if err := rows.Scan(&m.ID, &m.UnitID, &m.Baseline); err != nil {
			return nil, fmt.Errorf("scan water meter: %w", err)
		}
		meters = append(meters, m)
	}
	return meters, rows.Err()
}

func (r *SQLiteRepository) CreateWaterMeter(ctx context.Context, m core.WaterMeter) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO water_meters (id, unit_id, baseline) VALUES (?, ?, ?)`, m.ID, m.UnitID, m.Baseline)
	if err != nil {
		return "", fmt.Errorf("insert water meter: %w", err)
	}
	return m.ID, nil
}

func (r *SQLiteRepository) DeleteWaterMeter(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM water_meters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete water meter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SQLiteRepository) ListWaterReadingsByYear(ctx context.Context, year int) ([]core.WaterReading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, meter_id, date, value, consumption_cents, discharge_cents, fixed_cents
		FROM water_readings WHERE substr(date, 1, 4) = ? ORDER BY date, id`, yearPrefix(year))
	if err != nil {
		return nil, fmt.Errorf("list water readings: %w", err)
	}
	defer rows.Close()

	var readings []core.WaterReading
	for rows.Next() {
		var wr core.WaterReading
		var date string
		if err := rows.Scan(&wr.ID, &wr.MeterID, &date, &wr.Value,
			&wr.ConsumptionAmount.Cents, &wr.DischargeAmount.Cents, &wr.FixedAmount.Cents); err != nil {
			return nil, fmt.Errorf("scan water reading: %w", err)
		}
		if d, err := core.ParseISODate(date); err == nil {
			wr.Date = d
		}
		readings = append(readings, wr)
	}
	return readings, rows.Err()
}

func (r *SQLiteRepository) CreateWaterReading(ctx context.Context, wr core.WaterReading) (string, error) {
	if wr.ID == "" {
		wr.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO water_readings (id, meter_id, date, value, consumption_cents, discharge_cents, fixed_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		wr.ID, wr.MeterID, wr.Date.ISO(), wr.Value,
		wr.ConsumptionAmount.Cents, wr.DischargeAmount.Cents, wr.FixedAmount.Cents)
	if err != nil {
		return "", fmt.Errorf("insert water reading: %w", err)
	}

	slog.InfoContext(ctx, "Water reading saved", "meter_id", wr.MeterID, "date", wr.Date.ISO(), "value", wr.Value)
	return wr.ID, nil
}

func (r *SQLiteRepository) DeleteWaterReading(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM water_readings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete water reading: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// -- Distribution snapshots ---------------------------------------------

// Snapshot is a persisted distribution result for one fiscal year.
type Snapshot struct {
	ID         string
	FiscalYear int
	Payload    []byte
	ComputedAt time.Time
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, year int, payload []byte) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO distribution_snapshots (id, fiscal_year, payload, computed_at)
		VALUES (?, ?, ?, ?)`,
		id, year, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Distribution snapshot saved", "snapshot_id", id, "fiscal_year", year)
	return id, nil
}

func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, year int) (*Snapshot, error) {
	var s Snapshot
	var payload, computedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, fiscal_year, payload, computed_at
		FROM distribution_snapshots WHERE fiscal_year = ?
		ORDER BY computed_at DESC, id DESC LIMIT 1`, year).
		Scan(&s.ID, &s.FiscalYear, &payload, &computedAt)
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	s.Payload = []byte(payload)
	if t, err := time.Parse(time.RFC3339, computedAt); err == nil {
		s.ComputedAt = t
	}
	return &s, nil
}
