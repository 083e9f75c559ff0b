package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Expense TransactionType = "EXPENSE"
	Income  TransactionType = "INCOME"

	PayerOwner  PayerType = "PROPRIETARIO"
	PayerTenant PayerType = "INQUILINO"
	PayerBoth   PayerType = "ENTRAMBI"

	// CondominiumUnit marks a transaction charged to the whole building
	// rather than a single unit.
	CondominiumUnit = "CONDOMINIO"

	// GeneralMeterUnit identifies the bulk water meter of the building.
	GeneralMeterUnit = "GENERAL"

	// WaterCategoryName is the normalized category name of water-utility
	// invoices ("fatturato AQP").
	WaterCategoryName = "acqua"

	// DirectChargeLabel tags splits produced by the direct-charge path
	// instead of a millesimal table.
	DirectChargeLabel = "ADDEBITO DIRETTO"
)

type (
	TransactionType string

	PayerType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Category classifies transactions. Excluded categories never take part
	// in the apportionment.
	Category struct {
		ID                       string
		Name                     string
		Color                    string
		IsExcluded               bool
		IsIncludedInMonthlyQuota bool
		IsAdjustmentCategory     bool
	}

	// UnitMillesimalValue is one weighted row of a millesimal table. The same
	// unit may appear in several rows (e.g. "Quota Box").
	UnitMillesimalValue struct {
		UnitID     string
		Value      float64
		IsExcluded bool
		Label      string
	}

	// MillesimalTable apportions expenses across units by weight. CategoryIDs
	// entries are either category ids or raw category names left over from
	// free-text imports.
	MillesimalTable struct {
		ID          string
		Name        string
		Description string
		CategoryIDs []string
		UnitValues  []UnitMillesimalValue
		IsActive    bool
		Order       int
	}

	// CategoryDistribution overrides, per category, the fraction of a unit's
	// apportioned cost charged to the tenant. Category holds an id or a name.
	CategoryDistribution struct {
		Category         string
		TenantPercentage float64
	}

	Unit struct {
		ID                    string
		Name                  string
		Owner                 string
		Tenant                string
		Floor                 string
		Staircase             string
		LeaseStartDate        Date
		MonthlyFee            Money
		OwnerPreviousBalance  Money
		TenantPreviousBalance Money
		CategoryDistributions []CategoryDistribution
	}

	// TableSplit routes a fraction (0-100) of a transaction through a table.
	TableSplit struct {
		TableID    string
		Percentage float64
	}

	// Transaction is a recorded expense or income. Unit, when set and not
	// CONDOMINIO, is a direct-charge target matched by id or name. Splits,
	// when present, override automatic category-to-table matching.
	Transaction struct {
		ID          string
		Date        Date
		Amount      Money
		Type        TransactionType
		Category    string
		Description string
		Unit        string
		PayerType   PayerType
		Splits      []TableSplit
	}

	// WaterMeter belongs to a unit, or to the building when UnitID is GENERAL.
	WaterMeter struct {
		ID       string
		UnitID   string
		Baseline float64
	}

	WaterReading struct {
		ID                string
		MeterID           string
		Date              Date
		Value             float64
		ConsumptionAmount Money
		DischargeAmount   Money
		FixedAmount       Money
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyName          = errors.New("empty name")
	ErrSplitPercentageSum = errors.New("split percentages must sum to 100")
)

// SplitSumTolerance is the accepted deviation from 100 for the sum of manual
// split percentages. The engine itself never checks this; callers do.
const SplitSumTolerance = 0.1

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty returns true for unset optional dates such as lease starts.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// ISO renders the date in yyyy-mm-dd form.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseISODate parses a yyyy-mm-dd string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (tt TransactionType) Validate() error {
	switch tt {
	case Expense, Income:
		return nil
	}
	return ErrInvalidType
}

// Validate checks a transaction at the ingestion boundary. The distribution
// engine never validates: it computes a best-effort result for whatever it is
// given. In particular the split-percentage sum is checked here, before save,
// not at computation time.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if len(t.Splits) > 0 {
		sum := 0.0
		for _, s := range t.Splits {
			sum += s.Percentage
		}
		if sum < 100-SplitSumTolerance || sum > 100+SplitSumTolerance {
			return ErrSplitPercentageSum
		}
	}
	return nil
}

func (u Unit) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(u.Owner) == "" {
		return errors.New("empty owner")
	}
	for _, cd := range u.CategoryDistributions {
		if cd.TenantPercentage < 0 || cd.TenantPercentage > 100 {
			return errors.New("tenant percentage out of range")
		}
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (mt MillesimalTable) Validate() error {
	if strings.TrimSpace(mt.Name) == "" {
		return ErrEmptyName
	}
	for _, uv := range mt.UnitValues {
		if uv.Value < 0 {
			return errors.New("negative millesimal value")
		}
	}
	return nil
}

func (r WaterReading) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.MeterID) == "" {
		return errors.New("empty meter id")
	}
	if r.Value < 0 {
		return errors.New("negative meter value")
	}
	return nil
}
