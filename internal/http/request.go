package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"riparto/internal/core"
)

// maxBodySize bounds request bodies; the API only moves small records.
const maxBodySize = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid JSON body: trailing data")
	}
	io.Copy(io.Discard, r.Body)
	return nil
}

// yearParam reads the fiscal year from the query string, defaulting to 0
// (meaning "not provided") when absent.
func yearParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", raw)
	}
	return year, nil
}

func euroString(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

type tableSplitPayload struct {
	TableID    string  `json:"table_id"`
	Percentage float64 `json:"percentage"`
}

// transactionRequest is the write shape of a ledger entry. Amounts travel as
// decimal strings ("123.45" or "123,45") and dates as yyyy-mm-dd.
type transactionRequest struct {
	Date        string              `json:"date"`
	Amount      string              `json:"amount"`
	Type        string              `json:"type"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Unit        string              `json:"unit"`
	PayerType   string              `json:"payer_type"`
	Splits      []tableSplitPayload `json:"splits,omitempty"`
}

func (req transactionRequest) toCore(id string) (core.Transaction, error) {
	date, err := core.ParseISODate(req.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("invalid date %q", req.Date)
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("invalid amount %q", req.Amount)
	}
	tx := core.Transaction{
		ID:          id,
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Type:        core.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Unit:        strings.TrimSpace(req.Unit),
		PayerType:   core.PayerType(strings.ToUpper(strings.TrimSpace(req.PayerType))),
	}
	for _, s := range req.Splits {
		tx.Splits = append(tx.Splits, core.TableSplit{TableID: s.TableID, Percentage: s.Percentage})
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

type transactionView struct {
	ID          string              `json:"id"`
	Date        string              `json:"date"`
	Amount      string              `json:"amount"`
	Type        string              `json:"type"`
	Category    string              `json:"category"`
	Description string              `json:"description,omitempty"`
	Unit        string              `json:"unit,omitempty"`
	PayerType   string              `json:"payer_type,omitempty"`
	Splits      []tableSplitPayload `json:"splits,omitempty"`
}

func newTransactionView(t core.Transaction) transactionView {
	v := transactionView{
		ID:          t.ID,
		Date:        t.Date.ISO(),
		Amount:      euroString(t.Amount),
		Type:        string(t.Type),
		Category:    t.Category,
		Description: t.Description,
		Unit:        t.Unit,
		PayerType:   string(t.PayerType),
	}
	for _, s := range t.Splits {
		v.Splits = append(v.Splits, tableSplitPayload{TableID: s.TableID, Percentage: s.Percentage})
	}
	return v
}

type categoryDistributionPayload struct {
	Category         string  `json:"category"`
	TenantPercentage float64 `json:"tenant_percentage"`
}

type unitRequest struct {
	Name                  string                        `json:"name"`
	Owner                 string                        `json:"owner"`
	Tenant                string                        `json:"tenant"`
	Floor                 string                        `json:"floor"`
	Staircase             string                        `json:"staircase"`
	LeaseStartDate        string                        `json:"lease_start_date"`
	MonthlyFee            string                        `json:"monthly_fee"`
	OwnerPreviousBalance  string                        `json:"owner_previous_balance"`
	TenantPreviousBalance string                        `json:"tenant_previous_balance"`
	CategoryDistributions []categoryDistributionPayload `json:"category_distributions,omitempty"`
}

// parseOptionalAmount accepts "", a plain decimal, or a negative decimal.
// Previous balances can legitimately be negative (credit carried over).
func parseOptionalAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Money{}, nil
	}
	negative := strings.HasPrefix(s, "-")
	cents, err := core.ParseDecimalToCents(strings.TrimPrefix(s, "-"))
	if err != nil {
		return core.Money{}, err
	}
	if negative {
		cents = -cents
	}
	return core.Money{Cents: cents}, nil
}

func (req unitRequest) toCore(id string) (core.Unit, error) {
	u := core.Unit{
		ID:        id,
		Name:      strings.TrimSpace(req.Name),
		Owner:     strings.TrimSpace(req.Owner),
		Tenant:    strings.TrimSpace(req.Tenant),
		Floor:     strings.TrimSpace(req.Floor),
		Staircase: strings.TrimSpace(req.Staircase),
	}
	if strings.TrimSpace(req.LeaseStartDate) != "" {
		date, err := core.ParseISODate(req.LeaseStartDate)
		if err != nil {
			return core.Unit{}, fmt.Errorf("invalid lease_start_date %q", req.LeaseStartDate)
		}
		u.LeaseStartDate = date
	}
	var err error
	if u.MonthlyFee, err = parseOptionalAmount(req.MonthlyFee); err != nil {
		return core.Unit{}, fmt.Errorf("invalid monthly_fee %q", req.MonthlyFee)
	}
	if u.OwnerPreviousBalance, err = parseOptionalAmount(req.OwnerPreviousBalance); err != nil {
		return core.Unit{}, fmt.Errorf("invalid owner_previous_balance %q", req.OwnerPreviousBalance)
	}
	if u.TenantPreviousBalance, err = parseOptionalAmount(req.TenantPreviousBalance); err != nil {
		return core.Unit{}, fmt.Errorf("invalid tenant_previous_balance %q", req.TenantPreviousBalance)
	}
	for _, cd := range req.CategoryDistributions {
		u.CategoryDistributions = append(u.CategoryDistributions, core.CategoryDistribution{
			Category:         cd.Category,
			TenantPercentage: cd.TenantPercentage,
		})
	}
	if err := u.Validate(); err != nil {
		return core.Unit{}, err
	}
	return u, nil
}

type unitView struct {
	ID                    string                        `json:"id"`
	Name                  string                        `json:"name"`
	Owner                 string                        `json:"owner"`
	Tenant                string                        `json:"tenant,omitempty"`
	Floor                 string                        `json:"floor,omitempty"`
	Staircase             string                        `json:"staircase,omitempty"`
	LeaseStartDate        string                        `json:"lease_start_date,omitempty"`
	MonthlyFee            string                        `json:"monthly_fee"`
	OwnerPreviousBalance  string                        `json:"owner_previous_balance"`
	TenantPreviousBalance string                        `json:"tenant_previous_balance"`
	CategoryDistributions []categoryDistributionPayload `json:"category_distributions,omitempty"`
}

func newUnitView(u core.Unit) unitView {
	v := unitView{
		ID:                    u.ID,
		Name:                  u.Name,
		Owner:                 u.Owner,
		Tenant:                u.Tenant,
		Floor:                 u.Floor,
		Staircase:             u.Staircase,
		MonthlyFee:            euroString(u.MonthlyFee),
		OwnerPreviousBalance:  euroString(u.OwnerPreviousBalance),
		TenantPreviousBalance: euroString(u.TenantPreviousBalance),
	}
	if !u.LeaseStartDate.IsEmpty() {
		v.LeaseStartDate = u.LeaseStartDate.ISO()
	}
	for _, cd := range u.CategoryDistributions {
		v.CategoryDistributions = append(v.CategoryDistributions, categoryDistributionPayload{
			Category:         cd.Category,
			TenantPercentage: cd.TenantPercentage,
		})
	}
	return v
}

type categoryRequest struct {
	Name                     string `json:"name"`
	Color                    string `json:"color"`
	IsExcluded               bool   `json:"is_excluded"`
	IsIncludedInMonthlyQuota bool   `json:"is_included_in_monthly_quota"`
	IsAdjustmentCategory     bool   `json:"is_adjustment_category"`
}

func (req categoryRequest) toCore(id string) (core.Category, error) {
	c := core.Category{
		ID:                       id,
		Name:                     strings.TrimSpace(req.Name),
		Color:                    strings.TrimSpace(req.Color),
		IsExcluded:               req.IsExcluded,
		IsIncludedInMonthlyQuota: req.IsIncludedInMonthlyQuota,
		IsAdjustmentCategory:     req.IsAdjustmentCategory,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

type categoryView struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Color                    string `json:"color,omitempty"`
	IsExcluded               bool   `json:"is_excluded"`
	IsIncludedInMonthlyQuota bool   `json:"is_included_in_monthly_quota"`
	IsAdjustmentCategory     bool   `json:"is_adjustment_category"`
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{
		ID:                       c.ID,
		Name:                     c.Name,
		Color:                    c.Color,
		IsExcluded:               c.IsExcluded,
		IsIncludedInMonthlyQuota: c.IsIncludedInMonthlyQuota,
		IsAdjustmentCategory:     c.IsAdjustmentCategory,
	}
}

type millesimalValuePayload struct {
	UnitID     string  `json:"unit_id"`
	Value      float64 `json:"value"`
	IsExcluded bool    `json:"is_excluded,omitempty"`
	Label      string  `json:"label,omitempty"`
}

type tableRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	CategoryIDs []string                 `json:"category_ids"`
	UnitValues  []millesimalValuePayload `json:"unit_values"`
	IsActive    bool                     `json:"is_active"`
	Order       int                      `json:"order"`
}

func (req tableRequest) toCore(id string) (core.MillesimalTable, error) {
	t := core.MillesimalTable{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CategoryIDs: req.CategoryIDs,
		IsActive:    req.IsActive,
		Order:       req.Order,
	}
	for _, uv := range req.UnitValues {
		t.UnitValues = append(t.UnitValues, core.UnitMillesimalValue{
			UnitID:     uv.UnitID,
			Value:      uv.Value,
			IsExcluded: uv.IsExcluded,
			Label:      uv.Label,
		})
	}
	if err := t.Validate(); err != nil {
		return core.MillesimalTable{}, err
	}
	return t, nil
}

type tableView struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	CategoryIDs []string                 `json:"category_ids"`
	UnitValues  []millesimalValuePayload `json:"unit_values"`
	IsActive    bool                     `json:"is_active"`
	Order       int                      `json:"order"`
}

func newTableView(t core.MillesimalTable) tableView {
	v := tableView{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CategoryIDs: t.CategoryIDs,
		IsActive:    t.IsActive,
		Order:       t.Order,
	}
	for _, uv := range t.UnitValues {
		v.UnitValues = append(v.UnitValues, millesimalValuePayload{
			UnitID:     uv.UnitID,
			Value:      uv.Value,
			IsExcluded: uv.IsExcluded,
			Label:      uv.Label,
		})
	}
	return v
}

type waterMeterRequest struct {
	UnitID   string  `json:"unit_id"`
	Baseline float64 `json:"baseline"`
}

func (req waterMeterRequest) toCore(id string) (core.WaterMeter, error) {
	unitID := strings.TrimSpace(req.UnitID)
	if unitID == "" {
		return core.WaterMeter{}, fmt.Errorf("empty unit_id")
	}
	if req.Baseline < 0 {
		return core.WaterMeter{}, fmt.Errorf("negative baseline")
	}
	return core.WaterMeter{ID: id, UnitID: unitID, Baseline: req.Baseline}, nil
}

type waterMeterView struct {
	ID       string  `json:"id"`
	UnitID   string  `json:"unit_id"`
	Baseline float64 `json:"baseline"`
}

type waterReadingRequest struct {
	MeterID           string  `json:"meter_id"`
	Date              string  `json:"date"`
	Value             float64 `json:"value"`
	ConsumptionAmount string  `json:"consumption_amount"`
	DischargeAmount   string  `json:"discharge_amount"`
	FixedAmount       string  `json:"fixed_amount"`
}

func (req waterReadingRequest) toCore(id string) (core.WaterReading, error) {
	date, err := core.ParseISODate(req.Date)
	if err != nil {
		return core.WaterReading{}, fmt.Errorf("invalid date %q", req.Date)
	}
	wr := core.WaterReading{
		ID:      id,
		MeterID: strings.TrimSpace(req.MeterID),
		Date:    date,
		Value:   req.Value,
	}
	if wr.ConsumptionAmount, err = parseOptionalAmount(req.ConsumptionAmount); err != nil {
		return core.WaterReading{}, fmt.Errorf("invalid consumption_amount %q", req.ConsumptionAmount)
	}
	if wr.DischargeAmount, err = parseOptionalAmount(req.DischargeAmount); err != nil {
		return core.WaterReading{}, fmt.Errorf("invalid discharge_amount %q", req.DischargeAmount)
	}
	if wr.FixedAmount, err = parseOptionalAmount(req.FixedAmount); err != nil {
		return core.WaterReading{}, fmt.Errorf("invalid fixed_amount %q", req.FixedAmount)
	}
	if err := wr.Validate(); err != nil {
		return core.WaterReading{}, err
	}
	return wr, nil
}

type waterReadingView struct {
	ID                string  `json:"id"`
	MeterID           string  `json:"meter_id"`
	Date              string  `json:"date"`
	Value             float64 `json:"value"`
	ConsumptionAmount string  `json:"consumption_amount"`
	DischargeAmount   string  `json:"discharge_amount"`
	FixedAmount       string  `json:"fixed_amount"`
}

func newWaterReadingView(wr core.WaterReading) waterReadingView {
	return waterReadingView{
		ID:                wr.ID,
		MeterID:           wr.MeterID,
		Date:              wr.Date.ISO(),
		Value:             wr.Value,
		ConsumptionAmount: euroString(wr.ConsumptionAmount),
		DischargeAmount:   euroString(wr.DischargeAmount),
		FixedAmount:       euroString(wr.FixedAmount),
	}
}
