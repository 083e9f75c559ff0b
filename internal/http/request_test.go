package http

import (
	"testing"

	"riparto/internal/core"
)

func TestEuroString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{123456, "1234.56"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		if got := euroString(core.Money{Cents: tt.cents}); got != tt.want {
			t.Errorf("euroString(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestTransactionRequestToCore(t *testing.T) {
	req := transactionRequest{
		Date:      "2024-03-15",
		Amount:    "123,45",
		Type:      "expense",
		Category:  "Manutenzione",
		PayerType: "proprietario",
		Splits: []tableSplitPayload{
			{TableID: "t1", Percentage: 70},
			{TableID: "t2", Percentage: 30},
		},
	}

	tx, err := req.toCore("tx1")
	if err != nil {
		t.Fatalf("toCore() error = %v", err)
	}
	if tx.ID != "tx1" {
		t.Errorf("ID = %q", tx.ID)
	}
	if tx.Amount.Cents != 12345 {
		t.Errorf("Amount = %d cents, want 12345", tx.Amount.Cents)
	}
	if tx.Type != core.Expense {
		t.Errorf("Type = %q, want EXPENSE", tx.Type)
	}
	if tx.PayerType != core.PayerOwner {
		t.Errorf("PayerType = %q, want PROPRIETARIO", tx.PayerType)
	}
	if len(tx.Splits) != 2 {
		t.Errorf("Splits = %d, want 2", len(tx.Splits))
	}
}

func TestTransactionRequestRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		req  transactionRequest
	}{
		{"bad date", transactionRequest{Date: "15/03/2024", Amount: "10", Type: "EXPENSE", Category: "x"}},
		{"bad amount", transactionRequest{Date: "2024-03-15", Amount: "abc", Type: "EXPENSE", Category: "x"}},
		{"bad type", transactionRequest{Date: "2024-03-15", Amount: "10", Type: "TRANSFER", Category: "x"}},
		{"empty category", transactionRequest{Date: "2024-03-15", Amount: "10", Type: "EXPENSE"}},
		{"splits not 100", transactionRequest{
			Date: "2024-03-15", Amount: "10", Type: "EXPENSE", Category: "x",
			Splits: []tableSplitPayload{{TableID: "t1", Percentage: 70}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.req.toCore(""); err == nil {
				t.Errorf("toCore() accepted invalid input")
			}
		})
	}
}

func TestUnitRequestToCore(t *testing.T) {
	req := unitRequest{
		Name:                  "Int. 3",
		Owner:                 "Verdi",
		Tenant:                "Neri",
		LeaseStartDate:        "2024-06-01",
		MonthlyFee:            "50.00",
		OwnerPreviousBalance:  "-12,50",
		TenantPreviousBalance: "",
		CategoryDistributions: []categoryDistributionPayload{
			{Category: "Pulizie", TenantPercentage: 100},
		},
	}

	u, err := req.toCore("u3")
	if err != nil {
		t.Fatalf("toCore() error = %v", err)
	}
	if u.MonthlyFee.Cents != 5000 {
		t.Errorf("MonthlyFee = %d, want 5000", u.MonthlyFee.Cents)
	}
	if u.OwnerPreviousBalance.Cents != -1250 {
		t.Errorf("OwnerPreviousBalance = %d, want -1250", u.OwnerPreviousBalance.Cents)
	}
	if u.TenantPreviousBalance.Cents != 0 {
		t.Errorf("TenantPreviousBalance = %d, want 0", u.TenantPreviousBalance.Cents)
	}
	if u.LeaseStartDate.ISO() != "2024-06-01" {
		t.Errorf("LeaseStartDate = %s", u.LeaseStartDate.ISO())
	}
}

func TestUnitRequestRequiresOwner(t *testing.T) {
	if _, err := (unitRequest{Name: "Int. 1"}).toCore(""); err == nil {
		t.Error("toCore() must reject a unit without owner")
	}
}

func TestWaterReadingRequestToCore(t *testing.T) {
	req := waterReadingRequest{
		MeterID:           "m1",
		Date:              "2024-09-30",
		Value:             154.2,
		ConsumptionAmount: "88.40",
		DischargeAmount:   "31,10",
		FixedAmount:       "12.00",
	}

	wr, err := req.toCore("")
	if err != nil {
		t.Fatalf("toCore() error = %v", err)
	}
	if wr.ConsumptionAmount.Cents != 8840 || wr.DischargeAmount.Cents != 3110 || wr.FixedAmount.Cents != 1200 {
		t.Errorf("amounts = %d/%d/%d", wr.ConsumptionAmount.Cents, wr.DischargeAmount.Cents, wr.FixedAmount.Cents)
	}

	req.Value = -1
	if _, err := req.toCore(""); err == nil {
		t.Error("toCore() must reject negative meter values")
	}
}
