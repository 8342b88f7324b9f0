package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestHistoryImages(t *testing.T) {
	t.Run("decodes_both_images", func(t *testing.T) {
		entry := &History{
			BeforeImage: `{"status":"A","total_value":"100.00"}`,
			AfterImage:  `{"status":"C","total_value":"100.00"}`,
		}

		before := entry.BeforeData()
		if before == nil || before["status"] != "A" {
			t.Errorf("unexpected before data: %v", before)
		}
		after := entry.AfterData()
		if after == nil || after["status"] != "C" {
			t.Errorf("unexpected after data: %v", after)
		}
	})

	t.Run("absent_image_is_nil", func(t *testing.T) {
		entry := &History{AfterImage: `{"status":"A"}`}
		if entry.BeforeData() != nil {
			t.Error("expected nil before data for creation entry")
		}
	})

	t.Run("malformed_image_is_nil", func(t *testing.T) {
		entry := &History{BeforeImage: `{not json`}
		if entry.BeforeData() != nil {
			t.Error("expected nil for malformed image")
		}
	})
}

func TestSnapshotFieldSets(t *testing.T) {
	// the serialized field set per entity is part of the audit contract
	t.Run("portfolio", func(t *testing.T) {
		p := &Portfolio{
			PortID:      "PORT0001",
			AccountNo:   "1234567890",
			ClientName:  "John Smith",
			ClientType:  ClientTypeIndividual,
			Status:      PortfolioStatusActive,
			TotalValue:  decimal.RequireFromString("53127.50"),
			CashBalance: decimal.RequireFromString("252.00"),
			LastUser:    "ADMIN",
		}
		snap := p.Snapshot()
		for _, key := range []string{"port_id", "account_no", "client_name", "client_type", "status", "total_value", "cash_balance", "last_user"} {
			if _, ok := snap[key]; !ok {
				t.Errorf("portfolio snapshot missing %q", key)
			}
		}
		if snap["total_value"] != "53127.50" {
			t.Errorf("expected fixed 2-digit total_value, got %v", snap["total_value"])
		}
	})

	t.Run("position", func(t *testing.T) {
		p := &Position{
			PortfolioID:  "PORT0001",
			Date:         "20260831",
			InvestmentID: "AAPL",
			Quantity:     decimal.RequireFromString("150"),
			CostBasis:    decimal.RequireFromString("25500"),
			MarketValue:  decimal.RequireFromString("27787.5"),
			Currency:     "USD",
			Status:       PositionStatusActive,
		}
		snap := p.Snapshot()
		if snap["quantity"] != "150.0000" {
			t.Errorf("expected fixed 4-digit quantity, got %v", snap["quantity"])
		}
		if snap["market_value"] != "27787.50" {
			t.Errorf("expected fixed 2-digit market_value, got %v", snap["market_value"])
		}
	})

	t.Run("transaction", func(t *testing.T) {
		txn := &Transaction{
			Date:         "20260831",
			Time:         "143000",
			PortfolioID:  "PORT0001",
			SequenceNo:   "000001",
			InvestmentID: "AAPL",
			Type:         TransactionTypeSell,
			Quantity:     decimal.RequireFromString("50"),
			Price:        decimal.RequireFromString("190"),
			Amount:       decimal.RequireFromString("9500"),
			Currency:     "USD",
			Status:       TransactionStatusPending,
		}
		snap := txn.Snapshot()
		if snap["type"] != "SL" || snap["status"] != "P" {
			t.Errorf("unexpected codes in snapshot: %v", snap)
		}
		if snap["amount"] != "9500.00" {
			t.Errorf("expected fixed 2-digit amount, got %v", snap["amount"])
		}
	})
}

func TestDateTimeKeys(t *testing.T) {
	at := time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC)
	if got := DateKey(at); got != "20260831" {
		t.Errorf("expected 20260831, got %s", got)
	}
	if got := TimeKey(at); got != "143005" {
		t.Errorf("expected 143005, got %s", got)
	}
}
