package services

import (
	"testing"

	"gorm.io/gorm"

	apperrors "portledger/internal/errors"
	"portledger/internal/models"
	"portledger/internal/pagination"
	"portledger/internal/refid"
	"portledger/internal/testutil"
)

func newLedger(db *gorm.DB) LedgerServicer {
	audit := NewAuditService(db)
	return NewLedgerService(db, audit, NewReconciler(audit), NewValuator())
}

func historyCount(t *testing.T, db *gorm.DB, portfolioID string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.History{}).Where("portfolio_id = ?", portfolioID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count history: %v", err)
	}
	return count
}

func TestProcessTransaction(t *testing.T) {
	t.Run("sell_against_held_position", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolioWithKeys(t, db, "PORT0001", "1234567890")
		testutil.SetCashBalance(t, db, portfolio, testutil.Dec(t, "252.00"))
		testutil.CreateTestPosition(t, db, portfolio.PortID, "20260831", "AAPL",
			testutil.Dec(t, "150"), testutil.Dec(t, "25500.00"), testutil.Dec(t, "27787.50"))

		txn := testutil.NewSellTransaction(portfolio.PortID, "20260831", "AAPL",
			testutil.Dec(t, "50"), testutil.Dec(t, "190.00"))
		testutil.AssertDecimal(t, txn.Amount, "9500.00", "submission amount")

		result := ledger.ProcessTransaction(txn, "TRADER01")
		if !result.Success {
			t.Fatalf("expected success, got errors %v", result.Errors)
		}
		if !refid.IsValid(result.Ref) {
			t.Errorf("expected a valid process reference, got %q", result.Ref)
		}

		var position models.Position
		if err := db.Where("portfolio_id = ? AND date = ? AND investment_id = ?",
			portfolio.PortID, "20260831", "AAPL").First(&position).Error; err != nil {
			t.Fatalf("failed to reload position: %v", err)
		}
		testutil.AssertDecimal(t, position.Quantity, "100", "quantity")
		testutil.AssertDecimal(t, position.CostBasis, "17000.00", "cost basis")

		var persisted models.Transaction
		if err := db.Where("portfolio_id = ? AND sequence_no = ?",
			portfolio.PortID, txn.SequenceNo).First(&persisted).Error; err != nil {
			t.Fatalf("failed to reload transaction: %v", err)
		}
		if persisted.Status != models.TransactionStatusDone {
			t.Errorf("expected status D, got %q", persisted.Status)
		}

		// exactly two audit rows: transaction added + position changed
		if got := historyCount(t, db, portfolio.PortID); got != 2 {
			t.Errorf("expected 2 history rows, got %d", got)
		}

		// market value is stored state, so the revalued total reflects the
		// pre-sell market value plus cash
		var fresh models.Portfolio
		if err := db.Where("port_id = ?", portfolio.PortID).First(&fresh).Error; err != nil {
			t.Fatalf("failed to reload portfolio: %v", err)
		}
		testutil.AssertDecimal(t, fresh.TotalValue, "28039.50", "revalued total")
		if fresh.LastTransactionRef != result.Ref {
			t.Errorf("expected portfolio to carry process ref %q, got %q", result.Ref, fresh.LastTransactionRef)
		}
	})

	t.Run("oversell_rejected_but_provably_recorded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolioWithKeys(t, db, "PORT0001", "1234567890")
		testutil.CreateTestPosition(t, db, portfolio.PortID, "20260831", "AAPL",
			testutil.Dec(t, "150"), testutil.Dec(t, "25500.00"), testutil.Dec(t, "27787.50"))

		txn := testutil.NewSellTransaction(portfolio.PortID, "20260831", "AAPL",
			testutil.Dec(t, "200"), testutil.Dec(t, "190.00"))

		result := ledger.ProcessTransaction(txn, "TRADER01")
		if result.Success {
			t.Fatal("expected oversell to fail")
		}
		if len(result.Errors) == 0 {
			t.Fatal("expected a failure reason")
		}

		// position untouched
		var position models.Position
		if err := db.Where("portfolio_id = ? AND investment_id = ?",
			portfolio.PortID, "AAPL").First(&position).Error; err != nil {
			t.Fatalf("failed to reload position: %v", err)
		}
		testutil.AssertDecimal(t, position.Quantity, "150", "quantity")
		testutil.AssertDecimal(t, position.CostBasis, "25500.00", "cost basis")

		// the accepted transaction is durably recorded as Failed
		var persisted models.Transaction
		if err := db.Where("portfolio_id = ?", portfolio.PortID).First(&persisted).Error; err != nil {
			t.Fatalf("expected failed transaction row: %v", err)
		}
		if persisted.Status != models.TransactionStatusFailed {
			t.Errorf("expected status F, got %q", persisted.Status)
		}

		// no history beyond the initial "transaction added" entry
		var entries []models.History
		if err := db.Where("portfolio_id = ?", portfolio.PortID).Find(&entries).Error; err != nil {
			t.Fatalf("failed to read history: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected exactly 1 history row, got %d", len(entries))
		}
		if entries[0].RecordType != models.RecordTypeTransaction || entries[0].ActionCode != models.ActionAdded {
			t.Errorf("expected TR/A entry, got %s/%s", entries[0].RecordType, entries[0].ActionCode)
		}
	})

	t.Run("validation_failure_has_no_side_effects", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolioWithKeys(t, db, "PORT0001", "1234567890")

		txn := testutil.NewBuyTransaction(portfolio.PortID, "20260831", "AAPL",
			testutil.Dec(t, "0"), testutil.Dec(t, "190.00"))

		result := ledger.ProcessTransaction(txn, "TRADER01")
		if result.Success {
			t.Fatal("expected validation failure")
		}

		var txnCount int64
		db.Model(&models.Transaction{}).Count(&txnCount)
		if txnCount != 0 {
			t.Errorf("expected no transaction rows, got %d", txnCount)
		}
		if got := historyCount(t, db, portfolio.PortID); got != 0 {
			t.Errorf("expected no history rows, got %d", got)
		}
	})

	t.Run("unknown_portfolio_reports_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)

		txn := testutil.NewBuyTransaction("PORT4242", "20260831", "AAPL",
			testutil.Dec(t, "10"), testutil.Dec(t, "190.00"))

		result := ledger.ProcessTransaction(txn, "TRADER01")
		if result.Success {
			t.Fatal("expected failure for unknown portfolio")
		}

		var txnCount int64
		db.Model(&models.Transaction{}).Count(&txnCount)
		if txnCount != 0 {
			t.Errorf("expected no transaction rows, got %d", txnCount)
		}
	})

	t.Run("buy_creates_position_and_two_history_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolio(t, db)

		txn := testutil.NewBuyTransaction(portfolio.PortID, "20260831", "AAPL",
			testutil.Dec(t, "150"), testutil.Dec(t, "170.00"))

		result := ledger.ProcessTransaction(txn, "TRADER01")
		if !result.Success {
			t.Fatalf("expected success, got %v", result.Errors)
		}

		var position models.Position
		if err := db.Where("portfolio_id = ? AND investment_id = ?",
			portfolio.PortID, "AAPL").First(&position).Error; err != nil {
			t.Fatalf("expected position row: %v", err)
		}
		testutil.AssertDecimal(t, position.Quantity, "150", "quantity")
		testutil.AssertDecimal(t, position.CostBasis, "25500.00", "cost basis")

		if got := historyCount(t, db, portfolio.PortID); got != 2 {
			t.Errorf("expected 2 history rows (txn add + position add), got %d", got)
		}
	})

	t.Run("fee_debits_cash_and_revalues", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolio(t, db)
		testutil.SetCashBalance(t, db, portfolio, testutil.Dec(t, "500.00"))

		txn := testutil.NewFeeTransaction(portfolio.PortID, "20260831", testutil.Dec(t, "25.00"))

		result := ledger.ProcessTransaction(txn, "OPS")
		if !result.Success {
			t.Fatalf("expected success, got %v", result.Errors)
		}

		var fresh models.Portfolio
		if err := db.Where("port_id = ?", portfolio.PortID).First(&fresh).Error; err != nil {
			t.Fatalf("failed to reload portfolio: %v", err)
		}
		testutil.AssertDecimal(t, fresh.CashBalance, "475.00", "cash balance")
		testutil.AssertDecimal(t, fresh.TotalValue, "475.00", "revalued total")
	})

	t.Run("transfer_is_accepted_noop", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolio(t, db)
		testutil.SetCashBalance(t, db, portfolio, testutil.Dec(t, "500.00"))

		txn := testutil.NewFeeTransaction(portfolio.PortID, "20260831", testutil.Dec(t, "100.00"))
		txn.Type = models.TransactionTypeTransfer

		result := ledger.ProcessTransaction(txn, "OPS")
		if !result.Success {
			t.Fatalf("expected transfer to be accepted, got %v", result.Errors)
		}

		var fresh models.Portfolio
		if err := db.Where("port_id = ?", portfolio.PortID).First(&fresh).Error; err != nil {
			t.Fatalf("failed to reload portfolio: %v", err)
		}
		testutil.AssertDecimal(t, fresh.CashBalance, "500.00", "cash untouched by transfer")

		var persisted models.Transaction
		if err := db.Where("portfolio_id = ?", portfolio.PortID).First(&persisted).Error; err != nil {
			t.Fatalf("expected transaction row: %v", err)
		}
		if persisted.Status != models.TransactionStatusDone {
			t.Errorf("expected status D, got %q", persisted.Status)
		}
	})

	t.Run("assigns_sequence_numbers_per_instant", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolio(t, db)
		testutil.SetCashBalance(t, db, portfolio, testutil.Dec(t, "1000.00"))

		first := testutil.NewFeeTransaction(portfolio.PortID, "20260831", testutil.Dec(t, "10.00"))
		first.Time = "143000"
		second := testutil.NewFeeTransaction(portfolio.PortID, "20260831", testutil.Dec(t, "10.00"))
		second.Time = "143000"

		if result := ledger.ProcessTransaction(first, "OPS"); !result.Success {
			t.Fatalf("first submission failed: %v", result.Errors)
		}
		if result := ledger.ProcessTransaction(second, "OPS"); !result.Success {
			t.Fatalf("second submission failed: %v", result.Errors)
		}

		if first.SequenceNo != "000001" || second.SequenceNo != "000002" {
			t.Errorf("expected sequences 000001/000002, got %q/%q", first.SequenceNo, second.SequenceNo)
		}
	})

	t.Run("duplicate_supplied_sequence_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolio(t, db)
		testutil.SetCashBalance(t, db, portfolio, testutil.Dec(t, "1000.00"))

		first := testutil.NewFeeTransaction(portfolio.PortID, "20260831", testutil.Dec(t, "10.00"))
		first.Time = "143000"
		first.SequenceNo = "000007"
		if result := ledger.ProcessTransaction(first, "OPS"); !result.Success {
			t.Fatalf("first submission failed: %v", result.Errors)
		}

		dup := testutil.NewFeeTransaction(portfolio.PortID, "20260831", testutil.Dec(t, "10.00"))
		dup.Time = "143000"
		dup.SequenceNo = "000007"
		result := ledger.ProcessTransaction(dup, "OPS")
		if result.Success {
			t.Fatal("expected duplicate sequence to be rejected")
		}

		// the original row is the only one under that key
		var count int64
		db.Model(&models.Transaction{}).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 transaction row, got %d", count)
		}
	})
}

func TestGetPortfolioTransactions(t *testing.T) {
	t.Run("filters_by_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolio(t, db)
		testutil.SetCashBalance(t, db, portfolio, testutil.Dec(t, "1000.00"))

		buy := testutil.NewBuyTransaction(portfolio.PortID, "20260831", "AAPL",
			testutil.Dec(t, "10"), testutil.Dec(t, "170.00"))
		fee := testutil.NewFeeTransaction(portfolio.PortID, "20260831", testutil.Dec(t, "10.00"))
		if result := ledger.ProcessTransaction(buy, "OPS"); !result.Success {
			t.Fatalf("buy failed: %v", result.Errors)
		}
		if result := ledger.ProcessTransaction(fee, "OPS"); !result.Success {
			t.Fatalf("fee failed: %v", result.Errors)
		}

		feeType := models.TransactionTypeFee
		page, err := ledger.GetPortfolioTransactions(portfolio.PortID,
			pagination.PageRequest{}, TransactionFilter{Type: &feeType})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || page.Data[0].Type != models.TransactionTypeFee {
			t.Errorf("expected only the fee transaction, got %+v", page.Data)
		}
	})

	t.Run("orders_newest_first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := newLedger(db)
		portfolio := testutil.CreateTestPortfolio(t, db)
		testutil.SetCashBalance(t, db, portfolio, testutil.Dec(t, "1000.00"))

		older := testutil.NewFeeTransaction(portfolio.PortID, "20260830", testutil.Dec(t, "10.00"))
		newer := testutil.NewFeeTransaction(portfolio.PortID, "20260831", testutil.Dec(t, "10.00"))
		if result := ledger.ProcessTransaction(older, "OPS"); !result.Success {
			t.Fatalf("older failed: %v", result.Errors)
		}
		if result := ledger.ProcessTransaction(newer, "OPS"); !result.Success {
			t.Fatalf("newer failed: %v", result.Errors)
		}

		page, err := ledger.GetPortfolioTransactions(portfolio.PortID,
			pagination.PageRequest{}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if len(page.Data) != 2 || page.Data[0].Date != "20260831" {
			t.Errorf("expected newest first, got %+v", page.Data)
		}
	})
}

// The error kind surfaced to the caller matches the failure class.
func TestProcessTransactionErrorKinds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	audit := NewAuditService(db)
	rec := NewReconciler(audit)
	portfolio := testutil.CreateTestPortfolio(t, db)
	testutil.CreateTestPosition(t, db, portfolio.PortID, "20260831", "AAPL",
		testutil.Dec(t, "150"), testutil.Dec(t, "25500.00"), testutil.Dec(t, "27787.50"))

	oversell := testutil.NewSellTransaction(portfolio.PortID, "20260831", "AAPL",
		testutil.Dec(t, "200"), testutil.Dec(t, "190.00"))
	_, err := rec.ApplyBuySell(db, oversell, "OPS")
	testutil.AssertAppError(t, err, apperrors.KindConsistency)

	emptySell := testutil.NewSellTransaction(portfolio.PortID, "20260830", "MSFT",
		testutil.Dec(t, "10"), testutil.Dec(t, "100.00"))
	_, err = rec.ApplyBuySell(db, emptySell, "OPS")
	testutil.AssertAppError(t, err, apperrors.KindConsistency)
}
