package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"portledger/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Dec parses a decimal literal, failing the test on malformed input.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// CreateTestPortfolio creates an active individual portfolio with a unique id.
func CreateTestPortfolio(t *testing.T, db *gorm.DB) *models.Portfolio {
	t.Helper()
	n := nextID()
	return CreateTestPortfolioWithKeys(t, db,
		fmt.Sprintf("PORT%04d", n%10000), fmt.Sprintf("%010d", 1000000000+n))
}

// CreateTestPortfolioWithKeys creates an active portfolio with the given identity.
func CreateTestPortfolioWithKeys(t *testing.T, db *gorm.DB, portID, accountNo string) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		PortID:        portID,
		AccountNo:     accountNo,
		ClientName:    fmt.Sprintf("Test Client %s", portID),
		ClientType:    models.ClientTypeIndividual,
		Status:        models.PortfolioStatusActive,
		TotalValue:    decimal.Zero,
		CashBalance:   decimal.Zero,
		LastMaintDate: time.Now(),
		LastUser:      "FIXTURE",
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}

// SetCashBalance writes the portfolio's cash balance directly, bypassing the core.
func SetCashBalance(t *testing.T, db *gorm.DB, portfolio *models.Portfolio, cash decimal.Decimal) {
	t.Helper()
	portfolio.CashBalance = cash
	if err := db.Save(portfolio).Error; err != nil {
		t.Fatalf("failed to set cash balance: %v", err)
	}
}

// CreateTestPosition creates an active position for the given instrument and date.
func CreateTestPosition(t *testing.T, db *gorm.DB, portfolioID, date, investmentID string, quantity, costBasis, marketValue decimal.Decimal) *models.Position {
	t.Helper()

	position := &models.Position{
		PortfolioID:   portfolioID,
		Date:          date,
		InvestmentID:  investmentID,
		Quantity:      quantity,
		CostBasis:     costBasis,
		MarketValue:   marketValue,
		Currency:      "USD",
		Status:        models.PositionStatusActive,
		LastMaintDate: time.Now(),
		LastMaintUser: "FIXTURE",
	}
	if err := db.Create(position).Error; err != nil {
		t.Fatalf("failed to create test position: %v", err)
	}
	return position
}

// NewBuyTransaction builds (without persisting) a buy submission.
func NewBuyTransaction(portfolioID, date, investmentID string, quantity, price decimal.Decimal) *models.Transaction {
	return newTradeTransaction(portfolioID, date, investmentID, models.TransactionTypeBuy, quantity, price)
}

// NewSellTransaction builds (without persisting) a sell submission.
func NewSellTransaction(portfolioID, date, investmentID string, quantity, price decimal.Decimal) *models.Transaction {
	return newTradeTransaction(portfolioID, date, investmentID, models.TransactionTypeSell, quantity, price)
}

func newTradeTransaction(portfolioID, date, investmentID string, txnType models.TransactionType, quantity, price decimal.Decimal) *models.Transaction {
	return &models.Transaction{
		Date:         date,
		Time:         time.Now().Format("150405"),
		PortfolioID:  portfolioID,
		InvestmentID: investmentID,
		Type:         txnType,
		Quantity:     quantity,
		Price:        price,
		Amount:       quantity.Mul(price).Round(2),
		Currency:     "USD",
		Status:       models.TransactionStatusPending,
	}
}

// NewFeeTransaction builds (without persisting) a fee submission.
func NewFeeTransaction(portfolioID, date string, amount decimal.Decimal) *models.Transaction {
	return &models.Transaction{
		Date:        date,
		Time:        time.Now().Format("150405"),
		PortfolioID: portfolioID,
		Type:        models.TransactionTypeFee,
		Amount:      amount,
		Currency:    "USD",
		Status:      models.TransactionStatusPending,
	}
}
