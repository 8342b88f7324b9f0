package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "portledger/internal/errors"
	"portledger/internal/models"
)

// snapshotService builds read-only projections over a portfolio and its
// active positions. Nothing here mutates ledger state.
type snapshotService struct {
	db *gorm.DB
}

// NewSnapshotService creates a new SnapshotServicer.
func NewSnapshotService(db *gorm.DB) SnapshotServicer {
	return &snapshotService{db: db}
}

// GetPortfolioSnapshot returns the summary for the portfolio owning the
// given account number. Totals are computed live from active positions
// plus cash, so the projection never restamps the portfolio row.
func (s *snapshotService) GetPortfolioSnapshot(accountNo string) (*PortfolioSummary, error) {
	var portfolio models.Portfolio
	if err := s.db.Where("account_no = ?", accountNo).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPortfolioNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var positions []models.Position
	if err := s.db.Where("portfolio_id = ? AND status = ?",
		portfolio.PortID, models.PositionStatusActive).
		Order("investment_id, date").
		Find(&positions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	summary := &PortfolioSummary{
		AccountNumber: portfolio.AccountNo,
		TotalValue:    portfolio.CashBalance,
		TotalGainLoss: decimal.Zero,
		Holdings:      make([]Holding, 0, len(positions)),
	}

	totalCostBasis := decimal.Zero
	for i := range positions {
		pos := &positions[i]

		gainLoss := pos.MarketValue.Sub(pos.CostBasis)
		holding := Holding{
			Symbol:      pos.InvestmentID,
			Shares:      pos.Quantity,
			MarketValue: pos.MarketValue,
			GainLoss:    gainLoss,
		}
		if pos.Quantity.IsPositive() {
			holding.CurrentPrice = pos.MarketValue.DivRound(pos.Quantity, 4)
		}
		if pos.CostBasis.IsPositive() {
			pct, _ := gainLoss.Div(pos.CostBasis).Mul(decimal.NewFromInt(100)).Round(4).Float64()
			holding.GainLossPercent = pct
		}

		summary.TotalValue = summary.TotalValue.Add(pos.MarketValue)
		summary.TotalGainLoss = summary.TotalGainLoss.Add(gainLoss)
		totalCostBasis = totalCostBasis.Add(pos.CostBasis)
		summary.Holdings = append(summary.Holdings, holding)
	}

	if totalCostBasis.IsPositive() {
		pct, _ := summary.TotalGainLoss.Div(totalCostBasis).Mul(decimal.NewFromInt(100)).Round(4).Float64()
		summary.TotalGainLossPercent = pct
	}

	return summary, nil
}
