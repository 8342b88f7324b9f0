package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "portledger/internal/errors"
	"portledger/internal/models"
)

// valuator recomputes portfolio totals from current child-row state.
type valuator struct{}

// NewValuator creates a new Valuator.
func NewValuator() Valuator {
	return &valuator{}
}

// Revalue sums the market value of every active position in the portfolio,
// adds the cash balance, and assigns the result to total_value with a
// maintenance stamp. Calling it twice without an intervening mutation
// produces the same total both times.
func (v *valuator) Revalue(tx *gorm.DB, portfolio *models.Portfolio) (decimal.Decimal, error) {
	var positions []models.Position
	if err := tx.Where("portfolio_id = ? AND status = ?",
		portfolio.PortID, models.PositionStatusActive).Find(&positions).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	total := portfolio.CashBalance
	for i := range positions {
		total = total.Add(positions[i].MarketValue)
	}
	total = total.Round(2)

	portfolio.TotalValue = total
	portfolio.LastMaintDate = time.Now()
	return total, nil
}
