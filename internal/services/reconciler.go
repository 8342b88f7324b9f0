package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "portledger/internal/errors"
	"portledger/internal/models"
)

// reconciler applies buy/sell/fee deltas to positions and portfolio cash.
type reconciler struct {
	audit AuditServicer
}

// NewReconciler creates a new Reconciler.
func NewReconciler(audit AuditServicer) Reconciler {
	return &reconciler{audit: audit}
}

// ApplyBuySell applies a buy or sell to the position keyed by the
// transaction's (portfolio, date, investment). If no row exists yet for that
// key, a zero active position is created first. Every mutation is paired
// with a history entry; the before image is omitted for a just-created row.
func (r *reconciler) ApplyBuySell(tx *gorm.DB, txn *models.Transaction, user string) (*models.Position, error) {
	var position models.Position
	created := false

	err := tx.Where("portfolio_id = ? AND date = ? AND investment_id = ?",
		txn.PortfolioID, txn.Date, txn.InvestmentID).First(&position).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrStorage, err)
		}
		created = true
		position = models.Position{
			PortfolioID:  txn.PortfolioID,
			Date:         txn.Date,
			InvestmentID: txn.InvestmentID,
			Quantity:     decimal.Zero,
			CostBasis:    decimal.Zero,
			MarketValue:  decimal.Zero,
			Currency:     txn.Currency,
			Status:       models.PositionStatusActive,
		}
	}

	var before map[string]any
	if !created {
		before = position.Snapshot()
	}

	switch txn.Type {
	case models.TransactionTypeBuy:
		// average cost per share is implicitly cost_basis / quantity
		position.Quantity = position.Quantity.Add(txn.Quantity)
		position.CostBasis = position.CostBasis.Add(txn.Amount)
	case models.TransactionTypeSell:
		if !position.Quantity.IsPositive() {
			return nil, apperrors.ErrSellFromEmptyPosition
		}
		if txn.Quantity.GreaterThan(position.Quantity) {
			return nil, apperrors.ErrOversell
		}
		costPerShare := position.CostBasis.Div(position.Quantity)
		costReduction := txn.Quantity.Mul(costPerShare).Round(2)
		newCostBasis := position.CostBasis.Sub(costReduction)
		if newCostBasis.IsNegative() {
			// rounding on a full liquidation can land a cent below zero
			newCostBasis = decimal.Zero
		}
		position.CostBasis = newCostBasis
		position.Quantity = position.Quantity.Sub(txn.Quantity)
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "reconciler only handles buy and sell transactions")
	}

	position.LastMaintDate = time.Now()
	position.LastMaintUser = user

	if created {
		if err := tx.Create(&position).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, err)
		}
	} else {
		if err := tx.Save(&position).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, err)
		}
	}

	action := models.ActionChanged
	if created {
		action = models.ActionAdded
	}
	if err := r.audit.Record(tx, txn.PortfolioID, models.RecordTypePosition, action,
		before, position.Snapshot(), models.ReasonTrade, user); err != nil {
		return nil, err
	}

	return &position, nil
}

// ApplyFee debits the portfolio's cash balance by the transaction amount.
// No position is involved. The caller persists the portfolio at the end of
// the unit; the history entry captures the state at fee time.
func (r *reconciler) ApplyFee(tx *gorm.DB, portfolio *models.Portfolio, txn *models.Transaction, user string) error {
	before := portfolio.Snapshot()

	portfolio.CashBalance = portfolio.CashBalance.Sub(txn.Amount)
	portfolio.StampMaintenance(user, "")

	return r.audit.Record(tx, portfolio.PortID, models.RecordTypePortfolio, models.ActionChanged,
		before, portfolio.Snapshot(), models.ReasonFee, user)
}
