package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "portledger/internal/errors"
)

// TransactionType is the two-character transaction type code.
type TransactionType string

const (
	TransactionTypeBuy      TransactionType = "BU"
	TransactionTypeSell     TransactionType = "SL"
	TransactionTypeTransfer TransactionType = "TR"
	TransactionTypeFee      TransactionType = "FE"
)

// TransactionStatus is the single-character transaction status code.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "P"
	TransactionStatusDone     TransactionStatus = "D"
	TransactionStatusFailed   TransactionStatus = "F"
	TransactionStatusReversed TransactionStatus = "R"
)

// legalTransitions is the complete transition table. Reversed is terminal;
// Failed may return to Pending for retry resubmission.
var legalTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending: {TransactionStatusDone, TransactionStatusFailed},
	TransactionStatusFailed:  {TransactionStatusPending},
	TransactionStatusDone:    {TransactionStatusReversed},
}

// Transaction is one submitted ledger entry, keyed by (date, time, portfolio,
// sequence). sequence_no total-orders transactions submitted at the same
// instant against the same portfolio. Rows are created once per submission,
// mutated only through TransitionStatus, and never deleted.
type Transaction struct {
	Date        string `gorm:"type:char(8);primaryKey" json:"date"`
	Time        string `gorm:"type:char(6);primaryKey" json:"time"`
	PortfolioID string `gorm:"column:portfolio_id;type:char(8);primaryKey" json:"portfolio_id"`
	SequenceNo  string `gorm:"column:sequence_no;type:char(6);primaryKey" json:"sequence_no"`

	// InvestmentID is required for Buy/Sell and absent for Fee/Transfer.
	InvestmentID string          `gorm:"column:investment_id;type:char(10)" json:"investment_id,omitempty"`
	Type         TransactionType `gorm:"type:char(2);not null" json:"type"`

	Quantity decimal.Decimal   `gorm:"type:numeric(15,4)" json:"quantity"`
	Price    decimal.Decimal   `gorm:"type:numeric(15,4)" json:"price"`
	Amount   decimal.Decimal   `gorm:"type:numeric(15,2);not null" json:"amount"`
	Currency string            `gorm:"type:char(3);not null" json:"currency"`
	Status   TransactionStatus `gorm:"type:char(1);not null;default:'P'" json:"status"`

	ProcessDate time.Time `gorm:"column:process_date" json:"process_date"`
	ProcessUser string    `gorm:"column:process_user;type:char(8)" json:"process_user"`

	Portfolio Portfolio `gorm:"foreignKey:PortfolioID;references:PortID" json:"-"`
}

// TableName overrides the GORM default.
func (Transaction) TableName() string { return "transactions" }

// TransitionStatus moves the transaction to the target status if the move is
// legal, stamping process metadata. Illegal moves leave the row untouched.
func (t *Transaction) TransitionStatus(to TransactionStatus, user string) error {
	for _, next := range legalTransitions[t.Status] {
		if next == to {
			t.Status = to
			t.ProcessDate = time.Now()
			t.ProcessUser = user
			return nil
		}
	}
	return apperrors.WithMessage(apperrors.ErrInvalidTransition,
		fmt.Sprintf("cannot transition transaction status from %q to %q", t.Status, to))
}

// Snapshot returns the audited field set for before/after images.
func (t *Transaction) Snapshot() map[string]any {
	return map[string]any{
		"date":          t.Date,
		"time":          t.Time,
		"portfolio_id":  t.PortfolioID,
		"sequence_no":   t.SequenceNo,
		"investment_id": t.InvestmentID,
		"type":          string(t.Type),
		"quantity":      t.Quantity.StringFixed(4),
		"price":         t.Price.StringFixed(4),
		"amount":        t.Amount.StringFixed(2),
		"currency":      t.Currency,
		"status":        string(t.Status),
	}
}
