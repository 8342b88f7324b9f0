package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"portledger/internal/models"
	"portledger/internal/pagination"
)

// Result is the structured outcome returned by every mutating core operation.
// No operation lets an error escape past the core boundary uncaught.
type Result struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors"`
	// Ref is the time-ordered process reference stamped on the portfolio
	// for successful units.
	Ref string `json:"ref,omitempty"`
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate *string
	ToDate   *string
	Type     *models.TransactionType
	Status   *models.TransactionStatus
}

// LedgerServicer defines the contract for transaction processing.
type LedgerServicer interface {
	ProcessTransaction(txn *models.Transaction, user string) Result
	GetPortfolioTransactions(portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

// MaintenanceServicer defines the contract for the direct field update
// operations. These bypass the reconciler and valuator.
type MaintenanceServicer interface {
	UpdateStatus(portfolioID, accountNo string, newStatus models.PortfolioStatus, user string) Result
	UpdateClientName(portfolioID, accountNo, newName, user string) Result
	UpdateCashValue(portfolioID, accountNo string, newValue decimal.Decimal, user string) Result
}

// Holding is one active position inside a portfolio summary.
type Holding struct {
	Symbol          string          `json:"symbol"`
	Shares          decimal.Decimal `json:"shares"`
	CurrentPrice    decimal.Decimal `json:"currentPrice"`
	MarketValue     decimal.Decimal `json:"marketValue"`
	GainLoss        decimal.Decimal `json:"gainLoss"`
	GainLossPercent float64         `json:"gainLossPercent"`
}

// PortfolioSummary is the read-only projection over a portfolio and its
// active positions.
type PortfolioSummary struct {
	AccountNumber        string          `json:"accountNumber"`
	TotalValue           decimal.Decimal `json:"totalValue"`
	TotalGainLoss        decimal.Decimal `json:"totalGainLoss"`
	TotalGainLossPercent float64         `json:"totalGainLossPercent"`
	Holdings             []Holding       `json:"holdings"`
}

// SnapshotServicer defines the contract for read-only portfolio projections.
type SnapshotServicer interface {
	GetPortfolioSnapshot(accountNo string) (*PortfolioSummary, error)
}

// AuditServicer defines the contract for the audit recorder. Record runs
// inside the caller's storage unit so history commits or rolls back with
// the mutation it describes.
type AuditServicer interface {
	Record(tx *gorm.DB, portfolioID string, recordType models.RecordType, action models.ActionCode, before, after map[string]any, reason, user string) error
	GetPortfolioHistory(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.History], error)
}

// Reconciler applies a transaction's deltas to the affected position or
// portfolio cash balance inside the caller's storage unit.
type Reconciler interface {
	ApplyBuySell(tx *gorm.DB, txn *models.Transaction, user string) (*models.Position, error)
	ApplyFee(tx *gorm.DB, portfolio *models.Portfolio, txn *models.Transaction, user string) error
}

// Valuator recomputes a portfolio's aggregate total value from its active
// positions plus cash. Idempotent; pure function of current child-row state.
type Valuator interface {
	Revalue(tx *gorm.DB, portfolio *models.Portfolio) (decimal.Decimal, error)
}
