package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientType is the single-character client classification code.
type ClientType string

const (
	ClientTypeIndividual ClientType = "I"
	ClientTypeCorporate  ClientType = "C"
	ClientTypeTrust      ClientType = "T"
)

// PortfolioStatus is the single-character portfolio status code.
type PortfolioStatus string

const (
	PortfolioStatusActive    PortfolioStatus = "A"
	PortfolioStatusClosed    PortfolioStatus = "C"
	PortfolioStatusSuspended PortfolioStatus = "S"
)

// Portfolio represents one account's investment book. Portfolios are never
// hard-deleted; closing an account transitions status to Closed.
type Portfolio struct {
	PortID    string `gorm:"column:port_id;type:char(8);primaryKey" json:"port_id"`
	AccountNo string `gorm:"column:account_no;type:char(10);not null;uniqueIndex" json:"account_no"`

	ClientName string          `gorm:"not null" json:"client_name"`
	ClientType ClientType      `gorm:"type:char(1);not null" json:"client_type"`
	Status     PortfolioStatus `gorm:"type:char(1);not null;default:'A'" json:"status"`

	// TotalValue is always derivable as sum(active positions' market_value)
	// plus cash_balance. It is recomputed by the valuator, never edited
	// independently outside the VALU maintenance path.
	TotalValue  decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"total_value"`
	CashBalance decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"cash_balance"`

	LastMaintDate      time.Time `gorm:"column:last_maint_date" json:"last_maint_date"`
	LastUser           string    `gorm:"type:char(8)" json:"last_user"`
	LastTransactionRef string    `json:"last_transaction_ref,omitempty"`

	// Relationships
	Positions []Position `gorm:"foreignKey:PortfolioID;references:PortID" json:"positions,omitempty"`
}

// TableName overrides the GORM default.
func (Portfolio) TableName() string { return "portfolios" }

// StampMaintenance records who touched the portfolio and through which unit.
func (p *Portfolio) StampMaintenance(user, transactionRef string) {
	p.LastMaintDate = time.Now()
	p.LastUser = user
	if transactionRef != "" {
		p.LastTransactionRef = transactionRef
	}
}

// Snapshot returns the audited field set for before/after images.
// The key set is fixed so images round-trip verifiably.
func (p *Portfolio) Snapshot() map[string]any {
	return map[string]any{
		"port_id":      p.PortID,
		"account_no":   p.AccountNo,
		"client_name":  p.ClientName,
		"client_type":  string(p.ClientType),
		"status":       string(p.Status),
		"total_value":  p.TotalValue.StringFixed(2),
		"cash_balance": p.CashBalance.StringFixed(2),
		"last_user":    p.LastUser,
	}
}
