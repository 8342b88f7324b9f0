package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the single-character position status code.
type PositionStatus string

const (
	PositionStatusActive  PositionStatus = "A"
	PositionStatusClosed  PositionStatus = "C"
	PositionStatusPending PositionStatus = "P"
)

// Position is a dated snapshot of one instrument inside a portfolio, keyed
// by (portfolio, date, investment). A new row is created the first time an
// instrument trades on a given date; cost_basis divided by quantity
// approximates the average per-share cost.
type Position struct {
	PortfolioID  string `gorm:"column:portfolio_id;type:char(8);primaryKey" json:"portfolio_id"`
	Date         string `gorm:"type:char(8);primaryKey" json:"date"`
	InvestmentID string `gorm:"column:investment_id;type:char(10);primaryKey" json:"investment_id"`

	Quantity    decimal.Decimal `gorm:"type:numeric(15,4);not null" json:"quantity"`
	CostBasis   decimal.Decimal `gorm:"column:cost_basis;type:numeric(15,2);not null" json:"cost_basis"`
	MarketValue decimal.Decimal `gorm:"column:market_value;type:numeric(15,2);not null" json:"market_value"`
	Currency    string          `gorm:"type:char(3);not null" json:"currency"`
	Status      PositionStatus  `gorm:"type:char(1);not null;default:'A'" json:"status"`

	LastMaintDate time.Time `gorm:"column:last_maint_date" json:"last_maint_date"`
	LastMaintUser string    `gorm:"column:last_maint_user;type:char(8)" json:"last_maint_user"`

	Portfolio Portfolio `gorm:"foreignKey:PortfolioID;references:PortID" json:"-"`
}

// TableName overrides the GORM default.
func (Position) TableName() string { return "positions" }

// Snapshot returns the audited field set for before/after images.
func (p *Position) Snapshot() map[string]any {
	return map[string]any{
		"portfolio_id":  p.PortfolioID,
		"date":          p.Date,
		"investment_id": p.InvestmentID,
		"quantity":      p.Quantity.StringFixed(4),
		"cost_basis":    p.CostBasis.StringFixed(2),
		"market_value":  p.MarketValue.StringFixed(2),
		"currency":      p.Currency,
		"status":        string(p.Status),
	}
}
