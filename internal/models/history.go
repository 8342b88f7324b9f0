package models

import (
	"encoding/json"
	"time"
)

// RecordType identifies which entity a history entry snapshots.
type RecordType string

const (
	RecordTypePortfolio   RecordType = "PT"
	RecordTypePosition    RecordType = "PS"
	RecordTypeTransaction RecordType = "TR"
)

// ActionCode identifies what happened to the snapshotted entity.
type ActionCode string

const (
	ActionAdded   ActionCode = "A"
	ActionChanged ActionCode = "C"
	ActionDeleted ActionCode = "D"
)

// Audit reason codes stamped on history entries.
const (
	ReasonProcess = "PROC"
	ReasonTrade   = "TRAN"
	ReasonFee     = "FEE"
	ReasonStatus  = "STAT"
	ReasonName    = "NAME"
	ReasonValue   = "VALU"
	ReasonSeed    = "SEED"
)

// History is one append-only audit ledger entry. Entries are never mutated
// or deleted, and must survive the closing of their portfolio. seq_no
// disambiguates entries written within the same second for one portfolio.
type History struct {
	PortfolioID string `gorm:"column:portfolio_id;type:char(8);primaryKey" json:"portfolio_id"`
	Date        string `gorm:"type:char(8);primaryKey" json:"date"`
	Time        string `gorm:"type:char(8);primaryKey" json:"time"`
	SeqNo       string `gorm:"column:seq_no;type:char(4);primaryKey" json:"seq_no"`

	RecordType RecordType `gorm:"column:record_type;type:char(2);not null" json:"record_type"`
	ActionCode ActionCode `gorm:"column:action_code;type:char(1);not null" json:"action_code"`

	// JSON-serialized entity snapshots; before_image is absent on creation.
	BeforeImage string `gorm:"column:before_image;type:text" json:"before_image,omitempty"`
	AfterImage  string `gorm:"column:after_image;type:text" json:"after_image,omitempty"`

	ReasonCode  string    `gorm:"column:reason_code;type:char(4)" json:"reason_code"`
	ProcessDate time.Time `gorm:"column:process_date" json:"process_date"`
	ProcessUser string    `gorm:"column:process_user;type:char(8)" json:"process_user"`
}

// TableName overrides the GORM default.
func (History) TableName() string { return "history" }

// BeforeData deserializes the before image, or nil when absent or malformed.
func (h *History) BeforeData() map[string]any { return decodeImage(h.BeforeImage) }

// AfterData deserializes the after image, or nil when absent or malformed.
func (h *History) AfterData() map[string]any { return decodeImage(h.AfterImage) }

func decodeImage(image string) map[string]any {
	if image == "" {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(image), &data); err != nil {
		return nil
	}
	return data
}

// DateKey formats a timestamp as the yyyymmdd key used by transactions and history.
func DateKey(t time.Time) string { return t.Format("20060102") }

// TimeKey formats a timestamp as the hhmmss key used by transactions and history.
func TimeKey(t time.Time) string { return t.Format("150405") }
