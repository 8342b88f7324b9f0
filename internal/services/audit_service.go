package services

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "portledger/internal/errors"
	"portledger/internal/models"
	"portledger/internal/pagination"
)

// auditService builds and persists immutable history entries.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Record writes one history entry inside the caller's storage unit.
// seq_no is assigned per (portfolio, date, time) bucket; the caller's
// portfolio lock serializes assignment, so same-instant entries never
// collide. Unlike ordinary log lines, a failure here fails the whole
// unit: a committed mutation without its audit row is a correctness
// violation.
func (s *auditService) Record(tx *gorm.DB, portfolioID string, recordType models.RecordType, action models.ActionCode, before, after map[string]any, reason, user string) error {
	now := time.Now()
	dateKey := models.DateKey(now)
	// history time carries centiseconds to spread same-second entries
	timeKey := now.Format("150405") + fmt.Sprintf("%02d", now.Nanosecond()/10_000_000)

	var bucketCount int64
	if err := tx.Model(&models.History{}).
		Where("portfolio_id = ? AND date = ? AND time = ?", portfolioID, dateKey, timeKey).
		Count(&bucketCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}

	entry := &models.History{
		PortfolioID: portfolioID,
		Date:        dateKey,
		Time:        timeKey,
		SeqNo:       fmt.Sprintf("%04d", bucketCount+1),
		RecordType:  recordType,
		ActionCode:  action,
		ReasonCode:  reason,
		ProcessDate: now,
		ProcessUser: user,
	}

	if before != nil {
		data, err := json.Marshal(before)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		entry.BeforeImage = string(data)
	}
	if after != nil {
		data, err := json.Marshal(after)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		entry.AfterImage = string(data)
	}

	if err := tx.Create(entry).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

// GetPortfolioHistory returns a paginated audit trail for one portfolio,
// newest first. History outlives a closed portfolio, so no status check
// is made against the parent row.
func (s *auditService) GetPortfolioHistory(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.History], error) {
	page.Defaults()

	base := s.db.Model(&models.History{}).Where("portfolio_id = ?", portfolioID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var entries []models.History
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC, time DESC, seq_no DESC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}
