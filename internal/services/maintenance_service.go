package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "portledger/internal/errors"
	"portledger/internal/models"
	"portledger/internal/validation"
)

// maintenanceService handles the direct single-field portfolio updates.
// These snapshot the before image, apply one change plus a maintenance
// stamp, and commit the change and its history entry atomically. The
// reconciler and valuator are not involved.
type maintenanceService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewMaintenanceService creates a new MaintenanceServicer.
func NewMaintenanceService(db *gorm.DB, audit AuditServicer) MaintenanceServicer {
	return &maintenanceService{db: db, audit: audit}
}

// UpdateStatus sets the portfolio status code. History reason: STAT.
func (s *maintenanceService) UpdateStatus(portfolioID, accountNo string, newStatus models.PortfolioStatus, user string) Result {
	switch newStatus {
	case models.PortfolioStatusActive, models.PortfolioStatusClosed, models.PortfolioStatusSuspended:
	default:
		return Result{Success: false, Errors: []string{fmt.Sprintf("Status must be one of A, C, S; got %q", newStatus)}}
	}

	return s.updateField(portfolioID, accountNo, user, models.ReasonStatus,
		"Portfolio status updated",
		func(p *models.Portfolio) { p.Status = newStatus })
}

// UpdateClientName sets the portfolio client name. History reason: NAME.
func (s *maintenanceService) UpdateClientName(portfolioID, accountNo, newName, user string) Result {
	if strings.TrimSpace(newName) == "" {
		return Result{Success: false, Errors: []string{"Client name must not be empty"}}
	}

	return s.updateField(portfolioID, accountNo, user, models.ReasonName,
		"Portfolio client name updated",
		func(p *models.Portfolio) { p.ClientName = newName })
}

// UpdateCashValue writes the portfolio total value directly, bypassing the
// valuator. History reason: VALU.
func (s *maintenanceService) UpdateCashValue(portfolioID, accountNo string, newValue decimal.Decimal, user string) Result {
	if ok, reason := validation.ValidateAmount(newValue); !ok {
		return Result{Success: false, Errors: []string{reason}}
	}

	return s.updateField(portfolioID, accountNo, user, models.ReasonValue,
		"Portfolio value updated",
		func(p *models.Portfolio) { p.TotalValue = newValue.Round(2) })
}

// updateField runs one atomic single-field update unit: lock the portfolio
// by (port_id, account_no), snapshot, apply, record history, commit.
func (s *maintenanceService) updateField(portfolioID, accountNo, user, reason, message string, apply func(*models.Portfolio)) Result {
	if user == "" {
		user = "SYSTEM"
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var portfolio models.Portfolio
		err := portfolioForUpdate(tx).
			Where("port_id = ? AND account_no = ?", portfolioID, accountNo).
			First(&portfolio).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrPortfolioNotFound
			}
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}

		before := portfolio.Snapshot()
		apply(&portfolio)
		portfolio.StampMaintenance(user, "")

		if err := s.audit.Record(tx, portfolio.PortID, models.RecordTypePortfolio, models.ActionChanged,
			before, portfolio.Snapshot(), reason, user); err != nil {
			return err
		}

		if err := tx.Save(&portfolio).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}
	}
	return Result{Success: true, Message: message, Errors: []string{}}
}
