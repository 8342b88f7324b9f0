package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "portledger/internal/errors"
	"portledger/internal/logger"
	"portledger/internal/models"
	"portledger/internal/pagination"
	"portledger/internal/refid"
	"portledger/internal/validation"
)

// ledgerService orchestrates transaction processing: validate, record,
// reconcile, transition, revalue, commit.
type ledgerService struct {
	db         *gorm.DB
	audit      AuditServicer
	reconciler Reconciler
	valuator   Valuator
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB, audit AuditServicer, reconciler Reconciler, valuator Valuator) LedgerServicer {
	return &ledgerService{
		db:         db,
		audit:      audit,
		reconciler: reconciler,
		valuator:   valuator,
	}
}

// portfolioForUpdate locks the portfolio row so that units targeting the
// same portfolio serialize. sqlite has no FOR UPDATE; its single-writer
// model already serializes the unit.
func portfolioForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// ProcessTransaction runs one submitted transaction through the full unit:
//
//  1. structural validation — fails fast, no side effects
//  2. persist the transaction and its "added" history entry
//  3. dispatch to the reconciler by type
//  4. transition Pending -> Done
//  5. revalue the owning portfolio
//  6. commit everything atomically
//
// A failure after acceptance rolls the unit back, then durably records the
// transaction as Failed in a separately committed unit so an accepted
// transaction is never silently lost. Storage failures leave nothing
// persisted and are eligible for retry from Pending.
func (s *ledgerService) ProcessTransaction(txn *models.Transaction, user string) Result {
	if user == "" {
		user = "SYSTEM"
	}

	if errs := validation.ValidateTransaction(txn); len(errs) > 0 {
		return Result{Success: false, Errors: errs}
	}

	ref := refid.New()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.processUnit(tx, txn, user, ref)
	})
	if err == nil {
		return Result{Success: true, Errors: []string{}, Ref: ref,
			Message: fmt.Sprintf("Transaction %s/%s/%s processed", txn.Date, txn.Time, txn.SequenceNo)}
	}

	switch kindOf(err) {
	case apperrors.KindValidation, apperrors.KindNotFound, apperrors.KindStorage:
		// nothing was accepted (or nothing can be durably recorded);
		// the caller resubmits from Pending
	default:
		// a duplicate sequence leaves no key to record a Failed row under
		if !errors.Is(err, apperrors.ErrDuplicateSequence) {
			s.markFailed(txn, user)
		}
	}

	return Result{Success: false, Errors: []string{err.Error()}}
}

func (s *ledgerService) processUnit(tx *gorm.DB, txn *models.Transaction, user, ref string) error {
	var portfolio models.Portfolio
	err := portfolioForUpdate(tx).Where("port_id = ?", txn.PortfolioID).First(&portfolio).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPortfolioNotFound
		}
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}

	if err := s.claimSequence(tx, txn); err != nil {
		return err
	}

	txn.Status = models.TransactionStatusPending
	if err := tx.Create(txn).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}

	// recorded before any mutation so acceptance is provable even if
	// reconciliation fails downstream
	if err := s.audit.Record(tx, txn.PortfolioID, models.RecordTypeTransaction, models.ActionAdded,
		nil, txn.Snapshot(), models.ReasonProcess, user); err != nil {
		return err
	}

	switch txn.Type {
	case models.TransactionTypeBuy, models.TransactionTypeSell:
		if _, err := s.reconciler.ApplyBuySell(tx, txn, user); err != nil {
			return err
		}
	case models.TransactionTypeFee:
		if err := s.reconciler.ApplyFee(tx, &portfolio, txn, user); err != nil {
			return err
		}
	case models.TransactionTypeTransfer:
		// accepted no-op: inter-portfolio settlement is out of scope
	}

	if err := txn.TransitionStatus(models.TransactionStatusDone, user); err != nil {
		return err
	}
	if err := tx.Save(txn).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}

	if _, err := s.valuator.Revalue(tx, &portfolio); err != nil {
		return err
	}
	portfolio.StampMaintenance(user, ref)

	if err := tx.Save(&portfolio).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

// claimSequence assigns the next sequence number within the transaction's
// (date, time, portfolio) instant, or verifies a caller-supplied one is
// unused. Runs under the portfolio lock.
func (s *ledgerService) claimSequence(tx *gorm.DB, txn *models.Transaction) error {
	if txn.SequenceNo == "" {
		var count int64
		if err := tx.Model(&models.Transaction{}).
			Where("date = ? AND time = ? AND portfolio_id = ?", txn.Date, txn.Time, txn.PortfolioID).
			Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		txn.SequenceNo = fmt.Sprintf("%06d", count+1)
		return nil
	}

	var existing models.Transaction
	err := tx.Where("date = ? AND time = ? AND portfolio_id = ? AND sequence_no = ?",
		txn.Date, txn.Time, txn.PortfolioID, txn.SequenceNo).First(&existing).Error
	if err == nil {
		return apperrors.ErrDuplicateSequence
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

// markFailed durably records an accepted-but-failed transaction in its own
// committed unit, together with its "added" history entry. The rolled-back
// main unit left nothing behind, so the row is re-created here with status
// Failed. If even this cannot be recorded the failure is logged and the
// caller's retry loop finds the transaction still unrecorded.
func (s *ledgerService) markFailed(txn *models.Transaction, user string) {
	txn.Status = models.TransactionStatusPending
	if err := txn.TransitionStatus(models.TransactionStatusFailed, user); err != nil {
		logger.Get().Errorw("cannot transition failed transaction", "error", err)
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, err)
		}
		return s.audit.Record(tx, txn.PortfolioID, models.RecordTypeTransaction, models.ActionAdded,
			nil, txn.Snapshot(), models.ReasonProcess, user)
	})
	if err != nil {
		logger.Get().Errorw("failed to record failed transaction",
			"error", err,
			"portfolio_id", txn.PortfolioID,
			"date", txn.Date,
			"time", txn.Time,
			"sequence_no", txn.SequenceNo,
		)
	}
}

// kindOf extracts the AppError kind, or empty for unknown errors.
func kindOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetPortfolioTransactions retrieves a paginated, filtered list of
// transactions for one portfolio, newest first.
func (s *ledgerService) GetPortfolioTransactions(portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("portfolio_id = ?", portfolioID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC, time DESC, sequence_no DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	return q
}
