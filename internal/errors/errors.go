// Package errors provides custom error types for the portledger core.
// All service-layer errors use AppError so that callers receive a stable
// error kind and a human-readable message, never raw storage errors.
package errors

// Error kinds. Every sentinel below carries exactly one of these codes.
const (
	KindValidation  = "VALIDATION_ERROR"
	KindNotFound    = "NOT_FOUND"
	KindTransition  = "INVALID_TRANSITION"
	KindConsistency = "CONSISTENCY_ERROR"
	KindStorage     = "STORAGE_ERROR"
)

// AppError represents a structured application error with an error kind,
// human-readable message, and optional internal error.
type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  sentinel.Message,
		Internal: internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  message,
		Internal: sentinel.Internal,
	}
}

// Validation errors. Detected before any write; never require rollback.
var (
	ErrInvalidInput       = &AppError{Code: KindValidation, Message: "Invalid input"}
	ErrInvalidPortfolioID = &AppError{Code: KindValidation, Message: "Portfolio ID must be 'PORT' followed by 4 digits"}
	ErrInvalidAccountNo   = &AppError{Code: KindValidation, Message: "Account number must be exactly 10 digits and not all zeros"}
	ErrInvalidTransaction = &AppError{Code: KindValidation, Message: "Transaction failed validation"}
	ErrAmountOutOfRange   = &AppError{Code: KindValidation, Message: "Amount is outside the representable range"}
	ErrAmountMismatch     = &AppError{Code: KindValidation, Message: "Amount must equal quantity times price"}
)

// Lookup errors.
var (
	ErrPortfolioNotFound   = &AppError{Code: KindNotFound, Message: "Portfolio not found"}
	ErrPositionNotFound    = &AppError{Code: KindNotFound, Message: "Position not found"}
	ErrTransactionNotFound = &AppError{Code: KindNotFound, Message: "Transaction not found"}
)

// State machine errors.
var (
	ErrInvalidTransition = &AppError{Code: KindTransition, Message: "Illegal transaction status transition"}
)

// Consistency errors. Detected mid-unit; nothing from the unit is committed.
var (
	ErrSellFromEmptyPosition = &AppError{Code: KindConsistency, Message: "Cannot sell from a position with zero quantity"}
	ErrOversell              = &AppError{Code: KindConsistency, Message: "Sell quantity exceeds held quantity"}
	ErrDuplicateSequence     = &AppError{Code: KindConsistency, Message: "Transaction sequence number already used for this instant"}
)

// Storage errors. The whole unit is rolled back; the transaction is eligible
// for retry from Pending.
var (
	ErrStorage = &AppError{Code: KindStorage, Message: "Ledger storage operation failed"}
)
