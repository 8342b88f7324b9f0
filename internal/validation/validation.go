// Package validation provides the pure format checks consumed by callers
// before invoking core mutators, plus structural validation of submitted
// transactions. Nothing here touches storage.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"portledger/internal/models"
)

var (
	portfolioIDRegex = regexp.MustCompile(`^PORT[0-9]{4}$`)
	accountNoRegex   = regexp.MustCompile(`^[0-9]{10}$`)
	dateKeyRegex     = regexp.MustCompile(`^[0-9]{8}$`)
	timeKeyRegex     = regexp.MustCompile(`^[0-9]{6}$`)
)

// Amount bounds of the fixed-width numeric(15,2) contract.
var (
	minAmount = decimal.RequireFromString("-9999999999999.99")
	maxAmount = decimal.RequireFromString("9999999999999.99")
)

// validInvestmentTypes are the instrument classification codes.
var validInvestmentTypes = map[string]bool{
	"STK": true, "BND": true, "MMF": true, "ETF": true,
}

// validate is the shared validator instance with domain rules registered.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("txn_type", func(fl validator.FieldLevel) bool {
		switch models.TransactionType(fl.Field().String()) {
		case models.TransactionTypeBuy, models.TransactionTypeSell,
			models.TransactionTypeTransfer, models.TransactionTypeFee:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("txn_status", func(fl validator.FieldLevel) bool {
		switch models.TransactionStatus(fl.Field().String()) {
		case models.TransactionStatusPending, models.TransactionStatusDone,
			models.TransactionStatusFailed, models.TransactionStatusReversed:
			return true
		}
		return false
	})
	return v
}

// ValidatePortfolioID checks the 8-character PORTnnnn format.
func ValidatePortfolioID(portfolioID string) (bool, string) {
	if len(portfolioID) != 8 {
		return false, "Portfolio ID must be exactly 8 characters"
	}
	if !strings.HasPrefix(portfolioID, "PORT") {
		return false, "Portfolio ID must start with 'PORT'"
	}
	if !portfolioIDRegex.MatchString(portfolioID) {
		return false, "Portfolio ID must have 4 numeric digits after 'PORT'"
	}
	return true, "Valid portfolio ID"
}

// ValidateAccountNumber checks the 10-digit, not-all-zeros account format.
func ValidateAccountNumber(accountNo string) (bool, string) {
	if !accountNoRegex.MatchString(accountNo) {
		return false, "Account number must be exactly 10 digits"
	}
	if accountNo == "0000000000" {
		return false, "Account number cannot be all zeros"
	}
	return true, "Valid account number"
}

// ValidateInvestmentType checks the instrument classification code.
func ValidateInvestmentType(investmentType string) (bool, string) {
	if investmentType == "" {
		return false, "Investment type is required"
	}
	if !validInvestmentTypes[investmentType] {
		return false, "Investment type must be one of: BND, ETF, MMF, STK"
	}
	return true, "Valid investment type"
}

// ValidateAmount checks the numeric(15,2) range.
func ValidateAmount(amount decimal.Decimal) (bool, string) {
	if amount.LessThan(minAmount) || amount.GreaterThan(maxAmount) {
		return false, fmt.Sprintf("Amount must be between %s and %s", minAmount, maxAmount)
	}
	return true, "Valid amount"
}

// ValidateTransaction runs every structural check against a submitted
// transaction and returns the full list of human-readable violations.
// An empty slice means the transaction is acceptable for processing.
func ValidateTransaction(txn *models.Transaction) []string {
	var errs []string

	if ok, reason := ValidatePortfolioID(txn.PortfolioID); !ok {
		errs = append(errs, reason)
	}
	if !dateKeyRegex.MatchString(txn.Date) {
		errs = append(errs, "Transaction date must be 8 digits (yyyymmdd)")
	}
	if !timeKeyRegex.MatchString(txn.Time) {
		errs = append(errs, "Transaction time must be 6 digits (hhmmss)")
	}
	if err := validate.Var(string(txn.Type), "required,txn_type"); err != nil {
		errs = append(errs, "Transaction type must be one of: BU, SL, TR, FE")
	}
	if err := validate.Var(txn.Currency, "required,len=3,alpha"); err != nil {
		errs = append(errs, "Currency must be a 3-letter code")
	}
	if ok, reason := ValidateAmount(txn.Amount); !ok {
		errs = append(errs, reason)
	}

	switch txn.Type {
	case models.TransactionTypeBuy, models.TransactionTypeSell:
		if err := validate.Var(txn.InvestmentID, "required,max=10"); err != nil {
			errs = append(errs, "Investment ID is required for buy and sell transactions")
		}
		if !txn.Quantity.IsPositive() {
			errs = append(errs, "Quantity must be positive for buy and sell transactions")
		}
		if !txn.Price.IsPositive() {
			errs = append(errs, "Price must be positive for buy and sell transactions")
		}
		// amount = quantity x price, at the cent precision of the amount column
		if txn.Quantity.IsPositive() && txn.Price.IsPositive() {
			expected := txn.Quantity.Mul(txn.Price).Round(2)
			if !txn.Amount.Round(2).Equal(expected) {
				errs = append(errs, fmt.Sprintf("Amount %s does not equal quantity times price (%s)",
					txn.Amount.StringFixed(2), expected.StringFixed(2)))
			}
		}
	case models.TransactionTypeFee, models.TransactionTypeTransfer:
		if txn.InvestmentID != "" {
			errs = append(errs, "Investment ID must be absent for fee and transfer transactions")
		}
	}

	return errs
}
