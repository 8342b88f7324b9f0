// Seed populates the ledger with a small demonstration book. Portfolios are
// inserted directly (account opening sits outside the core), but every
// trade runs through the transaction processor so seeded state carries a
// complete audit trail.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"portledger/internal/config"
	"portledger/internal/database"
	"portledger/internal/logger"
	"portledger/internal/models"
	"portledger/internal/services"
)

const seedUser = "SEEDER"

type seedTrade struct {
	investmentID string
	quantity     string
	price        string
	marketValue  string
}

type seedBook struct {
	portfolio models.Portfolio
	cash      string
	trades    []seedTrade
}

var books = []seedBook{
	{
		portfolio: models.Portfolio{
			PortID:     "PORT0001",
			AccountNo:  "1234567890",
			ClientName: "John Smith",
			ClientType: models.ClientTypeIndividual,
			Status:     models.PortfolioStatusActive,
		},
		cash: "252.00",
		trades: []seedTrade{
			{investmentID: "AAPL", quantity: "150", price: "170.00", marketValue: "27787.50"},
			{investmentID: "MSFT", quantity: "80", price: "395.50", marketValue: "33340.00"},
		},
	},
	{
		portfolio: models.Portfolio{
			PortID:     "PORT0002",
			AccountNo:  "2345678901",
			ClientName: "Acme Holdings LLC",
			ClientType: models.ClientTypeCorporate,
			Status:     models.PortfolioStatusActive,
		},
		cash: "15000.00",
		trades: []seedTrade{
			{investmentID: "VTI", quantity: "500", price: "242.10", marketValue: "124500.00"},
		},
	},
}

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Seed error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager, err := database.NewManager(cfg)
	if err != nil {
		return err
	}
	db := manager.DB()

	if cfg.DBDriver == "sqlite" {
		if err := db.AutoMigrate(&models.Portfolio{}, &models.Position{}, &models.Transaction{}, &models.History{}); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	audit := services.NewAuditService(db)
	ledger := services.NewLedgerService(db, audit, services.NewReconciler(audit), services.NewValuator())
	valuator := services.NewValuator()

	for _, book := range books {
		if err := seedOne(db, audit, ledger, valuator, book); err != nil {
			return err
		}
	}

	logger.Get().Infof("Seeded %d portfolios", len(books))
	return nil
}

func seedOne(db *gorm.DB, audit services.AuditServicer, ledger services.LedgerServicer, valuator services.Valuator, book seedBook) error {
	log := logger.Get()

	var existing models.Portfolio
	if err := db.Where("port_id = ?", book.portfolio.PortID).First(&existing).Error; err == nil {
		log.Infow("portfolio already seeded, skipping", "port_id", book.portfolio.PortID)
		return nil
	}

	portfolio := book.portfolio
	portfolio.TotalValue = decimal.Zero
	portfolio.CashBalance = decimal.RequireFromString(book.cash)
	portfolio.StampMaintenance(seedUser, "")

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&portfolio).Error; err != nil {
			return err
		}
		return audit.Record(tx, portfolio.PortID, models.RecordTypePortfolio, models.ActionAdded,
			nil, portfolio.Snapshot(), models.ReasonSeed, seedUser)
	})
	if err != nil {
		return fmt.Errorf("failed to seed portfolio %s: %w", portfolio.PortID, err)
	}

	dateKey := models.DateKey(time.Now())
	for _, trade := range book.trades {
		quantity := decimal.RequireFromString(trade.quantity)
		price := decimal.RequireFromString(trade.price)

		txn := &models.Transaction{
			Date:         dateKey,
			Time:         models.TimeKey(time.Now()),
			PortfolioID:  portfolio.PortID,
			InvestmentID: trade.investmentID,
			Type:         models.TransactionTypeBuy,
			Quantity:     quantity,
			Price:        price,
			Amount:       quantity.Mul(price).Round(2),
			Currency:     "USD",
		}
		if result := ledger.ProcessTransaction(txn, seedUser); !result.Success {
			return fmt.Errorf("failed to seed trade %s/%s: %v", portfolio.PortID, trade.investmentID, result.Errors)
		}

		// stamp a market value on the new position; pricing stays outside
		// the core, so the seed supplies it and audits the change
		marketValue := decimal.RequireFromString(trade.marketValue)
		err := db.Transaction(func(tx *gorm.DB) error {
			var position models.Position
			if err := tx.Where("portfolio_id = ? AND date = ? AND investment_id = ?",
				portfolio.PortID, dateKey, trade.investmentID).First(&position).Error; err != nil {
				return err
			}
			before := position.Snapshot()
			position.MarketValue = marketValue
			position.LastMaintDate = time.Now()
			position.LastMaintUser = seedUser
			if err := tx.Save(&position).Error; err != nil {
				return err
			}
			if err := audit.Record(tx, portfolio.PortID, models.RecordTypePosition, models.ActionChanged,
				before, position.Snapshot(), models.ReasonSeed, seedUser); err != nil {
				return err
			}

			var fresh models.Portfolio
			if err := tx.Where("port_id = ?", portfolio.PortID).First(&fresh).Error; err != nil {
				return err
			}
			if _, err := valuator.Revalue(tx, &fresh); err != nil {
				return err
			}
			return tx.Save(&fresh).Error
		})
		if err != nil {
			return fmt.Errorf("failed to stamp market value for %s/%s: %w", portfolio.PortID, trade.investmentID, err)
		}
	}

	log.Infow("seeded portfolio",
		"port_id", portfolio.PortID,
		"account_no", portfolio.AccountNo,
		"trades", len(book.trades),
	)
	return nil
}
