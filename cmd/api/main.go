package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/jpvalente/tally/internal/config"
	"github.com/jpvalente/tally/internal/currency"
	currencyStore "github.com/jpvalente/tally/internal/currency/store"
	"github.com/jpvalente/tally/internal/database"
	tallyHttp "github.com/jpvalente/tally/internal/http"
	currencyHandler "github.com/jpvalente/tally/internal/http/currency"
	importHandler "github.com/jpvalente/tally/internal/http/importfile"
	rulesHandler "github.com/jpvalente/tally/internal/http/rules"
	txHandler "github.com/jpvalente/tally/internal/http/transaction"
	"github.com/jpvalente/tally/internal/ledger"
	ledgerStore "github.com/jpvalente/tally/internal/ledger/store"
	"github.com/jpvalente/tally/internal/rules"
	rulesStore "github.com/jpvalente/tally/internal/rules/store"
	"github.com/jpvalente/tally/internal/statement"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), database.Config{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		ledgerService   = ledger.NewService(ledgerStore.New(db))
		currencyService = currency.NewService(currencyStore.New(db))
		rulesService    = rules.NewService(rulesStore.New(db))
		committer       = statement.NewCommitter(ledgerService, rulesService)
	)

	detectCfg := statement.DetectConfig{
		Tolerance:  cfg.Import.TransferTolerance,
		WindowDays: cfg.Import.TransferWindowDays,
	}

	var (
		transactionH = txHandler.NewHandler(ledgerService)
		importH      = importHandler.NewHandler(currencyService, ledgerService, committer, detectCfg)
		currencyH    = currencyHandler.NewHandler(currencyService)
		rulesH       = rulesHandler.NewHandler(rulesService)
	)

	router := tallyHttp.New(transactionH, importH, currencyH, rulesH, tallyHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
	})

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
