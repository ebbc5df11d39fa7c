package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/jpvalente/tally/cmd/tui/internal/view"
	"github.com/jpvalente/tally/internal/config"
	"github.com/jpvalente/tally/internal/currency"
	currencyStore "github.com/jpvalente/tally/internal/currency/store"
	"github.com/jpvalente/tally/internal/database"
	"github.com/jpvalente/tally/internal/ledger"
	ledgerStore "github.com/jpvalente/tally/internal/ledger/store"
	"github.com/jpvalente/tally/internal/rules"
	rulesStore "github.com/jpvalente/tally/internal/rules/store"
	"github.com/jpvalente/tally/internal/statement"
)

type model struct {
	ledgerService   *ledger.Service
	currencyService *currency.Service
	committer       *statement.Committer
	detectCfg       statement.DetectConfig
	tickers         map[uuid.UUID]string

	currentView View

	importView view.ImportModel
	listView   view.TransactionsModel
}

type View int

const (
	ViewMenu   View = 0
	ViewImport View = 1
	ViewList   View = 2
)

func initialModel() model {
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

	ledgerSvc := ledger.NewService(ledgerStore.New(db))
	currencySvc := currency.NewService(currencyStore.New(db))
	rulesSvc := rules.NewService(rulesStore.New(db))
	committer := statement.NewCommitter(ledgerSvc, rulesSvc)

	detectCfg := statement.DetectConfig{
		Tolerance:  cfg.Import.TransferTolerance,
		WindowDays: cfg.Import.TransferWindowDays,
	}

	tickers := loadTickers(currencySvc)

	return model{
		ledgerService:   ledgerSvc,
		currencyService: currencySvc,
		committer:       committer,
		detectCfg:       detectCfg,
		tickers:         tickers,
		currentView:     ViewMenu,
		importView:      view.NewImportModel(ledgerSvc, currencySvc, committer, detectCfg),
		listView:        view.NewTransactionsModel(ledgerSvc, tickers),
	}
}

func loadTickers(currencySvc *currency.Service) map[uuid.UUID]string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tickers := make(map[uuid.UUID]string)

	currencies, err := currencySvc.List(ctx)
	if err != nil {
		slog.Warn("failed to load currencies", "error", err)
		return tickers
	}

	for _, c := range currencies {
		tickers[c.ID] = c.Ticker
	}

	return tickers
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.ledgerService, m.currencyService, m.committer, m.detectCfg)

				return m, m.importView.Init()
			case "2":
				m.currentView = ViewList
				m.listView = view.NewTransactionsModel(m.ledgerService, m.tickers)

				return m, m.listView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.TransactionsModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Tally TUI\n\n" +
				"1. Import Statements\n" +
				"2. List Transactions\n\n" +
				"q. Quit",
		)
	case ViewImport:
		return m.importView.View()
	case ViewList:
		return m.listView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
