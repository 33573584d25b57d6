package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/numrent/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/numrent/internal/account"
	"github.com/MrJamesThe3rd/numrent/internal/config"
	"github.com/MrJamesThe3rd/numrent/internal/database"
	"github.com/MrJamesThe3rd/numrent/internal/dispute"
	"github.com/MrJamesThe3rd/numrent/internal/escrow"
	ledgerStore "github.com/MrJamesThe3rd/numrent/internal/ledger/store"
	"github.com/MrJamesThe3rd/numrent/internal/listing"
	"github.com/MrJamesThe3rd/numrent/internal/notify"
)

type model struct {
	accountService *account.Service
	listingService *listing.Service
	escrowService  *escrow.Service
	disputeService *dispute.Service

	currentView View
	width       int
	height      int

	disputesView     view.DisputesModel
	listingsView     view.ListingsModel
	transactionsView view.TransactionsModel
	creditView       view.CreditModel
}

type View int

const (
	ViewMenu         View = 0
	ViewDisputes     View = 1
	ViewListings     View = 2
	ViewTransactions View = 3
	ViewCredit       View = 4
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Store.Kind != config.StorePostgres {
		slog.Error("the admin console needs STORE=postgres to see the API's data")
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Console output would corrupt the screen, so service logs and party
	// notifications are discarded unless a bot token is configured.
	logger := slog.New(slog.DiscardHandler)

	var notifier notify.Notifier = notify.NewLog(logger)
	if cfg.Telegram.BotToken != "" {
		notifier = notify.NewTelegram(cfg.Telegram.BaseURL, cfg.Telegram.BotToken)
	}

	store := ledgerStore.New(db)

	accountSvc := account.NewService(store, logger)
	listingSvc := listing.NewService(store, logger).WithPageSize(cfg.Market.PageSize)
	escrowSvc := escrow.NewService(store, notifier, logger)
	disputeSvc := dispute.NewService(store, escrowSvc, notifier, cfg.Telegram.AdminIDs, logger)

	return model{
		accountService:   accountSvc,
		listingService:   listingSvc,
		escrowService:    escrowSvc,
		disputeService:   disputeSvc,
		currentView:      ViewMenu,
		disputesView:     view.NewDisputesModel(disputeSvc),
		listingsView:     view.NewListingsModel(listingSvc),
		transactionsView: view.NewTransactionsModel(escrowSvc),
		creditView:       view.NewCreditModel(accountSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

// resize replays the last window size so a freshly built view lays out correctly.
func (m model) resize() tea.Cmd {
	if m.width == 0 {
		return nil
	}

	return func() tea.Msg { return tea.WindowSizeMsg{Width: m.width, Height: m.height} }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewDisputes
				m.disputesView = view.NewDisputesModel(m.disputeService)

				return m, tea.Batch(m.disputesView.Init(), m.resize())
			case "2":
				m.currentView = ViewListings
				m.listingsView = view.NewListingsModel(m.listingService)

				return m, tea.Batch(m.listingsView.Init(), m.resize())
			case "3":
				m.currentView = ViewTransactions
				m.transactionsView = view.NewTransactionsModel(m.escrowService)

				return m, tea.Batch(m.transactionsView.Init(), m.resize())
			case "4":
				m.currentView = ViewCredit
				m.creditView = view.NewCreditModel(m.accountService)

				return m, m.creditView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewDisputes:
		var newModel tea.Model
		newModel, cmd = m.disputesView.Update(msg)
		m.disputesView = newModel.(view.DisputesModel)
	case ViewListings:
		var newModel tea.Model
		newModel, cmd = m.listingsView.Update(msg)
		m.listingsView = newModel.(view.ListingsModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.transactionsView.Update(msg)
		m.transactionsView = newModel.(view.TransactionsModel)
	case ViewCredit:
		var newModel tea.Model
		newModel, cmd = m.creditView.Update(msg)
		m.creditView = newModel.(view.CreditModel)
	}

	return m, cmd
}

func (m model) current() view.View {
	switch m.currentView {
	case ViewDisputes:
		return m.disputesView
	case ViewListings:
		return m.listingsView
	case ViewTransactions:
		return m.transactionsView
	case ViewCredit:
		return m.creditView
	}

	return nil
}

func (m model) View() string {
	if m.currentView == ViewMenu {
		return lipgloss.NewStyle().Padding(2).Render(
			"NumRent Admin\n\n" +
				"1. Disputes\n" +
				"2. Browse Listings\n" +
				"3. Transactions\n" +
				"4. Credit Account\n\n" +
				"q. Quit",
		)
	}

	v := m.current()
	if v == nil {
		return "Unknown View"
	}

	title := lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(v.Title())
	help := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(v.ShortHelp())

	return lipgloss.JoinVertical(lipgloss.Left, title, v.View(), help)
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
