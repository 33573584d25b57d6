package view

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/listing"
)

const maxListingRows = 200

var listingOrders = []ledger.ListingOrder{ledger.OrderNewest, ledger.OrderPriceAsc, ledger.OrderPriceDesc}

type ListingsModel struct {
	CommonModel
	listingService *listing.Service

	table    table.Model
	listings []*ledger.Listing

	// Filter cycling; serviceIdx 0 means every service.
	serviceIdx int
	orderIdx   int

	loading bool
	err     error
}

func NewListingsModel(svc *listing.Service) ListingsModel {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Listed", Width: 17},
		{Title: "Service", Width: 12},
		{Title: "Hours", Width: 6},
		{Title: "Price", Width: 14},
		{Title: "Seller", Width: 12},
	}

	return ListingsModel{
		listingService: svc,
		table:          newTable(columns),
		loading:        true,
	}
}

func (m ListingsModel) Title() string { return "Listings" }

func (m ListingsModel) ShortHelp() string {
	return "Esc: back | s: service filter | o: order | r: refresh"
}

func (m ListingsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ListingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListingsMsg:
		m.loading = false
		m.err = msg.err
		m.listings = msg.listings
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 10)

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.serviceIdx = (m.serviceIdx + 1) % (len(ledger.Services) + 1)
			m.loading = true

			return m, m.loadCmd()
		case "o":
			m.orderIdx = (m.orderIdx + 1) % len(listingOrders)
			m.loading = true

			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ListingsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading listings...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	service := "All"
	if svc := m.service(); svc != nil {
		service = string(*svc)
	}

	header := fmt.Sprintf(
		"Filter: [s] Service: %s | [o] Order: %s | %d active",
		activeStyle(service),
		activeStyle(string(listingOrders[m.orderIdx])),
		len(m.listings),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableBox(m.table),
	)

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m ListingsModel) service() *ledger.Service {
	if m.serviceIdx == 0 {
		return nil
	}

	return &ledger.Services[m.serviceIdx-1]
}

func (m *ListingsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.listings))
	for _, l := range m.listings {
		rows = append(rows, table.Row{
			ShortID(l.ID),
			FormatTime(l.CreatedAt),
			string(l.Service),
			strconv.Itoa(l.DurationHours),
			FormatAmount(l.Price),
			formatUser(l.SellerID),
		})
	}

	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

// Messages

type loadListingsMsg struct {
	listings []*ledger.Listing
	err      error
}

func (m ListingsModel) loadCmd() tea.Cmd {
	filter := listing.Filter{Service: m.service()}
	order := listingOrders[m.orderIdx]

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var listings []*ledger.Listing

		for l, err := range m.listingService.FindActive(ctx, filter, order) {
			if err != nil {
				return loadListingsMsg{err: err}
			}

			listings = append(listings, l)
			if len(listings) == maxListingRows {
				break
			}
		}

		return loadListingsMsg{listings: listings}
	}
}
