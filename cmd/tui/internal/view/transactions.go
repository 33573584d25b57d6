package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/numrent/internal/escrow"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

type txState int

const (
	txStateBrowse txState = iota
	txStateConfirm
)

var txStatuses = []*ledger.TransactionStatus{
	nil,
	new(ledger.TransactionPending),
	new(ledger.TransactionDisputed),
	new(ledger.TransactionCompleted),
	new(ledger.TransactionRefunded),
}

// TransactionsModel lists purchases and lets an operator settle pending ones by hand.
type TransactionsModel struct {
	CommonModel
	escrowService *escrow.Service

	state txState
	table table.Model
	txs   []*ledger.Transaction
	form  *huh.Form

	statusFilterIdx int
	settleTo        ledger.TransactionStatus

	loading bool
	err     error
	status  string
}

func NewTransactionsModel(svc *escrow.Service) TransactionsModel {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Created", Width: 17},
		{Title: "Status", Width: 10},
		{Title: "Amount", Width: 14},
		{Title: "Buyer", Width: 12},
		{Title: "Seller", Width: 12},
		{Title: "Expires", Width: 17},
	}

	return TransactionsModel{
		escrowService: svc,
		table:         newTable(columns),
		loading:       true,
	}
}

func (m TransactionsModel) Title() string { return "Transactions" }

func (m TransactionsModel) ShortHelp() string {
	if m.state == txStateConfirm {
		return "Enter: choose | Esc: cancel"
	}

	return "Esc: back | p: pay seller | f: refund buyer | s: status filter | r: refresh"
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTxsMsg:
		m.loading = false
		m.err = msg.err
		m.txs = msg.txs
		m.refreshTable()

		return m, nil

	case settleMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Transaction %s is now %s", ShortID(msg.tx.ID), msg.tx.Status)
		}

		m.state = txStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 10)

		return m, nil
	}

	if m.state == txStateConfirm {
		return m.updateConfirm(msg)
	}

	return m.updateBrowse(msg)
}

func (m TransactionsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(txStatuses)
			m.loading = true

			return m, m.loadCmd()
		case "p":
			return m.askConfirm(ledger.TransactionCompleted)
		case "f":
			return m.askConfirm(ledger.TransactionRefunded)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m TransactionsModel) selected() *ledger.Transaction {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	return m.txs[idx]
}

func (m TransactionsModel) askConfirm(to ledger.TransactionStatus) (tea.Model, tea.Cmd) {
	t := m.selected()
	if t == nil {
		return m, nil
	}

	if t.Status != ledger.TransactionPending {
		m.status = fmt.Sprintf("Only pending transactions can be settled here, %s is %s", ShortID(t.ID), t.Status)
		return m, nil
	}

	title := fmt.Sprintf("Release %s to seller %d?", FormatAmount(t.Amount), t.SellerID)
	if to == ledger.TransactionRefunded {
		title = fmt.Sprintf("Refund %s to buyer %d?", FormatAmount(t.Amount), t.BuyerID)
	}

	m.settleTo = to
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(title).
				Affirmative("Yes").
				Negative("No"),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = txStateConfirm
	m.table.Blur()

	return m, m.form.Init()
}

func (m TransactionsModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = txStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !m.form.GetBool("confirm") {
		m.state = txStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	return m, m.settleCmd()
}

func (m TransactionsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	label := "All"
	if s := txStatuses[m.statusFilterIdx]; s != nil {
		label = string(*s)
	}

	header := fmt.Sprintf("Filter: [s] Status: %s | %d shown", activeStyle(label), len(m.txs))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableBox(m.table),
	)

	if m.state == txStateConfirm && m.form != nil {
		if t := m.selected(); t != nil {
			body := fmt.Sprintf("Listing: %s\nCreated: %s\n\n%s", t.ListingID, FormatTime(t.CreatedAt), m.form.View())
			content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel("Settle "+ShortID(t.ID), body))
		}
	}

	if m.status != "" {
		content = faint(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *TransactionsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, t := range m.txs {
		rows = append(rows, table.Row{
			ShortID(t.ID),
			FormatTime(t.CreatedAt),
			string(t.Status),
			FormatAmount(t.Amount),
			formatUser(t.BuyerID),
			formatUser(t.SellerID),
			FormatTime(t.ExpiresAt),
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Messages

type loadTxsMsg struct {
	txs []*ledger.Transaction
	err error
}

func (m TransactionsModel) loadCmd() tea.Cmd {
	filter := ledger.TransactionFilter{Status: txStatuses[m.statusFilterIdx], Limit: 200}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.escrowService.List(ctx, filter)

		return loadTxsMsg{txs: txs, err: err}
	}
}

type settleMsg struct {
	tx  *ledger.Transaction
	err error
}

func (m TransactionsModel) settleCmd() tea.Cmd {
	t := m.selected()
	if t == nil {
		return nil
	}

	id := t.ID
	settle := m.escrowService.MarkCompleted
	if m.settleTo == ledger.TransactionRefunded {
		settle = m.escrowService.Refund
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := settle(ctx, id)

		return settleMsg{tx: res, err: err}
	}
}
