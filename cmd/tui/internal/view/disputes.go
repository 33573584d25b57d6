package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/numrent/internal/dispute"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

type disputeState int

const (
	disputeStateBrowse disputeState = iota
	disputeStateConfirm
)

var disputeStatuses = []*ledger.DisputeStatus{
	new(ledger.DisputeOpen),
	new(ledger.DisputeResolved),
	new(ledger.DisputeClosed),
	nil,
}

// disputeAction is a pending admin decision awaiting confirmation.
type disputeAction struct {
	label   string
	outcome ledger.Outcome // empty closes the dispute
}

type DisputesModel struct {
	CommonModel
	disputeService *dispute.Service

	state    disputeState
	table    table.Model
	disputes []*ledger.Dispute
	form     *huh.Form

	statusFilterIdx int
	pending         disputeAction

	loading bool
	err     error
	status  string
}

func NewDisputesModel(svc *dispute.Service) DisputesModel {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Opened", Width: 17},
		{Title: "Status", Width: 10},
		{Title: "Transaction", Width: 12},
		{Title: "Initiator", Width: 12},
		{Title: "Outcome", Width: 14},
	}

	return DisputesModel{
		disputeService: svc,
		table:          newTable(columns),
		loading:        true,
	}
}

func (m DisputesModel) Title() string { return "Disputes" }

func (m DisputesModel) ShortHelp() string {
	if m.state == disputeStateConfirm {
		return "Enter: choose | Esc: cancel"
	}

	return "Esc: back | b: refund buyer | v: pay seller | c: close | s: status filter | r: refresh"
}

func (m DisputesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DisputesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDisputesMsg:
		m.loading = false
		m.err = msg.err
		m.disputes = msg.disputes
		m.refreshTable()

		return m, nil

	case disputeActionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Dispute %s is now %s", ShortID(msg.dispute.ID), msg.dispute.Status)
		}

		m.state = disputeStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 12)

		return m, nil
	}

	if m.state == disputeStateConfirm {
		return m.updateConfirm(msg)
	}

	return m.updateBrowse(msg)
}

func (m DisputesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % len(disputeStatuses)
			m.loading = true

			return m, m.loadCmd()
		case "b":
			return m.askConfirm(disputeAction{label: "Refund the buyer", outcome: ledger.FavorBuyer})
		case "v":
			return m.askConfirm(disputeAction{label: "Release funds to the seller", outcome: ledger.FavorSeller})
		case "c":
			return m.askConfirm(disputeAction{label: "Close without a decision"})
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DisputesModel) selected() *ledger.Dispute {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.disputes) {
		return nil
	}

	return m.disputes[idx]
}

func (m DisputesModel) askConfirm(action disputeAction) (tea.Model, tea.Cmd) {
	d := m.selected()
	if d == nil {
		return m, nil
	}

	if d.Status != ledger.DisputeOpen {
		m.status = fmt.Sprintf("Dispute %s is already %s", ShortID(d.ID), d.Status)
		return m, nil
	}

	m.pending = action
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(action.label + "?").
				Affirmative("Yes").
				Negative("No"),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = disputeStateConfirm
	m.table.Blur()

	return m, m.form.Init()
}

func (m DisputesModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = disputeStateBrowse
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
		m.state = disputeStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	return m, m.actionCmd()
}

func (m DisputesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading disputes...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	label := "All"
	if s := disputeStatuses[m.statusFilterIdx]; s != nil {
		label = string(*s)
	}

	header := fmt.Sprintf("Filter: [s] Status: %s | %d shown", activeStyle(label), len(m.disputes))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableBox(m.table),
	)

	if d := m.selected(); d != nil {
		body := fmt.Sprintf("Transaction: %s\nInitiator: %d\n\n%s", d.TransactionID, d.InitiatorID, d.Description)
		if m.state == disputeStateConfirm && m.form != nil {
			body += "\n\n" + m.form.View()
		}

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel("Dispute "+ShortID(d.ID), body))
	}

	if m.status != "" {
		content = faint(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *DisputesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.disputes))
	for _, d := range m.disputes {
		outcome := ""
		if d.Outcome != nil {
			outcome = string(*d.Outcome)
		}

		rows = append(rows, table.Row{
			ShortID(d.ID),
			FormatTime(d.CreatedAt),
			string(d.Status),
			ShortID(d.TransactionID),
			formatUser(d.InitiatorID),
			outcome,
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Messages

type loadDisputesMsg struct {
	disputes []*ledger.Dispute
	err      error
}

func (m DisputesModel) loadCmd() tea.Cmd {
	filter := ledger.DisputeFilter{Status: disputeStatuses[m.statusFilterIdx], Limit: 200}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		disputes, err := m.disputeService.List(ctx, filter)

		return loadDisputesMsg{disputes: disputes, err: err}
	}
}

type disputeActionMsg struct {
	dispute *ledger.Dispute
	err     error
}

func (m DisputesModel) actionCmd() tea.Cmd {
	d := m.selected()
	if d == nil {
		return nil
	}

	id := d.ID
	action := m.pending

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var (
			res *ledger.Dispute
			err error
		)

		if action.outcome == "" {
			res, err = m.disputeService.Close(ctx, id)
		} else {
			res, err = m.disputeService.Resolve(ctx, id, action.outcome)
		}

		return disputeActionMsg{dispute: res, err: err}
	}
}
