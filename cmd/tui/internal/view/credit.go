package view

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/numrent/internal/account"
	"github.com/MrJamesThe3rd/numrent/internal/money"
)

type creditState int

const (
	creditStateForm creditState = iota
	creditStateSaving
	creditStateDone
)

// CreditModel tops up an account balance by hand, e.g. after an off-platform payment.
type CreditModel struct {
	CommonModel
	accountService *account.Service

	state  creditState
	form   *huh.Form
	result string
}

func NewCreditModel(svc *account.Service) CreditModel {
	return CreditModel{
		accountService: svc,
		form:           newCreditForm(),
	}
}

func newCreditForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("user").
				Title("Telegram user ID").
				Validate(func(s string) error {
					if _, err := parseUserID(s); err != nil {
						return fmt.Errorf("enter a numeric user id")
					}
					return nil
				}),

			huh.NewInput().
				Key("amount").
				Title("Amount (USDT)").
				Placeholder("10.00").
				Validate(func(s string) error {
					_, err := money.ParsePositive(s)
					return err
				}),

			huh.NewConfirm().
				Key("confirm").
				Title("Credit this account?").
				Affirmative("Yes").
				Negative("No"),
		),
	).WithWidth(45).WithShowHelp(false)
}

func parseUserID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func (m CreditModel) Title() string { return "Credit Account" }

func (m CreditModel) ShortHelp() string {
	if m.state == creditStateDone {
		return "Esc: back | n: credit another"
	}

	return "Esc: back | Enter/Tab: navigate form"
}

func (m CreditModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m CreditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case creditMsg:
		m.state = creditStateDone
		if msg.err != nil {
			m.result = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.result = fmt.Sprintf("Credited %s to %d. Balance: %s", FormatAmount(msg.amount), msg.userID, FormatAmount(msg.balance))
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

		if m.state == creditStateDone && msg.String() == "n" {
			m.state = creditStateForm
			m.result = ""
			m.form = newCreditForm()

			return m, m.form.Init()
		}
	}

	if m.state != creditStateForm {
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
		m.state = creditStateDone
		m.result = "Cancelled."

		return m, nil
	}

	m.state = creditStateSaving

	return m, m.creditCmd()
}

func (m CreditModel) View() string {
	switch m.state {
	case creditStateSaving:
		return lipgloss.NewStyle().Padding(2).Render("Crediting account...")
	case creditStateDone:
		return lipgloss.NewStyle().Padding(2).Render(m.result + "\n\n" + faint(m.ShortHelp()))
	}

	return lipgloss.NewStyle().Padding(1).Render(panel("Manual credit", m.form.View()))
}

// Messages

type creditMsg struct {
	userID  int64
	amount  int64
	balance int64
	err     error
}

func (m CreditModel) creditCmd() tea.Cmd {
	userID, err := parseUserID(m.form.GetString("user"))
	if err != nil {
		return func() tea.Msg { return creditMsg{err: err} }
	}

	amount, err := money.ParsePositive(m.form.GetString("amount"))
	if err != nil {
		return func() tea.Msg { return creditMsg{err: err} }
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		balance, err := m.accountService.Credit(ctx, userID, amount)

		return creditMsg{userID: userID, amount: amount, balance: balance, err: err}
	}
}
