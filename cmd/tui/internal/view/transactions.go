package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/ledger"
)

type txState int

const (
	txStateList txState = iota
	txStateRecategorizing
)

// txItem wraps a transaction to implement list.Item.
type txItem struct {
	tx     *ledger.Transaction
	ticker string
}

func (i txItem) Title() string {
	category := lipgloss.NewStyle().Faint(true).Render(categoryLabel(i.tx.CategoryID))

	return fmt.Sprintf("%s  %12s  %s  %s",
		FormatDate(i.tx.Date), FormatAmount(i.tx.Value, i.ticker), category, i.tx.Reference)
}

func (i txItem) Description() string {
	if i.tx.Balance != nil {
		return fmt.Sprintf("Balance: %s", FormatAmount(*i.tx.Balance, i.ticker))
	}

	return ""
}

func (i txItem) FilterValue() string { return i.tx.Reference }

func categoryLabel(id uuid.UUID) string {
	switch id {
	case ledger.CategoryUncategorized:
		return "[uncategorized]"
	case ledger.CategoryTransfer:
		return "[transfer]"
	}

	return "[" + id.String()[:8] + "]"
}

// TransactionsModel lists committed transactions with delete and
// recategorize actions.
type TransactionsModel struct {
	CommonModel
	ledgerService *ledger.Service

	state      txState
	list       list.Model
	form       *huh.Form
	selectedTx *ledger.Transaction
	tickers    map[uuid.UUID]string

	loading bool
	status  string

	formCategory string
}

func NewTransactionsModel(ledgerSvc *ledger.Service, tickers map[uuid.UUID]string) TransactionsModel {
	l := list.New([]list.Item{}, txItemDelegate{}, 0, 0)
	l.Title = "Transactions"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(true)

	return TransactionsModel{
		ledgerService: ledgerSvc,
		tickers:       tickers,
		list:          l,
		loading:       true,
	}
}

func (m TransactionsModel) Title() string { return "List Transactions" }

func (m TransactionsModel) ShortHelp() string {
	switch m.state {
	case txStateRecategorizing:
		return "Esc: cancel | Enter: save"
	}

	return "Esc: back | c: recategorize | d: delete | /: filter"
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.loadTxsCmd()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTxsMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		items := make([]list.Item, len(msg.txs))
		for i, tx := range msg.txs {
			items[i] = txItem{tx: tx, ticker: m.tickers[tx.CurrencyID]}
		}

		m.list.SetItems(items)

		if len(msg.txs) == 0 {
			m.status = "No transactions found."
		}

		return m, nil

	case txActionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.status = msg.status
		}

		m.state = txStateList

		return m, m.loadTxsCmd()

	case tea.WindowSizeMsg:
		m.SetSize(msg)
		m.list.SetSize(msg.Width-4, msg.Height-8)

		return m, nil
	}

	switch m.state {
	case txStateList:
		return m.updateList(msg)
	case txStateRecategorizing:
		return m.updateRecategorizing(msg)
	}

	return m, nil
}

func (m TransactionsModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.list.FilterState() != list.Filtering {
			switch keyMsg.String() {
			case "esc":
				return m, Back
			case "c":
				return m.startRecategorizing()
			case "d":
				if item, ok := m.list.SelectedItem().(txItem); ok {
					return m, m.deleteTxCmd(item.tx.ID)
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m TransactionsModel) startRecategorizing() (tea.Model, tea.Cmd) {
	selected, ok := m.list.SelectedItem().(txItem)
	if !ok {
		return m, nil
	}

	m.selectedTx = selected.tx
	m.formCategory = selected.tx.CategoryID.String()

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("category").
				Title("Category ID").
				Value(&m.formCategory).
				Validate(func(s string) error {
					_, err := uuid.Parse(strings.TrimSpace(s))
					return err
				}),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = txStateRecategorizing

	return m, m.form.Init()
}

func (m TransactionsModel) updateRecategorizing(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = txStateList
			m.form = nil

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	category := uuid.MustParse(strings.TrimSpace(m.formCategory))

	return m, m.recategorizeCmd(m.selectedTx.ID, category)
}

func (m TransactionsModel) View() string {
	switch m.state {
	case txStateList:
		if m.loading {
			return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
		}

		statusLine := ""
		if m.status != "" {
			statusLine = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n"
		}

		return lipgloss.NewStyle().Padding(1).Render(statusLine + m.list.View())

	case txStateRecategorizing:
		if m.form == nil {
			return ""
		}

		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	}

	return ""
}

// Messages

type loadTxsMsg struct {
	txs []*ledger.Transaction
	err error
}

type txActionMsg struct {
	status string
	err    error
}

func (m TransactionsModel) loadTxsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.ledgerService.List(ctx, ledger.ListFilter{})

		return loadTxsMsg{txs: txs, err: err}
	}
}

func (m TransactionsModel) deleteTxCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.ledgerService.Delete(ctx, id); err != nil {
			return txActionMsg{err: err}
		}

		return txActionMsg{status: "Deleted."}
	}
}

func (m TransactionsModel) recategorizeCmd(id, category uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.ledgerService.Recategorize(ctx, id, category); err != nil {
			return txActionMsg{err: err}
		}

		return txActionMsg{status: "Recategorized."}
	}
}

// Transaction list delegate

type txItemDelegate struct{}

func (d txItemDelegate) Height() int                             { return 2 }
func (d txItemDelegate) Spacing() int                            { return 0 }
func (d txItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d txItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(txItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	fmt.Fprintf(w, "%s%s\n      %s\n", cursor, item.Title(),
		lipgloss.NewStyle().Faint(true).Render(item.Description()))
}
