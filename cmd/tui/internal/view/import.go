package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/currency"
	"github.com/jpvalente/tally/internal/encoding"
	"github.com/jpvalente/tally/internal/ledger"
	"github.com/jpvalente/tally/internal/statement"
)

const commitTimeout = 2 * time.Minute

type importState int

const (
	importStateAccount importState = iota
	importStateFilePick
	importStateParseOptions
	importStateColumns
	importStateMapping
	importStateReview
	importStateCommitting
	importStateResult
)

// ImportModel walks the statement import wizard: pick files, adjust parse
// options, map columns, review candidates and transfers, commit. Esc steps
// back one stage, discarding what the stage derived.
type ImportModel struct {
	CommonModel
	ledgerService   *ledger.Service
	currencyService *currency.Service
	committer       *statement.Committer
	detectCfg       statement.DetectConfig

	state      importState
	session    *statement.Session
	currencies []currency.Currency
	tickers    map[uuid.UUID]string

	filePicker  filepicker.Model
	accountForm *huh.Form
	parseForm   *huh.Form
	mappingForm *huh.Form
	reviewList  list.Model

	// Form field bindings.
	formAccount    string
	formHeader     string
	formDelimiter  string
	formDateFormat string
	formDate       string
	formReference  string
	formBalance    string
	formValueMode  string
	formValue      string
	formCredit     string
	formDebit      string
	formFlip       bool
	formCurrency   string
	formDetect     bool
	formRunRules   bool

	status string
	err    error
}

func NewImportModel(
	ledgerSvc *ledger.Service,
	currencySvc *currency.Service,
	committer *statement.Committer,
	detectCfg statement.DetectConfig,
) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		ledgerService:   ledgerSvc,
		currencyService: currencySvc,
		committer:       committer,
		detectCfg:       detectCfg,
		filePicker:      fp,
		tickers:         make(map[uuid.UUID]string),
		formDetect:      true,
	}
}

func (m ImportModel) Title() string { return "Import Statements" }

func (m ImportModel) ShortHelp() string {
	switch m.state {
	case importStateColumns:
		return "a: add another file | Enter: map columns | Esc: back"
	case importStateReview:
		return "Space: toggle row | t: reject transfer | Enter: commit | Esc: back"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.loadCurrenciesCmd()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.SetSize(msg)
		if m.state == importStateReview {
			m.reviewList.SetSize(msg.Width-4, msg.Height-6)
		}

		return m, nil

	case currenciesMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.currencies = msg.currencies
		for _, c := range msg.currencies {
			m.tickers[c.ID] = c.Ticker
		}

		return m.startAccountForm()

	case commitResultMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Committed %d statements, %d transactions.", msg.statements, msg.created)

		return m, nil
	}

	switch m.state {
	case importStateAccount:
		return m.updateAccountForm(msg)
	case importStateFilePick:
		return m.updateFilePick(msg)
	case importStateParseOptions:
		return m.updateParseForm(msg)
	case importStateColumns:
		return m.updateColumns(msg)
	case importStateMapping:
		return m.updateMappingForm(msg)
	case importStateReview:
		return m.updateReview(msg)
	}

	return m, nil
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick:
		if m.session != nil && len(m.session.Files) > 0 {
			m.state = importStateColumns
			return m, nil
		}

		m.state = importStateAccount

		return m.startAccountForm()
	case importStateParseOptions:
		m.state = importStateColumns
		return m, nil
	case importStateColumns:
		m.state = importStateFilePick
		return m, m.filePicker.Init()
	case importStateMapping:
		m.session.BackToParse()
		m.state = importStateColumns

		return m, nil
	case importStateReview:
		m.session.BackToMapping()
		return m.startMappingForm()
	case importStateResult:
		m.err = nil
		m.status = ""
		m.session = nil

		return m.startAccountForm()
	}

	return m, Back
}

// Account selection

func (m ImportModel) startAccountForm() (tea.Model, tea.Cmd) {
	m.state = importStateAccount
	m.accountForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("account").
				Title("Account ID").
				Description("Transactions from the uploaded files land in this account.").
				Value(&m.formAccount).
				Validate(func(s string) error {
					_, err := uuid.Parse(strings.TrimSpace(s))
					return err
				}),
		),
	).WithWidth(60).WithShowHelp(false)

	return m, m.accountForm.Init()
}

func (m ImportModel) updateAccountForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.accountForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.accountForm = f
	}

	if m.accountForm.State != huh.StateCompleted {
		return m, cmd
	}

	account := uuid.MustParse(strings.TrimSpace(m.formAccount))
	m.session = statement.NewSession(account)
	m.state = importStateFilePick

	return m, m.filePicker.Init()
}

// File picking

func (m ImportModel) updateFilePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		if err := m.addFile(path); err != nil {
			m.status = fmt.Sprintf("Error: %v", err)
			return m, nil
		}

		m.status = ""
		m.state = importStateColumns

		return m, nil
	}

	return m, cmd
}

func (m *ImportModel) addFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	contents, err := encoding.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	f, err := m.session.AddFile(filepathBase(path), contents)
	if err != nil {
		return err
	}

	if f.Err != nil {
		return fmt.Errorf("%s: %w", f.Name, f.Err)
	}

	return nil
}

func filepathBase(path string) string {
	if i := strings.LastIndexByte(path, os.PathSeparator); i >= 0 {
		return path[i+1:]
	}

	return path
}

// Columns summary

func (m ImportModel) updateColumns(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "a":
		m.state = importStateFilePick
		return m, m.filePicker.Init()
	case "o":
		return m.startParseForm()
	case "enter":
		if err := m.session.ToMapping(m.defaultCurrency()); err != nil {
			m.status = fmt.Sprintf("Error: %v", err)
			return m, nil
		}

		return m.startMappingForm()
	}

	return m, nil
}

// Parse options

func (m ImportModel) startParseForm() (tea.Model, tea.Cmd) {
	m.state = importStateParseOptions
	m.formHeader = "auto"
	m.formDelimiter = "auto"
	m.formDateFormat = ""

	m.parseForm = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("header").
				Title("Header row").
				Options(
					huh.NewOption("Auto-detect", "auto"),
					huh.NewOption("First row is a header", "yes"),
					huh.NewOption("No header", "no"),
				).
				Value(&m.formHeader),

			huh.NewSelect[string]().
				Key("delimiter").
				Title("Delimiter").
				Options(
					huh.NewOption("Auto-detect", "auto"),
					huh.NewOption("Comma", ","),
					huh.NewOption("Semicolon", ";"),
					huh.NewOption("Tab", "\t"),
				).
				Value(&m.formDelimiter),

			huh.NewInput().
				Key("date_format").
				Title("Date format (optional)").
				Placeholder("02/01/2006").
				Value(&m.formDateFormat),
		),
	).WithWidth(60).WithShowHelp(false)

	return m, m.parseForm.Init()
}

func (m ImportModel) updateParseForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.parseForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.parseForm = f
	}

	if m.parseForm.State != huh.StateCompleted {
		return m, cmd
	}

	cfg := statement.ParseConfig{DateFormat: strings.TrimSpace(m.formDateFormat)}

	switch m.formHeader {
	case "yes":
		v := true
		cfg.Header = &v
	case "no":
		v := false
		cfg.Header = &v
	}

	if m.formDelimiter != "auto" {
		cfg.Delimiter = []rune(m.formDelimiter)[0]
	}

	// The options apply to every staged file; mixed-format batches are rare
	// enough that per-file overrides are not worth a second form.
	for _, f := range m.session.Files {
		if err := m.session.Reparse(f.ID, cfg); err != nil {
			m.status = fmt.Sprintf("Error: %v", err)
			break
		}
	}

	m.state = importStateColumns

	return m, nil
}

// Mapping

func (m ImportModel) startMappingForm() (tea.Model, tea.Cmd) {
	m.state = importStateMapping

	columns := m.session.Files[0].Columns
	mapping := m.session.Mapping

	m.formDate = mapping.Date
	m.formReference = mapping.Reference
	m.formBalance = mapping.Balance
	m.formValueMode = string(mapping.Value.Mode)
	m.formValue = mapping.Value.Column
	m.formCredit = mapping.Value.Credit
	m.formDebit = mapping.Value.Debit
	m.formFlip = mapping.Value.Flip
	m.formCurrency = mapping.Currency.CurrencyID.String()

	m.mappingForm = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("date").
				Title("Date column").
				Options(columnOptions(columns, false, statement.TypeDate)...).
				Value(&m.formDate),

			huh.NewSelect[string]().
				Key("reference").
				Title("Reference column (optional)").
				Options(columnOptions(columns, true, statement.TypeString, statement.TypeNumber, statement.TypeDate)...).
				Value(&m.formReference),

			huh.NewSelect[string]().
				Key("balance").
				Title("Balance column (optional)").
				Options(columnOptions(columns, true, statement.TypeNumber)...).
				Value(&m.formBalance),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("value_mode").
				Title("Value columns").
				Options(
					huh.NewOption("One signed column", string(statement.ValueSingle)),
					huh.NewOption("Separate credit and debit columns", string(statement.ValueSplit)),
				).
				Value(&m.formValueMode),

			huh.NewSelect[string]().
				Key("value").
				Title("Value column (single mode)").
				Options(columnOptions(columns, true, statement.TypeNumber)...).
				Value(&m.formValue),

			huh.NewSelect[string]().
				Key("credit").
				Title("Credit column (split mode)").
				Options(columnOptions(columns, true, statement.TypeNumber)...).
				Value(&m.formCredit),

			huh.NewSelect[string]().
				Key("debit").
				Title("Debit column (split mode)").
				Options(columnOptions(columns, true, statement.TypeNumber)...).
				Value(&m.formDebit),

			huh.NewConfirm().
				Key("flip").
				Title("Flip sign convention?").
				Affirmative("Yes").
				Negative("No").
				Value(&m.formFlip),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("currency").
				Title("Currency").
				Options(currencyOptions(m.currencies)...).
				Value(&m.formCurrency),

			huh.NewConfirm().
				Key("detect").
				Title("Detect transfers between accounts?").
				Affirmative("Yes").
				Negative("No").
				Value(&m.formDetect),

			huh.NewConfirm().
				Key("run_rules").
				Title("Apply category rules on commit?").
				Affirmative("Yes").
				Negative("No").
				Value(&m.formRunRules),
		),
	).WithWidth(60).WithShowHelp(false)

	return m, m.mappingForm.Init()
}

func (m ImportModel) updateMappingForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.mappingForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.mappingForm = f
	}

	if m.mappingForm.State != huh.StateCompleted {
		return m, cmd
	}

	mapping := &m.session.Mapping
	mapping.Date = m.formDate
	mapping.Reference = m.formReference
	mapping.Balance = m.formBalance

	mapping.SetValueMode(statement.ValueMode(m.formValueMode))
	mapping.Value.Column = m.formValue
	mapping.Value.Credit = m.formCredit
	mapping.Value.Debit = m.formDebit
	mapping.Value.Flip = m.formFlip

	if id, err := uuid.Parse(m.formCurrency); err == nil {
		mapping.Currency.CurrencyID = id
	}

	existing, err := m.existingTransactions()
	if err != nil {
		m.status = fmt.Sprintf("Error: %v", err)
		return m.startMappingForm()
	}

	if err := m.session.ToReview(m.currencies, existing, nil, m.detectCfg); err != nil {
		m.status = fmt.Sprintf("Error: %v", err)
		return m.startMappingForm()
	}

	if !m.formDetect {
		m.session.Transfers = map[statement.Key]statement.Match{}
	}

	m.status = ""

	return m.startReview()
}

func (m ImportModel) existingTransactions() ([]*ledger.Transaction, error) {
	if !m.formDetect {
		return nil, nil
	}

	ctx, cancel := DbCtx()
	defer cancel()

	return m.ledgerService.List(ctx, ledger.ListFilter{})
}

func (m ImportModel) defaultCurrency() uuid.UUID {
	if len(m.currencies) == 0 {
		return uuid.Nil
	}

	return m.currencies[0].ID
}

func columnOptions(columns []*statement.Column, optional bool, types ...statement.ColumnType) []huh.Option[string] {
	var opts []huh.Option[string]

	if optional {
		opts = append(opts, huh.NewOption("(none)", ""))
	}

	for _, col := range columns {
		for _, t := range types {
			if col.Type == t {
				opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", col.Name, col.Type), col.ID))
				break
			}
		}
	}

	return opts
}

func currencyOptions(currencies []currency.Currency) []huh.Option[string] {
	opts := make([]huh.Option[string], len(currencies))
	for i, c := range currencies {
		opts[i] = huh.NewOption(c.Ticker, c.ID.String())
	}

	return opts
}

// Review

func (m ImportModel) startReview() (tea.Model, tea.Cmd) {
	m.state = importStateReview

	var items []list.Item

	for _, f := range m.session.Files {
		for i := range f.Candidates {
			items = append(items, candidateItem{
				file:      f,
				candidate: &f.Candidates[i],
			})
		}
	}

	width, height := 100, 20
	if m.Width > 0 {
		width = m.Width - 4
	}

	if m.Height > 0 {
		height = m.Height - 6
	}

	delegate := candidateDelegate{model: &m}
	m.reviewList = list.New(items, delegate, width, height)
	m.reviewList.Title = "Review Candidates"
	m.reviewList.SetShowStatusBar(false)
	m.reviewList.SetFilteringEnabled(false)
	m.reviewList.SetShowHelp(false)

	return m, nil
}

func (m ImportModel) updateReview(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.reviewList, cmd = m.reviewList.Update(msg)

		return m, cmd
	}

	switch keyMsg.String() {
	case " ":
		if item, ok := m.reviewList.SelectedItem().(candidateItem); ok {
			_ = m.session.ToggleExclusion(item.key())
		}

		return m, nil
	case "t":
		if item, ok := m.reviewList.SelectedItem().(candidateItem); ok {
			m.session.RejectTransfer(item.key())
		}

		return m, nil
	case "enter":
		m.state = importStateCommitting
		m.status = "Committing..."

		return m, m.commitCmd()
	}

	var cmd tea.Cmd
	m.reviewList, cmd = m.reviewList.Update(msg)

	return m, cmd
}

// Views

func (m ImportModel) View() string {
	switch m.state {
	case importStateAccount:
		return lipgloss.NewStyle().Padding(1).Render(m.accountForm.View())
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			"Select a statement file:\n\n" + m.filePicker.View(),
		)
	case importStateParseOptions:
		return lipgloss.NewStyle().Padding(1).Render(m.parseForm.View())
	case importStateColumns:
		return m.viewColumns()
	case importStateMapping:
		statusLine := ""
		if m.status != "" {
			statusLine = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) + "\n\n"
		}

		return lipgloss.NewStyle().Padding(1).Render(statusLine + m.mappingForm.View())
	case importStateReview:
		return m.viewReview()
	case importStateCommitting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewColumns() string {
	var b strings.Builder

	b.WriteString("Staged files:\n\n")

	for _, f := range m.session.Files {
		fmt.Fprintf(&b, "%s (%d rows)\n", f.Name, f.Rows())

		for _, col := range f.Columns {
			nullable := ""
			if col.Nullable {
				nullable = ", nullable"
			}

			fmt.Fprintf(&b, "  %-24s %s%s\n", col.Name, col.Type, nullable)
		}

		for _, w := range f.Warnings {
			fmt.Fprintf(&b, "  ! %s\n", w)
		}

		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) + "\n\n")
	}

	b.WriteString("a: add file | o: parse options | Enter: map columns | Esc: back")

	return lipgloss.NewStyle().Padding(1).Render(b.String())
}

func (m ImportModel) viewReview() string {
	statusLine := ""
	if m.status != "" {
		statusLine = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n"
	}

	return lipgloss.NewStyle().Padding(1).Render(statusLine + m.reviewList.View())
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) +
				"\n\n(Esc to go back)",
		)
	}

	return style.Render(
		lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status) +
			"\n\n(Esc to go back)",
	)
}

// Messages

type currenciesMsg struct {
	currencies []currency.Currency
	err        error
}

type commitResultMsg struct {
	statements int
	created    int
	err        error
}

func (m ImportModel) loadCurrenciesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		currencies, err := m.currencyService.List(ctx)

		return currenciesMsg{currencies: currencies, err: err}
	}
}

func (m ImportModel) commitCmd() tea.Cmd {
	session := m.session
	runRules := m.formRunRules
	committer := m.committer

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()

		results, err := committer.CommitSession(ctx, session, runRules)
		if err != nil {
			return commitResultMsg{err: err}
		}

		created := 0
		for _, r := range results {
			created += len(r.Created)
		}

		return commitResultMsg{statements: len(results), created: created}
	}
}

// Candidate list item

type candidateItem struct {
	file      *statement.File
	candidate *statement.Candidate
}

func (i candidateItem) key() statement.Key {
	return statement.Key{FileID: i.file.ID, Row: i.candidate.Row}
}

func (i candidateItem) Title() string       { return "" }
func (i candidateItem) Description() string { return "" }
func (i candidateItem) FilterValue() string { return i.candidate.Reference }

// Candidate list delegate

type candidateDelegate struct {
	model *ImportModel
}

func (d candidateDelegate) Height() int                             { return 2 }
func (d candidateDelegate) Spacing() int                            { return 0 }
func (d candidateDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d candidateDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(candidateItem)
	if !ok {
		return
	}

	c := item.candidate

	checkbox := "[x]"
	if c.Excluded {
		checkbox = "[ ]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	ticker := d.model.tickers[c.CurrencyID]

	line1 := fmt.Sprintf("%s%s %s  %12s  %s",
		cursor, checkbox,
		FormatDate(c.Date),
		FormatAmount(c.Value, ticker),
		c.Reference,
	)

	var notes []string
	if match, ok := d.model.session.Transfers[item.key()]; ok {
		if match.InBatch() {
			notes = append(notes, fmt.Sprintf("transfer ↔ %s:%d", match.Counterpart.FileID, match.Counterpart.Row))
		} else {
			notes = append(notes, "transfer ↔ ledger")
		}
	}

	if c.Reason != "" {
		notes = append(notes, c.Reason)
	}

	line2 := fmt.Sprintf("      %s  %s", item.file.Name, strings.Join(notes, " | "))

	fmt.Fprintf(w, "%s\n%s\n", line1, lipgloss.NewStyle().Faint(true).Render(line2))
}
