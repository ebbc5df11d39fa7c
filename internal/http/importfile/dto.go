package importfile

import (
	"time"

	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/currency"
	"github.com/jpvalente/tally/internal/ledger"
	"github.com/jpvalente/tally/internal/statement"
)

type parseConfigDTO struct {
	Header     *bool  `json:"header,omitempty"`
	Delimiter  string `json:"delimiter,omitempty"`
	DateFormat string `json:"date_format,omitempty"`
}

func (d parseConfigDTO) toParseConfig() statement.ParseConfig {
	cfg := statement.ParseConfig{
		Header:     d.Header,
		DateFormat: d.DateFormat,
	}
	if d.Delimiter != "" {
		cfg.Delimiter = []rune(d.Delimiter)[0]
	}

	return cfg
}

type fileDTO struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	AccountID *uuid.UUID     `json:"account_id,omitempty"`
	Contents  string         `json:"contents"`
	Config    parseConfigDTO `json:"config"`
}

type valueMappingDTO struct {
	Mode   string `json:"mode"`
	Column string `json:"column,omitempty"`
	Credit string `json:"credit,omitempty"`
	Debit  string `json:"debit,omitempty"`
	Flip   bool   `json:"flip,omitempty"`
}

type currencyMappingDTO struct {
	Mode       string    `json:"mode"`
	CurrencyID uuid.UUID `json:"currency_id,omitempty"`
	Column     string    `json:"column,omitempty"`
	Field      string    `json:"field,omitempty"`
}

type mappingDTO struct {
	Date      string             `json:"date"`
	Reference string             `json:"reference,omitempty"`
	Balance   string             `json:"balance,omitempty"`
	Value     valueMappingDTO    `json:"value"`
	Currency  currencyMappingDTO `json:"currency"`
}

func (d mappingDTO) toMapping() statement.Mapping {
	field := currency.MatchField(d.Currency.Field)
	if field == "" {
		field = currency.MatchTicker
	}

	return statement.Mapping{
		Date:      d.Date,
		Reference: d.Reference,
		Balance:   d.Balance,
		Value: statement.ValueMapping{
			Mode:   statement.ValueMode(d.Value.Mode),
			Column: d.Value.Column,
			Credit: d.Value.Credit,
			Debit:  d.Value.Debit,
			Flip:   d.Value.Flip,
		},
		Currency: statement.CurrencyMapping{
			Mode:       statement.CurrencyMode(d.Currency.Mode),
			CurrencyID: d.Currency.CurrencyID,
			Column:     d.Currency.Column,
			Field:      field,
		},
	}
}

type optionsDTO struct {
	DetectTransfers bool                  `json:"detect_transfers"`
	Tolerance       *float64              `json:"tolerance,omitempty"`
	WindowDays      *int                  `json:"window_days,omitempty"`
	Rates           map[uuid.UUID]float64 `json:"rates,omitempty"`
}

func (d optionsDTO) rates() statement.Rates {
	if len(d.Rates) == 0 {
		return nil
	}

	return statement.Rates(d.Rates)
}

type previewRequest struct {
	AccountID uuid.UUID  `json:"account_id"`
	Files     []fileDTO  `json:"files"`
	Mapping   mappingDTO `json:"mapping"`
	Options   optionsDTO `json:"options"`
}

type rowKeyDTO struct {
	File string `json:"file"`
	Row  int    `json:"row"`
}

type commitRequest struct {
	previewRequest
	RunRules          bool        `json:"run_rules"`
	Exclusions        []rowKeyDTO `json:"exclusions,omitempty"`
	RejectedTransfers []rowKeyDTO `json:"rejected_transfers,omitempty"`
}

type columnResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Nullable bool      `json:"nullable"`
	Values   []*string `json:"values"`
}

func toColumnResponses(columns []*statement.Column) []columnResponse {
	resp := make([]columnResponse, len(columns))
	for i, col := range columns {
		values := make([]*string, len(col.Values))

		for j, v := range col.Values {
			if v != nil {
				s := v.Str
				values[j] = &s
			}
		}

		resp[i] = columnResponse{
			ID:       col.ID,
			Name:     col.Name,
			Type:     string(col.Type),
			Nullable: col.Nullable,
			Values:   values,
		}
	}

	return resp
}

type parseResponse struct {
	FileName string           `json:"file_name"`
	Contents string           `json:"contents"`
	Columns  []columnResponse `json:"columns"`
	Warnings []string         `json:"warnings,omitempty"`
}

type transferResponse struct {
	AccountID     uuid.UUID  `json:"account_id"`
	Counterpart   *rowKeyDTO `json:"counterpart,omitempty"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
}

type candidateResponse struct {
	Row        int               `json:"row"`
	Date       string            `json:"date,omitempty"`
	Reference  string            `json:"reference,omitempty"`
	Value      int64             `json:"value"`
	CurrencyID uuid.UUID         `json:"currency_id,omitempty"`
	Balance    *int64            `json:"balance,omitempty"`
	Excluded   bool              `json:"excluded"`
	Reason     string            `json:"reason,omitempty"`
	Transfer   *transferResponse `json:"transfer,omitempty"`
}

type previewFileResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Warnings   []string            `json:"warnings,omitempty"`
	Candidates []candidateResponse `json:"candidates"`
}

type previewResponse struct {
	Files []previewFileResponse `json:"files"`
}

func toPreviewResponse(files []*statement.File, transfers map[statement.Key]statement.Match) previewResponse {
	resp := previewResponse{Files: make([]previewFileResponse, 0, len(files))}

	for _, f := range files {
		fr := previewFileResponse{
			ID:         f.ID,
			Name:       f.Name,
			Warnings:   f.Warnings,
			Candidates: make([]candidateResponse, 0, len(f.Candidates)),
		}

		for i := range f.Candidates {
			c := &f.Candidates[i]

			cr := candidateResponse{
				Row:        c.Row,
				Reference:  c.Reference,
				Value:      c.Value,
				CurrencyID: c.CurrencyID,
				Balance:    c.Balance,
				Excluded:   c.Excluded,
				Reason:     c.Reason,
			}
			if !c.Date.IsZero() {
				cr.Date = c.Date.Format(statement.ISODate)
			}

			if match, ok := transfers[statement.Key{FileID: f.ID, Row: c.Row}]; ok {
				tr := &transferResponse{
					AccountID:     match.AccountID,
					TransactionID: match.TransactionID,
				}
				if match.InBatch() {
					tr.Counterpart = &rowKeyDTO{File: match.Counterpart.FileID, Row: match.Counterpart.Row}
				}

				cr.Transfer = tr
			}

			fr.Candidates = append(fr.Candidates, cr)
		}

		resp.Files = append(resp.Files, fr)
	}

	return resp
}

type statementResponse struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	FileName  string    `json:"file_name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

type commitFileResponse struct {
	Statement statementResponse `json:"statement"`
	Created   int               `json:"created"`
}

type commitResponse struct {
	Statements []commitFileResponse `json:"statements"`
}

func toCommitResponse(results []*ledger.CommitResult) commitResponse {
	resp := commitResponse{Statements: make([]commitFileResponse, 0, len(results))}

	for _, result := range results {
		st := result.Statement
		resp.Statements = append(resp.Statements, commitFileResponse{
			Statement: statementResponse{
				ID:        st.ID,
				AccountID: st.AccountID,
				FileName:  st.FileName,
				StartDate: st.StartDate,
				EndDate:   st.EndDate,
				CreatedAt: st.CreatedAt,
			},
			Created: len(result.Created),
		})
	}

	return resp
}
