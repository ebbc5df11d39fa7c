package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/ledger"
	"github.com/jpvalente/tally/internal/statement"
)

type transactionResponse struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	CategoryID  uuid.UUID  `json:"category_id"`
	Value       int64      `json:"value"`
	CurrencyID  uuid.UUID  `json:"currency_id"`
	Date        string     `json:"date"`
	Reference   string     `json:"reference,omitempty"`
	Balance     *int64     `json:"balance,omitempty"`
	StatementID *uuid.UUID `json:"statement_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func toResponse(tx *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		CategoryID:  tx.CategoryID,
		Value:       tx.Value,
		CurrencyID:  tx.CurrencyID,
		Date:        tx.Date.Format(statement.ISODate),
		Reference:   tx.Reference,
		Balance:     tx.Balance,
		StatementID: tx.StatementID,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func toResponseList(txs []*ledger.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toCategoryResponseList(categories []*ledger.Category) []categoryResponse {
	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
	}

	return resp
}

type statementResponse struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	FileName  string    `json:"file_name"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

func toStatementResponseList(statements []*ledger.Statement) []statementResponse {
	resp := make([]statementResponse, len(statements))
	for i, st := range statements {
		resp[i] = statementResponse{
			ID:        st.ID,
			AccountID: st.AccountID,
			FileName:  st.FileName,
			StartDate: st.StartDate.Format(statement.ISODate),
			EndDate:   st.EndDate.Format(statement.ISODate),
			CreatedAt: st.CreatedAt,
		}
	}

	return resp
}
