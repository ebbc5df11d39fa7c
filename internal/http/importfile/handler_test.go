package importfile_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jpvalente/tally/internal/currency"
	"github.com/jpvalente/tally/internal/http/importfile"
	"github.com/jpvalente/tally/internal/ledger"
	"github.com/jpvalente/tally/internal/statement"
)

var (
	accountID = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	eurID     = uuid.MustParse("11111111-1111-1111-1111-111111111111")
)

type fakeCurrencyRepo struct{}

func (fakeCurrencyRepo) ListCurrencies(context.Context) ([]currency.Currency, error) {
	return []currency.Currency{{ID: eurID, Ticker: "EUR", Symbol: "€", Name: "Euro"}}, nil
}

func (fakeCurrencyRepo) CreateCurrency(context.Context, *currency.Currency) error {
	return nil
}

func newServer(t *testing.T, repo ledger.Repository) http.Handler {
	t.Helper()

	ledgerSvc := ledger.NewService(repo)
	currencySvc := currency.NewService(fakeCurrencyRepo{})
	committer := statement.NewCommitter(ledgerSvc, nil)

	handler := importfile.NewHandler(currencySvc, ledgerSvc, committer, statement.DefaultDetectConfig())

	router := chi.NewRouter()
	router.Route("/import", handler.Routes)

	return router
}

func TestParseEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := newServer(t, ledger.NewMockRepository(ctrl))

	var body bytes.Buffer

	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "march.csv")
	require.NoError(t, err)

	_, err = part.Write([]byte("Date,Amount\n2024-03-10,-500.00\n2024-03-11,-12.50\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/import/parse", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		FileName string `json:"file_name"`
		Contents string `json:"contents"`
		Columns  []struct {
			ID       string    `json:"id"`
			Type     string    `json:"type"`
			Values   []*string `json:"values"`
			Nullable bool      `json:"nullable"`
		} `json:"columns"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "march.csv", resp.FileName)
	require.Len(t, resp.Columns, 2)
	assert.Equal(t, "date", resp.Columns[0].ID)
	assert.Equal(t, "date", resp.Columns[0].Type)
	assert.Equal(t, "number", resp.Columns[1].Type)
	require.Len(t, resp.Columns[0].Values, 2)
	assert.Equal(t, "2024-03-10", *resp.Columns[0].Values[0])
}

func TestParseEndpoint_EmptyFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := newServer(t, ledger.NewMockRepository(ctrl))

	var body bytes.Buffer

	form := multipart.NewWriter(&body)
	_, err := form.CreateFormFile("file", "empty.csv")
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/import/parse", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func previewBody(detect bool) map[string]any {
	return map[string]any{
		"account_id": accountID,
		"files": []map[string]any{{
			"name":     "march.csv",
			"contents": "Date,Amount,Description\n2024-03-10,-500.00,TRANSFER OUT\n2024-03-11,-12.50,COFFEE\n",
		}},
		"mapping": map[string]any{
			"date":      "date",
			"reference": "description",
			"value":     map[string]any{"mode": "single", "column": "amount"},
			"currency":  map[string]any{"mode": "constant", "currency_id": eurID},
		},
		"options": map[string]any{"detect_transfers": detect},
	}
}

func TestPreviewEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := ledger.NewMockRepository(ctrl)
	repo.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).Return(nil, nil)

	server := newServer(t, repo)

	payload, err := json.Marshal(previewBody(true))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/import/preview", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Files []struct {
			ID         string `json:"id"`
			Candidates []struct {
				Row       int    `json:"row"`
				Date      string `json:"date"`
				Value     int64  `json:"value"`
				Reference string `json:"reference"`
				Excluded  bool   `json:"excluded"`
			} `json:"candidates"`
		} `json:"files"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "file-1", resp.Files[0].ID)
	require.Len(t, resp.Files[0].Candidates, 2)
	assert.Equal(t, int64(-50000), resp.Files[0].Candidates[0].Value)
	assert.Equal(t, "2024-03-10", resp.Files[0].Candidates[0].Date)
	assert.Equal(t, "COFFEE", resp.Files[0].Candidates[1].Reference)
	assert.False(t, resp.Files[0].Candidates[0].Excluded)
}

func TestPreviewEndpoint_IncompleteMapping(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := newServer(t, ledger.NewMockRepository(ctrl))

	body := previewBody(false)
	body["mapping"].(map[string]any)["date"] = ""

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/import/preview", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "date column")
}

func TestCommitEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := ledger.NewMockRepository(ctrl)
	stx := ledger.NewMockCommitTx(ctrl)

	statementID := uuid.MustParse("eeeeeeee-0000-0000-0000-000000000005")

	repo.EXPECT().BeginCommit(gomock.Any(), gomock.Any(), gomock.Any()).Return(stx, nil)
	stx.EXPECT().CreateStatement(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, st *ledger.Statement) error {
			st.ID = statementID
			st.CreatedAt = time.Now()

			return nil
		})
	stx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, txs []*ledger.Transaction) error {
			require.Len(t, txs, 1)
			assert.Equal(t, int64(-50000), txs[0].Value)
			assert.Equal(t, ledger.CategoryUncategorized, txs[0].CategoryID)

			return nil
		})
	stx.EXPECT().Commit().Return(nil)
	stx.EXPECT().Rollback().Return(nil)

	server := newServer(t, repo)

	body := map[string]any{}
	for k, v := range previewBody(false) {
		body[k] = v
	}

	// Drop the second row; only the transfer-out survives.
	body["exclusions"] = []map[string]any{{"file": "file-1", "row": 1}}

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/import/commit", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Statements []struct {
			Statement struct {
				ID       uuid.UUID `json:"id"`
				FileName string    `json:"file_name"`
			} `json:"statement"`
			Created int `json:"created"`
		} `json:"statements"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Statements, 1)
	assert.Equal(t, statementID, resp.Statements[0].Statement.ID)
	assert.Equal(t, "march.csv", resp.Statements[0].Statement.FileName)
	assert.Equal(t, 1, resp.Statements[0].Created)
}
