// Package importfile exposes the statement import pipeline over HTTP. The
// endpoints are stateless: preview and commit re-run the (deterministic)
// pipeline from the uploaded contents instead of holding server-side wizard
// sessions, mirroring how the TUI drives the same core in-process.
package importfile

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jpvalente/tally/internal/currency"
	"github.com/jpvalente/tally/internal/encoding"
	"github.com/jpvalente/tally/internal/ledger"
	"github.com/jpvalente/tally/internal/statement"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	currencySvc *currency.Service
	ledgerSvc   *ledger.Service
	committer   *statement.Committer
	detectCfg   statement.DetectConfig
}

func NewHandler(
	currencySvc *currency.Service,
	ledgerSvc *ledger.Service,
	committer *statement.Committer,
	detectCfg statement.DetectConfig,
) *Handler {
	return &Handler{
		currencySvc: currencySvc,
		ledgerSvc:   ledgerSvc,
		committer:   committer,
		detectCfg:   detectCfg,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/parse", h.parse)
	r.Post("/preview", h.preview)
	r.Post("/commit", h.commit)
}

// parse accepts a raw statement upload, detects its charset, and returns the
// decoded contents with the inferred columns so the client can build a
// mapping. Parse options come as form fields next to the file.
func (h *Handler) parse(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "reading upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	contents, err := encoding.DecodeString(raw)
	if err != nil {
		http.Error(w, "decoding upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := parseConfigFromForm(r)

	result, err := statement.Parse(contents, cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, parseResponse{
		FileName: header.Filename,
		Contents: contents,
		Columns:  toColumnResponses(result.Columns),
		Warnings: result.Warnings,
	})
}

// preview runs mapping validation, materialization, and transfer detection
// over the posted files and returns the candidates the commit would create.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	files, transfers, err := h.runPipeline(r, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, toPreviewResponse(files, transfers))
}

// commit re-runs the pipeline, applies the client's exclusions and transfer
// rejections, and commits one statement per file.
func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	files, transfers, err := h.runPipeline(r, &req.previewRequest)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	// An excluded leg also drops its pair's transfer annotation, so the
	// surviving leg does not commit as half a transfer.
	for _, key := range req.Exclusions {
		k := statement.Key{FileID: key.File, Row: key.Row}
		excludeCandidate(files, k)
		rejectTransfer(transfers, k)
	}

	for _, key := range req.RejectedTransfers {
		rejectTransfer(transfers, statement.Key{FileID: key.File, Row: key.Row})
	}

	// All files commit as one unit of work, so a store rejection leaves
	// nothing applied and the client can retry the whole request.
	results, err := h.committer.CommitFiles(r.Context(), files, req.RunRules, transfers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toCommitResponse(results))
}

// runPipeline parses every posted file, validates the mapping against the
// known currencies, materializes candidates, and pairs transfers against the
// batch and the accounts' committed transactions.
func (h *Handler) runPipeline(r *http.Request, req *previewRequest) ([]*statement.File, map[statement.Key]statement.Match, error) {
	if len(req.Files) == 0 {
		return nil, nil, fmt.Errorf("no files submitted")
	}

	currencies, err := h.currencySvc.List(r.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("listing currencies: %w", err)
	}

	files := make([]*statement.File, 0, len(req.Files))

	for i, fr := range req.Files {
		account := req.AccountID
		if fr.AccountID != nil {
			account = *fr.AccountID
		}

		f := &statement.File{
			ID:        fr.ID,
			Name:      fr.Name,
			Contents:  fr.Contents,
			AccountID: account,
			Config:    fr.Config.toParseConfig(),
		}
		if f.ID == "" {
			f.ID = fmt.Sprintf("file-%d", i+1)
		}

		result, err := statement.Parse(f.Contents, f.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f.Name, err)
		}

		f.Columns = result.Columns
		f.Warnings = result.Warnings
		files = append(files, f)
	}

	mapping := req.Mapping.toMapping()
	if err := mapping.Validate(files, currencies); err != nil {
		return nil, nil, err
	}

	for _, f := range files {
		f.Candidates = statement.Materialize(f.Columns, mapping, f.AccountID, currencies)
	}

	transfers := map[statement.Key]statement.Match{}

	if req.Options.DetectTransfers {
		existing, err := h.existingTransactions(r, files)
		if err != nil {
			return nil, nil, err
		}

		cfg := h.detectCfg
		if req.Options.Tolerance != nil {
			cfg.Tolerance = *req.Options.Tolerance
		}

		if req.Options.WindowDays != nil {
			cfg.WindowDays = *req.Options.WindowDays
		}

		transfers = statement.DetectTransfers(files, existing, req.Options.rates(), cfg)
	}

	return files, transfers, nil
}

// existingTransactions fetches the committed legs eligible for pairing: every
// account in the batch, bounded by the batch's date range.
func (h *Handler) existingTransactions(r *http.Request, files []*statement.File) ([]*ledger.Transaction, error) {
	filter := batchFilter(files)
	if filter == nil {
		return nil, nil
	}

	existing, err := h.ledgerSvc.List(r.Context(), *filter)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return existing, nil
}

func batchFilter(files []*statement.File) *ledger.ListFilter {
	var filter *ledger.ListFilter

	for _, f := range files {
		for i := range f.Candidates {
			c := &f.Candidates[i]
			if c.Excluded {
				continue
			}

			if filter == nil {
				start, end := c.Date, c.Date
				filter = &ledger.ListFilter{StartDate: &start, EndDate: &end}

				continue
			}

			if c.Date.Before(*filter.StartDate) {
				*filter.StartDate = c.Date
			}

			if c.Date.After(*filter.EndDate) {
				*filter.EndDate = c.Date
			}
		}
	}

	if filter == nil {
		return nil
	}

	// Widen by the detection window so legs posted just outside the statement
	// period still pair.
	const windowSlack = 7
	*filter.StartDate = filter.StartDate.AddDate(0, 0, -windowSlack)
	*filter.EndDate = filter.EndDate.AddDate(0, 0, windowSlack)

	return filter
}

func excludeCandidate(files []*statement.File, key statement.Key) {
	for _, f := range files {
		if f.ID != key.FileID {
			continue
		}

		for i := range f.Candidates {
			if f.Candidates[i].Row == key.Row {
				f.Candidates[i].Excluded = true
				return
			}
		}
	}
}

func rejectTransfer(transfers map[statement.Key]statement.Match, key statement.Key) {
	match, ok := transfers[key]
	if !ok {
		return
	}

	delete(transfers, key)

	if match.InBatch() {
		delete(transfers, match.Counterpart)
	}
}

func parseConfigFromForm(r *http.Request) statement.ParseConfig {
	var cfg statement.ParseConfig

	switch r.FormValue("header") {
	case "true":
		v := true
		cfg.Header = &v
	case "false":
		v := false
		cfg.Header = &v
	}

	if d := r.FormValue("delimiter"); d != "" {
		cfg.Delimiter = []rune(d)[0]
	}

	cfg.DateFormat = r.FormValue("date_format")

	return cfg
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
