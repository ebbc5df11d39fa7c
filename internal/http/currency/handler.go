package currency

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/currency"
)

type Handler struct {
	svc *currency.Service
}

func NewHandler(svc *currency.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
}

type currencyResponse struct {
	ID        uuid.UUID `json:"id"`
	Ticker    string    `json:"ticker"`
	Symbol    string    `json:"symbol,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(c currency.Currency) currencyResponse {
	return currencyResponse{
		ID:        c.ID,
		Ticker:    c.Ticker,
		Symbol:    c.Symbol,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.svc.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]currencyResponse, len(currencies))
	for i, c := range currencies {
		resp[i] = toResponse(c)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type createCurrencyRequest struct {
	Ticker string `json:"ticker"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.Create(r.Context(), currency.CreateParams{
		Ticker: req.Ticker,
		Symbol: req.Symbol,
		Name:   req.Name,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(*c)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
