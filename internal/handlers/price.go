package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/haptickrill/krill/internal/errors"
	"github.com/haptickrill/krill/internal/repositories"
	"github.com/haptickrill/krill/internal/services"
)

type PriceHandler struct {
	prices   repositories.PriceRepository
	resolver services.PriceResolver
	security services.SecurityService
}

func NewPriceHandler(prices repositories.PriceRepository, resolver services.PriceResolver, security services.SecurityService) *PriceHandler {
	return &PriceHandler{prices: prices, resolver: resolver, security: security}
}

// GET /api/prices/daily?symbol=ACME&start=2024-09-28&end=2025-09-28
func (h *PriceHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		writeError(w, &apperrors.ErrInvalidSymbol{})
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)
	if s := q.Get("start"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			start = t
		}
	}
	if s := q.Get("end"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			end = t
		}
	}

	rows, err := h.prices.GetRange(r.Context(), symbol, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GET /api/prices/close?symbol=ACME&date=2025-06-06 — calendar-aware single
// day resolution with weekend/holiday fallback.
func (h *PriceHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		writeError(w, &apperrors.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"})
		return
	}

	price, err := h.resolver.CloseOn(r.Context(), symbol, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"date":   date.Format("2006-01-02"),
		"close":  price,
	})
}

// GET /api/tools/security/{symbol}
func (h *PriceHandler) HandleSecurityExists(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	exists, err := h.security.SecurityExists(r.Context(), symbol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"doesSecurityExist": exists})
}
