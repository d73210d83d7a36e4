package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	apperrors "github.com/haptickrill/krill/internal/errors"
	"github.com/haptickrill/krill/internal/services"
)

type PortfolioHandler struct {
	service services.PortfolioService
}

func NewPortfolioHandler(service services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

type createPortfolioRequest struct {
	Title  string `json:"title"`
	UserID string `json:"user_id"`
}

// POST /api/portfolios
func (h *PortfolioHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &apperrors.ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}
	portfolio, err := h.service.CreatePortfolio(r.Context(), req.Title, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, portfolio)
}

// GET /api/portfolios?user_id=...&returns=true
func (h *PortfolioHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, &apperrors.ErrValidation{Field: "user_id", Message: "required"})
		return
	}

	var err error
	var portfolios interface{}
	if r.URL.Query().Get("returns") == "true" {
		portfolios, err = h.service.ListPortfoliosWithReturns(r.Context(), userID)
	} else {
		portfolios, err = h.service.ListPortfolios(r.Context(), userID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolios)
}

// GET /api/portfolios/{id} — returns the portfolio with its computed return
// series; when valuation fails the portfolio comes back without "returns".
func (h *PortfolioHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	portfolio, err := h.service.GetPortfolioWithReturns(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

// DELETE /api/portfolios/{id}
func (h *PortfolioHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.DeletePortfolio(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addPositionRequest struct {
	Ticker      string          `json:"ticker"`
	Amount      decimal.Decimal `json:"amount"`
	PurchasedAt string          `json:"purchased_at"`
}

// POST /api/portfolios/{id}/positions
func (h *PortfolioHandler) HandleAddPosition(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]

	var req addPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &apperrors.ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}
	purchasedAt, err := time.Parse("2006-01-02", req.PurchasedAt)
	if err != nil {
		writeError(w, &apperrors.ErrValidation{Field: "purchased_at", Message: "must be YYYY-MM-DD"})
		return
	}

	position, err := h.service.AddPosition(r.Context(), portfolioID, req.Ticker, req.Amount, purchasedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, position)
}

// DELETE /api/portfolios/{id}/positions/{positionId}
func (h *PortfolioHandler) HandleDeletePosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.DeletePosition(r.Context(), vars["id"], vars["positionId"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
