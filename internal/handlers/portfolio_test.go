package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	apperrors "github.com/haptickrill/krill/internal/errors"
	"github.com/haptickrill/krill/internal/models"
	"github.com/haptickrill/krill/internal/services"
)

type mockPortfolioService struct {
	portfolios map[string]*models.Portfolio
	added      *models.Position
	deletedID  string
}

func (m *mockPortfolioService) CreatePortfolio(_ context.Context, title, userID string) (*models.Portfolio, error) {
	if userID == "" {
		return nil, &apperrors.ErrNotFound{Entity: "user", ID: userID}
	}
	return &models.Portfolio{ID: "p-1", Title: title, UserID: userID}, nil
}

func (m *mockPortfolioService) GetPortfolio(_ context.Context, id string) (*models.Portfolio, error) {
	if p, ok := m.portfolios[id]; ok {
		return p, nil
	}
	return nil, &apperrors.ErrNotFound{Entity: "portfolio", ID: id}
}

func (m *mockPortfolioService) GetPortfolioWithReturns(ctx context.Context, id string) (*models.Portfolio, error) {
	return m.GetPortfolio(ctx, id)
}

func (m *mockPortfolioService) ListPortfolios(_ context.Context, userID string) ([]*models.Portfolio, error) {
	var out []*models.Portfolio
	for _, p := range m.portfolios {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPortfolioService) ListPortfoliosWithReturns(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	return m.ListPortfolios(ctx, userID)
}

func (m *mockPortfolioService) DeletePortfolio(_ context.Context, id string) error {
	if _, ok := m.portfolios[id]; !ok {
		return &apperrors.ErrNotFound{Entity: "portfolio", ID: id}
	}
	m.deletedID = id
	return nil
}

func (m *mockPortfolioService) AddPosition(_ context.Context, portfolioID, ticker string, amount decimal.Decimal, purchasedAt time.Time) (*models.Position, error) {
	if _, ok := m.portfolios[portfolioID]; !ok {
		return nil, &apperrors.ErrNotFound{Entity: "portfolio", ID: portfolioID}
	}
	m.added = &models.Position{ID: "pos-1", PortfolioID: portfolioID, Ticker: ticker, Amount: amount, CreatedAt: purchasedAt}
	return m.added, nil
}

func (m *mockPortfolioService) DeletePosition(_ context.Context, portfolioID, positionID string) error {
	m.deletedID = positionID
	return nil
}

var _ services.PortfolioService = (*mockPortfolioService)(nil)

func newPortfolioRouter(ms *mockPortfolioService) *mux.Router {
	h := NewPortfolioHandler(ms)
	r := mux.NewRouter()
	r.HandleFunc("/api/portfolios", h.HandleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/portfolios", h.HandleList).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolios/{id}", h.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolios/{id}", h.HandleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/api/portfolios/{id}/positions", h.HandleAddPosition).Methods(http.MethodPost)
	r.HandleFunc("/api/portfolios/{id}/positions/{positionId}", h.HandleDeletePosition).Methods(http.MethodDelete)
	return r
}

func TestCreatePortfolio(t *testing.T) {
	ms := &mockPortfolioService{portfolios: map[string]*models.Portfolio{}}
	r := newPortfolioRouter(ms)

	req := httptest.NewRequest(http.MethodPost, "/api/portfolios", strings.NewReader(`{"title":"Growth","user_id":"user-1"}`))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rw.Code, rw.Body.String())
	}
	var got models.Portfolio
	if err := json.Unmarshal(rw.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if got.Title != "Growth" {
		t.Fatalf("expected title Growth, got %q", got.Title)
	}
}

func TestCreatePortfolioBadJSON(t *testing.T) {
	r := newPortfolioRouter(&mockPortfolioService{portfolios: map[string]*models.Portfolio{}})

	req := httptest.NewRequest(http.MethodPost, "/api/portfolios", strings.NewReader("{not json"))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestGetPortfolioNotFound(t *testing.T) {
	r := newPortfolioRouter(&mockPortfolioService{portfolios: map[string]*models.Portfolio{}})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolios/missing", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rw.Code)
	}
}

func TestListPortfoliosRequiresUser(t *testing.T) {
	r := newPortfolioRouter(&mockPortfolioService{portfolios: map[string]*models.Portfolio{}})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolios", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestListPortfolios(t *testing.T) {
	ms := &mockPortfolioService{portfolios: map[string]*models.Portfolio{
		"p-1": {ID: "p-1", Title: "Growth", UserID: "user-1"},
	}}
	r := newPortfolioRouter(ms)

	req := httptest.NewRequest(http.MethodGet, "/api/portfolios?user_id=user-1", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if got := strings.TrimSpace(rw.Body.String()); got == "" || got[0] != '[' {
		t.Fatalf("expected JSON array, got %q", got)
	}
}

func TestAddPosition(t *testing.T) {
	ms := &mockPortfolioService{portfolios: map[string]*models.Portfolio{
		"p-1": {ID: "p-1", Title: "Growth", UserID: "user-1"},
	}}
	r := newPortfolioRouter(ms)

	body := bytes.NewReader([]byte(`{"ticker":"ACME","amount":"10","purchased_at":"2025-05-07"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/portfolios/p-1/positions", body)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rw.Code, rw.Body.String())
	}
	if ms.added == nil || ms.added.Ticker != "ACME" {
		t.Fatalf("expected AddPosition call, got %#v", ms.added)
	}
	if !ms.added.Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected amount 10, got %s", ms.added.Amount)
	}
}

func TestAddPositionBadDate(t *testing.T) {
	ms := &mockPortfolioService{portfolios: map[string]*models.Portfolio{
		"p-1": {ID: "p-1", Title: "Growth", UserID: "user-1"},
	}}
	r := newPortfolioRouter(ms)

	body := bytes.NewReader([]byte(`{"ticker":"ACME","amount":"10","purchased_at":"07/05/2025"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/portfolios/p-1/positions", body)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestDeletePortfolio(t *testing.T) {
	ms := &mockPortfolioService{portfolios: map[string]*models.Portfolio{
		"p-1": {ID: "p-1", Title: "Growth", UserID: "user-1"},
	}}
	r := newPortfolioRouter(ms)

	req := httptest.NewRequest(http.MethodDelete, "/api/portfolios/p-1", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	if ms.deletedID != "p-1" {
		t.Fatalf("expected delete of p-1, got %q", ms.deletedID)
	}
}
