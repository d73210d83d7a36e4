package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/haptickrill/krill/internal/models"
)

// PriceSource fetches EOD price rows from the remote provider and persists
// them into durable storage.
type PriceSource interface {
	// FetchRange fetches EOD rows for [from, to]. Spans longer than two
	// years are split into two sequential sub-ranges; a failure in either
	// half degrades to an empty result for that half.
	FetchRange(ctx context.Context, symbol string, from, to time.Time) ([]*models.EODPrice, error)
	// FetchDay fetches a single day. (nil, nil) means the provider answered
	// successfully with no rows, i.e. a no-trading-day signal; the day is
	// recorded as a market holiday unless the response was a rate limit.
	FetchDay(ctx context.Context, symbol string, date time.Time) (*models.EODPrice, error)
	// Persist writes previously-unseen rows, deduplicating against the
	// durable store. Returns the number of rows written.
	Persist(ctx context.Context, records []*models.EODPrice) (int, error)
	// BackfillYears fetches and persists the trailing N years for a symbol.
	BackfillYears(ctx context.Context, symbol string, years int) (int, error)
}

// PriceResolver answers "what was the close price of a ticker on a date"
// with calendar-aware backward fallback over weekends and holidays.
type PriceResolver interface {
	CloseOn(ctx context.Context, ticker string, date time.Time) (decimal.Decimal, error)
}

// ValuationService computes a portfolio's historical return series and
// summary statistics over the trailing analysis window.
type ValuationService interface {
	Valuate(ctx context.Context, portfolio *models.Portfolio) (*models.PortfolioReturns, error)
}

// PortfolioService defines portfolio and position operations.
type PortfolioService interface {
	CreatePortfolio(ctx context.Context, title, userID string) (*models.Portfolio, error)
	GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error)
	// GetPortfolioWithReturns attaches the computed return series. Valuation
	// failures are swallowed: the portfolio comes back without Returns.
	GetPortfolioWithReturns(ctx context.Context, id string) (*models.Portfolio, error)
	ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error)
	ListPortfoliosWithReturns(ctx context.Context, userID string) ([]*models.Portfolio, error)
	DeletePortfolio(ctx context.Context, id string) error
	AddPosition(ctx context.Context, portfolioID, ticker string, amount decimal.Decimal, purchasedAt time.Time) (*models.Position, error)
	DeletePosition(ctx context.Context, portfolioID, positionID string) error
}

// SecurityService answers whether a ticker is a known security.
type SecurityService interface {
	SecurityExists(ctx context.Context, symbol string) (bool, error)
}

// RefreshSummary reports the outcome of a tracked-ticker refresh run.
type RefreshSummary struct {
	Tickers   []string `json:"tickers"`
	Fetched   int      `json:"fetched"`
	Persisted int      `json:"persisted"`
}

// RefreshService keeps stored EOD history current for every tracked ticker.
type RefreshService interface {
	RefreshTracked(ctx context.Context) (*RefreshSummary, error)
}
