package repositories

import (
	"context"
	"time"

	"github.com/haptickrill/krill/internal/models"
)

// PortfolioRepository defines persistence operations for portfolios.
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *models.Portfolio) error
	GetByID(ctx context.Context, id string) (*models.Portfolio, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error)
	Delete(ctx context.Context, id string) error
}

// PositionRepository defines persistence operations for stock positions.
type PositionRepository interface {
	// AddOrMerge inserts the position, or — when the portfolio already holds
	// a position for the same ticker purchased on the same calendar day —
	// replaces that row with one carrying the summed amount.
	AddOrMerge(ctx context.Context, position *models.Position) (*models.Position, error)
	GetByID(ctx context.Context, id string) (*models.Position, error)
	Delete(ctx context.Context, id string) error
	DistinctTickers(ctx context.Context) ([]string, error)
}

// PriceRepository defines persistence operations for EOD price rows and the
// global market-holiday calendar. Lookups that find nothing return (nil, nil)
// rather than an error; absence of a price row is an expected condition.
type PriceRepository interface {
	GetBySymbolDate(ctx context.Context, symbol string, date time.Time) (*models.EODPrice, error)
	GetRange(ctx context.Context, symbol string, from, to time.Time) ([]*models.EODPrice, error)
	LatestBySymbol(ctx context.Context, symbol string) (*models.EODPrice, error)
	HasAnyInRange(ctx context.Context, symbol string, from, to time.Time) (bool, error)
	HasAny(ctx context.Context, symbol string) (bool, error)
	// InsertNew bulk-inserts only rows whose (symbol, date) key is not
	// already persisted. Returns the number of rows written.
	InsertNew(ctx context.Context, records []*models.EODPrice) (int, error)
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
	MarkHoliday(ctx context.Context, date time.Time) error
}
