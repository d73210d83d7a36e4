package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haptickrill/krill/internal/cache"
	apperrors "github.com/haptickrill/krill/internal/errors"
	"github.com/haptickrill/krill/internal/models"
	"github.com/haptickrill/krill/internal/repositories"
)

// maxBacktrackDepth bounds how many calendar days the resolver steps back
// before giving up. Guards against tickers with no history at all or a
// permanently closed market.
const maxBacktrackDepth uint8 = 5

type priceResolver struct {
	cache  cache.PriceCache
	prices repositories.PriceRepository
	source PriceSource
	logger *zap.Logger
}

// NewPriceResolver creates a calendar-aware price resolver layered over the
// price cache, durable storage, and the remote source.
func NewPriceResolver(priceCache cache.PriceCache, prices repositories.PriceRepository, source PriceSource, logger *zap.Logger) PriceResolver {
	return &priceResolver{cache: priceCache, prices: prices, source: source, logger: logger}
}

// CloseOn resolves the close price of ticker on date, stepping strictly
// backward over weekends, known holidays, and days the provider has no data
// for. A purchase recorded on a non-trading day therefore resolves to the
// most recent prior trading day's close. Resolution of a backtracked day is
// cached under the originally requested date as well, so repeated queries
// for the same weekend date are answered from cache.
func (r *priceResolver) CloseOn(ctx context.Context, ticker string, date time.Time) (decimal.Decimal, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return decimal.Zero, &apperrors.ErrInvalidSymbol{Symbol: ticker}
	}

	origin := models.DateOnly(date)
	day := origin

	for depth := uint8(0); depth <= maxBacktrackDepth; depth++ {
		if price, ok := r.cache.Get(ctx, ticker, day); ok {
			r.cache.Set(ctx, ticker, origin, price)
			return price, nil
		}

		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			day = day.AddDate(0, 0, -1)
			continue
		}

		holiday, err := r.prices.IsHoliday(ctx, day)
		if err != nil {
			return decimal.Zero, err
		}
		if holiday {
			day = day.AddDate(0, 0, -1)
			continue
		}

		row, err := r.prices.GetBySymbolDate(ctx, ticker, day)
		if err != nil {
			return decimal.Zero, err
		}
		if row != nil {
			return r.resolved(ctx, ticker, day, origin, row.Close), nil
		}

		fetched, err := r.source.FetchDay(ctx, ticker, day)
		if err != nil {
			// Possibly an unlisted holiday or a transient provider failure;
			// either way the previous day is the best remaining candidate.
			r.logger.Debug("single-day fetch failed, backtracking",
				zap.String("ticker", ticker), zap.Time("date", day), zap.Error(err))
			day = day.AddDate(0, 0, -1)
			continue
		}
		if fetched == nil {
			// Provider confirmed no trading on this day.
			day = day.AddDate(0, 0, -1)
			continue
		}

		if _, err := r.source.Persist(ctx, []*models.EODPrice{fetched}); err != nil {
			r.logger.Warn("failed to persist fetched price",
				zap.String("ticker", ticker), zap.Time("date", day), zap.Error(err))
		}
		return r.resolved(ctx, ticker, day, origin, fetched.Close), nil
	}

	return decimal.Zero, &apperrors.ErrPriceNotFound{Ticker: ticker}
}

func (r *priceResolver) resolved(ctx context.Context, ticker string, day, origin time.Time, price decimal.Decimal) decimal.Decimal {
	r.cache.Set(ctx, ticker, day, price)
	if !day.Equal(origin) {
		r.cache.Set(ctx, ticker, origin, price)
	}
	return price
}
