package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haptickrill/krill/internal/cache"
	apperrors "github.com/haptickrill/krill/internal/errors"
	"github.com/haptickrill/krill/internal/models"
	"github.com/haptickrill/krill/internal/repositories"
)

func newResolverFixture(t *testing.T) (PriceResolver, cache.PriceCache, repositories.PriceRepository, *stubSource) {
	t.Helper()
	prices := repositories.NewPriceRepository(newTestDB(t))
	memCache := cache.NewMemoryPriceCache(cache.DefaultCapacity)
	source := &stubSource{prices: prices}
	resolver := NewPriceResolver(memCache, prices, source, zap.NewNop())
	return resolver, memCache, prices, source
}

func TestCloseOnRejectsEmptyTicker(t *testing.T) {
	resolver, _, _, _ := newResolverFixture(t)

	_, err := resolver.CloseOn(context.Background(), "   ", day(t, "2025-06-06"))
	var invalid *apperrors.ErrInvalidSymbol
	assert.ErrorAs(t, err, &invalid)
}

func TestCloseOnServesStoredPrice(t *testing.T) {
	resolver, _, prices, source := newResolverFixture(t)
	ctx := context.Background()

	// 2025-06-06 is a Friday.
	_, err := prices.InsertNew(ctx, []*models.EODPrice{eodRow("ACME", "2025-06-06", 150)})
	require.NoError(t, err)

	price, err := resolver.CloseOn(ctx, "acme", day(t, "2025-06-06"))
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(150)))
	assert.Zero(t, source.dayCalls(), "stored prices never hit the remote source")
}

func TestCloseOnWeekendBacktracksToFriday(t *testing.T) {
	resolver, _, prices, source := newResolverFixture(t)
	ctx := context.Background()

	_, err := prices.InsertNew(ctx, []*models.EODPrice{eodRow("ACME", "2025-06-06", 150)})
	require.NoError(t, err)

	// Sunday resolves to Friday's close without any remote call.
	price, err := resolver.CloseOn(ctx, "ACME", day(t, "2025-06-08"))
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(150)))
	assert.Zero(t, source.dayCalls())
}

func TestCloseOnCachesUnderRequestedDate(t *testing.T) {
	resolver, memCache, prices, _ := newResolverFixture(t)
	ctx := context.Background()

	_, err := prices.InsertNew(ctx, []*models.EODPrice{eodRow("ACME", "2025-06-06", 150)})
	require.NoError(t, err)

	_, err = resolver.CloseOn(ctx, "ACME", day(t, "2025-06-08"))
	require.NoError(t, err)

	// Both the trading day and the originally requested Sunday are cached.
	_, ok := memCache.Get(ctx, "ACME", day(t, "2025-06-06"))
	assert.True(t, ok)
	_, ok = memCache.Get(ctx, "ACME", day(t, "2025-06-08"))
	assert.True(t, ok)
}

func TestCloseOnSkipsKnownHolidays(t *testing.T) {
	resolver, _, prices, source := newResolverFixture(t)
	ctx := context.Background()

	// 2025-07-04 is a Friday holiday; Thursday has the price.
	require.NoError(t, prices.MarkHoliday(ctx, day(t, "2025-07-04")))
	_, err := prices.InsertNew(ctx, []*models.EODPrice{eodRow("ACME", "2025-07-03", 120)})
	require.NoError(t, err)

	price, err := resolver.CloseOn(ctx, "ACME", day(t, "2025-07-04"))
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(120)))
	assert.Zero(t, source.dayCalls(), "known holidays short-circuit the remote source")
}

func TestCloseOnFetchesAndPersistsMissingDay(t *testing.T) {
	resolver, _, prices, source := newResolverFixture(t)
	ctx := context.Background()

	source.fetchDayFn = func(symbol string, date time.Time) (*models.EODPrice, error) {
		return eodRow(symbol, date.Format("2006-01-02"), 175), nil
	}

	price, err := resolver.CloseOn(ctx, "ACME", day(t, "2025-06-06"))
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(175)))
	assert.Equal(t, 1, source.dayCalls())

	// The fetched row landed in durable storage.
	row, err := prices.GetBySymbolDate(ctx, "ACME", day(t, "2025-06-06"))
	require.NoError(t, err)
	require.NotNil(t, row)

	// A second resolution is answered from cache.
	_, err = resolver.CloseOn(ctx, "ACME", day(t, "2025-06-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, source.dayCalls())
}

func TestCloseOnBacktracksPastEmptyDays(t *testing.T) {
	resolver, _, _, source := newResolverFixture(t)
	ctx := context.Background()

	source.fetchDayFn = func(symbol string, date time.Time) (*models.EODPrice, error) {
		// Thursday and Friday were unlisted holidays; Wednesday traded.
		if date.Equal(day(t, "2025-06-04")) {
			return eodRow(symbol, "2025-06-04", 140), nil
		}
		return nil, nil
	}

	price, err := resolver.CloseOn(ctx, "ACME", day(t, "2025-06-06"))
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(140)))
	assert.Equal(t, 3, source.dayCalls(), "Friday, Thursday, then Wednesday")
}

func TestCloseOnBacktracksOnFetchError(t *testing.T) {
	resolver, _, _, source := newResolverFixture(t)
	ctx := context.Background()

	source.fetchDayFn = func(symbol string, date time.Time) (*models.EODPrice, error) {
		if date.Equal(day(t, "2025-06-06")) {
			return nil, errors.New("provider down")
		}
		return eodRow(symbol, date.Format("2006-01-02"), 130), nil
	}

	price, err := resolver.CloseOn(ctx, "ACME", day(t, "2025-06-06"))
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(130)), "a failed day falls back to the prior day")
}

func TestCloseOnGivesUpAfterMaxBacktrack(t *testing.T) {
	resolver, _, _, source := newResolverFixture(t)

	// The source never has data, so every examined day comes up empty.
	_, err := resolver.CloseOn(context.Background(), "GHOST", day(t, "2025-06-06"))
	var notFound *apperrors.ErrPriceNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "GHOST", notFound.Ticker)

	// Friday back through Sunday is six candidate days; the Sunday never
	// reaches the source.
	assert.Equal(t, 5, source.dayCalls())
}
