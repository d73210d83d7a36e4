package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haptickrill/krill/internal/models"
	"github.com/haptickrill/krill/internal/repositories"
)

const (
	// analysisWindowDays is the trailing valuation window.
	analysisWindowDays = 365

	// historyBackfillYears is fetched when a ticker has no stored prices in
	// the window. Amortizes later per-day lookups across valuations.
	historyBackfillYears = 10
)

// tickerHistory is a per-ticker view of the window's prices: a map keyed by
// calendar day for the per-day loop, plus rows sorted newest-first for the
// cost-basis fallback.
type tickerHistory struct {
	byDay      map[string]decimal.Decimal
	newestDesc []*models.EODPrice
}

type valuationService struct {
	prices repositories.PriceRepository
	source PriceSource
	logger *zap.Logger
	now    func() time.Time
}

// NewValuationService creates the portfolio valuation engine.
func NewValuationService(prices repositories.PriceRepository, source PriceSource, logger *zap.Logger) ValuationService {
	return &valuationService{prices: prices, source: source, logger: logger, now: time.Now}
}

// Valuate builds the portfolio's day-by-day valuation series over the
// trailing year and computes principal invested, current total value, and
// percentage return. Each run is stateless given current durable data; its
// only side effect is backfilling missing price history.
func (s *valuationService) Valuate(ctx context.Context, portfolio *models.Portfolio) (*models.PortfolioReturns, error) {
	empty := &models.PortfolioReturns{
		EarningsAt:         []models.DailyEarnings{},
		TotalPrincipal:     decimal.Zero,
		TotalValueToday:    decimal.Zero,
		TotalPercentChange: decimal.Zero,
	}
	if portfolio == nil || len(portfolio.Positions) == 0 {
		return empty, nil
	}

	today := models.DateOnly(s.now().UTC())
	windowStart := today.AddDate(0, 0, -(analysisWindowDays - 1))

	histories, err := s.loadHistories(ctx, portfolio.Positions, windowStart, today)
	if err != nil {
		return nil, err
	}

	series := s.buildSeries(portfolio.Positions, histories, windowStart, today)

	// Drop the stretch before the first position existed. A zero day after
	// the first nonzero one stays: full liquidation is a legitimate zero.
	firstNonZero := 0
	for firstNonZero < len(series) && series[firstNonZero].TotalValue.IsZero() {
		firstNonZero++
	}
	series = series[firstNonZero:]

	principal := s.totalPrincipal(portfolio.Positions, histories, series)

	totalValueToday := decimal.Zero
	if len(series) > 0 {
		totalValueToday = series[len(series)-1].TotalValue
	}

	percentChange := decimal.Zero
	if !principal.IsZero() {
		percentChange = totalValueToday.Sub(principal).Div(principal)
	}

	return &models.PortfolioReturns{
		EarningsAt:         series,
		TotalPrincipal:     principal,
		TotalValueToday:    totalValueToday,
		TotalPercentChange: percentChange,
	}, nil
}

// loadHistories ensures durable history exists for every ticker and loads
// the window's prices into per-ticker maps, one range query per ticker.
// Tickers load in parallel; the per-day loop afterwards only touches these
// maps.
func (s *valuationService) loadHistories(ctx context.Context, positions []models.Position, windowStart, today time.Time) (map[string]*tickerHistory, error) {
	tickers := make([]string, 0)
	seen := make(map[string]struct{})
	for _, pos := range positions {
		if _, ok := seen[pos.Ticker]; ok {
			continue
		}
		seen[pos.Ticker] = struct{}{}
		tickers = append(tickers, pos.Ticker)
	}

	histories := make(map[string]*tickerHistory, len(tickers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var loadErr error

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			history, err := s.loadTicker(ctx, ticker, windowStart, today)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if loadErr == nil {
					loadErr = fmt.Errorf("failed to load history for %s: %w", ticker, err)
				}
				return
			}
			histories[ticker] = history
		}(ticker)
	}
	wg.Wait()

	if loadErr != nil {
		return nil, loadErr
	}
	return histories, nil
}

func (s *valuationService) loadTicker(ctx context.Context, ticker string, windowStart, today time.Time) (*tickerHistory, error) {
	hasAny, err := s.prices.HasAnyInRange(ctx, ticker, windowStart, today)
	if err != nil {
		return nil, err
	}
	if !hasAny {
		if _, err := s.source.BackfillYears(ctx, ticker, historyBackfillYears); err != nil {
			// Degraded: valuation proceeds with whatever durable data exists.
			s.logger.Warn("price history backfill failed",
				zap.String("ticker", ticker), zap.Error(err))
		}
	}

	rows, err := s.prices.GetRange(ctx, ticker, windowStart, today)
	if err != nil {
		return nil, err
	}

	history := &tickerHistory{
		byDay:      make(map[string]decimal.Decimal, len(rows)),
		newestDesc: make([]*models.EODPrice, len(rows)),
	}
	copy(history.newestDesc, rows)
	for _, row := range rows {
		history.byDay[row.Day().Format("2006-01-02")] = row.Close
	}
	sort.Slice(history.newestDesc, func(i, j int) bool {
		return history.newestDesc[i].Day().After(history.newestDesc[j].Day())
	})
	return history, nil
}

// buildSeries walks the window oldest to newest, valuing the positions held
// on each day. A position with no known close that day is carried with an
// absent price and excluded from the day's total.
func (s *valuationService) buildSeries(positions []models.Position, histories map[string]*tickerHistory, windowStart, today time.Time) []models.DailyEarnings {
	series := make([]models.DailyEarnings, 0, analysisWindowDays)
	for d := windowStart; !d.After(today); d = d.AddDate(0, 0, 1) {
		dayKey := d.Format("2006-01-02")
		entries := make([]models.PositionEarning, 0, len(positions))
		total := decimal.Zero

		for _, pos := range positions {
			if pos.PurchaseDay().After(d) {
				continue
			}
			entry := models.PositionEarning{
				Ticker:      pos.Ticker,
				Amount:      pos.Amount,
				BoughtAtDay: pos.PurchaseDay().Format("2006-01-02"),
			}
			if history, ok := histories[pos.Ticker]; ok {
				if price, ok := history.byDay[dayKey]; ok {
					p := price
					entry.PricePerShare = &p
					total = total.Add(pos.Amount.Mul(price))
				}
			}
			entries = append(entries, entry)
		}

		series = append(series, models.DailyEarnings{
			Date:       d,
			Positions:  entries,
			TotalValue: total,
		})
	}
	return series
}

// totalPrincipal sums each position's cost basis: its close on the purchase
// day, or — when that exact day has no row — the first entry dated on or
// after the purchase day in the newest-first list. Positions with no
// resolvable price are excluded from the sum rather than counted as free.
func (s *valuationService) totalPrincipal(positions []models.Position, histories map[string]*tickerHistory, series []models.DailyEarnings) decimal.Decimal {
	if len(series) == 0 {
		return decimal.Zero
	}
	lastDay := models.DateOnly(series[len(series)-1].Date)

	principal := decimal.Zero
	for _, pos := range positions {
		purchaseDay := pos.PurchaseDay()
		if purchaseDay.After(lastDay) {
			continue
		}
		history, ok := histories[pos.Ticker]
		if !ok {
			continue
		}

		if price, ok := history.byDay[purchaseDay.Format("2006-01-02")]; ok {
			principal = principal.Add(price.Mul(pos.Amount))
			continue
		}
		for _, row := range history.newestDesc {
			if !row.Day().Before(purchaseDay) {
				principal = principal.Add(row.Close.Mul(pos.Amount))
				break
			}
		}
	}
	return principal
}
