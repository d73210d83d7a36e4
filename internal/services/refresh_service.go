package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/haptickrill/krill/internal/models"
	"github.com/haptickrill/krill/internal/repositories"
)

// trackedHistoryStart is how far back history is fetched for a ticker that
// has no stored rows at all.
var trackedHistoryStart = time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)

type refreshService struct {
	positions repositories.PositionRepository
	prices    repositories.PriceRepository
	source    PriceSource
	logger    *zap.Logger
	now       func() time.Time
	location  *time.Location
}

// NewRefreshService creates the tracked-ticker refresh job. Scheduling is
// external (cron in main, or the HTTP trigger endpoint).
func NewRefreshService(positions repositories.PositionRepository, prices repositories.PriceRepository, source PriceSource, logger *zap.Logger) RefreshService {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &refreshService{
		positions: positions,
		prices:    prices,
		source:    source,
		logger:    logger,
		now:       time.Now,
		location:  loc,
	}
}

// RefreshTracked brings stored history current for every ticker held in any
// position: stale tickers fetch the gap since their newest stored row, and
// tickers with no rows at all backfill from trackedHistoryStart.
func (s *refreshService) RefreshTracked(ctx context.Context) (*RefreshSummary, error) {
	tickers, err := s.positions.DistinctTickers(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RefreshSummary{Tickers: tickers}
	if len(tickers) == 0 {
		return summary, nil
	}

	target := s.fetchTarget()

	type gap struct {
		ticker string
		from   time.Time
	}
	var gaps []gap
	for _, ticker := range tickers {
		latest, err := s.prices.LatestBySymbol(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			gaps = append(gaps, gap{ticker: ticker, from: trackedHistoryStart})
			continue
		}
		if target.Sub(latest.Day()) > 24*time.Hour {
			gaps = append(gaps, gap{ticker: ticker, from: latest.Day()})
		}
	}

	var fetched []*models.EODPrice
	for _, g := range gaps {
		rows, err := s.source.FetchRange(ctx, g.ticker, g.from, target)
		if err != nil {
			s.logger.Warn("refresh fetch failed, skipping ticker",
				zap.String("ticker", g.ticker), zap.Error(err))
			continue
		}
		fetched = append(fetched, rows...)
	}
	summary.Fetched = len(fetched)

	if len(fetched) > 0 {
		n, err := s.source.Persist(ctx, fetched)
		if err != nil {
			return nil, err
		}
		summary.Persisted = n
	}

	s.logger.Info("tracked ticker refresh complete",
		zap.Int("tickers", len(tickers)),
		zap.Int("gaps", len(gaps)),
		zap.Int("fetched", summary.Fetched),
		zap.Int("persisted", summary.Persisted))
	return summary, nil
}

// fetchTarget is the most recent day with a settled close, computed in
// exchange time: during a weekday trading session the previous day, and on
// weekends the prior Friday.
func (s *refreshService) fetchTarget() time.Time {
	now := s.now().In(s.location)

	// Pad the session by an hour on each side so a close still being
	// published is not requested early.
	if wd := now.Weekday(); wd != time.Saturday && wd != time.Sunday &&
		now.Hour() >= 8 && now.Hour() <= 17 {
		now = now.AddDate(0, 0, -1)
	}
	for {
		if wd := now.Weekday(); wd != time.Saturday && wd != time.Sunday {
			break
		}
		now = now.AddDate(0, 0, -1)
	}
	return models.DateOnly(now)
}
