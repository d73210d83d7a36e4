package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/haptickrill/krill/internal/db"
	"github.com/haptickrill/krill/internal/models"
	"github.com/haptickrill/krill/internal/repositories"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// One connection: each sqlite :memory: connection is its own database.
	sqlDB.SetMaxOpenConns(1)

	database := &db.DB{DB: gdb}
	require.NoError(t, database.Migrate())
	return database
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func eodRow(symbol, date string, close float64) *models.EODPrice {
	d, _ := time.Parse("2006-01-02", date)
	c := decimal.NewFromFloat(close)
	return &models.EODPrice{
		Symbol: symbol,
		Date:   d,
		Open:   c,
		High:   c,
		Low:    c,
		Close:  c,
		Volume: decimal.NewFromInt(1000),
	}
}

// newTestLimiter returns a rate limiter on a fake clock: sleeps advance the
// clock instead of blocking the test.
func newTestLimiter() *RateLimiter {
	l := NewRateLimiter()
	var mu sync.Mutex
	current := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	l.sleep = func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(d)
	}
	return l
}

// stubSource is a scriptable PriceSource that counts remote calls and
// persists through a real price repository.
type stubSource struct {
	prices repositories.PriceRepository

	mu              sync.Mutex
	fetchDayCalls   int
	backfillCalls   int
	fetchRangeCalls []fetchRangeCall

	fetchDayFn   func(symbol string, date time.Time) (*models.EODPrice, error)
	fetchRangeFn func(symbol string, from, to time.Time) ([]*models.EODPrice, error)
	backfillFn   func(symbol string) ([]*models.EODPrice, error)
}

type fetchRangeCall struct {
	symbol   string
	from, to time.Time
}

func (s *stubSource) FetchRange(ctx context.Context, symbol string, from, to time.Time) ([]*models.EODPrice, error) {
	s.mu.Lock()
	s.fetchRangeCalls = append(s.fetchRangeCalls, fetchRangeCall{symbol: symbol, from: from, to: to})
	s.mu.Unlock()
	if s.fetchRangeFn == nil {
		return nil, nil
	}
	return s.fetchRangeFn(symbol, from, to)
}

func (s *stubSource) FetchDay(ctx context.Context, symbol string, date time.Time) (*models.EODPrice, error) {
	s.mu.Lock()
	s.fetchDayCalls++
	s.mu.Unlock()
	if s.fetchDayFn == nil {
		return nil, nil
	}
	return s.fetchDayFn(symbol, date)
}

func (s *stubSource) Persist(ctx context.Context, records []*models.EODPrice) (int, error) {
	if s.prices == nil {
		return len(records), nil
	}
	return s.prices.InsertNew(ctx, records)
}

func (s *stubSource) BackfillYears(ctx context.Context, symbol string, years int) (int, error) {
	s.mu.Lock()
	s.backfillCalls++
	s.mu.Unlock()
	if s.backfillFn == nil {
		return 0, nil
	}
	rows, err := s.backfillFn(symbol)
	if err != nil {
		return 0, err
	}
	return s.Persist(ctx, rows)
}

func (s *stubSource) dayCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchDayCalls
}
