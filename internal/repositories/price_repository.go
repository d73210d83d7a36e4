package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haptickrill/krill/internal/db"
	"github.com/haptickrill/krill/internal/models"
)

type priceRepository struct {
	db *db.DB
}

// NewPriceRepository creates a new EOD price repository
func NewPriceRepository(database *db.DB) PriceRepository {
	return &priceRepository{db: database}
}

func (r *priceRepository) GetBySymbolDate(ctx context.Context, symbol string, date time.Time) (*models.EODPrice, error) {
	var price models.EODPrice
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND date = ?", symbol, models.DateOnly(date)).
		First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price: %w", err)
	}
	return &price, nil
}

func (r *priceRepository) GetRange(ctx context.Context, symbol string, from, to time.Time) ([]*models.EODPrice, error) {
	var prices []*models.EODPrice
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND date >= ? AND date <= ?", symbol, models.DateOnly(from), models.DateOnly(to)).
		Order("date ASC").
		Find(&prices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get price range: %w", err)
	}
	return prices, nil
}

func (r *priceRepository) LatestBySymbol(ctx context.Context, symbol string) (*models.EODPrice, error) {
	var price models.EODPrice
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date DESC").
		First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	return &price, nil
}

func (r *priceRepository) HasAnyInRange(ctx context.Context, symbol string, from, to time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EODPrice{}).
		Where("symbol = ? AND date >= ? AND date <= ?", symbol, models.DateOnly(from), models.DateOnly(to)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count prices in range: %w", err)
	}
	return count > 0, nil
}

func (r *priceRepository) HasAny(ctx context.Context, symbol string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EODPrice{}).
		Where("symbol = ?", symbol).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count prices: %w", err)
	}
	return count > 0, nil
}

func (r *priceRepository) InsertNew(ctx context.Context, records []*models.EODPrice) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	// Batch de-duplication: one range query over the batch's symbol set and
	// date span, then insert only rows whose (symbol, date) is unseen.
	symbolSet := make(map[string]struct{})
	minDate, maxDate := models.DateOnly(records[0].Date), models.DateOnly(records[0].Date)
	for _, rec := range records {
		symbolSet[rec.Symbol] = struct{}{}
		day := rec.Day()
		if day.Before(minDate) {
			minDate = day
		}
		if day.After(maxDate) {
			maxDate = day
		}
	}
	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}

	var known []*models.EODPrice
	err := r.db.WithContext(ctx).
		Select("symbol", "date").
		Where("symbol IN ? AND date >= ? AND date <= ?", symbols, minDate, maxDate).
		Find(&known).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query known prices: %w", err)
	}
	seen := make(map[string]struct{}, len(known))
	for _, k := range known {
		seen[k.Symbol+"|"+k.Day().Format("2006-01-02")] = struct{}{}
	}

	fresh := make([]*models.EODPrice, 0, len(records))
	for _, rec := range records {
		key := rec.Symbol + "|" + rec.Day().Format("2006-01-02")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rec.Date = rec.Day()
		fresh = append(fresh, rec)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	// OnConflict DoNothing backstops a concurrent writer racing the
	// check-then-insert on the (symbol, date) unique index.
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(fresh, 500).Error
	if err != nil {
		return 0, fmt.Errorf("failed to insert prices: %w", err)
	}
	return len(fresh), nil
}

func (r *priceRepository) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MarketHoliday{}).
		Where("date = ?", models.DateOnly(date)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check holiday: %w", err)
	}
	return count > 0, nil
}

func (r *priceRepository) MarkHoliday(ctx context.Context, date time.Time) error {
	holiday := &models.MarketHoliday{Date: models.DateOnly(date)}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(holiday).Error
	if err != nil {
		return fmt.Errorf("failed to mark holiday: %w", err)
	}
	return nil
}
