package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haptickrill/krill/internal/db"
	apperrors "github.com/haptickrill/krill/internal/errors"
	"github.com/haptickrill/krill/internal/models"
)

type positionRepository struct {
	db *db.DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(database *db.DB) PositionRepository {
	return &positionRepository{db: database}
}

func (r *positionRepository) AddOrMerge(ctx context.Context, position *models.Position) (*models.Position, error) {
	position.Ticker = models.NormalizeTicker(position.Ticker)
	position.CreatedAt = position.PurchaseDay()
	if err := position.Validate(); err != nil {
		return nil, err
	}
	if position.ID == "" {
		position.ID = uuid.NewString()
	}

	var result *models.Position
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Position
		err := tx.Where("portfolio_id = ? AND ticker = ? AND created_at = ?",
			position.PortfolioID, position.Ticker, position.CreatedAt).
			First(&existing).Error
		switch {
		case err == nil:
			// Same ticker bought on the same day: sum the amounts and
			// replace the old row.
			position.Amount = position.Amount.Add(existing.Amount)
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("failed to replace merged position: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// plain insert
		default:
			return fmt.Errorf("failed to look up existing position: %w", err)
		}

		if err := tx.Create(position).Error; err != nil {
			return fmt.Errorf("failed to create position: %w", err)
		}
		result = position
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *positionRepository) GetByID(ctx context.Context, id string) (*models.Position, error) {
	if id == "" {
		return nil, &apperrors.ErrNotFound{Entity: "position", ID: id}
	}

	var position models.Position
	if err := r.db.WithContext(ctx).First(&position, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrNotFound{Entity: "position", ID: id}
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}

	return &position, nil
}

func (r *positionRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Position{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete position: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &apperrors.ErrNotFound{Entity: "position", ID: id}
	}
	return nil
}

func (r *positionRepository) DistinctTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	err := r.db.WithContext(ctx).
		Model(&models.Position{}).
		Distinct("ticker").
		Order("ticker ASC").
		Pluck("ticker", &tickers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked tickers: %w", err)
	}
	return tickers, nil
}
