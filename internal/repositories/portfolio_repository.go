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

type portfolioRepository struct {
	db *db.DB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(database *db.DB) PortfolioRepository {
	return &portfolioRepository{db: database}
}

func (r *portfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if err := portfolio.Validate(); err != nil {
		return err
	}
	if portfolio.ID == "" {
		portfolio.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(portfolio).Error; err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	return nil
}

func (r *portfolioRepository) GetByID(ctx context.Context, id string) (*models.Portfolio, error) {
	if id == "" {
		return nil, &apperrors.ErrNotFound{Entity: "portfolio", ID: id}
	}

	var portfolio models.Portfolio
	err := r.db.WithContext(ctx).Preload("Positions").First(&portfolio, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrNotFound{Entity: "portfolio", ID: id}
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return &portfolio, nil
}

func (r *portfolioRepository) ListByUser(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	var portfolios []*models.Portfolio
	err := r.db.WithContext(ctx).
		Preload("Positions").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&portfolios).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	return portfolios, nil
}

func (r *portfolioRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var portfolio models.Portfolio
		if err := tx.First(&portfolio, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperrors.ErrNotFound{Entity: "portfolio", ID: id}
			}
			return fmt.Errorf("failed to get portfolio: %w", err)
		}
		// Positions cascade with their portfolio. Deleted explicitly as well
		// so the behavior does not depend on the database honoring the
		// foreign-key constraint (sqlite test databases may not).
		if err := tx.Where("portfolio_id = ?", id).Delete(&models.Position{}).Error; err != nil {
			return fmt.Errorf("failed to delete positions: %w", err)
		}
		if err := tx.Delete(&portfolio).Error; err != nil {
			return fmt.Errorf("failed to delete portfolio: %w", err)
		}
		return nil
	})
}
