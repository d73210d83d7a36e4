package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/haptickrill/krill/internal/errors"
	"github.com/haptickrill/krill/internal/models"
	"github.com/haptickrill/krill/internal/repositories"
)

type portfolioService struct {
	portfolios repositories.PortfolioRepository
	positions  repositories.PositionRepository
	valuation  ValuationService
	logger     *zap.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(
	portfolios repositories.PortfolioRepository,
	positions repositories.PositionRepository,
	valuation ValuationService,
	logger *zap.Logger,
) PortfolioService {
	return &portfolioService{
		portfolios: portfolios,
		positions:  positions,
		valuation:  valuation,
		logger:     logger,
	}
}

func (s *portfolioService) CreatePortfolio(ctx context.Context, title, userID string) (*models.Portfolio, error) {
	if userID == "" {
		return nil, &apperrors.ErrNotFound{Entity: "user", ID: userID}
	}
	portfolio := &models.Portfolio{
		Title:     title,
		UserID:    userID,
		Positions: []models.Position{},
	}
	if err := s.portfolios.Create(ctx, portfolio); err != nil {
		return nil, err
	}
	return portfolio, nil
}

func (s *portfolioService) GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error) {
	return s.portfolios.GetByID(ctx, id)
}

func (s *portfolioService) GetPortfolioWithReturns(ctx context.Context, id string) (*models.Portfolio, error) {
	portfolio, err := s.portfolios.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.attachReturns(ctx, portfolio)
	return portfolio, nil
}

func (s *portfolioService) ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	return s.portfolios.ListByUser(ctx, userID)
}

func (s *portfolioService) ListPortfoliosWithReturns(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	portfolios, err := s.portfolios.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, portfolio := range portfolios {
		s.attachReturns(ctx, portfolio)
	}
	return portfolios, nil
}

// attachReturns computes and attaches the return series. Valuation failures
// never fail the surrounding request: one bad ticker must not block the rest
// of the portfolio, so the client gets the portfolio without Returns and
// renders its fallback.
func (s *portfolioService) attachReturns(ctx context.Context, portfolio *models.Portfolio) {
	returns, err := s.valuation.Valuate(ctx, portfolio)
	if err != nil {
		s.logger.Warn("valuation failed, returning portfolio without returns",
			zap.String("portfolio_id", portfolio.ID), zap.Error(err))
		return
	}
	portfolio.Returns = returns
}

func (s *portfolioService) DeletePortfolio(ctx context.Context, id string) error {
	return s.portfolios.Delete(ctx, id)
}

func (s *portfolioService) AddPosition(ctx context.Context, portfolioID, ticker string, amount decimal.Decimal, purchasedAt time.Time) (*models.Position, error) {
	if _, err := s.portfolios.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	position := &models.Position{
		PortfolioID: portfolioID,
		Ticker:      models.NormalizeTicker(ticker),
		Amount:      amount,
		CreatedAt:   models.DateOnly(purchasedAt),
	}
	return s.positions.AddOrMerge(ctx, position)
}

func (s *portfolioService) DeletePosition(ctx context.Context, portfolioID, positionID string) error {
	position, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return err
	}
	if position.PortfolioID != portfolioID {
		return &apperrors.ErrNotFound{Entity: "position", ID: positionID}
	}
	return s.positions.Delete(ctx, positionID)
}
