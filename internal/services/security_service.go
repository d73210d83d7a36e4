package services

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/haptickrill/krill/internal/errors"
	"github.com/haptickrill/krill/internal/models"
	"github.com/haptickrill/krill/internal/repositories"
)

type securityService struct {
	prices    repositories.PriceRepository
	positions repositories.PositionRepository
	source    PriceSource
	logger    *zap.Logger
}

// NewSecurityService creates a service that answers whether a ticker refers
// to a real, fetchable security.
func NewSecurityService(prices repositories.PriceRepository, positions repositories.PositionRepository, source PriceSource, logger *zap.Logger) SecurityService {
	return &securityService{prices: prices, positions: positions, source: source, logger: logger}
}

// SecurityExists reports whether the symbol is known: any stored EOD rows,
// any tracked position, or — as a last resort — a successful one-year
// backfill from the provider.
func (s *securityService) SecurityExists(ctx context.Context, symbol string) (bool, error) {
	symbol = models.NormalizeTicker(symbol)
	if symbol == "" {
		return false, &apperrors.ErrInvalidSymbol{Symbol: symbol}
	}

	hasPrices, err := s.prices.HasAny(ctx, symbol)
	if err != nil {
		return false, err
	}
	if hasPrices {
		return true, nil
	}

	tickers, err := s.positions.DistinctTickers(ctx)
	if err != nil {
		return false, err
	}
	for _, ticker := range tickers {
		if ticker == symbol {
			return true, nil
		}
	}

	n, err := s.source.BackfillYears(ctx, symbol, 1)
	if err != nil || n == 0 {
		if err != nil {
			s.logger.Debug("probe backfill failed", zap.String("symbol", symbol), zap.Error(err))
		}
		return false, nil
	}
	return true, nil
}
