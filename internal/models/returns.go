package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionEarning is one position's contribution to a day's valuation.
// PricePerShare is nil when no close price is known for that day (weekend or
// data gap); such entries are excluded from the day's total.
type PositionEarning struct {
	Ticker        string           `json:"ticker"`
	Amount        decimal.Decimal  `json:"amount"`
	PricePerShare *decimal.Decimal `json:"pricePerShare,omitempty"`
	BoughtAtDay   string           `json:"boughtAtDay"`
}

// Known reports whether the day had a resolvable close price.
func (e *PositionEarning) Known() bool {
	return e.PricePerShare != nil
}

// DailyEarnings is the valuation of all held positions on one calendar day.
type DailyEarnings struct {
	Date       time.Time         `json:"date"`
	Positions  []PositionEarning `json:"positions"`
	TotalValue decimal.Decimal   `json:"totalValue"`
}

// PortfolioReturns is the derived return series and summary for a portfolio
// over the trailing analysis window. Computed on demand, never persisted.
type PortfolioReturns struct {
	EarningsAt         []DailyEarnings `json:"earningsAt"`
	TotalPrincipal     decimal.Decimal `json:"totalPrincipal"`
	TotalValueToday    decimal.Decimal `json:"totalValueToday"`
	TotalPercentChange decimal.Decimal `json:"totalPercentChange"`
}
