package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/haptickrill/krill/internal/errors"
)

const (
	// MaxTickerLength bounds ticker symbols to the exchange convention.
	MaxTickerLength = 6

	// MaxPositionAgeYears bounds how far back a purchase date may lie.
	MaxPositionAgeYears = 5
)

var minAmount = decimal.NewFromFloat(0.01)

// Position is a recorded purchase of N shares of a ticker on a specific
// date, held within a portfolio. CreatedAt is the purchase date, stored at
// day precision.
type Position struct {
	ID          string          `json:"id" gorm:"primaryKey;column:id;type:varchar(255)"`
	PortfolioID string          `json:"portfolio_id" gorm:"column:portfolio_id;type:varchar(255);not null;index"`
	Ticker      string          `json:"ticker" gorm:"column:ticker;type:varchar(6);not null;index"`
	Amount      decimal.Decimal `json:"amount" gorm:"column:amount;type:decimal(12,2);not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"column:created_at;not null"`
}

// TableName returns the table name for the Position model
func (Position) TableName() string {
	return "positions"
}

// NormalizeTicker uppercases and trims a raw ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Validate validates the position data
func (p *Position) Validate() error {
	if p.Ticker == "" {
		return &errors.ErrValidation{Field: "ticker", Message: "ticker is required"}
	}
	if len(p.Ticker) > MaxTickerLength {
		return &errors.ErrValidation{Field: "ticker", Message: "ticker must be at most 6 characters"}
	}
	if p.Ticker != NormalizeTicker(p.Ticker) {
		return &errors.ErrValidation{Field: "ticker", Message: "ticker must be uppercase"}
	}
	if p.Amount.LessThan(minAmount) {
		return &errors.ErrValidation{Field: "amount", Message: "amount must be at least 0.01"}
	}
	if !p.Amount.Equal(p.Amount.Round(2)) {
		return &errors.ErrValidation{Field: "amount", Message: "amount must have at most 2 decimal places"}
	}
	if p.CreatedAt.IsZero() {
		return &errors.ErrValidation{Field: "created_at", Message: "purchase date is required"}
	}
	now := time.Now().UTC()
	if p.CreatedAt.After(now) {
		return &errors.ErrValidation{Field: "created_at", Message: "purchase date must not be in the future"}
	}
	if p.CreatedAt.Before(now.AddDate(-MaxPositionAgeYears, 0, 0)) {
		return &errors.ErrValidation{Field: "created_at", Message: "purchase date must be within the last 5 years"}
	}
	return nil
}

// PurchaseDay returns the purchase date normalized to UTC midnight.
func (p *Position) PurchaseDay() time.Time {
	return DateOnly(p.CreatedAt)
}

// DateOnly truncates a timestamp to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
