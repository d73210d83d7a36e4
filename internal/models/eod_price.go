package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/haptickrill/krill/internal/errors"
)

// EODPrice is one end-of-day price row for a symbol, as returned by the
// remote provider. Uniquely keyed by (symbol, date); rows are written once
// and never updated since prices for a closed trading day do not change.
type EODPrice struct {
	ID          uint            `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	Symbol      string          `json:"symbol" gorm:"column:symbol;type:varchar(6);not null;uniqueIndex:idx_eod_symbol_date"`
	Date        time.Time       `json:"date" gorm:"column:date;not null;uniqueIndex:idx_eod_symbol_date"`
	Open        decimal.Decimal `json:"open" gorm:"column:open;type:decimal(18,6);not null"`
	High        decimal.Decimal `json:"high" gorm:"column:high;type:decimal(18,6);not null"`
	Low         decimal.Decimal `json:"low" gorm:"column:low;type:decimal(18,6);not null"`
	Close       decimal.Decimal `json:"close" gorm:"column:close;type:decimal(18,6);not null"`
	Volume      decimal.Decimal `json:"volume" gorm:"column:volume;type:decimal(18,2);not null"`
	AdjOpen     decimal.Decimal `json:"adj_open" gorm:"column:adj_open;type:decimal(18,6)"`
	AdjHigh     decimal.Decimal `json:"adj_high" gorm:"column:adj_high;type:decimal(18,6)"`
	AdjLow      decimal.Decimal `json:"adj_low" gorm:"column:adj_low;type:decimal(18,6)"`
	AdjClose    decimal.Decimal `json:"adj_close" gorm:"column:adj_close;type:decimal(18,6)"`
	AdjVolume   decimal.Decimal `json:"adj_volume" gorm:"column:adj_volume;type:decimal(18,2)"`
	Exchange    string          `json:"exchange" gorm:"column:exchange;type:varchar(20)"`
	Dividend    decimal.Decimal `json:"dividend" gorm:"column:dividend;type:decimal(18,6)"`
	SplitFactor decimal.Decimal `json:"split_factor" gorm:"column:split_factor;type:decimal(18,6)"`
	CreatedAt   time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for the EODPrice model
func (EODPrice) TableName() string {
	return "eod_prices"
}

// Day returns the price date normalized to UTC midnight.
func (p *EODPrice) Day() time.Time {
	return DateOnly(p.Date)
}

// Validate validates the EOD price data
func (p *EODPrice) Validate() error {
	if p.Symbol == "" {
		return &errors.ErrValidation{Field: "symbol", Message: "symbol is required"}
	}
	if p.Date.IsZero() {
		return &errors.ErrValidation{Field: "date", Message: "date is required"}
	}
	if p.Close.IsNegative() {
		return &errors.ErrValidation{Field: "close", Message: "close must not be negative"}
	}
	return nil
}

// MarketHoliday records that the remote provider returned no trading data
// for a calendar day. Date-level and global: one trading calendar is assumed
// for all tracked symbols, which is a known simplification for non-US
// listings.
type MarketHoliday struct {
	ID        uint      `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	Date      time.Time `json:"date" gorm:"column:date;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for the MarketHoliday model
func (MarketHoliday) TableName() string {
	return "market_holidays"
}
