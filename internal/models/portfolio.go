package models

import (
	"time"

	"github.com/haptickrill/krill/internal/errors"
)

// Portfolio is a named collection of stock positions owned by a user.
type Portfolio struct {
	ID        string     `json:"id" gorm:"primaryKey;column:id;type:varchar(255)"`
	Title     string     `json:"title" gorm:"column:title;type:varchar(255);not null"`
	UserID    string     `json:"user_id" gorm:"column:user_id;type:varchar(255);not null;index"`
	Positions []Position `json:"positions" gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	// Returns is computed on demand and never persisted. It is omitted from
	// the JSON payload when valuation failed; the client renders a fallback.
	Returns *PortfolioReturns `json:"returns,omitempty" gorm:"-"`
}

// TableName returns the table name for the Portfolio model
func (Portfolio) TableName() string {
	return "portfolios"
}

// Validate validates the portfolio data
func (p *Portfolio) Validate() error {
	if p.Title == "" {
		return &errors.ErrValidation{Field: "title", Message: "title is required"}
	}
	if p.UserID == "" {
		return &errors.ErrValidation{Field: "user_id", Message: "user_id is required"}
	}
	return nil
}
