package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Recipe struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"-"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TimeMinutes int             `json:"time_minutes"` //nolint:tagliatelle
	Price       decimal.Decimal `json:"price"`
	Link        string          `json:"link,omitempty"`
	ImageKey    string          `json:"image,omitempty"`
	Tags        []Tag           `json:"tags"`
	CreatedAt   time.Time       `json:"created_at"` //nolint:tagliatelle
	UpdatedAt   time.Time       `json:"updated_at"` //nolint:tagliatelle
}
