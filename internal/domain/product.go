package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64
	Title       string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	UserID      string // owner, the only user allowed to edit or delete
	CreatedAt   time.Time
}

// ProductFilter narrows catalog listings. Zero value lists everything.
type ProductFilter struct {
	UserID string
}

// Snapshot copies the fields an order keeps by value.
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
	}
}
