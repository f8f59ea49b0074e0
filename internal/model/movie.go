package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movie mirrors the movies table. Price is the current catalog price; orders
// never read it after creation because they carry their own price snapshots.
type Movie struct {
	ID          uint64          `json:"id"`
	UUID        uuid.UUID       `json:"uuid"`
	Name        string          `json:"name"`
	Year        int             `json:"year"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Cart is a user's shopping cart. One cart per user.
type Cart struct {
	ID     uint64
	UserID uint64
}

// CartItem uniquely pairs a cart with a movie.
type CartItem struct {
	ID      uint64
	CartID  uint64
	MovieID uint64
	AddedAt time.Time
}
