package models

import (
	"time"
)

// MarketItem is one sellable item in the shared catalog (drinks, snacks,
// cue chalk). The catalog lives in the global store partition so all halls
// see the same list.
type MarketItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
