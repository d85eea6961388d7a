package models

import (
	"time"
)

type SessionState string

const (
	SessionActive SessionState = "active"
	SessionIdle   SessionState = "idle"
)

// PurchaseLine is one market item accumulated on a session. The price is
// frozen from the catalog at the moment the first unit is added.
type PurchaseLine struct {
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Session is one active player at the hall. GameStartTimes and GameTables
// are index-aligned: entry i is "a game began at GameStartTimes[i] on table
// GameTables[i]". GamesPlayed always equals len(GameStartTimes).
type Session struct {
	ID             string                  `json:"id"`
	PlayerName     string                  `json:"player_name"`
	StartTime      time.Time               `json:"start_time"`
	GameStartTimes []time.Time             `json:"game_start_times"`
	GameTables     []int                   `json:"game_tables"`
	GamesPlayed    int                     `json:"games_played"`
	PricePerGame   float64                 `json:"price_per_game"` // rate snapshot from session creation
	MarketItems    map[string]PurchaseLine `json:"market_items"`
}

// State reports whether the player is actively consuming or just waiting.
func (s *Session) State() SessionState {
	if s.GamesPlayed > 0 || len(s.MarketItems) > 0 {
		return SessionActive
	}
	return SessionIdle
}

// FirstGameTime returns the earliest recorded game start, zero time if none.
func (s *Session) FirstGameTime() time.Time {
	if len(s.GameStartTimes) == 0 {
		return time.Time{}
	}
	return s.GameStartTimes[0]
}

// Normalize coerces nil slices and maps coming from older store snapshots
// to empty values. The external store does not enforce a schema.
func (s *Session) Normalize() {
	if s.GameStartTimes == nil {
		s.GameStartTimes = []time.Time{}
	}
	if s.GameTables == nil {
		s.GameTables = []int{}
	}
	if s.MarketItems == nil {
		s.MarketItems = map[string]PurchaseLine{}
	}
	if s.GamesPlayed != len(s.GameStartTimes) {
		s.GamesPlayed = len(s.GameStartTimes)
	}
}
