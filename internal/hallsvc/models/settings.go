package models

// DurationRange is the expected length of one game on a table, in minutes.
type DurationRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (d DurationRange) Average() float64 {
	return (d.Min + d.Max) / 2
}

// Settings is the hall configuration snapshot. Pricing and audit functions
// take it as an argument and never read ambient state, so a computation is
// reproducible from the snapshot it was given.
type Settings struct {
	PricePerGame       float64               `json:"price_per_game"`
	CreditMinGames     int                   `json:"credit_min_games"`
	CreditMinSubtotal  float64               `json:"credit_min_subtotal"`
	DiscountTiers      map[int]float64       `json:"discount_tiers"` // game-count threshold -> discount amount
	TableCount         int                   `json:"table_count"`
	DefaultDuration    DurationRange         `json:"default_duration"`
	TableDurations     map[int]DurationRange `json:"table_durations"` // per-table override
	AuditGraceMinutes  float64               `json:"audit_grace_minutes"`
	MatchWindowMinutes float64               `json:"match_window_minutes"`
}

func DefaultSettings() Settings {
	return Settings{
		PricePerGame:       1000,
		CreditMinGames:     4,
		CreditMinSubtotal:  3000,
		DiscountTiers:      map[int]float64{},
		TableCount:         6,
		DefaultDuration:    DurationRange{Min: 8, Max: 15},
		TableDurations:     map[int]DurationRange{},
		AuditGraceMinutes:  3,
		MatchWindowMinutes: 3,
	}
}

// DurationFor returns the expected-game-duration range for a table.
func (s Settings) DurationFor(table int) DurationRange {
	if d, ok := s.TableDurations[table]; ok && d.Min > 0 && d.Max >= d.Min {
		return d
	}
	return s.DefaultDuration
}

func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.DiscountTiers == nil {
		s.DiscountTiers = map[int]float64{}
	}
	if s.TableDurations == nil {
		s.TableDurations = map[int]DurationRange{}
	}
	if s.CreditMinGames == 0 {
		s.CreditMinGames = def.CreditMinGames
	}
	if s.CreditMinSubtotal == 0 {
		s.CreditMinSubtotal = def.CreditMinSubtotal
	}
	if s.DefaultDuration.Min == 0 && s.DefaultDuration.Max == 0 {
		s.DefaultDuration = def.DefaultDuration
	}
	if s.AuditGraceMinutes == 0 {
		s.AuditGraceMinutes = def.AuditGraceMinutes
	}
	if s.MatchWindowMinutes == 0 {
		s.MatchWindowMinutes = def.MatchWindowMinutes
	}
}
