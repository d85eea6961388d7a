package service

import (
	"encoding/json"
	"sync"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
	"github.com/negasi/billiard-services/internal/hallsvc/syncer"
)

// SettingsService holds the hall configuration. Readers get value copies,
// the pricing and audit code never sees a shared mutable object.
type SettingsService struct {
	mu   sync.Mutex
	cfg  models.Settings
	sync *syncer.Syncer
}

func NewSettingsService(sy *syncer.Syncer) *SettingsService {
	s := &SettingsService{
		cfg:  models.DefaultSettings(),
		sync: sy,
	}
	if sy != nil {
		sy.Register("settings", s.snapshot, s.applySnapshot)
	}
	return s
}

func (s *SettingsService) Get() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	cfg.DiscountTiers = map[int]float64{}
	for k, v := range s.cfg.DiscountTiers {
		cfg.DiscountTiers[k] = v
	}
	cfg.TableDurations = map[int]models.DurationRange{}
	for k, v := range s.cfg.TableDurations {
		cfg.TableDurations[k] = v
	}
	return cfg
}

func (s *SettingsService) Put(cfg models.Settings) {
	cfg.Normalize()

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	if s.sync != nil {
		s.sync.Dirty("settings")
	}
}

func (s *SettingsService) snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.cfg)
}

func (s *SettingsService) applySnapshot(data []byte) error {
	cfg := models.Settings{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	cfg.Normalize()

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}
