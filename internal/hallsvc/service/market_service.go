package service

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
	"github.com/negasi/billiard-services/internal/hallsvc/syncer"
)

// MarketService owns the shared item catalog. It syncs against the global
// store partition, every hall sees the same list.
type MarketService struct {
	mu    sync.Mutex
	items map[string]*models.MarketItem
	sync  *syncer.Syncer
}

func NewMarketService(sy *syncer.Syncer) *MarketService {
	m := &MarketService{
		items: map[string]*models.MarketItem{},
		sync:  sy,
	}
	if sy != nil {
		sy.Register("market_items", m.snapshot, m.applySnapshot)
	}
	return m
}

func (m *MarketService) Create(name string, price float64) *models.MarketItem {
	now := time.Now()
	item := &models.MarketItem{
		ID:        uuid.New().String(),
		Name:      name,
		Price:     price,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.items[item.ID] = item
	m.mu.Unlock()

	m.dirty()
	return item
}

func (m *MarketService) Update(id, name string, price float64) error {
	m.mu.Lock()
	item, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return ErrItemNotFound
	}
	item.Name = name
	item.Price = price
	item.UpdatedAt = time.Now()
	m.mu.Unlock()

	m.dirty()
	return nil
}

func (m *MarketService) Delete(id string) error {
	m.mu.Lock()
	if _, ok := m.items[id]; !ok {
		m.mu.Unlock()
		return ErrItemNotFound
	}
	delete(m.items, id)
	m.mu.Unlock()

	m.dirty()
	return nil
}

func (m *MarketService) List() []*models.MarketItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.MarketItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PriceOf implements PriceLookup for the session ledger.
func (m *MarketService) PriceOf(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.items {
		if item.Name == name {
			return item.Price, true
		}
	}
	return 0, false
}

func (m *MarketService) dirty() {
	if m.sync != nil {
		m.sync.Dirty("market_items")
	}
}

func (m *MarketService) snapshot() ([]byte, error) {
	return json.Marshal(m.List())
}

func (m *MarketService) applySnapshot(data []byte) error {
	var incoming []*models.MarketItem
	if err := json.Unmarshal(data, &incoming); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = map[string]*models.MarketItem{}
	for _, item := range incoming {
		if item == nil || item.ID == "" {
			continue
		}
		m.items[item.ID] = item
	}
	return nil
}
