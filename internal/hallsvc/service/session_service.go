package service

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
	"github.com/negasi/billiard-services/internal/hallsvc/syncer"
)

// PriceLookup resolves the current catalog price of a market item. The
// price is frozen into the session line at the moment the item is added.
type PriceLookup interface {
	PriceOf(name string) (float64, bool)
}

// pendingGame is the one in-flight "add a game" request. Recording a game
// is two-phase: the operator requests the increment, chooses a table, then
// the commit appends the (time, table) pair.
type pendingGame struct {
	SessionID string
	Delta     int
}

type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	pending  *pendingGame
	catalog  PriceLookup
	sync     *syncer.Syncer
}

func NewSessionService(catalog PriceLookup, sy *syncer.Syncer) *SessionService {
	s := &SessionService{
		sessions: map[string]*models.Session{},
		catalog:  catalog,
		sync:     sy,
	}
	if sy != nil {
		sy.Register("sessions", s.snapshot, s.applySnapshot)
	}
	return s
}

// StartSession opens a session for a player. The player name is the
// natural key, at most one open session per name.
func (s *SessionService) StartSession(playerName string, pricePerGame float64) (*models.Session, error) {
	s.mu.Lock()
	for _, sess := range s.sessions {
		if sess.PlayerName == playerName {
			s.mu.Unlock()
			return nil, ErrSessionExists
		}
	}

	sess := &models.Session{
		ID:             uuid.New().String(),
		PlayerName:     playerName,
		StartTime:      time.Now(),
		GameStartTimes: []time.Time{},
		GameTables:     []int{},
		PricePerGame:   pricePerGame,
		MarketItems:    map[string]models.PurchaseLine{},
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.dirty()
	return sess, nil
}

// RequestGame opens the table-choice phase for a session. It replaces any
// previous unfinished request.
func (s *SessionService) RequestGame(sessionID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	if delta <= 0 {
		delta = 1
	}

	s.pending = &pendingGame{SessionID: sessionID, Delta: delta}
	return nil
}

// PendingRequest reports the in-flight game request, if any.
func (s *SessionService) PendingRequest() (sessionID string, delta int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return "", 0, false
	}
	return s.pending.SessionID, s.pending.Delta, true
}

// CancelGame abandons the in-flight game request.
func (s *SessionService) CancelGame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// CommitGame finishes the two-phase record: the pending request plus the
// chosen table become appended (now, table) entries.
func (s *SessionService) CommitGame(tableNumber int) (*models.Session, error) {
	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return nil, ErrNoPendingGame
	}

	sess, ok := s.sessions[s.pending.SessionID]
	if !ok {
		s.pending = nil
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	now := time.Now()
	for i := 0; i < s.pending.Delta; i++ {
		sess.GameStartTimes = append(sess.GameStartTimes, now)
		sess.GameTables = append(sess.GameTables, tableNumber)
		sess.GamesPlayed++
	}
	s.pending = nil
	s.mu.Unlock()

	s.dirty()
	return sess, nil
}

// UndoGame pops the last recorded game. Privileged callers only; for
// anyone else it is a silent no-op. Already-zero sessions are left alone.
func (s *SessionService) UndoGame(sessionID string, privileged bool) error {
	if !privileged {
		log.Warnf("unprivileged undo-game attempt on session %s", sessionID)
		return nil
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if sess.GamesPlayed == 0 {
		s.mu.Unlock()
		return nil
	}

	sess.GameStartTimes = sess.GameStartTimes[:len(sess.GameStartTimes)-1]
	sess.GameTables = sess.GameTables[:len(sess.GameTables)-1]
	sess.GamesPlayed--
	s.mu.Unlock()

	s.dirty()
	return nil
}

// AdjustPurchase moves a market line's quantity by deltaQty. Adding a line
// freezes the catalog price into the session; a line that drops to zero or
// below is removed, not kept.
func (s *SessionService) AdjustPurchase(sessionID, itemName string, deltaQty int) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}

	line, exists := sess.MarketItems[itemName]
	if !exists {
		if deltaQty <= 0 {
			s.mu.Unlock()
			return nil
		}
		price, ok := s.catalog.PriceOf(itemName)
		if !ok {
			s.mu.Unlock()
			return ErrItemNotFound
		}
		line = models.PurchaseLine{Price: price}
	}

	line.Quantity += deltaQty
	if line.Quantity <= 0 {
		delete(sess.MarketItems, itemName)
	} else {
		sess.MarketItems[itemName] = line
	}
	s.mu.Unlock()

	s.dirty()
	return nil
}

// ResetAfterCheckout zeroes the session's games and purchases but keeps
// the row, so the player stays visible as waiting and never re-checks-in.
func (s *SessionService) ResetAfterCheckout(sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}

	sess.GameStartTimes = []time.Time{}
	sess.GameTables = []int{}
	sess.GamesPlayed = 0
	sess.MarketItems = map[string]models.PurchaseLine{}
	s.mu.Unlock()

	s.dirty()
	return nil
}

// RemoveSession deletes a session row. Privileged callers may remove any
// session; others only an idle one, an active session is silently kept.
func (s *SessionService) RemoveSession(sessionID string, privileged bool) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}

	if !privileged && sess.State() == models.SessionActive {
		s.mu.Unlock()
		log.Warnf("unprivileged removal attempt on active session %s", sessionID)
		return nil
	}

	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.dirty()
	return nil
}

func (s *SessionService) Get(sessionID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns all sessions in display order: active sessions first by
// earliest game time ascending, then waiting sessions by start time
// descending.
func (s *SessionService) List() []*models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *SessionService) sortedLocked() []*models.Session {
	out := make([]*models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aActive := a.State() == models.SessionActive
		bActive := b.State() == models.SessionActive
		if aActive != bActive {
			return aActive
		}
		if aActive {
			at, bt := a.FirstGameTime(), b.FirstGameTime()
			if !at.Equal(bt) {
				return at.Before(bt)
			}
			return a.PlayerName < b.PlayerName
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.After(b.StartTime)
		}
		return a.PlayerName < b.PlayerName
	})
	return out
}

func (s *SessionService) dirty() {
	if s.sync != nil {
		s.sync.Dirty("sessions")
	}
}

func (s *SessionService) snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.sortedLocked())
}

func (s *SessionService) applySnapshot(data []byte) error {
	var incoming []*models.Session
	if err := json.Unmarshal(data, &incoming); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = map[string]*models.Session{}
	for _, sess := range incoming {
		if sess == nil || sess.ID == "" {
			continue
		}
		sess.Normalize()
		s.sessions[sess.ID] = sess
	}
	return nil
}
