package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
)

type fakeCatalog map[string]float64

func (f fakeCatalog) PriceOf(name string) (float64, bool) {
	price, ok := f[name]
	return price, ok
}

func newTestSessions() *SessionService {
	return NewSessionService(fakeCatalog{"soda": 500, "chalk": 150}, nil)
}

func playGame(t *testing.T, s *SessionService, sessionID string, table int) {
	t.Helper()
	require.NoError(t, s.RequestGame(sessionID, 1))
	_, err := s.CommitGame(table)
	require.NoError(t, err)
}

func TestStartSessionDuplicateName(t *testing.T) {
	s := newTestSessions()

	first, err := s.StartSession("Biniam", 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, first.GamesPlayed)
	assert.Equal(t, 1000.0, first.PricePerGame)

	_, err = s.StartSession("Biniam", 1000)
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestTwoPhaseGameRecording(t *testing.T) {
	s := newTestSessions()
	sess, err := s.StartSession("Biniam", 1000)
	require.NoError(t, err)

	// committing without a pending request fails
	_, err = s.CommitGame(3)
	assert.ErrorIs(t, err, ErrNoPendingGame)

	require.NoError(t, s.RequestGame(sess.ID, 1))
	_, delta, pending := s.PendingRequest()
	require.True(t, pending)
	assert.Equal(t, 1, delta)

	got, err := s.CommitGame(3)
	require.NoError(t, err)
	assert.Equal(t, 1, got.GamesPlayed)
	assert.Equal(t, []int{3}, got.GameTables)
	assert.Len(t, got.GameStartTimes, 1)

	// the commit consumed the pending request
	_, _, pending = s.PendingRequest()
	assert.False(t, pending)

	// cancel drops a fresh request without recording anything
	require.NoError(t, s.RequestGame(sess.ID, 1))
	s.CancelGame()
	_, err = s.CommitGame(5)
	assert.ErrorIs(t, err, ErrNoPendingGame)
	assert.Equal(t, 1, got.GamesPlayed)
}

func TestUndoGame(t *testing.T) {
	s := newTestSessions()
	sess, _ := s.StartSession("Biniam", 1000)
	playGame(t, s, sess.ID, 2)
	playGame(t, s, sess.ID, 4)

	// unprivileged undo is a silent no-op
	require.NoError(t, s.UndoGame(sess.ID, false))
	got, _ := s.Get(sess.ID)
	assert.Equal(t, 2, got.GamesPlayed)

	require.NoError(t, s.UndoGame(sess.ID, true))
	got, _ = s.Get(sess.ID)
	assert.Equal(t, 1, got.GamesPlayed)
	assert.Equal(t, []int{2}, got.GameTables)

	// undo at zero stays at zero
	require.NoError(t, s.UndoGame(sess.ID, true))
	require.NoError(t, s.UndoGame(sess.ID, true))
	got, _ = s.Get(sess.ID)
	assert.Equal(t, 0, got.GamesPlayed)
	assert.Empty(t, got.GameStartTimes)
}

func TestAdjustPurchase(t *testing.T) {
	s := newTestSessions()
	sess, _ := s.StartSession("Biniam", 1000)

	require.NoError(t, s.AdjustPurchase(sess.ID, "soda", 2))
	got, _ := s.Get(sess.ID)
	assert.Equal(t, models.PurchaseLine{Price: 500, Quantity: 2}, got.MarketItems["soda"])

	// the catalog price was frozen at add time
	require.NoError(t, s.AdjustPurchase(sess.ID, "soda", 1))
	got, _ = s.Get(sess.ID)
	assert.Equal(t, 3, got.MarketItems["soda"].Quantity)
	assert.Equal(t, 500.0, got.MarketItems["soda"].Price)

	// dropping to zero removes the line entirely
	require.NoError(t, s.AdjustPurchase(sess.ID, "soda", -3))
	got, _ = s.Get(sess.ID)
	assert.NotContains(t, got.MarketItems, "soda")

	// unknown items are rejected at add
	assert.ErrorIs(t, s.AdjustPurchase(sess.ID, "cigars", 1), ErrItemNotFound)

	// decrementing an absent line is a no-op, not an error
	require.NoError(t, s.AdjustPurchase(sess.ID, "chalk", -1))
	got, _ = s.Get(sess.ID)
	assert.Empty(t, got.MarketItems)
}

func TestResetAfterCheckoutKeepsRow(t *testing.T) {
	s := newTestSessions()
	sess, _ := s.StartSession("Biniam", 1000)
	playGame(t, s, sess.ID, 2)
	require.NoError(t, s.AdjustPurchase(sess.ID, "soda", 1))

	require.NoError(t, s.ResetAfterCheckout(sess.ID))

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "Biniam", got.PlayerName)
	assert.Equal(t, sess.StartTime, got.StartTime)
	assert.Equal(t, 0, got.GamesPlayed)
	assert.Empty(t, got.GameStartTimes)
	assert.Empty(t, got.GameTables)
	assert.Empty(t, got.MarketItems)
	assert.Equal(t, models.SessionIdle, got.State())
}

func TestRemoveSessionPrivilege(t *testing.T) {
	s := newTestSessions()
	active, _ := s.StartSession("Biniam", 1000)
	playGame(t, s, active.ID, 1)
	idle, _ := s.StartSession("Samri", 1000)

	// unprivileged removal of an active session is silently kept
	require.NoError(t, s.RemoveSession(active.ID, false))
	_, err := s.Get(active.ID)
	assert.NoError(t, err)

	// unprivileged removal of an idle session works
	require.NoError(t, s.RemoveSession(idle.ID, false))
	_, err = s.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// privileged removal works regardless of state
	require.NoError(t, s.RemoveSession(active.ID, true))
	_, err = s.Get(active.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListOrdering(t *testing.T) {
	s := newTestSessions()

	waitingOld, _ := s.StartSession("WaitingOld", 1000)
	activeFirst, _ := s.StartSession("ActiveFirst", 1000)
	playGame(t, s, activeFirst.ID, 1)
	activeSecond, _ := s.StartSession("ActiveSecond", 1000)
	playGame(t, s, activeSecond.ID, 2)
	waitingNew, _ := s.StartSession("WaitingNew", 1000)

	names := []string{}
	for _, sess := range s.List() {
		names = append(names, sess.PlayerName)
	}

	// actives first, oldest game leading; then waiting, newest first
	require.Len(t, names, 4)
	assert.Equal(t, "ActiveFirst", names[0])
	assert.Equal(t, "ActiveSecond", names[1])
	assert.Equal(t, []string{"WaitingNew", "WaitingOld"}, names[2:])

	_ = waitingOld
	_ = waitingNew
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestSessions()
	sess, _ := s.StartSession("Biniam", 1000)
	playGame(t, s, sess.ID, 3)
	require.NoError(t, s.AdjustPurchase(sess.ID, "soda", 2))

	data, err := s.snapshot()
	require.NoError(t, err)

	restored := newTestSessions()
	require.NoError(t, restored.applySnapshot(data))

	got, err := restored.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Biniam", got.PlayerName)
	assert.Equal(t, 1, got.GamesPlayed)
	assert.Equal(t, []int{3}, got.GameTables)
	assert.Equal(t, 2, got.MarketItems["soda"].Quantity)
}

func TestApplySnapshotCoercesMalformedShapes(t *testing.T) {
	s := newTestSessions()

	// an older snapshot with missing arrays and a wrong count
	raw := []byte(`[{"id":"x","player_name":"Hana","games_played":7}]`)
	require.NoError(t, s.applySnapshot(raw))

	got, err := s.Get("x")
	require.NoError(t, err)
	assert.NotNil(t, got.GameStartTimes)
	assert.NotNil(t, got.GameTables)
	assert.NotNil(t, got.MarketItems)
	assert.Equal(t, 0, got.GamesPlayed) // count follows the actual array
}
