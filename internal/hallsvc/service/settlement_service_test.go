package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
)

func checkoutDebt(t *testing.T, s *SessionService, txs *TransactionService, cfg models.Settings, player string, games int, paid float64) *models.Transaction {
	t.Helper()
	sess, err := s.StartSession(player, cfg.PricePerGame)
	if err != nil {
		sess = findByName(s, player)
	}
	for i := 0; i < games; i++ {
		playGame(t, s, sess.ID, 1)
	}
	tx, err := txs.Finalize(sess.ID, cfg, models.PayDebt, paid, "staff-1", "")
	require.NoError(t, err)
	return tx
}

func findByName(s *SessionService, player string) *models.Session {
	for _, sess := range s.List() {
		if sess.PlayerName == player {
			return sess
		}
	}
	return nil
}

func TestFinalizeDebtAndSettleFull(t *testing.T) {
	cfg := models.DefaultSettings()
	cfg.PricePerGame = 100

	sessions := newTestSessions()
	txs := NewTransactionService(sessions, nil)
	settlement := NewSettlementService(txs)

	tx := checkoutDebt(t, sessions, txs, cfg, "Biniam", 3, 300)
	assert.False(t, tx.IsSettled)
	assert.Equal(t, models.PayDebt, tx.PaymentMethod)

	groups := settlement.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "Biniam", groups[0].PlayerName)
	assert.Equal(t, 300.0, groups[0].TotalAmount)

	res, err := settlement.Settle("Biniam", models.SettleFull, 0)
	require.NoError(t, err)
	assert.Equal(t, 300.0, res.Applied)

	assert.Empty(t, settlement.Groups())
}

func TestSettlePartialSplitsLedger(t *testing.T) {
	cfg := models.DefaultSettings()
	cfg.PricePerGame = 100

	sessions := newTestSessions()
	txs := NewTransactionService(sessions, nil)
	settlement := NewSettlementService(txs)

	// two visits, two debts: 500 then 300
	checkoutDebt(t, sessions, txs, cfg, "Biniam", 5, 500)
	checkoutDebt(t, sessions, txs, cfg, "Biniam", 3, 300)

	res, err := settlement.Settle("Biniam", models.SettlePartial, 600)
	require.NoError(t, err)
	assert.Equal(t, 600.0, res.Applied)
	require.NotNil(t, res.Created)
	assert.Equal(t, 100.0, res.Created.TotalPaid)

	// the split sibling joined the ledger
	all := txs.All()
	assert.Len(t, all, 3)

	groups := settlement.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, 200.0, groups[0].TotalAmount)

	// money conserved across the whole ledger
	total := 0.0
	for _, tx := range all {
		total += tx.TotalPaid
	}
	assert.Equal(t, 800.0, total)
}

func TestSettleValidation(t *testing.T) {
	cfg := models.DefaultSettings()
	cfg.PricePerGame = 100

	sessions := newTestSessions()
	txs := NewTransactionService(sessions, nil)
	settlement := NewSettlementService(txs)

	checkoutDebt(t, sessions, txs, cfg, "Biniam", 2, 200)

	_, err := settlement.Settle("Biniam", models.SettlePartial, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = settlement.Settle("Biniam", models.SettlePartial, -10)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = settlement.Settle("Nobody", models.SettleFull, 0)
	assert.ErrorIs(t, err, ErrNoDebts)

	// partial above the group total is capped, not an error
	res, err := settlement.Settle("Biniam", models.SettlePartial, 9999)
	require.NoError(t, err)
	assert.Equal(t, 200.0, res.Applied)
}

func TestFinalizeResetsSessionForReuse(t *testing.T) {
	cfg := models.DefaultSettings()
	cfg.PricePerGame = 1000
	cfg.DiscountTiers = map[int]float64{4: 500}

	sessions := newTestSessions()
	txs := NewTransactionService(sessions, nil)

	sess, err := sessions.StartSession("Biniam", cfg.PricePerGame)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		playGame(t, sessions, sess.ID, 2)
	}
	require.NoError(t, sessions.AdjustPurchase(sess.ID, "soda", 2))

	tx, err := txs.Finalize(sess.ID, cfg, models.PayCredit, 5500, "staff-1", "regular")
	require.NoError(t, err)

	assert.Equal(t, 5000.0, tx.Amount)
	assert.Equal(t, 1000.0, tx.MarketTotal)
	assert.Equal(t, 500.0, tx.Discount)
	assert.Equal(t, 5500.0, tx.ExpectedTotal)
	assert.True(t, tx.IsSettled)
	assert.Len(t, tx.GameStartTimes, 5)
	assert.Equal(t, "staff-1", tx.CollectedBy)

	// the session survives, zeroed, same identity
	got, err := sessions.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "Biniam", got.PlayerName)
	assert.Equal(t, 0, got.GamesPlayed)
	assert.Empty(t, got.MarketItems)

	// the transaction keeps its own copy of the game log
	assert.Len(t, tx.GameStartTimes, 5)
	assert.Len(t, tx.GameTables, 5)
}

func TestFinalizeRejectsIneligibleCredit(t *testing.T) {
	cfg := models.DefaultSettings()
	cfg.PricePerGame = 100 // 2 games = 200, far below the credit floor

	sessions := newTestSessions()
	txs := NewTransactionService(sessions, nil)

	sess, _ := sessions.StartSession("Biniam", cfg.PricePerGame)
	playGame(t, sessions, sess.ID, 1)
	playGame(t, sessions, sess.ID, 1)

	_, err := txs.Finalize(sess.ID, cfg, models.PayCredit, 200, "staff-1", "")
	require.Error(t, err)

	// nothing was appended, the session was not reset
	assert.Empty(t, txs.All())
	got, _ := sessions.Get(sess.ID)
	assert.Equal(t, 2, got.GamesPlayed)
}

func TestOverpaymentIsAllowed(t *testing.T) {
	cfg := models.DefaultSettings()
	cfg.PricePerGame = 100

	sessions := newTestSessions()
	txs := NewTransactionService(sessions, nil)

	sess, _ := sessions.StartSession("Biniam", cfg.PricePerGame)
	playGame(t, sessions, sess.ID, 1)

	tx, err := txs.Finalize(sess.ID, cfg, models.PayCash, 150, "staff-1", "kept the change")
	require.NoError(t, err)
	assert.Equal(t, 100.0, tx.ExpectedTotal)
	assert.Equal(t, 150.0, tx.TotalPaid) // operator value is authoritative
}

func TestDeletePrivilege(t *testing.T) {
	cfg := models.DefaultSettings()
	cfg.PricePerGame = 100

	sessions := newTestSessions()
	txs := NewTransactionService(sessions, nil)

	a := checkoutDebt(t, sessions, txs, cfg, "Biniam", 1, 100)
	b := checkoutDebt(t, sessions, txs, cfg, "Samri", 1, 100)

	assert.False(t, txs.Delete(a.ID, false))
	assert.Len(t, txs.All(), 2)

	assert.True(t, txs.Delete(a.ID, true))
	assert.Len(t, txs.All(), 1)

	assert.Equal(t, 0, txs.DeleteMany([]string{b.ID}, false))
	assert.Equal(t, 1, txs.DeleteMany([]string{b.ID, "ghost"}, true))
	assert.Empty(t, txs.All())
}
