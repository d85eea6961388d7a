package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
	"github.com/negasi/billiard-services/internal/hallsvc/pricing"
	"github.com/negasi/billiard-services/internal/hallsvc/settle"
	"github.com/negasi/billiard-services/internal/hallsvc/syncer"
)

// TransactionService owns the append-only checkout ledger. Transactions
// are the durable record: sessions get reset and reused, the ledger never
// does.
type TransactionService struct {
	mu       sync.Mutex
	txs      []*models.Transaction
	sessions *SessionService
	sync     *syncer.Syncer
}

func NewTransactionService(sessions *SessionService, sy *syncer.Syncer) *TransactionService {
	t := &TransactionService{
		sessions: sessions,
		sync:     sy,
	}
	if sy != nil {
		sy.Register("transactions", t.snapshot, t.applySnapshot)
	}
	return t
}

// Finalize checks a session out: it prices the session under the chosen
// method, captures the full audit copy into one transaction, appends it,
// and resets the session for the player's next visit. The operator-entered
// paid amount is authoritative even when it differs from the expected
// total; the caller surfaces the mismatch as a warning.
func (t *TransactionService) Finalize(sessionID string, cfg models.Settings, method models.PaymentMethod, paidAmount float64, collectedBy, note string) (*models.Transaction, error) {
	sess, err := t.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.BuildQuote(cfg, sess, method)
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:             uuid.New().String(),
		SessionID:      sess.ID,
		PlayerName:     sess.PlayerName,
		Timestamp:      time.Now(),
		Amount:         quote.Subtotal,
		MarketTotal:    quote.MarketTotal,
		Discount:       quote.Discount,
		ExpectedTotal:  quote.ExpectedTotal,
		TotalPaid:      paidAmount,
		PaymentMethod:  method,
		IsSettled:      method != models.PayDebt,
		GameStartTimes: append([]time.Time{}, sess.GameStartTimes...),
		GameTables:     append([]int{}, sess.GameTables...),
		MarketItems:    map[string]models.PurchaseLine{},
		CollectedBy:    collectedBy,
		Note:           note,
	}
	for name, line := range sess.MarketItems {
		tx.MarketItems[name] = line
	}

	t.mu.Lock()
	t.txs = append(t.txs, tx)
	t.mu.Unlock()
	t.dirty()

	if err := t.sessions.ResetAfterCheckout(sess.ID); err != nil {
		log.Errorf("Error resetting session %s after checkout: %s", sess.ID, err)
	}

	return tx, nil
}

// All returns a copy of the ledger slice. The pointed-to transactions are
// shared, callers treat them as read-only.
func (t *TransactionService) All() []*models.Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*models.Transaction{}, t.txs...)
}

// Delete hard-removes one transaction, for audit corrections. Privileged
// callers only, anyone else is a silent no-op.
func (t *TransactionService) Delete(id string, privileged bool) bool {
	if !privileged {
		log.Warnf("unprivileged delete attempt on transaction %s", id)
		return false
	}
	return t.DeleteMany([]string{id}, privileged) == 1
}

// DeleteMany hard-removes a set of transactions by id, used by the table
// audit view to purge erroneous game records in bulk.
func (t *TransactionService) DeleteMany(ids []string, privileged bool) int {
	if !privileged {
		log.Warnf("unprivileged bulk delete attempt on %d transactions", len(ids))
		return 0
	}

	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}

	t.mu.Lock()
	kept := t.txs[:0]
	removed := 0
	for _, tx := range t.txs {
		if drop[tx.ID] {
			removed++
			continue
		}
		kept = append(kept, tx)
	}
	t.txs = kept
	t.mu.Unlock()

	if removed > 0 {
		t.dirty()
	}
	return removed
}

// settleDebts runs the FIFO settlement walk over one payer's open debts
// under the ledger lock and appends any sibling spawned by a split.
func (t *TransactionService) settleDebts(playerName string, amount float64) settle.Result {
	t.mu.Lock()
	var open []*models.Transaction
	for _, tx := range t.txs {
		if tx.PlayerName == playerName {
			open = append(open, tx)
		}
	}

	res := settle.Apply(open, amount, time.Now())
	if res.Created != nil {
		t.txs = append(t.txs, res.Created)
	}
	t.mu.Unlock()

	if len(res.Settled) > 0 {
		t.dirty()
	}
	return res
}

func (t *TransactionService) dirty() {
	if t.sync != nil {
		t.sync.Dirty("transactions")
	}
}

func (t *TransactionService) snapshot() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return json.Marshal(t.txs)
}

func (t *TransactionService) applySnapshot(data []byte) error {
	var incoming []*models.Transaction
	if err := json.Unmarshal(data, &incoming); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.txs = t.txs[:0]
	for _, tx := range incoming {
		if tx == nil || tx.ID == "" {
			continue
		}
		tx.Normalize()
		t.txs = append(t.txs, tx)
	}
	return nil
}
