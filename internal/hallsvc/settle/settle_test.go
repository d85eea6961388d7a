package settle

import (
	"testing"
	"time"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
)

func debtTx(id, player string, amount float64, ts time.Time) *models.Transaction {
	return &models.Transaction{
		ID:            id,
		PlayerName:    player,
		Timestamp:     ts,
		TotalPaid:     amount,
		PaymentMethod: models.PayDebt,
	}
}

func ledgerTotal(txs []*models.Transaction, created *models.Transaction) float64 {
	total := 0.0
	for _, tx := range txs {
		total += tx.TotalPaid
	}
	if created != nil {
		total += created.TotalPaid
	}
	return total
}

func TestApplyFIFOPartial(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)
	now := t3.Add(24 * time.Hour)

	txs := []*models.Transaction{
		debtTx("a", "Biniam", 500, t1),
		debtTx("b", "Biniam", 300, t2),
		debtTx("c", "Biniam", 200, t3),
	}

	res := Apply(txs, 600, now)

	// oldest debt fully settled, timestamp rewritten to collection time
	if !txs[0].IsSettled {
		t.Error("oldest debt should be settled")
	}
	if !txs[0].Timestamp.Equal(now) {
		t.Errorf("settled timestamp = %v, want rewritten to %v", txs[0].Timestamp, now)
	}
	if txs[0].IsPartialSettlement {
		t.Error("fully covered transaction must not be flagged partial")
	}

	// second debt split: 100 paid sibling, 200 unpaid remainder
	if txs[1].IsSettled {
		t.Error("partially covered original must stay unsettled")
	}
	if txs[1].TotalPaid != 200 {
		t.Errorf("remainder = %v, want 200", txs[1].TotalPaid)
	}
	if !txs[1].Timestamp.Equal(t2) {
		t.Error("unsettled remainder keeps its original timestamp")
	}
	if txs[1].IsPartialSettlement {
		t.Error("the original never carries the partial flag")
	}

	if res.Created == nil {
		t.Fatal("expected a settled sibling from the split")
	}
	if res.Created.TotalPaid != 100 {
		t.Errorf("sibling amount = %v, want 100", res.Created.TotalPaid)
	}
	if !res.Created.IsSettled || !res.Created.IsPartialSettlement {
		t.Error("sibling must be settled and flagged partial")
	}
	if res.Created.ID == txs[1].ID {
		t.Error("sibling must get a fresh id")
	}
	if !res.Created.Timestamp.Equal(now) {
		t.Error("sibling timestamp is the settlement moment")
	}

	// third debt untouched
	if txs[2].IsSettled || txs[2].TotalPaid != 200 {
		t.Error("debt beyond the settled amount must be untouched")
	}

	if res.Applied != 600 {
		t.Errorf("applied = %v, want 600", res.Applied)
	}
}

// Splitting never creates or destroys money, across any settlement
// sequence.
func TestApplyConservation(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	txs := []*models.Transaction{
		debtTx("a", "Samri", 512, base),
		debtTx("b", "Samri", 333, base.Add(time.Minute)),
		debtTx("c", "Samri", 204, base.Add(2*time.Minute)),
	}
	original := ledgerTotal(txs, nil)

	for i, amount := range []float64{110, 250, 389, 1000} {
		res := Apply(txs, amount, base.Add(time.Duration(i)*time.Hour))
		if res.Created != nil {
			txs = append(txs, res.Created)
		}
		if got := ledgerTotal(txs, nil); got != original {
			t.Fatalf("after settling %v: ledger total = %v, want %v", amount, got, original)
		}
		for _, tx := range txs {
			if tx.TotalPaid < 0 {
				t.Fatalf("transaction %s went negative: %v", tx.ID, tx.TotalPaid)
			}
		}
	}

	// everything is paid off by now
	for _, tx := range txs {
		if !tx.IsSettled {
			t.Errorf("transaction %s still unsettled after overpaying", tx.ID)
		}
	}
}

func TestApplyFullSettlement(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	txs := []*models.Transaction{
		debtTx("a", "Kebede", 500, base),
		debtTx("b", "Kebede", 300, base.Add(time.Minute)),
	}

	res := Apply(txs, 800, base.Add(time.Hour))

	if res.Created != nil {
		t.Error("exact coverage must not spawn a sibling")
	}
	if len(res.Settled) != 2 {
		t.Fatalf("settled %d transactions, want 2", len(res.Settled))
	}
	for _, tx := range txs {
		if !tx.IsSettled {
			t.Errorf("transaction %s should be settled", tx.ID)
		}
	}
}

func TestApplyNonPositiveAmountIsNoop(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	for _, amount := range []float64{0, -50} {
		txs := []*models.Transaction{debtTx("a", "Hana", 500, base)}
		res := Apply(txs, amount, base.Add(time.Hour))
		if len(res.Settled) != 0 || res.Created != nil || res.Applied != 0 {
			t.Errorf("Apply(%v) mutated the ledger", amount)
		}
		if txs[0].IsSettled || txs[0].TotalPaid != 500 {
			t.Errorf("Apply(%v) touched the transaction", amount)
		}
	}
}

func TestApplySkipsSettledAndNonDebt(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	cash := debtTx("cash", "Lidya", 400, base)
	cash.PaymentMethod = models.PayCash
	cash.IsSettled = true
	done := debtTx("done", "Lidya", 400, base.Add(time.Minute))
	done.IsSettled = true
	open := debtTx("open", "Lidya", 250, base.Add(2*time.Minute))

	res := Apply([]*models.Transaction{cash, done, open}, 250, base.Add(time.Hour))

	if len(res.Settled) != 1 || res.Settled[0].ID != "open" {
		t.Fatalf("only the open debt should settle, got %d", len(res.Settled))
	}
}

func TestGroupDebts(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	txs := []*models.Transaction{
		debtTx("b1", "Biniam", 300, base.Add(time.Hour)),
		debtTx("b2", "Biniam", 200, base),
		debtTx("s1", "Samri", 150, base),
	}
	settled := debtTx("b3", "Biniam", 999, base)
	settled.IsSettled = true
	txs = append(txs, settled)

	groups := GroupDebts(txs)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	biniam := groups[0]
	if biniam.PlayerName != "Biniam" || biniam.TotalAmount != 500 {
		t.Errorf("group = %s/%v, want Biniam/500", biniam.PlayerName, biniam.TotalAmount)
	}
	// transactions inside the group come back oldest first
	if biniam.Transactions[0].ID != "b2" {
		t.Error("group transactions should be sorted oldest first")
	}
}
