package settle

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
)

// Result is the outcome of one settlement walk. Settled lists the
// transactions flipped to settled (the spawned sibling included), Created
// is the sibling spawned by a partial split, nil when the amount landed on
// whole-transaction boundaries.
type Result struct {
	Settled []*models.Transaction
	Created *models.Transaction
	Applied float64
}

// GroupDebts buckets unsettled DEBT transactions by payer name. Groups come
// back sorted by name so the listing is stable across recomputations.
func GroupDebts(txs []*models.Transaction) []models.DebtGroup {
	byName := map[string]*models.DebtGroup{}
	for _, tx := range txs {
		if tx.PaymentMethod != models.PayDebt || tx.IsSettled {
			continue
		}
		g, ok := byName[tx.PlayerName]
		if !ok {
			g = &models.DebtGroup{PlayerName: tx.PlayerName}
			byName[tx.PlayerName] = g
		}
		g.Transactions = append(g.Transactions, tx)
		g.TotalAmount += tx.TotalPaid
	}

	groups := make([]models.DebtGroup, 0, len(byName))
	for _, g := range byName {
		sort.Slice(g.Transactions, func(i, j int) bool {
			return g.Transactions[i].Timestamp.Before(g.Transactions[j].Timestamp)
		})
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].PlayerName < groups[j].PlayerName
	})
	return groups
}

// Apply pays amount against the payer's unsettled DEBT transactions,
// oldest first. A fully covered transaction is flipped settled and its
// timestamp rewritten to now, so the money counts toward the day it was
// collected. A partially covered transaction is split: a settled sibling
// holds the paid remainder and the original keeps the unpaid rest with its
// original timestamp. Money is conserved exactly across the split.
//
// amount <= 0 is a no-op. Transactions past the point where the amount
// runs out are untouched.
func Apply(txs []*models.Transaction, amount float64, now time.Time) Result {
	res := Result{}
	if amount <= 0 {
		return res
	}

	open := make([]*models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.PaymentMethod == models.PayDebt && !tx.IsSettled {
			open = append(open, tx)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].Timestamp.Before(open[j].Timestamp)
	})

	remaining := decimal.NewFromFloat(amount)
	for _, tx := range open {
		if remaining.IsZero() {
			break
		}

		owed := decimal.NewFromFloat(tx.TotalPaid)
		if remaining.GreaterThanOrEqual(owed) {
			tx.IsSettled = true
			tx.Timestamp = now
			remaining = remaining.Sub(owed)
			res.Settled = append(res.Settled, tx)
			continue
		}

		// partial coverage: split off a settled sibling with the paid part
		paid, _ := remaining.Float64()
		sibling := cloneTransaction(tx)
		sibling.ID = uuid.New().String()
		sibling.TotalPaid = paid
		sibling.IsSettled = true
		sibling.IsPartialSettlement = true
		sibling.Timestamp = now

		rest, _ := owed.Sub(remaining).Float64()
		tx.TotalPaid = rest

		res.Created = sibling
		res.Settled = append(res.Settled, sibling)
		remaining = decimal.Zero
		break
	}

	applied, _ := decimal.NewFromFloat(amount).Sub(remaining).Float64()
	res.Applied = applied
	return res
}

func cloneTransaction(tx *models.Transaction) *models.Transaction {
	c := *tx
	c.GameStartTimes = append([]time.Time{}, tx.GameStartTimes...)
	c.GameTables = append([]int{}, tx.GameTables...)
	c.MarketItems = map[string]models.PurchaseLine{}
	for name, line := range tx.MarketItems {
		c.MarketItems[name] = line
	}
	return &c
}
