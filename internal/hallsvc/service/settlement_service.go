package service

import (
	"github.com/negasi/billiard-services/internal/hallsvc/models"
	"github.com/negasi/billiard-services/internal/hallsvc/settle"
)

// SettlementService pays outstanding debts off against the ledger,
// oldest debt first.
type SettlementService struct {
	txs *TransactionService
}

func NewSettlementService(txs *TransactionService) *SettlementService {
	return &SettlementService{txs: txs}
}

// Groups lists every payer's outstanding balance.
func (s *SettlementService) Groups() []models.DebtGroup {
	return settle.GroupDebts(s.txs.All())
}

// Settle pays a player's debt group. FULL settles the whole balance;
// PARTIAL pays the operator-supplied amount, which must be positive and is
// capped to the group total.
func (s *SettlementService) Settle(playerName string, mode models.SettleMode, amount float64) (settle.Result, error) {
	var group *models.DebtGroup
	for _, g := range s.Groups() {
		if g.PlayerName == playerName {
			g := g
			group = &g
			break
		}
	}
	if group == nil {
		return settle.Result{}, ErrNoDebts
	}

	switch mode {
	case models.SettleFull:
		amount = group.TotalAmount
	case models.SettlePartial:
		if amount <= 0 {
			return settle.Result{}, ErrInvalidAmount
		}
		if amount > group.TotalAmount {
			amount = group.TotalAmount
		}
	default:
		return settle.Result{}, ErrInvalidAmount
	}

	return s.txs.settleDebts(playerName, amount), nil
}
