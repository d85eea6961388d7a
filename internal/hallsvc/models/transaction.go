package models

import (
	"time"
)

type PaymentMethod string

const (
	PayCash   PaymentMethod = "CASH"
	PayCredit PaymentMethod = "CREDIT"
	PayDebt   PaymentMethod = "DEBT"
)

// Transaction is one checkout event, append-only. Once settled it is never
// mutated; debt settlement may flip IsSettled and rewrite Timestamp, or
// reduce TotalPaid when splitting a partial payment off into a sibling.
//
// Timestamp is rewritten to the settlement moment when a DEBT transaction
// is paid, so the money counts toward the day it was actually collected.
// Reports built on Timestamp mix "incurred" and "collected" semantics
// depending on method and settlement state.
type Transaction struct {
	ID                  string                  `json:"id"`
	SessionID           string                  `json:"session_id"`
	PlayerName          string                  `json:"player_name"`
	Timestamp           time.Time               `json:"timestamp"`
	Amount              float64                 `json:"amount"`       // games subtotal at checkout
	MarketTotal         float64                 `json:"market_total"`
	Discount            float64                 `json:"discount"`
	ExpectedTotal       float64                 `json:"expected_total"`
	TotalPaid           float64                 `json:"total_paid"` // operator-entered, may differ from expected
	PaymentMethod       PaymentMethod           `json:"payment_method"`
	IsSettled           bool                    `json:"is_settled"`
	IsPartialSettlement bool                    `json:"is_partial_settlement"`
	GameStartTimes      []time.Time             `json:"game_start_times"` // verbatim copy from the session
	GameTables          []int                   `json:"game_tables"`      // verbatim copy from the session
	MarketItems         map[string]PurchaseLine `json:"market_items"`
	CollectedBy         string                  `json:"collected_by"`
	Note                string                  `json:"note"`
}

func (t *Transaction) Normalize() {
	if t.GameStartTimes == nil {
		t.GameStartTimes = []time.Time{}
	}
	if t.GameTables == nil {
		t.GameTables = []int{}
	}
	if t.MarketItems == nil {
		t.MarketItems = map[string]PurchaseLine{}
	}
}

// DebtGroup is the outstanding balance of one payer, built from their
// unsettled DEBT transactions.
type DebtGroup struct {
	PlayerName   string         `json:"player_name"`
	TotalAmount  float64        `json:"total_amount"`
	Transactions []*Transaction `json:"transactions"`
}

type SettleMode string

const (
	SettleFull    SettleMode = "FULL"
	SettlePartial SettleMode = "PARTIAL"
)
