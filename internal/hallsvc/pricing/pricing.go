package pricing

import (
	"fmt"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
)

// Quote is the computed bill for one session at one moment under one
// payment method. Everything is derived from the session snapshot and the
// settings snapshot passed in, nothing is read from ambient state.
type Quote struct {
	Subtotal      float64              `json:"subtotal"`
	MarketTotal   float64              `json:"market_total"`
	Discount      float64              `json:"discount"`
	ExpectedTotal float64              `json:"expected_total"`
	Method        models.PaymentMethod `json:"method"`
}

func Subtotal(gamesPlayed int, pricePerGame float64) float64 {
	return float64(gamesPlayed) * pricePerGame
}

func MarketTotal(items map[string]models.PurchaseLine) float64 {
	total := 0.0
	for _, line := range items {
		total += float64(line.Quantity) * line.Price
	}
	return total
}

// CreditEligible reports whether the CREDIT method may be selected at all.
// Below the threshold CREDIT is rejected outright, never downgraded to CASH.
func CreditEligible(cfg models.Settings, gamesPlayed int, subtotal float64) bool {
	return gamesPlayed >= cfg.CreditMinGames && subtotal >= cfg.CreditMinSubtotal
}

// TieredDiscount picks the discount of the largest configured game-count
// threshold that gamesPlayed reaches. Tiers are not cumulative. The
// discount only exists for the CREDIT method and only above the
// eligibility floor.
func TieredDiscount(cfg models.Settings, gamesPlayed int, subtotal float64) float64 {
	if !CreditEligible(cfg, gamesPlayed, subtotal) {
		return 0
	}

	best := -1
	for threshold := range cfg.DiscountTiers {
		if threshold <= gamesPlayed && threshold > best {
			best = threshold
		}
	}
	if best < 0 {
		return 0
	}
	return cfg.DiscountTiers[best]
}

// BuildQuote computes the expected bill for a session under the chosen
// method. Selecting CREDIT below the eligibility threshold is an error.
func BuildQuote(cfg models.Settings, sess *models.Session, method models.PaymentMethod) (Quote, error) {
	q := Quote{
		Subtotal:    Subtotal(sess.GamesPlayed, sess.PricePerGame),
		MarketTotal: MarketTotal(sess.MarketItems),
		Method:      method,
	}

	switch method {
	case models.PayCash, models.PayDebt:
		// no discount outside CREDIT
	case models.PayCredit:
		if !CreditEligible(cfg, sess.GamesPlayed, q.Subtotal) {
			return Quote{}, fmt.Errorf("credit requires at least %d games and %.0f subtotal", cfg.CreditMinGames, cfg.CreditMinSubtotal)
		}
		q.Discount = TieredDiscount(cfg, sess.GamesPlayed, q.Subtotal)
	default:
		return Quote{}, fmt.Errorf("unknown payment method: %s", method)
	}

	q.ExpectedTotal = q.Subtotal + q.MarketTotal - q.Discount
	if q.ExpectedTotal < 0 {
		q.ExpectedTotal = 0
	}

	return q, nil
}
