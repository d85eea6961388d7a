package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
)

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	h.ok(w, h.txs.All())
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	h.txs.Delete(chi.URLParam(r, "id"), h.isPrivileged(r))
	h.ok(w, nil)
}

func (h *Handler) PurgeTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ids []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Ids) == 0 {
		h.badRequest(w, errors.New("ids is required"))
		return
	}

	removed := h.txs.DeleteMany(req.Ids, h.isPrivileged(r))
	h.ok(w, map[string]int{"removed": removed})
}

func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	h.ok(w, h.settlement.Groups())
}

func (h *Handler) SettleDebt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode   models.SettleMode `json:"mode"`
		Amount float64           `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, errors.New("mode is required"))
		return
	}

	res, err := h.settlement.Settle(chi.URLParam(r, "player"), req.Mode, req.Amount)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	h.ok(w, map[string]interface{}{
		"applied": res.Applied,
		"settled": res.Settled,
	})
}

// auditDay parses the ?date= query, defaulting to today. The date selects
// the business day starting at 08:00 on that calendar day, so the parsed
// midnight is pushed to noon before the window lookup.
func auditDay(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(12 * time.Hour), nil
}

func (h *Handler) LeakReport(w http.ResponseWriter, r *http.Request) {
	day, err := auditDay(r)
	if err != nil {
		h.badRequest(w, errors.New("date must be YYYY-MM-DD"))
		return
	}

	h.ok(w, h.audit.LeakReport(day))
}

func (h *Handler) MatchSessions(w http.ResponseWriter, r *http.Request) {
	day, err := auditDay(r)
	if err != nil {
		h.badRequest(w, errors.New("date must be YYYY-MM-DD"))
		return
	}

	h.ok(w, h.audit.MatchSessions(day))
}
