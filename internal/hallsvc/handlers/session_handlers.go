package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
	"github.com/negasi/billiard-services/internal/hallsvc/service"
)

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	h.ok(w, h.sessions.List())
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerName string `json:"player_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerName == "" {
		h.badRequest(w, errors.New("player_name is required"))
		return
	}

	cfg := h.settings.Get()
	sess, err := h.sessions.StartSession(req.PlayerName, cfg.PricePerGame)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusConflict, Error: err.Error()})
		return
	}

	h.ok(w, sess)
}

// RequestGame is phase one of recording a game: the operator still has to
// choose a table before anything is appended.
func (h *Handler) RequestGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	// body is optional, delta defaults to one game
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.sessions.RequestGame(chi.URLParam(r, "id"), req.Delta); err != nil {
		h.notFound(w, err)
		return
	}

	h.ok(w, nil)
}

// CommitGame is phase two: the chosen table number completes the record.
func (h *Handler) CommitGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableNumber int `json:"table_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, errors.New("table_number is required"))
		return
	}

	sess, err := h.sessions.CommitGame(req.TableNumber)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	h.ok(w, sess)
}

func (h *Handler) CancelGame(w http.ResponseWriter, r *http.Request) {
	h.sessions.CancelGame()
	h.ok(w, nil)
}

func (h *Handler) UndoGame(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.UndoGame(chi.URLParam(r, "id"), h.isPrivileged(r))
	if err != nil {
		h.notFound(w, err)
		return
	}

	h.ok(w, nil)
}

func (h *Handler) AdjustPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemName string `json:"item_name"`
		DeltaQty int    `json:"delta_qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemName == "" {
		h.badRequest(w, errors.New("item_name and delta_qty are required"))
		return
	}

	err := h.sessions.AdjustPurchase(chi.URLParam(r, "id"), req.ItemName, req.DeltaQty)
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		h.notFound(w, err)
	case err != nil:
		h.badRequest(w, err)
	default:
		h.ok(w, nil)
	}
}

func (h *Handler) RemoveSession(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.RemoveSession(chi.URLParam(r, "id"), h.isPrivileged(r))
	if err != nil {
		h.notFound(w, err)
		return
	}

	h.ok(w, nil)
}

type checkoutResponse struct {
	Transaction *models.Transaction `json:"transaction"`
	Expected    float64             `json:"expected"`
	Paid        float64             `json:"paid"`
	Mismatch    bool                `json:"mismatch"` // warning only, the operator value is authoritative
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method models.PaymentMethod `json:"method"`
		Paid   float64              `json:"paid"`
		Note   string               `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, errors.New("method and paid are required"))
		return
	}

	cfg := h.settings.Get()
	tx, err := h.txs.Finalize(chi.URLParam(r, "id"), cfg, req.Method, req.Paid, h.callerID(r), req.Note)
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		h.notFound(w, err)
		return
	case err != nil:
		h.badRequest(w, err)
		return
	}

	h.ok(w, checkoutResponse{
		Transaction: tx,
		Expected:    tx.ExpectedTotal,
		Paid:        tx.TotalPaid,
		Mismatch:    tx.TotalPaid != tx.ExpectedTotal,
	})
}
