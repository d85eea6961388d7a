package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/negasi/billiard-services/internal/hallsvc/models"
)

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.ok(w, h.settings.Get())
}

func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	if !h.isPrivileged(r) {
		h.ok(w, nil)
		return
	}

	cfg := models.Settings{}
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.badRequest(w, errors.New("malformed settings"))
		return
	}

	h.settings.Put(cfg)
	h.ok(w, h.settings.Get())
}

func (h *Handler) ListMarketItems(w http.ResponseWriter, r *http.Request) {
	h.ok(w, h.market.List())
}

func (h *Handler) CreateMarketItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.badRequest(w, errors.New("name and price are required"))
		return
	}

	h.ok(w, h.market.Create(req.Name, req.Price))
}

func (h *Handler) UpdateMarketItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.badRequest(w, errors.New("name and price are required"))
		return
	}

	if err := h.market.Update(chi.URLParam(r, "id"), req.Name, req.Price); err != nil {
		h.notFound(w, err)
		return
	}

	h.ok(w, nil)
}

func (h *Handler) DeleteMarketItem(w http.ResponseWriter, r *http.Request) {
	if err := h.market.Delete(chi.URLParam(r, "id")); err != nil {
		h.notFound(w, err)
		return
	}

	h.ok(w, nil)
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	rec, err := h.attendance.CheckIn(h.callerID(r), req.Name)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusConflict, Error: err.Error()})
		return
	}

	h.ok(w, rec)
}

func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	rec, err := h.attendance.CheckOut(h.callerID(r))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusConflict, Error: err.Error()})
		return
	}

	h.ok(w, rec)
}

func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			h.badRequest(w, errors.New("date must be YYYY-MM-DD"))
			return
		}
		// midnight belongs to the previous business day, anchor at noon
		day = parsed.Add(12 * time.Hour)
	}

	h.ok(w, h.attendance.ListDay(day))
}
