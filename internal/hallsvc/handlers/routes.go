package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)

			r.Get("/sessions", h.ListSessions)
			r.Post("/sessions", h.StartSession)
			r.Post("/sessions/{id}/games/request", h.RequestGame)
			r.Post("/sessions/games/commit", h.CommitGame)
			r.Post("/sessions/games/cancel", h.CancelGame)
			r.Delete("/sessions/{id}/games", h.UndoGame)
			r.Put("/sessions/{id}/market", h.AdjustPurchase)
			r.Post("/sessions/{id}/checkout", h.Checkout)
			r.Delete("/sessions/{id}", h.RemoveSession)

			r.Get("/transactions", h.ListTransactions)
			r.Delete("/transactions/{id}", h.DeleteTransaction)
			r.Post("/transactions/purge", h.PurgeTransactions)

			r.Get("/debts", h.ListDebts)
			r.Post("/debts/{player}/settle", h.SettleDebt)

			r.Get("/audit/leaks", h.LeakReport)
			r.Get("/audit/matches", h.MatchSessions)

			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.PutSettings)

			r.Get("/market-items", h.ListMarketItems)
			r.Post("/market-items", h.CreateMarketItem)
			r.Put("/market-items/{id}", h.UpdateMarketItem)
			r.Delete("/market-items/{id}", h.DeleteMarketItem)

			r.Post("/attendance/checkin", h.CheckIn)
			r.Post("/attendance/checkout", h.CheckOut)
			r.Get("/attendance", h.ListAttendance)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"user_id": 8003022,
		"role":    "admin",
		"exp":     expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
