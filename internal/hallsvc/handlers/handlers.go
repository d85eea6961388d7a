package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/negasi/billiard-services/internal/hallsvc/service"
)

type Handler struct {
	tokenAuth  *jwtauth.JWTAuth
	sessions   *service.SessionService
	txs        *service.TransactionService
	settlement *service.SettlementService
	audit      *service.AuditService
	settings   *service.SettingsService
	market     *service.MarketService
	attendance *service.AttendanceService
}

func NewHandler(
	sessions *service.SessionService,
	txs *service.TransactionService,
	settlement *service.SettlementService,
	audit *service.AuditService,
	settings *service.SettingsService,
	market *service.MarketService,
	attendance *service.AttendanceService,
) *Handler {
	return &Handler{
		sessions:   sessions,
		txs:        txs,
		settlement: settlement,
		audit:      audit,
		settings:   settings,
		market:     market,
		attendance: attendance,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, data interface{}) {
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: data})
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
}

func (h *Handler) notFound(w http.ResponseWriter, err error) {
	h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: err.Error()})
}

// isPrivileged reads the role claim from the verified JWT. Unprivileged
// callers reaching a privileged operation are no-ops, not errors.
func (h *Handler) isPrivileged(r *http.Request) bool {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return false
	}
	role, _ := claims["role"].(string)
	return role == "admin"
}

// callerID reads the staff identity claim from the verified JWT.
func (h *Handler) callerID(r *http.Request) string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return ""
	}
	if id, ok := claims["user_id"]; ok {
		return fmt.Sprintf("%v", id)
	}
	return ""
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "hall service is running at port " + os.Getenv("HALL_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
