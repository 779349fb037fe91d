package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redeemd/coupon-engine/internal/config"
	"github.com/redeemd/coupon-engine/internal/domain"
	"github.com/redeemd/coupon-engine/internal/usecase"
)

type CreateUserRequest struct {
	Username string `json:"username"`
}

type CreateCouponRequest struct {
	Name        string `json:"name"`
	GlobalTotal *int   `json:"global_total"`
	UserTotal   *int   `json:"user_total"`
	UserDaily   *int   `json:"user_daily"`
	UserWeekly  *int   `json:"user_weekly"`
}

type ApplyCouponRequest struct {
	CouponName string `json:"coupon_name"`
	Username   string `json:"username"`
	// RequestTimestamp is optional; the server clock (UTC) is used when absent.
	RequestTimestamp *time.Time `json:"request_timestamp,omitempty"`
}

type CreateResponse struct {
	Created bool `json:"created"`
	Code    int  `json:"code"`
}

type ApplyCouponResponse struct {
	Username   string `json:"username"`
	CouponName string `json:"coupon_name"`
	Message    string `json:"message"`
	Redeemed   bool   `json:"redeemed"`
}

type ListUsersResponse struct {
	Users []string `json:"users"`
}

type ListCouponsResponse struct {
	Coupons []string `json:"coupons"`
}

type HeartbeatResponse struct {
	IsAlive     bool   `json:"is_alive"`
	AppName     string `json:"app_name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type Handler struct {
	gateway usecase.CouponGateway
}

func NewHandler(gateway usecase.CouponGateway) *Handler {
	return &Handler{gateway: gateway}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthcheck", h.Heartbeat)
	r.Post("/create/user", h.CreateUser)
	r.Get("/read/all/user", h.ListUsers)
	r.Post("/create/coupon", h.CreateCoupon)
	r.Get("/read/all/coupon", h.ListCoupons)
	r.Post("/apply/coupon", h.ApplyCoupon)
}

func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HeartbeatResponse{
		IsAlive:     true,
		AppName:     config.AppName,
		Version:     config.AppVersion,
		Description: config.AppDescription,
	})
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	result, err := h.gateway.CreateUser(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusConflict
	}
	writeJSON(w, status, CreateResponse{Created: result.Created, Code: int(result.Code)})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.gateway.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	writeJSON(w, http.StatusOK, ListUsersResponse{Users: users})
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "coupon name is required", http.StatusBadRequest)
		return
	}

	limits := domain.DefaultLimits()
	if req.GlobalTotal != nil {
		limits.GlobalTotal = *req.GlobalTotal
	}
	if req.UserTotal != nil {
		limits.UserTotal = *req.UserTotal
	}
	if req.UserDaily != nil {
		limits.UserDaily = *req.UserDaily
	}
	if req.UserWeekly != nil {
		limits.UserWeekly = *req.UserWeekly
	}

	result, err := h.gateway.CreateCoupon(r.Context(), req.Name, limits)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLimits) {
			http.Error(w, "coupon limits must be non-negative", http.StatusBadRequest)
			return
		}
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusConflict
	}
	writeJSON(w, status, CreateResponse{Created: result.Created, Code: int(result.Code)})
}

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.gateway.ListCoupons(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if coupons == nil {
		coupons = []string{}
	}
	writeJSON(w, http.StatusOK, ListCouponsResponse{Coupons: coupons})
}

func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req ApplyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.CouponName == "" {
		http.Error(w, "username and coupon_name are required", http.StatusBadRequest)
		return
	}

	at := time.Now().UTC()
	if req.RequestTimestamp != nil {
		at = req.RequestTimestamp.UTC()
	}

	result, err := h.gateway.ApplyCoupon(r.Context(), req.CouponName, req.Username, at)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ApplyCouponResponse{
		Username:   result.Username,
		CouponName: result.CouponName,
		Message:    result.Outcome.Message(),
		Redeemed:   result.Outcome.Redeemed(),
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrStorageUnavailable):
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrAppendStatusUnknown):
		http.Error(w, "redemption status unknown", http.StatusBadGateway)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
