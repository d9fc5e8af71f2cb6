package user

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rudyardtech/billing/internal/auth"
	"github.com/rudyardtech/billing/internal/user"
)

type Handler struct {
	svc *user.Service
}

func NewHandler(svc *user.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/users", h.list)
	r.Post("/users/approve", h.approve)
	r.Post("/users/toggle-admin", h.toggleAdmin)
	r.Post("/users/assign-client", h.assignClient)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(u))
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toResponse(u)
	}

	writeJSON(w, http.StatusOK, resp)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.svc.Approve(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(u))
}

func (h *Handler) toggleAdmin(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.svc.ToggleAdmin(r.Context(), claims.Email, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(u))
}

type assignClientRequest struct {
	Email    string `json:"email"`
	ClientID string `json:"clientId"`
}

func (h *Handler) assignClient(w http.ResponseWriter, r *http.Request) {
	var req assignClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.svc.AssignClient(r.Context(), req.Email, req.ClientID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(u))
}

type userResponse struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	Approved  bool      `json:"approved"`
	SiteAdmin bool      `json:"siteAdmin"`
	ClientID  string    `json:"clientId,omitempty"`
}

// toResponse never exposes credential material.
func toResponse(u *user.User) userResponse {
	return userResponse{
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		Approved:  u.Approved,
		SiteAdmin: u.SiteAdmin,
		ClientID:  u.ClientID,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, user.ErrNotApproved):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, user.ErrSelfUpdate):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, user.ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	case errors.Is(err, user.ErrExists):
		http.Error(w, "user already exists", http.StatusConflict)
	default:
		slog.Error("user request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
