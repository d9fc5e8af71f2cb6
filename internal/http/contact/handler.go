package contact

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rudyardtech/billing/internal/contact"
)

type Handler struct {
	svc *contact.Service
}

func NewHandler(svc *contact.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/contact", h.submit)
}

func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/contact/flush", h.flush)
}

type submitRequest struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.svc.Submit(r.Context(), contact.SubmitParams{
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	})
	if err != nil {
		switch {
		case errors.Is(err, contact.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, contact.ErrDelivery):
			http.Error(w, "failed to send email", http.StatusInternalServerError)
		default:
			slog.Error("contact request failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(map[string]string{"message": "Email sent successfully"}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) flush(w http.ResponseWriter, r *http.Request) {
	sent, err := h.svc.Flush(r.Context())
	if err != nil {
		slog.Error("contact flush failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(map[string]int{"sent": sent}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
