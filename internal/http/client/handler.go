package client

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rudyardtech/billing/internal/auth"
	"github.com/rudyardtech/billing/internal/client"
	"github.com/rudyardtech/billing/internal/invoice"
)

type Handler struct {
	svc      *client.Service
	invoices *invoice.Service
}

func NewHandler(svc *client.Service, invoices *invoice.Service) *Handler {
	return &Handler{svc: svc, invoices: invoices}
}

// AuthRoutes allow a regular user to see their own client; cross-tenant
// reads are rejected per request.
func (h *Handler) AuthRoutes(r chi.Router) {
	r.Get("/client/{id}", h.get)
	r.Get("/client/{id}/invoices", h.listInvoices)
}

func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/client", h.add)
	r.Get("/clients", h.list)
	r.Delete("/client/{id}", h.delete)
}

// authorize confines non-admin callers to their own client partition.
func authorize(r *http.Request, clientID string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return false
	}

	return claims.SiteAdmin || claims.ClientID == clientID
}

type addClientRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req addClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.Add(r.Context(), client.AddParams{
		ID:           req.ID,
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Address:      req.Address,
		Phone:        req.Phone,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !authorize(r, id) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	c, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]clientResponse, len(clients))
	for i, c := range clients {
		resp[i] = toResponse(c)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !authorize(r, id) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	invoices, err := h.invoices.List(r.Context(), invoice.Scope{ClientID: id})
	if err != nil {
		slog.Error("client invoice listing failed", "client_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	resp := make([]invoiceSummary, len(invoices))
	for i, inv := range invoices {
		resp[i] = invoiceSummary{
			ID:         inv.ID,
			Name:       inv.Name,
			Amount:     inv.Amount,
			AmountPaid: inv.AmountPaid,
			Status:     string(inv.Status),
			DueDate:    inv.DueDate,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type invoiceSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Amount     int64      `json:"amount"`
	AmountPaid int64      `json:"amountPaid"`
	Status     string     `json:"status"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type clientResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

func toResponse(c *client.Client) clientResponse {
	return clientResponse{
		ID:           c.ID,
		Name:         c.Name,
		ContactEmail: c.ContactEmail,
		Address:      c.Address,
		Phone:        c.Phone,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, client.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, client.ErrNotFound):
		http.Error(w, "client not found", http.StatusNotFound)
	case errors.Is(err, client.ErrExists):
		http.Error(w, "client already exists", http.StatusConflict)
	default:
		slog.Error("client request failed", "error", err)
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
