package invoice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rudyardtech/billing/internal/auth"
	"github.com/rudyardtech/billing/internal/invoice"
)

type Handler struct {
	svc *invoice.Service
}

func NewHandler(svc *invoice.Service) *Handler {
	return &Handler{svc: svc}
}

// PublicRoutes are reachable without a token: the payment page fetches
// invoice details and drives the intent lifecycle anonymously.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/invoice/{id}", h.get)
	r.Get("/invoice/{id}/payment-status", h.paymentStatus)
	r.Post("/invoice/create-payment-intent", h.createPaymentIntent)
	r.Post("/invoice/finalize-payment", h.finalizePayment)
}

func (h *Handler) AuthRoutes(r chi.Router) {
	r.Post("/invoice", h.create)
	r.Get("/invoices", h.list)
}

func (h *Handler) AdminRoutes(r chi.Router) {
	r.Put("/invoice/{id}", h.update)
}

type createInvoiceRequest struct {
	Name     string     `json:"name"`
	Amount   int64      `json:"amount"`
	Notes    string     `json:"notes"`
	Contact  string     `json:"contact"`
	ClientID string     `json:"clientId"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Non-admin callers can only create invoices inside their own client
	// partition.
	if claims, ok := auth.FromContext(r.Context()); ok && !claims.SiteAdmin && claims.ClientID != "" {
		req.ClientID = claims.ClientID
	}

	inv, err := h.svc.Create(r.Context(), invoice.CreateParams{
		Name:     req.Name,
		Amount:   req.Amount,
		Notes:    req.Notes,
		Contact:  req.Contact,
		ClientID: req.ClientID,
		DueDate:  req.DueDate,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createInvoiceResponse{
		Success:   true,
		Message:   "Invoice created successfully",
		InvoiceID: inv.ID,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	invoices, err := h.svc.List(r.Context(), invoice.Scope{
		SiteAdmin: claims.SiteAdmin,
		ClientID:  claims.ClientID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(invoices))
}

type updateInvoiceRequest struct {
	Name     string         `json:"name"`
	Amount   int64          `json:"amount"`
	Notes    string         `json:"notes"`
	Contact  string         `json:"contact"`
	ClientID string         `json:"clientId"`
	Status   invoice.Status `json:"status"`
	DueDate  *time.Time     `json:"dueDate,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, err := h.svc.Update(r.Context(), &invoice.Invoice{
		ID:       chi.URLParam(r, "id"),
		Name:     req.Name,
		Amount:   req.Amount,
		Notes:    req.Notes,
		Contact:  req.Contact,
		ClientID: req.ClientID,
		Status:   req.Status,
		DueDate:  req.DueDate,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(inv))
}

type createIntentRequest struct {
	InvoiceID string `json:"invoiceId"`
	Amount    int64  `json:"amount"`
}

func (h *Handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.CreatePaymentIntent(r.Context(), req.InvoiceID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, intentResponse{
		InvoiceID:       result.InvoiceID,
		PaymentIntentID: result.IntentID,
		ClientSecret:    result.ClientSecret,
	})
}

type finalizeRequest struct {
	InvoiceID       string `json:"invoiceId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

func (h *Handler) finalizePayment(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, err := h.svc.FinalizePayment(r.Context(), req.InvoiceID, req.PaymentIntentID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := h.svc.PaymentStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentStatusResponse{InvoiceID: id, Status: status})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoice.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, invoice.ErrNotFound):
		http.Error(w, "invoice not found", http.StatusNotFound)
	case errors.Is(err, invoice.ErrGateway):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		slog.Error("invoice request failed", "error", err)
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
