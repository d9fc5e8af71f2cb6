package invoice

import (
	"time"

	"github.com/rudyardtech/billing/internal/invoice"
)

type createInvoiceResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	InvoiceID string `json:"invoiceId"`
}

type invoiceResponse struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Amount          int64          `json:"amount"`
	AmountPaid      int64          `json:"amountPaid"`
	Notes           string         `json:"notes"`
	Contact         string         `json:"contact"`
	ClientID        string         `json:"clientId,omitempty"`
	Status          invoice.Status `json:"status"`
	PaymentIntentID string         `json:"paymentIntentId,omitempty"`
	CreatedDate     time.Time      `json:"createdDate"`
	UpdatedDate     time.Time      `json:"updatedDate"`
	DueDate         *time.Time     `json:"dueDate,omitempty"`
}

type intentResponse struct {
	InvoiceID       string `json:"invoiceId"`
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
}

type paymentStatusResponse struct {
	InvoiceID string `json:"invoiceId"`
	Status    string `json:"status"`
}

func toResponse(inv *invoice.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:              inv.ID,
		Name:            inv.Name,
		Amount:          inv.Amount,
		AmountPaid:      inv.AmountPaid,
		Notes:           inv.Notes,
		Contact:         inv.Contact,
		ClientID:        inv.ClientID,
		Status:          inv.Status,
		PaymentIntentID: inv.PaymentIntentID,
		CreatedDate:     inv.CreatedDate,
		UpdatedDate:     inv.UpdatedDate,
		DueDate:         inv.DueDate,
	}
}

func toResponseList(invoices []*invoice.Invoice) []invoiceResponse {
	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = toResponse(inv)
	}

	return resp
}
