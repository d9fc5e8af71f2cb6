// Package payment wraps the third-party payment-intent API behind a small
// gateway interface so the invoice service never touches the SDK directly.
package payment

import "context"

// Intent statuses the invoice service cares about. These mirror the
// processor's wire values.
const (
	StatusSucceeded             = "succeeded"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresConfirmation  = "requires_confirmation"
)

// MetadataInvoiceID is the metadata tag scoping an intent to an invoice.
const MetadataInvoiceID = "invoiceId"

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64 // minor units
	Currency     string
	Metadata     map[string]string
}

type CreateIntentParams struct {
	Amount   int64 // minor units
	Currency string
	Metadata map[string]string
}

type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}
