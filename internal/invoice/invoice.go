package invoice

import "time"

// Status is the lifecycle state of an invoice. PAID and CANCELLED are
// terminal.
type Status string

const (
	StatusNew           Status = "NEW"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusCancelled     Status = "CANCELLED"
)

func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Invoice represents a billable invoice. Amounts are integer minor currency
// units (cents); conversion to major units is a presentation concern.
type Invoice struct {
	ID              string
	Name            string
	Amount          int64
	AmountPaid      int64 // running total of applied payments
	Notes           string
	Contact         string
	ClientID        string
	Status          Status
	// PaymentIntentID is the most recently recorded gateway intent, which
	// may still be awaiting payment. AppliedIntents lists every intent whose
	// payment has been applied; it is the finalize idempotency key.
	PaymentIntentID string
	AppliedIntents  []string
	CreatedDate     time.Time
	UpdatedDate     time.Time
	DueDate         *time.Time
}

// PartitionKey is the storage partition the invoice lives in: the owning
// client when known, otherwise the contact address.
func (inv *Invoice) PartitionKey() string {
	if inv.ClientID != "" {
		return inv.ClientID
	}

	if inv.Contact != "" {
		return inv.Contact
	}

	return "default"
}
