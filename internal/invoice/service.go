package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/rudyardtech/billing/internal/mailer"
	"github.com/rudyardtech/billing/internal/payment"
	"github.com/rudyardtech/billing/internal/telemetry"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
}

// ListFilter scopes a listing. A nil ClientID returns every invoice and is
// reserved for site admins.
type ListFilter struct {
	ClientID *string
}

// Scope is the caller's visibility, derived from token claims at the HTTP
// boundary.
type Scope struct {
	SiteAdmin bool
	ClientID  string
}

// Options tune payment reconciliation behavior.
type Options struct {
	Currency string
	// Cumulative validates each payment against the remaining balance
	// (amount - amountPaid) instead of the full invoice amount. Off by
	// default: the historical behavior evaluates every payment against the
	// invoice total independently.
	Cumulative bool
	// OperatorEmail receives a copy of every payment confirmation.
	OperatorEmail string
	// InvoiceBaseURL is the public URL prefix used in confirmation emails.
	InvoiceBaseURL string
}

type Service struct {
	repo    Repository
	gateway payment.Gateway
	sender  mailer.Sender
	events  telemetry.Events
	log     *slog.Logger
	opts    Options
	now     func() time.Time
}

func NewService(repo Repository, gateway payment.Gateway, sender mailer.Sender, events telemetry.Events, log *slog.Logger, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}

	return &Service{
		repo:    repo,
		gateway: gateway,
		sender:  sender,
		events:  events,
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

type CreateParams struct {
	Name     string
	Amount   int64
	Notes    string
	Contact  string
	ClientID string
	DueDate  *time.Time
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Invoice, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive number of cents", ErrValidation)
	}

	if params.Contact == "" {
		return nil, fmt.Errorf("%w: contact is required", ErrValidation)
	}

	now := s.now().UTC()
	inv := &Invoice{
		ID:          "inv-" + uuid.NewString(),
		Name:        params.Name,
		Amount:      params.Amount,
		Notes:       params.Notes,
		Contact:     params.Contact,
		ClientID:    params.ClientID,
		Status:      StatusNew,
		CreatedDate: now,
		UpdatedDate: now,
		DueDate:     params.DueDate,
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	s.events.Event("invoice_created", "invoice_id", inv.ID, "amount", inv.Amount, "client_id", inv.ClientID)

	return inv, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// List returns the invoices visible to the caller: everything for a site
// admin, the caller's client partition otherwise.
func (s *Service) List(ctx context.Context, scope Scope) ([]*Invoice, error) {
	filter := ListFilter{}
	if !scope.SiteAdmin {
		clientID := scope.ClientID
		filter.ClientID = &clientID
	}

	return s.repo.ListInvoices(ctx, filter)
}

// Update merge-writes a full invoice. The entity must already exist, the
// amount must stay positive, and terminal statuses are sticky.
func (s *Service) Update(ctx context.Context, inv *Invoice) (*Invoice, error) {
	if inv.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}

	if inv.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive number of cents", ErrValidation)
	}

	current, err := s.repo.GetInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	if current.Status.Terminal() && inv.Status != current.Status {
		return nil, fmt.Errorf("%w: invoice %s is %s and cannot change status", ErrValidation, inv.ID, current.Status)
	}

	// Omitted owner fields inherit the stored values; moving an invoice to
	// another partition would strand the stored entity.
	if inv.ClientID == "" {
		inv.ClientID = current.ClientID
	}

	if inv.Contact == "" {
		inv.Contact = current.Contact
	}

	if inv.PartitionKey() != current.PartitionKey() {
		return nil, fmt.Errorf("%w: invoice %s cannot move to another client", ErrValidation, inv.ID)
	}

	inv.CreatedDate = current.CreatedDate
	inv.AmountPaid = current.AmountPaid
	inv.AppliedIntents = current.AppliedIntents
	inv.PaymentIntentID = current.PaymentIntentID
	inv.UpdatedDate = s.now().UTC()

	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	s.events.Event("invoice_updated", "invoice_id", inv.ID, "status", string(inv.Status))

	return inv, nil
}

// IntentResult carries what the payment page needs to collect a payment.
type IntentResult struct {
	InvoiceID    string
	IntentID     string
	ClientSecret string
}

// CreatePaymentIntent mints (or reuses) a gateway intent scoped to the
// invoice via metadata tagging. Invoice status is not touched here; the
// transition happens at finalize time.
func (s *Service) CreatePaymentIntent(ctx context.Context, invoiceID string, amount int64) (*IntentResult, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	switch inv.Status {
	case StatusCancelled:
		return nil, fmt.Errorf("%w: cannot pay a cancelled invoice %s", ErrValidation, invoiceID)
	case StatusPaid:
		return nil, fmt.Errorf("%w: invoice %s is already paid", ErrValidation, invoiceID)
	}

	if amount <= 0 {
		return nil, fmt.Errorf("%w: invalid payment amount for invoice %s", ErrValidation, invoiceID)
	}

	if amount > s.payable(inv) {
		return nil, fmt.Errorf("%w: payment exceeds invoice amount", ErrValidation)
	}

	if existing := s.reusableIntent(ctx, inv); existing != nil {
		s.events.Event("payment_intent_reused", "invoice_id", invoiceID, "intent_id", existing.ID)

		return &IntentResult{InvoiceID: invoiceID, IntentID: existing.ID, ClientSecret: existing.ClientSecret}, nil
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.CreateIntentParams{
		Amount:   amount,
		Currency: s.opts.Currency,
		Metadata: map[string]string{
			payment.MetadataInvoiceID: invoiceID,
			"invoiceNumber":           inv.ID,
			"customerName":            inv.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	inv.PaymentIntentID = intent.ID
	inv.UpdatedDate = s.now().UTC()

	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	s.events.Event("payment_intent_created", "invoice_id", invoiceID, "intent_id", intent.ID, "amount", amount)

	return &IntentResult{InvoiceID: invoiceID, IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// reusableIntent returns the invoice's recorded intent when it is still
// collectable and tagged for this invoice. Retrieval failures fall through
// to minting a fresh intent.
func (s *Service) reusableIntent(ctx context.Context, inv *Invoice) *payment.Intent {
	if inv.PaymentIntentID == "" {
		return nil
	}

	existing, err := s.gateway.GetIntent(ctx, inv.PaymentIntentID)
	if err != nil {
		s.log.Warn("failed to retrieve recorded payment intent", "invoice_id", inv.ID, "intent_id", inv.PaymentIntentID, "error", err)
		return nil
	}

	if existing.Status != payment.StatusRequiresPaymentMethod && existing.Status != payment.StatusRequiresConfirmation {
		return nil
	}

	if existing.Metadata[payment.MetadataInvoiceID] != inv.ID {
		return nil
	}

	return existing
}

// FinalizePayment reconciles a succeeded intent against the invoice and
// moves it to PAID or PARTIALLY_PAID. A repeat call with the already
// applied intent is a no-op success. Notification failure never rolls back
// the status change.
func (s *Service) FinalizePayment(ctx context.Context, invoiceID, intentID string) (*Invoice, error) {
	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	// Idempotency: a repeat call with an already applied intent reports the
	// existing outcome. PaymentIntentID cannot serve as the key here; it is
	// recorded at mint time and may still be unpaid.
	if slices.Contains(inv.AppliedIntents, intentID) {
		s.events.Event("payment_finalize_repeat", "invoice_id", invoiceID, "intent_id", intentID)
		return inv, nil
	}

	if inv.Status.Terminal() {
		return nil, fmt.Errorf("%w: invoice %s is %s", ErrValidation, invoiceID, inv.Status)
	}

	if intent.Status != payment.StatusSucceeded {
		return nil, fmt.Errorf("%w: payment intent not succeeded (status: %s)", ErrValidation, intent.Status)
	}

	if intent.Metadata[payment.MetadataInvoiceID] != invoiceID {
		return nil, fmt.Errorf("%w: payment intent does not match invoice", ErrValidation)
	}

	if intent.Currency != s.opts.Currency {
		return nil, fmt.Errorf("%w: unsupported currency %s", ErrValidation, intent.Currency)
	}

	if intent.Amount <= 0 || intent.Amount > s.payable(inv) {
		return nil, fmt.Errorf("%w: invalid payment amount", ErrValidation)
	}

	inv.AmountPaid += intent.Amount
	inv.PaymentIntentID = intent.ID
	inv.AppliedIntents = append(inv.AppliedIntents, intent.ID)
	inv.UpdatedDate = s.now().UTC()

	if inv.AmountPaid >= inv.Amount {
		inv.Status = StatusPaid
	} else {
		inv.Status = StatusPartiallyPaid
	}

	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	s.events.Event("payment_finalized", "invoice_id", invoiceID, "intent_id", intentID, "amount", intent.Amount, "status", string(inv.Status))

	s.notifyPaymentReceived(ctx, inv, intent)

	return inv, nil
}

// payable is the amount a new payment may cover.
func (s *Service) payable(inv *Invoice) int64 {
	if s.opts.Cumulative {
		return inv.Amount - inv.AmountPaid
	}

	return inv.Amount
}

// PaymentStatus reports the live gateway status for the invoice's recorded
// intent. An invoice with no intent, or whose intent is tagged for a
// different invoice, still requires a payment method.
func (s *Service) PaymentStatus(ctx context.Context, invoiceID string) (string, error) {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}

	if inv.PaymentIntentID == "" {
		return payment.StatusRequiresPaymentMethod, nil
	}

	intent, err := s.gateway.GetIntent(ctx, inv.PaymentIntentID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if intent.Metadata[payment.MetadataInvoiceID] != invoiceID {
		return payment.StatusRequiresPaymentMethod, nil
	}

	return intent.Status, nil
}

func (s *Service) notifyPaymentReceived(ctx context.Context, inv *Invoice, intent *payment.Intent) {
	paid := fmt.Sprintf("$%.2f", float64(intent.Amount)/100)
	link := fmt.Sprintf("%s/%s", s.opts.InvoiceBaseURL, inv.ID)

	contactMsg := mailer.Message{
		To:      inv.Contact,
		Subject: fmt.Sprintf("Payment Received for Invoice %s", inv.ID),
		Text: fmt.Sprintf("%s,\n\nWe have received your payment of %s for Invoice %s.\n\nThank you for your business!\n\nBest regards,\nRudyard Software Consulting",
			inv.Name, paid, inv.ID),
		HTML: fmt.Sprintf("<p>%s,</p><p>We have received your payment for Invoice <a href='%s'>%s</a> amounting to <strong>%s</strong>.</p><p>Thank you for your business!</p><p>Best regards,<br/>Rudyard Software Consulting</p>",
			inv.Name, link, inv.ID, paid),
	}

	operatorMsg := mailer.Message{
		To:      s.opts.OperatorEmail,
		Subject: fmt.Sprintf("Invoice %s Paid", inv.ID),
		Text: fmt.Sprintf("Invoice %s has been paid by %s.\n\nAmount: %s\nPaymentIntent ID: %s",
			inv.ID, inv.Name, paid, intent.ID),
		HTML: fmt.Sprintf("<p>Invoice <strong>%s</strong> has been paid by %s.</p><p>Amount: <strong>%s</strong><br/>PaymentIntent ID: <strong>%s</strong></p>",
			inv.ID, inv.Name, paid, intent.ID),
	}

	for _, msg := range []mailer.Message{contactMsg, operatorMsg} {
		if msg.To == "" {
			continue
		}

		if err := s.sender.Send(ctx, msg); err != nil {
			s.log.Error("failed to send payment confirmation", "invoice_id", inv.ID, "to", msg.To, "error", err)
		}
	}
}
