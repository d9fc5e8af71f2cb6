package contact

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rudyardtech/billing/internal/mailer"
	"github.com/rudyardtech/billing/internal/telemetry"
)

type Repository interface {
	CreateLog(ctx context.Context, sub *Submission) error
	UpdateLog(ctx context.Context, sub *Submission) error
	ListPending(ctx context.Context) ([]*Submission, error)
}

type Service struct {
	repo   Repository
	sender mailer.Sender
	events telemetry.Events
	log    *slog.Logger
	// operator receives every contact-form message.
	operator string
	now      func() time.Time
}

func NewService(repo Repository, sender mailer.Sender, events telemetry.Events, log *slog.Logger, operator string) *Service {
	return &Service{
		repo:     repo,
		sender:   sender,
		events:   events,
		log:      log,
		operator: operator,
		now:      time.Now,
	}
}

type SubmitParams struct {
	Subject string
	Text    string
	HTML    string
}

// Submit logs the message, then delivers it to the operator and marks the
// log entry sent. If delivery fails the entry stays pending for Flush.
func (s *Service) Submit(ctx context.Context, params SubmitParams) error {
	if params.Subject == "" || params.Text == "" {
		return fmt.Errorf("%w: subject and text are required", ErrValidation)
	}

	sub := &Submission{
		ID:        uuid.NewString(),
		To:        s.operator,
		Subject:   params.Subject,
		Text:      params.Text,
		HTML:      params.HTML,
		Timestamp: s.now().UTC(),
	}

	if err := s.repo.CreateLog(ctx, sub); err != nil {
		return err
	}

	s.events.Event("contact_submitted", "subject", sub.Subject)

	if err := s.deliver(ctx, sub); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	return nil
}

// Flush re-sends every pending log entry. Returns how many were delivered.
func (s *Service) Flush(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0

	for _, sub := range pending {
		if err := s.deliver(ctx, sub); err != nil {
			s.log.Error("failed to resend contact message", "id", sub.ID, "error", err)
			continue
		}

		sent++
	}

	return sent, nil
}

func (s *Service) deliver(ctx context.Context, sub *Submission) error {
	err := s.sender.Send(ctx, mailer.Message{
		To:      sub.To,
		Subject: sub.Subject,
		Text:    sub.Text,
		HTML:    sub.HTML,
	})
	if err != nil {
		return err
	}

	sub.Sent = true
	sub.Timestamp = s.now().UTC()

	if err := s.repo.UpdateLog(ctx, sub); err != nil {
		// Delivery already happened; a stale log entry only risks a
		// duplicate email on the next flush.
		s.log.Error("failed to mark contact message sent", "id", sub.ID, "error", err)
	}

	s.events.Event("contact_sent", "id", sub.ID)

	return nil
}
