package contact_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudyardtech/billing/internal/contact"
	"github.com/rudyardtech/billing/internal/mailer"
	"github.com/rudyardtech/billing/internal/telemetry"
)

type fakeRepo struct {
	logs map[string]*contact.Submission
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{logs: make(map[string]*contact.Submission)}
}

func (f *fakeRepo) CreateLog(_ context.Context, sub *contact.Submission) error {
	copied := *sub
	f.logs[sub.ID] = &copied

	return nil
}

func (f *fakeRepo) UpdateLog(_ context.Context, sub *contact.Submission) error {
	copied := *sub
	f.logs[sub.ID] = &copied

	return nil
}

func (f *fakeRepo) ListPending(_ context.Context) ([]*contact.Submission, error) {
	var out []*contact.Submission

	for _, sub := range f.logs {
		if !sub.Sent {
			copied := *sub
			out = append(out, &copied)
		}
	}

	return out, nil
}

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, msg)

	return nil
}

func newService(repo *fakeRepo, sender *fakeSender) *contact.Service {
	return contact.NewService(repo, sender, telemetry.Noop{}, slog.New(slog.NewTextHandler(io.Discard, nil)), "ops@rudyard.test")
}

func TestService_Submit(t *testing.T) {
	t.Run("DeliversAndMarksSent", func(t *testing.T) {
		repo := newFakeRepo()
		sender := &fakeSender{}
		svc := newService(repo, sender)

		err := svc.Submit(context.Background(), contact.SubmitParams{
			Subject: "Question",
			Text:    "How do I pay?",
		})
		require.NoError(t, err)

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "ops@rudyard.test", sender.sent[0].To)
		assert.Equal(t, "Question", sender.sent[0].Subject)

		require.Len(t, repo.logs, 1)
		for _, sub := range repo.logs {
			assert.True(t, sub.Sent)
		}
	})

	t.Run("MissingSubject", func(t *testing.T) {
		svc := newService(newFakeRepo(), &fakeSender{})

		err := svc.Submit(context.Background(), contact.SubmitParams{Text: "hello"})
		assert.ErrorIs(t, err, contact.ErrValidation)
	})

	t.Run("MissingText", func(t *testing.T) {
		svc := newService(newFakeRepo(), &fakeSender{})

		err := svc.Submit(context.Background(), contact.SubmitParams{Subject: "hello"})
		assert.ErrorIs(t, err, contact.ErrValidation)
	})

	t.Run("FailedDeliveryStaysPending", func(t *testing.T) {
		repo := newFakeRepo()
		sender := &fakeSender{err: errors.New("smtp down")}
		svc := newService(repo, sender)

		err := svc.Submit(context.Background(), contact.SubmitParams{
			Subject: "Question",
			Text:    "How do I pay?",
		})
		require.ErrorIs(t, err, contact.ErrDelivery)

		// The log entry survives the failed send for a later flush.
		require.Len(t, repo.logs, 1)
		for _, sub := range repo.logs {
			assert.False(t, sub.Sent)
		}
	})
}

func TestService_Flush(t *testing.T) {
	repo := newFakeRepo()
	broken := &fakeSender{err: errors.New("smtp down")}
	svc := newService(repo, broken)

	for _, subject := range []string{"first", "second"} {
		err := svc.Submit(context.Background(), contact.SubmitParams{Subject: subject, Text: "body"})
		require.ErrorIs(t, err, contact.ErrDelivery)
	}

	t.Run("ResendsPending", func(t *testing.T) {
		sender := &fakeSender{}
		svc := newService(repo, sender)

		sent, err := svc.Flush(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, sent)
		assert.Len(t, sender.sent, 2)
	})

	t.Run("NothingLeftAfterFlush", func(t *testing.T) {
		sender := &fakeSender{}
		svc := newService(repo, sender)

		sent, err := svc.Flush(context.Background())
		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Empty(t, sender.sent)
	})

	t.Run("CountsOnlyDelivered", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newService(repo, &fakeSender{err: errors.New("smtp down")})

		err := svc.Submit(context.Background(), contact.SubmitParams{Subject: "stuck", Text: "body"})
		require.ErrorIs(t, err, contact.ErrDelivery)

		sent, err := svc.Flush(context.Background())
		require.NoError(t, err)
		assert.Zero(t, sent)
	})
}
