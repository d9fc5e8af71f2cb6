package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rudyardtech/billing/internal/contact"
	"github.com/rudyardtech/billing/internal/tablestore"
)

const (
	table     = "contactlogs"
	partition = "contact"
)

type Store struct {
	tables *tablestore.Store
}

func New(tables *tablestore.Store) *Store {
	return &Store{tables: tables}
}

type record struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	HTML      string    `json:"html,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Sent      bool      `json:"sent"`
}

func toRecord(sub *contact.Submission) record {
	return record{
		ID:        sub.ID,
		To:        sub.To,
		Subject:   sub.Subject,
		Text:      sub.Text,
		HTML:      sub.HTML,
		Timestamp: sub.Timestamp,
		Sent:      sub.Sent,
	}
}

func (r record) toSubmission() *contact.Submission {
	return &contact.Submission{
		ID:        r.ID,
		To:        r.To,
		Subject:   r.Subject,
		Text:      r.Text,
		HTML:      r.HTML,
		Timestamp: r.Timestamp,
		Sent:      r.Sent,
	}
}

func (s *Store) CreateLog(ctx context.Context, sub *contact.Submission) error {
	if err := s.tables.Insert(ctx, table, partition, sub.ID, toRecord(sub)); err != nil {
		return fmt.Errorf("logging contact message: %w", err)
	}

	return nil
}

func (s *Store) UpdateLog(ctx context.Context, sub *contact.Submission) error {
	if err := s.tables.Merge(ctx, table, partition, sub.ID, toRecord(sub)); err != nil {
		return fmt.Errorf("updating contact log %s: %w", sub.ID, err)
	}

	return nil
}

func (s *Store) ListPending(ctx context.Context) ([]*contact.Submission, error) {
	docs, err := s.tables.QueryPartition(ctx, table, partition)
	if err != nil {
		return nil, fmt.Errorf("listing contact logs: %w", err)
	}

	var pending []*contact.Submission

	for _, data := range docs {
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decoding contact log: %w", err)
		}

		if r.Sent {
			continue
		}

		pending = append(pending, r.toSubmission())
	}

	return pending, nil
}
