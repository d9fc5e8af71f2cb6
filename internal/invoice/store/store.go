package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rudyardtech/billing/internal/invoice"
	"github.com/rudyardtech/billing/internal/tablestore"
)

const table = "invoices"

// Store persists invoices in the entity table store, partitioned by owning
// client (or contact for clientless invoices) and row-keyed by invoice id.
type Store struct {
	tables *tablestore.Store
}

func New(tables *tablestore.Store) *Store {
	return &Store{tables: tables}
}

type record struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Amount          int64          `json:"amount"`
	AmountPaid      int64          `json:"amountPaid"`
	Notes           string         `json:"notes"`
	Contact         string         `json:"contact"`
	ClientID        string         `json:"clientId,omitempty"`
	Status          invoice.Status `json:"status"`
	PaymentIntentID string         `json:"paymentIntentId,omitempty"`
	AppliedIntents  []string       `json:"appliedIntents,omitempty"`
	CreatedDate     time.Time      `json:"createdDate"`
	UpdatedDate     time.Time      `json:"updatedDate"`
	DueDate         *time.Time     `json:"dueDate,omitempty"`
}

func toRecord(inv *invoice.Invoice) record {
	return record{
		ID:              inv.ID,
		Name:            inv.Name,
		Amount:          inv.Amount,
		AmountPaid:      inv.AmountPaid,
		Notes:           inv.Notes,
		Contact:         inv.Contact,
		ClientID:        inv.ClientID,
		Status:          inv.Status,
		PaymentIntentID: inv.PaymentIntentID,
		AppliedIntents:  inv.AppliedIntents,
		CreatedDate:     inv.CreatedDate,
		UpdatedDate:     inv.UpdatedDate,
		DueDate:         inv.DueDate,
	}
}

func (r record) toInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		ID:              r.ID,
		Name:            r.Name,
		Amount:          r.Amount,
		AmountPaid:      r.AmountPaid,
		Notes:           r.Notes,
		Contact:         r.Contact,
		ClientID:        r.ClientID,
		Status:          r.Status,
		PaymentIntentID: r.PaymentIntentID,
		AppliedIntents:  r.AppliedIntents,
		CreatedDate:     r.CreatedDate,
		UpdatedDate:     r.UpdatedDate,
		DueDate:         r.DueDate,
	}
}

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	if err := s.tables.Insert(ctx, table, inv.PartitionKey(), inv.ID, toRecord(inv)); err != nil {
		return fmt.Errorf("creating invoice %s: %w", inv.ID, err)
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	data, err := s.tables.GetByRowKey(ctx, table, id)
	if err != nil {
		if errors.Is(err, tablestore.ErrNotFound) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice %s: %w", id, err)
	}

	return decode(data)
}

func (s *Store) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	var (
		docs [][]byte
		err  error
	)

	if filter.ClientID != nil {
		docs, err = s.tables.QueryPartition(ctx, table, *filter.ClientID)
	} else {
		docs, err = s.tables.List(ctx, table)
	}

	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	invoices := make([]*invoice.Invoice, 0, len(docs))

	for _, data := range docs {
		inv, err := decode(data)
		if err != nil {
			return nil, err
		}

		invoices = append(invoices, inv)
	}

	return invoices, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	err := s.tables.Merge(ctx, table, inv.PartitionKey(), inv.ID, toRecord(inv))
	if err != nil {
		if errors.Is(err, tablestore.ErrNotFound) {
			return invoice.ErrNotFound
		}

		return fmt.Errorf("updating invoice %s: %w", inv.ID, err)
	}

	return nil
}

func decode(data []byte) (*invoice.Invoice, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding invoice: %w", err)
	}

	return r.toInvoice(), nil
}
