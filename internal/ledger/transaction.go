package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kasbook/internal/amqp"
	"kasbook/internal/core"
	"kasbook/internal/storage"
)

// Field names a transaction column that may be edited after creation.
// Kind, date and scope are immutable.
type Field string

const (
	FieldCategory    Field = "category"
	FieldAmount      Field = "amount"
	FieldDescription Field = "description"
)

// TransactionService is the scoped CRUD surface over ledger entries. A
// configured AMQP client receives a change event after every successful
// write; publish failures are logged and never surfaced, the local write
// already succeeded.
type TransactionService struct {
	repo *storage.Repository
	cats *CategoryService
	bus  *amqp.Client
}

func NewTransactionService(repo *storage.Repository, cats *CategoryService, bus *amqp.Client) *TransactionService {
	return &TransactionService{repo: repo, cats: cats, bus: bus}
}

// Add inserts a new entry with created_at = updated_at = now.
func (s *TransactionService) Add(ctx context.Context, key core.ScopeKey, actor int64, date core.Date, kind core.Kind, category string, amount int64, description string) (core.Transaction, error) {
	if !kind.Valid() {
		return core.Transaction{}, core.ErrInvalidKind
	}
	if amount < 0 {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	if strings.TrimSpace(category) == "" {
		return core.Transaction{}, core.ErrEmptyName
	}
	if err := s.cats.EnsureInstallment(ctx, key); err != nil {
		return core.Transaction{}, err
	}

	now := time.Now()
	t := core.Transaction{
		Scope:       key.Scope,
		Owner:       key.Owner,
		Actor:       actor,
		Date:        date,
		Kind:        kind,
		Category:    category,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.repo.InsertTransaction(ctx, &t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	t.ID = id

	s.publish(ctx, amqp.EventCommitted, id, key)
	return t, nil
}

// ListForDate returns one day's entries, newest id first.
func (s *TransactionService) ListForDate(ctx context.Context, key core.ScopeKey, date core.Date) ([]core.Transaction, error) {
	return s.repo.ListTransactionsByDate(ctx, key, date)
}

// ListForRange returns the scope's entries with from <= date <= to,
// newest first.
func (s *TransactionService) ListForRange(ctx context.Context, key core.ScopeKey, from, to core.Date) ([]core.Transaction, error) {
	return s.repo.ListTransactionsByRange(ctx, key, from, to)
}

// Get resolves an id within the caller's scope only. Rows in other
// scopes behave as absent.
func (s *TransactionService) Get(ctx context.Context, key core.ScopeKey, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, key, id)
}

// UpdateField edits one mutable column with the same validation the
// entry flow applies: amounts re-parse, categories must exist in-store
// for the transaction's kind, descriptions are free text and empty
// clears them.
func (s *TransactionService) UpdateField(ctx context.Context, key core.ScopeKey, id int64, field Field, value string) error {
	switch field {
	case FieldCategory:
		t, err := s.repo.GetTransaction(ctx, key, id)
		if err != nil {
			return err
		}
		exists, err := s.cats.Exists(ctx, key, t.Kind, value)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("category %q for kind %s: %w", value, t.Kind, core.ErrNotFound)
		}
		if err := s.repo.UpdateTransactionCategory(ctx, key, id, value); err != nil {
			return err
		}
	case FieldAmount:
		amount, err := core.ParseAmount(value)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateTransactionAmount(ctx, key, id, amount); err != nil {
			return err
		}
	case FieldDescription:
		if err := s.repo.UpdateTransactionDescription(ctx, key, id, strings.TrimSpace(value)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("field %q is not editable", field)
	}

	s.publish(ctx, amqp.EventUpdated, id, key)
	return nil
}

// Delete removes an entry. No soft-delete, no cascade.
func (s *TransactionService) Delete(ctx context.Context, key core.ScopeKey, id int64) error {
	if err := s.repo.DeleteTransaction(ctx, key, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.EventDeleted, id, key)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, eventType string, id int64, key core.ScopeKey) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishLedgerEvent(ctx, eventType, id, key); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", eventType, "id", id, "error", err)
	}
}
