package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"kasbook/internal/core"
)

func TestTransactionAddValidation(t *testing.T) {
	_, txs := newTestServices(t)
	ctx := context.Background()
	day := core.NewDate(2025, time.August, 26)

	if _, err := txs.Add(ctx, testKey, 1, day, "snacks", "Sales", 10, ""); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if _, err := txs.Add(ctx, testKey, 1, day, core.KindIncome, "Sales", -1, ""); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := txs.Add(ctx, testKey, 1, day, core.KindIncome, " ", 10, ""); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}

	created, err := txs.Add(ctx, testKey, 1, day, core.KindIncome, "Sales", 0, "zero is fine")
	if err != nil {
		t.Fatalf("zero amount must be accepted: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected created_at == updated_at, got %v / %v", created.CreatedAt, created.UpdatedAt)
	}
}

func TestUpdateFieldValidation(t *testing.T) {
	cats, txs := newTestServices(t)
	ctx := context.Background()
	day := core.NewDate(2025, time.August, 26)

	if err := cats.Add(ctx, testKey, core.KindIncome, "Sales"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	if err := cats.Add(ctx, testKey, core.KindIncome, "Consulting"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	created, err := txs.Add(ctx, testKey, 1, day, core.KindIncome, "Sales", 100000, "initial")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	t.Run("category must exist for the transaction's kind", func(t *testing.T) {
		if err := txs.UpdateField(ctx, testKey, created.ID, FieldCategory, "Nonexistent"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := txs.UpdateField(ctx, testKey, created.ID, FieldCategory, "Consulting"); err != nil {
			t.Fatalf("valid category: %v", err)
		}
	})

	t.Run("amount re-parses with separators", func(t *testing.T) {
		if err := txs.UpdateField(ctx, testKey, created.ID, FieldAmount, "abc"); !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
		if err := txs.UpdateField(ctx, testKey, created.ID, FieldAmount, "125,000"); err != nil {
			t.Fatalf("valid amount: %v", err)
		}
	})

	t.Run("empty description clears it", func(t *testing.T) {
		if err := txs.UpdateField(ctx, testKey, created.ID, FieldDescription, ""); err != nil {
			t.Fatalf("clear description: %v", err)
		}
	})

	got, err := txs.Get(ctx, testKey, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != "Consulting" || got.Amount != 125000 || got.Description != "" {
		t.Fatalf("edits not applied: %+v", got)
	}
	if got.Kind != core.KindIncome || got.Date != day {
		t.Fatalf("immutable fields changed: %+v", got)
	}
}

func TestUpdateFieldCrossScopeInvisible(t *testing.T) {
	cats, txs := newTestServices(t)
	ctx := context.Background()
	day := core.NewDate(2025, time.August, 26)
	other := core.ScopeKey{Scope: core.ScopePrivate, Owner: 999}

	if err := cats.Add(ctx, testKey, core.KindIncome, "Sales"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	created, err := txs.Add(ctx, testKey, 1, day, core.KindIncome, "Sales", 10, "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := txs.UpdateField(ctx, other, created.ID, FieldAmount, "5"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-scope edit must be ErrNotFound, got %v", err)
	}
	if err := txs.Delete(ctx, other, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-scope delete must be ErrNotFound, got %v", err)
	}
}
