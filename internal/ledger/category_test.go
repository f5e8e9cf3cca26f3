package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kasbook/internal/core"
	"kasbook/internal/storage"
)

func newTestServices(t *testing.T) (*CategoryService, *TransactionService) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	cats := NewCategoryService(repo)
	return cats, NewTransactionService(repo, cats, nil)
}

var testKey = core.ScopeKey{Scope: core.ScopePrivate, Owner: 1}

func TestEnsureInstallmentIdempotent(t *testing.T) {
	cats, _ := newTestServices(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cats.EnsureInstallment(ctx, testKey); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	list, err := cats.List(ctx, testKey, core.KindPersonalExpense)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := 0
	for _, c := range list {
		if c.Name == core.InstallmentName {
			found++
			if !c.Locked {
				t.Fatal("installment category must be locked")
			}
		}
	}
	if found != 1 {
		t.Fatalf("expected exactly one installment row, got %d", found)
	}
}

func TestCategoryAddIdempotentDeleteSemantics(t *testing.T) {
	cats, _ := newTestServices(t)
	ctx := context.Background()

	if err := cats.Add(ctx, testKey, core.KindIncome, "Sales"); err != nil {
		t.Fatalf("add: %v", err)
	}
	// duplicate add is a documented silent no-op
	if err := cats.Add(ctx, testKey, core.KindIncome, "Sales"); err != nil {
		t.Fatalf("duplicate add must not error: %v", err)
	}
	if err := cats.Add(ctx, testKey, core.KindIncome, "  "); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := cats.Add(ctx, testKey, "snacks", "Sales"); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}

	if err := cats.Delete(ctx, testKey, core.KindIncome, "Sales"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cats.Delete(ctx, testKey, core.KindIncome, "Sales"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInstallmentDeleteAlwaysLocked(t *testing.T) {
	cats, _ := newTestServices(t)
	ctx := context.Background()

	// N prior Add calls must not unlock it
	for i := 0; i < 2; i++ {
		_ = cats.Add(ctx, testKey, core.KindPersonalExpense, core.InstallmentName)
	}

	err := cats.Delete(ctx, testKey, core.KindPersonalExpense, core.InstallmentName)
	if !errors.Is(err, core.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	list, _ := cats.List(ctx, testKey, core.KindPersonalExpense)
	if len(list) != 1 {
		t.Fatalf("category count changed by refused delete: %d", len(list))
	}
}

func TestCategoryDeleteKeepsHistoricalTransactions(t *testing.T) {
	cats, txs := newTestServices(t)
	ctx := context.Background()
	day := core.NewDate(2025, 8, 26)

	if err := cats.Add(ctx, testKey, core.KindWorkExpense, "Fuel"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	created, err := txs.Add(ctx, testKey, testKey.Owner, day, core.KindWorkExpense, "Fuel", 5000, "")
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}

	if err := cats.Delete(ctx, testKey, core.KindWorkExpense, "Fuel"); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	got, err := txs.Get(ctx, testKey, created.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Category != "Fuel" {
		t.Fatalf("historical entry lost its category string: %+v", got)
	}
}
