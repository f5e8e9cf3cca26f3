// Package ledger holds the scoped category and transaction stores. Every
// operation takes the caller's resolved ScopeKey; nothing here resolves
// scope on its own.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kasbook/internal/core"
	"kasbook/internal/storage"
)

// CategoryService is CRUD over named categories grouped by kind, with one
// system-managed locked installment category per (scope, owner).
type CategoryService struct {
	repo *storage.Repository
}

func NewCategoryService(repo *storage.Repository) *CategoryService {
	return &CategoryService{repo: repo}
}

// EnsureInstallment lazily creates the locked installment category for a
// partition, and re-locks it if it was somehow unlocked. Idempotent.
func (s *CategoryService) EnsureInstallment(ctx context.Context, key core.ScopeKey) error {
	cat, err := s.repo.GetCategory(ctx, key, core.KindPersonalExpense, core.InstallmentName)
	if errors.Is(err, core.ErrNotFound) {
		return s.repo.InsertCategory(ctx, key, core.KindPersonalExpense, core.InstallmentName, true)
	}
	if err != nil {
		return fmt.Errorf("ensure installment: %w", err)
	}
	if !cat.Locked {
		return s.repo.LockCategory(ctx, cat.ID)
	}
	return nil
}

// List returns a group's categories, locked rows first then
// case-insensitive lexicographic order.
func (s *CategoryService) List(ctx context.Context, key core.ScopeKey, group core.Kind) ([]core.Category, error) {
	if !group.Valid() {
		return nil, core.ErrInvalidKind
	}
	if err := s.EnsureInstallment(ctx, key); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx, key, group)
}

// Add inserts a category. A duplicate name in the same group is a silent
// no-op so the caller's flow stays linear.
func (s *CategoryService) Add(ctx context.Context, key core.ScopeKey, group core.Kind, name string) error {
	if !group.Valid() {
		return core.ErrInvalidKind
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	if err := s.EnsureInstallment(ctx, key); err != nil {
		return err
	}
	return s.repo.InsertCategory(ctx, key, group, name, false)
}

// Delete removes a category. The installment category is refused with
// ErrLocked. Historical transactions keep their category string; nothing
// cascades.
func (s *CategoryService) Delete(ctx context.Context, key core.ScopeKey, group core.Kind, name string) error {
	if err := s.EnsureInstallment(ctx, key); err != nil {
		return err
	}
	cat, err := s.repo.GetCategory(ctx, key, group, name)
	if err != nil {
		return err
	}
	if cat.Locked {
		return core.ErrLocked
	}
	return s.repo.DeleteCategory(ctx, cat.ID)
}

// Exists reports whether a category name is present for a kind.
func (s *CategoryService) Exists(ctx context.Context, key core.ScopeKey, group core.Kind, name string) (bool, error) {
	_, err := s.repo.GetCategory(ctx, key, group, name)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
