// Package memory is an in-process RowAppender used by tests and local
// runs without Sheets credentials.
package memory

import (
	"context"
	"sync"

	"kasbook/internal/core"
	"kasbook/internal/export"
)

type Store struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ export.RowAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendTransactions(_ context.Context, rows []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...)
}
