// Package export defines the outbound ports the backup worker writes
// through, plus their adapters.
package export

import (
	"context"

	"kasbook/internal/core"
)

// RowAppender receives committed ledger rows, oldest first. Implementations
// must be safe for repeated delivery of the same row; the worker keeps a
// high-water mark but may resend after a restart.
type RowAppender interface {
	AppendTransactions(ctx context.Context, rows []core.Transaction) error
}
