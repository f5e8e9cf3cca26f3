package memory

import (
	"context"
	"testing"
	"time"

	"kasbook/internal/core"
)

func TestAppendAccumulates(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := core.NewDate(2025, time.April, 2)

	err := s.AppendTransactions(ctx, []core.Transaction{
		{ID: 1, Date: day, Kind: core.KindIncome, Category: "فروش", Amount: 100},
		{ID: 2, Date: day, Kind: core.KindWorkExpense, Category: "اجاره", Amount: 50},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendTransactions(ctx, nil); err != nil {
		t.Fatalf("empty append: %v", err)
	}

	rows := s.Rows()
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].ID != 2 {
		t.Fatalf("unexpected rows %+v", rows)
	}

	// Rows returns a copy
	rows[0].Amount = 999
	if s.Rows()[0].Amount != 100 {
		t.Fatal("Rows must not alias internal state")
	}
}
