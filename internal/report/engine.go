// Package report is the aggregation engine: pure, read-only rollups over
// the transaction store, computed on demand. Result sets are one scope's
// rows for a day or month, so nothing is materialized or cached.
package report

import (
	"context"
	"sort"
	"time"

	"kasbook/internal/core"
	"kasbook/internal/storage"
)

// Summary is one partition's totals over a date range. Installment is
// reported apart from discretionary personal spend: it is a
// pre-committed obligation and must not depress the saving figure.
type Summary struct {
	Income                int64
	WorkExpense           int64
	PersonalExInstallment int64 // personal expenses excluding installment
	Installment           int64
}

// Net is income minus work expenses.
func (s Summary) Net() int64 {
	return s.Income - s.WorkExpense
}

// Saving is net minus discretionary personal spend. Installment is
// deliberately excluded.
func (s Summary) Saving() int64 {
	return s.Net() - s.PersonalExInstallment
}

// CategoryAmount is one row of a per-category breakdown.
type CategoryAmount struct {
	Name   string
	Amount int64
}

type Engine struct {
	repo *storage.Repository
}

func NewEngine(repo *storage.Repository) *Engine {
	return &Engine{repo: repo}
}

// DailySums partitions one day's rows into the summary buckets.
func (e *Engine) DailySums(ctx context.Context, key core.ScopeKey, date core.Date) (Summary, error) {
	return e.RangeSums(ctx, key, date, date)
}

// MonthSums applies the same formulas over the inclusive calendar-month
// range, month-length and leap-year aware.
func (e *Engine) MonthSums(ctx context.Context, key core.ScopeKey, year int, month time.Month) (Summary, error) {
	first, last := core.MonthRange(year, month)
	return e.RangeSums(ctx, key, first, last)
}

// RangeSums computes the summary over an arbitrary inclusive date range.
func (e *Engine) RangeSums(ctx context.Context, key core.ScopeKey, from, to core.Date) (Summary, error) {
	sums, err := e.repo.SumByRange(ctx, key, from, to)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	for _, row := range sums {
		switch row.Kind {
		case core.KindIncome:
			s.Income += row.Total
		case core.KindWorkExpense:
			s.WorkExpense += row.Total
		case core.KindPersonalExpense:
			if row.Category == core.InstallmentName {
				s.Installment += row.Total
			} else {
				s.PersonalExInstallment += row.Total
			}
		}
	}
	return s, nil
}

// CategoryBreakdown sums one kind's categories over a calendar month,
// sorted by amount descending with name ascending as the deterministic
// tie-break.
func (e *Engine) CategoryBreakdown(ctx context.Context, key core.ScopeKey, year int, month time.Month, kind core.Kind) ([]CategoryAmount, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	first, last := core.MonthRange(year, month)
	sums, err := e.repo.SumByRange(ctx, key, first, last)
	if err != nil {
		return nil, err
	}

	var out []CategoryAmount
	for _, row := range sums {
		if row.Kind == kind {
			out = append(out, CategoryAmount{Name: row.Category, Amount: row.Total})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
