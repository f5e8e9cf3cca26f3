package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kasbook/internal/core"
	"kasbook/internal/storage"
)

var testKey = core.ScopeKey{Scope: core.ScopePrivate, Owner: 1}

func newTestEngine(t *testing.T) (*Engine, *storage.Repository) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewEngine(repo), repo
}

func addTx(t *testing.T, repo *storage.Repository, key core.ScopeKey, date core.Date, kind core.Kind, category string, amount int64) {
	t.Helper()
	now := time.Now()
	_, err := repo.InsertTransaction(context.Background(), &core.Transaction{
		Scope: key.Scope, Owner: key.Owner, Actor: key.Owner,
		Date: date, Kind: kind, Category: category, Amount: amount,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
}

func TestDailySumsEmpty(t *testing.T) {
	engine, _ := newTestEngine(t)

	s, err := engine.DailySums(context.Background(), testKey, core.NewDate(2025, time.August, 26))
	if err != nil {
		t.Fatalf("daily sums: %v", err)
	}
	if s != (Summary{}) || s.Net() != 0 || s.Saving() != 0 {
		t.Fatalf("empty day must be all zero, got %+v", s)
	}
}

func TestDailySumsSingleIncome(t *testing.T) {
	engine, repo := newTestEngine(t)
	day := core.NewDate(2025, time.August, 26)
	addTx(t, repo, testKey, day, core.KindIncome, "Sales", 100000)

	s, err := engine.DailySums(context.Background(), testKey, day)
	if err != nil {
		t.Fatalf("daily sums: %v", err)
	}
	if s.Income != 100000 || s.Net() != 100000 || s.Saving() != 100000 {
		t.Fatalf("unexpected summary %+v (net=%d saving=%d)", s, s.Net(), s.Saving())
	}
}

func TestInstallmentExcludedFromSaving(t *testing.T) {
	engine, repo := newTestEngine(t)
	day := core.NewDate(2025, time.August, 26)
	addTx(t, repo, testKey, day, core.KindPersonalExpense, core.InstallmentName, 50000)

	s, err := engine.DailySums(context.Background(), testKey, day)
	if err != nil {
		t.Fatalf("daily sums: %v", err)
	}
	if s.Installment != 50000 {
		t.Fatalf("expected installment 50000, got %+v", s)
	}
	if s.PersonalExInstallment != 0 {
		t.Fatalf("installment must not count as discretionary spend: %+v", s)
	}
	if s.Saving() != 0 {
		t.Fatalf("saving must be 0, not %d", s.Saving())
	}
}

func TestSummaryIdentities(t *testing.T) {
	engine, repo := newTestEngine(t)
	day := core.NewDate(2025, time.March, 3)
	addTx(t, repo, testKey, day, core.KindIncome, "Sales", 900)
	addTx(t, repo, testKey, day, core.KindWorkExpense, "Rent", 300)
	addTx(t, repo, testKey, day, core.KindPersonalExpense, "Food", 150)
	addTx(t, repo, testKey, day, core.KindPersonalExpense, core.InstallmentName, 200)

	s, err := engine.DailySums(context.Background(), testKey, day)
	if err != nil {
		t.Fatalf("daily sums: %v", err)
	}
	if s.Net() != s.Income-s.WorkExpense {
		t.Fatalf("net identity broken: %+v", s)
	}
	if s.Saving() != s.Net()-s.PersonalExInstallment {
		t.Fatalf("saving identity broken: %+v", s)
	}
	if s.Net() != 600 || s.Saving() != 450 {
		t.Fatalf("expected net 600 saving 450, got %d / %d", s.Net(), s.Saving())
	}
}

func TestMonthSumsEqualsSumOfDailySums(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	// February of a leap year, with rows scattered over the month and
	// noise just outside it.
	addTx(t, repo, testKey, core.NewDate(2024, time.February, 1), core.KindIncome, "Sales", 100)
	addTx(t, repo, testKey, core.NewDate(2024, time.February, 15), core.KindWorkExpense, "Rent", 40)
	addTx(t, repo, testKey, core.NewDate(2024, time.February, 29), core.KindPersonalExpense, core.InstallmentName, 25)
	addTx(t, repo, testKey, core.NewDate(2024, time.February, 29), core.KindPersonalExpense, "Food", 10)
	addTx(t, repo, testKey, core.NewDate(2024, time.January, 31), core.KindIncome, "Sales", 999)
	addTx(t, repo, testKey, core.NewDate(2024, time.March, 1), core.KindIncome, "Sales", 999)

	month, err := engine.MonthSums(ctx, testKey, 2024, time.February)
	if err != nil {
		t.Fatalf("month sums: %v", err)
	}

	var acc Summary
	first, last := core.MonthRange(2024, time.February)
	for d := first; !d.After(last); d = d.AddDays(1) {
		daily, err := engine.DailySums(ctx, testKey, d)
		if err != nil {
			t.Fatalf("daily sums %s: %v", d, err)
		}
		acc.Income += daily.Income
		acc.WorkExpense += daily.WorkExpense
		acc.PersonalExInstallment += daily.PersonalExInstallment
		acc.Installment += daily.Installment
	}

	if month != acc {
		t.Fatalf("month (%+v) != sum of dailies (%+v)", month, acc)
	}
	if month.Income != 100 {
		t.Fatalf("rows outside the month leaked in: %+v", month)
	}
}

func TestCategoryBreakdownOrdering(t *testing.T) {
	engine, repo := newTestEngine(t)
	day := core.NewDate(2025, time.May, 10)
	addTx(t, repo, testKey, day, core.KindWorkExpense, "Rent", 500)
	addTx(t, repo, testKey, day, core.KindWorkExpense, "Fuel", 200)
	addTx(t, repo, testKey, day, core.KindWorkExpense, "Ads", 200)
	addTx(t, repo, testKey, day, core.KindIncome, "Sales", 9999)

	got, err := engine.CategoryBreakdown(context.Background(), testKey, 2025, time.May, core.KindWorkExpense)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	want := []CategoryAmount{{"Rent", 500}, {"Ads", 200}, {"Fuel", 200}}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestReferentialTransparency(t *testing.T) {
	engine, repo := newTestEngine(t)
	day := core.NewDate(2025, time.June, 6)
	addTx(t, repo, testKey, day, core.KindIncome, "Sales", 123)

	first, err := engine.DailySums(context.Background(), testKey, day)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := engine.DailySums(context.Background(), testKey, day)
		if err != nil || again != first {
			t.Fatalf("call %d diverged: %+v vs %+v (err=%v)", i, again, first, err)
		}
	}
}
