// Package storage is the persistence engine: a SQLite store owning all
// settings, authorized users, categories and ledger transactions. Every
// read re-queries; no mutable row is cached across requests.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kasbook/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Snapshot writes a consistent point-in-time copy of the database to
// destPath using VACUUM INTO, which takes only a read snapshot and never
// blocks concurrent writers.
func (r *Repository) Snapshot(ctx context.Context, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("vacuum into %s: %w", destPath, err)
	}
	return nil
}

// --- settings ---

func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, "SELECT v FROM settings WHERE k = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %q: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return v, nil
}

func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO settings (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = excluded.v",
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// --- authorized users ---

func (r *Repository) AddUser(ctx context.Context, u core.AuthorizedUser) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, name, added_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET name = excluded.name`,
		u.ID, u.Name, u.AddedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add user %d: %w", u.ID, err)
	}
	return nil
}

func (r *Repository) RemoveUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE user_id = ?", id)
	if err != nil {
		return fmt.Errorf("remove user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) UserExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE user_id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user %d: %w", id, err)
	}
	return true, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]core.AuthorizedUser, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id, name, added_at FROM users ORDER BY added_at, user_id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.AuthorizedUser
	for rows.Next() {
		var u core.AuthorizedUser
		var added string
		if err := rows.Scan(&u.ID, &u.Name, &added); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.AddedAt, _ = time.Parse(time.RFC3339, added)
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- categories ---

// ListCategories returns a group's categories with locked rows first,
// then case-insensitive lexicographic order.
func (r *Repository) ListCategories(ctx context.Context, key core.ScopeKey, group core.Kind) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, scope, owner_id, grp, name, locked FROM categories
		 WHERE scope = ? AND owner_id = ? AND grp = ?
		 ORDER BY locked DESC, name COLLATE NOCASE ASC`,
		key.Scope, key.Owner, group)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, key core.ScopeKey, group core.Kind, name string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, scope, owner_id, grp, name, locked FROM categories
		 WHERE scope = ? AND owner_id = ? AND grp = ? AND name = ?`,
		key.Scope, key.Owner, group, name)

	var c core.Category
	var locked int
	err := row.Scan(&c.ID, &c.Scope, &c.Owner, &c.Group, &c.Name, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Locked = locked == 1
	return c, nil
}

// InsertCategory is an idempotent insert: a duplicate (scope, owner,
// group, name) tuple is a silent no-op.
func (r *Repository) InsertCategory(ctx context.Context, key core.ScopeKey, group core.Kind, name string, locked bool) error {
	lockedInt := 0
	if locked {
		lockedInt = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO categories (scope, owner_id, grp, name, locked)
		 VALUES (?, ?, ?, ?, ?)`,
		key.Scope, key.Owner, group, name, lockedInt)
	if err != nil {
		return fmt.Errorf("insert category %q: %w", name, err)
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) LockCategory(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE categories SET locked = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("lock category %d: %w", id, err)
	}
	return nil
}

// --- transactions ---

func (r *Repository) InsertTransaction(ctx context.Context, t *core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (scope, owner_id, actor_id, date, kind, category, amount, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Scope, t.Owner, t.Actor, t.Date.String(), t.Kind, t.Category, t.Amount, t.Description,
		t.CreatedAt.UTC().Format(time.RFC3339), t.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetTransaction resolves an id within one scope only; ids belonging to
// other scopes are reported as absent, not forbidden.
func (r *Repository) GetTransaction(ctx context.Context, key core.ScopeKey, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		txSelect+" WHERE scope = ? AND owner_id = ? AND id = ?",
		key.Scope, key.Owner, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *Repository) ListTransactionsByDate(ctx context.Context, key core.ScopeKey, date core.Date) ([]core.Transaction, error) {
	return r.listTransactions(ctx,
		txSelect+" WHERE scope = ? AND owner_id = ? AND date = ? ORDER BY id DESC",
		key.Scope, key.Owner, date.String())
}

func (r *Repository) ListTransactionsByRange(ctx context.Context, key core.ScopeKey, from, to core.Date) ([]core.Transaction, error) {
	return r.listTransactions(ctx,
		txSelect+" WHERE scope = ? AND owner_id = ? AND date BETWEEN ? AND ? ORDER BY date, id",
		key.Scope, key.Owner, from.String(), to.String())
}

// ListTransactionsAfterID returns up to limit rows across all scopes with
// id greater than afterID, oldest first. Used by the export worker.
func (r *Repository) ListTransactionsAfterID(ctx context.Context, afterID int64, limit int) ([]core.Transaction, error) {
	return r.listTransactions(ctx,
		txSelect+" WHERE id > ? ORDER BY id LIMIT ?", afterID, limit)
}

func (r *Repository) UpdateTransactionCategory(ctx context.Context, key core.ScopeKey, id int64, category string) error {
	return r.updateTransactionField(ctx, key, id, "category", category)
}

func (r *Repository) UpdateTransactionAmount(ctx context.Context, key core.ScopeKey, id int64, amount int64) error {
	return r.updateTransactionField(ctx, key, id, "amount", amount)
}

func (r *Repository) UpdateTransactionDescription(ctx context.Context, key core.ScopeKey, id int64, description string) error {
	return r.updateTransactionField(ctx, key, id, "description", description)
}

func (r *Repository) updateTransactionField(ctx context.Context, key core.ScopeKey, id int64, column string, value any) error {
	// column is one of the fixed names above, never user input
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE transactions SET %s = ?, updated_at = ?
		 WHERE scope = ? AND owner_id = ? AND id = ?`, column),
		value, time.Now().UTC().Format(time.RFC3339), key.Scope, key.Owner, id)
	if err != nil {
		return fmt.Errorf("update transaction %d %s: %w", id, column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, key core.ScopeKey, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE scope = ? AND owner_id = ? AND id = ?",
		key.Scope, key.Owner, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// KindCategorySum is one aggregation bucket for a date range.
type KindCategorySum struct {
	Kind     core.Kind
	Category string
	Total    int64
}

// SumByRange groups a scope's rows by (kind, category) over an inclusive
// date range. The aggregation engine derives every report from this.
func (r *Repository) SumByRange(ctx context.Context, key core.ScopeKey, from, to core.Date) ([]KindCategorySum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, category, SUM(amount) FROM transactions
		 WHERE scope = ? AND owner_id = ? AND date BETWEEN ? AND ?
		 GROUP BY kind, category`,
		key.Scope, key.Owner, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("sum by range: %w", err)
	}
	defer rows.Close()

	var sums []KindCategorySum
	for rows.Next() {
		var s KindCategorySum
		if err := rows.Scan(&s.Kind, &s.Category, &s.Total); err != nil {
			return nil, fmt.Errorf("scan sum: %w", err)
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

// --- scanning helpers ---

const txSelect = `SELECT id, scope, owner_id, actor_id, date, kind, category, amount, description, created_at, updated_at
 FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var dateStr, createdStr, updatedStr string
	err := row.Scan(&t.ID, &t.Scope, &t.Owner, &t.Actor, &dateStr, &t.Kind,
		&t.Category, &t.Amount, &t.Description, &createdStr, &updatedStr)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = core.ParseGregorian(dateStr); err != nil {
		return core.Transaction{}, fmt.Errorf("corrupt date %q: %w", dateStr, err)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return t, nil
}

func scanCategory(rows *sql.Rows) (core.Category, error) {
	var c core.Category
	var locked int
	if err := rows.Scan(&c.ID, &c.Scope, &c.Owner, &c.Group, &c.Name, &locked); err != nil {
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	c.Locked = locked == 1
	return c, nil
}

func (r *Repository) listTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
