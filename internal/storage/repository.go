// Package storage is the SQLite transaction store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"warung/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert stores t and returns its rowid as a decimal string.
func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Kind:       string(t.Kind),
		Item:       t.Item,
		Amount:     t.Amount,
		Quantity:   t.Quantity,
		OccurredAt: t.OccurredAt.UnixNano(),
		OwnerID:    t.OwnerID,
		Note:       t.Note,
		CreatedAt:  r.now().UnixNano(),
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"kind", row.Kind,
		"amount", row.Amount)

	return strconv.FormatInt(row.ID, 10), nil
}

// FindMany returns the transactions matching f in f.Order.
func (r *SQLiteRepository) FindMany(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, listParams(f, 0))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

// FindLatest returns the first transaction matching f in f.Order.
func (r *SQLiteRepository) FindLatest(ctx context.Context, f core.Filter) (core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, listParams(f, 1))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("find latest transaction: %w", err)
	}
	if len(rows) == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return rows[0].toCore(), nil
}

// DeleteByID removes one transaction by its decimal id.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return core.ErrNotFound
	}

	n, err := r.queries.DeleteTransaction(ctx, rowID)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", rowID, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.DebugContext(ctx, "Transaction deleted from SQLite", "id", rowID)
	return nil
}

// Count returns the number of stored transactions for owner.
func (r *SQLiteRepository) Count(ctx context.Context, owner string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE owner_id = ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func listParams(f core.Filter, limit int) ListParams {
	p := ListParams{
		OwnerID:    f.OwnerID,
		Descending: f.Order == core.Descending,
		Limit:      limit,
	}
	for _, k := range f.Kinds {
		p.Kinds = append(p.Kinds, string(k))
	}
	if !f.From.IsZero() {
		p.From = f.From.UnixNano()
	}
	if !f.Until.IsZero() {
		p.Until = f.Until.UnixNano()
	}
	return p
}

func (t Transaction) toCore() core.Transaction {
	return core.Transaction{
		ID:         strconv.FormatInt(t.ID, 10),
		Kind:       core.Kind(t.Kind),
		Item:       t.Item,
		Amount:     t.Amount,
		Quantity:   t.Quantity,
		OccurredAt: time.Unix(0, t.OccurredAt),
		OwnerID:    t.OwnerID,
		Note:       t.Note,
	}
}
