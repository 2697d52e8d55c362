package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Transaction is a row of the transactions table.
type Transaction struct {
	ID         int64
	Kind       string
	Item       string
	Amount     int64
	Quantity   int64
	OccurredAt int64
	OwnerID    string
	Note       string
	CreatedAt  int64
}

const transactionColumns = `id, kind, item, amount, quantity, occurred_at, owner_id, note, created_at`

const createTransaction = `
INSERT INTO transactions (kind, item, amount, quantity, occurred_at, owner_id, note, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	Kind       string
	Item       string
	Amount     int64
	Quantity   int64
	OccurredAt int64
	OwnerID    string
	Note       string
	CreatedAt  int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Kind,
		arg.Item,
		arg.Amount,
		arg.Quantity,
		arg.OccurredAt,
		arg.OwnerID,
		arg.Note,
		arg.CreatedAt,
	)
	return scanTransaction(row)
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListParams filters ListTransactions. Zero From/Until mean unbounded.
type ListParams struct {
	OwnerID    string
	Kinds      []string
	From       int64
	Until      int64
	Descending bool
	Limit      int
}

// listQuery builds the filtered select for p.
func listQuery(p ListParams) (string, []interface{}) {
	var b strings.Builder
	args := []interface{}{p.OwnerID}

	b.WriteString("SELECT " + transactionColumns + " FROM transactions WHERE owner_id = ?")
	if len(p.Kinds) > 0 {
		b.WriteString(" AND kind IN (?" + strings.Repeat(", ?", len(p.Kinds)-1) + ")")
		for _, k := range p.Kinds {
			args = append(args, k)
		}
	}
	if p.From != 0 {
		b.WriteString(" AND occurred_at >= ?")
		args = append(args, p.From)
	}
	if p.Until != 0 {
		b.WriteString(" AND occurred_at < ?")
		args = append(args, p.Until)
	}
	if p.Descending {
		b.WriteString(" ORDER BY occurred_at DESC, id DESC")
	} else {
		b.WriteString(" ORDER BY occurred_at ASC, id ASC")
	}
	if p.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, p.Limit)
	}
	return b.String(), args
}

func (q *Queries) ListTransactions(ctx context.Context, p ListParams) ([]Transaction, error) {
	query, args := listQuery(p)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner) (Transaction, error) {
	var i Transaction
	err := s.Scan(
		&i.ID,
		&i.Kind,
		&i.Item,
		&i.Amount,
		&i.Quantity,
		&i.OccurredAt,
		&i.OwnerID,
		&i.Note,
		&i.CreatedAt,
	)
	return i, err
}
