package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	t.id, t.account_id, t.category_id, t.value, t.currency_id, t.date,
	t.reference, t.balance, t.statement_id, t.created_at, t.updated_at, t.deleted_at
`

func scanTransaction(s scanner) (*ledger.Transaction, error) {
	var tx ledger.Transaction

	var reference sql.NullString

	var balance sql.NullInt64

	if err := s.Scan(
		&tx.ID, &tx.AccountID, &tx.CategoryID, &tx.Value, &tx.CurrencyID, &tx.Date,
		&reference, &balance, &tx.StatementID,
		&tx.CreatedAt, &tx.UpdatedAt, &tx.DeletedAt,
	); err != nil {
		return nil, err
	}

	tx.Reference = reference.String

	if balance.Valid {
		b := balance.Int64
		tx.Balance = &b
	}

	return &tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.id = $1 AND t.deleted_at IS NULL`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.deleted_at IS NULL`

	var args []any

	argIdx := 1

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND t.account_id = $%d", argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND t.category_id = $%d", argIdx)

		args = append(args, *filter.CategoryID)
		argIdx++
	}

	if filter.StatementID != nil {
		query += fmt.Sprintf(" AND t.statement_id = $%d", argIdx)

		args = append(args, *filter.StatementID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY t.date ASC, t.created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id uuid.UUID, category uuid.UUID) error {
	query := `
		UPDATE transactions
		SET category_id = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`

	_, err := s.db.ExecContext(ctx, query, category, id)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}

	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE transactions
		SET deleted_at = NOW()
		WHERE id = $1
	`

	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	return nil
}

func (s *Store) ListStatements(ctx context.Context, account *uuid.UUID) ([]*ledger.Statement, error) {
	query := `
		SELECT id, account_id, file_name, start_date, end_date, created_at
		FROM statements
	`

	var args []any

	if account != nil {
		query += " WHERE account_id = $1"

		args = append(args, *account)
	}

	query += " ORDER BY end_date DESC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing statements: %w", err)
	}
	defer rows.Close()

	var statements []*ledger.Statement

	for rows.Next() {
		var st ledger.Statement
		if err := rows.Scan(&st.ID, &st.AccountID, &st.FileName, &st.StartDate, &st.EndDate, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning statement: %w", err)
		}

		statements = append(statements, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statements: %w", err)
	}

	return statements, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*ledger.Category, error) {
	query := `SELECT id, name, created_at FROM categories ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []*ledger.Category

	for rows.Next() {
		var c ledger.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}

	return categories, nil
}

// commitLockKey derives an advisory lock key from the statement date range so
// that overlapping commits serialize instead of interleaving.
func commitLockKey(minDate, maxDate time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(minDate.Format("2006-01-02")))
	h.Write([]byte{0})
	h.Write([]byte(maxDate.Format("2006-01-02")))

	return int64(h.Sum64())
}

type commitTx struct {
	tx *sql.Tx
}

func (s *Store) BeginCommit(ctx context.Context, minDate, maxDate time.Time) (ledger.CommitTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning commit tx: %w", err)
	}

	lockKey := commitLockKey(minDate, maxDate)
	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring commit lock: %w", err)
	}

	return &commitTx{tx: dbTx}, nil
}

func (c *commitTx) Commit() error   { return c.tx.Commit() }
func (c *commitTx) Rollback() error { return c.tx.Rollback() }

func (c *commitTx) CreateStatement(ctx context.Context, st *ledger.Statement) error {
	query := `
		INSERT INTO statements (account_id, file_name, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err := c.tx.QueryRowContext(ctx, query,
		st.AccountID, st.FileName, st.StartDate, st.EndDate,
	).Scan(&st.ID, &st.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating statement: %w", err)
	}

	return nil
}

func (c *commitTx) CreateTransactions(ctx context.Context, txs []*ledger.Transaction) error {
	query := `
		INSERT INTO transactions (account_id, category_id, value, currency_id, date, reference, balance, statement_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	for _, tx := range txs {
		err := c.tx.QueryRowContext(ctx, query,
			tx.AccountID,
			tx.CategoryID,
			tx.Value,
			tx.CurrencyID,
			tx.Date,
			tx.Reference,
			tx.Balance,
			tx.StatementID,
		).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
		if err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}
