package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jpvalente/tally/internal/currency"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListCurrencies(ctx context.Context) ([]currency.Currency, error) {
	query := `
		SELECT id, ticker, symbol, name, created_at
		FROM currencies
		ORDER BY ticker ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing currencies: %w", err)
	}
	defer rows.Close()

	var currencies []currency.Currency

	for rows.Next() {
		var c currency.Currency
		if err := rows.Scan(&c.ID, &c.Ticker, &c.Symbol, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning currency: %w", err)
		}

		currencies = append(currencies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating currencies: %w", err)
	}

	return currencies, nil
}

func (s *Store) CreateCurrency(ctx context.Context, c *currency.Currency) error {
	query := `
		INSERT INTO currencies (ticker, symbol, name, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, c.Ticker, c.Symbol, c.Name).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating currency: %w", err)
	}

	return nil
}
