package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jpvalente/tally/internal/rules"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindCategory(ctx context.Context, reference string) (uuid.UUID, bool, error) {
	query := `
		SELECT category_id
		FROM rules
		WHERE $1 ILIKE '%' || pattern || '%'
		ORDER BY LENGTH(pattern) DESC, created_at DESC
		LIMIT 1
	`

	var category uuid.UUID

	err := s.db.QueryRowContext(ctx, query, reference).Scan(&category)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, false, nil
		}

		return uuid.Nil, false, fmt.Errorf("finding rule match: %w", err)
	}

	return category, true, nil
}

func (s *Store) ListRules(ctx context.Context) ([]rules.Rule, error) {
	query := `
		SELECT id, pattern, category_id, created_at
		FROM rules
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	var out []rules.Rule

	for rows.Next() {
		var r rules.Rule
		if err := rows.Scan(&r.ID, &r.Pattern, &r.CategoryID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}

	return out, nil
}

func (s *Store) CreateRule(ctx context.Context, rule *rules.Rule) error {
	query := `
		INSERT INTO rules (pattern, category_id, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, rule.Pattern, rule.CategoryID).
		Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating rule: %w", err)
	}

	return nil
}
