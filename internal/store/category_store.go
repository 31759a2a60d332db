package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Categories returns the category names in display order. It implements
// extract.CategorySource.
func (s *SQLiteStore) Categories(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.db.SelectContext(ctx, &names,
		"SELECT name FROM categories ORDER BY sort_order, name")
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	return names, nil
}

// AddCategory appends a category to the end of the list. Names are unique
// regardless of case.
func (s *SQLiteStore) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("category name must not be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var taken int
	if err := tx.GetContext(ctx, &taken,
		"SELECT COUNT(*) FROM categories WHERE name = ?", name); err != nil {
		return fmt.Errorf("checking category %q: %w", name, err)
	}
	if taken > 0 {
		return fmt.Errorf("category %q: %w", name, ErrDuplicate)
	}

	var maxOrder int
	if err := tx.GetContext(ctx, &maxOrder,
		"SELECT COALESCE(MAX(sort_order), 0) FROM categories"); err != nil {
		return fmt.Errorf("getting max sort_order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO categories (id, name, sort_order, created_at) VALUES (?, ?, ?, ?)",
		uuid.New().String(), name, maxOrder+1, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating category %q: %w", name, err)
	}
	return tx.Commit()
}

// RemoveCategory deletes a category by name, ignoring case.
func (s *SQLiteStore) RemoveCategory(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM categories WHERE name = ?", strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("deleting category %q: %w", name, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	return nil
}
