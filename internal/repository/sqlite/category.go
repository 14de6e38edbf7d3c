package sqlite

import (
	"context"
	"fmt"

	"github.com/Mxlaser/projet-web/internal/apperror"
	"github.com/Mxlaser/projet-web/internal/model"
	"github.com/Mxlaser/projet-web/internal/repository"
)

// compile-time check that *DB implements repository.CategoryRepository
var _ repository.CategoryRepository = (*DB)(nil)

// CreateCategory inserts a category. Names are globally unique and
// case-sensitive; a duplicate maps to ErrConflict.
func (db *DB) CreateCategory(ctx context.Context, category *model.Category) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?)`,
		category.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("category already exists")
		}
		return fmt.Errorf("sqlite: inserting category: %w", err)
	}

	category.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading inserted category id: %w", err)
	}

	return nil
}

// ListCategories returns every category ordered ascending by name.
// Categories are shared across all users, so there is no caller filter.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}

	return categories, nil
}
