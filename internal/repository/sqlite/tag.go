package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Mxlaser/projet-web/internal/model"
	"github.com/Mxlaser/projet-web/internal/repository"
)

// compile-time check that *DB implements repository.TagRepository
var _ repository.TagRepository = (*DB)(nil)

// FindOrCreateTag resolves a tag name to its row, creating the row on
// first use. Tag names are globally unique, so two resources attaching the
// same name share one tag.
//
// Lookup-first keeps the common path to a single SELECT. The INSERT can
// still lose a race against a concurrent first use of the same name; the
// unique constraint catches that, and we re-read the winner's row.
func (db *DB) FindOrCreateTag(ctx context.Context, name string) (*model.Tag, error) {
	tag, err := db.getTagByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: looking up tag %q: %w", name, err)
	}

	res, err := db.conn.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			tag, err := db.getTagByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("sqlite: re-reading tag %q after insert race: %w", name, err)
			}
			return tag, nil
		}
		return nil, fmt.Errorf("sqlite: inserting tag %q: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading inserted tag id: %w", err)
	}

	return &model.Tag{ID: id, Name: name}, nil
}

func (db *DB) getTagByName(ctx context.Context, name string) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM tags WHERE name = ?`, name,
	).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
