package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mxlaser/projet-web/internal/apperror"
	"github.com/Mxlaser/projet-web/internal/model"
	"github.com/Mxlaser/projet-web/internal/repository"
)

// compile-time check that *DB implements repository.ResourceRepository
var _ repository.ResourceRepository = (*DB)(nil)

// CreateResource inserts a resource and its tag associations in one
// transaction. The caller may have set CreatedAt (calendar backdating);
// a zero value means "now". Tags must already be resolved to rows with IDs.
func (db *DB) CreateResource(ctx context.Context, resource *model.Resource) error {
	now := time.Now()
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = now
	}
	resource.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO resources (title, type, content, user_id, category_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		resource.Title,
		resource.Type,
		marshalContent(resource.Content),
		resource.UserID,
		resource.CategoryID,
		resource.CreatedAt,
		resource.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting resource: %w", err)
	}

	resource.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading inserted resource id: %w", err)
	}

	if err := replaceTagLinks(ctx, tx, resource.ID, resource.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing resource insert: %w", err)
	}

	return db.expandCategory(ctx, resource)
}

// GetResourceByID retrieves one resource scoped to its owner. A missing id
// and another user's id are indistinguishable: both are ErrNotFound, so a
// caller can never probe for the existence of someone else's data.
func (db *DB) GetResourceByID(ctx context.Context, userID, id int64) (*model.Resource, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT r.id, r.title, r.type, r.content, r.user_id, r.category_id, c.name,
		        r.created_at, r.updated_at
		 FROM resources r
		 LEFT JOIN categories c ON c.id = r.category_id
		 WHERE r.id = ? AND r.user_id = ?`,
		id, userID,
	)

	resource, err := scanResource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("resource", id)
		}
		return nil, fmt.Errorf("sqlite: getting resource %d: %w", id, err)
	}

	if resource.Tags, err = db.tagsForResource(ctx, resource.ID); err != nil {
		return nil, err
	}

	return resource, nil
}

// ListResourcesByUser returns the caller's resources newest-first with
// tags and category expanded. No pagination.
func (db *DB) ListResourcesByUser(ctx context.Context, userID int64) ([]model.Resource, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT r.id, r.title, r.type, r.content, r.user_id, r.category_id, c.name,
		        r.created_at, r.updated_at
		 FROM resources r
		 LEFT JOIN categories c ON c.id = r.category_id
		 WHERE r.user_id = ?
		 ORDER BY r.created_at DESC, r.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing resources: %w", err)
	}
	defer rows.Close()

	resources := []model.Resource{}
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning resource row: %w", err)
		}
		resources = append(resources, *resource)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating resources: %w", err)
	}

	for i := range resources {
		if resources[i].Tags, err = db.tagsForResource(ctx, resources[i].ID); err != nil {
			return nil, err
		}
	}

	return resources, nil
}

// UpdateResource rewrites the row and replaces its tag associations with
// resource.Tags, scoped to the owner. Zero affected rows means the
// resource is missing or belongs to someone else; ErrNotFound either way.
func (db *DB) UpdateResource(ctx context.Context, resource *model.Resource) error {
	resource.UpdatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE resources
		 SET title = ?, type = ?, content = ?, category_id = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		resource.Title,
		resource.Type,
		marshalContent(resource.Content),
		resource.CategoryID,
		resource.UpdatedAt,
		resource.ID,
		resource.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating resource %d: %w", resource.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("resource", resource.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM resource_tags WHERE resource_id = ?`, resource.ID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing tag links for resource %d: %w", resource.ID, err)
	}
	if err := replaceTagLinks(ctx, tx, resource.ID, resource.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing resource update: %w", err)
	}

	return db.expandCategory(ctx, resource)
}

// DeleteResource is a conditional owner-scoped delete. A non-owner's
// attempt affects zero rows and is reported as ErrNotFound, never as a
// distinct authorization error. Tag link rows go away via ON DELETE CASCADE.
func (db *DB) DeleteResource(ctx context.Context, userID, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM resources WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting resource %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("resource", id)
	}

	return nil
}

// replaceTagLinks inserts the association rows for the given tags inside
// the caller's transaction.
func replaceTagLinks(ctx context.Context, tx *sql.Tx, resourceID int64, tags []model.Tag) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO resource_tags (resource_id, tag_id) VALUES (?, ?)`,
			resourceID, tag.ID,
		); err != nil {
			return fmt.Errorf("sqlite: linking tag %d to resource %d: %w", tag.ID, resourceID, err)
		}
	}
	return nil
}

// tagsForResource loads the expanded tag list, name-ordered for stable output.
func (db *DB) tagsForResource(ctx context.Context, resourceID int64) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.name
		 FROM tags t
		 JOIN resource_tags rt ON rt.tag_id = t.id
		 WHERE rt.resource_id = ?
		 ORDER BY t.name ASC`,
		resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading tags for resource %d: %w", resourceID, err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}

	return tags, nil
}

// expandCategory fills resource.Category after a write so responses carry
// the association, not just the id.
func (db *DB) expandCategory(ctx context.Context, resource *model.Resource) error {
	resource.Category = nil
	if resource.CategoryID == nil {
		return nil
	}

	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, *resource.CategoryID,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			// Dangling reference; leave the id, skip the expansion.
			return nil
		}
		return fmt.Errorf("sqlite: expanding category %d: %w", *resource.CategoryID, err)
	}

	resource.Category = &c
	return nil
}

// rowScanner lets scanResource work for both QueryRow and Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*model.Resource, error) {
	var (
		r            model.Resource
		rawContent   string
		categoryID   sql.NullInt64
		categoryName sql.NullString
	)

	if err := row.Scan(
		&r.ID, &r.Title, &r.Type, &rawContent, &r.UserID,
		&categoryID, &categoryName, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.Content = unmarshalContent(rawContent)
	if categoryID.Valid {
		id := categoryID.Int64
		r.CategoryID = &id
		if categoryName.Valid {
			r.Category = &model.Category{ID: id, Name: categoryName.String}
		}
	}

	return &r, nil
}

// marshalContent serializes the content map for the TEXT column. The map
// came either from a decoded JSON document or from our own merge code, so
// marshalling cannot realistically fail; an empty object is the fallback.
func marshalContent(c model.Content) string {
	if c == nil {
		return "{}"
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func unmarshalContent(raw string) model.Content {
	c := model.Content{}
	if raw == "" {
		return c
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return model.Content{}
	}
	return c
}
