package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Mxlaser/projet-web/internal/model"
)

// newTestDB gives each test its own throwaway database file. A file (not
// ":memory:") because database/sql may open more than one pooled
// connection, and each in-memory connection would see a different database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser registers a user row and returns it.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "$2a$04$fakefakefakefakefakefake"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestResource creates a minimal resource owned by userID.
func createTestResource(t *testing.T, db *DB, userID int64, title string) *model.Resource {
	t.Helper()
	resource := &model.Resource{
		Title:   title,
		Type:    "note",
		Content: model.Content{"description": "test"},
		UserID:  userID,
	}
	if err := db.CreateResource(context.Background(), resource); err != nil {
		t.Fatalf("failed to create test resource: %v", err)
	}
	return resource
}
