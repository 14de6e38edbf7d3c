// Package repository defines the persistence interfaces consumed by the
// service layer. Services depend on these interfaces, never on a concrete
// store, so tests can swap in in-memory mocks.
package repository

import (
	"context"

	"github.com/Mxlaser/projet-web/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	// ListCategories returns all categories ordered ascending by name.
	ListCategories(ctx context.Context) ([]model.Category, error)
}

type TagRepository interface {
	// FindOrCreateTag returns the tag with the given exact name, creating
	// it if it does not exist. Calling it twice with the same name must
	// yield the same row.
	FindOrCreateTag(ctx context.Context, name string) (*model.Tag, error)
}

// ResourceRepository persists resources together with their tag
// associations. Every read and write is scoped to the owning user: a
// lookup or delete for another user's resource behaves exactly like one
// for a resource that does not exist.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource *model.Resource) error
	GetResourceByID(ctx context.Context, userID, id int64) (*model.Resource, error)
	// ListResourcesByUser returns the user's resources newest-first, with
	// tags and category expanded.
	ListResourcesByUser(ctx context.Context, userID int64) ([]model.Resource, error)
	// UpdateResource rewrites the resource row and replaces its tag
	// associations with resource.Tags. Scoped to resource.UserID.
	UpdateResource(ctx context.Context, resource *model.Resource) error
	DeleteResource(ctx context.Context, userID, id int64) error
}
