package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Mxlaser/projet-web/internal/apperror"
	"github.com/Mxlaser/projet-web/internal/model"
	"github.com/Mxlaser/projet-web/internal/repository"
)

// CategoryService manages the flat, globally shared category directory.
// Categories are create/list only: never updated or deleted here.
type CategoryService struct {
	categories repository.CategoryRepository
	logger     *slog.Logger
}

func NewCategoryService(categories repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{categories: categories, logger: logger}
}

// List returns every category, ascending by name, for every caller;
// categories are shared, not per-user.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// Create adds a category. Empty name is a validation error; a duplicate
// name surfaces as a conflict (the repository maps the unique violation),
// not as a generic failure.
func (s *CategoryService) Create(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "category name is required")
	}

	category := &model.Category{Name: name}
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("category created",
		slog.Int64("id", category.ID),
		slog.String("name", category.Name),
	)

	return category, nil
}
