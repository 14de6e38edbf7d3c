package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Mxlaser/projet-web/internal/apperror"
	"github.com/Mxlaser/projet-web/internal/model"
	"github.com/Mxlaser/projet-web/internal/repository"
	"github.com/Mxlaser/projet-web/internal/upload"
)

// ResourceInput is the normalized form of a create/update request. The
// handler layer parses the duck-typed wire payload (multipart or JSON)
// into this shape before it reaches the service.
//
// Pointer and nil-ness conventions:
//   - Title/Type: nil means "field absent" (update keeps the old value)
//   - Content: nil means absent or unparsable; create falls back to an
//     empty map, update falls back to a copy of the existing content
//   - Tags: nil means absent (update leaves associations untouched); a
//     non-nil empty slice means "clear all tags"
//   - CategoryID + CategoryProvided: absent field leaves the category
//     unchanged; provided-but-nil clears it
//   - File: a saved upload whose reference gets merged into content
//   - CreatedAt: optional creation-time override (calendar backdating);
//     the handler already discarded unparsable values
type ResourceInput struct {
	Title            *string
	Type             *string
	Content          model.Content
	Tags             []string
	CategoryID       *int64
	CategoryProvided bool
	File             *upload.SavedFile
	CreatedAt        *time.Time
}

// ResourceService owns the resource lifecycle: owner-scoped CRUD of
// note/link/file records, the content merge rules, and tag/category
// association.
type ResourceService struct {
	resources repository.ResourceRepository
	tags      repository.TagRepository
	logger    *slog.Logger
}

func NewResourceService(
	resources repository.ResourceRepository,
	tags repository.TagRepository,
	logger *slog.Logger,
) *ResourceService {
	return &ResourceService{
		resources: resources,
		tags:      tags,
		logger:    logger,
	}
}

// Create validates and stores a new resource owned by userID.
//
// The owner always comes from the authenticated caller; nothing in the
// input can set it. Type is stored trimmed and lowercased but otherwise
// free-form: "LINK" and "link" were both accepted historically, so no
// enum check. An uploaded file merges its URL and original name into the
// content, overwriting any same-named keys the caller sent.
func (s *ResourceService) Create(ctx context.Context, userID int64, in ResourceInput) (*model.Resource, error) {
	title, err := requireTitle(in.Title)
	if err != nil {
		return nil, err
	}
	typ, err := requireType(in.Type)
	if err != nil {
		return nil, err
	}

	content := in.Content
	if content == nil {
		content = model.Content{}
	}
	mergeFile(content, in.File)

	tags, err := s.resolveTags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	resource := &model.Resource{
		Title:      title,
		Type:       typ,
		Content:    content,
		UserID:     userID,
		CategoryID: in.CategoryID,
		Tags:       tags,
	}
	if in.CreatedAt != nil {
		resource.CreatedAt = *in.CreatedAt
	}

	if err := s.resources.CreateResource(ctx, resource); err != nil {
		s.logger.Error("failed to create resource",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	s.logger.Info("resource created",
		slog.Int64("id", resource.ID),
		slog.Int64("userID", userID),
		slog.String("type", resource.Type),
	)

	return resource, nil
}

// List returns the caller's resources, newest first, with tags and
// category expanded.
func (s *ResourceService) List(ctx context.Context, userID int64) ([]model.Resource, error) {
	resources, err := s.resources.ListResourcesByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list resources",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	return resources, nil
}

// GetByID returns one of the caller's resources. A resource that does not
// exist and a resource owned by someone else produce the same ErrNotFound.
func (s *ResourceService) GetByID(ctx context.Context, userID, id int64) (*model.Resource, error) {
	return s.resources.GetResourceByID(ctx, userID, id)
}

// Update applies a partial update to one of the caller's resources,
// following the merge policy:
//
//   - incoming content that is absent or unusable falls back to a copy of
//     the existing content, so an update that doesn't touch content never
//     erases it
//   - a new file overwrites the fileUrl/originalName keys
//   - with no new file, an existing file linkage is re-propagated into the
//     new content, surviving updates that replaced content wholesale
//   - tags provided (even empty) replace the whole association set; tags
//     absent leave it untouched
//   - category provided-but-nil clears, absent leaves unchanged
func (s *ResourceService) Update(ctx context.Context, userID, id int64, in ResourceInput) (*model.Resource, error) {
	resource, err := s.resources.GetResourceByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title, err := requireTitle(in.Title)
		if err != nil {
			return nil, err
		}
		resource.Title = title
	}
	if in.Type != nil {
		typ, err := requireType(in.Type)
		if err != nil {
			return nil, err
		}
		resource.Type = typ
	}

	existingContent := resource.Content
	content := in.Content
	if content == nil {
		content = existingContent.Clone()
	}

	if in.File != nil {
		mergeFile(content, in.File)
	} else {
		// Keep the file linkage alive across content rewrites.
		if v, ok := existingContent[model.ContentKeyFileURL]; ok {
			content[model.ContentKeyFileURL] = v
		}
		if v, ok := existingContent[model.ContentKeyOriginalName]; ok {
			content[model.ContentKeyOriginalName] = v
		}
	}
	resource.Content = content

	if in.Tags != nil {
		tags, err := s.resolveTags(ctx, in.Tags)
		if err != nil {
			return nil, err
		}
		resource.Tags = tags
	}

	if in.CategoryProvided {
		resource.CategoryID = in.CategoryID
	}

	if err := s.resources.UpdateResource(ctx, resource); err != nil {
		s.logger.Error("failed to update resource",
			slog.Int64("id", id),
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating resource: %w", err)
	}

	s.logger.Info("resource updated",
		slog.Int64("id", resource.ID),
		slog.Int64("userID", userID),
	)

	return resource, nil
}

// Delete removes one of the caller's resources. A non-owner's attempt is
// ErrNotFound, indistinguishable from a missing id.
func (s *ResourceService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.resources.DeleteResource(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("resource deleted",
		slog.Int64("id", id),
		slog.Int64("userID", userID),
	)
	return nil
}

// resolveTags turns tag names into tag rows, creating missing ones.
// Names are trimmed, empties dropped, and duplicates collapsed, so
// ["x","x","y"] associates exactly two tags. Resolution is idempotent and
// input order never changes the resulting set.
func (s *ResourceService) resolveTags(ctx context.Context, names []string) ([]model.Tag, error) {
	tags := []model.Tag{}
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := s.tags.FindOrCreateTag(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolving tag %q: %w", name, err)
		}
		tags = append(tags, *tag)
	}

	return tags, nil
}

// mergeFile records a saved upload in the content, overwriting any
// same-named keys already present.
func mergeFile(content model.Content, file *upload.SavedFile) {
	if file == nil {
		return
	}
	content[model.ContentKeyFileURL] = file.URL
	content[model.ContentKeyOriginalName] = file.OriginalName
}

func requireTitle(title *string) (string, error) {
	if title == nil || strings.TrimSpace(*title) == "" {
		return "", apperror.ValidationFailed("title", "title is required")
	}
	return strings.TrimSpace(*title), nil
}

// requireType trims and lowercases the resource type. Legacy clients sent
// uppercase variants ("LINK"); one stored casing keeps filtering sane
// without closing the set of types.
func requireType(typ *string) (string, error) {
	if typ == nil || strings.TrimSpace(*typ) == "" {
		return "", apperror.ValidationFailed("type", "type is required")
	}
	return strings.ToLower(strings.TrimSpace(*typ)), nil
}
