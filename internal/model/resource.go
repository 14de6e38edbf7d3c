package model

import "time"

// Content keys that the resource store itself touches. Everything else in
// a Content map passes through the store untouched.
const (
	ContentKeyFileURL      = "fileUrl"
	ContentKeyOriginalName = "originalName"
)

// Content is the flexible payload of a resource: an open string-keyed map
// of JSON-compatible values. Conventionally it holds "description" and,
// depending on the resource type, "url" or "fileUrl"+"originalName", plus
// client-only flags like "favorite" and "completed". The store treats it
// as opaque apart from the two file keys above.
type Content map[string]any

// Clone returns a shallow copy. Used when an update must start from the
// existing content instead of an incoming payload.
func (c Content) Clone() Content {
	if c == nil {
		return Content{}
	}
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Category is a globally shared, uniquely named grouping for resources.
// Categories are not owned by a user.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag is a free-text label, globally unique by name, many-to-many with
// resources. Tags are created on first use and never explicitly deleted.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Resource is a user-owned note, link, or file record.
//
// UserID is immutable and always comes from the authenticated caller,
// never from request input. Type is a free-form short string (stored
// lowercased); it is not validated against a closed enum. CategoryID is
// nil when the resource is uncategorized; Category and Tags are the
// expanded associations returned by every read.
type Resource struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Type       string    `json:"type"`
	Content    Content   `json:"content"`
	UserID     int64     `json:"userId"`
	CategoryID *int64    `json:"categoryId"`
	Category   *Category `json:"category,omitempty"`
	Tags       []Tag     `json:"tags"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
