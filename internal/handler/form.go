package handler

// Boundary normalizers. Clients submit resources either as JSON or as
// multipart form data, and the same logical field can arrive in several
// shapes: content as an object or a JSON-encoded string, tags as a native
// array, a JSON-encoded array, or a comma-separated string, categoryId as
// a number or a numeric string. Each normalizer folds those shapes into
// one internal value, recovering from bad input instead of failing the
// request wherever the contract says so.

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Mxlaser/projet-web/internal/model"
)

// parseContentString decodes a JSON-encoded content payload into a map.
// Anything that is not a JSON object (bad syntax, arrays, scalars) yields
// nil: a broken content field never fails the request.
func parseContentString(raw string) model.Content {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var content model.Content
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil
	}
	return content
}

// parseContentJSON handles the JSON-body variant, where content may be an
// object or a string holding encoded JSON (some clients double-encode it
// when reusing their multipart code path).
func parseContentJSON(raw json.RawMessage) model.Content {
	if len(raw) == 0 {
		return nil
	}
	var content model.Content
	if err := json.Unmarshal(raw, &content); err == nil {
		return content
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		return parseContentString(encoded)
	}
	return nil
}

// parseTagString accepts a JSON-encoded array or a comma-separated string
// and returns trimmed, non-empty names. The result is never nil: a tags
// field that was present, even empty, means "replace the association set".
func parseTagString(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var names []string
		if err := json.Unmarshal([]byte(trimmed), &names); err == nil {
			return cleanTagNames(names)
		}
		// Malformed JSON array, fall through to comma splitting.
	}
	return cleanTagNames(strings.Split(raw, ","))
}

// parseTagJSON handles the JSON-body variant: a native array, or a string
// in either of the multipart shapes. A tags field of any other JSON type
// is unusable and treated as absent (nil).
func parseTagJSON(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return cleanTagNames(names)
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		return parseTagString(encoded)
	}
	return nil
}

func cleanTagNames(names []string) []string {
	result := []string{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			result = append(result, name)
		}
	}
	return result
}

// parseCategoryIDString maps a form value to a category reference. Falsy
// values ("", "0", "null", "undefined") and unparsable input mean
// uncategorized, never an error.
func parseCategoryIDString(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "0", "null", "undefined", "false":
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// parseCategoryIDJSON handles the JSON-body variant: a number, a numeric
// string, or an explicit null. The second return reports whether the
// field was present at all, so updates can tell "clear" from "unchanged".
func parseCategoryIDJSON(raw json.RawMessage) (*int64, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		if id <= 0 {
			return nil, true
		}
		return &id, true
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		return parseCategoryIDString(encoded), true
	}
	// null, booleans, objects: present but falsy or unusable.
	return nil, true
}

// parseCreatedAt parses a caller-supplied creation timestamp, trying
// RFC 3339 first and a bare date second. Unparsable input returns nil so
// the server default applies; a bad override must never fail the request.
func parseCreatedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}
