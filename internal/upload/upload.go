// Package upload persists multipart file uploads to a flat server-local
// directory and hands back the reference the resource store records.
//
// The store only writes files; it never deletes them. Deleting a resource
// leaves its upload behind; file lifecycle is out of scope.
package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/xid"
)

// URLPrefix is the root-relative path uploads are served under. The client
// resolves it against its configured API base URL.
const URLPrefix = "/uploads/"

// SavedFile describes a persisted upload: the server-relative URL that goes
// into the resource content, and the name the user originally gave the file.
type SavedFile struct {
	URL          string
	OriginalName string
}

// Store writes uploads into a single flat directory.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed and returns a Store for it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("upload: creating directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory files are written to, for static serving.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the file under a generated name (xid keeps names unique and
// URL-safe) with the original extension preserved, and returns the
// resulting reference. The original name is never used as the stored name:
// it is attacker-controlled and could collide or escape the directory.
func (s *Store) Save(src io.Reader, originalName string) (*SavedFile, error) {
	name := xid.New().String() + filepath.Ext(originalName)

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("upload: creating file %s: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("upload: writing file %s: %w", name, err)
	}

	return &SavedFile{
		URL:          URLPrefix + name,
		OriginalName: originalName,
	}, nil
}
