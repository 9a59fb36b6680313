// Package filestore provides local disk storage for uploaded cover images.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates there is no file at the given path.
	ErrNotFound = errors.New("file not found")
	// ErrPathOutsideStore indicates the path escapes the store directory.
	ErrPathOutsideStore = errors.New("path outside store directory")
)

// Store writes and deletes files under a single root directory.
// Stored paths are relative to the process working directory
// (e.g. "uploads/5f3d...e1b.png") and are what gets persisted on the
// book record as its image reference.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	cleaned := filepath.Clean(dir)
	if err := os.MkdirAll(cleaned, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: cleaned}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes content to a new file and returns its stored path.
// The original filename contributes only its extension; the name itself
// is a generated UUID so concurrent uploads never collide. The write goes
// through a temp file and rename so readers never observe partial content.
func (s *Store) Save(originalName string, content io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		tmp.Close()
		if !success {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, content); err != nil {
		return "", fmt.Errorf("write file contents: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}

	name := uuid.New().String() + sanitizeExt(originalName)
	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename file: %w", err)
	}

	success = true
	return path, nil
}

// Delete removes the file at path. Returns ErrNotFound if it does not
// exist and ErrPathOutsideStore if the path escapes the store root.
//
// Image cleanup is best-effort by contract: callers on the book
// mutation paths log the returned error and continue instead of failing
// the enclosing request.
func (s *Store) Delete(path string) error {
	if !s.contains(path) {
		return ErrPathOutsideStore
	}

	if err := os.Remove(filepath.Clean(path)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// contains reports whether path stays inside the store directory after
// cleaning, guarding against traversal via stored values.
func (s *Store) contains(path string) bool {
	cleaned := filepath.Clean(path)
	return cleaned != s.dir && strings.HasPrefix(cleaned, s.dir+string(filepath.Separator))
}

// sanitizeExt extracts a safe file extension from an uploaded filename.
func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
