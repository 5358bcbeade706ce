package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects as plain files under a root directory.
// Every path is confined to that root; traversal attempts fail with
// ErrInvalidPath.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at dir, creating it if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve uploads root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the absolute uploads root directory
func (s *LocalStore) Root() string {
	return s.root
}

// resolve maps a relative object path onto the filesystem, rejecting
// anything that would land outside the root
func (s *LocalStore) resolve(relPath string) (string, error) {
	cleaned := filepath.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")

	full := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if full != s.root && !strings.HasPrefix(full, s.root+string(os.PathSeparator)) {
		return "", ErrInvalidPath
	}

	return full, nil
}

// Save writes an object to disk
func (s *LocalStore) Save(ctx context.Context, relPath string, r io.Reader) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return f.Close()
}

// Open returns a reader over a stored file
func (s *LocalStore) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return f, nil
}

// Delete removes a single file
func (s *LocalStore) Delete(ctx context.Context, relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}

	return nil
}

// DeleteDir recursively removes a directory and everything in it
func (s *LocalStore) DeleteDir(ctx context.Context, relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if full == s.root {
		return ErrInvalidPath
	}

	return os.RemoveAll(full)
}

// RemoveDirIfEmpty removes a directory only when it holds no entries
func (s *LocalStore) RemoveDirIfEmpty(ctx context.Context, relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if full == s.root {
		return ErrInvalidPath
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(entries) > 0 {
		return nil
	}

	return os.Remove(full)
}

// List returns the relative paths of all files under a prefix
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	start, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}
