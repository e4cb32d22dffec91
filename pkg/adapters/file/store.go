package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/zpt/pkg/domain"
)

// DefaultExtensions are the template file extensions listed when none are configured.
var DefaultExtensions = []string{".pt", ".html", ".xml"}

// ErrInvalidName is returned for names that are empty or escape the base directory.
var ErrInvalidName = errors.New("invalid template name")

// Store implements ports.WritableSourceStore on a directory tree.
// Template names are slash-separated paths relative to BasePath.
type Store struct {
	BasePath   string
	Extensions []string
}

// New creates a Store rooted at basePath. With no extensions, DefaultExtensions apply.
// If basePath is empty, it defaults to "templates".
func New(basePath string, extensions ...string) *Store {
	if basePath == "" {
		basePath = "templates"
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return &Store{BasePath: basePath, Extensions: extensions}
}

func (s *Store) path(name string) (string, error) {
	clean := path.Clean("/" + name)
	if name == "" || clean == "/" || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if path.Clean(name) != strings.TrimPrefix(clean, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.BasePath, filepath.FromSlash(clean[1:])), nil
}

// Get reads the template file for name.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return data, nil
}

// Put writes source atomically: it writes a temporary file in the target
// directory, syncs it, and renames it over the destination.
func (s *Store) Put(ctx context.Context, name string, source []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	destPath, err := s.path(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure template directory: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(source); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Delete removes the template file.
func (s *Store) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete template file: %w", err)
	}
	return nil
}

// List walks BasePath and returns every file with a template extension.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.BasePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != s.BasePath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !slices.Contains(s.Extensions, strings.ToLower(filepath.Ext(p))) {
			return nil
		}
		rel, err := filepath.Rel(s.BasePath, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	slices.Sort(names)
	return names, nil
}
