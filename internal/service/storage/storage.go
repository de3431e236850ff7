package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"skyvision/internal/config"
)

// Store owns the uploads and results directories under the static root.
type Store struct {
	staticDir string
	uploadDir string
	resultDir string
}

// NewStore creates a Store for the configured directories.
func NewStore(config *config.Config) *Store {
	return &Store{
		staticDir: config.StaticDirectory,
		uploadDir: config.UploadDirectory,
		resultDir: config.ResultDirectory,
	}
}

// EnsureDirs creates the uploads and results directories if absent.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.uploadDir, s.resultDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// UploadPath is the on-disk location of an upload.
func (s *Store) UploadPath(name string) string {
	return filepath.Join(s.uploadDir, filepath.Base(name))
}

// ResultPath is the on-disk location of a result image.
func (s *Store) ResultPath(name string) string {
	return filepath.Join(s.resultDir, filepath.Base(name))
}

// UploadURL is the public URL of an upload.
func (s *Store) UploadURL(name string) string {
	return s.publicURL(s.uploadDir, name)
}

// ResultURL is the public URL of a result image.
func (s *Store) ResultURL(name string) string {
	return s.publicURL(s.resultDir, name)
}

// publicURL maps a file below the static root to its /static/ URL.
func (s *Store) publicURL(dir, name string) string {
	rel, err := filepath.Rel(s.staticDir, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(dir)
	}
	return "/static/" + filepath.ToSlash(filepath.Join(rel, filepath.Base(name)))
}

// SaveUpload writes r to the uploads directory and returns the path and size.
// A partially written file is removed on error.
func (s *Store) SaveUpload(r io.Reader, name string) (string, int64, error) {
	path := s.UploadPath(name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload %s: %w", name, err)
	}

	size, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to save upload %s: %w", name, err)
	}

	return path, size, nil
}

// FileSize returns the size on disk of path.
func (s *Store) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes path. Missing files are not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Size returns the total bytes held in the uploads and results directories.
func (s *Store) Size() (int64, error) {
	var total int64
	for _, dir := range []string{s.uploadDir, s.resultDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			total += info.Size()
		}
	}
	return total, nil
}

// UploadNames lists the stored upload filenames.
func (s *Store) UploadNames() ([]string, error) {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
