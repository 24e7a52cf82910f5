package store

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// FilesystemStore keeps one file per key under a directory.
type FilesystemStore struct {
	dir string
}

var _ Store = (*FilesystemStore)(nil)

func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings dir: %w", err)
	}
	return &FilesystemStore{dir: dir}, nil
}

func (s *FilesystemStore) Get(k string) (string, bool, error) {
	content, err := os.ReadFile(s.keyToPath(k))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}

	return string(content), true, nil
}

func (s *FilesystemStore) Set(k, v string) error {
	return os.WriteFile(s.keyToPath(k), []byte(v), 0644)
}

func (s *FilesystemStore) Delete(k string) error {
	err := os.Remove(s.keyToPath(k))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FilesystemStore) keyToPath(k string) string {
	return filepath.Join(s.dir, url.PathEscape(k))
}
