// Package file stores each document as a JSON file under a root directory.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const DefaultDir = "data"

type Store struct {
	root string
}

func Open(root string) (*Store, error) {
	if root == "" {
		root = DefaultDir
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) filename(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" || strings.Contains(path, "..") {
		return "", fmt.Errorf("invalid document path %q", path)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)+".json"), nil
}

func (s *Store) Get(_ context.Context, path string) ([]byte, bool, error) {
	name, err := s.filename(path)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read document: %w", err)
	}
	return data, true, nil
}

// Put writes to a temp file and renames it over the target.
func (s *Store) Put(_ context.Context, path string, doc []byte) error {
	name, err := s.filename(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o644); err != nil {
		return fmt.Errorf("write document tmp: %w", err)
	}
	if err := os.Rename(tmp, name); err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
