package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFS implements Backend on the local filesystem. Key segments
// separated by ':' nest as directories on disk.
type LocalFS struct {
	basePath string
}

// NewLocalFS creates a new LocalFS backend
func NewLocalFS(basePath string) (*LocalFS, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: basePath}, nil
}

func (l *LocalFS) fullPath(key string) string {
	return filepath.Join(l.basePath, strings.ReplaceAll(key, ":", string(filepath.Separator)))
}

func (l *LocalFS) toKey(path string) string {
	rel, err := filepath.Rel(l.basePath, path)
	if err != nil {
		return path
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), ":")
}

func (l *LocalFS) Write(ctx context.Context, key string, data []byte) error {
	fullPath := l.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}
	return os.WriteFile(fullPath, data, 0644)
}

func (l *LocalFS) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.fullPath(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	searchPath := l.fullPath(prefix)

	err := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			keys = append(keys, l.toKey(path))
		}
		return nil
	})

	if os.IsNotExist(err) {
		return []string{}, nil
	}
	return keys, err
}

func (l *LocalFS) Delete(ctx context.Context, key string) error {
	err := os.Remove(l.fullPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (l *LocalFS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(l.fullPath(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
