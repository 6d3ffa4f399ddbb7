package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemBackend stores objects as files below a base directory.
type FilesystemBackend struct {
	basePath string
}

func NewFilesystemBackend(basePath string) *FilesystemBackend {
	return &FilesystemBackend{basePath: basePath}
}

// buildPath rejects null bytes, absolute keys and traversal outside basePath.
func (f *FilesystemBackend) buildPath(key string) (string, error) {
	if strings.Contains(key, "\x00") {
		return "", fmt.Errorf("invalid key: null byte not allowed")
	}
	if filepath.IsAbs(key) || (len(key) >= 2 && key[1] == ':') {
		return "", fmt.Errorf("invalid key: absolute paths not allowed")
	}

	cleanKey := filepath.Clean(filepath.FromSlash(key))
	if cleanKey == ".." || strings.HasPrefix(cleanKey, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key: path traversal not allowed")
	}

	cleanBase := filepath.Clean(f.basePath)
	fullPath := filepath.Join(cleanBase, cleanKey)
	if fullPath != cleanBase && !strings.HasPrefix(fullPath, cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key: path escapes base directory")
	}
	return fullPath, nil
}

func (f *FilesystemBackend) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func (f *FilesystemBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return file, nil
}
