// Package archive keeps copies of generated artifacts in object storage.
package archive

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound      = errors.New("object not found")
	ErrInvalidConfig = errors.New("invalid archive configuration")
)

// Backend stores objects under slash-separated keys.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
