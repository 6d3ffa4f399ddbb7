package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	CompressionNone = ""
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// Extension returns the key suffix for a compression.
func Extension(compression string) string {
	switch compression {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// CompressedBackend compresses on Put and decompresses on Get.
type CompressedBackend struct {
	backend     Backend
	compression string
}

func NewCompressedBackend(backend Backend, compression string) (*CompressedBackend, error) {
	switch compression {
	case CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return nil, fmt.Errorf("%w: unsupported compression type: %s", ErrInvalidConfig, compression)
	}
	return &CompressedBackend{backend: backend, compression: compression}, nil
}

func (c *CompressedBackend) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if c.compression == CompressionNone {
		return c.backend.Put(ctx, key, r, size)
	}

	var buf bytes.Buffer
	var err error
	switch c.compression {
	case CompressionGzip:
		err = compressGzip(&buf, r)
	case CompressionZstd:
		err = compressZstd(&buf, r)
	}
	if err != nil {
		return fmt.Errorf("compressing %s: %w", key, err)
	}

	return c.backend.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
}

func (c *CompressedBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.compression == CompressionNone {
		return rc, nil
	}

	pr, pw := io.Pipe()
	go func() {
		var err error
		switch c.compression {
		case CompressionGzip:
			err = decompressGzip(pw, rc)
		case CompressionZstd:
			err = decompressZstd(pw, rc)
		}
		rc.Close()
		pw.CloseWithError(err)
	}()
	return pr, nil
}

func compressGzip(w io.Writer, r io.Reader) error {
	gw := gzip.NewWriter(w)
	if _, err := io.Copy(gw, r); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

func decompressGzip(w io.Writer, r io.Reader) error {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gr.Close()

	_, err = io.Copy(w, gr)
	return err
}

func compressZstd(w io.Writer, r io.Reader) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := io.Copy(zw, r); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func decompressZstd(w io.Writer, r io.Reader) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	_, err = io.Copy(w, zr)
	return err
}
