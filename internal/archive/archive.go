package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/metrics"
)

// Options configures an Archiver.
type Options struct {
	Prefix      string
	Compression string
}

// Archiver copies a generated folder into a backend.
type Archiver struct {
	backend     Backend
	prefix      string
	compression string
	now         func() time.Time
}

// New wraps backend with the configured compression.
func New(backend Backend, opts Options) (*Archiver, error) {
	compressed, err := NewCompressedBackend(backend, opts.Compression)
	if err != nil {
		return nil, err
	}
	return &Archiver{
		backend:     compressed,
		prefix:      opts.Prefix,
		compression: opts.Compression,
		now:         time.Now,
	}, nil
}

// Request names what to archive.
type Request struct {
	// Root is the service directory; keys use paths relative to it.
	Root    string
	Folder  string
	Service string
	Stage   string
	// Include filters relative slash paths; nil includes everything.
	Include func(path string) bool
}

// Object is one archived file.
type Object struct {
	Key    string `json:"key"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Result lists the archived objects.
type Result struct {
	Base    string   `json:"base"`
	Objects []Object `json:"objects"`
}

// Archive uploads every included file below Root/Folder to
// <prefix>/<service>/<stage>/<unix-ts>/<path>[.zst|.gz].
func (a *Archiver) Archive(ctx context.Context, req Request) (*Result, error) {
	base := path.Join(a.prefix, req.Service, req.Stage, strconv.FormatInt(a.now().Unix(), 10))
	result := &Result{Base: base}

	dir := filepath.Join(req.Root, filepath.FromSlash(req.Folder))
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(req.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if req.Include != nil && !req.Include(rel) {
			log.Debug().Str("path", rel).Msg("Skipping file excluded from package")
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}

		key := path.Join(base, rel) + Extension(a.compression)
		if err := a.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
			metrics.RecordArchiveUpload(false)
			return err
		}
		metrics.RecordArchiveUpload(true)

		result.Objects = append(result.Objects, Object{
			Key:    key,
			Path:   rel,
			Size:   int64(len(data)),
			SHA256: hashBytes(data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("archiving %s: %w", req.Folder, err)
	}

	log.Info().
		Str("base", base).
		Int("objects", len(result.Objects)).
		Str("compression", a.compression).
		Msg("Archived health check artifact")
	return result, nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
