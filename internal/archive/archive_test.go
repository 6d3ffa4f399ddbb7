package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func readAll(t *testing.T, b Backend, key string) string {
	t.Helper()
	rc, err := b.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestArchive(t *testing.T) {
	for _, compression := range []string{CompressionNone, CompressionGzip, CompressionZstd} {
		t.Run("compression="+compression, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, map[string]string{
				"_healthcheck/index.js":     "exports.healthCheck = async () => {};\n",
				"_healthcheck/index.js.map": "{}",
				"src/create.js":             "module.exports = {};\n",
			})

			store := NewFilesystemBackend(t.TempDir())
			a, err := New(store, Options{Prefix: "artifacts", Compression: compression})
			require.NoError(t, err)
			a.now = func() time.Time { return time.Unix(1767225600, 0) }

			res, err := a.Archive(context.Background(), Request{
				Root:    root,
				Folder:  "_healthcheck",
				Service: "orders",
				Stage:   "prod",
				Include: func(p string) bool { return !strings.HasSuffix(p, ".map") },
			})
			require.NoError(t, err)

			require.Equal(t, "artifacts/orders/prod/1767225600", res.Base)
			require.Len(t, res.Objects, 1)

			obj := res.Objects[0]
			require.Equal(t, "_healthcheck/index.js", obj.Path)
			require.Equal(t, "artifacts/orders/prod/1767225600/_healthcheck/index.js"+Extension(compression), obj.Key)
			require.Len(t, obj.SHA256, 64)

			compressed, err := NewCompressedBackend(store, compression)
			require.NoError(t, err)
			require.Equal(t, "exports.healthCheck = async () => {};\n", readAll(t, compressed, obj.Key))

			if compression != CompressionNone {
				raw := readAll(t, store, obj.Key)
				require.NotEqual(t, "exports.healthCheck = async () => {};\n", raw)
			}
		})
	}
}

func TestArchive_MissingFolder(t *testing.T) {
	a, err := New(NewFilesystemBackend(t.TempDir()), Options{})
	require.NoError(t, err)

	_, err = a.Archive(context.Background(), Request{Root: t.TempDir(), Folder: "_healthcheck"})
	require.Error(t, err)
}

func TestNew_InvalidCompression(t *testing.T) {
	_, err := New(NewFilesystemBackend(t.TempDir()), Options{Compression: "lz4"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFilesystemBackend_RejectsUnsafeKeys(t *testing.T) {
	fsb := NewFilesystemBackend(t.TempDir())
	for _, key := range []string{"../escape", "a/../../escape", "/abs/path", "nul\x00byte"} {
		err := fsb.Put(context.Background(), key, strings.NewReader("x"), 1)
		require.Error(t, err, key)
	}

	_, err := fsb.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

type fakeS3 struct {
	objects map[string][]byte
	input   *s3.PutObjectInput
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.input = in
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Backend(t *testing.T) {
	_, err := NewS3Backend(&fakeS3{}, "")
	require.ErrorIs(t, err, ErrInvalidConfig)

	api := &fakeS3{objects: map[string][]byte{}}
	b, err := NewS3Backend(api, "artifacts")
	require.NoError(t, err)

	require.NoError(t, b.Put(context.Background(), "a/b.js", strings.NewReader("hello"), 5))
	require.Equal(t, int64(5), aws.ToInt64(api.input.ContentLength))
	require.Equal(t, "hello", readAll(t, b, "a/b.js"))

	_, err = b.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	api.putErr = errors.New("access denied")
	err = b.Put(context.Background(), "a/c.js", strings.NewReader("x"), 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")
}

func TestArchive_UploadFailure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"_healthcheck/index.js": "x"})

	b, err := NewS3Backend(&fakeS3{putErr: errors.New("throttled")}, "artifacts")
	require.NoError(t, err)
	a, err := New(b, Options{Compression: CompressionZstd})
	require.NoError(t, err)

	_, err = a.Archive(context.Background(), Request{Root: root, Folder: "_healthcheck", Service: "orders", Stage: "dev"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "throttled")
}
