package backup

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"files-kraken/core/snapshot"
	"files-kraken/core/storage"
	"files-kraken/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func memStore(t *testing.T) (*FileStore, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	return &FileStore{Fs: afero.NewMemMapFs(), Dir: "/var/kraken", Logger: zap.New(core)}, logs
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := memStore(t)

	tree := snapshot.Node{"/data": {"a.txt": nil, "sub": {"b.txt": nil}, "empty": {}}}
	require.NoError(t, s.Save(ctx, "main", tree))

	got, err := s.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, tree, got)

	tree["/data"]["c.txt"] = nil
	require.NoError(t, s.Save(ctx, "main", tree))
	got, err = s.Load(ctx, "main")
	require.NoError(t, err)
	assert.Contains(t, got["/data"], "c.txt")

	infos, err := afero.ReadDir(s.Fs, "/var/kraken")
	require.NoError(t, err)
	require.Len(t, infos, 1, "temp files are renamed away")
	assert.Equal(t, "main.json", infos[0].Name())
}

func TestFileStore_Recoverable(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		s, logs := memStore(t)
		got, err := s.Load(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, snapshot.Node{}, got)
		assert.Equal(t, 1, logs.FilterMessageSnippet("not found").Len())
	})

	t.Run("malformed", func(t *testing.T) {
		s, logs := memStore(t)
		require.NoError(t, afero.WriteFile(s.Fs, "/var/kraken/main.json", []byte(`{"a": 1}`), 0o644))
		got, err := s.Load(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, snapshot.Node{}, got)
		assert.Equal(t, 1, logs.FilterMessageSnippet("malformed").Len())
	})
}

func TestFileStore_NamesAndRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := memStore(t)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, n := range []string{"zeta", "alpha"} {
		require.NoError(t, s.Save(ctx, n, snapshot.Node{}))
	}
	require.NoError(t, afero.WriteFile(s.Fs, "/var/kraken/notes.txt", nil, 0o644))

	names, err = s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)

	require.NoError(t, s.Remove(ctx, "zeta"))
	require.NoError(t, s.Remove(ctx, "zeta"), "removing twice is fine")
	names, _ = s.Names(ctx)
	assert.Equal(t, []string{"alpha"}, names)

	assert.ErrorIs(t, s.Save(ctx, "../escape", snapshot.Node{}), ErrInvalidName)
	_, err = s.Load(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestFileStore_OsFs(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir(), nil)

	tree := snapshot.Node{"/data": {"a.txt": nil}}
	require.NoError(t, s.Save(ctx, "main", tree))
	got, err := s.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, tree, got)
}

func TestObjectStore(t *testing.T) {
	ctx := context.Background()

	t.Run("load", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("GetObject", ctx, "kraken", "backups/main.json", minio.GetObjectOptions{}).
			Return(io.NopCloser(strings.NewReader(`{"/data": {"a": null}}`)), nil)

		s := NewObjectStore(m, "kraken", "/backups/", nil)
		got, err := s.Load(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, snapshot.Node{"/data": {"a": nil}}, got)
		m.AssertExpectations(t)
	})

	t.Run("missing key", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("GetObject", ctx, "kraken", "main.json", minio.GetObjectOptions{}).
			Return(nil, minio.ErrorResponse{Code: "NoSuchKey"})

		got, err := NewObjectStore(m, "kraken", "", nil).Load(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, snapshot.Node{}, got)
	})

	t.Run("malformed", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("GetObject", ctx, "kraken", "main.json", minio.GetObjectOptions{}).
			Return(io.NopCloser(strings.NewReader(`[]`)), nil)

		got, err := NewObjectStore(m, "kraken", "", nil).Load(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, snapshot.Node{}, got)
	})

	t.Run("transport error", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("GetObject", ctx, "kraken", "main.json", minio.GetObjectOptions{}).
			Return(nil, errors.New("connection reset"))

		_, err := NewObjectStore(m, "kraken", "", nil).Load(ctx, "main")
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("save", func(t *testing.T) {
		m := new(mocks.Client)
		var uploaded string
		m.On("PutObject", ctx, "kraken", "backups/main.json", mock.Anything, mock.AnythingOfType("int64"),
			minio.PutObjectOptions{ContentType: "application/json"}).
			Run(func(args mock.Arguments) {
				data, _ := io.ReadAll(args.Get(3).(io.Reader))
				uploaded = string(data)
			}).
			Return(minio.UploadInfo{}, nil)

		s := NewObjectStore(m, "kraken", "backups", nil)
		require.NoError(t, s.Save(ctx, "main", snapshot.Node{"/data": {"a": nil}}))
		assert.JSONEq(t, `{"/data": {"a": null}}`, uploaded)
		m.AssertExpectations(t)
	})

	t.Run("names and remove", func(t *testing.T) {
		m := new(mocks.Client)
		ch := make(chan minio.ObjectInfo, 3)
		ch <- minio.ObjectInfo{Key: "backups/zeta.json"}
		ch <- minio.ObjectInfo{Key: "backups/alpha.json"}
		ch <- minio.ObjectInfo{Key: "backups/old/alpha.json"}
		close(ch)
		m.On("ListObjects", ctx, "kraken", minio.ListObjectsOptions{Prefix: "backups/"}).
			Return((<-chan minio.ObjectInfo)(ch))
		m.On("RemoveObject", ctx, "kraken", "backups/zeta.json", minio.RemoveObjectOptions{}).Return(nil)

		s := NewObjectStore(m, "kraken", "backups", nil)
		names, err := s.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "zeta"}, names)
		require.NoError(t, s.Remove(ctx, "zeta"))
		m.AssertExpectations(t)
	})
}

func TestFileStore_WithoutLogger(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := &FileStore{Fs: fs, Dir: "/backups"}

	node, err := s.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, snapshot.Node{}, node)

	require.NoError(t, afero.WriteFile(fs, "/backups/broken.json", []byte("[1,2]"), 0o644))
	node, err = s.Load(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, snapshot.Node{}, node)
}

func TestManager_Update(t *testing.T) {
	ctx := context.Background()
	s, _ := memStore(t)
	m := NewManager(s, nil)

	require.NoError(t, m.Save(ctx, "main", snapshot.Node{
		"/data/run_1": {"a.fastq": nil},
		"/data/run_2": {"b.fastq": nil},
	}))

	// a coworker reports the full content of one directory
	require.NoError(t, m.Update(ctx, "main", snapshot.Node{
		"/data/run_1": {"a.fastq": nil, "c.vcf": nil},
	}))

	got, err := m.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, snapshot.Node{
		"/data/run_1": {"a.fastq": nil, "c.vcf": nil},
		"/data/run_2": {"b.fastq": nil},
	}, got)

	t.Run("dropped files leave the backup", func(t *testing.T) {
		require.NoError(t, m.Update(ctx, "main", snapshot.Node{
			"/data/run_1": {"c.vcf": nil},
		}))
		got, err := m.Load(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, snapshot.Node{
			"/data/run_1": {"c.vcf": nil},
			"/data/run_2": {"b.fastq": nil},
		}, got)
	})

	require.NoError(t, m.Update(ctx, "fresh", snapshot.Node{"/x": {}}))
	got, _ = m.Load(ctx, "fresh")
	assert.Equal(t, snapshot.Node{"/x": {}}, got)

	names, err := m.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh", "main"}, names)
	require.NoError(t, m.Remove(ctx, "fresh"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: "file", Dir: t.TempDir()}, storage.Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Config{Backend: "none"}, storage.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Open(ctx, Config{Backend: "tape"}, storage.Config{}, nil)
	assert.Error(t, err)
}
