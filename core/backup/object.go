package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"files-kraken/core/snapshot"
	"files-kraken/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ObjectStore keeps each backup as <Prefix>/<name>.json in a bucket.
type ObjectStore struct {
	Client storage.Client
	Bucket string
	Prefix string
	Logger *zap.Logger
}

// NewObjectStore returns a store over an existing bucket.
func NewObjectStore(client storage.Client, bucket, prefix string, logger *zap.Logger) *ObjectStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObjectStore{Client: client, Bucket: bucket, Prefix: strings.Trim(prefix, "/"), Logger: logger}
}

func (s *ObjectStore) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *ObjectStore) key(name string) string {
	return path.Join(s.Prefix, name+extension)
}

func (s *ObjectStore) listPrefix() string {
	if s.Prefix == "" {
		return ""
	}
	return s.Prefix + "/"
}

// Load implements Store.
func (s *ObjectStore) Load(ctx context.Context, name string) (snapshot.Node, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	key := s.key(name)
	log := s.logger().With(zap.String("bucket", s.Bucket), zap.String("key", key))

	obj, err := s.Client.GetObject(ctx, s.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return s.readFailure(log, key, err)
	}
	defer obj.Close()

	// minio reports a missing key on the first read, not on GetObject.
	data, err := io.ReadAll(obj)
	if err != nil {
		return s.readFailure(log, key, err)
	}
	node, err := snapshot.Decode(data)
	if err != nil {
		log.Warn("malformed backup, starting from an empty snapshot", zap.Error(err))
		return snapshot.Node{}, nil
	}
	return node, nil
}

func (s *ObjectStore) readFailure(log *zap.Logger, key string, err error) (snapshot.Node, error) {
	if storage.IsNotFound(err) {
		log.Warn("backup not found, starting from an empty snapshot")
		return snapshot.Node{}, nil
	}
	return nil, fmt.Errorf("failed to read backup %s/%s: %w", s.Bucket, key, err)
}

// Save implements Store.
func (s *ObjectStore) Save(ctx context.Context, name string, node snapshot.Node) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := snapshot.Encode(node)
	if err != nil {
		return fmt.Errorf("failed to encode backup %s: %w", name, err)
	}
	key := s.key(name)
	_, err = s.Client.PutObject(ctx, s.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload backup %s/%s: %w", s.Bucket, key, err)
	}
	return nil
}

// Remove implements Store.
func (s *ObjectStore) Remove(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	key := s.key(name)
	if err := s.Client.RemoveObject(ctx, s.Bucket, key, minio.RemoveObjectOptions{}); err != nil && !storage.IsNotFound(err) {
		return fmt.Errorf("failed to remove backup %s/%s: %w", s.Bucket, key, err)
	}
	return nil
}

// Names implements Store.
func (s *ObjectStore) Names(ctx context.Context) ([]string, error) {
	prefix := s.listPrefix()
	var names []string
	for obj := range s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list backups in %s: %w", s.Bucket, obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if strings.Contains(rel, "/") || !strings.HasSuffix(rel, extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(rel, extension))
	}
	sort.Strings(names)
	return names, nil
}
