// Package storage wraps the MinIO client for S3-compatible object storage.
//
// It is used to keep watcher snapshot backups off the monitored host. The Client
// interface covers only the calls the backup store makes, so tests can swap in
// the testify mock from core/storage/mocks.
//
// # Usage
//
//	client, err := storage.NewClient(cfg)
//	err = storage.EnsureBucket(ctx, client, cfg.Bucket, cfg.Region)
package storage
