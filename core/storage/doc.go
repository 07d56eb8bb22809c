// Package storage provides an abstraction layer over S3 compatible object storage.
//
// It wraps the MinIO Go client behind the Client interface so the run report archive can be
// tested against core/storage/mocks. It supports both AWS S3 and self-hosted MinIO.
//
// # Operations
//
//   - BucketExists / MakeBucket: ensure the report bucket exists.
//   - PutObject / GetObject: store and read one report.
//   - ListObjects / RemoveObject: list archived reports and prune old ones.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
package storage
