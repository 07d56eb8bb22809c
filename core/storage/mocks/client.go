// Package mocks holds a testify mock of storage.Client.
package mocks

import (
	"context"
	"io"

	"ledger-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
)

var _ storage.Client = (*Client)(nil)

// Client records every call. ListObjects falls back to an empty listing when no
// channel was configured.
type Client struct {
	mock.Mock
}

// Listing returns a closed, pre-filled channel for ListObjects expectations.
func Listing(objs ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(objs))
	for _, o := range objs {
		ch <- o
	}
	close(ch)
	return ch
}

func (m *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *Client) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *Client) PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, name, r, size, opts)
	info, _ := args.Get(0).(minio.UploadInfo)
	return info, args.Error(1)
}

func (m *Client) GetObject(ctx context.Context, bucket, name string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, name, opts)
	body, _ := args.Get(0).(io.ReadCloser)
	return body, args.Error(1)
}

func (m *Client) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	if ch, ok := m.Called(ctx, bucket, opts).Get(0).(<-chan minio.ObjectInfo); ok {
		return ch
	}
	return Listing()
}

func (m *Client) RemoveObject(ctx context.Context, bucket, name string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucket, name, opts).Error(0)
}
