package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"ledger-sync/core/storage"
	"ledger-sync/feature/runner"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const runsPrefix = "runs/"

var _ runner.Archiver = (*Archiver)(nil)

// Archiver stores run reports as JSON objects under runs/<run_id>.json.
type Archiver struct {
	client storage.Client
	bucket string
	logger *zap.Logger

	mu      sync.Mutex
	ensured bool
}

// NewArchiver creates an archiver writing to bucket.
func NewArchiver(client storage.Client, bucket string, logger *zap.Logger) *Archiver {
	return &Archiver{client: client, bucket: bucket, logger: logger}
}

func objectName(runID string) string {
	return runsPrefix + runID + ".json"
}

// ensureBucket creates the bucket on first use.
func (a *Archiver) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ensured {
		return nil
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", a.bucket, err)
		}
		a.logger.Info("Created report bucket", zap.String("bucket", a.bucket))
	}
	a.ensured = true
	return nil
}

// Archive implements runner.Archiver.
func (a *Archiver) Archive(ctx context.Context, rep *runner.Report) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report %s: %w", rep.RunID, err)
	}
	name := objectName(rep.RunID)
	if _, err := a.client.PutObject(ctx, a.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("upload report %s: %w", name, err)
	}
	a.logger.Debug("Archived run report", zap.String("object", name))
	return nil
}

// List returns the archived run ids, oldest first.
func (a *Archiver) List(ctx context.Context) ([]string, error) {
	objects, err := a.objects(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(objects))
	for _, o := range objects {
		ids = append(ids, strings.TrimSuffix(path.Base(o.Key), ".json"))
	}
	return ids, nil
}

// Load reads one archived report.
func (a *Archiver) Load(ctx context.Context, runID string) (*runner.Report, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, objectName(runID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", runID, err)
	}
	defer obj.Close()

	var rep runner.Report
	if err := json.NewDecoder(obj).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", runID, err)
	}
	return &rep, nil
}

// Prune removes all but the newest keep reports and returns how many were removed.
func (a *Archiver) Prune(ctx context.Context, keep int) (int, error) {
	objects, err := a.objects(ctx)
	if err != nil {
		return 0, err
	}
	if len(objects) <= keep {
		return 0, nil
	}

	removed := 0
	for _, o := range objects[:len(objects)-keep] {
		if err := a.client.RemoveObject(ctx, a.bucket, o.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("remove %s: %w", o.Key, err)
		}
		removed++
	}
	a.logger.Info("Pruned run reports", zap.Int("removed", removed), zap.Int("kept", keep))
	return removed, nil
}

// objects lists the report objects sorted by modification time.
func (a *Archiver) objects(ctx context.Context) ([]minio.ObjectInfo, error) {
	var out []minio.ObjectInfo
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: runsPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list reports: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".json") {
			out = append(out, obj)
		}
	}
	slices.SortStableFunc(out, func(x, y minio.ObjectInfo) int {
		return x.LastModified.Compare(y.LastModified)
	})
	return out, nil
}
