package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"

	"github.com/bcye/structured-wikivoyage-exports/internal/document"
)

// S3 is the subset of minio.Client used by ObjectStore. Defining our own
// narrow interface keeps tests independent of a real S3-compatible
// endpoint; FakeS3 in objectstore_test.go implements it. The PutObject
// signature must match *minio.Client's exactly (reader as io.Reader, not
// *bytes.Reader) for *minio.Client to satisfy this interface.
type S3 interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectStore uploads one JSON object per entry into a preconfigured
// bucket under key "<uid>.json". The bucket must already exist: startup
// fails rather than auto-creating it.
type ObjectStore struct {
	client      S3
	bucket      string
	failOnError bool
	gate        *gate
	counters    counters
	logger      *log.Logger
}

// NewObjectStore checks that bucket exists and returns a sink that
// uploads entries into it.
func NewObjectStore(ctx context.Context, client S3, bucket string, maxConcurrent int, failOnError bool, logger *log.Logger) (*ObjectStore, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s exists: %w", bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist (buckets are not auto-created)", bucket)
	}
	return &ObjectStore{
		client:      client,
		bucket:      bucket,
		failOnError: failOnError,
		gate:        newGate(maxConcurrent),
		logger:      logger,
	}, nil
}

func (o *ObjectStore) WriteEntry(ctx context.Context, root *document.Node, uid string) error {
	if err := o.gate.acquire(ctx); err != nil {
		return err
	}
	defer o.gate.release()

	err := o.upload(ctx, root, uid)
	if err != nil {
		o.counters.recordFailure()
		if o.failOnError {
			return err
		}
		return nil
	}
	o.counters.recordSuccess()
	return nil
}

func (o *ObjectStore) upload(ctx context.Context, root *document.Node, uid string) error {
	data, err := marshalEntry(root)
	if err != nil {
		return err
	}
	objectName := uid + ".json"
	_, err = o.client.PutObject(ctx, o.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", objectName, err)
	}
	return nil
}

func (o *ObjectStore) Close() error {
	logTotals(o.logger, "objectstore", &o.counters)
	return nil
}

// Snapshot returns the current success/failure totals.
func (o *ObjectStore) Snapshot() Counts { return o.counters.snapshot() }
