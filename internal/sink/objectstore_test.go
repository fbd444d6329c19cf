package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
)

// FakeS3 is an in-memory stand-in for S3, following the teacher's own
// FakeS3 pattern (s3_test.go): fake just the narrow interface a
// component actually uses.
type FakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

func NewFakeS3(buckets ...string) *FakeS3 {
	f := &FakeS3{
		buckets: make(map[string]bool),
		objects: make(map[string][]byte),
	}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	return f
}

func (f *FakeS3) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[bucketName], nil
}

func (f *FakeS3) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if !f.buckets[bucketName] {
		return minio.UploadInfo{}, fmt.Errorf("bucket %s does not exist", bucketName)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	f.objects[bucketName+"/"+objectName] = data
	f.mu.Unlock()
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}

func TestObjectStoreRequiresExistingBucket(t *testing.T) {
	client := NewFakeS3() // no buckets
	if _, err := NewObjectStore(context.Background(), client, "wikivoyage", 0, true, nil); err == nil {
		t.Fatal("expected error when bucket does not exist")
	}
}

func TestObjectStoreUploadsUnderEntryKey(t *testing.T) {
	client := NewFakeS3("wikivoyage")
	s, err := NewObjectStore(context.Background(), client, "wikivoyage", 0, true, nil)
	if err != nil {
		t.Fatal(err)
	}

	entry := newTestEntry("Q42", "Forty Two")
	if err := s.WriteEntry(context.Background(), entry, "Q42"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	data, ok := client.objects["wikivoyage/Q42.json"]
	if !ok {
		t.Fatal("expected object wikivoyage/Q42.json to be uploaded")
	}
	if !bytes.Contains(data, []byte("Forty Two")) {
		t.Errorf("got %s", data)
	}
}
