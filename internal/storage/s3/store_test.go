package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/textfill/textfill/internal/config"
	"github.com/textfill/textfill/internal/storage"
)

func TestPutUsesPrefixAndNormalizedKey(t *testing.T) {
	fake := &fakeBackend{}
	store, err := newWithBackend("bucket-a", "textfill/prod", fake)
	if err != nil {
		t.Fatalf("newWithBackend() error = %v", err)
	}

	info, err := store.Put(context.Background(), "/samples/price/file.parquet", bytes.NewBufferString("abc"), 3, storage.PutOptions{ContentType: "application/vnd.apache.parquet"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastPutBucket != "bucket-a" {
		t.Fatalf("bucket = %q", fake.lastPutBucket)
	}
	if fake.lastPutKey != "textfill/prod/samples/price/file.parquet" {
		t.Fatalf("key = %q", fake.lastPutKey)
	}
	if fake.lastContentType != "application/vnd.apache.parquet" {
		t.Fatalf("content type = %q", fake.lastContentType)
	}
	if info.Key != "samples/price/file.parquet" {
		t.Fatalf("info.Key = %q, want key relative to prefix", info.Key)
	}
}

func TestPutRejectsPathTraversal(t *testing.T) {
	store, err := newWithBackend("bucket-a", "", &fakeBackend{})
	if err != nil {
		t.Fatalf("newWithBackend() error = %v", err)
	}
	for _, key := range []string{"../secrets.txt", "a/../../b", "  "} {
		if _, err := store.Put(context.Background(), key, bytes.NewBufferString("x"), 1, storage.PutOptions{}); err == nil {
			t.Fatalf("Put(%q) expected validation error", key)
		}
	}
}

func TestGetMapsNotFound(t *testing.T) {
	store, err := newWithBackend("bucket-a", "", &fakeBackend{getErr: storage.ErrObjectNotFound})
	if err != nil {
		t.Fatalf("newWithBackend() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "vocabulary/missing.yaml"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
}

func TestListStripsPrefixAndSorts(t *testing.T) {
	fake := &fakeBackend{listed: []storage.ObjectInfo{
		{Key: "root/samples/price/b.parquet", Size: 2},
		{Key: "root/samples/price/a.parquet", Size: 1},
	}}
	store, err := newWithBackend("bucket-a", "root", fake)
	if err != nil {
		t.Fatalf("newWithBackend() error = %v", err)
	}

	objects, err := store.List(context.Background(), "samples/price/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if fake.lastListPrefix != "root/samples/price/" {
		t.Fatalf("list prefix = %q", fake.lastListPrefix)
	}
	if len(objects) != 2 || objects[0].Key != "samples/price/a.parquet" || objects[1].Key != "samples/price/b.parquet" {
		t.Fatalf("objects = %+v", objects)
	}

	if _, err := store.List(context.Background(), ""); err != nil {
		t.Fatalf("List(\"\") error = %v", err)
	}
	if fake.lastListPrefix != "root/" {
		t.Fatalf("list prefix = %q, want root/", fake.lastListPrefix)
	}
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	fake := &fakeBackend{bucketExists: false}
	store, err := newWithBackend("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("newWithBackend() error = %v", err)
	}

	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if !fake.createBucketCalled {
		t.Fatal("expected MakeBucket to be called")
	}
}

func TestDeleteIgnoresMissingObject(t *testing.T) {
	store, err := newWithBackend("bucket-a", "", &fakeBackend{deleteErr: storage.ErrObjectNotFound})
	if err != nil {
		t.Fatalf("newWithBackend() error = %v", err)
	}
	if err := store.Delete(context.Background(), "missing/file.parquet"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestPutInfersContentTypeFromKey(t *testing.T) {
	fake := &fakeBackend{}
	store, err := newWithBackend("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("newWithBackend() error = %v", err)
	}
	for key, want := range map[string]string{
		"samples/product/a.parquet": "application/vnd.apache.parquet",
		"vocabulary/furniture.yml":  "application/yaml",
		"vocabulary/furniture.json": "application/json",
		"notes/readme":              "application/octet-stream",
	} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), 1, storage.PutOptions{}); err != nil {
			t.Fatalf("Put(%q) error = %v", key, err)
		}
		if fake.lastContentType != want {
			t.Fatalf("Put(%q) content type = %q, want %q", key, fake.lastContentType, want)
		}
	}
}

func TestConfigFromObjectStoreConfig(t *testing.T) {
	cfg := ConfigFrom(config.ObjectStoreConfig{
		Endpoint:         "localhost:9000",
		Bucket:           "textfill",
		Prefix:           "dev",
		UseSSL:           true,
		AutoCreateBucket: true,
	})
	if cfg.Endpoint != "localhost:9000" || cfg.Bucket != "textfill" || cfg.Prefix != "dev" || !cfg.UseSSL || !cfg.AutoCreateBucket {
		t.Fatalf("ConfigFrom() = %+v", cfg)
	}
}

func TestParseEndpoint(t *testing.T) {
	endpoint, secure, err := parseEndpoint("https://minio.example.com", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "minio.example.com" || !secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}
	endpoint, secure, err = parseEndpoint("localhost:9000", false)
	if err != nil || endpoint != "localhost:9000" || secure {
		t.Fatalf("parseEndpoint(plain) = %q/%v/%v", endpoint, secure, err)
	}
	for _, raw := range []string{"", "ftp://minio.local", "http://"} {
		if _, _, err := parseEndpoint(raw, false); err == nil {
			t.Fatalf("parseEndpoint(%q) expected error", raw)
		}
	}
}

type fakeBackend struct {
	lastPutBucket      string
	lastPutKey         string
	lastContentType    string
	lastListPrefix     string
	listed             []storage.ObjectInfo
	getErr             error
	bucketExists       bool
	createBucketCalled bool
	deleteErr          error
}

func (f *fakeBackend) PutObject(_ context.Context, bucket, key string, body io.Reader, size int64, contentType string) (storage.ObjectInfo, error) {
	f.lastPutBucket = bucket
	f.lastPutKey = key
	f.lastContentType = contentType
	_, _ = io.Copy(io.Discard, body)
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag-1", ContentType: contentType}, nil
}

func (f *fakeBackend) GetObject(_ context.Context, _, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return io.NopCloser(strings.NewReader(key)), nil
}

func (f *fakeBackend) StatObject(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{Key: key, Size: 10, LastModified: time.Now().UTC()}, nil
}

func (f *fakeBackend) ListObjects(_ context.Context, _, prefix string) ([]storage.ObjectInfo, error) {
	f.lastListPrefix = prefix
	return append([]storage.ObjectInfo(nil), f.listed...), nil
}

func (f *fakeBackend) RemoveObject(_ context.Context, _, _ string) error {
	return f.deleteErr
}

func (f *fakeBackend) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeBackend) MakeBucket(_ context.Context, _, _ string) error {
	f.createBucketCalled = true
	return nil
}
