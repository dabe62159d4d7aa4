package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/textfill/textfill/internal/export"
	"github.com/textfill/textfill/internal/storage"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = opts.ContentType
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ETag: "etag-1", ContentType: opts.ContentType}, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: m.types[key]}, nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func TestDownloadSamplesParquet(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(t, http.MethodGet, "/v1/samples.parquet?category=option&count=12", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != export.ContentType {
		t.Fatalf("content type = %q", got)
	}
	if got := rr.Header().Get("X-Row-Count"); got != "12" {
		t.Fatalf("row count header = %q", got)
	}
	samples, err := export.DecodeSamples(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("DecodeSamples() error = %v", err)
	}
	if len(samples) != 12 {
		t.Fatalf("len(samples) = %d", len(samples))
	}
	for i, sample := range samples {
		if sample.Index != int64(i) || sample.Category != "option" || strings.Count(sample.Text, ": ") < 2 {
			t.Fatalf("sample[%d] = %+v", i, sample)
		}
	}
}

func TestDownloadSamplesRejectsCountAboveMaxRows(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(t, http.MethodGet, "/v1/samples.parquet?count=501", nil, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "INVALID_COUNT" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestExportSamplesUploadsToObjectStore(t *testing.T) {
	store := newMemoryStore()
	env := newTestEnv(t, nil, store)

	rr := env.do(t, http.MethodPost, "/v1/samples/export", map[string]any{"category": "product", "count": 5, "key": "fixtures/products.parquet"}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var result export.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Key != "fixtures/products.parquet" || result.Rows != 5 || result.ETag != "etag-1" {
		t.Fatalf("result = %+v", result)
	}
	info, err := store.Stat(context.Background(), result.Key)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != result.Size || info.ContentType != export.ContentType {
		t.Fatalf("stored object = %+v", info)
	}
}

func TestExportSamplesDefaultsKey(t *testing.T) {
	store := newMemoryStore()
	env := newTestEnv(t, nil, store)

	rr := env.do(t, http.MethodPost, "/v1/samples/export", map[string]any{"category": "price", "count": 3}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	objects, err := store.List(context.Background(), "samples/price/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 1 || !strings.HasSuffix(objects[0].Key, "-00003.parquet") {
		t.Fatalf("objects = %+v", objects)
	}
}

func TestExportSamplesErrors(t *testing.T) {
	withoutStore := newTestEnv(t, nil, nil)
	rr := withoutStore.do(t, http.MethodPost, "/v1/samples/export", map[string]any{"category": "product", "count": 1}, nil)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("no store status = %d", rr.Code)
	}

	env := newTestEnv(t, nil, newMemoryStore())
	cases := []struct {
		body any
		code string
	}{
		{body: `{"category":"product","count":0}`, code: "INVALID_COUNT"},
		{body: `{"category":"limerick","count":1}`, code: "INVALID_CATEGORY"},
		{body: `{"category":"product","count":1,"key":"../escape.parquet"}`, code: "INVALID_KEY"},
		{body: `{"category":"product","count":1,"bucket":"other"}`, code: "INVALID_REQUEST"},
	}
	for _, tc := range cases {
		rr := env.do(t, http.MethodPost, "/v1/samples/export", tc.body, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%v: status = %d", tc.body, rr.Code)
		}
		if code := decodeErrorCode(t, rr); code != tc.code {
			t.Fatalf("%v: error_code = %q, want %q", tc.body, code, tc.code)
		}
	}
}
