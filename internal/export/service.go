package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/textfill/textfill/internal/generator"
	"github.com/textfill/textfill/internal/observability"
	"github.com/textfill/textfill/internal/storage"
)

const ContentType = "application/vnd.apache.parquet"

var (
	ErrInvalidCount  = errors.New("invalid sample count")
	ErrNoObjectStore = errors.New("object store is not configured")
)

type Result struct {
	Key  string `json:"key"`
	Rows int64  `json:"rows"`
	Size int64  `json:"size"`
	ETag string `json:"etag,omitempty"`
}

// Service draws batches from the generator and writes them as Parquet.
type Service struct {
	gen     *generator.Generator
	store   storage.ObjectStore
	maxRows int
	now     func() time.Time
}

// NewService returns an export service. store may be nil, in which case only
// in-memory encoding is available.
func NewService(gen *generator.Generator, store storage.ObjectStore, maxRows int) (*Service, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if maxRows <= 0 {
		return nil, fmt.Errorf("max rows must be > 0")
	}
	return &Service{gen: gen, store: store, maxRows: maxRows, now: time.Now}, nil
}

func (s *Service) MaxRows() int {
	return s.maxRows
}

func (s *Service) Samples(category generator.Category, count int) ([]Sample, error) {
	if count <= 0 || count > s.maxRows {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCount, count, s.maxRows)
	}
	generatedAt := s.now().UTC().UnixMilli()
	texts := s.gen.GenerateN(category, count)
	observability.ObserveGenerated(string(category), len(texts))

	out := make([]Sample, 0, len(texts))
	for i, text := range texts {
		out = append(out, Sample{
			Index:             int64(i),
			Category:          string(category),
			Text:              text,
			GeneratedAtUnixMs: generatedAt,
		})
	}
	return out, nil
}

// Build generates count samples and encodes them.
func (s *Service) Build(category generator.Category, count int) (EncodeResult, error) {
	start := time.Now()
	samples, err := s.Samples(category, count)
	if err != nil {
		return EncodeResult{}, err
	}
	result, err := EncodeSamples(samples)
	if err != nil {
		return EncodeResult{}, err
	}
	observability.ObserveSampleExport(len(samples), time.Since(start))
	return result, nil
}

// Export builds a sample file and uploads it. An empty key is replaced by a
// dated key under samples/<category>/.
func (s *Service) Export(ctx context.Context, category generator.Category, count int, key string) (Result, error) {
	if s.store == nil {
		return Result{}, ErrNoObjectStore
	}
	encoded, err := s.Build(category, count)
	if err != nil {
		return Result{}, err
	}
	if key == "" {
		key, err = storage.BuildSampleExportPath(string(category), s.now(), count)
		if err != nil {
			return Result{}, err
		}
	}

	info, err := s.store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{ContentType: ContentType})
	if err != nil {
		return Result{}, fmt.Errorf("upload samples: %w", err)
	}
	return Result{Key: info.Key, Rows: encoded.RowCount, Size: int64(len(encoded.Data)), ETag: info.ETag}, nil
}
