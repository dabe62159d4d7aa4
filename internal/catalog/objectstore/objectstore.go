// Package objectstore keeps vocabulary documents in an S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/textfill/textfill/internal/catalog"
	"github.com/textfill/textfill/internal/generator"
	"github.com/textfill/textfill/internal/storage"
)

// maxDocumentBytes bounds how much of a vocabulary object is read.
const maxDocumentBytes = 4 << 20

type Loader struct {
	store storage.ObjectStore
	key   string
}

func New(store storage.ObjectStore, key string) (*Loader, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if _, err := catalog.FormatFromName(key); err != nil {
		return nil, err
	}
	return &Loader{store: store, key: key}, nil
}

func (l *Loader) Load(ctx context.Context) (generator.Vocabulary, error) {
	reader, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return generator.Vocabulary{}, fmt.Errorf("vocabulary object %q: %w", l.key, catalog.ErrNotFound)
		}
		return generator.Vocabulary{}, fmt.Errorf("get vocabulary object %q: %w", l.key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxDocumentBytes+1))
	if err != nil {
		return generator.Vocabulary{}, fmt.Errorf("read vocabulary object %q: %w", l.key, err)
	}
	if len(data) > maxDocumentBytes {
		return generator.Vocabulary{}, fmt.Errorf("vocabulary object %q exceeds %d bytes", l.key, maxDocumentBytes)
	}
	format, err := catalog.FormatFromName(l.key)
	if err != nil {
		return generator.Vocabulary{}, err
	}
	return catalog.Decode(data, format)
}

// Publish validates vocab and writes it under the named vocabulary key.
func Publish(ctx context.Context, store storage.ObjectStore, name string, format catalog.Format, vocab generator.Vocabulary) (storage.ObjectInfo, error) {
	if store == nil {
		return storage.ObjectInfo{}, fmt.Errorf("object store is required")
	}
	if err := vocab.Validate(); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("validate vocabulary: %w", err)
	}
	key, err := storage.BuildVocabularyPath(name, string(format))
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	data, err := catalog.Encode(vocab, format)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	contentType := "application/json"
	if format == catalog.FormatYAML {
		contentType = "application/yaml"
	}
	info, err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: contentType})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("publish vocabulary %q: %w", key, err)
	}
	return info, nil
}
