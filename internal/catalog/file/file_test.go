package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/textfill/textfill/internal/catalog"
	"github.com/textfill/textfill/internal/generator"
)

func TestLoadJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"vocab.json": {Data: []byte(`{
			"brand_prefixes": ["Oak"],
			"style_tags": ["Soft"],
			"product_types": ["Sofa"],
			"option_groups": [{"label": "Color", "values": ["Red"]}],
			"price": {"min": 1000, "max": 2000, "step": 100, "suffix": "USD"}
		}`)},
	}
	loader, err := New(fsys, "vocab.json")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	vocab, err := catalog.LoadValidated(context.Background(), loader)
	if err != nil {
		t.Fatalf("LoadValidated() error = %v", err)
	}
	if vocab.Price.Suffix != "USD" || vocab.BrandPrefixes[0] != "Oak" {
		t.Fatalf("vocab = %+v", vocab)
	}
}

func TestLoadMissingFile(t *testing.T) {
	loader, err := New(fstest.MapFS{}, "missing.yaml")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := loader.Load(context.Background()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load() error = %v, want fs.ErrNotExist", err)
	}
}

func TestNewRejectsUnknownExtension(t *testing.T) {
	if _, err := New(fstest.MapFS{}, "vocab.txt"); err == nil {
		t.Fatal("expected extension error")
	}
}

func TestNewFromPathReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	data, err := catalog.Encode(generator.DefaultVocabulary(), catalog.FormatYAML)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	loader, err := NewFromPath(path)
	if err != nil {
		t.Fatalf("NewFromPath() error = %v", err)
	}
	vocab, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(vocab.ProductTypes) != len(generator.DefaultVocabulary().ProductTypes) {
		t.Fatalf("ProductTypes = %v", vocab.ProductTypes)
	}
}
