package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/textfill/textfill/internal/generator"
)

var ErrNotFound = errors.New("catalog: not found")

// Loader produces the vocabulary the generator is built from. It is called
// once at startup.
type Loader interface {
	Load(ctx context.Context) (generator.Vocabulary, error)
}

type LoaderFunc func(ctx context.Context) (generator.Vocabulary, error)

func (f LoaderFunc) Load(ctx context.Context) (generator.Vocabulary, error) {
	return f(ctx)
}

// Builtin serves the compiled-in furniture tables.
type Builtin struct{}

func (Builtin) Load(context.Context) (generator.Vocabulary, error) {
	return generator.DefaultVocabulary(), nil
}

// LoadValidated runs loader and rejects a vocabulary the generator could not
// use.
func LoadValidated(ctx context.Context, loader Loader) (generator.Vocabulary, error) {
	if loader == nil {
		return generator.Vocabulary{}, fmt.Errorf("vocabulary loader is required")
	}
	vocab, err := loader.Load(ctx)
	if err != nil {
		return generator.Vocabulary{}, fmt.Errorf("load vocabulary: %w", err)
	}
	if err := vocab.Validate(); err != nil {
		return generator.Vocabulary{}, fmt.Errorf("validate vocabulary: %w", err)
	}
	return vocab, nil
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromName picks the document format from a file name or object key.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported vocabulary document %q: want .json, .yaml or .yml", name)
	}
}

// Decode parses a vocabulary document. Unknown fields are rejected so that a
// misspelled table name does not silently fall back to an empty table.
func Decode(data []byte, format Format) (generator.Vocabulary, error) {
	var vocab generator.Vocabulary
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&vocab); err != nil {
			return generator.Vocabulary{}, fmt.Errorf("decode json vocabulary: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&vocab); err != nil {
			return generator.Vocabulary{}, fmt.Errorf("decode yaml vocabulary: %w", err)
		}
	default:
		return generator.Vocabulary{}, fmt.Errorf("unsupported vocabulary format %q", format)
	}
	if vocab.Price.Suffix == "" {
		vocab.Price.Suffix = generator.DefaultCurrencySuffix
	}
	return vocab, nil
}

// Encode writes vocab in the given format.
func Encode(vocab generator.Vocabulary, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(vocab, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json vocabulary: %w", err)
		}
		return data, nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(vocab); err != nil {
			return nil, fmt.Errorf("encode yaml vocabulary: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml vocabulary: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported vocabulary format %q", format)
	}
}
