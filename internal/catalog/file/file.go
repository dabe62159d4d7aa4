// Package file loads a vocabulary document from disk.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/textfill/textfill/internal/catalog"
	"github.com/textfill/textfill/internal/generator"
)

type Loader struct {
	fsys fs.FS
	name string
}

// New reads name from fsys. The extension selects JSON or YAML.
func New(fsys fs.FS, name string) (*Loader, error) {
	if fsys == nil {
		return nil, fmt.Errorf("file system is required")
	}
	if _, err := catalog.FormatFromName(name); err != nil {
		return nil, err
	}
	return &Loader{fsys: fsys, name: name}, nil
}

// NewFromPath reads the document at a host path.
func NewFromPath(path string) (*Loader, error) {
	if path == "" {
		return nil, fmt.Errorf("vocabulary path is required")
	}
	return New(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

func (l *Loader) Load(context.Context) (generator.Vocabulary, error) {
	data, err := fs.ReadFile(l.fsys, l.name)
	if err != nil {
		return generator.Vocabulary{}, fmt.Errorf("read vocabulary file %q: %w", l.name, err)
	}
	format, err := catalog.FormatFromName(l.name)
	if err != nil {
		return generator.Vocabulary{}, err
	}
	return catalog.Decode(data, format)
}
