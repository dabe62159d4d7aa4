package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

const (
	samplesRoot    = "samples"
	vocabularyRoot = "vocabulary"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildSampleExportPath lays out export files by category and UTC day, e.g.
// samples/price/date=2026-02-19/samples-20260219T090500Z-00100.parquet.
func BuildSampleExportPath(category string, at time.Time, rows int) (string, error) {
	if err := validatePathComponent(category, "category"); err != nil {
		return "", err
	}
	if rows <= 0 {
		return "", fmt.Errorf("rows must be > 0")
	}
	ts := at.UTC()
	return path.Join(
		samplesRoot,
		category,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("samples-%s-%05d.parquet", ts.Format("20060102T150405Z"), rows),
	), nil
}

// BuildVocabularyPath returns the key of a named vocabulary document. The
// extension selects the decoder.
func BuildVocabularyPath(name, ext string) (string, error) {
	if err := validatePathComponent(name, "vocabulary name"); err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	switch ext {
	case "json", "yaml", "yml":
	default:
		return "", fmt.Errorf("unsupported vocabulary extension %q", ext)
	}
	return path.Join(vocabularyRoot, name+"."+ext), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
