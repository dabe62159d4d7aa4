package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// Sample is one generated placeholder string as stored in an export file.
type Sample struct {
	Index             int64  `parquet:"index" json:"index"`
	Category          string `parquet:"category" json:"category"`
	Text              string `parquet:"text" json:"text"`
	GeneratedAtUnixMs int64  `parquet:"generated_at_unix_ms" json:"generated_at_unix_ms"`
}

type EncodeResult struct {
	Data     []byte
	RowCount int64
}

func EncodeSamples(samples []Sample) (EncodeResult, error) {
	if len(samples) == 0 {
		return EncodeResult{}, fmt.Errorf("samples are required")
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Sample](buf)
	if _, err := writer.Write(samples); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}
	return EncodeResult{Data: buf.Bytes(), RowCount: int64(len(samples))}, nil
}

// DecodeSamples reads every row of an export file.
func DecodeSamples(data []byte) ([]Sample, error) {
	reader := parquet.NewGenericReader[Sample](bytes.NewReader(data))
	defer func() { _ = reader.Close() }()

	out := make([]Sample, 0, reader.NumRows())
	batch := make([]Sample, 128)
	for {
		n, err := reader.Read(batch)
		out = append(out, batch[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
}
