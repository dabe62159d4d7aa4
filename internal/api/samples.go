package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/textfill/textfill/internal/export"
	"github.com/textfill/textfill/internal/generator"
)

const defaultDownloadRows = 100

type exportRequest struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Key      string `json:"key"`
}

func handleExportSamples(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "sample export is not configured", true, nil)
		return
	}

	var req exportRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", false, nil)
		return
	}
	category, err := generator.ParseCategory(req.Category)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CATEGORY", err.Error(), false, map[string]any{"categories": generator.Categories()})
		return
	}
	key := strings.TrimSpace(req.Key)
	if strings.Contains(key, "..") {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_KEY", "key must not contain '..'", false, nil)
		return
	}

	result, err := deps.Exporter.Export(r.Context(), category, req.Count, key)
	if err != nil {
		writeExportError(w, r, deps.Exporter.MaxRows(), err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func handleDownloadSamples(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "sample export is not configured", true, nil)
		return
	}
	category, err := generator.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CATEGORY", err.Error(), false, map[string]any{"categories": generator.Categories()})
		return
	}
	fallback := min(defaultDownloadRows, deps.Exporter.MaxRows())
	count, err := parseCount(r.URL.Query().Get("count"), fallback, deps.Exporter.MaxRows())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_COUNT", err.Error(), false, map[string]any{"max": deps.Exporter.MaxRows()})
		return
	}

	encoded, err := deps.Exporter.Build(category, count)
	if err != nil {
		writeExportError(w, r, deps.Exporter.MaxRows(), err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "samples-"+string(category)+".parquet"))
	w.Header().Set("Content-Length", strconv.Itoa(len(encoded.Data)))
	w.Header().Set("X-Row-Count", strconv.FormatInt(encoded.RowCount, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(encoded.Data)
}

func writeExportError(w http.ResponseWriter, r *http.Request, maxRows int, err error) {
	switch {
	case errors.Is(err, export.ErrInvalidCount):
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_COUNT", err.Error(), false, map[string]any{"max": maxRows})
	case errors.Is(err, export.ErrNoObjectStore):
		writeError(r.Context(), w, http.StatusNotImplemented, "OBJECT_STORE_DISABLED", err.Error(), false, nil)
	default:
		writeError(r.Context(), w, http.StatusBadGateway, "EXPORT_FAILED", err.Error(), true, nil)
	}
}
