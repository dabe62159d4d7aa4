package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/textfill/textfill/internal/generator"
	"github.com/textfill/textfill/internal/observability"
)

const maxGenerateCount = 100

type generateResponse struct {
	Category generator.Category `json:"category"`
	Texts    []string           `json:"texts"`
}

func handleGenerate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Generator == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "GENERATOR_UNAVAILABLE", "generator is not configured", true, nil)
		return
	}
	category, err := generator.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CATEGORY", err.Error(), false, map[string]any{"categories": generator.Categories()})
		return
	}
	count, err := parseCount(r.URL.Query().Get("count"), 1, maxGenerateCount)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_COUNT", err.Error(), false, map[string]any{"max": maxGenerateCount})
		return
	}

	texts := deps.Generator.GenerateN(category, count)
	observability.ObserveGenerated(string(category), len(texts))
	writeJSON(w, http.StatusOK, generateResponse{Category: category, Texts: texts})
}

func handleVocabulary(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Generator == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "GENERATOR_UNAVAILABLE", "generator is not configured", true, nil)
		return
	}
	writeJSON(w, http.StatusOK, deps.Generator.Vocabulary())
}

// parseCount reads a positive count, returning fallback for an empty value.
func parseCount(raw string, fallback, limit int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("count must be an integer")
	}
	if count < 1 || count > limit {
		return 0, fmt.Errorf("count must be between 1 and %d", limit)
	}
	return count, nil
}
