// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"captiond/internal/cache"
	"captiond/internal/extractor"
	"captiond/internal/summarize"
	"captiond/internal/types"
	"captiond/internal/ytid"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a core error to its HTTP status and writes the envelope.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
}

// errorStatus translates the core error taxonomy to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ytid.ErrInvalidIdentifier),
		errors.Is(err, ytid.ErrInvalidLanguage),
		errors.Is(err, types.ErrInvalidLength),
		errors.Is(err, cache.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, extractor.ErrNoCaptions):
		return http.StatusNotFound
	case errors.Is(err, extractor.ErrExtractionTimeout),
		errors.Is(err, summarize.ErrSummarizationTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, summarize.ErrToolNotFound):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
