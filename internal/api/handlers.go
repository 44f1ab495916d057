// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"captiond/internal/log"
	"captiond/internal/types"
	"captiond/internal/vtt"
)

// transcriptText is the JSON shape when the client asks for the transcript
// without per-segment timing.
type transcriptText struct {
	VideoID     string `json:"video_id"`
	Language    string `json:"language"`
	IsGenerated bool   `json:"is_generated"`
	Text        string `json:"text"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url parameter is required"})
		return
	}
	lang := canonicalLanguage(r.URL.Query().Get("lang"))

	rec, err := s.opts.Service.Transcript(r.Context(), url, lang)
	if err != nil {
		logRequestError(r, "transcript", err)
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(vtt.PlainText(rec.Segments)))
		return
	}
	if !queryBool(r, "timestamps", true) {
		writeJSON(w, http.StatusOK, transcriptText{
			VideoID:     rec.VideoID,
			Language:    rec.Language,
			IsGenerated: rec.IsGenerated,
			Text:        vtt.PlainText(rec.Segments),
		})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url parameter is required"})
		return
	}
	lang := canonicalLanguage(r.URL.Query().Get("lang"))

	lengthParam := r.URL.Query().Get("length")
	if lengthParam == "" {
		lengthParam = string(types.SummaryMedium)
	}
	length, err := types.ParseSummaryLength(lengthParam)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := s.opts.Service.Summary(r.Context(), url, lang, length)
	if err != nil {
		logRequestError(r, "summary", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Service.InvalidateAll(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	lang := chi.URLParam(r, "lang")
	if lang != "" {
		lang = canonicalLanguage(lang)
	}
	if err := s.opts.Service.Invalidate(videoID, lang); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"cache_enabled": s.opts.CacheEnabled,
		"cache_dir":     s.opts.CacheDir,
	})
}

// canonicalLanguage normalizes casing via BCP 47 parsing ("EN" to "en",
// "en-us" to "en-US"). Unparseable input passes through for the core
// validation to reject.
func canonicalLanguage(raw string) string {
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}

// queryBool reads a boolean query parameter, returning def when absent or
// malformed.
func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func logRequestError(r *http.Request, op string, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	if errorStatus(err) >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("op", op).Msg("request failed")
		return
	}
	logger.Warn().Err(err).Str("op", op).Msg("request rejected")
}
