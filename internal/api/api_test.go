// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captiond/internal/cache"
	"captiond/internal/extractor"
	"captiond/internal/service"
	"captiond/internal/summarize"
	"captiond/internal/types"
)

const testVideoID = "dQw4w9WgXcQ"

type fakeExtractor struct {
	err      error
	lastLang string
}

func (f *fakeExtractor) Extract(ctx context.Context, videoID, lang, watchURL string) (*types.TranscriptRecord, error) {
	f.lastLang = lang
	if f.err != nil {
		return nil, f.err
	}
	return &types.TranscriptRecord{
		VideoID:  videoID,
		Language: lang,
		Segments: []types.TranscriptSegment{
			{Start: 1, End: 3.5, Text: "Hello world"},
			{Start: 3.5, End: 6, Text: "Second segment"},
		},
	}, nil
}

type fakeSummarizer struct {
	err error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string, length types.SummaryLength) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "A concise summary.", nil
}

func newTestServer(t *testing.T, ext *fakeExtractor, sum *fakeSummarizer) http.Handler {
	t.Helper()
	dir := t.TempDir()
	transcripts, err := cache.New(dir, true)
	require.NoError(t, err)
	summaries, err := cache.New(dir, true)
	require.NoError(t, err)

	svc := service.New(service.Options{
		Transcripts:     transcripts,
		Summaries:       summaries,
		Extractor:       ext,
		Summarizer:      sum,
		DefaultLanguage: "en",
		Model:           "gpt-5-mini",
	})
	return NewServer(Options{
		Service:      svc,
		CacheEnabled: true,
		CacheDir:     dir,
	}).Router()
}

func doRequest(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestTranscriptJSON(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})

	rec := doRequest(t, h, http.MethodGet, "/api/transcript?url="+testVideoID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body types.TranscriptRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, testVideoID, body.VideoID)
	assert.Equal(t, "en", body.Language)
	require.Len(t, body.Segments, 2)
	assert.Equal(t, "Hello world", body.Segments[0].Text)
}

func TestTranscriptTextFormat(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})

	rec := doRequest(t, h, http.MethodGet, "/api/transcript?url="+testVideoID+"&format=text")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Hello world Second segment", rec.Body.String())
}

func TestTranscriptWithoutTimestamps(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})

	rec := doRequest(t, h, http.MethodGet, "/api/transcript?url="+testVideoID+"&timestamps=false")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Hello world Second segment", body["text"])
	assert.NotContains(t, body, "segments")
}

func TestTranscriptMissingURL(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})
	rec := doRequest(t, h, http.MethodGet, "/api/transcript")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscriptInvalidURL(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})
	rec := doRequest(t, h, http.MethodGet, "/api/transcript?url=not%20a%20video")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscriptLanguageCanonicalized(t *testing.T) {
	ext := &fakeExtractor{}
	h := newTestServer(t, ext, &fakeSummarizer{})

	rec := doRequest(t, h, http.MethodGet, "/api/transcript?url="+testVideoID+"&lang=EN")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en", ext.lastLang)
}

func TestTranscriptErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no captions", extractor.ErrNoCaptions, http.StatusNotFound},
		{"timeout", extractor.ErrExtractionTimeout, http.StatusRequestTimeout},
		{"extraction failed", extractor.ErrExtractionFailed, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, &fakeExtractor{err: tc.err}, &fakeSummarizer{})
			rec := doRequest(t, h, http.MethodGet, "/api/transcript?url="+testVideoID)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestSummaryJSON(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})

	rec := doRequest(t, h, http.MethodGet, "/api/summary?url="+testVideoID+"&length=short")
	require.Equal(t, http.StatusOK, rec.Code)

	var body types.SummaryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, testVideoID, body.VideoID)
	assert.Equal(t, types.SummaryShort, body.Length)
	assert.Equal(t, "A concise summary.", body.Text)
	assert.Equal(t, "gpt-5-mini", body.Model)
}

func TestSummaryDefaultsToMedium(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})

	rec := doRequest(t, h, http.MethodGet, "/api/summary?url="+testVideoID)
	require.Equal(t, http.StatusOK, rec.Code)

	var body types.SummaryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, types.SummaryMedium, body.Length)
}

func TestSummaryInvalidLength(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})
	rec := doRequest(t, h, http.MethodGet, "/api/summary?url="+testVideoID+"&length=gigantic")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"tool missing", summarize.ErrToolNotFound, http.StatusServiceUnavailable},
		{"timeout", summarize.ErrSummarizationTimeout, http.StatusRequestTimeout},
		{"failed", summarize.ErrSummarizationFailed, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{err: tc.err})
			rec := doRequest(t, h, http.MethodGet, "/api/summary?url="+testVideoID)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCacheDelete(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})

	require.Equal(t, http.StatusOK,
		doRequest(t, h, http.MethodGet, "/api/transcript?url="+testVideoID).Code)

	assert.Equal(t, http.StatusNoContent,
		doRequest(t, h, http.MethodDelete, "/api/cache/"+testVideoID).Code)
	assert.Equal(t, http.StatusNoContent,
		doRequest(t, h, http.MethodDelete, "/api/cache/"+testVideoID+"/en").Code)
	assert.Equal(t, http.StatusNoContent,
		doRequest(t, h, http.MethodDelete, "/api/cache").Code)
}

func TestCacheDeleteInvalidID(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})
	rec := doRequest(t, h, http.MethodDelete, "/api/cache/short")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})

	rec := doRequest(t, h, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["cache_enabled"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})
	rec := doRequest(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "captiond_")
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestServer(t, &fakeExtractor{}, &fakeSummarizer{})
	rec := doRequest(t, h, http.MethodGet, "/healthz")
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestRateLimit(t *testing.T) {
	dir := t.TempDir()
	transcripts, err := cache.New(dir, true)
	require.NoError(t, err)
	summaries, err := cache.New(dir, true)
	require.NoError(t, err)
	svc := service.New(service.Options{
		Transcripts: transcripts,
		Summaries:   summaries,
		Extractor:   &fakeExtractor{},
		Summarizer:  &fakeSummarizer{},
	})
	h := NewServer(Options{Service: svc, RateLimitPerMinute: 2}).Router()

	assert.Equal(t, http.StatusOK,
		doRequest(t, h, http.MethodGet, "/api/transcript?url="+testVideoID).Code)
	assert.Equal(t, http.StatusOK,
		doRequest(t, h, http.MethodGet, "/api/transcript?url="+testVideoID).Code)
	rec := doRequest(t, h, http.MethodGet, "/api/transcript?url="+testVideoID)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
