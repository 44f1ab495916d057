// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"captiond/internal/types"
)

const (
	testID   = "dQw4w9WgXcQ"
	testLang = "en"
)

func testRecord() *types.TranscriptRecord {
	return &types.TranscriptRecord{
		VideoID:     testID,
		Language:    testLang,
		IsGenerated: true,
		Segments: []types.TranscriptSegment{
			{Start: 1.0, End: 3.5, Text: "Hello world"},
			{Start: 3.5, End: 5.0, Text: "Second cue"},
		},
	}
}

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, true)
	require.NoError(t, err)
	return s, dir
}

func TestTranscriptRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	got, err := s.GetTranscript(ctx, testID, testLang)
	require.NoError(t, err)
	require.Nil(t, got, "expected miss on empty store")

	rec := testRecord()
	require.NoError(t, s.PutTranscript(ctx, rec))

	got, err = s.GetTranscript(ctx, testID, testLang)
	require.NoError(t, err)
	require.NotNil(t, got)
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestPutReplacesWholesale(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutTranscript(ctx, testRecord()))

	updated := testRecord()
	updated.IsGenerated = false
	updated.Segments = updated.Segments[:1]
	require.NoError(t, s.PutTranscript(ctx, updated))

	got, err := s.GetTranscript(ctx, testID, testLang)
	require.NoError(t, err)
	require.Len(t, got.Segments, 1)
	require.False(t, got.IsGenerated)
}

func TestSummaryRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	rec := &types.SummaryRecord{
		VideoID:  testID,
		Language: testLang,
		Length:   types.SummaryShort,
		Text:     "A short summary.",
		Model:    "gpt-5-mini",
	}
	require.NoError(t, s.PutSummary(ctx, rec))

	got, err := s.GetSummary(ctx, testID, testLang, types.SummaryShort)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, rec.Text, got.Text)

	// A different length is a different key.
	got, err = s.GetSummary(ctx, testID, testLang, types.SummaryLong)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestInvalidKeyComponents(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	bad := []struct{ id, lang string }{
		{"../escape.jso", "en"},
		{"short", "en"},
		{testID, "xx_invalid!"},
		{testID, "EN"},
		{testID, "../x"},
		{"aaaaaaa/../b", "en"},
	}
	for _, tc := range bad {
		_, err := s.GetTranscript(ctx, tc.id, tc.lang)
		if !errors.Is(err, ErrInvalidKey) {
			t.Errorf("GetTranscript(%q,%q): want ErrInvalidKey, got %v", tc.id, tc.lang, err)
		}
		err = s.PutTranscript(ctx, &types.TranscriptRecord{VideoID: tc.id, Language: tc.lang})
		if !errors.Is(err, ErrInvalidKey) {
			t.Errorf("PutTranscript(%q,%q): want ErrInvalidKey, got %v", tc.id, tc.lang, err)
		}
	}

	// Nothing may have been written anywhere under the root.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	path := filepath.Join(dir, TranscriptKey(testID, testLang))
	require.NoError(t, os.WriteFile(path, []byte(`{"video_id": "dQw4w9WgXcQ", "segm`), 0o600))

	got, err := s.GetTranscript(ctx, testID, testLang)
	require.NoError(t, err, "corruption must never surface as an error")
	require.Nil(t, got)
}

func TestMismatchedEmbeddedKeyIsMiss(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	// Valid JSON, wrong embedded video ID.
	path := filepath.Join(dir, TranscriptKey(testID, testLang))
	body := `{"video_id":"AAAAAAAAAAA","language":"en","is_generated":false,"segments":[{"start":0,"end":1,"text":"x"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	got, err := s.GetTranscript(ctx, testID, testLang)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStalePendingFileDoesNotShadowEntry(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutTranscript(ctx, testRecord()))

	// Simulate a writer that died between temp-file creation and rename.
	stale := filepath.Join(dir, "."+TranscriptKey(testID, testLang)+".12345.tmp")
	require.NoError(t, os.WriteFile(stale, []byte(`{"video_id":"dQw4`), 0o600))

	got, err := s.GetTranscript(ctx, testID, testLang)
	require.NoError(t, err)
	require.NotNil(t, got, "prior entry must remain visible")
	require.Len(t, got.Segments, 2)
}

func TestInvalidate(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutTranscript(ctx, testRecord()))
	other := testRecord()
	other.Language = "es"
	require.NoError(t, s.PutTranscript(ctx, other))
	require.NoError(t, s.PutSummary(ctx, &types.SummaryRecord{
		VideoID: testID, Language: testLang, Length: types.SummaryShort, Text: "s",
	}))

	// Single entry: transcript for (id, lang) only.
	require.NoError(t, s.Invalidate(testID, testLang))
	got, _ := s.GetTranscript(ctx, testID, testLang)
	require.Nil(t, got)
	got, _ = s.GetTranscript(ctx, testID, "es")
	require.NotNil(t, got)
	sum, _ := s.GetSummary(ctx, testID, testLang, types.SummaryShort)
	require.NotNil(t, sum, "summary survives single-entry invalidation")

	// Whole video: transcript and all summary variants.
	require.NoError(t, s.Invalidate(testID, ""))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestInvalidateAll(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutTranscript(ctx, testRecord()))
	other := testRecord()
	other.VideoID = "AAAAAAAAAAA"
	require.NoError(t, s.PutTranscript(ctx, other))

	require.NoError(t, s.InvalidateAll())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDisabledStore(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "never-created"), false)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.PutTranscript(ctx, testRecord()))
	got, err := s.GetTranscript(ctx, testID, testLang)
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, s.Invalidate(testID, ""))
	require.NoError(t, s.InvalidateAll())

	_, err = os.Stat(filepath.Join(dir, "never-created"))
	require.True(t, os.IsNotExist(err), "disabled store must not touch the filesystem")
}
