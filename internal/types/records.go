// SPDX-License-Identifier: MIT

// Package types holds the record types shared between the cache store,
// the caption extractor and the summarizer.
package types

import (
	"errors"
	"time"
)

// TranscriptSegment is a single timed caption cue after parsing.
type TranscriptSegment struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds, >= Start
	Text  string  `json:"text"`  // non-empty, markup stripped
}

// TranscriptRecord is the cached transcript for one (video, language) pair.
// Records are written wholesale and never patched.
type TranscriptRecord struct {
	VideoID     string              `json:"video_id"`
	Language    string              `json:"language"`
	IsGenerated bool                `json:"is_generated"`
	Segments    []TranscriptSegment `json:"segments"`
}

// SummaryRecord is the cached summary for one (video, language, length) triple.
type SummaryRecord struct {
	VideoID     string        `json:"video_id"`
	Language    string        `json:"language"`
	Length      SummaryLength `json:"length"`
	Text        string        `json:"text"`
	IsGenerated bool          `json:"is_generated"`
	Model       string        `json:"model"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// SummaryLength selects the target word-count range of a summary.
type SummaryLength string

const (
	SummaryShort  SummaryLength = "short"
	SummaryMedium SummaryLength = "medium"
	SummaryLong   SummaryLength = "long"
)

// ErrInvalidLength reports an unrecognised summary length.
var ErrInvalidLength = errors.New("invalid summary length")

// IsValid checks if the summary length is one of the known values.
func (l SummaryLength) IsValid() bool {
	switch l {
	case SummaryShort, SummaryMedium, SummaryLong:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (l SummaryLength) String() string {
	return string(l)
}

// ParseSummaryLength parses a string into a SummaryLength.
func ParseSummaryLength(s string) (SummaryLength, error) {
	length := SummaryLength(s)
	if !length.IsValid() {
		return "", ErrInvalidLength
	}
	return length, nil
}
