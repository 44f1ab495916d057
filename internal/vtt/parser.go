// SPDX-License-Identifier: MIT

// Package vtt parses the WebVTT timed-caption format into transcript
// segments. No I/O; the extractor feeds it raw file content.
package vtt

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"captiond/internal/types"
)

// ErrNoSegments reports input that yields zero cues. Callers treat this as
// "captions unavailable" rather than a parse bug.
var ErrNoSegments = errors.New("no segments found in caption content")

var (
	// [H:]MM:SS.mmm --> [H:]MM:SS.mmm, anchored at line start; trailing cue
	// settings after the range are ignored.
	timestampPattern = regexp.MustCompile(`^(\d{1,2}:)?(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{1,2}:)?(\d{2}):(\d{2})\.(\d{3})`)

	// Non-greedy bounded match so malformed markup cannot trigger
	// catastrophic backtracking.
	tagPattern = regexp.MustCompile(`<[^<>]*?>`)

	cueIndexPattern = regexp.MustCompile(`^\d+$`)
)

// Parse converts raw WebVTT content into ordered transcript segments.
// Cues appear in input order; ascending start times are expected of
// well-formed input but not enforced here.
func Parse(content string) ([]types.TranscriptSegment, error) {
	lines := strings.Split(strings.TrimSpace(content), "\n")

	// Skip the WEBVTT header block when present.
	start := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "WEBVTT") {
			start = i + 1
			break
		}
	}

	var segments []types.TranscriptSegment
	i := start
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		// Blank lines and numeric cue indices are never text.
		if line == "" || cueIndexPattern.MatchString(line) {
			i++
			continue
		}

		m := timestampPattern.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}

		startSec := cueTime(m[1], m[2], m[3], m[4])
		endSec := cueTime(m[5], m[6], m[7], m[8])

		var textLines []string
		i++
		for i < len(lines) {
			text := strings.TrimSpace(lines[i])
			if text == "" || timestampPattern.MatchString(text) {
				break
			}
			text = tagPattern.ReplaceAllString(text, "")
			text = strings.TrimSpace(text)
			if text != "" {
				textLines = append(textLines, text)
			}
			i++
		}

		if len(textLines) > 0 {
			segments = append(segments, types.TranscriptSegment{
				Start: startSec,
				End:   endSec,
				Text:  strings.Join(textLines, " "),
			})
		}
	}

	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	return segments, nil
}

// cueTime converts captured timestamp groups to seconds. The hour group is
// optional and carries its trailing colon when present.
func cueTime(h, m, s, ms string) float64 {
	hours := 0
	if h != "" {
		hours, _ = strconv.Atoi(strings.TrimSuffix(h, ":"))
	}
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(millis)/1000
}

// PlainText joins segment texts with single spaces, dropping timestamps.
func PlainText(segments []types.TranscriptSegment) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = seg.Text
	}
	return strings.Join(parts, " ")
}
