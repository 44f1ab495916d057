// SPDX-License-Identifier: MIT

// Package ytid resolves and validates YouTube video identifiers and
// caption language tags. Pure string operations, no network access.
package ytid

import (
	"errors"
	"regexp"
)

var (
	// ErrInvalidIdentifier reports input that is neither a bare video ID
	// nor a recognised YouTube URL shape.
	ErrInvalidIdentifier = errors.New("invalid video identifier")

	// ErrInvalidLanguage reports a language tag outside the accepted grammar.
	ErrInvalidLanguage = errors.New("invalid language tag")
)

var (
	idPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	langPattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)

	// URL shapes in priority order. The bare-ID check runs before these so a
	// plain token is never misparsed as a URL fragment.
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?(?:[^#]*&)?v=|youtu\.be/)([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/v/([A-Za-z0-9_-]{11})`),
	}
)

// Resolve returns the canonical 11-character video ID for a bare token or
// any recognised YouTube URL shape (watch, short link, embed, legacy /v/).
func Resolve(input string) (string, error) {
	if idPattern.MatchString(input) {
		return input, nil
	}
	for _, p := range urlPatterns {
		if m := p.FindStringSubmatch(input); m != nil {
			return m[1], nil
		}
	}
	return "", ErrInvalidIdentifier
}

// ValidID reports whether s is a well-formed 11-character video ID.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// ValidLanguage reports whether tag matches the caption language grammar:
// 2-3 lowercase letters with an optional region suffix of 2-4 letters.
func ValidLanguage(tag string) bool {
	return langPattern.MatchString(tag)
}

// WatchURL builds the canonical watch URL handed to the downloader.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
