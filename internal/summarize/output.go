// SPDX-License-Identifier: MIT

package summarize

import "strings"

// progressPrefixes mark leading narration lines some CLI tools emit before
// the actual response.
var progressPrefixes = []string{
	"reading",
	"analyzing",
	"i'll ",
	"i will ",
	"let me ",
	"working",
	"thinking",
	"loading",
	"✓",
	"●",
}

// usagePrefixes mark the trailing usage-statistics block; everything from
// the first such line onward is discarded.
var usagePrefixes = []string{
	"total usage",
	"total duration",
	"total cost",
	"usage:",
	"tokens used",
	"input tokens",
	"output tokens",
}

// extractSummary strips progress narration and usage statistics from raw
// tool output, returning only the summary body. An empty result means the
// tool produced no usable summary.
func extractSummary(raw string) string {
	lines := strings.Split(raw, "\n")

	var kept []string
	inBody := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		if !inBody {
			if trimmed == "" || hasAnyPrefix(lower, progressPrefixes) {
				continue
			}
			inBody = true
		}
		if hasAnyPrefix(lower, usagePrefixes) {
			break
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
