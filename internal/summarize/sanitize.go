// SPDX-License-Identifier: MIT

package summarize

import (
	"fmt"
	"regexp"
	"strings"

	"captiond/internal/metrics"
)

// redactionMarker replaces URLs in summary output. URLs may be legitimate
// content references, so redaction does not fail the request.
const redactionMarker = "[link removed]"

// maxSummaryWords caps summary size; longer output is truncated, not failed.
const maxSummaryWords = 1000

var urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)

// shellPatterns are strong evidence of a successful injection: none of them
// are legitimate summary content.
var shellPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\(`),                                     // command substitution
	regexp.MustCompile(`\$\{`),                                     // variable expansion
	regexp.MustCompile("`[^`]*(?:rm |sh |bash |curl |wget )[^`]*`"), // backtick substitution
	regexp.MustCompile(`\brm\s+-rf?\b`),                            // destructive removal
	regexp.MustCompile(`\|\s*(?:sh|bash|zsh)\b`),                   // pipe to a shell
	regexp.MustCompile(`;\s*(?:rm|curl|wget|chmod)\b`),             // command chaining
	regexp.MustCompile(`\b(?:eval|exec)\s*\(`),                     // dynamic execution
}

// metaPhrases indicate the model echoed or complied with instructions
// embedded in the transcript instead of summarizing it.
var metaPhrases = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"ignoring previous instructions",
	"disregard the above",
	"disregard previous",
	"new instructions",
	"as an ai",
	"as a language model",
	"system prompt",
	"please provide the text",
	"please provide the transcript",
	"provide the text you would like",
	"what length would you like",
	"which summary length",
	"i cannot summarize",
}

// validateOutput applies the injection defense to an extracted summary.
// URLs are redacted in place; shell patterns and meta-instruction phrases
// fail the request; oversize output is truncated.
func validateOutput(text string) (string, error) {
	if urlPattern.MatchString(text) {
		text = urlPattern.ReplaceAllString(text, redactionMarker)
		metrics.RecordInjectionDetection("url_redacted")
	}

	for _, p := range shellPatterns {
		if p.MatchString(text) {
			metrics.RecordInjectionDetection("shell_pattern")
			return "", fmt.Errorf("%w: output contains shell metacharacters", ErrSummarizationFailed)
		}
	}

	lower := strings.ToLower(text)
	for _, phrase := range metaPhrases {
		if strings.Contains(lower, phrase) {
			metrics.RecordInjectionDetection("meta_instruction")
			return "", fmt.Errorf("%w: output echoes embedded instructions", ErrSummarizationFailed)
		}
	}

	if words := strings.Fields(text); len(words) > maxSummaryWords {
		metrics.RecordInjectionDetection("truncated")
		text = strings.Join(words[:maxSummaryWords], " ")
	}

	return text, nil
}
