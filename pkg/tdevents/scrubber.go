// scrubber.go redacts secrets from failure messages before they are reported.

package tdevents

import (
	"regexp"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// MaxMessageSize is the maximum length for messages (default: 4096).
	MaxMessageSize int

	// ExtraPatterns are additional regular expressions to redact.
	ExtraPatterns []string

	// FailClosed fully redacts messages when ExtraPatterns cannot be
	// compiled instead of ignoring the bad patterns (default: true).
	FailClosed bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize: 4096,
		FailClosed:     true,
	}
}

// Compiled once at package init.
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\./]+['"]?`),
	regexp.MustCompile(`(?i)(authorization)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\./]+['"]?`), // Authorization: TD1 <key>
	regexp.MustCompile(`(?i)\b(bearer|TD1)\s+[\w\-\./]+`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT tokens

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // Email
}

// Scrubber redacts sensitive data from messages.
type Scrubber struct {
	cfg      ScrubberConfig
	extra    []*regexp.Regexp
	poisoned bool
}

// NewScrubber creates a scrubber. Zero MaxMessageSize selects the default.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultScrubberConfig().MaxMessageSize
	}
	s := &Scrubber{cfg: cfg}
	for _, p := range cfg.ExtraPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			s.poisoned = true
			continue
		}
		s.extra = append(s.extra, re)
	}
	return s
}

// ScrubMessage truncates msg and replaces sensitive substrings with
// [REDACTED].
func (s *Scrubber) ScrubMessage(msg string) string {
	if s.poisoned && s.cfg.FailClosed {
		return "[REDACTED:SCRUB_ERROR]"
	}

	if len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}

	result := msg
	for _, pattern := range messageScrubPatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	for _, pattern := range s.extra {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// truncateWithMarker truncates a string and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}
