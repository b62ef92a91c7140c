package logging

import (
	"regexp"
)

// Sanitizer redacts sensitive information from log messages.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// GitHub OAuth (device flow tokens)
		`gho_[A-Za-z0-9]{36}`,
		// GitHub PAT, classic and fine-grained
		`ghp_[A-Za-z0-9]{36}`,
		`github_pat_[A-Za-z0-9_]{22,}`,
		// GitHub App
		`ghu_[A-Za-z0-9]{36}`,
		`ghs_[A-Za-z0-9]{36}`,
		`ghr_[A-Za-z0-9]{36}`,
		// GITHUB_TOKEN=... lines from the env file
		`GITHUB_TOKEN=\S+`,
		// Device codes are 40 hex characters
		`(?i)device[_-]?code["'\s:=]+[a-f0-9]{40}`,
		// Generic Bearer tokens
		`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
		// Generic tokens and secrets
		`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		`(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}
