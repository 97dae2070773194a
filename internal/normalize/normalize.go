// Package normalize strips volatile lines from device configuration text
// before it is compared.
package normalize

import "strings"

// DefaultIgnorePatterns returns the prefixes used when no patterns are
// configured. They cover IOS-style "!" and Junos-style "#" comment lines.
func DefaultIgnorePatterns() []string {
	return []string{
		"! Last configuration change",
		"! NVRAM config last updated",
		"!Time:",
		"!",
		"#",
	}
}

// Normalizer drops lines whose trimmed form starts with one of its patterns.
// Patterns are fixed at construction.
type Normalizer struct {
	patterns []string
}

// New creates a Normalizer. Empty patterns are skipped since they would
// match every line.
func New(patterns []string) *Normalizer {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return &Normalizer{patterns: kept}
}

// Patterns returns a copy of the active ignore patterns.
func (n *Normalizer) Patterns() []string {
	out := make([]string, len(n.patterns))
	copy(out, n.patterns)
	return out
}

// Ignored reports whether line would be removed.
func (n *Normalizer) Ignored(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range n.patterns {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// Lines returns the kept lines of text in their original, untrimmed form.
func (n *Normalizer) Lines(text string) []string {
	if text == "" {
		return nil
	}
	lines := SplitLines(text)
	kept := lines[:0]
	for _, line := range lines {
		if !n.Ignored(line) {
			kept = append(kept, line)
		}
	}
	return kept
}

// Apply returns text with ignored lines removed, joined with "\n".
func (n *Normalizer) Apply(text string) string {
	return strings.Join(n.Lines(text), "\n")
}

// Filter is a shorthand for New(patterns).Apply(text).
func Filter(text string, patterns []string) string {
	return New(patterns).Apply(text)
}

// SplitLines splits text on "\n", "\r\n" and "\r". A trailing line ending
// yields a final empty element, so SplitLines and strings.Join(…, "\n")
// round-trip any "\n"-terminated text.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
