// Package sanitize provides text normalisation for user and model supplied input.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
	spacesRegex     = regexp.MustCompile(`[ \t]+`)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	).Replace(result)
	// entities may have encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML from free text such as meeting notes and drafts.
func Text(s string) string {
	return StripHTML(s)
}

// TextPtr is a helper for optional string pointers.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}

// Body cleans generated or edited long-form content: HTML removed, line
// endings unified, runs of spaces collapsed and at most one blank line
// between paragraphs.
func Body(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = StripHTML(s)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spacesRegex.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLinesRegex.ReplaceAllString(s, "\n\n"))
}

// Email lower-cases an address and strips a `mailto:` prefix and angle brackets.
func Email(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 7 && strings.EqualFold(s[:7], "mailto:") {
		s = s[7:]
	}
	s = strings.Trim(s, "<> ")
	return strings.ToLower(s)
}

// EmailDomain returns the domain part of an address, or "" if there is none.
func EmailDomain(s string) string {
	s = Email(s)
	at := strings.LastIndexByte(s, '@')
	if at < 0 || at == len(s)-1 {
		return ""
	}
	return s[at+1:]
}
