// Package moderation screens anonymous messages before they reach an inbox.
// It combines an instant local blocklist with the Google Perspective API;
// the local layer always runs first, so no content leaves the process before
// an internal check has cleared it.
package moderation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	invisibleRegex  = regexp.MustCompile(`[\x{200B}-\x{200F}\x{2028}-\x{202F}\x{FEFF}]`)
	punctuationRegex = regexp.MustCompile(`[^a-z0-9\s']`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// contractionRules expand common English contractions so blocklist patterns
// only need to target the expanded forms. Applied after punctuation
// stripping, which keeps apostrophes, hence the '? in each pattern.
var contractionRules = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bdon'?t\b`), "do not"},
	{regexp.MustCompile(`\bwon'?t\b`), "will not"},
	{regexp.MustCompile(`\bcan'?t\b`), "can not"},
	{regexp.MustCompile(`\bdidn'?t\b`), "did not"},
	{regexp.MustCompile(`\bisn'?t\b`), "is not"},
	{regexp.MustCompile(`\bwouldn'?t\b`), "would not"},
	{regexp.MustCompile(`\bcouldn'?t\b`), "could not"},
	{regexp.MustCompile(`\bshouldn'?t\b`), "should not"},
	{regexp.MustCompile(`\bi'?m\b`), "i am"},
	{regexp.MustCompile(`\bi'?ll\b`), "i will"},
	{regexp.MustCompile(`\byou'?re\b`), "you are"},
	{regexp.MustCompile(`\byou'?ll\b`), "you will"},
	{regexp.MustCompile(`\bwhat'?s\b`), "what is"},
	{regexp.MustCompile(`\bthat'?s\b`), "that is"},
	{regexp.MustCompile(`\blet'?s\b`), "let us"},
}

// Normalize canonicalizes raw input text for blocklist matching: lowercase,
// invisible characters stripped, spaced-out letters rejoined ("k y s" →
// "kys"), punctuation removed except apostrophes, contractions expanded,
// character runs of 3+ collapsed to 2, whitespace collapsed.
//
// The result is ephemeral. It is used only for local pattern matching and
// must never be stored or logged.
func Normalize(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))

	t = invisibleRegex.ReplaceAllString(t, "")
	t = collapseSpacedLetters(t)
	t = punctuationRegex.ReplaceAllString(t, " ")
	for _, rule := range contractionRules {
		t = rule.re.ReplaceAllString(t, rule.replacement)
	}
	t = collapseRepeats(t)
	t = whitespaceRegex.ReplaceAllString(t, " ")

	return strings.TrimSpace(t)
}

func isWordChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}

func isASCIILetter(c rune) bool {
	return c >= 'a' && c <= 'z'
}

// collapseSpacedLetters joins runs of single-letter words so spacing evasion
// like "d i e" reads as "die". RE2 has no lookahead, so this is an explicit
// scan: a single-letter word followed by whitespace and another single-letter
// word loses the whitespace between them.
func collapseSpacedLetters(s string) string {
	r := []rune(s)
	n := len(r)
	var b strings.Builder
	b.Grow(n)

	for i := 0; i < n; i++ {
		c := r[i]
		b.WriteRune(c)
		if !isASCIILetter(c) {
			continue
		}
		if i > 0 && isWordChar(r[i-1]) {
			continue // not a single-letter word
		}
		j := i + 1
		for j < n && unicode.IsSpace(r[j]) {
			j++
		}
		if j == i+1 || j == n {
			continue // no whitespace follows, or trailing
		}
		if isASCIILetter(r[j]) && (j+1 == n || !isWordChar(r[j+1])) {
			i = j - 1 // drop the whitespace run; next iteration emits r[j]
		}
	}
	return b.String()
}

// collapseRepeats reduces any run of 3 or more identical characters to
// exactly 2, so "dieeee" still carries "die" without destroying legitimate
// doubled letters ("fall", "happy").
func collapseRepeats(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	runLen := 0
	for _, c := range s {
		if c == prev {
			runLen++
		} else {
			prev = c
			runLen = 1
		}
		if runLen <= 2 {
			b.WriteRune(c)
		}
	}
	return b.String()
}
