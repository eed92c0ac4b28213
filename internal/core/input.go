package core

import (
	"strings"
	"unicode/utf8"
)

// EscapePrefix marks input the companion should say verbatim instead of
// sending it to the model.
const EscapePrefix = "/"

type InputKind string

const (
	KindIntake   InputKind = "intake"
	KindGlitch   InputKind = "glitch"
	KindScripted InputKind = "scripted"
	KindChat     InputKind = "chat"
)

const (
	garbageMinLength = 7
	garbageRunLength = 4
)

// IsGarbage reports whether text looks like keyboard mashing: longer than six
// characters and either without any vowel or containing one character
// repeated four or more times in a row.
func IsGarbage(text string) bool {
	if utf8.RuneCountInString(text) < garbageMinLength {
		return false
	}
	return !strings.ContainsAny(text, "aeiouAEIOU") || hasRun(text, garbageRunLength)
}

func hasRun(text string, n int) bool {
	var prev rune
	run := 0
	for i, r := range text {
		if i > 0 && r == prev && !isLineBreak(r) {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

// isLineBreak matches the characters that end a line, which never count
// toward a run.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\u2028', '\u2029':
		return true
	}
	return false
}
