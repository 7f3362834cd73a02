// SPDX-License-Identifier: MPL-2.0

package naming

import (
	"path/filepath"
	"strings"
	"unicode"
)

type caseMode int

const (
	modeBoundary caseMode = iota
	modeLower
	modeUpper
)

// Derive maps a unit path to its module identifier: the base name without its
// final extension, converted to snake_case. The returned identifier is not
// guaranteed to be valid; callers check IsValid before using it.
func Derive(path string) ModuleIdentifier {
	return ModuleIdentifier(ToSnakeCase(Stem(path)))
}

// Stem returns the base name of path without its final extension.
// Leading-dot names such as ".dbc" are returned unchanged.
func Stem(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// ToSnakeCase converts s to lowercase words joined by underscores.
//
// Any character that is not a letter or digit separates words. Inside a run of
// letters and digits a new word starts at a lower-to-upper transition
// ("engineSpeed" -> "engine_speed") and before the last capital of an acronym
// that is followed by a lowercase letter ("ABSModule" -> "abs_module"). Digits
// never start a word on their own.
func ToSnakeCase(s string) string {
	ws := wordsOf(s)
	for i, w := range ws {
		ws[i] = strings.ToLower(w)
	}
	return strings.Join(ws, "_")
}

// ToScreamingSnakeCase is ToSnakeCase with uppercase words.
func ToScreamingSnakeCase(s string) string {
	return strings.ToUpper(ToSnakeCase(s))
}

// ToUpperCamelCase joins the words of s with each word capitalized and the
// rest of the word lowercased ("ENGINE_speed" -> "EngineSpeed").
func ToUpperCamelCase(s string) string {
	var b strings.Builder
	for _, w := range strings.Split(ToSnakeCase(s), "_") {
		if w == "" {
			continue
		}
		r := []rune(w)
		b.WriteString(strings.ToUpper(string(r[0])))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

func wordsOf(s string) []string {
	var out []string
	for _, chunk := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out = append(out, splitWords(chunk)...)
	}
	return out
}

// splitWords splits an alphanumeric chunk on case boundaries.
func splitWords(chunk string) []string {
	runes := []rune(chunk)
	var words []string
	start := 0
	mode := modeBoundary

	for i, c := range runes {
		if i+1 >= len(runes) {
			break
		}
		next := runes[i+1]

		nextMode := mode
		switch {
		case unicode.IsLower(c):
			nextMode = modeLower
		case unicode.IsUpper(c):
			nextMode = modeUpper
		}

		switch {
		case nextMode == modeLower && unicode.IsUpper(next):
			words = append(words, string(runes[start:i+1]))
			start = i + 1
			mode = modeBoundary
		case mode == modeUpper && unicode.IsUpper(c) && unicode.IsLower(next):
			if i > start {
				words = append(words, string(runes[start:i]))
				start = i
			}
			mode = modeBoundary
		default:
			mode = nextMode
		}
	}

	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}
	return words
}
