// SPDX-License-Identifier: MPL-2.0

package dbc

import (
	"fmt"
	"strings"
)

const (
	tokWord tokenKind = iota
	tokNumber
	tokString
	tokPunct
)

type (
	tokenKind int

	token struct {
		kind tokenKind
		text string
	}
)

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// lex splits one statement into tokens. Strings are returned unquoted with
// escape sequences resolved.
func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '"':
			str, n, err := lexString(s[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: str})
			i += n
		case isWordStart(c):
			j := i + 1
			for j < len(s) && isWordChar(s[j]) {
				j++
			}
			toks = append(toks, token{kind: tokWord, text: s[i:j]})
			i = j
		case isDigit(c) || c == '.' || ((c == '-' || c == '+') && i+1 < len(s) && (isDigit(s[i+1]) || s[i+1] == '.')):
			n := lexNumber(s[i:])
			toks = append(toks, token{kind: tokNumber, text: s[i : i+n]})
			i += n
		default:
			toks = append(toks, token{kind: tokPunct, text: s[i : i+1]})
			i++
		}
	}
	return toks, nil
}

// lexNumber returns the length of the numeric literal at the start of s.
// A number may carry a sign, a fraction and an exponent.
func lexNumber(s string) int {
	i := 0
	if s[i] == '-' || s[i] == '+' {
		i++
	}
	for i < len(s) && (isDigit(s[i]) || s[i] == '.') {
		i++
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

// lexString reads a quoted string at the start of s and returns its value and
// the number of bytes consumed.
func lexString(s string) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

// statementEnd returns the index just past the first ';' in s that is not
// inside a string, or -1 if the statement is not terminated yet.
func statementEnd(s string) int {
	inString := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return i + 1
			}
		}
	}
	return -1
}
