// SPDX-License-Identifier: MPL-2.0

package dbc

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrSyntax is the sentinel error wrapped by SyntaxError.
var ErrSyntax = errors.New("dbc syntax error")

// skippedStatements are valid DBC statements that carry nothing the generator uses.
var skippedStatements = map[string]struct{}{
	"BA_DEF_": {}, "BA_": {}, "BA_DEF_DEF_": {}, "BA_DEF_REL_": {}, "BA_REL_": {},
	"BA_DEF_DEF_REL_": {}, "BA_DEF_SGTYPE_": {}, "BA_SGTYPE_": {},
	"VAL_TABLE_": {}, "SIG_VALTYPE_": {}, "EV_": {}, "ENVVAR_DATA_": {}, "EV_DATA_": {},
	"BO_TX_BU_": {}, "SG_MUL_VAL_": {}, "SIG_GROUP_": {}, "SIG_TYPE_REF_": {},
	"SGTYPE_": {}, "SGTYPE_VAL_": {}, "CAT_DEF_": {}, "CAT_": {}, "FILTER": {},
	"BU_SG_REL_": {}, "BU_EV_REL_": {}, "BU_BO_REL_": {},
}

type (
	// SyntaxError reports a malformed statement. It wraps ErrSyntax.
	SyntaxError struct {
		Line int
		Msg  string
	}

	signalKey struct {
		id   uint32
		name string
	}

	parser struct {
		file        *File
		current     *Message
		msgComments map[uint32]string
		sigComments map[signalKey]string
		sigValues   map[signalKey][]ValueDescription
	}

	cursor struct {
		toks []token
		pos  int
		line int
	}
)

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Unwrap returns ErrSyntax for errors.Is() compatibility.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Decode returns data as UTF-8 text, converting from Windows-1252 when data
// is not valid UTF-8. A leading UTF-8 byte order mark is dropped.
func Decode(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// Parse parses DBC content.
func Parse(data []byte) (*File, error) {
	p := &parser{
		file:        &File{},
		msgComments: make(map[uint32]string),
		sigComments: make(map[signalKey]string),
		sigValues:   make(map[signalKey][]ValueDescription),
	}

	lines := strings.Split(Decode(data), "\n")
	inNamespace := false

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		// NS_ lists symbol names on indented lines.
		if inNamespace {
			if line[0] == ' ' || line[0] == '\t' {
				continue
			}
			inNamespace = false
		}

		var err error
		switch keyword := leadingWord(trimmed); keyword {
		case "NS_":
			inNamespace = true
		case "BS_":
		case "VERSION":
			err = p.parseVersion(trimmed, lineNo)
		case "BU_":
			err = p.parseNodes(trimmed, lineNo)
		case "BO_":
			err = p.parseMessage(trimmed, lineNo)
		case "SG_":
			err = p.parseSignal(trimmed, lineNo)
		default:
			stmt := trimmed
			for statementEnd(stmt) < 0 {
				i++
				if i >= len(lines) {
					return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("unterminated %q statement", truncate(keyword))}
				}
				stmt += "\n" + strings.TrimRight(lines[i], "\r")
			}
			stmt = stmt[:statementEnd(stmt)]
			err = p.parseTerminated(keyword, stmt, lineNo)
		}
		if err != nil {
			return nil, err
		}
	}

	p.resolve()
	return p.file, nil
}

func (p *parser) parseTerminated(keyword, stmt string, line int) error {
	switch keyword {
	case "CM_":
		return p.parseComment(stmt, line)
	case "VAL_":
		return p.parseValues(stmt, line)
	}
	if _, ok := skippedStatements[keyword]; ok {
		return nil
	}
	return &SyntaxError{Line: line, Msg: fmt.Sprintf("unknown statement %q", truncate(keyword))}
}

func (p *parser) parseVersion(stmt string, line int) error {
	c, err := newCursor(stmt, line)
	if err != nil {
		return err
	}
	c.skip() // VERSION
	v, err := c.str()
	if err != nil {
		return err
	}
	p.file.Version = v
	return nil
}

func (p *parser) parseNodes(stmt string, line int) error {
	c, err := newCursor(stmt, line)
	if err != nil {
		return err
	}
	c.skip() // BU_
	if err := c.punct(":"); err != nil {
		return err
	}
	for !c.done() {
		node, err := c.word()
		if err != nil {
			return err
		}
		p.file.Nodes = append(p.file.Nodes, node)
	}
	return nil
}

// parseMessage parses `BO_ <id> <name>: <size> <transmitter>`.
func (p *parser) parseMessage(stmt string, line int) error {
	c, err := newCursor(stmt, line)
	if err != nil {
		return err
	}
	c.skip() // BO_
	id, err := c.uint(32)
	if err != nil {
		return err
	}
	name, err := c.word()
	if err != nil {
		return err
	}
	if err := c.punct(":"); err != nil {
		return err
	}
	size, err := c.uint(16)
	if err != nil {
		return err
	}
	msg := Message{ID: uint32(id), Name: name, Size: uint(size), Line: line}
	if !c.done() {
		if msg.Transmitter, err = c.word(); err != nil {
			return err
		}
	}

	p.file.Messages = append(p.file.Messages, msg)
	p.current = &p.file.Messages[len(p.file.Messages)-1]
	return nil
}

// parseSignal parses
// `SG_ <name> [mux] : <start>|<size>@<order><sign> (<factor>,<offset>) [<min>|<max>] "<unit>" <receivers>`.
func (p *parser) parseSignal(stmt string, line int) error {
	if p.current == nil {
		return &SyntaxError{Line: line, Msg: "signal defined outside of a message"}
	}
	c, err := newCursor(stmt, line)
	if err != nil {
		return err
	}
	c.skip() // SG_

	sig := Signal{Line: line}
	if sig.Name, err = c.word(); err != nil {
		return err
	}
	if !c.peekPunct(":") {
		if sig.Multiplexer, err = c.word(); err != nil {
			return err
		}
	}
	if err := c.punct(":"); err != nil {
		return err
	}

	start, err := c.uint(16)
	if err != nil {
		return err
	}
	if err := c.punct("|"); err != nil {
		return err
	}
	size, err := c.uint(8)
	if err != nil {
		return err
	}
	if err := c.punct("@"); err != nil {
		return err
	}
	order, err := c.uint(1)
	if err != nil {
		return err
	}
	sign, err := c.next()
	if err != nil {
		return err
	}
	switch sign.text {
	case "+":
	case "-":
		sig.Signed = true
	default:
		return c.errorf("expected value type '+' or '-', got %q", truncate(sign.text))
	}
	sig.StartBit, sig.Size = uint(start), uint(size)
	if order == 1 {
		sig.ByteOrder = LittleEndian
	}

	if err := c.punct("("); err != nil {
		return err
	}
	if sig.Factor, err = c.float(); err != nil {
		return err
	}
	if err := c.punct(","); err != nil {
		return err
	}
	if sig.Offset, err = c.float(); err != nil {
		return err
	}
	if err := c.punct(")"); err != nil {
		return err
	}
	if err := c.punct("["); err != nil {
		return err
	}
	if sig.Min, err = c.float(); err != nil {
		return err
	}
	if err := c.punct("|"); err != nil {
		return err
	}
	if sig.Max, err = c.float(); err != nil {
		return err
	}
	if err := c.punct("]"); err != nil {
		return err
	}
	if sig.Unit, err = c.str(); err != nil {
		return err
	}
	for !c.done() {
		if c.peekPunct(",") {
			c.skip()
			continue
		}
		recv, err := c.word()
		if err != nil {
			return err
		}
		sig.Receivers = append(sig.Receivers, recv)
	}

	p.current.Signals = append(p.current.Signals, sig)
	return nil
}

// parseComment handles CM_ for messages and signals; comments on the network,
// nodes and environment variables are accepted and dropped.
func (p *parser) parseComment(stmt string, line int) error {
	c, err := newCursor(stmt, line)
	if err != nil {
		return err
	}
	c.skip() // CM_
	if c.peekKind(tokString) {
		_, err := c.str()
		return err
	}

	kind, err := c.word()
	if err != nil {
		return err
	}
	switch kind {
	case "BO_":
		id, err := c.uint(32)
		if err != nil {
			return err
		}
		text, err := c.str()
		if err != nil {
			return err
		}
		p.msgComments[uint32(id)] = text
	case "SG_":
		id, err := c.uint(32)
		if err != nil {
			return err
		}
		name, err := c.word()
		if err != nil {
			return err
		}
		text, err := c.str()
		if err != nil {
			return err
		}
		p.sigComments[signalKey{id: uint32(id), name: name}] = text
	case "BU_", "EV_":
		if _, err := c.word(); err != nil {
			return err
		}
		if _, err := c.str(); err != nil {
			return err
		}
	default:
		return c.errorf("unknown comment target %q", truncate(kind))
	}
	return nil
}

// parseValues handles `VAL_ <id> <signal> (<value> "<description>")* ;`.
// Value descriptions for environment variables are skipped.
func (p *parser) parseValues(stmt string, line int) error {
	c, err := newCursor(stmt, line)
	if err != nil {
		return err
	}
	c.skip() // VAL_
	if !c.peekKind(tokNumber) {
		return nil
	}
	id, err := c.uint(32)
	if err != nil {
		return err
	}
	name, err := c.word()
	if err != nil {
		return err
	}

	var values []ValueDescription
	for !c.done() {
		tok, err := c.next()
		if err != nil {
			return err
		}
		if tok.kind != tokNumber {
			return c.errorf("expected value, got %q", truncate(tok.text))
		}
		v, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(tok.text, 64)
			if ferr != nil {
				return c.errorf("invalid value %q", truncate(tok.text))
			}
			v = int64(f)
		}
		desc, err := c.str()
		if err != nil {
			return err
		}
		values = append(values, ValueDescription{Value: v, Description: desc})
	}
	p.sigValues[signalKey{id: uint32(id), name: name}] = values
	return nil
}

// resolve attaches comments and value descriptions to their definitions.
func (p *parser) resolve() {
	for mi := range p.file.Messages {
		msg := &p.file.Messages[mi]
		if text, ok := p.msgComments[msg.ID]; ok {
			msg.Comment = text
			delete(p.msgComments, msg.ID)
		}
		for si := range msg.Signals {
			sig := &msg.Signals[si]
			key := signalKey{id: msg.ID, name: sig.Name}
			if text, ok := p.sigComments[key]; ok {
				sig.Comment = text
				delete(p.sigComments, key)
			}
			if values, ok := p.sigValues[key]; ok {
				sig.Values = values
				delete(p.sigValues, key)
			}
		}
	}
	for id := range p.msgComments {
		slog.Debug("dropping comment for unknown message", "id", id)
	}
	for key := range p.sigComments {
		slog.Debug("dropping comment for unknown signal", "id", key.id, "signal", key.name)
	}
	for key := range p.sigValues {
		slog.Debug("dropping value descriptions for unknown signal", "id", key.id, "signal", key.name)
	}
}

func newCursor(stmt string, line int) (*cursor, error) {
	toks, err := lex(stmt)
	if err != nil {
		return nil, &SyntaxError{Line: line, Msg: err.Error()}
	}
	// The terminating semicolon carries no information.
	if n := len(toks); n > 0 && toks[n-1].kind == tokPunct && toks[n-1].text == ";" {
		toks = toks[:n-1]
	}
	return &cursor{toks: toks, line: line}, nil
}

func (c *cursor) done() bool { return c.pos >= len(c.toks) }

func (c *cursor) skip() { c.pos++ }

func (c *cursor) next() (token, error) {
	if c.done() {
		return token{}, c.errorf("unexpected end of statement")
	}
	t := c.toks[c.pos]
	c.pos++
	return t, nil
}

func (c *cursor) peekKind(kind tokenKind) bool {
	return !c.done() && c.toks[c.pos].kind == kind
}

func (c *cursor) peekPunct(p string) bool {
	return c.peekKind(tokPunct) && c.toks[c.pos].text == p
}

func (c *cursor) punct(p string) error {
	t, err := c.next()
	if err != nil {
		return err
	}
	if t.kind != tokPunct || t.text != p {
		return c.errorf("expected %q, got %q", p, truncate(t.text))
	}
	return nil
}

func (c *cursor) word() (string, error) {
	t, err := c.next()
	if err != nil {
		return "", err
	}
	if t.kind != tokWord {
		return "", c.errorf("expected identifier, got %q", truncate(t.text))
	}
	return t.text, nil
}

func (c *cursor) str() (string, error) {
	t, err := c.next()
	if err != nil {
		return "", err
	}
	if t.kind != tokString {
		return "", c.errorf("expected string, got %q", truncate(t.text))
	}
	return t.text, nil
}

func (c *cursor) uint(bits int) (uint64, error) {
	t, err := c.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(t.text, 10, bits)
	if t.kind != tokNumber || err != nil {
		return 0, c.errorf("expected unsigned integer, got %q", truncate(t.text))
	}
	return v, nil
}

func (c *cursor) float() (float64, error) {
	t, err := c.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(t.text, 64)
	if t.kind != tokNumber || err != nil {
		return 0, c.errorf("expected number, got %q", truncate(t.text))
	}
	return v, nil
}

func (c *cursor) errorf(format string, args ...any) error {
	return &SyntaxError{Line: c.line, Msg: fmt.Sprintf(format, args...)}
}

// leadingWord returns the keyword at the start of a statement.
func leadingWord(s string) string {
	i := 0
	for i < len(s) && isWordChar(s[i]) {
		i++
	}
	if i == 0 {
		return s[:min(len(s), 1)]
	}
	return s[:i]
}

// truncate shortens user content echoed in error messages.
func truncate(s string) string {
	const maxLen = 32
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
