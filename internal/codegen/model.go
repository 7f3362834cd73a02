// SPDX-License-Identifier: MPL-2.0

package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dbcgen/dbcgen/internal/dbc"
	"github.com/dbcgen/dbcgen/internal/naming"
)

const (
	maxPayloadBytes = 64
	maxSignalBits   = 64
)

// reservedItems are type names every generated file defines or imports.
var reservedItems = map[string]struct{}{"Messages": {}, "CanError": {}}

type (
	fileView struct {
		Unit              string
		Version           string
		CommonTypesImport string
		DebugPrints       bool
		HasSigned         bool
		Messages          []messageView
	}

	messageView struct {
		Type        string
		ID          uint32
		Extended    bool
		Size        uint
		Transmitter string
		Comment     []string
		Signals     []signalView
	}

	signalView struct {
		Name        string
		Fn          string
		RawType     string
		Signed      bool
		Size        uint
		Bits        string
		Scaled      bool
		Factor      string
		Offset      string
		Min         string
		Max         string
		Unit        string
		Multiplexer string
		Comment     []string
		Enum        *enumView
	}

	enumView struct {
		Type     string
		Variants []variantView
	}

	variantView struct {
		Name  string
		Value int64
	}
)

// buildFileView validates the database and computes everything the templates
// print, so templates stay free of logic beyond iteration.
func buildFileView(cfg Config, file *dbc.File) (*fileView, error) {
	if len(file.Messages) == 0 {
		return nil, ErrNoMessages
	}

	view := &fileView{
		Unit:              cfg.UnitName(),
		Version:           file.Version,
		CommonTypesImport: cfg.Style().CommonTypesImport(),
		DebugPrints:       cfg.DebugPrints(),
	}

	types := make(map[string]string, len(file.Messages))
	ids := make(map[uint32]string, len(file.Messages))
	for _, msg := range file.Messages {
		mv, err := buildMessageView(msg)
		if err != nil {
			return nil, err
		}
		if _, ok := reservedItems[mv.Type]; ok {
			return nil, &DefinitionError{Line: msg.Line, Item: msg.Name, Err: fmt.Errorf("%w: %s is a predefined type", ErrNameConflict, mv.Type)}
		}
		if prev, ok := types[mv.Type]; ok {
			return nil, &DefinitionError{Line: msg.Line, Item: msg.Name, Err: fmt.Errorf("%w: type %s already generated for %s", ErrNameConflict, mv.Type, prev)}
		}
		if prev, ok := ids[msg.FrameID()]; ok {
			return nil, &DefinitionError{Line: msg.Line, Item: msg.Name, Err: fmt.Errorf("%w: id %d already used by %s", ErrNameConflict, msg.FrameID(), prev)}
		}
		types[mv.Type] = msg.Name
		ids[msg.FrameID()] = msg.Name

		for _, sv := range mv.Signals {
			if sv.Enum != nil {
				if _, ok := types[sv.Enum.Type]; ok {
					return nil, &DefinitionError{Line: msg.Line, Item: msg.Name, Err: fmt.Errorf("%w: type %s", ErrNameConflict, sv.Enum.Type)}
				}
				types[sv.Enum.Type] = msg.Name + "." + sv.Name
			}
			view.HasSigned = view.HasSigned || sv.Signed
		}
		view.Messages = append(view.Messages, mv)
	}
	return view, nil
}

func buildMessageView(msg dbc.Message) (messageView, error) {
	fail := func(err error) (messageView, error) {
		return messageView{}, &DefinitionError{Line: msg.Line, Item: msg.Name, Err: err}
	}

	typeName := typeIdentifier(msg.Name)
	if typeName == "" {
		return fail(fmt.Errorf("%w: cannot derive a type name", ErrNameConflict))
	}
	if msg.Size > maxPayloadBytes {
		return fail(fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrInvalidLayout, msg.Size, maxPayloadBytes))
	}

	mv := messageView{
		Type:        typeName,
		ID:          msg.FrameID(),
		Extended:    msg.IsExtended(),
		Size:        msg.Size,
		Transmitter: msg.Transmitter,
		Comment:     commentLines(msg.Comment),
	}

	// Accessor names share one namespace with the fixed methods.
	fns := map[string]string{"raw": "", "new_from_raw": "", "try_from": ""}
	for _, sig := range msg.Signals {
		sv, err := buildSignalView(typeName, msg.Size, sig)
		if err != nil {
			return messageView{}, &DefinitionError{Line: sig.Line, Item: msg.Name + "." + sig.Name, Err: err}
		}
		for _, fn := range []string{sv.Fn, sv.Fn + "_raw"} {
			if prev, ok := fns[fn]; ok {
				if prev == "" {
					prev = "a built-in method"
				}
				return messageView{}, &DefinitionError{
					Line: sig.Line,
					Item: msg.Name + "." + sig.Name,
					Err:  fmt.Errorf("%w: accessor %s clashes with %s", ErrNameConflict, fn, prev),
				}
			}
			fns[fn] = sig.Name
		}
		mv.Signals = append(mv.Signals, sv)
	}
	return mv, nil
}

func buildSignalView(msgType string, msgSize uint, sig dbc.Signal) (signalView, error) {
	if sig.Size == 0 || sig.Size > maxSignalBits {
		return signalView{}, fmt.Errorf("%w: size %d not in 1..%d", ErrInvalidLayout, sig.Size, maxSignalBits)
	}
	bits := sig.Bits()
	limit := int(msgSize) * 8
	positions := make([]string, len(bits))
	for i, b := range bits {
		if b < 0 || b >= limit {
			return signalView{}, fmt.Errorf("%w: bit %d outside of %d-byte payload", ErrInvalidLayout, b, msgSize)
		}
		positions[i] = strconv.Itoa(b)
	}

	fn := functionIdentifier(sig.Name)
	if fn == "" {
		return signalView{}, fmt.Errorf("%w: cannot derive an accessor name", ErrNameConflict)
	}

	sv := signalView{
		Name:        sig.Name,
		Fn:          fn,
		RawType:     rawType(sig.Size, sig.Signed),
		Signed:      sig.Signed,
		Size:        sig.Size,
		Bits:        strings.Join(positions, ", "),
		Scaled:      sig.Factor != 1 || sig.Offset != 0,
		Factor:      floatLiteral(sig.Factor),
		Offset:      floatLiteral(sig.Offset),
		Min:         floatLiteral(sig.Min),
		Max:         floatLiteral(sig.Max),
		Unit:        sig.Unit,
		Multiplexer: sig.Multiplexer,
		Comment:     commentLines(sig.Comment),
	}
	if len(sig.Values) > 0 {
		sv.Enum = buildEnumView(msgType+typeIdentifier(sig.Name), sig)
	}
	return sv, nil
}

// buildEnumView keeps the value descriptions that fit the raw type. Variant
// names are made unique by appending the raw value.
func buildEnumView(typeName string, sig dbc.Signal) *enumView {
	lo, hi := rawRange(sig.Size, sig.Signed)
	ev := &enumView{Type: typeName}
	seen := make(map[string]bool, len(sig.Values))
	for _, v := range sig.Values {
		if v.Value < lo || v.Value > hi {
			continue
		}
		name := typeIdentifier(v.Description)
		if name == "" {
			name = "Value"
		}
		if seen[name] {
			name += strings.ReplaceAll(strconv.FormatInt(v.Value, 10), "-", "Minus")
			if seen[name] {
				// Same description and value twice: the first one wins.
				continue
			}
		}
		seen[name] = true
		ev.Variants = append(ev.Variants, variantView{Name: name, Value: v.Value})
	}
	return ev
}

// typeIdentifier returns an UpperCamelCase name, or "" if s has no letters or
// digits. Names starting with a digit get an "M" prefix, and the keyword
// Self gets a trailing underscore.
func typeIdentifier(s string) string {
	name := naming.ToUpperCamelCase(s)
	if name == "" {
		return ""
	}
	if c := name[0]; c >= '0' && c <= '9' {
		name = "M" + name
	}
	if !isASCII(name) {
		return ""
	}
	if name == "Self" {
		name += "_"
	}
	return name
}

// functionIdentifier returns a snake_case name usable as a method.
func functionIdentifier(s string) string {
	name := naming.ToSnakeCase(s)
	if name == "" || !isASCII(name) {
		return ""
	}
	if c := name[0]; c >= '0' && c <= '9' {
		name = "s" + name
	}
	if naming.IsReserved(name) {
		name += "_"
	}
	return name
}

func rawType(size uint, signed bool) string {
	width := 64
	switch {
	case size <= 8:
		width = 8
	case size <= 16:
		width = 16
	case size <= 32:
		width = 32
	}
	if signed {
		return "i" + strconv.Itoa(width)
	}
	return "u" + strconv.Itoa(width)
}

// rawRange returns the values a raw signal of the given size can hold.
func rawRange(size uint, signed bool) (lo, hi int64) {
	if signed {
		if size >= 64 {
			return math.MinInt64, math.MaxInt64
		}
		return -(1 << (size - 1)), 1<<(size-1) - 1
	}
	if size >= 63 {
		return 0, math.MaxInt64
	}
	return 0, 1<<size - 1
}

// floatLiteral formats f as a Rust float literal.
func floatLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func commentLines(s string) []string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r", ""))
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
