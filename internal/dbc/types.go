// SPDX-License-Identifier: MPL-2.0

package dbc

import "fmt"

const (
	// BigEndian is Motorola byte order (`@0` in a signal definition).
	BigEndian ByteOrder = iota
	// LittleEndian is Intel byte order (`@1` in a signal definition).
	LittleEndian
)

// extendedFrameFlag marks 29-bit identifiers in a BO_ message ID.
const extendedFrameFlag = 0x80000000

type (
	// ByteOrder is the bit layout of a signal inside the payload.
	ByteOrder int

	// File is a parsed network database.
	File struct {
		Version  string
		Nodes    []string
		Messages []Message
	}

	// Message is one BO_ definition with its signals.
	Message struct {
		// ID is the identifier as written in the file, including the
		// extended-frame flag bit.
		ID          uint32
		Name        string
		Size        uint
		Transmitter string
		Signals     []Signal
		Comment     string
		// Line is the line of the BO_ statement, for diagnostics.
		Line int
	}

	// Signal is one SG_ definition.
	Signal struct {
		Name string
		// Multiplexer is the raw multiplexer indicator ("", "M", "m0", ...).
		Multiplexer string
		StartBit    uint
		Size        uint
		ByteOrder   ByteOrder
		Signed      bool
		Factor      float64
		Offset      float64
		Min         float64
		Max         float64
		Unit        string
		Receivers   []string
		Comment     string
		Values      []ValueDescription
		Line        int
	}

	// ValueDescription names one raw value of a signal (VAL_).
	ValueDescription struct {
		Value       int64
		Description string
	}
)

// String returns the byte order name.
func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "BigEndian"
	case LittleEndian:
		return "LittleEndian"
	default:
		return fmt.Sprintf("ByteOrder(%d)", int(o))
	}
}

// IsExtended reports whether the message uses a 29-bit identifier.
func (m Message) IsExtended() bool { return m.ID&extendedFrameFlag != 0 }

// FrameID returns the CAN identifier without the extended-frame flag.
func (m Message) FrameID() uint32 { return m.ID &^ extendedFrameFlag }

// Bits returns the payload bit positions covered by the signal, from the
// least significant bit of the raw value to the most significant one.
// Positions use the DBC numbering: bit i is bit i%8 of byte i/8.
func (s Signal) Bits() []int {
	bits := make([]int, 0, s.Size)
	if s.ByteOrder == LittleEndian {
		for i := range int(s.Size) {
			bits = append(bits, int(s.StartBit)+i)
		}
		return bits
	}

	// Motorola start bit is the most significant bit; walk towards the LSB
	// following the sawtooth numbering, then reverse.
	msbFirst := make([]int, 0, s.Size)
	bit := int(s.StartBit)
	for range int(s.Size) {
		msbFirst = append(msbFirst, bit)
		if bit%8 == 0 {
			bit += 15
		} else {
			bit--
		}
	}
	for i := len(msbFirst) - 1; i >= 0; i-- {
		bits = append(bits, msbFirst[i])
	}
	return bits
}
