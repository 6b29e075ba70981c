package tail

import (
	"fmt"
	"strconv"
	"strings"
)

// Word is one A-field as transmitted: header byte, 40 bit T-field and the
// trailing R-CRC bits, most significant bit first.
type Word uint64

func (w Word) String() string {
	return fmt.Sprintf("%016x", uint64(w))
}

// ParseWord reads a word written in hex, with or without a 0x prefix.
func ParseWord(s string) (Word, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("tail: parse word %q: %w", s, err)
	}
	return Word(v), nil
}

// field is one fixed position in a Word.
type field struct {
	name  string
	shift uint
	width uint
}

func (f field) max() uint64 {
	return 1<<f.width - 1
}

func (f field) get(w Word) uint64 {
	return uint64(w>>f.shift) & f.max()
}

func (f field) flag(w Word) bool {
	return f.get(w) != 0
}

func (f field) put(v uint64) (Word, error) {
	if v > f.max() {
		return 0, &FieldError{Field: f.name, Value: v, Width: f.width}
	}
	return Word(v) << f.shift, nil
}

// builder ORs fields into a word and keeps the first range error.
type builder struct {
	w   Word
	err error
}

func (b *builder) set(f field, v uint64) {
	if b.err != nil {
		return
	}
	x, err := f.put(v)
	if err != nil {
		b.err = err
		return
	}
	b.w |= x
}

func (b *builder) setFlag(f field, v bool) {
	if v {
		b.set(f, 1)
	}
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) result() (Word, error) {
	if b.err != nil {
		return 0, b.err
	}
	return b.w, nil
}

// Header byte.
var fieldTA = field{"ta", 61, 3}

// Role is the local side of the air interface.
type Role uint8

const (
	FixedPart Role = iota
	PortablePart
)

func (r Role) String() string {
	switch r {
	case FixedPart:
		return "fp"
	case PortablePart:
		return "pp"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Peer returns the role at the other end of the link.
func (r Role) Peer() Role {
	if r == FixedPart {
		return PortablePart
	}
	return FixedPart
}

// TailID is the tail identification selecting the logical channel of a
// word. PT and MTFirst share code 7: paging is only transmitted by the fixed
// part, the first MAC control transmission only by the portable part.
type TailID uint8

const (
	CTPkt0 TailID = iota
	CTPkt1
	NTConnectionless
	NT
	QT
	ReservedTail
	MT
	PT
	MTFirst
)

var tailIDNames = [...]string{
	CTPkt0:           "CT0",
	CTPkt1:           "CT1",
	NTConnectionless: "NT_CL",
	NT:               "NT",
	QT:               "QT",
	ReservedTail:     "RESERVED",
	MT:               "MT",
	PT:               "PT",
	MTFirst:          "MT_FIRST",
}

func (id TailID) String() string {
	if int(id) < len(tailIDNames) {
		return tailIDNames[id]
	}
	return fmt.Sprintf("tail(%d)", uint8(id))
}

// code returns the 3 bit over-the-air tail identification.
func (id TailID) code() uint64 {
	if id == MTFirst {
		return 7
	}
	return uint64(id)
}

// transmitter returns the only role allowed to send id, if restricted.
func (id TailID) transmitter() (Role, bool) {
	switch id {
	case PT:
		return FixedPart, true
	case MTFirst:
		return PortablePart, true
	default:
		return 0, false
	}
}
