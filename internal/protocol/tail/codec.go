package tail

import "fmt"

// Codec encodes the tails transmitted by its local role and decodes the
// tails received from the peer. It holds no state besides the role and is
// safe for concurrent use.
type Codec struct {
	Local Role
}

func NewCodec(local Role) Codec {
	return Codec{Local: local}
}

// Peer returns the codec used at the other end of the link.
func (c Codec) Peer() Codec {
	return Codec{Local: c.Local.Peer()}
}

// Decode translates one received word. Reserved and escape codes are
// returned as errors wrapping ErrReserved, ErrEscape or ErrUnsupported.
func (c Codec) Decode(w Word) (Tail, error) {
	code := fieldTA.get(w)
	var (
		id  TailID
		msg Message
		err error
	)
	switch code {
	case 0, 1:
		id = TailID(code)
		msg = decodeCTData(w, uint8(code))
	case 2, 3:
		id = TailID(code)
		msg, err = decodeIdentities(w)
	case 4:
		id = QT
		msg, err = decodeQT(w)
	case 6:
		id = MT
		msg, err = decodeMT(w)
	case 7:
		// The peer transmitted this word, so its role decides the meaning.
		if c.Local == PortablePart {
			id = PT
			msg, err = decodePage(w)
		} else {
			id = MTFirst
			msg, err = decodeMT(w)
		}
	default:
		return Tail{}, reserved("tail identification", code)
	}
	if err != nil {
		return Tail{}, err
	}
	return Tail{ID: id, Msg: msg}, nil
}

// Encode translates one tail for transmission by the local role. Every
// field is checked against its bit width.
func (c Codec) Encode(t Tail) (Word, error) {
	if t.Msg == nil {
		return 0, ErrNilMessage
	}
	if t.ID == ReservedTail || t.ID > MTFirst {
		return 0, reserved("tail identification", uint64(t.ID))
	}
	if role, ok := t.ID.transmitter(); ok && role != c.Local {
		return 0, fmt.Errorf("%w: %s sent by %s", ErrRoleMismatch, t.ID, c.Local)
	}
	if !accepts(t.ID, t.Msg.Kind()) {
		return 0, fmt.Errorf("%w: %s on %s", ErrTailIDMismatch, t.Msg.Kind(), t.ID)
	}

	b := &builder{}
	b.set(fieldTA, t.ID.code())
	switch m := t.Msg.(type) {
	case CTData:
		encodeCTData(b, t.ID, m)
	case Identities:
		encodeIdentities(b, m)
	case Page:
		encodePage(b, m)
	case CCtrl, EncCtrl:
		encodeMT(b, m)
	default:
		encodeQT(b, m)
	}
	return b.result()
}

// MustEncode is Encode for fixtures built from known good values.
func (c Codec) MustEncode(t Tail) Word {
	w, err := c.Encode(t)
	if err != nil {
		panic(err)
	}
	return w
}
