package tail

import (
	"fmt"

	"github.com/danmuck/dectctl/internal/identity"
)

var (
	fieldNTExtend = field{"nt_e", 55, 1}
	fieldNTPARI   = field{"nt_pari", 24, identity.ARIBits}
	fieldNTRPN    = field{"nt_rpn", 16, 8}
)

// CSSDUSize is the number of C_S bytes carried by one C_T tail.
const (
	CSSDUSize = 5
	ctShift   = 16
)

func decodeIdentities(w Word) (Message, error) {
	pari, err := identity.ParseARI(uint32(fieldNTPARI.get(w)))
	if err != nil {
		return nil, fmt.Errorf("%w: identities: %w", ErrReserved, err)
	}
	return Identities{
		Extend: fieldNTExtend.flag(w),
		PARI:   pari,
		RPN:    uint8(fieldNTRPN.get(w)),
	}, nil
}

func encodeIdentities(b *builder, m Identities) {
	if err := m.PARI.Validate(); err != nil {
		b.fail(fmt.Errorf("%w: identities: %w", ErrInvalidCombination, err))
		return
	}
	b.setFlag(fieldNTExtend, m.Extend)
	b.set(fieldNTPARI, uint64(m.PARI.Raw()))
	b.set(fieldNTRPN, uint64(m.RPN))
}

func decodeCTData(w Word, seq uint8) CTData {
	d := CTData{Seq: seq}
	for i := range CSSDUSize {
		d.Data[i] = byte(w >> (ctShift + uint(8*(CSSDUSize-1-i))))
	}
	return d
}

func encodeCTData(b *builder, id TailID, d CTData) {
	if uint64(d.Seq) != id.code() {
		b.fail(fmt.Errorf("%w: sequence %d on %s", ErrTailIDMismatch, d.Seq, id))
		return
	}
	for i := range CSSDUSize {
		b.w |= Word(d.Data[i]) << (ctShift + uint(8*(CSSDUSize-1-i)))
	}
}
