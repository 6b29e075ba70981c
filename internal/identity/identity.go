// Package identity holds the DECT identities used as connection keys and in
// broadcast messages: access rights identities (ARI), portable MAC identities
// (PMID) and the MAC connection identity triple (MCI).
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidARI  = errors.New("identity: invalid ari")
	ErrInvalidPMID = errors.New("identity: invalid pmid")
	ErrInvalidLCN  = errors.New("identity: invalid lcn")
)

const (
	// ARIBits is the over-the-air width of an ARI in SARI and RFPI fields.
	ARIBits       = 31
	ariValueBits  = 28
	ariValueMask  = 1<<ariValueBits - 1
	PMIDBits      = 20
	pmidMask      = 1<<PMIDBits - 1
	LCNBits       = 3
	lcnMask       = 1<<LCNBits - 1
	ariClassShift = ariValueBits
)

// ARIClass selects the structure of the class specific ARI bits.
type ARIClass uint8

const (
	ClassA ARIClass = iota
	ClassB
	ClassC
	ClassD
	ClassE
)

func (c ARIClass) Valid() bool {
	return c <= ClassE
}

func (c ARIClass) String() string {
	if !c.Valid() {
		return fmt.Sprintf("class(%d)", uint8(c))
	}
	return string(rune('A' + c))
}

// ARI is an access rights identity: a 3 bit class followed by 28 class
// specific bits.
type ARI struct {
	Class ARIClass `json:"class"`
	Value uint32   `json:"value"`
}

// ParseARI splits a 31 bit over-the-air ARI. Reserved classes are rejected.
func ParseARI(raw uint32) (ARI, error) {
	if raw>>ARIBits != 0 {
		return ARI{}, fmt.Errorf("%w: 0x%x exceeds %d bits", ErrInvalidARI, raw, ARIBits)
	}
	a := ARI{
		Class: ARIClass(raw >> ariClassShift),
		Value: raw & ariValueMask,
	}
	if !a.Class.Valid() {
		return ARI{}, fmt.Errorf("%w: reserved %s", ErrInvalidARI, a.Class)
	}
	return a, nil
}

func (a ARI) Validate() error {
	if !a.Class.Valid() {
		return fmt.Errorf("%w: reserved %s", ErrInvalidARI, a.Class)
	}
	if a.Value > ariValueMask {
		return fmt.Errorf("%w: value 0x%x exceeds %d bits", ErrInvalidARI, a.Value, ariValueBits)
	}
	return nil
}

// Raw returns the 31 bit over-the-air form.
func (a ARI) Raw() uint32 {
	return uint32(a.Class)<<ariClassShift | a.Value&ariValueMask
}

func (a ARI) String() string {
	return fmt.Sprintf("%s:%07x", a.Class, a.Value)
}

func (a ARI) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the "<class>:<hex value>" form produced by String.
func (a *ARI) UnmarshalText(text []byte) error {
	class, value, ok := strings.Cut(strings.TrimSpace(string(text)), ":")
	if !ok || len(class) != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidARI, text)
	}
	c := ARIClass(strings.ToUpper(class)[0] - 'A')
	v, err := strconv.ParseUint(value, 16, ariValueBits)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidARI, text, err)
	}
	parsed := ARI{Class: c, Value: uint32(v)}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*a = parsed
	return nil
}

// PMID is a 20 bit portable MAC identity.
type PMID uint32

func (p PMID) Validate() error {
	if p > pmidMask {
		return fmt.Errorf("%w: 0x%x exceeds %d bits", ErrInvalidPMID, uint32(p), PMIDBits)
	}
	return nil
}

func (p PMID) String() string {
	return fmt.Sprintf("%05x", uint32(p))
}

// MCI identifies a MAC connection between two parties. It is unique among
// the live connections of a cluster.
type MCI struct {
	ARI  ARI   `json:"ari"`
	PMID PMID  `json:"pmid"`
	LCN  uint8 `json:"lcn"`
}

func (m MCI) Validate() error {
	if err := m.ARI.Validate(); err != nil {
		return err
	}
	if err := m.PMID.Validate(); err != nil {
		return err
	}
	if m.LCN > lcnMask {
		return fmt.Errorf("%w: %d exceeds %d bits", ErrInvalidLCN, m.LCN, LCNBits)
	}
	return nil
}

// LCNFromECN derives the logical connection number carried in the low bits
// of an exchanged connection number.
func LCNFromECN(ecn uint8) uint8 {
	return ecn & lcnMask
}

func (m MCI) String() string {
	return fmt.Sprintf("%s/%s/%d", m.ARI, m.PMID, m.LCN)
}
