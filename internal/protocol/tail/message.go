package tail

import (
	"encoding/json"
	"fmt"

	"github.com/danmuck/dectctl/internal/identity"
)

// Kind names the message variant carried by a Tail.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindIdentities
	KindSSI
	KindERFC
	KindERFC2
	KindFPC
	KindEFPC
	KindEFPC2
	KindSARI
	KindMFN
	KindTXI
	KindPage
	KindCCtrl
	KindEncCtrl
	KindCTData
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindIdentities: "identities",
	KindSSI:        "ssi",
	KindERFC:       "erfc",
	KindERFC2:      "erfc2",
	KindFPC:        "fpc",
	KindEFPC:       "efpc",
	KindEFPC2:      "efpc2",
	KindSARI:       "sari",
	KindMFN:        "mfn",
	KindTXI:        "txi",
	KindPage:       "page",
	KindCCtrl:      "cctrl",
	KindEncCtrl:    "encctrl",
	KindCTData:     "ct_data",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Message is one decoded tail message. The set of implementations is closed.
type Message interface {
	Kind() Kind
	isMessage()
}

// Tail is a tagged tail message: the tail identification and the message it
// selects.
type Tail struct {
	ID  TailID
	Msg Message
}

// MarshalJSON renders a tail for reports. Tails are never read back from
// JSON; the wire form is the Word.
func (t Tail) MarshalJSON() ([]byte, error) {
	out := struct {
		ID   string  `json:"tail"`
		Kind string  `json:"kind"`
		Msg  Message `json:"msg"`
	}{ID: t.ID.String(), Msg: t.Msg}
	if t.Msg != nil {
		out.Kind = t.Msg.Kind().String()
	}
	return json.Marshal(out)
}

// accepts reports whether id may carry a message of kind k.
func accepts(id TailID, k Kind) bool {
	switch k {
	case KindSSI, KindERFC, KindERFC2, KindFPC, KindEFPC, KindEFPC2, KindSARI, KindMFN, KindTXI:
		return id == QT
	case KindPage:
		return id == PT
	case KindCCtrl, KindEncCtrl:
		return id == MT || id == MTFirst
	case KindIdentities:
		return id == NT || id == NTConnectionless
	case KindCTData:
		return id == CTPkt0 || id == CTPkt1
	default:
		return false
	}
}

// Identities is the N-channel identities information (RFPI).
type Identities struct {
	// Extend signals that SARIs are available.
	Extend bool         `json:"extend"`
	PARI   identity.ARI `json:"pari"`
	RPN    uint8        `json:"rpn"`
}

// SSI is the static system information.
type SSI struct {
	NormalReverse    bool   `json:"nr"`
	Slot             uint8  `json:"sn"`
	StartPosition    uint8  `json:"sp"`
	Escape           bool   `json:"esc"`
	Transceivers     uint8  `json:"txs"`
	ExtendedCarriers bool   `json:"mc"`
	Carriers         uint16 `json:"rfcars"`
	Carrier          uint8  `json:"cn"`
	PrimaryScan      uint8  `json:"pscn"`
}

// ERFC is the extended RF carrier information.
type ERFC struct {
	Carriers    uint32 `json:"rfcars"`
	Band        uint8  `json:"band"`
	Part2       bool   `json:"erfc2"`
	NumCarriers uint8  `json:"num_rfcars"`
}

// ERFC2 is the extended RF carrier information part 2.
type ERFC2 struct {
	Carriers uint32 `json:"rfcars"`
}

// FPC is the fixed part capabilities message.
type FPC struct {
	Capabilities uint32 `json:"fpc"`
	HigherLayer  uint16 `json:"hlc"`
}

// EFPC is the extended fixed part capabilities message.
type EFPC struct {
	Capabilities uint16 `json:"fpc"`
	HigherLayer  uint32 `json:"hlc"`
}

// EFPC2 is the extended fixed part capabilities part 2 message.
type EFPC2 struct {
	Capabilities uint16 `json:"fpc"`
	HigherLayer  uint32 `json:"hlc"`
}

// SARI is one entry of the secondary access rights identity list.
type SARI struct {
	// ListCycle is the declared list length, an even number from 2 to 16.
	ListCycle uint8        `json:"list_cycle"`
	TARI      bool         `json:"tari"`
	Black     bool         `json:"black"`
	ARI       identity.ARI `json:"ari"`
}

// MFN carries the multiframe number.
type MFN struct {
	Number uint32 `json:"num"`
}

// TXI is the transmit information message.
type TXI struct {
	Type       uint8 `json:"type"`
	PowerLevel uint8 `json:"pwl"`
}

// CTData is one numbered C_S segment.
type CTData struct {
	Seq  uint8           `json:"seq"`
	Data [CSSDUSize]byte `json:"data"`
}

func (Identities) Kind() Kind { return KindIdentities }
func (SSI) Kind() Kind        { return KindSSI }
func (ERFC) Kind() Kind       { return KindERFC }
func (ERFC2) Kind() Kind      { return KindERFC2 }
func (FPC) Kind() Kind        { return KindFPC }
func (EFPC) Kind() Kind       { return KindEFPC }
func (EFPC2) Kind() Kind      { return KindEFPC2 }
func (SARI) Kind() Kind       { return KindSARI }
func (MFN) Kind() Kind        { return KindMFN }
func (TXI) Kind() Kind        { return KindTXI }
func (Page) Kind() Kind       { return KindPage }
func (CCtrl) Kind() Kind      { return KindCCtrl }
func (EncCtrl) Kind() Kind    { return KindEncCtrl }
func (CTData) Kind() Kind     { return KindCTData }

func (Identities) isMessage() {}
func (SSI) isMessage()        {}
func (ERFC) isMessage()       {}
func (ERFC2) isMessage()      {}
func (FPC) isMessage()        {}
func (EFPC) isMessage()       {}
func (EFPC2) isMessage()      {}
func (SARI) isMessage()       {}
func (MFN) isMessage()        {}
func (TXI) isMessage()        {}
func (Page) isMessage()       {}
func (CCtrl) isMessage()      {}
func (EncCtrl) isMessage()    {}
func (CTData) isMessage()     {}
