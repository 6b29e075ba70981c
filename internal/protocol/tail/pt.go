package tail

import "fmt"

// PageLength is the paging tail length code.
type PageLength uint8

const (
	ZeroPage PageLength = iota
	ShortPage
	FullPage
	ResumePage
	LongPage
	LongPageFirst
	LongPageLast
	LongPageAll
)

var pageLengthNames = [...]string{
	ZeroPage:      "zero",
	ShortPage:     "short",
	FullPage:      "full",
	ResumePage:    "resume",
	LongPage:      "long",
	LongPageFirst: "long_first",
	LongPageLast:  "long_last",
	LongPageAll:   "long_all",
}

func (l PageLength) String() string {
	if int(l) < len(pageLengthNames) {
		return pageLengthNames[l]
	}
	return fmt.Sprintf("length(%d)", uint8(l))
}

// hasInfo reports whether pages of length l carry MAC layer information.
func (l PageLength) hasInfo() bool {
	return l == ZeroPage || l == ShortPage || l == ResumePage
}

// InfoType is the MAC layer information type of a paging tail.
type InfoType uint8

const (
	InfoFillBits InfoType = iota
	InfoBlindFullSlot
	InfoOtherBearer
	InfoRecommendedOtherBearer
	InfoGoodRFPBearer
	InfoDummyOrCLBearerPosition
	InfoRFPIdentity
	InfoEscape
	InfoDummyOrCLBearerMarker
	InfoBearerHandover
	InfoRFPStatus
	InfoActiveCarriers
	InfoCLBearerPosition
	InfoRecommendedPowerLevel
	InfoBlindDoubleSlot
	InfoBlindFullSlotPacketMode
)

// IsBearerDescription reports whether t carries a bearer description.
func (t InfoType) IsBearerDescription() bool {
	switch t {
	case InfoOtherBearer, InfoRecommendedOtherBearer, InfoGoodRFPBearer,
		InfoDummyOrCLBearerPosition, InfoCLBearerPosition:
		return true
	}
	return false
}

// Page is a paging tail. RFPI is carried by zero length pages only, Data
// holds the B_S channel bits of all other lengths, Info is present exactly
// for zero, short and resume pages.
type Page struct {
	Extend bool       `json:"extend"`
	Length PageLength `json:"length"`
	RFPI   uint32     `json:"rfpi,omitempty"`
	Data   uint64     `json:"data,omitempty"`
	Info   PageInfo   `json:"info,omitempty"`
}

// PageInfo is the MAC layer information of a page.
type PageInfo interface {
	InfoType() InfoType
	isPageInfo()
}

// BlindFullSlot lists the full slots the RFP cannot receive on.
type BlindFullSlot struct {
	Mask uint16 `json:"mask"`
}

// BearerDesc describes a bearer; Type selects which bearer.
type BearerDesc struct {
	Type          InfoType `json:"type"`
	Slot          uint8    `json:"sn"`
	StartPosition uint8    `json:"sp"`
	Carrier       uint8    `json:"cn"`
}

type RFPIdentity struct {
	ID uint16 `json:"id"`
}

type RFPStatus struct {
	RFPBusy    bool `json:"rfp_busy"`
	SystemBusy bool `json:"sys_busy"`
}

type ActiveCarriers struct {
	Carriers uint16 `json:"active"`
}

func (BlindFullSlot) InfoType() InfoType  { return InfoBlindFullSlot }
func (b BearerDesc) InfoType() InfoType   { return b.Type }
func (RFPIdentity) InfoType() InfoType    { return InfoRFPIdentity }
func (RFPStatus) InfoType() InfoType      { return InfoRFPStatus }
func (ActiveCarriers) InfoType() InfoType { return InfoActiveCarriers }

func (BlindFullSlot) isPageInfo()  {}
func (BearerDesc) isPageInfo()     {}
func (RFPIdentity) isPageInfo()    {}
func (RFPStatus) isPageInfo()      {}
func (ActiveCarriers) isPageInfo() {}

var (
	fieldPTExtend = field{"pt_extend", 55, 1}
	fieldPTLength = field{"pt_length", 52, 3}

	fieldPTZeroRFPI  = field{"pt_rfpi", 32, 20}
	fieldPTShortData = field{"pt_short_bs", 32, 20}
	fieldPTLongData  = field{"pt_long_bs", 16, 36}

	fieldPTInfoType = field{"pt_info_type", 28, 4}

	fieldPTBFS            = field{"pt_bfs", 16, 12}
	fieldPTBearerSN       = field{"pt_bearer_sn", 24, 4}
	fieldPTBearerSP       = field{"pt_bearer_sp", 22, 2}
	fieldPTBearerCN       = field{"pt_bearer_cn", 16, 6}
	fieldPTRFPID          = field{"pt_rfp_id", 16, 12}
	fieldPTRFPBusy        = field{"pt_rfp_busy", 24, 1}
	fieldPTSysBusy        = field{"pt_sys_busy", 25, 1}
	fieldPTActiveCarriers = field{"pt_active_carriers", 18, 10}
)

func decodePage(w Word) (Message, error) {
	p := Page{
		Extend: fieldPTExtend.flag(w),
		Length: PageLength(fieldPTLength.get(w)),
	}
	switch p.Length {
	case ZeroPage:
		p.RFPI = uint32(fieldPTZeroRFPI.get(w))
	case ShortPage, ResumePage:
		p.Data = fieldPTShortData.get(w)
	default:
		p.Data = fieldPTLongData.get(w)
		return p, nil
	}
	info, err := decodePageInfo(w)
	if err != nil {
		return nil, err
	}
	p.Info = info
	return p, nil
}

func decodePageInfo(w Word) (PageInfo, error) {
	t := InfoType(fieldPTInfoType.get(w))
	switch {
	case t == InfoBlindFullSlot:
		return BlindFullSlot{Mask: uint16(fieldPTBFS.get(w))}, nil
	case t.IsBearerDescription():
		return BearerDesc{
			Type:          t,
			Slot:          uint8(fieldPTBearerSN.get(w)),
			StartPosition: uint8(fieldPTBearerSP.get(w)),
			Carrier:       uint8(fieldPTBearerCN.get(w)),
		}, nil
	case t == InfoRFPIdentity:
		return RFPIdentity{ID: uint16(fieldPTRFPID.get(w))}, nil
	case t == InfoRFPStatus:
		return RFPStatus{
			RFPBusy:    fieldPTRFPBusy.flag(w),
			SystemBusy: fieldPTSysBusy.flag(w),
		}, nil
	case t == InfoActiveCarriers:
		return ActiveCarriers{Carriers: uint16(fieldPTActiveCarriers.get(w))}, nil
	case t == InfoEscape:
		return nil, fmt.Errorf("%w: paging info type", ErrEscape)
	default:
		return nil, unsupported("paging info type", uint64(t))
	}
}

func encodePage(b *builder, p Page) {
	b.setFlag(fieldPTExtend, p.Extend)
	b.set(fieldPTLength, uint64(p.Length))
	switch p.Length {
	case ZeroPage:
		if p.Data != 0 {
			b.fail(fmt.Errorf("%w: zero page carries no B_S data", ErrInvalidCombination))
			return
		}
		b.set(fieldPTZeroRFPI, uint64(p.RFPI))
	case ShortPage, ResumePage:
		b.set(fieldPTShortData, p.Data)
	default:
		b.set(fieldPTLongData, p.Data)
	}
	if p.Length != ZeroPage && p.RFPI != 0 {
		b.fail(fmt.Errorf("%w: %s page carries no rfpi", ErrInvalidCombination, p.Length))
		return
	}
	if !p.Length.hasInfo() {
		if p.Info != nil {
			b.fail(fmt.Errorf("%w: %s page carries no mac information", ErrInvalidCombination, p.Length))
		}
		return
	}
	if p.Info == nil {
		b.fail(fmt.Errorf("%w: %s page requires mac information", ErrInvalidCombination, p.Length))
		return
	}
	encodePageInfo(b, p.Info)
}

func encodePageInfo(b *builder, info PageInfo) {
	b.set(fieldPTInfoType, uint64(info.InfoType()))
	switch info := info.(type) {
	case BlindFullSlot:
		b.set(fieldPTBFS, uint64(info.Mask))
	case BearerDesc:
		if !info.Type.IsBearerDescription() {
			b.fail(unsupported("bearer description type", uint64(info.Type)))
			return
		}
		b.set(fieldPTBearerSN, uint64(info.Slot))
		b.set(fieldPTBearerSP, uint64(info.StartPosition))
		b.set(fieldPTBearerCN, uint64(info.Carrier))
	case RFPIdentity:
		b.set(fieldPTRFPID, uint64(info.ID))
	case RFPStatus:
		b.setFlag(fieldPTRFPBusy, info.RFPBusy)
		b.setFlag(fieldPTSysBusy, info.SystemBusy)
	case ActiveCarriers:
		b.set(fieldPTActiveCarriers, uint64(info.Carriers))
	default:
		b.fail(unsupported("paging info type", uint64(info.InfoType())))
	}
}
