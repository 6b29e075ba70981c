package tail

import (
	"fmt"

	"github.com/danmuck/dectctl/internal/identity"
)

// M-channel header codes.
const (
	mtBasicCCtrl    = 0x0
	mtAdvCCtrl      = 0x1
	mtMACTest       = 0x2
	mtQualityCtrl   = 0x3
	mtBrdCLService  = 0x4
	mtEncCtrl       = 0x5
	mtXYZ           = 0x6
	mtEscape        = 0x7
	mtTARI          = 0x8
	mtRepeaterCCtrl = 0x9
)

// CCtrlCommand is a connection control command.
type CCtrlCommand uint8

const (
	CCtrlAccessRequest             CCtrlCommand = 0x0
	CCtrlBearerHandoverRequest     CCtrlCommand = 0x1
	CCtrlConnectionHandoverRequest CCtrlCommand = 0x2
	CCtrlUnconfirmedAccessRequest  CCtrlCommand = 0x3
	CCtrlBearerConfirm             CCtrlCommand = 0x4
	CCtrlWait                      CCtrlCommand = 0x5
	CCtrlAttributesRequest         CCtrlCommand = 0x6
	CCtrlAttributesConfirm         CCtrlCommand = 0x7
	CCtrlBandwidthRequest          CCtrlCommand = 0x8
	CCtrlBandwidthConfirm          CCtrlCommand = 0x9
	CCtrlChannelList               CCtrlCommand = 0xa
	CCtrlUnconfirmedDummy          CCtrlCommand = 0xb
	CCtrlUnconfirmedHandover       CCtrlCommand = 0xc
	CCtrlRelease                   CCtrlCommand = 0xf
)

func (c CCtrlCommand) valid() bool {
	return c <= CCtrlUnconfirmedHandover || c == CCtrlRelease
}

func (c CCtrlCommand) isAttributes() bool {
	return c == CCtrlAttributesRequest || c == CCtrlAttributesConfirm
}

// ConnectionType is the connection type of an attributes-T message.
type ConnectionType uint8

const (
	AsymmetricUplink ConnectionType = iota
	AsymmetricDownlink
	SymmetricMultibearer
	SymmetricBearer
)

// Modulation is a modulation scheme code.
type Modulation uint8

const (
	Modulation8Level Modulation = 0x1
	Modulation4Level Modulation = 0x2
	Modulation2Level Modulation = 0x3
)

// ACRNone is the adaptive code rate of an unprotected connection.
const ACRNone uint8 = 0x0

// ReleaseReason is the reason code of a release message or a disconnect.
type ReleaseReason uint8

const (
	ReasonUnknown ReleaseReason = iota
	ReasonBearerRelease
	ReasonConnectionRelease
	ReasonBearerSetupOrHandoverFailed
	ReasonBearerHandoverCompleted
	ReasonBearerHandoverCluster
	ReasonTimeoutLostSignal
	ReasonTimeoutLostHandshake
	ReasonUnacceptableSlotType
	ReasonUnacceptableMACService
	ReasonBaseStationBusy
	ReasonReverseDirection
	ReasonDuplicatePMID
	ReasonUnacceptablePMID
	ReasonStayOnListen
)

var releaseReasonNames = [...]string{
	ReasonUnknown:                     "unknown",
	ReasonBearerRelease:               "bearer_release",
	ReasonConnectionRelease:           "connection_release",
	ReasonBearerSetupOrHandoverFailed: "bearer_setup_or_handover_failed",
	ReasonBearerHandoverCompleted:     "bearer_handover_completed",
	ReasonBearerHandoverCluster:       "bearer_handover_cluster",
	ReasonTimeoutLostSignal:           "timeout_lost_signal",
	ReasonTimeoutLostHandshake:        "timeout_lost_handshake",
	ReasonUnacceptableSlotType:        "unacceptable_slot_type",
	ReasonUnacceptableMACService:      "unacceptable_mac_service",
	ReasonBaseStationBusy:             "base_station_busy",
	ReasonReverseDirection:            "reverse_direction",
	ReasonDuplicatePMID:               "duplicate_pmid",
	ReasonUnacceptablePMID:            "unacceptable_pmid",
	ReasonStayOnListen:                "stay_on_listen",
}

func (r ReleaseReason) Valid() bool {
	return r <= ReasonStayOnListen
}

func (r ReleaseReason) String() string {
	if r.Valid() {
		return releaseReasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// Attributes are the connection attributes negotiated by attributes-T
// messages.
type Attributes struct {
	ECN                  uint8          `json:"ecn"`
	LBN                  uint8          `json:"lbn"`
	Type                 ConnectionType `json:"type"`
	Service              uint8          `json:"service"`
	Slot                 uint8          `json:"slot"`
	CF                   bool           `json:"cf"`
	BZExtendedModulation uint8          `json:"bz_ext_mod"`
	ACR                  uint8          `json:"acr"`
	AModulation          Modulation     `json:"a_mod"`
	BZModulation         Modulation     `json:"bz_mod"`
}

// Release is the payload of a release message.
type Release struct {
	Info   uint8         `json:"info"`
	LBN    uint8         `json:"lbn"`
	Reason ReleaseReason `json:"reason"`
}

// CCtrl is a basic or advanced connection control message. Attributes-T
// commands carry Attr and no identities, Release carries Rel and the PMID,
// all other commands carry FMID and PMID.
type CCtrl struct {
	Advanced bool          `json:"advanced"`
	Command  CCtrlCommand  `json:"cmd"`
	FMID     uint16        `json:"fmid"`
	PMID     identity.PMID `json:"pmid"`
	Attr     *Attributes   `json:"attr,omitempty"`
	Rel      *Release      `json:"rel,omitempty"`
}

// EncCommand is an encryption control command.
type EncCommand uint8

const (
	EncStartRequest EncCommand = 0x0
	EncStartConfirm EncCommand = 0x1
	EncStartGrant   EncCommand = 0x2
	EncStopRequest  EncCommand = 0x4
	EncStopConfirm  EncCommand = 0x5
	EncStopGrant    EncCommand = 0x6
)

func (c EncCommand) valid() bool {
	return c <= EncStartGrant || (c >= EncStopRequest && c <= EncStopGrant)
}

// EncCtrl is an encryption control message.
type EncCtrl struct {
	Command EncCommand    `json:"cmd"`
	FMID    uint16        `json:"fmid"`
	PMID    identity.PMID `json:"pmid"`
}

var (
	fieldMTHeader  = field{"mt_header", 52, 4}
	fieldMTCommand = field{"mt_command", 48, 4}

	fieldCCtrlFMID = field{"cctrl_fmid", 36, 12}
	fieldCCtrlPMID = field{"cctrl_pmid", 16, identity.PMIDBits}

	fieldAttrECN      = field{"attr_ecn", 44, 4}
	fieldAttrLBN      = field{"attr_lbn", 40, 4}
	fieldAttrType     = field{"attr_type", 38, 2}
	fieldAttrService  = field{"attr_service", 32, 6}
	fieldAttrSlot     = field{"attr_slot", 28, 4}
	fieldAttrCF       = field{"attr_cf", 27, 1}
	fieldAttrBZExtMod = field{"attr_bz_ext_mod", 24, 3}
	fieldAttrACR      = field{"attr_acr", 20, 4}
	fieldAttrAMod     = field{"attr_a_mod", 18, 2}
	fieldAttrBZMod    = field{"attr_bz_mod", 16, 2}

	fieldReleaseInfo   = field{"release_info", 44, 4}
	fieldReleaseLBN    = field{"release_lbn", 40, 4}
	fieldReleaseReason = field{"release_reason", 36, 4}
	fieldReleasePMID   = field{"release_pmid", 16, identity.PMIDBits}
)

func decodeMT(w Word) (Message, error) {
	switch h := fieldMTHeader.get(w); h {
	case mtBasicCCtrl, mtAdvCCtrl:
		return decodeCCtrl(w, h == mtAdvCCtrl)
	case mtEncCtrl:
		cmd := EncCommand(fieldMTCommand.get(w))
		if !cmd.valid() {
			return nil, reserved("encryption control command", uint64(cmd))
		}
		return EncCtrl{
			Command: cmd,
			FMID:    uint16(fieldCCtrlFMID.get(w)),
			PMID:    identity.PMID(fieldCCtrlPMID.get(w)),
		}, nil
	case mtEscape:
		return nil, fmt.Errorf("%w: mac control header", ErrEscape)
	case mtMACTest, mtQualityCtrl, mtBrdCLService, mtXYZ, mtTARI, mtRepeaterCCtrl:
		return nil, unsupported("mac control header", h)
	default:
		return nil, reserved("mac control header", h)
	}
}

func decodeCCtrl(w Word, advanced bool) (Message, error) {
	c := CCtrl{
		Advanced: advanced,
		Command:  CCtrlCommand(fieldMTCommand.get(w)),
	}
	switch {
	case !c.Command.valid():
		return nil, reserved("connection control command", uint64(c.Command))
	case c.Command.isAttributes():
		c.Attr = &Attributes{
			ECN:                  uint8(fieldAttrECN.get(w)),
			LBN:                  uint8(fieldAttrLBN.get(w)),
			Type:                 ConnectionType(fieldAttrType.get(w)),
			Service:              uint8(fieldAttrService.get(w)),
			Slot:                 uint8(fieldAttrSlot.get(w)),
			CF:                   fieldAttrCF.flag(w),
			BZExtendedModulation: uint8(fieldAttrBZExtMod.get(w)),
			ACR:                  uint8(fieldAttrACR.get(w)),
			AModulation:          Modulation(fieldAttrAMod.get(w)),
			BZModulation:         Modulation(fieldAttrBZMod.get(w)),
		}
	case c.Command == CCtrlRelease:
		reason := ReleaseReason(fieldReleaseReason.get(w))
		if !reason.Valid() {
			return nil, reserved("release reason", uint64(reason))
		}
		c.Rel = &Release{
			Info:   uint8(fieldReleaseInfo.get(w)),
			LBN:    uint8(fieldReleaseLBN.get(w)),
			Reason: reason,
		}
		c.PMID = identity.PMID(fieldReleasePMID.get(w))
	default:
		c.FMID = uint16(fieldCCtrlFMID.get(w))
		c.PMID = identity.PMID(fieldCCtrlPMID.get(w))
	}
	return c, nil
}

func encodeMT(b *builder, m Message) {
	switch m := m.(type) {
	case CCtrl:
		encodeCCtrl(b, m)
	case EncCtrl:
		if !m.Command.valid() {
			b.fail(reserved("encryption control command", uint64(m.Command)))
			return
		}
		b.set(fieldMTHeader, mtEncCtrl)
		b.set(fieldMTCommand, uint64(m.Command))
		b.set(fieldCCtrlFMID, uint64(m.FMID))
		b.set(fieldCCtrlPMID, uint64(m.PMID))
	default:
		b.fail(fmt.Errorf("%w: %s on MT", ErrTailIDMismatch, m.Kind()))
	}
}

func encodeCCtrl(b *builder, c CCtrl) {
	if !c.Command.valid() {
		b.fail(reserved("connection control command", uint64(c.Command)))
		return
	}
	if c.Advanced {
		b.set(fieldMTHeader, mtAdvCCtrl)
	} else {
		b.set(fieldMTHeader, mtBasicCCtrl)
	}
	b.set(fieldMTCommand, uint64(c.Command))

	switch {
	case c.Command.isAttributes():
		if c.Attr == nil || c.Rel != nil || c.FMID != 0 || c.PMID != 0 {
			b.fail(fmt.Errorf("%w: attributes-T carries only attributes", ErrInvalidCombination))
			return
		}
		a := c.Attr
		b.set(fieldAttrECN, uint64(a.ECN))
		b.set(fieldAttrLBN, uint64(a.LBN))
		b.set(fieldAttrType, uint64(a.Type))
		b.set(fieldAttrService, uint64(a.Service))
		b.set(fieldAttrSlot, uint64(a.Slot))
		b.setFlag(fieldAttrCF, a.CF)
		b.set(fieldAttrBZExtMod, uint64(a.BZExtendedModulation))
		b.set(fieldAttrACR, uint64(a.ACR))
		b.set(fieldAttrAMod, uint64(a.AModulation))
		b.set(fieldAttrBZMod, uint64(a.BZModulation))
	case c.Command == CCtrlRelease:
		if c.Rel == nil || c.Attr != nil || c.FMID != 0 {
			b.fail(fmt.Errorf("%w: release carries release fields and pmid", ErrInvalidCombination))
			return
		}
		if !c.Rel.Reason.Valid() {
			b.fail(reserved("release reason", uint64(c.Rel.Reason)))
			return
		}
		b.set(fieldReleaseInfo, uint64(c.Rel.Info))
		b.set(fieldReleaseLBN, uint64(c.Rel.LBN))
		b.set(fieldReleaseReason, uint64(c.Rel.Reason))
		b.set(fieldReleasePMID, uint64(c.PMID))
	default:
		if c.Attr != nil || c.Rel != nil {
			b.fail(fmt.Errorf("%w: command 0x%x carries no payload", ErrInvalidCombination, uint8(c.Command)))
			return
		}
		b.set(fieldCCtrlFMID, uint64(c.FMID))
		b.set(fieldCCtrlPMID, uint64(c.PMID))
	}
}
