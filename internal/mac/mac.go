// Package mac describes the service the MAC layer offers to the data link
// control layer: the requests DLC issues and the values exchanged with them.
// Indications flow the other way and are delivered to the dlc.Manager.
package mac

import (
	"fmt"

	"github.com/danmuck/dectctl/internal/identity"
	"github.com/danmuck/dectctl/internal/protocol/tail"
)

// DataChannel is a logical MAC data channel.
type DataChannel uint8

const (
	ChannelGF DataChannel = iota
	ChannelCS
	ChannelCF
	ChannelIN
	ChannelIP
	ChannelSIN
	ChannelSIP
)

var channelNames = [...]string{
	ChannelGF:  "G_F",
	ChannelCS:  "C_S",
	ChannelCF:  "C_F",
	ChannelIN:  "I_N",
	ChannelIP:  "I_P",
	ChannelSIN: "SI_N",
	ChannelSIP: "SI_P",
}

func (c DataChannel) String() string {
	if int(c) < len(channelNames) {
		return channelNames[c]
	}
	return fmt.Sprintf("chan(%d)", uint8(c))
}

// Plane is the higher layer family a data channel belongs to.
type Plane uint8

const (
	PlaneNone Plane = iota
	PlaneControl
	PlaneUser
)

// Plane maps C_S and C_F to the C-plane and I_N and I_P to the U-plane.
// The remaining channels have no connection oriented consumer.
func (c DataChannel) Plane() Plane {
	switch c {
	case ChannelCS, ChannelCF:
		return PlaneControl
	case ChannelIN, ChannelIP:
		return PlaneUser
	default:
		return PlaneNone
	}
}

// CipherState is the requested or reported encryption state.
type CipherState uint8

const (
	CipherDisabled CipherState = iota
	CipherEnabled
)

func (s CipherState) String() string {
	switch s {
	case CipherDisabled:
		return "disabled"
	case CipherEnabled:
		return "enabled"
	default:
		return fmt.Sprintf("cipher(%d)", uint8(s))
	}
}

// Service types of the attributes-T service field.
const (
	ServiceINMinDelay    uint8 = 0x00
	ServiceIPXEncoded    uint8 = 0x01
	ServiceINNormalDelay uint8 = 0x02
	ServiceUnknown       uint8 = 0x04
	ServiceCOnly         uint8 = 0x05
)

// Slot types of the attributes-T slot field.
const (
	SlotHalf    uint8 = 0x0
	SlotLong640 uint8 = 0x1
	SlotLong672 uint8 = 0x2
	SlotFull    uint8 = 0x4
	SlotDouble  uint8 = 0x5
)

// ConnParams are the negotiated parameters of a MAC connection.
type ConnParams struct {
	Type                 tail.ConnectionType `json:"type"`
	Service              uint8               `json:"service"`
	Slot                 uint8               `json:"slot"`
	CF                   bool                `json:"cf"`
	ACR                  uint8               `json:"acr"`
	AModulation          tail.Modulation     `json:"a_mod"`
	BZModulation         tail.Modulation     `json:"bz_mod"`
	BZExtendedModulation uint8               `json:"bz_ext_mod"`
}

// DefaultParams is a basic full slot speech connection.
func DefaultParams() ConnParams {
	return ConnParams{
		Type:         tail.SymmetricBearer,
		Service:      ServiceINMinDelay,
		Slot:         SlotFull,
		ACR:          tail.ACRNone,
		AModulation:  tail.Modulation2Level,
		BZModulation: tail.Modulation2Level,
	}
}

// ParamsFromAttributes extracts the connection parameters of a received
// attributes-T message.
func ParamsFromAttributes(a tail.Attributes) ConnParams {
	return ConnParams{
		Type:                 a.Type,
		Service:              a.Service,
		Slot:                 a.Slot,
		CF:                   a.CF,
		ACR:                  a.ACR,
		AModulation:          a.AModulation,
		BZModulation:         a.BZModulation,
		BZExtendedModulation: a.BZExtendedModulation,
	}
}

// Attributes builds the attributes-T payload proposing p for the
// connection ecn on logical bearer lbn.
func (p ConnParams) Attributes(ecn, lbn uint8) tail.Attributes {
	return tail.Attributes{
		ECN:                  ecn,
		LBN:                  lbn,
		Type:                 p.Type,
		Service:              p.Service,
		Slot:                 p.Slot,
		CF:                   p.CF,
		BZExtendedModulation: p.BZExtendedModulation,
		ACR:                  p.ACR,
		AModulation:          p.AModulation,
		BZModulation:         p.BZModulation,
	}
}

// MBCID identifies a multi bearer control instance.
type MBCID struct {
	MCEI uint32        `json:"mcei"`
	ARI  identity.ARI  `json:"ari"`
	PMID identity.PMID `json:"pmid"`
	ECN  uint8         `json:"ecn"`
}

// MCI returns the connection identity, taking the LCN from the low ECN bits.
func (id MBCID) MCI() identity.MCI {
	return identity.MCI{ARI: id.ARI, PMID: id.PMID, LCN: identity.LCNFromECN(id.ECN)}
}

// Service is the request side of the MAC layer. Implementations must not
// call back into the issuing cluster synchronously.
type Service interface {
	ConnectRequest(id MBCID, params ConnParams) error
	DisconnectRequest(mcei uint32) error
	EncryptionKeyRequest(mcei uint32, key uint64) error
	EncryptionStateRequest(mcei uint32, state CipherState) error
	DataRequest(mcei uint32, ch DataChannel, payload []byte) error
}
