package tail

import (
	"fmt"

	"github.com/danmuck/dectctl/internal/identity"
)

// Q-channel system information header codes.
const (
	qtSSI   = 0x0
	qtSSI2  = 0x1
	qtERFC  = 0x2
	qtFPC   = 0x3
	qtEFPC  = 0x4
	qtSARI  = 0x5
	qtMFN   = 0x6
	qtESC   = 0x7
	qtERFC2 = 0x9
	qtTXI   = 0xb
	qtEFPC2 = 0xc
)

// SARIListMax is the longest SARI list a list cycle can declare.
const SARIListMax = 16

var (
	fieldQTHeader = field{"qt_header", 52, 4}

	fieldSSINR     = field{"ssi_nr", 52, 1}
	fieldSSISN     = field{"ssi_sn", 48, 4}
	fieldSSISP     = field{"ssi_sp", 46, 2}
	fieldSSIEsc    = field{"ssi_esc", 45, 1}
	fieldSSITXS    = field{"ssi_txs", 43, 2}
	fieldSSIMC     = field{"ssi_mc", 42, 1}
	fieldSSIRFCars = field{"ssi_rfcars", 32, 10}
	fieldSSICN     = field{"ssi_cn", 24, 6}
	fieldSSIPSCN   = field{"ssi_pscn", 16, 6}

	fieldERFCRFCars    = field{"erfc_rfcars", 29, 23}
	fieldERFCBand      = field{"erfc_band", 24, 5}
	fieldERFCPart2     = field{"erfc_erfc2", 23, 1}
	fieldERFCNumRFCars = field{"erfc_num_rfcars", 16, 6}

	fieldERFC2RFCars = field{"erfc2_rfcars", 21, 31}

	fieldFPCCapability = field{"fpc_capability", 32, 20}
	fieldFPCHLC        = field{"fpc_hlc", 16, 16}

	fieldEFPCCapability = field{"efpc_capability", 39, 13}
	fieldEFPCHLC        = field{"efpc_hlc", 16, 23}

	fieldEFPC2Capability = field{"efpc2_capability", 40, 12}
	fieldEFPC2HLC        = field{"efpc2_hlc", 16, 24}

	fieldSARIListCycle = field{"sari_list_cycle", 41, 3}
	fieldSARITARI      = field{"sari_tari", 40, 1}
	fieldSARIBlack     = field{"sari_black", 39, 1}
	fieldSARIARI       = field{"sari_ari", 8, identity.ARIBits}

	fieldMFN = field{"mfn", 16, 24}

	fieldTXIType = field{"txi_type", 48, 4}
	fieldTXIPWL  = field{"txi_pwl", 40, 8}
)

func decodeQT(w Word) (Message, error) {
	switch h := fieldQTHeader.get(w); h {
	case qtSSI, qtSSI2:
		return SSI{
			NormalReverse:    fieldSSINR.flag(w),
			Slot:             uint8(fieldSSISN.get(w)),
			StartPosition:    uint8(fieldSSISP.get(w)),
			Escape:           fieldSSIEsc.flag(w),
			Transceivers:     uint8(fieldSSITXS.get(w)),
			ExtendedCarriers: fieldSSIMC.flag(w),
			Carriers:         uint16(fieldSSIRFCars.get(w)),
			Carrier:          uint8(fieldSSICN.get(w)),
			PrimaryScan:      uint8(fieldSSIPSCN.get(w)),
		}, nil
	case qtERFC:
		return ERFC{
			Carriers:    uint32(fieldERFCRFCars.get(w)),
			Band:        uint8(fieldERFCBand.get(w)),
			Part2:       fieldERFCPart2.flag(w),
			NumCarriers: uint8(fieldERFCNumRFCars.get(w)),
		}, nil
	case qtERFC2:
		return ERFC2{Carriers: uint32(fieldERFC2RFCars.get(w))}, nil
	case qtFPC:
		return FPC{
			Capabilities: uint32(fieldFPCCapability.get(w)),
			HigherLayer:  uint16(fieldFPCHLC.get(w)),
		}, nil
	case qtEFPC:
		return EFPC{
			Capabilities: uint16(fieldEFPCCapability.get(w)),
			HigherLayer:  uint32(fieldEFPCHLC.get(w)),
		}, nil
	case qtEFPC2:
		return EFPC2{
			Capabilities: uint16(fieldEFPC2Capability.get(w)),
			HigherLayer:  uint32(fieldEFPC2HLC.get(w)),
		}, nil
	case qtSARI:
		ari, err := identity.ParseARI(uint32(fieldSARIARI.get(w)))
		if err != nil {
			return nil, fmt.Errorf("%w: sari: %w", ErrReserved, err)
		}
		return SARI{
			ListCycle: uint8(fieldSARIListCycle.get(w)+1) * 2,
			TARI:      fieldSARITARI.flag(w),
			Black:     fieldSARIBlack.flag(w),
			ARI:       ari,
		}, nil
	case qtMFN:
		return MFN{Number: uint32(fieldMFN.get(w))}, nil
	case qtTXI:
		return TXI{
			Type:       uint8(fieldTXIType.get(w)),
			PowerLevel: uint8(fieldTXIPWL.get(w)),
		}, nil
	case qtESC:
		return nil, fmt.Errorf("%w: system information header", ErrEscape)
	default:
		return nil, reserved("system information header", h)
	}
}

func encodeQT(b *builder, m Message) {
	switch m := m.(type) {
	case SSI:
		b.set(fieldQTHeader, qtSSI)
		b.setFlag(fieldSSINR, m.NormalReverse)
		b.set(fieldSSISN, uint64(m.Slot))
		b.set(fieldSSISP, uint64(m.StartPosition))
		b.setFlag(fieldSSIEsc, m.Escape)
		b.set(fieldSSITXS, uint64(m.Transceivers))
		b.setFlag(fieldSSIMC, m.ExtendedCarriers)
		b.set(fieldSSIRFCars, uint64(m.Carriers))
		b.set(fieldSSICN, uint64(m.Carrier))
		b.set(fieldSSIPSCN, uint64(m.PrimaryScan))
	case ERFC:
		b.set(fieldQTHeader, qtERFC)
		b.set(fieldERFCRFCars, uint64(m.Carriers))
		b.set(fieldERFCBand, uint64(m.Band))
		b.setFlag(fieldERFCPart2, m.Part2)
		b.set(fieldERFCNumRFCars, uint64(m.NumCarriers))
	case ERFC2:
		b.set(fieldQTHeader, qtERFC2)
		b.set(fieldERFC2RFCars, uint64(m.Carriers))
	case FPC:
		b.set(fieldQTHeader, qtFPC)
		b.set(fieldFPCCapability, uint64(m.Capabilities))
		b.set(fieldFPCHLC, uint64(m.HigherLayer))
	case EFPC:
		b.set(fieldQTHeader, qtEFPC)
		b.set(fieldEFPCCapability, uint64(m.Capabilities))
		b.set(fieldEFPCHLC, uint64(m.HigherLayer))
	case EFPC2:
		b.set(fieldQTHeader, qtEFPC2)
		b.set(fieldEFPC2Capability, uint64(m.Capabilities))
		b.set(fieldEFPC2HLC, uint64(m.HigherLayer))
	case SARI:
		if m.ListCycle < 2 || m.ListCycle > SARIListMax || m.ListCycle%2 != 0 {
			b.fail(&FieldError{Field: fieldSARIListCycle.name, Value: uint64(m.ListCycle), Width: fieldSARIListCycle.width})
			return
		}
		if err := m.ARI.Validate(); err != nil {
			b.fail(fmt.Errorf("%w: sari: %w", ErrInvalidCombination, err))
			return
		}
		b.set(fieldQTHeader, qtSARI)
		b.set(fieldSARIListCycle, uint64(m.ListCycle/2-1))
		b.setFlag(fieldSARITARI, m.TARI)
		b.setFlag(fieldSARIBlack, m.Black)
		b.set(fieldSARIARI, uint64(m.ARI.Raw()))
	case MFN:
		b.set(fieldQTHeader, qtMFN)
		b.set(fieldMFN, uint64(m.Number))
	case TXI:
		b.set(fieldQTHeader, qtTXI)
		b.set(fieldTXIType, uint64(m.Type))
		b.set(fieldTXIPWL, uint64(m.PowerLevel))
	default:
		b.fail(fmt.Errorf("%w: %s on QT", ErrTailIDMismatch, m.Kind()))
	}
}
