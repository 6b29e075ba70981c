// Package sysinfo folds the system information broadcast on the Q channel
// into one snapshot per cluster.
//
// Every message kind overwrites its stored value and sets a freshness bit.
// Freshness is advisory: nothing is rejected for arriving early, and a
// consumer decides from the mask whether the cell is characterized well
// enough for its purpose.
package sysinfo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/dectctl/internal/protocol/tail"
)

var ErrNotSystemInfo = errors.New("sysinfo: not a system information message")

// Freshness has one bit per system information kind.
type Freshness uint16

const (
	FreshSSI Freshness = 1 << iota
	FreshERFC
	FreshERFC2
	FreshFPC
	FreshEFPC
	FreshEFPC2
	FreshSARI
	FreshMFN
	FreshTXI
)

// FreshIdle is what a portable part needs before it may lock to a cell.
const FreshIdle = FreshSSI | FreshFPC | FreshMFN

var freshnessNames = []struct {
	bit  Freshness
	name string
}{
	{FreshSSI, "ssi"},
	{FreshERFC, "erfc"},
	{FreshERFC2, "erfc2"},
	{FreshFPC, "fpc"},
	{FreshEFPC, "efpc"},
	{FreshEFPC2, "efpc2"},
	{FreshSARI, "sari"},
	{FreshMFN, "mfn"},
	{FreshTXI, "txi"},
}

// Has reports whether every bit of want is set.
func (f Freshness) Has(want Freshness) bool {
	return f&want == want
}

func (f Freshness) String() string {
	if f == 0 {
		return "none"
	}
	parts := make([]string, 0, len(freshnessNames))
	for _, n := range freshnessNames {
		if f&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

func (f Freshness) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// SystemInfo is a consolidated view of the broadcast. A field is only
// meaningful once its Mask bit is set.
type SystemInfo struct {
	Mask     Freshness                   `json:"mask"`
	SSI      tail.SSI                    `json:"ssi"`
	ERFC     tail.ERFC                   `json:"erfc"`
	ERFC2    tail.ERFC2                  `json:"erfc2"`
	FPC      tail.FPC                    `json:"fpc"`
	EFPC     tail.EFPC                   `json:"efpc"`
	EFPC2    tail.EFPC2                  `json:"efpc2"`
	SARIs    [tail.SARIListMax]tail.SARI `json:"-"`
	NumSARIs int                         `json:"num_saris"`
	MFN      tail.MFN                    `json:"mfn"`
	TXI      tail.TXI                    `json:"txi"`
}

// SARIList returns the received SARI entries in list order.
func (s SystemInfo) SARIList() []tail.SARI {
	return append([]tail.SARI(nil), s.SARIs[:s.NumSARIs]...)
}

// Aggregator is not safe for concurrent use; each cluster owns one.
type Aggregator struct {
	info SystemInfo

	sariCycle uint8
	sariNext  int
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Apply folds m into the snapshot. Messages of other channels are refused
// with ErrNotSystemInfo and leave the snapshot untouched.
func (a *Aggregator) Apply(m tail.Message) error {
	switch m := m.(type) {
	case tail.SSI:
		a.info.SSI = m
		a.info.Mask |= FreshSSI
	case tail.ERFC:
		a.info.ERFC = m
		a.info.Mask |= FreshERFC
	case tail.ERFC2:
		a.info.ERFC2 = m
		a.info.Mask |= FreshERFC2
	case tail.FPC:
		a.info.FPC = m
		a.info.Mask |= FreshFPC
	case tail.EFPC:
		a.info.EFPC = m
		a.info.Mask |= FreshEFPC
	case tail.EFPC2:
		a.info.EFPC2 = m
		a.info.Mask |= FreshEFPC2
	case tail.SARI:
		a.applySARI(m)
	case tail.MFN:
		a.info.MFN = m
		a.info.Mask |= FreshMFN
	case tail.TXI:
		a.info.TXI = m
		a.info.Mask |= FreshTXI
	case nil:
		return fmt.Errorf("%w: nil", ErrNotSystemInfo)
	default:
		return fmt.Errorf("%w: %s", ErrNotSystemInfo, m.Kind())
	}
	return nil
}

func sariListLen(cycle uint8) int {
	if cycle < 1 || int(cycle) > tail.SARIListMax {
		return tail.SARIListMax
	}
	return int(cycle)
}

// applySARI keeps a list of at most ListCycle entries. A different list
// cycle starts a new list; a full list is overwritten from its start. The
// SARI bit is set by every entry, like any other kind.
func (a *Aggregator) applySARI(m tail.SARI) {
	cycle := sariListLen(m.ListCycle)
	if m.ListCycle != a.sariCycle {
		a.sariCycle = m.ListCycle
		a.sariNext = 0
		a.info.NumSARIs = 0
		a.info.SARIs = [tail.SARIListMax]tail.SARI{}
	}
	if a.sariNext >= cycle {
		a.sariNext = 0
	}
	a.info.SARIs[a.sariNext] = m
	a.sariNext++
	if a.info.NumSARIs < cycle {
		a.info.NumSARIs++
	}
	a.info.Mask |= FreshSARI
}

// SARIComplete reports whether a whole list cycle of SARI entries is held.
func (a *Aggregator) SARIComplete() bool {
	return a.info.NumSARIs > 0 && a.info.NumSARIs == sariListLen(a.sariCycle)
}

// Snapshot returns a copy of the current view.
func (a *Aggregator) Snapshot() SystemInfo {
	return a.info
}

// Complete reports whether every kind in required has been received.
func (a *Aggregator) Complete(required Freshness) bool {
	return a.info.Mask.Has(required)
}

// Reset forgets everything, as after losing the cell.
func (a *Aggregator) Reset() {
	*a = Aggregator{}
}
