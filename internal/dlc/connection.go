package dlc

import (
	"fmt"

	"github.com/danmuck/dectctl/internal/identity"
	"github.com/danmuck/dectctl/internal/mac"
)

// State is the state of a MAC connection.
type State uint8

const (
	StateClosed State = iota
	StateOpenPending
	StateOpen
)

var stateNames = [...]string{
	StateClosed:      "CLOSED",
	StateOpenPending: "OPEN_PENDING",
	StateOpen:        "OPEN",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Connection is one MAC connection. It is owned by a Table and only
// mutated through the Manager.
type Connection struct {
	mci       identity.MCI
	mcei      uint32
	state     State
	refs      uint32
	params    mac.ConnParams
	key       uint64
	hasKey    bool
	cipher    mac.CipherState
	destroyed bool
}

func (c *Connection) MCI() identity.MCI       { return c.mci }
func (c *Connection) MCEI() uint32            { return c.mcei }
func (c *Connection) State() State            { return c.state }
func (c *Connection) Refs() uint32            { return c.refs }
func (c *Connection) Params() mac.ConnParams  { return c.params }
func (c *Connection) Cipher() mac.CipherState { return c.cipher }
func (c *Connection) Destroyed() bool         { return c.destroyed }

// CipherKey returns the key stored by the last key request.
func (c *Connection) CipherKey() (uint64, bool) {
	return c.key, c.hasKey
}

func (c *Connection) mbcID() mac.MBCID {
	return mac.MBCID{
		MCEI: c.mcei,
		ARI:  c.mci.ARI,
		PMID: c.mci.PMID,
		ECN:  c.mci.LCN,
	}
}

func (c *Connection) String() string {
	return fmt.Sprintf("mcei=%d mci=%s state=%s refs=%d", c.mcei, c.mci, c.state, c.refs)
}

// Info is a point in time copy of a connection for reporting.
type Info struct {
	MCEI   uint32          `json:"mcei"`
	MCI    identity.MCI    `json:"mci"`
	State  State           `json:"state"`
	Refs   uint32          `json:"refs"`
	Params mac.ConnParams  `json:"params"`
	HasKey bool            `json:"has_key"`
	Cipher mac.CipherState `json:"cipher"`
}

func (c *Connection) Info() Info {
	return Info{
		MCEI:   c.mcei,
		MCI:    c.mci,
		State:  c.state,
		Refs:   c.refs,
		Params: c.params,
		HasKey: c.hasKey,
		Cipher: c.cipher,
	}
}
