package dlc

import (
	"github.com/danmuck/dectctl/internal/mac"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/rs/zerolog"
)

// Upper receives the notifications of the Manager. ControlX methods belong
// to the C-plane, UserX methods to the U-plane. The DataReady methods
// return the next payload to send on the channel, or nil.
type Upper interface {
	StateChanged(c *Connection, from, to State)
	Disconnected(c *Connection, reason tail.ReleaseReason)
	EncryptionChanged(c *Connection, state mac.CipherState)
	ControlReceive(c *Connection, ch mac.DataChannel, payload []byte)
	UserReceive(c *Connection, ch mac.DataChannel, payload []byte)
	ControlDataReady(c *Connection, ch mac.DataChannel) []byte
	UserDataReady(c *Connection, ch mac.DataChannel) []byte
}

// NopUpper discards every notification.
type NopUpper struct{}

func (NopUpper) StateChanged(*Connection, State, State)               {}
func (NopUpper) Disconnected(*Connection, tail.ReleaseReason)         {}
func (NopUpper) EncryptionChanged(*Connection, mac.CipherState)       {}
func (NopUpper) ControlReceive(*Connection, mac.DataChannel, []byte)  {}
func (NopUpper) UserReceive(*Connection, mac.DataChannel, []byte)     {}
func (NopUpper) ControlDataReady(*Connection, mac.DataChannel) []byte { return nil }
func (NopUpper) UserDataReady(*Connection, mac.DataChannel) []byte    { return nil }

// LogUpper logs every notification. `dectctl serve` uses it in place of the
// higher layers.
type LogUpper struct {
	log zerolog.Logger
}

func NewLogUpper(logger zerolog.Logger) *LogUpper {
	return &LogUpper{log: logger.With().Str("component", "upper").Logger()}
}

func (u *LogUpper) StateChanged(c *Connection, from, to State) {
	u.log.Info().Uint32("mcei", c.MCEI()).Stringer("from", from).Stringer("to", to).Msg("dlc_state")
}

func (u *LogUpper) Disconnected(c *Connection, reason tail.ReleaseReason) {
	u.log.Info().Uint32("mcei", c.MCEI()).Stringer("reason", reason).Msg("dlc_disconnected")
}

func (u *LogUpper) EncryptionChanged(c *Connection, state mac.CipherState) {
	u.log.Info().Uint32("mcei", c.MCEI()).Stringer("cipher", state).Msg("dlc_encryption")
}

func (u *LogUpper) ControlReceive(c *Connection, ch mac.DataChannel, payload []byte) {
	u.log.Debug().Uint32("mcei", c.MCEI()).Stringer("chan", ch).Int("len", len(payload)).Msg("lc_receive")
}

func (u *LogUpper) UserReceive(c *Connection, ch mac.DataChannel, payload []byte) {
	u.log.Debug().Uint32("mcei", c.MCEI()).Stringer("chan", ch).Int("len", len(payload)).Msg("lu_receive")
}

func (u *LogUpper) ControlDataReady(*Connection, mac.DataChannel) []byte { return nil }
func (u *LogUpper) UserDataReady(*Connection, mac.DataChannel) []byte    { return nil }
