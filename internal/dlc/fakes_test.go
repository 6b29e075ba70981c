package dlc

import (
	"errors"
	"fmt"

	"github.com/danmuck/dectctl/internal/mac"
	"github.com/danmuck/dectctl/internal/protocol/tail"
)

var errRadioDown = errors.New("radio down")

// recorder is both the MAC service and the upper layer; calls are logged
// in order so tests can check what happened before what.
type recorder struct {
	calls   []string
	failCon bool
	failDis bool
	ready   map[mac.DataChannel][]byte
}

func newRecorder() *recorder {
	return &recorder{ready: make(map[mac.DataChannel][]byte)}
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) reset() {
	r.calls = nil
}

func (r *recorder) ConnectRequest(id mac.MBCID, _ mac.ConnParams) error {
	if r.failCon {
		return errRadioDown
	}
	r.add("con_req %d", id.MCEI)
	return nil
}

func (r *recorder) DisconnectRequest(mcei uint32) error {
	r.add("dis_req %d", mcei)
	if r.failDis {
		return errRadioDown
	}
	return nil
}

func (r *recorder) EncryptionKeyRequest(mcei uint32, key uint64) error {
	r.add("enc_key_req %d %x", mcei, key)
	return nil
}

func (r *recorder) EncryptionStateRequest(mcei uint32, state mac.CipherState) error {
	r.add("enc_eks_req %d %s", mcei, state)
	return nil
}

func (r *recorder) DataRequest(mcei uint32, ch mac.DataChannel, payload []byte) error {
	r.add("data_req %d %s %x", mcei, ch, payload)
	return nil
}

func (r *recorder) StateChanged(c *Connection, from, to State) {
	r.add("state %d %s->%s", c.MCEI(), from, to)
}

func (r *recorder) Disconnected(c *Connection, reason tail.ReleaseReason) {
	r.add("disconnected %d %s", c.MCEI(), reason)
}

func (r *recorder) EncryptionChanged(c *Connection, state mac.CipherState) {
	r.add("cipher %d %s", c.MCEI(), state)
}

func (r *recorder) ControlReceive(c *Connection, ch mac.DataChannel, payload []byte) {
	r.add("cplane_rcv %d %s %x", c.MCEI(), ch, payload)
}

func (r *recorder) UserReceive(c *Connection, ch mac.DataChannel, payload []byte) {
	r.add("uplane_rcv %d %s %x", c.MCEI(), ch, payload)
}

func (r *recorder) ControlDataReady(c *Connection, ch mac.DataChannel) []byte {
	r.add("cplane_dtr %d %s", c.MCEI(), ch)
	return r.ready[ch]
}

func (r *recorder) UserDataReady(c *Connection, ch mac.DataChannel) []byte {
	r.add("uplane_dtr %d %s", c.MCEI(), ch)
	return r.ready[ch]
}
