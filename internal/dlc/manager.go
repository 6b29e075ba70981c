package dlc

import (
	"fmt"

	"github.com/danmuck/dectctl/internal/identity"
	"github.com/danmuck/dectctl/internal/mac"
	"github.com/danmuck/dectctl/internal/observability"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/rs/zerolog"
)

// Options configures a Manager.
type Options struct {
	Cluster        string
	MaxConnections int
	Logger         zerolog.Logger
}

// Stats counts what the Manager created, destroyed and refused.
type Stats struct {
	Created         uint64 `json:"created"`
	Destroyed       uint64 `json:"destroyed"`
	Transitions     uint64 `json:"transitions"`
	NotFound        uint64 `json:"not_found"`
	StateViolations uint64 `json:"state_violations"`
	Unmapped        uint64 `json:"unmapped"`
}

// Manager runs the connection state machines of one cluster.
type Manager struct {
	cluster string
	table   *Table
	svc     mac.Service
	upper   Upper
	log     zerolog.Logger
	drops   zerolog.Logger
	stats   Stats
}

func NewManager(svc mac.Service, upper Upper, opts Options) *Manager {
	if upper == nil {
		upper = NopUpper{}
	}
	logger := opts.Logger.With().Str("component", "dlc").Str("cluster", opts.Cluster).Logger()
	return &Manager{
		cluster: opts.Cluster,
		table:   NewTable(opts.MaxConnections),
		svc:     svc,
		upper:   upper,
		log:     logger,
		drops:   observability.Sampled(logger, 10),
	}
}

func (m *Manager) Len() int {
	return m.table.Len()
}

func (m *Manager) Stats() Stats {
	return m.stats
}

// Connections reports every registered connection ordered by MCEI.
func (m *Manager) Connections() []Info {
	conns := m.table.Connections()
	out := make([]Info, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Info())
	}
	return out
}

// Create registers a CLOSED connection for mci. A nil mcei allocates one.
func (m *Manager) Create(mci identity.MCI, mcei *uint32) (*Connection, error) {
	c, err := m.table.Insert(mci, mcei)
	if err != nil {
		return nil, err
	}
	m.stats.Created++
	observability.SetConnections(m.cluster, m.table.Len())
	m.log.Debug().Uint32("mcei", c.mcei).Str("mci", mci.String()).Msg("mac_conn_init")
	return c, nil
}

func (m *Manager) Lookup(mcei uint32) (*Connection, error) {
	c, ok := m.table.Get(mcei)
	if !ok {
		return nil, fmt.Errorf("%w: mcei %d", ErrNotFound, mcei)
	}
	return c, nil
}

func (m *Manager) LookupMCI(mci identity.MCI) (*Connection, error) {
	c, ok := m.table.GetMCI(mci)
	if !ok {
		return nil, fmt.Errorf("%w: mci %s", ErrNotFound, mci)
	}
	return c, nil
}

// Establish asks the MAC layer for the connection. The connection only
// becomes OPEN_PENDING once the request was accepted.
func (m *Manager) Establish(c *Connection, params mac.ConnParams) error {
	if err := m.live(c); err != nil {
		return err
	}
	if c.state != StateClosed {
		return m.violation("establish", c)
	}
	if err := m.svc.ConnectRequest(c.mbcID(), params); err != nil {
		m.log.Warn().Err(err).Uint32("mcei", c.mcei).Msg("mac_con_req failed")
		return fmt.Errorf("dlc: connect request mcei %d: %w", c.mcei, err)
	}
	m.transition(c, StateOpenPending)
	return nil
}

// ConnectConfirm completes a locally initiated establish.
func (m *Manager) ConnectConfirm(mcei uint32, params mac.ConnParams) error {
	c, ok := m.table.Get(mcei)
	if !ok {
		return m.notFound("mac_con_cfm", mcei)
	}
	if c.state != StateOpenPending {
		return m.violation("mac_con_cfm", c)
	}
	c.params = params
	m.transition(c, StateOpen)
	return nil
}

// ConnectIndication opens a peer initiated connection. A CLOSED connection
// still bound under the same MCI is reused, otherwise one is created.
func (m *Manager) ConnectIndication(id mac.MBCID, params mac.ConnParams) (*Connection, error) {
	mci := id.MCI()
	c, ok := m.table.GetMCI(mci)
	if ok {
		if c.state != StateClosed {
			return nil, m.violation("mac_con_ind", c)
		}
		if err := m.table.rekey(c, id.MCEI); err != nil {
			return nil, err
		}
	} else {
		var err error
		if c, err = m.Create(mci, &id.MCEI); err != nil {
			return nil, err
		}
	}
	c.params = params
	m.transition(c, StateOpen)
	return c, nil
}

// DisconnectIndication closes the connection. An unbound connection is
// destroyed, a bound one reports the reason to the upper layer. A reserved
// reason code is reported as ReasonUnknown.
func (m *Manager) DisconnectIndication(mcei uint32, reason tail.ReleaseReason) error {
	c, ok := m.table.Get(mcei)
	if !ok {
		return m.notFound("mac_dis_ind", mcei)
	}
	if c.state == StateClosed {
		return m.violation("mac_dis_ind", c)
	}
	if !reason.Valid() {
		m.drops.Warn().Uint32("mcei", mcei).Uint8("reason", uint8(reason)).Msg("reserved release reason")
		reason = tail.ReasonUnknown
	}
	m.log.Debug().Uint32("mcei", mcei).Stringer("reason", reason).Msg("mac_dis_ind")
	m.transition(c, StateClosed)
	if c.refs == 0 {
		m.destroy(c)
		return nil
	}
	m.upper.Disconnected(c, reason)
	return nil
}

func (m *Manager) Bind(c *Connection) error {
	if err := m.live(c); err != nil {
		return err
	}
	c.refs++
	return nil
}

// Unbind drops one reference. The last one releases an open or pending
// connection at the MAC layer and destroys the connection.
func (m *Manager) Unbind(c *Connection) error {
	if err := m.live(c); err != nil {
		return err
	}
	if c.refs == 0 {
		return fmt.Errorf("%w: mcei %d", ErrRefcountUnderflow, c.mcei)
	}
	c.refs--
	if c.refs > 0 {
		return nil
	}

	var err error
	if c.state == StateOpen || c.state == StateOpenPending {
		if err = m.svc.DisconnectRequest(c.mcei); err != nil {
			m.log.Warn().Err(err).Uint32("mcei", c.mcei).Msg("mac_dis_req failed")
			err = fmt.Errorf("dlc: disconnect request mcei %d: %w", c.mcei, err)
		}
		m.transition(c, StateClosed)
	}
	m.destroy(c)
	return err
}

// Release closes the connection from this side while keeping it bound.
func (m *Manager) Release(c *Connection) error {
	if err := m.live(c); err != nil {
		return err
	}
	if c.state == StateClosed {
		return m.violation("release", c)
	}
	if err := m.svc.DisconnectRequest(c.mcei); err != nil {
		return fmt.Errorf("dlc: disconnect request mcei %d: %w", c.mcei, err)
	}
	m.transition(c, StateClosed)
	if c.refs == 0 {
		m.destroy(c)
	}
	return nil
}

// EncryptionKeyRequest stores the cipher key and hands it to the MAC layer.
func (m *Manager) EncryptionKeyRequest(c *Connection, key uint64) error {
	if err := m.live(c); err != nil {
		return err
	}
	c.key = key
	c.hasKey = true
	return m.svc.EncryptionKeyRequest(c.mcei, key)
}

func (m *Manager) EncryptionStateRequest(c *Connection, state mac.CipherState) error {
	if err := m.live(c); err != nil {
		return err
	}
	return m.svc.EncryptionStateRequest(c.mcei, state)
}

// EncryptionStateConfirm answers a local EncryptionStateRequest.
func (m *Manager) EncryptionStateConfirm(mcei uint32, state mac.CipherState) error {
	return m.encryptionChanged("mac_enc_eks_cfm", mcei, state)
}

// EncryptionStateIndication reports a cipher change started by the peer.
func (m *Manager) EncryptionStateIndication(mcei uint32, state mac.CipherState) error {
	return m.encryptionChanged("mac_enc_eks_ind", mcei, state)
}

func (m *Manager) encryptionChanged(op string, mcei uint32, state mac.CipherState) error {
	c, ok := m.table.Get(mcei)
	if !ok {
		return m.notFound(op, mcei)
	}
	m.log.Debug().Uint32("mcei", mcei).Stringer("state", state).Msg(op)
	c.cipher = state
	m.upper.EncryptionChanged(c, state)
	return nil
}

// DataIndication hands received data to the plane owning ch.
func (m *Manager) DataIndication(mcei uint32, ch mac.DataChannel, payload []byte) error {
	c, ok := m.table.Get(mcei)
	if !ok {
		return m.notFound("mac_co_data_ind", mcei)
	}
	switch ch.Plane() {
	case mac.PlaneControl:
		m.upper.ControlReceive(c, ch, payload)
	case mac.PlaneUser:
		m.upper.UserReceive(c, ch, payload)
	default:
		return m.unmapped("mac_co_data_ind", mcei, ch)
	}
	return nil
}

// DataReadyIndication pulls the next payload for ch from its plane.
func (m *Manager) DataReadyIndication(mcei uint32, ch mac.DataChannel) ([]byte, error) {
	c, ok := m.table.Get(mcei)
	if !ok {
		return nil, m.notFound("mac_co_dtr_ind", mcei)
	}
	switch ch.Plane() {
	case mac.PlaneControl:
		return m.upper.ControlDataReady(c, ch), nil
	case mac.PlaneUser:
		return m.upper.UserDataReady(c, ch), nil
	default:
		return nil, m.unmapped("mac_co_dtr_ind", mcei, ch)
	}
}

// DataRequest sends payload on an open connection.
func (m *Manager) DataRequest(c *Connection, ch mac.DataChannel, payload []byte) error {
	if err := m.live(c); err != nil {
		return err
	}
	if c.state != StateOpen {
		return m.violation("mac_co_data_req", c)
	}
	if ch.Plane() == mac.PlaneNone {
		return fmt.Errorf("%w: %s", ErrUnmappedChannel, ch)
	}
	return m.svc.DataRequest(c.mcei, ch, payload)
}

func (m *Manager) transition(c *Connection, to State) {
	from := c.state
	c.state = to
	m.stats.Transitions++
	observability.RecordTransition(m.cluster, from.String(), to.String())
	m.log.Debug().
		Uint32("mcei", c.mcei).
		Stringer("from", from).
		Stringer("to", to).
		Msg("mac_conn_state")
	m.upper.StateChanged(c, from, to)
}

func (m *Manager) destroy(c *Connection) {
	m.table.Remove(c)
	c.destroyed = true
	m.stats.Destroyed++
	observability.SetConnections(m.cluster, m.table.Len())
	m.log.Debug().Uint32("mcei", c.mcei).Msg("mac_conn_destroy")
}

func (m *Manager) live(c *Connection) error {
	if c == nil || c.destroyed {
		return ErrDestroyed
	}
	return nil
}

func (m *Manager) notFound(op string, mcei uint32) error {
	m.stats.NotFound++
	observability.RecordDrop(m.cluster, "not_found")
	m.drops.Warn().Str("op", op).Uint32("mcei", mcei).Msg("connection not found")
	return fmt.Errorf("%w: %s mcei %d", ErrNotFound, op, mcei)
}

func (m *Manager) violation(op string, c *Connection) error {
	m.stats.StateViolations++
	observability.RecordDrop(m.cluster, "state_violation")
	m.drops.Warn().Str("op", op).Uint32("mcei", c.mcei).Stringer("state", c.state).Msg("unexpected state")
	return fmt.Errorf("%w: %s in %s", ErrStateViolation, op, c.state)
}

func (m *Manager) unmapped(op string, mcei uint32, ch mac.DataChannel) error {
	m.stats.Unmapped++
	observability.RecordDrop(m.cluster, "unmapped_channel")
	m.drops.Warn().Str("op", op).Uint32("mcei", mcei).Stringer("chan", ch).Msg("unmapped channel")
	return fmt.Errorf("%w: %s", ErrUnmappedChannel, ch)
}
