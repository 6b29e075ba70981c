package dlc

import (
	"testing"

	"github.com/danmuck/dectctl/internal/identity"
	"github.com/danmuck/dectctl/internal/mac"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/danmuck/dectctl/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

var testARI = identity.ARI{Class: identity.ClassA, Value: 0x0012345}

func testMCI(pmid identity.PMID, lcn uint8) identity.MCI {
	return identity.MCI{ARI: testARI, PMID: pmid, LCN: lcn}
}

func newTestManager(t *testing.T, limit int) (*Manager, *recorder) {
	t.Helper()
	testlog.Start(t)
	rec := newRecorder()
	m := NewManager(rec, rec, Options{Cluster: "test-" + t.Name(), MaxConnections: limit, Logger: log.Logger})
	return m, rec
}

func TestEstablishConfirmDisconnect(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.Create(testMCI(0xe0001, 1), nil)
	require.NoError(t, err)
	require.Equal(t, StateClosed, c.State())

	require.NoError(t, m.Establish(c, mac.DefaultParams()))
	require.Equal(t, StateOpenPending, c.State())

	negotiated := mac.DefaultParams()
	negotiated.Slot = mac.SlotDouble
	require.NoError(t, m.ConnectConfirm(c.MCEI(), negotiated))
	require.Equal(t, StateOpen, c.State())
	require.Equal(t, negotiated, c.Params())

	require.NoError(t, m.DisconnectIndication(c.MCEI(), tail.ReasonBearerRelease))
	require.Equal(t, StateClosed, c.State())
	require.True(t, c.Destroyed())
	require.Zero(t, m.Len())

	_, err = m.Lookup(c.MCEI())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.LookupMCI(c.MCI())
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, []string{
		"con_req 1",
		"state 1 CLOSED->OPEN_PENDING",
		"state 1 OPEN_PENDING->OPEN",
		"state 1 OPEN->CLOSED",
	}, rec.calls)
}

func TestDisconnectOfBoundConnectionIsForwarded(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.Create(testMCI(0xe0001, 0), nil)
	require.NoError(t, err)
	require.NoError(t, m.Bind(c))
	require.NoError(t, m.Establish(c, mac.DefaultParams()))
	rec.reset()

	require.NoError(t, m.DisconnectIndication(c.MCEI(), tail.ReasonTimeoutLostSignal))
	require.False(t, c.Destroyed())
	require.Equal(t, 1, m.Len())
	require.Equal(t, []string{
		"state 1 OPEN_PENDING->CLOSED",
		"disconnected 1 timeout_lost_signal",
	}, rec.calls)

	rec.reset()
	require.NoError(t, m.Unbind(c))
	require.True(t, c.Destroyed())
	require.Empty(t, rec.calls, "closed connection must not issue a disconnect request")
}

func TestDisconnectWithReservedReasonReportsUnknown(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.Create(testMCI(0xe0002, 0), nil)
	require.NoError(t, err)
	require.NoError(t, m.Bind(c))
	require.NoError(t, m.Establish(c, mac.DefaultParams()))
	require.NoError(t, m.ConnectConfirm(c.MCEI(), mac.DefaultParams()))
	rec.reset()

	require.NoError(t, m.DisconnectIndication(c.MCEI(), tail.ReleaseReason(0xf)))
	require.Equal(t, StateClosed, c.State())
	require.Equal(t, []string{
		"state 1 OPEN->CLOSED",
		"disconnected 1 unknown",
	}, rec.calls)
}

func TestConnectIndicationCreatesOpenConnection(t *testing.T) {
	m, rec := newTestManager(t, 0)

	id := mac.MBCID{MCEI: 77, ARI: testARI, PMID: 0xe0042, ECN: 0xa}
	c, err := m.ConnectIndication(id, mac.DefaultParams())
	require.NoError(t, err)
	require.Equal(t, StateOpen, c.State())
	require.Equal(t, uint32(77), c.MCEI())
	require.Equal(t, uint8(2), c.MCI().LCN)
	require.Equal(t, []string{"state 77 CLOSED->OPEN"}, rec.calls)

	found, err := m.LookupMCI(testMCI(0xe0042, 2))
	require.NoError(t, err)
	require.Same(t, c, found)

	_, err = m.ConnectIndication(id, mac.DefaultParams())
	require.ErrorIs(t, err, ErrStateViolation)
	require.Equal(t, uint64(1), m.Stats().StateViolations)
}

func TestConnectIndicationReusesClosedConnection(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.Create(testMCI(0xe0001, 3), nil)
	require.NoError(t, err)
	require.NoError(t, m.Bind(c))
	require.NoError(t, m.Establish(c, mac.DefaultParams()))
	require.NoError(t, m.ConnectConfirm(c.MCEI(), mac.DefaultParams()))
	require.NoError(t, m.DisconnectIndication(c.MCEI(), tail.ReasonBearerRelease))
	rec.reset()

	again, err := m.ConnectIndication(mac.MBCID{MCEI: 900, ARI: testARI, PMID: 0xe0001, ECN: 3}, mac.DefaultParams())
	require.NoError(t, err)
	require.Same(t, c, again)
	require.Equal(t, uint32(900), c.MCEI())
	require.Equal(t, 1, m.Len())
	require.Equal(t, []string{"state 900 CLOSED->OPEN"}, rec.calls)

	_, err = m.Lookup(1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUnbindOpenConnectionDisconnectsFirst(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.ConnectIndication(mac.MBCID{MCEI: 5, ARI: testARI, PMID: 1}, mac.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, m.Bind(c))
	rec.reset()

	require.NoError(t, m.Unbind(c))
	require.True(t, c.Destroyed())
	require.Zero(t, m.Len())
	require.Equal(t, []string{"dis_req 5", "state 5 OPEN->CLOSED"}, rec.calls)
}

func TestUnbindClosedConnectionDestroysImmediately(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.Create(testMCI(2, 0), nil)
	require.NoError(t, err)
	require.NoError(t, m.Bind(c))

	require.NoError(t, m.Unbind(c))
	require.True(t, c.Destroyed())
	require.Empty(t, rec.calls)
}

func TestUnbindBelowZeroIsRejected(t *testing.T) {
	m, _ := newTestManager(t, 0)

	c, err := m.Create(testMCI(3, 0), nil)
	require.NoError(t, err)
	require.NoError(t, m.Bind(c))
	require.NoError(t, m.Bind(c))
	require.NoError(t, m.Unbind(c))
	require.Equal(t, uint32(1), c.Refs())

	unbound, err := m.Create(testMCI(4, 0), nil)
	require.NoError(t, err)
	require.ErrorIs(t, m.Unbind(unbound), ErrRefcountUnderflow)
	require.False(t, unbound.Destroyed())
	require.Zero(t, unbound.Refs())

	require.NoError(t, m.Unbind(c))
	require.ErrorIs(t, m.Unbind(c), ErrDestroyed)
	require.ErrorIs(t, m.Bind(c), ErrDestroyed)
}

func TestEstablishFailureStaysClosed(t *testing.T) {
	m, rec := newTestManager(t, 0)
	rec.failCon = true

	c, err := m.Create(testMCI(5, 0), nil)
	require.NoError(t, err)
	err = m.Establish(c, mac.DefaultParams())
	require.ErrorIs(t, err, errRadioDown)
	require.Equal(t, StateClosed, c.State())
	require.Empty(t, rec.calls)
}

func TestEstablishRequiresClosed(t *testing.T) {
	m, _ := newTestManager(t, 0)

	c, err := m.Create(testMCI(5, 1), nil)
	require.NoError(t, err)
	require.NoError(t, m.Establish(c, mac.DefaultParams()))
	require.ErrorIs(t, m.Establish(c, mac.DefaultParams()), ErrStateViolation)
	require.Equal(t, StateOpenPending, c.State())
}

func TestConfirmOutsidePendingIsNoOp(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.Create(testMCI(6, 0), nil)
	require.NoError(t, err)
	params := mac.DefaultParams()
	params.Service = mac.ServiceCOnly

	require.ErrorIs(t, m.ConnectConfirm(c.MCEI(), params), ErrStateViolation)
	require.Equal(t, StateClosed, c.State())
	require.NotEqual(t, params, c.Params())
	require.Empty(t, rec.calls)

	require.ErrorIs(t, m.DisconnectIndication(c.MCEI(), tail.ReasonUnknown), ErrStateViolation)
	require.False(t, c.Destroyed())
	require.Equal(t, uint64(2), m.Stats().StateViolations)
}

func TestIndicationsForUnknownMCEI(t *testing.T) {
	m, rec := newTestManager(t, 0)

	require.ErrorIs(t, m.ConnectConfirm(42, mac.DefaultParams()), ErrNotFound)
	require.ErrorIs(t, m.DisconnectIndication(42, tail.ReasonBearerRelease), ErrNotFound)
	require.ErrorIs(t, m.EncryptionStateConfirm(42, mac.CipherEnabled), ErrNotFound)
	require.ErrorIs(t, m.EncryptionStateIndication(42, mac.CipherEnabled), ErrNotFound)
	require.ErrorIs(t, m.DataIndication(42, mac.ChannelCS, []byte{1}), ErrNotFound)
	data, err := m.DataReadyIndication(42, mac.ChannelIN)
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, data)

	require.Equal(t, uint64(6), m.Stats().NotFound)
	require.Zero(t, m.Len())
	require.Empty(t, rec.calls)
}

func TestDataRoutingByChannel(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.ConnectIndication(mac.MBCID{MCEI: 3, ARI: testARI, PMID: 7}, mac.DefaultParams())
	require.NoError(t, err)
	rec.reset()
	rec.ready[mac.ChannelCF] = []byte{0xc0}
	rec.ready[mac.ChannelIP] = []byte{0x1e}

	require.NoError(t, m.DataIndication(3, mac.ChannelCS, []byte{0x01}))
	require.NoError(t, m.DataIndication(3, mac.ChannelCF, []byte{0x02}))
	require.NoError(t, m.DataIndication(3, mac.ChannelIN, []byte{0x03}))
	require.NoError(t, m.DataIndication(3, mac.ChannelIP, []byte{0x04}))
	require.ErrorIs(t, m.DataIndication(3, mac.ChannelGF, []byte{0x05}), ErrUnmappedChannel)
	require.ErrorIs(t, m.DataIndication(3, mac.ChannelSIN, []byte{0x06}), ErrUnmappedChannel)

	cf, err := m.DataReadyIndication(3, mac.ChannelCF)
	require.NoError(t, err)
	require.Equal(t, []byte{0xc0}, cf)
	ip, err := m.DataReadyIndication(3, mac.ChannelIP)
	require.NoError(t, err)
	require.Equal(t, []byte{0x1e}, ip)
	_, err = m.DataReadyIndication(3, mac.ChannelSIP)
	require.ErrorIs(t, err, ErrUnmappedChannel)

	require.Equal(t, []string{
		"cplane_rcv 3 C_S 01",
		"cplane_rcv 3 C_F 02",
		"uplane_rcv 3 I_N 03",
		"uplane_rcv 3 I_P 04",
		"cplane_dtr 3 C_F",
		"uplane_dtr 3 I_P",
	}, rec.calls)
	require.Equal(t, uint64(3), m.Stats().Unmapped)
	require.Equal(t, StateOpen, c.State())
}

func TestDataRequestNeedsOpenConnection(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.Create(testMCI(8, 0), nil)
	require.NoError(t, err)
	require.ErrorIs(t, m.DataRequest(c, mac.ChannelCS, []byte{1}), ErrStateViolation)

	require.NoError(t, m.Establish(c, mac.DefaultParams()))
	require.NoError(t, m.ConnectConfirm(c.MCEI(), mac.DefaultParams()))
	rec.reset()

	require.ErrorIs(t, m.DataRequest(c, mac.ChannelGF, []byte{1}), ErrUnmappedChannel)
	require.NoError(t, m.DataRequest(c, mac.ChannelIN, []byte{0xab, 0xcd}))
	require.Equal(t, []string{"data_req 1 I_N abcd"}, rec.calls)
}

func TestEncryptionNegotiation(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.ConnectIndication(mac.MBCID{MCEI: 9, ARI: testARI, PMID: 9}, mac.DefaultParams())
	require.NoError(t, err)
	rec.reset()

	require.NoError(t, m.EncryptionKeyRequest(c, 0x0123456789abcdef))
	key, ok := c.CipherKey()
	require.True(t, ok)
	require.Equal(t, uint64(0x0123456789abcdef), key)

	require.NoError(t, m.EncryptionStateRequest(c, mac.CipherEnabled))
	require.NoError(t, m.EncryptionStateConfirm(9, mac.CipherEnabled))
	require.NoError(t, m.EncryptionStateIndication(9, mac.CipherDisabled))
	require.Equal(t, mac.CipherDisabled, c.Cipher())

	require.Equal(t, []string{
		"enc_key_req 9 123456789abcdef",
		"enc_eks_req 9 enabled",
		"cipher 9 enabled",
		"cipher 9 disabled",
	}, rec.calls)
}

func TestReleaseKeepsBoundConnection(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.ConnectIndication(mac.MBCID{MCEI: 11, ARI: testARI, PMID: 11}, mac.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, m.Bind(c))
	rec.reset()

	require.NoError(t, m.Release(c))
	require.Equal(t, StateClosed, c.State())
	require.False(t, c.Destroyed())
	require.Equal(t, []string{"dis_req 11", "state 11 OPEN->CLOSED"}, rec.calls)
	require.ErrorIs(t, m.Release(c), ErrStateViolation)

	other, err := m.ConnectIndication(mac.MBCID{MCEI: 12, ARI: testARI, PMID: 12}, mac.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, m.Release(other))
	require.True(t, other.Destroyed())
}

func TestReleaseFailureKeepsState(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.ConnectIndication(mac.MBCID{MCEI: 13, ARI: testARI, PMID: 13}, mac.DefaultParams())
	require.NoError(t, err)
	rec.failDis = true

	require.ErrorIs(t, m.Release(c), errRadioDown)
	require.Equal(t, StateOpen, c.State())
}

func TestUnbindDestroysEvenWhenDisconnectFails(t *testing.T) {
	m, rec := newTestManager(t, 0)

	c, err := m.ConnectIndication(mac.MBCID{MCEI: 14, ARI: testARI, PMID: 14}, mac.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, m.Bind(c))
	rec.failDis = true

	require.ErrorIs(t, m.Unbind(c), errRadioDown)
	require.True(t, c.Destroyed())
	require.Zero(t, m.Len())
}

func TestCreateExhaustionRegistersNothing(t *testing.T) {
	m, _ := newTestManager(t, 2)

	_, err := m.Create(testMCI(1, 0), nil)
	require.NoError(t, err)
	_, err = m.Create(testMCI(2, 0), nil)
	require.NoError(t, err)

	_, err = m.Create(testMCI(3, 0), nil)
	require.ErrorIs(t, err, ErrExhausted)
	_, err = m.ConnectIndication(mac.MBCID{MCEI: 50, ARI: testARI, PMID: 3}, mac.DefaultParams())
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, 2, m.Len())
	_, err = m.Lookup(50)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConnectionsReport(t *testing.T) {
	m, _ := newTestManager(t, 0)

	_, err := m.ConnectIndication(mac.MBCID{MCEI: 30, ARI: testARI, PMID: 30}, mac.DefaultParams())
	require.NoError(t, err)
	_, err = m.Create(testMCI(31, 0), nil)
	require.NoError(t, err)

	infos := m.Connections()
	require.Len(t, infos, 2)
	require.Equal(t, uint32(1), infos[0].MCEI)
	require.Equal(t, StateClosed, infos[0].State)
	require.Equal(t, uint32(30), infos[1].MCEI)
	require.Equal(t, StateOpen, infos[1].State)
	require.Equal(t, uint64(2), m.Stats().Created)
}
