package mac

import (
	"bytes"
	"strings"
	"testing"

	"github.com/danmuck/dectctl/internal/identity"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/danmuck/dectctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestChannelPlanes(t *testing.T) {
	testlog.Start(t)

	want := map[DataChannel]Plane{
		ChannelGF:  PlaneNone,
		ChannelCS:  PlaneControl,
		ChannelCF:  PlaneControl,
		ChannelIN:  PlaneUser,
		ChannelIP:  PlaneUser,
		ChannelSIN: PlaneNone,
		ChannelSIP: PlaneNone,
		9:          PlaneNone,
	}
	for ch, plane := range want {
		if got := ch.Plane(); got != plane {
			t.Fatalf("%s plane = %d, want %d", ch, got, plane)
		}
	}
}

func TestParamsSurviveAttributesMessage(t *testing.T) {
	testlog.Start(t)

	params := DefaultParams()
	params.CF = true
	params.BZExtendedModulation = 3

	fp := tail.NewCodec(tail.FixedPart)
	attr := params.Attributes(0x9, 0x2)
	w, err := fp.Encode(tail.Tail{ID: tail.MT, Msg: tail.CCtrl{Command: tail.CCtrlAttributesRequest, Attr: &attr}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := fp.Peer().Decode(w)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	cc := got.Msg.(tail.CCtrl)
	if cc.Attr.ECN != 0x9 || cc.Attr.LBN != 0x2 {
		t.Fatalf("unexpected ecn/lbn: %+v", cc.Attr)
	}
	if diff := cmp.Diff(params, ParamsFromAttributes(*cc.Attr)); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestMBCIDDerivesLCN(t *testing.T) {
	testlog.Start(t)

	id := MBCID{MCEI: 4, ARI: identity.ARI{Class: identity.ClassA, Value: 1}, PMID: 0xe0001, ECN: 0xd}
	if got := id.MCI(); got.LCN != 5 || got.PMID != 0xe0001 {
		t.Fatalf("unexpected mci %s", got)
	}
}

func TestLogServiceAcceptsRequests(t *testing.T) {
	testlog.Start(t)

	var buf bytes.Buffer
	svc := NewLogService(zerolog.New(&buf))
	var _ Service = svc

	if err := svc.ConnectRequest(MBCID{MCEI: 7}, DefaultParams()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := svc.EncryptionStateRequest(7, CipherEnabled); err != nil {
		t.Fatalf("eks: %v", err)
	}
	if err := svc.DisconnectRequest(7); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	out := buf.String()
	for _, msg := range []string{"mac_con_req", `"state":"enabled"`, "mac_dis_req"} {
		if !strings.Contains(out, msg) {
			t.Fatalf("missing %s in %q", msg, out)
		}
	}
}
