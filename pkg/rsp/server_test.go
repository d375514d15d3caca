package rsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corigine/rfpc-rsp-bridge/pkg/rfpc"
)

func newTestServer() *Server {
	return New(nil, nil, rfpc.Rfpc{}, nil)
}

func TestLookupExactMatch(t *testing.T) {
	s := newTestServer()
	entry, ok := s.lookup("qSupported")
	require.True(t, ok)
	assert.NotNil(t, entry.withArg)
}

func TestLookupLongestPrefixMatch(t *testing.T) {
	s := newTestServer()
	entry, ok := s.lookup("m1000,4")
	require.True(t, ok)
	assert.NotNil(t, entry.withArg)

	entry, ok = s.lookup("z01000,4")
	require.True(t, ok)
	assert.NotNil(t, entry.withArg)
}

func TestLookupUnknownCommand(t *testing.T) {
	s := newTestServer()
	_, ok := s.lookup("vNoSuchCommand")
	assert.False(t, ok)
}

func TestDispatchStaticReply(t *testing.T) {
	s := newTestServer()
	reply, detach := s.dispatch("?")
	assert.Equal(t, "S12", string(reply))
	assert.False(t, detach)
}

func TestDispatchDetach(t *testing.T) {
	s := newTestServer()
	reply, detach := s.dispatch("D")
	assert.Equal(t, "OK", string(reply))
	assert.True(t, detach)
}

func TestDispatchKillIsSilent(t *testing.T) {
	s := newTestServer()
	reply, detach := s.dispatch("k")
	assert.Nil(t, reply)
	assert.True(t, detach)
}

func TestDispatchUnknownReturnsEmpty(t *testing.T) {
	s := newTestServer()
	reply, detach := s.dispatch("vNoSuchCommand")
	assert.Equal(t, []byte{}, reply)
	assert.False(t, detach)
}

func TestDispatchCtrlCInterruptIsSilent(t *testing.T) {
	s := newTestServer()
	reply, detach := s.dispatch("\x03")
	assert.Nil(t, reply)
	assert.False(t, detach)
}

func TestQSupportedCapturesClientFeatures(t *testing.T) {
	s := newTestServer()
	reply := handleQSupported(s, "qSupported:swbreak+;PacketSize=1000")
	assert.Equal(t, "1000", s.clientFeatures["PacketSize"])
	assert.Contains(t, s.clientFlags, "swbreak+")
	assert.Equal(t, "PacketSize=100000;qMemoryRead+;swbreak+", reply)
}

func TestStartNoAckModeDisablesAck(t *testing.T) {
	s := newTestServer()
	assert.True(t, s.ackEnabled)
	reply := handleStartNoAckMode(s)
	assert.Equal(t, "OK", reply)
	assert.False(t, s.ackEnabled)
}
