package rsp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corigine/rfpc-rsp-bridge/pkg/dbg"
)

func TestErrorReplyMapsKnownTaxonomy(t *testing.T) {
	assert.Equal(t, "E01", errorReply(&dbg.TimeoutError{Phase: "halt"}))
	assert.Equal(t, "E02", errorReply(&dbg.CauseMismatchError{Op: "continue", Expected: 1, Got: 4}))
	assert.Equal(t, "E03", errorReply(&BreakpointNotCachedError{Addr: 0x1000}))
}

func TestErrorReplyUnknownErrorIsEmpty(t *testing.T) {
	assert.Equal(t, "", errorReply(errors.New("boom")))
}

func TestBreakpointAddrLenParsesSetPacket(t *testing.T) {
	addr, err := breakpointAddrLen("Z0,1000,4")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), addr)
}

func TestBreakpointAddrLenParsesClearPacket(t *testing.T) {
	addr, err := breakpointAddrLen("z0,2000,4")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2000), addr)
}

func TestBreakpointAddrLenNoComma(t *testing.T) {
	addr, err := breakpointAddrLen("Z0,3000")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x3000), addr)
}
