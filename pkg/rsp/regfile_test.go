package rsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corigine/rfpc-rsp-bridge/pkg/rfpc"
)

func TestRegCountIsGprsPlusCsrs(t *testing.T) {
	assert.Equal(t, 32+len(rfpc.CsrOrder), regCount())
}

func TestRegAtGprRange(t *testing.T) {
	reg, err := regAt(0)
	require.NoError(t, err)
	assert.True(t, reg.IsGpr)
	assert.Equal(t, uint8(0), reg.Gpr)

	reg, err = regAt(31)
	require.NoError(t, err)
	assert.True(t, reg.IsGpr)
	assert.Equal(t, uint8(31), reg.Gpr)
}

func TestRegAtCsrRange(t *testing.T) {
	reg, err := regAt(32)
	require.NoError(t, err)
	assert.False(t, reg.IsGpr)
	assert.Equal(t, rfpc.CsrOrder[0], reg.Csr)

	reg, err = regAt(regCount() - 1)
	require.NoError(t, err)
	assert.False(t, reg.IsGpr)
	assert.Equal(t, rfpc.CsrOrder[len(rfpc.CsrOrder)-1], reg.Csr)
}

func TestRegAtOutOfRange(t *testing.T) {
	_, err := regAt(-1)
	assert.Error(t, err)
	_, err = regAt(regCount())
	assert.Error(t, err)
}

func TestSwapRegInvolution(t *testing.T) {
	v := uint64(0x0123456789ABCDEF)
	assert.Equal(t, v, swapReg(swapReg(v)))
	assert.Equal(t, uint64(0xEFCDAB8967452301), swapReg(v))
}

func TestHex16Width(t *testing.T) {
	assert.Equal(t, "0000000000000001", hex16(1))
	assert.Equal(t, "ffffffffffffffff", hex16(^uint64(0)))
}

func TestParseHex64(t *testing.T) {
	v, err := parseHex64("1a2b3c")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1a2b3c), v)
}

func TestParseHex64Invalid(t *testing.T) {
	_, err := parseHex64("zz")
	assert.Error(t, err)
}
