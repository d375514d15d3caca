package rsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddrLenMemoryRead(t *testing.T) {
	addr, length, rest, err := parseAddrLen("1000,4")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), addr)
	assert.Equal(t, uint64(4), length)
	assert.Equal(t, "", rest)
}

func TestParseAddrLenMemoryWrite(t *testing.T) {
	addr, length, rest, err := parseAddrLen("2000,4:12345678")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2000), addr)
	assert.Equal(t, uint64(4), length)
	assert.Equal(t, "12345678", rest)
}

func TestIsCtmAddress(t *testing.T) {
	assert.True(t, isCtmAddress(0x0001000000001000))
	assert.False(t, isCtmAddress(0x0000000000002000))
}

func TestTargetAddressMasksUpperBits(t *testing.T) {
	assert.Equal(t, uint64(0x00001000), targetAddress(0x0001000000001000))
}

func TestPadTo(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 3, 0}, padTo([]byte{1, 2, 3}, 4))
	assert.Equal(t, []byte{1, 2, 3, 4}, padTo([]byte{1, 2, 3, 4}, 4))
}

func TestDecodeBinaryPayloadEscapes(t *testing.T) {
	in := []byte{'a', escapeByte, byte('#') ^ escapeXor, 'b'}
	out := decodeBinaryPayload(in)
	assert.Equal(t, []byte{'a', '#', 'b'}, out)
}
