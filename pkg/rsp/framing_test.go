package rsp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPacketChecksum(t *testing.T) {
	pkt := formatPacket([]byte("OK"))
	assert.Equal(t, "$OK#9a", string(pkt))
}

func TestReadPacketRoundTrip(t *testing.T) {
	wire := formatPacket([]byte("qSupported:swbreak+"))
	r := bufio.NewReader(bytes.NewReader(wire))

	payload, wireChecksum, rawSum, err := readPacket(r)
	require.NoError(t, err)
	assert.Equal(t, "qSupported:swbreak+", string(payload))
	assert.Equal(t, wireChecksum, rawSum)
}

func TestReadPacketEscapeInvolution(t *testing.T) {
	// Every byte that must be escaped on the wire (#, $, }, *) decodes
	// back to itself when sent as 0x7D (b XOR 0x20).
	for _, b := range []byte{0x23, 0x24, 0x7D, 0x2A} {
		escaped := []byte{'$', escapeByte, b ^ escapeXor, '#'}
		var sum byte = escapeByte + (b ^ escapeXor)
		escaped = append(escaped, hexDigit(sum>>4), hexDigit(sum&0xF))

		r := bufio.NewReader(bytes.NewReader(escaped))
		payload, wireChecksum, rawSum, err := readPacket(r)
		require.NoError(t, err)
		assert.Equal(t, []byte{b}, payload)
		assert.Equal(t, wireChecksum, rawSum)
	}
}

func TestReadPacketChecksumMismatchDetected(t *testing.T) {
	wire := []byte("$OK#00")
	r := bufio.NewReader(bytes.NewReader(wire))
	_, wireChecksum, rawSum, err := readPacket(r)
	require.NoError(t, err)
	assert.NotEqual(t, wireChecksum, rawSum)
}

func TestReadPacketSkipsLeadingNoise(t *testing.T) {
	wire := append([]byte("+"), formatPacket([]byte("?"))...)
	r := bufio.NewReader(bytes.NewReader(wire))
	payload, wireChecksum, rawSum, err := readPacket(r)
	require.NoError(t, err)
	assert.Equal(t, "?", string(payload))
	assert.Equal(t, wireChecksum, rawSum)
}
