package xpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountColons(t *testing.T) {
	assert.Equal(t, 0, countColons("01.0"))
	assert.Equal(t, 2, countColons("0000:01:00.0"))
}

func TestTrimHex(t *testing.T) {
	assert.Equal(t, "0x1da8", trimHex([]byte("0x1da8\n")))
	assert.Equal(t, "0x7000", trimHex([]byte("0x7000")))
}

func TestErrWindowRangeMessage(t *testing.T) {
	err := &ErrWindowRange{Offset: 0x100, Length: 0x20, WindowSize: 0x80}
	assert.Contains(t, err.Error(), "0x100")
	assert.Contains(t, err.Error(), "0x80")
}

func TestReadRejectsOutOfRange(t *testing.T) {
	e := &ExpBar{winSize: 16}
	_, err := e.Read(12, 8)
	require.Error(t, err)
	assert.IsType(t, &ErrWindowRange{}, err)
}

func TestReadRejectsUnaligned(t *testing.T) {
	e := &ExpBar{winSize: 16, mem: make([]byte, 16)}
	_, err := e.Read(1, 4)
	assert.Error(t, err)
}

func TestWriteRejectsOutOfRange(t *testing.T) {
	e := &ExpBar{winSize: 16}
	err := e.Write([]byte{1, 2, 3, 4}, 14)
	require.Error(t, err)
	assert.IsType(t, &ErrWindowRange{}, err)
}
