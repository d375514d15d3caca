package xpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytesToWordsAndBack(t *testing.T) {
	words := []uint32{0x11223344, 0xAABBCCDD}
	b := wordsToBytes(words)
	assert.Equal(t, words, bytesToWords(b))
}

func TestOptOr(t *testing.T) {
	assert.Equal(t, uint8(0), optOr(nil))
	v := uint8(5)
	assert.Equal(t, uint8(5), optOr(&v))
}

func TestConfigurePanicsOnSigTypeAndMasterConflict(t *testing.T) {
	sig := uint8(1)
	master := uint8(2)
	b := &ExplicitBar{}
	assert.Panics(t, func() {
		b.Configure(ExplicitCmdParams{SigType: &sig, MasterIsland: &master})
	})
}

func TestConfigurePanicsOnUnalignedBaseAddr(t *testing.T) {
	b := &ExplicitBar{}
	assert.Panics(t, func() {
		b.Configure(ExplicitCmdParams{BaseAddr: 0x1234})
	})
}

func TestValidDirectPushSizes(t *testing.T) {
	assert.True(t, validDirectPushSizes[1])
	assert.True(t, validDirectPushSizes[4])
	assert.True(t, validDirectPushSizes[8])
	assert.False(t, validDirectPushSizes[2])
}
