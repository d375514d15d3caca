package memeng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenFor(t *testing.T) {
	assert.Equal(t, tokenAtomic, tokenFor(Atomic))
	assert.Equal(t, tokenBulk, tokenFor(Bulk))
}

func TestMemReadRejectsUnsupportedMemoryType(t *testing.T) {
	_, err := MemRead(nil, 0, MemoryType(99), Bulk, 0, 1)
	assert.Error(t, err)
}

func TestMemWriteRejectsUnsupportedMemoryType(t *testing.T) {
	err := MemWrite(nil, 0, MemoryType(99), Bulk, 0, []uint32{1})
	assert.Error(t, err)
}
