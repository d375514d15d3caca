package xpb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAddr48(t *testing.T) {
	cases := []struct {
		name       string
		address    uint64
		aperture   uint64
		wantBase   uint64
		wantOffset uint64
	}{
		{"aligned start", 0x1000, 0x1000, 0x1000, 0},
		{"mid window", 0x1234, 0x1000, 0x1000, 0x234},
		{"non-power-of-two aperture rounds down", 0x3400, 0x1800, 0x3000, 0x400},
		{"large window", 0x123456789A, 0x10000, 0x1234560000, 0x789A},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base, offset := SplitAddr48(tc.address, tc.aperture)
			assert.Equal(t, tc.wantBase, base)
			assert.Equal(t, tc.wantOffset, offset)
			assert.Equal(t, tc.address, base+offset)
		})
	}
}

func TestCppIslandID(t *testing.T) {
	assert.Equal(t, uint8(0), Local.ID())
	assert.Equal(t, uint8(32), Rfpc0.ID())
	assert.Equal(t, "rfpc0", Rfpc0.String())
}

func TestCppLengthID(t *testing.T) {
	assert.Equal(t, uint8(0), Len32.ID())
	assert.Equal(t, uint8(1), Len64.ID())
}
