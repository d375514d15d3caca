package rfpc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corigine/rfpc-rsp-bridge/pkg/xpb"
)

func TestDmXpbBase(t *testing.T) {
	base := Rfpc{Island: xpb.Rfpc0, Cluster: 2, Group: 3}.DmXpbBase()
	assert.Equal(t, uint64(2*dmClusterStride+3*dmGroupStride), base)
}

func TestDmHartsel(t *testing.T) {
	lo, hi := Rfpc{Core: 7}.DmHartsel()
	assert.Equal(t, uint16(7), lo)
	assert.Equal(t, uint16(0), hi)
}

func TestRegAddrGpr(t *testing.T) {
	assert.Equal(t, uint16(0x1000), GprReg(0).RegAddr())
	assert.Equal(t, uint16(0x100A), GprReg(10).RegAddr())
	assert.Equal(t, uint16(0x100B), GprReg(11).RegAddr())
}

func TestRegAddrCsr(t *testing.T) {
	assert.Equal(t, uint16(0x300), CsrReg(Mstatus).RegAddr())
	assert.Equal(t, uint16(0x7b0), CsrReg(Dcsr).RegAddr())
	assert.Equal(t, uint16(0x7c0), CsrReg(Mlmemprot).RegAddr())
	assert.Equal(t, uint16(0xf14), CsrReg(Mhartid).RegAddr())
}

func TestCsrOrderMatchesClosedSet(t *testing.T) {
	assert.Len(t, CsrOrder, 26)
	assert.Equal(t, Mstatus, CsrOrder[0])
	assert.Equal(t, Mhartid, CsrOrder[len(CsrOrder)-1])
}
