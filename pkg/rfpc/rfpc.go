// Package rfpc models one RFPC (RISC-V flow processing core) hart's
// identity and register name space: which island it lives on, where
// its Debug Module sits on that island's XPB address space, and how
// its GPRs/CSRs map to RISC-V abstract-command register numbers.
package rfpc

import "github.com/corigine/rfpc-rsp-bridge/pkg/xpb"

// Per-cluster/per-group Debug Module addressing constants. Each RFPC
// cluster owns a fixed XPB base for its Debug Module block; cores
// within a cluster are grouped, and each group occupies a fixed
// stride within that base.
//
// The hardware formula itself was not present in the retrieved
// prototype sources (rfpc.rs was not part of the retrieved file set);
// this stride layout is this bridge's own placement, documented as an
// assumption rather than ported from a source.
const (
	dmClusterBase   = 0x00000000
	dmClusterStride = 0x00010000
	dmGroupStride   = 0x00001000
)

// Rfpc identifies a single target hart by its on-chip location.
type Rfpc struct {
	Island  xpb.CppIsland
	Cluster uint8
	Group   uint8
	Core    uint8
}

// DmXpbBase returns the byte offset of this hart's Debug Module on its
// island's XPB address space.
func (r Rfpc) DmXpbBase() uint64 {
	return dmClusterBase + uint64(r.Cluster)*dmClusterStride + uint64(r.Group)*dmGroupStride
}

// DmHartsel returns this hart's encoding into dmcontrol's hartsello
// (bits 25:16) and hartselhi (bits 15:6) fields. Core indices up to
// 1023 fit entirely in hartsello, matching every RFPC configuration
// this bridge targets, so hartselhi is always zero.
func (r Rfpc) DmHartsel() (hartsello, hartselhi uint16) {
	return uint16(r.Core) & 0x3FF, 0
}
