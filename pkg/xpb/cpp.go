// Package xpb implements the host-side half of the NFP's windowed
// register transport: the Expansion BAR that turns a small PCIe MMIO
// region into a movable window onto the 48-bit on-chip CPP address
// space, and the XPB (control-bus) read/write helpers built on top of
// it.
package xpb

import (
	"fmt"
	"math/bits"
)

// CppIsland names an on-chip island reachable over the CPP bus. Every
// island carries a numeric id in 0..127 used to address it from the
// expansion window's configuration register.
type CppIsland int

const (
	Local CppIsland = iota
	Rfpc0
	Rfpc1
	Rfpc2
	Rfpc3
	Rfpc4
	Rfpc5
	Rfpc6
	Rfpc7
	Pcie0
	Pcie1
	Pcie2
	Pcie3
	Arm
	Crypto
	Nbi0
	Nbi1
)

var islandIDs = map[CppIsland]uint8{
	Local:  0,
	Rfpc0:  32,
	Rfpc1:  33,
	Rfpc2:  34,
	Rfpc3:  35,
	Rfpc4:  36,
	Rfpc5:  37,
	Rfpc6:  38,
	Rfpc7:  39,
	Pcie0:  4,
	Pcie1:  5,
	Pcie2:  6,
	Pcie3:  7,
	Arm:    1,
	Crypto: 12,
	Nbi0:   8,
	Nbi1:   9,
}

var islandNames = map[CppIsland]string{
	Local:  "local",
	Rfpc0:  "rfpc0",
	Rfpc1:  "rfpc1",
	Rfpc2:  "rfpc2",
	Rfpc3:  "rfpc3",
	Rfpc4:  "rfpc4",
	Rfpc5:  "rfpc5",
	Rfpc6:  "rfpc6",
	Rfpc7:  "rfpc7",
	Pcie0:  "pcie0",
	Pcie1:  "pcie1",
	Pcie2:  "pcie2",
	Pcie3:  "pcie3",
	Arm:    "arm",
	Crypto: "crypto",
	Nbi0:   "nbi0",
	Nbi1:   "nbi1",
}

// ID returns the island's 7-bit numeric identifier as used in the
// expansion window configuration register.
func (c CppIsland) ID() uint8 {
	return islandIDs[c]
}

func (c CppIsland) String() string {
	if s, ok := islandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("island(%d)", int(c))
}

// CppLength selects the burst size used for a CPP bus transaction.
type CppLength int

const (
	Len32 CppLength = iota
	Len64
)

// ID returns the CPP length-class encoding for the configuration
// register's length field.
func (l CppLength) ID() uint8 {
	return uint8(l)
}

// MapType selects what an expansion window's configuration register
// is programmed to address.
type MapType int

const (
	// General maps the window directly onto a CPP target (used for
	// XPB transactions and for the explicit-command BAR's SRAM data
	// window).
	General MapType = iota
	// Explicit maps the window onto the explicit-command BAR's
	// trigger register block; every field except MapType is ignored
	// when configuring it (§4.1, §4.5).
	Explicit
)

// SplitAddr48 splits a 48-bit on-chip address into a window-aligned
// base and an offset from that base, given an aperture (the window
// size, rounded down to the largest power of two not exceeding it).
//
// Grounded on original_source/src/libs/common.rs:split_addr48.
func SplitAddr48(address, aperture uint64) (base, offset uint64) {
	pow2 := uint64(1) << (63 - bits.LeadingZeros64(aperture))
	base = address & (0xFFFFFFFFFFFF - (pow2 - 1))
	offset = address - base
	return base, offset
}
