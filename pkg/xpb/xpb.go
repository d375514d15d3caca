package xpb

import "fmt"

// XPB control-bus CPP target ids. The XPB ("expansion bus") exposes
// two distinct CPP targets depending on whether the access should be
// seen as originating from the XPB bus itself or from the "XPB
// Master" alias used by debug/bring-up tooling; xpbm selects between
// them (§4.2).
const (
	xpbTargetControl uint8 = 0x0
	xpbTargetMaster  uint8 = 0x1
)

// XpbWrite writes words sequentially, one 32-bit unit per CPP target
// register, starting at xpbAddr on island's XPB control bus. win must
// already be open against the PCIe device that owns island.
//
// Grounded on spec.md §4.2; bit layout grounded on
// original_source/src/libs/explicit_bar.rs and common.rs.
func XpbWrite(win *ExpBar, island CppIsland, xpbAddr uint64, words []uint32, xpbMaster bool) error {
	base, offset := SplitAddr48(xpbAddr, win.Size())

	target := xpbTargetControl
	if xpbMaster {
		target = xpbTargetMaster
	}
	if err := win.Configure(island.ID(), target, base, Len32); err != nil {
		return fmt.Errorf("xpb: configure window for %s: %w", island, err)
	}

	data := wordsToBytes(words)
	if err := win.Write(data, offset); err != nil {
		return fmt.Errorf("xpb: write %s+%#x: %w", island, xpbAddr, err)
	}
	return nil
}

// XpbRead reads nWords 32-bit words starting at xpbAddr on island's
// XPB control bus, symmetric with XpbWrite.
func XpbRead(win *ExpBar, island CppIsland, xpbAddr uint64, nWords int, xpbMaster bool) ([]uint32, error) {
	base, offset := SplitAddr48(xpbAddr, win.Size())

	target := xpbTargetControl
	if xpbMaster {
		target = xpbTargetMaster
	}
	if err := win.Configure(island.ID(), target, base, Len32); err != nil {
		return nil, fmt.Errorf("xpb: configure window for %s: %w", island, err)
	}

	raw, err := win.Read(offset, uint64(nWords)*4)
	if err != nil {
		return nil, fmt.Errorf("xpb: read %s+%#x: %w", island, xpbAddr, err)
	}
	return bytesToWords(raw), nil
}
