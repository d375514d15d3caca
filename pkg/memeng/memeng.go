// Package memeng adapts the explicit-command BAR into the narrow
// memory-engine interface the debug bridge needs for cluster-target
// memory (CTM): 32-bit word reads and writes issued as CPP bulk or
// atomic transactions, used only for CTM-backed breakpoints and
// program loads (spec.md §4.5).
package memeng

import (
	"fmt"

	"github.com/corigine/rfpc-rsp-bridge/pkg/xpb"
)

// MemoryType selects the on-chip memory class a transaction targets.
// CTM is the only one this bridge issues transactions for; the type
// still exists as an enum because the explicit-command BAR's target
// field is shared with non-memory CPP targets this package never
// touches.
type MemoryType int

const (
	Ctm MemoryType = iota
)

// Engine selects the CPP transfer class used for a CTM transaction:
// Bulk for multi-word transfers (program loads), Atomic for the
// single-word read-modify-write used by the breakpoint patch sequence
// (spec.md §4.4, §4.5).
type Engine int

const (
	Bulk Engine = iota
	Atomic
)

// CPP target id and action/token encodings for CTM transactions. The
// originating mem_access.rs source was not part of the retrieved file
// set, so these values are this bridge's own placement rather than a
// ported constant table; they follow the same cfg0/cfg1 field layout
// explicit_bar.rs defines for every other explicit command.
const (
	ctmTarget     uint8 = 0x7
	actionRead    uint8 = 0x0
	actionWrite   uint8 = 0x1
	tokenBulk     uint8 = 0x0
	tokenAtomic   uint8 = 0x1
	ctmLengthWord uint8 = 0x0 // one 32-bit word per transfer unit.
)

func tokenFor(e Engine) uint8 {
	if e == Atomic {
		return tokenAtomic
	}
	return tokenBulk
}

// MemRead reads wordCount 32-bit words from CTM on island starting at
// addr (masked to 32 bits — CTM addressing never uses the upper bits
// a CPP bus address otherwise carries).
func MemRead(bar *xpb.ExplicitBar, island xpb.CppIsland, memType MemoryType, engine Engine, addr uint64, wordCount int) ([]uint32, error) {
	if memType != Ctm {
		return nil, fmt.Errorf("memeng: unsupported memory type %d", memType)
	}

	words := make([]uint32, 0, wordCount)
	for i := 0; i < wordCount; i++ {
		wordAddr := (addr + 4*uint64(i)) & 0xFFFFFFFF
		if err := bar.Configure(xpb.ExplicitCmdParams{
			TargetIslandID: island.ID(),
			Target:         ctmTarget,
			Action:         actionRead,
			Token:          tokenFor(engine),
			BaseAddr:       wordAddr &^ 0xFFFF,
			Length:         ctmLengthWord,
			ByteMask:       0xF,
		}); err != nil {
			return nil, fmt.Errorf("memeng: configure read at %#x: %w", wordAddr, err)
		}

		pushLen := uint64(1)
		out, err := bar.RunExplicitCmd(wordAddr&0xFFFF, nil, &pushLen, false)
		if err != nil {
			return nil, fmt.Errorf("memeng: read at %#x: %w", wordAddr, err)
		}
		words = append(words, out[0])
	}
	return words, nil
}

// MemWrite writes words as consecutive 32-bit CTM words on island
// starting at addr.
func MemWrite(bar *xpb.ExplicitBar, island xpb.CppIsland, memType MemoryType, engine Engine, addr uint64, words []uint32) error {
	if memType != Ctm {
		return fmt.Errorf("memeng: unsupported memory type %d", memType)
	}

	for i, word := range words {
		wordAddr := (addr + 4*uint64(i)) & 0xFFFFFFFF
		if err := bar.Configure(xpb.ExplicitCmdParams{
			TargetIslandID: island.ID(),
			Target:         ctmTarget,
			Action:         actionWrite,
			Token:          tokenFor(engine),
			BaseAddr:       wordAddr &^ 0xFFFF,
			Length:         ctmLengthWord,
			ByteMask:       0xF,
		}); err != nil {
			return fmt.Errorf("memeng: configure write at %#x: %w", wordAddr, err)
		}

		if _, err := bar.RunExplicitCmd(wordAddr&0xFFFF, []uint32{word}, nil, true); err != nil {
			return fmt.Errorf("memeng: write at %#x: %w", wordAddr, err)
		}
	}
	return nil
}
