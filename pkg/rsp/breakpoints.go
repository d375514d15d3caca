package rsp

import (
	"fmt"

	"github.com/corigine/rfpc-rsp-bridge/pkg/memeng"
)

// ebreakWord is the RISC-V `ebreak` instruction encoding software
// breakpoints patch target memory with.
const ebreakWord uint32 = 0x00100073

// BreakpointNotCachedError reports a client trying to remove a
// breakpoint this server never inserted.
type BreakpointNotCachedError struct {
	Addr uint64
}

func (e *BreakpointNotCachedError) Error() string {
	return fmt.Sprintf("rsp: no cached breakpoint at %#x", e.Addr)
}

// insertBreakpoint caches the original instruction word at addr and
// patches it with ebreak, routing through CTM or the DM as the
// address dictates.
func (s *Server) insertBreakpoint(addr uint64) error {
	target := targetAddress(addr)

	if isCtmAddress(addr) {
		words, err := memeng.MemRead(s.ExplicitBar, s.Core.Island, memeng.Ctm, memeng.Atomic, target, 1)
		if err != nil {
			return err
		}
		s.breakpoints[addr] = uint64(words[0])
		return memeng.MemWrite(s.ExplicitBar, s.Core.Island, memeng.Ctm, memeng.Atomic, target, []uint32{ebreakWord})
	}

	words, err := s.DM.ReadMemory(s.ctx, target, 1)
	if err != nil {
		return err
	}
	orig := words[0]
	s.breakpoints[addr] = orig

	patched := (orig & 0xFFFFFFFF00000000) | uint64(ebreakWord)
	return s.DM.WriteMemory(s.ctx, target, []uint64{patched})
}

// removeBreakpoint restores the cached original instruction word at
// addr and forgets it.
func (s *Server) removeBreakpoint(addr uint64) error {
	orig, ok := s.breakpoints[addr]
	if !ok {
		return &BreakpointNotCachedError{Addr: addr}
	}
	delete(s.breakpoints, addr)

	target := targetAddress(addr)
	if isCtmAddress(addr) {
		return memeng.MemWrite(s.ExplicitBar, s.Core.Island, memeng.Ctm, memeng.Atomic, target, []uint32{uint32(orig)})
	}
	return s.DM.WriteMemory(s.ctx, target, []uint64{orig})
}

// restoreAllBreakpoints removes every cached software breakpoint,
// leaving target memory exactly as it was before any insertion. Used
// on detach/kill so a debugged target is never left with patched
// instructions (spec.md §9 — this is the one place this bridge
// changes the prototype's behavior, which left patches live).
func (s *Server) restoreAllBreakpoints() {
	for addr := range s.breakpoints {
		if err := s.removeBreakpoint(addr); err != nil {
			fmt.Fprintf(s.stderr(), "rsp: failed to restore breakpoint at %#x on detach: %v\n", addr, err)
		}
	}
}
