package rsp

import (
	"fmt"
	"math/bits"

	"github.com/corigine/rfpc-rsp-bridge/pkg/rfpc"
)

// regCount is the size of the combined register file: 32 GPRs
// followed by the fixed CSR enumeration in rfpc.CsrOrder.
func regCount() int {
	return 32 + len(rfpc.CsrOrder)
}

// regAt returns the Reg for combined register-file index idx.
func regAt(idx int) (rfpc.Reg, error) {
	if idx < 0 || idx >= regCount() {
		return rfpc.Reg{}, fmt.Errorf("rsp: register index %d out of range", idx)
	}
	if idx < 32 {
		return rfpc.GprReg(uint8(idx)), nil
	}
	return rfpc.CsrReg(rfpc.CsrOrder[idx-32]), nil
}

// swapReg byte-reverses a 64-bit register value, implementing the
// wire's little-endian convention against a big-endian hex
// formatter (spec.md §4.4's endianness convention).
func swapReg(v uint64) uint64 {
	return bits.ReverseBytes64(v)
}

func hex16(v uint64) string {
	return fmt.Sprintf("%016x", v)
}

func parseHex64(s string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "%x", &v)
	if err != nil {
		return 0, fmt.Errorf("rsp: invalid hex value %q: %w", s, err)
	}
	return v, nil
}
