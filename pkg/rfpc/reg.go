package rfpc

import "fmt"

// CsrName is the closed set of CSRs this bridge can read or write,
// carried from spec.md §3 and the RISC-V privileged-spec CSR numbers
// (the RFPC-specific Mlmemprot/Mafstatus entries use vendor custom-CSR
// numbers, kept opaque since their bit layout never needs decoding
// here — the bridge only moves 64-bit values through them).
type CsrName int

const (
	Mstatus CsrName = iota
	Misa
	Medeleg
	Mideleg
	Mie
	Mtvec
	Mscratch
	Mepc
	Mcause
	Mtval
	Mip
	Dcsr
	Dpc
	Dscratch0
	Dscratch1
	Mlmemprot
	Mafstatus
	Mcycle
	Minstret
	Cycle
	Time
	Instret
	Mvendorid
	Marchid
	Mimpid
	Mhartid
)

var csrNumbers = map[CsrName]uint16{
	Mstatus:   0x300,
	Misa:      0x301,
	Medeleg:   0x302,
	Mideleg:   0x303,
	Mie:       0x304,
	Mtvec:     0x305,
	Mscratch:  0x340,
	Mepc:      0x341,
	Mcause:    0x342,
	Mtval:     0x343,
	Mip:       0x344,
	Dcsr:      0x7b0,
	Dpc:       0x7b1,
	Dscratch0: 0x7b2,
	Dscratch1: 0x7b3,
	Mlmemprot: 0x7c0,
	Mafstatus: 0x7c1,
	Mcycle:    0xb00,
	Minstret:  0xb02,
	Cycle:     0xc00,
	Time:      0xc01,
	Instret:   0xc02,
	Mvendorid: 0xf11,
	Marchid:   0xf12,
	Mimpid:    0xf13,
	Mhartid:   0xf14,
}

var csrNames = map[CsrName]string{
	Mstatus: "mstatus", Misa: "misa", Medeleg: "medeleg", Mideleg: "mideleg",
	Mie: "mie", Mtvec: "mtvec", Mscratch: "mscratch", Mepc: "mepc",
	Mcause: "mcause", Mtval: "mtval", Mip: "mip", Dcsr: "dcsr", Dpc: "dpc",
	Dscratch0: "dscratch0", Dscratch1: "dscratch1", Mlmemprot: "mlmemprot",
	Mafstatus: "mafstatus", Mcycle: "mcycle", Minstret: "minstret",
	Cycle: "cycle", Time: "time", Instret: "instret", Mvendorid: "mvendorid",
	Marchid: "marchid", Mimpid: "mimpid", Mhartid: "mhartid",
}

// CsrOrder is the fixed CSR enumeration order used by the combined
// register file (GPRs followed by this list) exposed over the debug
// wire protocol.
var CsrOrder = []CsrName{
	Mstatus, Misa, Medeleg, Mideleg, Mie, Mtvec, Mscratch, Mepc, Mcause,
	Mtval, Mip, Dcsr, Dpc, Dscratch0, Dscratch1, Mlmemprot, Mafstatus,
	Mcycle, Minstret, Cycle, Time, Instret, Mvendorid, Marchid, Mimpid,
	Mhartid,
}

func (c CsrName) String() string {
	if s, ok := csrNames[c]; ok {
		return s
	}
	return fmt.Sprintf("csr(%d)", int(c))
}

// Reg is a tagged RFPC register reference: either a GPR number
// (0..31) or a CSR name. Exactly one of the two is meaningful,
// selected by IsGpr.
type Reg struct {
	IsGpr bool
	Gpr   uint8
	Csr   CsrName
}

// GprReg returns a Reg naming GPR x.
func GprReg(x uint8) Reg {
	return Reg{IsGpr: true, Gpr: x}
}

// CsrReg returns a Reg naming the given CSR.
func CsrReg(name CsrName) Reg {
	return Reg{IsGpr: false, Csr: name}
}

// RegAddr returns the 16-bit RISC-V abstract-command register number
// for this register: bit 12 set selects the GPR bank
// (0x1000 | gpr_index), clear selects a CSR addressed by its standard
// CSR number.
func (r Reg) RegAddr() uint16 {
	if r.IsGpr {
		return 0x1000 | uint16(r.Gpr)
	}
	return csrNumbers[r.Csr]
}

func (r Reg) String() string {
	if r.IsGpr {
		return fmt.Sprintf("x%d", r.Gpr)
	}
	return r.Csr.String()
}
