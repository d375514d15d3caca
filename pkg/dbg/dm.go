// Package dbg implements the RISC-V External Debug (v0.13.2)
// abstract-command and program-buffer protocol over an XPB transport,
// driving a single RFPC hart's Debug Module to halt, resume, single
// step, continue, and read/write its registers and memory.
package dbg

import (
	"context"
	"fmt"
	"time"

	"github.com/corigine/rfpc-rsp-bridge/pkg/rfpc"
	"github.com/corigine/rfpc-rsp-bridge/pkg/xpb"
)

// Debug Module register byte offsets within dm_xpb_base (DMI word × 4).
//
// Grounded on original_source/src/libs/rfpc_debugger.rs.
const (
	regData0      = 0x10
	regData1      = 0x14
	regDmcontrol  = 0x40
	regDmstatus   = 0x44
	regAbstractcs = 0x58
	regCommand    = 0x5c
	regProgbuf0   = 0x80
)

// dmcontrol fields.
const (
	dmcontrolHaltreq   = 1 << 31
	dmcontrolResumereq = 1 << 30
	dmcontrolDmactive  = 1 << 0
)

// dmstatus fields.
const (
	dmstatusAllresumeack = 1 << 17
	dmstatusAllrunning   = 1 << 11
	dmstatusAllhalted    = 1 << 9
)

// abstractcs fields.
const abstractcsBusy = 1 << 12

// dcsr fields.
const (
	dcsrEbreakm = 0x1 << 15
	dcsrEbreaku = 0x1 << 12
	dcsrCause   = 0x7 << 6
	dcsrStep    = 0x1 << 2
)

const (
	haltResumeDeadline = 10 * time.Second
	continueDeadline   = 40 * time.Second
	pollInterval       = 100 * time.Millisecond
)

// stepCause and continueCause are the dcsr.cause values the hart must
// report after a single step (hardware single-step trap) or a
// continue (software breakpoint) respectively; any other value means
// the hart stopped for an unrelated reason.
const (
	stepCause     = 0x4
	continueCause = 0x1
)

// TimeoutError reports that a DM poll loop did not observe its target
// condition before its deadline.
type TimeoutError struct {
	Phase string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("debug module timeout: %s", e.Phase)
}

// CauseMismatchError reports that the hart halted for a reason other
// than the one a single-step or continue operation expected.
type CauseMismatchError struct {
	Op       string
	Expected uint32
	Got      uint32
}

func (e *CauseMismatchError) Error() string {
	return fmt.Sprintf("debug module %s: expected halt cause %#x, got %#x", e.Op, e.Expected, e.Got)
}

// DM drives one hart's Debug Module over an already-open, already
// XPB-master-mapped expansion window.
type DM struct {
	Win  *xpb.ExpBar
	Core rfpc.Rfpc
}

func (d *DM) xpbWrite(reg uint64, word uint32) error {
	return xpb.XpbWrite(d.Win, d.Core.Island, d.Core.DmXpbBase()+reg, []uint32{word}, true)
}

func (d *DM) xpbRead(reg uint64) (uint32, error) {
	words, err := xpb.XpbRead(d.Win, d.Core.Island, d.Core.DmXpbBase()+reg, 1, true)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// Halt requests the hart halt and polls dmstatus until ALLHALTED,
// with a 10-second deadline.
func (d *DM) Halt(ctx context.Context) error {
	hartsello, _ := d.Core.DmHartsel()
	dmcontrol := uint32(hartsello)<<16 | dmcontrolDmactive | dmcontrolHaltreq
	if err := d.xpbWrite(regDmcontrol, dmcontrol); err != nil {
		return err
	}
	return d.pollDmstatus(ctx, dmstatusAllhalted, haltResumeDeadline, "halt")
}

// Resume requests the hart resume and polls dmstatus until
// ALLRUNNING, with a 10-second deadline.
func (d *DM) Resume(ctx context.Context) error {
	hartsello, _ := d.Core.DmHartsel()
	dmcontrol := uint32(hartsello)<<16 | dmcontrolDmactive | dmcontrolResumereq
	if err := d.xpbWrite(regDmcontrol, dmcontrol); err != nil {
		return err
	}
	return d.pollDmstatus(ctx, dmstatusAllrunning, haltResumeDeadline, "resume")
}

func (d *DM) pollDmstatus(ctx context.Context, want uint32, deadline time.Duration, phase string) error {
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if time.Since(start) > deadline {
			return &TimeoutError{Phase: phase}
		}
		dmstatus, err := d.xpbRead(regDmstatus)
		if err != nil {
			return err
		}
		if dmstatus&want != 0 {
			return nil
		}
		time.Sleep(pollInterval)
	}
}

func (d *DM) abstractCmdBusyWait(ctx context.Context) error {
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if time.Since(start) > haltResumeDeadline {
			return &TimeoutError{Phase: "abstract command"}
		}
		abstractcs, err := d.xpbRead(regAbstractcs)
		if err != nil {
			return err
		}
		if abstractcs&abstractcsBusy == 0 {
			return nil
		}
		time.Sleep(pollInterval)
	}
}

// readReg reads a register assuming the hart is already halted.
func (d *DM) readReg(ctx context.Context, regAddr uint16) (uint64, error) {
	hartsello, _ := d.Core.DmHartsel()
	if err := d.xpbWrite(regDmcontrol, uint32(hartsello)<<16|dmcontrolDmactive); err != nil {
		return 0, err
	}

	command := 0x00320000 | uint32(regAddr&0xFFFF)
	if err := d.xpbWrite(regCommand, command); err != nil {
		return 0, err
	}
	if err := d.abstractCmdBusyWait(ctx); err != nil {
		return 0, err
	}

	lo, err := d.xpbRead(regData0)
	if err != nil {
		return 0, err
	}
	hi, err := d.xpbRead(regData1)
	if err != nil {
		return 0, err
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

// writeReg writes a register assuming the hart is already halted.
func (d *DM) writeReg(ctx context.Context, regAddr uint16, value uint64) error {
	isGpr := (regAddr>>12)&0xF == 0x1

	hartsello, _ := d.Core.DmHartsel()
	if err := d.xpbWrite(regDmcontrol, uint32(hartsello)<<16|dmcontrolDmactive); err != nil {
		return err
	}
	if err := d.xpbWrite(regData0, uint32(value&0xFFFFFFFF)); err != nil {
		return err
	}
	if err := d.xpbWrite(regData1, uint32(value>>32)); err != nil {
		return err
	}

	if isGpr {
		if err := d.xpbWrite(regCommand, 0x00330000|uint32(regAddr)); err != nil {
			return err
		}
		return d.abstractCmdBusyWait(ctx)
	}

	// CSR writes go through x11, since the abstract command set has no
	// direct CSR-write transfer: load x11 from data0/data1, then
	// execute a program-buffer csrrw.
	if err := d.xpbWrite(regCommand, 0x0033100B); err != nil {
		return err
	}
	if err := d.abstractCmdBusyWait(ctx); err != nil {
		return err
	}

	csrWrite := 0x00059073 | (uint32(regAddr&0xFFF) << 20)
	if err := d.xpbWrite(regProgbuf0, csrWrite); err != nil {
		return err
	}
	if err := d.xpbWrite(regCommand, 0x00360000); err != nil {
		return err
	}
	return d.abstractCmdBusyWait(ctx)
}

// ReadReg halts the hart, reads reg, and resumes it.
func (d *DM) ReadReg(ctx context.Context, reg rfpc.Reg) (uint64, error) {
	if err := d.Halt(ctx); err != nil {
		return 0, err
	}
	val, err := d.readReg(ctx, reg.RegAddr())
	if rerr := d.Resume(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return val, err
}

// ReadRegs halts the hart once, reads every register in regs in
// order via the internal already-halted routine, and resumes once —
// so a composite read (e.g. the RSP `g` packet's full register dump)
// observes the hart at a single, coherent execution point instead of
// halting and resuming around each individual register (§4.3's
// "halted once per RSP command sequence, not per register" policy).
func (d *DM) ReadRegs(ctx context.Context, regs []rfpc.Reg) ([]uint64, error) {
	if err := d.Halt(ctx); err != nil {
		return nil, err
	}

	vals := make([]uint64, 0, len(regs))
	var err error
	for _, reg := range regs {
		var v uint64
		v, err = d.readReg(ctx, reg.RegAddr())
		if err != nil {
			break
		}
		vals = append(vals, v)
	}

	if rerr := d.Resume(ctx); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}
	return vals, nil
}

// WriteReg halts the hart, writes reg, and resumes it.
func (d *DM) WriteReg(ctx context.Context, reg rfpc.Reg, value uint64) error {
	if err := d.Halt(ctx); err != nil {
		return err
	}
	err := d.writeReg(ctx, reg.RegAddr(), value)
	if rerr := d.Resume(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// x10Addr and x11Addr are the abstract-command register numbers for
// GPRs a0/a1, used as scratch registers by the memory access routines.
const (
	x10Addr = 0x100A
	x11Addr = 0x100B
)

// ReadMemory halts the hart, reads count 64-bit words starting at
// addr via the program buffer, restores the scratch GPR it clobbers,
// and resumes the hart.
func (d *DM) ReadMemory(ctx context.Context, addr uint64, count int) ([]uint64, error) {
	if err := d.Halt(ctx); err != nil {
		return nil, err
	}
	words, err := d.readMemory(ctx, addr, count)
	if rerr := d.Resume(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return words, err
}

func (d *DM) readMemory(ctx context.Context, addr uint64, count int) ([]uint64, error) {
	savedA0, err := d.readReg(ctx, x10Addr)
	if err != nil {
		return nil, err
	}

	words := make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		byteAddr := addr + 8*uint64(i)

		if err := d.xpbWrite(regData0, uint32(byteAddr&0xFFFFFFFF)); err != nil {
			return nil, err
		}
		if err := d.xpbWrite(regData1, uint32(byteAddr>>32)); err != nil {
			return nil, err
		}
		// `ld a0, (0)a0` — loads mem[a0] into a0.
		if err := d.xpbWrite(regProgbuf0, 0x00053503); err != nil {
			return nil, err
		}
		// Write + postexec into x10: loads byteAddr into a0, then runs
		// the program buffer instruction above.
		if err := d.xpbWrite(regCommand, 0x0037100A); err != nil {
			return nil, err
		}
		if err := d.abstractCmdBusyWait(ctx); err != nil {
			return nil, err
		}

		// Transfer a0 back into data0/data1.
		if err := d.xpbWrite(regCommand, 0x0032100A); err != nil {
			return nil, err
		}
		if err := d.abstractCmdBusyWait(ctx); err != nil {
			return nil, err
		}

		lo, err := d.xpbRead(regData0)
		if err != nil {
			return nil, err
		}
		hi, err := d.xpbRead(regData1)
		if err != nil {
			return nil, err
		}
		words = append(words, uint64(lo)|uint64(hi)<<32)
	}

	if err := d.writeReg(ctx, x10Addr, savedA0); err != nil {
		return nil, err
	}
	return words, nil
}

// WriteMemory halts the hart, writes data as consecutive 64-bit words
// starting at addr via the program buffer, restores the two scratch
// GPRs it clobbers, and resumes the hart.
func (d *DM) WriteMemory(ctx context.Context, addr uint64, data []uint64) error {
	if err := d.Halt(ctx); err != nil {
		return err
	}
	err := d.writeMemory(ctx, addr, data)
	if rerr := d.Resume(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

func (d *DM) writeMemory(ctx context.Context, addr uint64, data []uint64) error {
	savedA0, err := d.readReg(ctx, x10Addr)
	if err != nil {
		return err
	}
	savedA1, err := d.readReg(ctx, x11Addr)
	if err != nil {
		return err
	}

	for i, word := range data {
		byteAddr := addr + 8*uint64(i)

		if err := d.xpbWrite(regData0, uint32(word&0xFFFFFFFF)); err != nil {
			return err
		}
		if err := d.xpbWrite(regData1, uint32(word>>32)); err != nil {
			return err
		}
		// Load x11 with the data word.
		if err := d.xpbWrite(regCommand, 0x0033100B); err != nil {
			return err
		}
		if err := d.abstractCmdBusyWait(ctx); err != nil {
			return err
		}

		if err := d.xpbWrite(regData0, uint32(byteAddr&0xFFFFFFFF)); err != nil {
			return err
		}
		if err := d.xpbWrite(regData1, uint32(byteAddr>>32)); err != nil {
			return err
		}
		// `sd x11, 0(x10)` — stores x11 into mem[a0].
		if err := d.xpbWrite(regProgbuf0, 0x00B53023); err != nil {
			return err
		}
		// Write + postexec into x10: loads byteAddr into a0, then runs
		// the store above.
		if err := d.xpbWrite(regCommand, 0x0037100A); err != nil {
			return err
		}
		if err := d.abstractCmdBusyWait(ctx); err != nil {
			return err
		}
	}

	if err := d.writeReg(ctx, x10Addr, savedA0); err != nil {
		return err
	}
	return d.writeReg(ctx, x11Addr, savedA1)
}

// SingleStep sets dcsr.step, resumes, waits for the hart to re-halt
// with cause=4 (single step trap), and clears dcsr.step.
func (d *DM) SingleStep(ctx context.Context) error {
	if err := d.Halt(ctx); err != nil {
		return err
	}

	dcsrAddr := rfpc.CsrReg(rfpc.Dcsr).RegAddr()
	dcsrVal, err := d.readReg(ctx, dcsrAddr)
	if err != nil {
		return err
	}
	if err := d.writeReg(ctx, dcsrAddr, dcsrVal|dcsrStep); err != nil {
		return err
	}

	hartsello, _ := d.Core.DmHartsel()
	dmcontrol := uint32(hartsello)<<16 | dmcontrolDmactive | dmcontrolResumereq
	if err := d.xpbWrite(regDmcontrol, dmcontrol); err != nil {
		return err
	}
	if err := d.pollDmstatus(ctx, dmstatusAllhalted, haltResumeDeadline, "single step"); err != nil {
		return err
	}

	dcsrVal, err = d.readReg(ctx, dcsrAddr)
	if err != nil {
		return err
	}
	cause := (uint32(dcsrVal) & dcsrCause) >> 6
	if cause != stepCause {
		return &CauseMismatchError{Op: "single step", Expected: stepCause, Got: cause}
	}
	return d.writeReg(ctx, dcsrAddr, dcsrVal&^uint64(dcsrStep))
}

// Continue sets dcsr.ebreakm/ebreaku so software breakpoints trap back
// to the debugger, resumes, waits (40-second deadline) for the hart to
// re-halt with cause=1 (ebreak), and clears the ebreak-trap bits.
func (d *DM) Continue(ctx context.Context) error {
	if err := d.Halt(ctx); err != nil {
		return err
	}

	dcsrAddr := rfpc.CsrReg(rfpc.Dcsr).RegAddr()
	dcsrVal, err := d.readReg(ctx, dcsrAddr)
	if err != nil {
		return err
	}
	if err := d.writeReg(ctx, dcsrAddr, dcsrVal|dcsrEbreakm|dcsrEbreaku); err != nil {
		return err
	}

	hartsello, _ := d.Core.DmHartsel()
	dmcontrol := uint32(hartsello)<<16 | dmcontrolDmactive | dmcontrolResumereq
	if err := d.xpbWrite(regDmcontrol, dmcontrol); err != nil {
		return err
	}
	if err := d.pollDmstatus(ctx, dmstatusAllhalted, continueDeadline, "continue"); err != nil {
		return err
	}

	dcsrVal, err = d.readReg(ctx, dcsrAddr)
	if err != nil {
		return err
	}
	cause := (uint32(dcsrVal) & dcsrCause) >> 6
	if cause != continueCause {
		return &CauseMismatchError{Op: "continue", Expected: continueCause, Got: cause}
	}
	return d.writeReg(ctx, dcsrAddr, dcsrVal&^uint64(dcsrEbreakm|dcsrEbreaku))
}
