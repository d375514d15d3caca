package rsp

import (
	"errors"
	"strconv"
	"strings"

	"github.com/corigine/rfpc-rsp-bridge/pkg/dbg"
	"github.com/corigine/rfpc-rsp-bridge/pkg/rfpc"
)

// errorReply maps the error taxonomy in spec.md §7 onto its GDB error
// reply code. Errors outside the taxonomy fall back to the empty
// "malformed request" reply rather than a made-up code.
func errorReply(err error) string {
	var timeout *dbg.TimeoutError
	if errors.As(err, &timeout) {
		return "E01"
	}
	var causeMismatch *dbg.CauseMismatchError
	if errors.As(err, &causeMismatch) {
		return "E02"
	}
	var notCached *BreakpointNotCachedError
	if errors.As(err, &notCached) {
		return "E03"
	}
	return ""
}

func handleReadAllRegs(s *Server) string {
	regs := make([]rfpc.Reg, regCount())
	for i := range regs {
		regs[i], _ = regAt(i)
	}

	vals, err := s.DM.ReadRegs(s.ctx, regs)
	if err != nil {
		return errorReply(err)
	}

	var sb strings.Builder
	for _, val := range vals {
		sb.WriteString(hex16(swapReg(val)))
	}
	return sb.String()
}

func handleReadReg(s *Server, payload string) string {
	idx, err := strconv.ParseUint(payload[1:], 16, 32)
	if err != nil {
		return ""
	}
	reg, err := regAt(int(idx))
	if err != nil {
		return "E04"
	}
	val, err := s.DM.ReadReg(s.ctx, reg)
	if err != nil {
		return errorReply(err)
	}
	return hex16(swapReg(val))
}

func handleWriteReg(s *Server, payload string) string {
	body := payload[1:]
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		return ""
	}
	idx, err := strconv.ParseUint(body[:eq], 16, 32)
	if err != nil {
		return ""
	}
	val, err := parseHex64(body[eq+1:])
	if err != nil {
		return ""
	}
	reg, err := regAt(int(idx))
	if err != nil {
		return "E04"
	}
	if err := s.DM.WriteReg(s.ctx, reg, swapReg(val)); err != nil {
		return errorReply(err)
	}
	return "OK"
}

func handleReadMem(s *Server, payload string) string {
	addr, length, _, err := parseAddrLen(payload[1:])
	if err != nil {
		return ""
	}
	out, err := s.readMemory(addr, length)
	if err != nil {
		return errorReply(err)
	}
	return out
}

func handleWriteMem(s *Server, payload string) string {
	addr, length, hexData, err := parseAddrLen(payload[1:])
	if err != nil {
		return ""
	}
	if length == 0 {
		return "OK"
	}
	data := make([]byte, 0, len(hexData)/2)
	for i := 0; i+1 < len(hexData); i += 2 {
		b, err := parseHexByte(hexData[i], hexData[i+1])
		if err != nil {
			return ""
		}
		data = append(data, b)
	}
	if err := s.writeMemory(addr, data); err != nil {
		return errorReply(err)
	}
	return "OK"
}

func handleWriteMemBinary(s *Server, payload string) string {
	colon := strings.IndexByte(payload, ':')
	if colon < 0 {
		return ""
	}
	addr, length, _, err := parseAddrLen(payload[1:colon])
	if err != nil {
		return ""
	}
	if length == 0 {
		return "OK"
	}
	data := decodeBinaryPayload([]byte(payload[colon+1:]))
	if err := s.writeMemory(addr, data); err != nil {
		return errorReply(err)
	}
	return "OK"
}

func maybeSetDpc(s *Server, payload string) error {
	if len(payload) <= 1 {
		return nil
	}
	addr, err := parseHex64(payload[1:])
	if err != nil {
		return nil
	}
	return s.DM.WriteReg(s.ctx, rfpc.CsrReg(rfpc.Dpc), addr)
}

func handleStep(s *Server, payload string) string {
	if err := maybeSetDpc(s, payload); err != nil {
		return errorReply(err)
	}
	if err := s.DM.SingleStep(s.ctx); err != nil {
		return errorReply(err)
	}
	return "S05"
}

func handleStepSig(s *Server, _ string) string {
	if err := s.DM.SingleStep(s.ctx); err != nil {
		return errorReply(err)
	}
	return "S05"
}

func handleContinue(s *Server, payload string) string {
	if err := maybeSetDpc(s, payload); err != nil {
		return errorReply(err)
	}
	if err := s.DM.Continue(s.ctx); err != nil {
		return errorReply(err)
	}
	return "S05"
}

func handleContinueSig(s *Server, _ string) string {
	if err := s.DM.Continue(s.ctx); err != nil {
		return errorReply(err)
	}
	return "S05"
}

// breakpointAddrLen parses the `<addr>,<kind>` body of a Z0/z0
// packet, which starts three bytes into the payload (`Z0,`/`z0,`).
func breakpointAddrLen(payload string) (uint64, error) {
	body := payload[3:]
	comma := strings.IndexByte(body, ',')
	if comma < 0 {
		comma = len(body)
	}
	return parseHex64(body[:comma])
}

func handleSetBreakpoint(s *Server, payload string) string {
	addr, err := breakpointAddrLen(payload)
	if err != nil {
		return ""
	}
	if err := s.insertBreakpoint(addr); err != nil {
		return errorReply(err)
	}
	return "OK"
}

func handleClearBreakpoint(s *Server, payload string) string {
	addr, err := breakpointAddrLen(payload)
	if err != nil {
		return ""
	}
	if err := s.removeBreakpoint(addr); err != nil {
		return errorReply(err)
	}
	return "OK"
}
