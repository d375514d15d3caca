// Package rsp implements a GDB Remote Serial Protocol server that
// bridges an attached GDB client to a single RFPC hart's Debug
// Module, dispatching each command to the debug driver and
// maintaining the feature-negotiation and software-breakpoint state
// a debug session needs.
package rsp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/corigine/rfpc-rsp-bridge/pkg/dbg"
	"github.com/corigine/rfpc-rsp-bridge/pkg/rfpc"
	"github.com/corigine/rfpc-rsp-bridge/pkg/xpb"
)

// Addr is the fixed listen address this bridge binds (spec.md §6).
const Addr = "127.0.0.1:12727"

const acceptPollInterval = 100 * time.Millisecond

// serverFeatures are the value features this server advertises in its
// qSupported reply, in the fixed order the wire response is composed
// from (spec.md §4.4's byte-exact qSupported response).
var serverFeatures = []string{"PacketSize=100000", "qMemoryRead+", "swbreak+"}

// Server owns one debug session's negotiated state and dispatches
// incoming RSP commands against the hart identified by Core.
type Server struct {
	Win         *xpb.ExpBar
	ExplicitBar *xpb.ExplicitBar
	Core        rfpc.Rfpc
	DM          *dbg.DM

	Stderr io.Writer

	ackEnabled     bool
	clientFeatures map[string]string
	clientFlags    []string
	breakpoints    map[uint64]uint64

	ctx context.Context
}

// New returns a Server ready to accept one connection at a time
// against the given hart.
func New(win *xpb.ExpBar, explBar *xpb.ExplicitBar, core rfpc.Rfpc, dm *dbg.DM) *Server {
	return &Server{
		Win:            win,
		ExplicitBar:    explBar,
		Core:           core,
		DM:             dm,
		ackEnabled:     true,
		clientFeatures: make(map[string]string),
		breakpoints:    make(map[uint64]uint64),
	}
}

func (s *Server) stderr() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return os.Stderr
}

// Run listens on Addr and serially accepts clients until ctx is
// cancelled, matching the single-threaded accept/dispatch model of
// spec.md §5: one connection at a time, a 100ms idle poll, and a
// clean return to accepting after every client disconnects.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", Addr)
	if err != nil {
		return fmt.Errorf("rsp: listen %s: %w", Addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if tl, ok := ln.(*net.TCPListener); ok {
			tl.SetDeadline(time.Now().Add(acceptPollInterval))
		}
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				time.Sleep(acceptPollInterval)
				continue
			}
			fmt.Fprintf(s.stderr(), "rsp: accept: %v\n", err)
			continue
		}

		s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	s.ctx = ctx
	s.ackEnabled = true
	s.clientFeatures = make(map[string]string)
	s.clientFlags = nil

	r := bufio.NewReader(conn)
	for {
		payload, wireChecksum, rawSum, err := readPacket(r)
		if err != nil {
			if err != io.EOF {
				fmt.Fprintf(s.stderr(), "rsp: read packet: %v\n", err)
			}
			return
		}

		if rawSum != wireChecksum {
			if s.ackEnabled {
				conn.Write([]byte{'-'})
			}
			continue
		}
		if s.ackEnabled {
			conn.Write([]byte{'+'})
		}

		reply, detach := s.dispatch(string(payload))
		if reply == nil {
			if detach {
				return
			}
			continue
		}
		if _, err := conn.Write(formatPacket(reply)); err != nil {
			fmt.Fprintf(s.stderr(), "rsp: write packet: %v\n", err)
			return
		}
		if detach {
			return
		}
	}
}

// dispatch resolves payload against the command table and runs its
// handler. The dispatch key is the payload up to (but not including)
// its first ':', matching the prototype's command-extraction rule;
// the handler itself still receives the full payload so it can parse
// any trailing argument section. detach is true after `D` or `k`,
// telling the caller to close the connection once the reply (if any)
// is sent.
func (s *Server) dispatch(payload string) (reply []byte, detach bool) {
	key := payload
	if idx := strings.IndexByte(payload, ':'); idx >= 0 {
		key = payload[:idx]
	}

	entry, ok := s.lookup(key)
	if !ok {
		return []byte{}, false
	}

	switch {
	case entry.noReply:
		return nil, false
	case entry.static != "":
		return []byte(entry.static), false
	case entry.noArg != nil:
		return []byte(entry.noArg(s)), false
	case entry.withArg != nil:
		return []byte(entry.withArg(s, payload)), false
	case entry.detach:
		s.restoreAllBreakpoints()
		return []byte("OK"), true
	case entry.silent:
		s.restoreAllBreakpoints()
		return nil, true
	default:
		return []byte{}, false
	}
}

type dispatchEntry struct {
	static  string
	noArg   func(s *Server) string
	withArg func(s *Server, payload string) string
	detach  bool
	silent  bool
	noReply bool
}

// lookup finds the longest table key that is a prefix of cmd (spec.md
// §4.4: "longest prefix present in the table"), checking an exact
// match first as a fast path.
func (s *Server) lookup(cmd string) (dispatchEntry, bool) {
	if e, ok := commandTable[cmd]; ok {
		return e, true
	}

	bestLen := -1
	var best dispatchEntry
	for key, e := range commandTable {
		if len(key) > bestLen && strings.HasPrefix(cmd, key) {
			best = e
			bestLen = len(key)
		}
	}
	if bestLen >= 0 {
		return best, true
	}
	return dispatchEntry{}, false
}

var commandTable = map[string]dispatchEntry{
	"?":               {static: "S12"},
	"qAttached":       {static: "1"},
	"qC":              {static: "-1"},
	"qOffsets":        {static: "Text=000;Data=000;Bss=000"},
	"QStartNoAckMode": {noArg: handleStartNoAckMode},
	"qSupported":      {withArg: handleQSupported},
	"H":               {static: "OK"},
	"g":               {noArg: handleReadAllRegs},
	"p":               {withArg: handleReadReg},
	"P":               {withArg: handleWriteReg},
	"m":               {withArg: handleReadMem},
	"M":               {withArg: handleWriteMem},
	"X":               {withArg: handleWriteMemBinary},
	"s":               {withArg: handleStep},
	"S":               {withArg: handleStepSig},
	"c":               {withArg: handleContinue},
	"C":               {withArg: handleContinueSig},
	"Z0":              {withArg: handleSetBreakpoint},
	"z0":              {withArg: handleClearBreakpoint},
	"D":               {detach: true},
	"k":               {silent: true},
	"!":               {static: ""},
	"vMustReplyEmpty": {static: ""},
	// Ctrl-C interrupt: a raw \x03 byte outside a packet is discarded
	// by readPacket; a framed "\x03" payload is acked like any packet
	// but otherwise left unimplemented, matching the prototype's
	// cmd_resp_map entry for "\x03" (no reply, no halt request issued).
	"\x03": {noReply: true},
}

func handleStartNoAckMode(s *Server) string {
	s.ackEnabled = false
	return "OK"
}

func handleQSupported(s *Server, payload string) string {
	idx := strings.IndexByte(payload, ':')
	args := ""
	if idx >= 0 {
		args = payload[idx+1:]
	}
	for _, feat := range strings.Split(args, ";") {
		if feat == "" {
			continue
		}
		if k, v, found := strings.Cut(feat, "="); found {
			s.clientFeatures[k] = v
		} else {
			s.clientFlags = append(s.clientFlags, feat)
		}
	}
	return strings.Join(serverFeatures, ";")
}
