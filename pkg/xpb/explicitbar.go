package xpb

import (
	"encoding/binary"
	"fmt"
)

// Explicit-command BAR layout constants (§4.1, §4.5).
//
// Grounded on original_source/src/libs/explicit_bar.rs.
const (
	numExplBars           = 4
	explBarBaseOffset     = 0x180
	explBarCsrOffset      = 0x10
	pcieIntSramBase       = 0x40000
	sramDataBaseOffset    = 0xE000
	sramDataExplBarOffset = 128
)

// ExplicitBar drives one of the four explicit-command BARs: a trigger
// window that issues an arbitrary CPP bus transaction when read, and a
// shared data window over PCIe-internal SRAM used to stage push/pull
// payloads larger than a direct register transfer.
type ExplicitBar struct {
	pciBDF        string
	index         uint32
	triggerExpBar *ExpBar
	dataExpBar    *ExpBar
}

// NewExplicitBar opens and configures explicit-command BAR index on
// the given PCIe device: the trigger window is mapped with
// MapType::Explicit (all configuration fields besides the map type are
// ignored for it), and the data window is mapped General, pointed at
// the PCIe-internal SRAM region reserved for explicit command staging.
func NewExplicitBar(pciBDF string, index uint32) (*ExplicitBar, error) {
	trigger, err := NewExpBar(pciBDF, 0)
	if err != nil {
		return nil, fmt.Errorf("xpb: open trigger window: %w", err)
	}
	trigger.SetMapType(Explicit)
	if err := trigger.Configure(0, 0, 0, Len32); err != nil {
		trigger.Close()
		return nil, fmt.Errorf("xpb: configure trigger window: %w", err)
	}

	data, err := NewExpBar(pciBDF, 1)
	if err != nil {
		trigger.Close()
		return nil, fmt.Errorf("xpb: open data window: %w", err)
	}
	data.SetMapType(General)
	if err := data.Configure(Local.ID(), 0, uint64(pcieIntSramBase+sramDataBaseOffset), Len32); err != nil {
		trigger.Close()
		data.Close()
		return nil, fmt.Errorf("xpb: configure data window: %w", err)
	}

	return &ExplicitBar{
		pciBDF:        pciBDF,
		index:         index,
		triggerExpBar: trigger,
		dataExpBar:    data,
	}, nil
}

// Close releases both underlying expansion windows.
func (b *ExplicitBar) Close() error {
	err := b.triggerExpBar.Close()
	if derr := b.dataExpBar.Close(); err == nil {
		err = derr
	}
	return err
}

// explBarOffset returns this BAR's offset within the trigger window,
// which is split evenly across the four explicit-command BARs.
func (b *ExplicitBar) explBarOffset() uint64 {
	return (b.triggerExpBar.Size() / numExplBars) * uint64(b.index)
}

// Size returns the byte size of one explicit-command BAR's share of
// the trigger window.
func (b *ExplicitBar) Size() uint64 {
	return b.triggerExpBar.Size() / numExplBars
}

// csrOffset returns the byte offset of this BAR's four configuration
// registers within the mapped BAR0 region (not PCIe config space —
// these CSRs are a fixed field of the BAR itself).
func (b *ExplicitBar) csrOffset() uint64 {
	return explBarBaseOffset + uint64(b.index)*explBarCsrOffset
}

// sramDataOffset returns this BAR's slice of the shared SRAM data
// window.
func (b *ExplicitBar) sramDataOffset() uint64 {
	return uint64(b.index) * sramDataExplBarOffset
}

// ExplicitCmdParams describes one explicit CPP bus command, mirroring
// the trigger register's four 32-bit fields.
type ExplicitCmdParams struct {
	TargetIslandID uint8
	Target         uint8
	Action         uint8
	Token          uint8
	BaseAddr       uint64 // 32-bit CPP address; low 16 bits must be zero.
	SigType        *uint8
	Length         uint8
	ByteMask       uint8
	MasterIsland   *uint8
	DataMaster     *uint8
	DataRef        *uint8
	SignalMaster   *uint8
	SignalRef      *uint8
}

func optOr(p *uint8) uint8 {
	if p == nil {
		return 0
	}
	return *p
}

// Configure programs this BAR's four trigger configuration registers
// from params. It panics if SigType is set together with any of the
// master/reference fields (the hardware treats these as mutually
// exclusive encodings of the cfg1/cfg2 words), or if BaseAddr carries
// non-zero bits below bit 16 (explicit BARs address with a 32-bit
// base and would silently truncate them) — matching the prototype's
// own validation, which treats both as programmer error rather than a
// runtime condition.
func (b *ExplicitBar) Configure(p ExplicitCmdParams) error {
	if p.SigType != nil && (p.MasterIsland != nil || p.DataMaster != nil || p.DataRef != nil || p.SignalMaster != nil || p.SignalRef != nil) {
		panic("xpb: SigType must not be set together with master/reference fields")
	}
	if p.BaseAddr&0xFFFF != 0 {
		panic(fmt.Sprintf("xpb: explicit command BARs use a 32-bit base address; low 16 bits of %#x would be truncated", p.BaseAddr))
	}

	var cfg0, cfg1, cfg2, cfg3 uint32
	cfg0 |= uint32(optOr(p.SigType)&0x3) << 28
	cfg0 |= uint32(p.Action&0x3F) << 20
	cfg0 |= uint32(p.Token&0x3) << 16
	cfg0 |= uint32(p.Length&0x1F) << 8
	cfg0 |= uint32(p.ByteMask)

	cfg1 |= uint32(p.Target&0xF) << 28
	cfg1 |= uint32(optOr(p.MasterIsland)&0x7F) << 21
	cfg1 |= uint32(optOr(p.DataMaster)&0x1F) << 16
	cfg1 |= uint32(optOr(p.DataRef))

	cfg2 |= 1 << 31
	cfg2 |= uint32(p.TargetIslandID&0x7F) << 16
	cfg2 |= uint32(optOr(p.SignalRef)&0x7F) << 8
	cfg2 |= uint32(optOr(p.SignalMaster) & 0x1F)

	cfg3 = uint32(p.BaseAddr >> 16)

	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], cfg0)
	binary.LittleEndian.PutUint32(buf[4:8], cfg1)
	binary.LittleEndian.PutUint32(buf[8:12], cfg2)
	binary.LittleEndian.PutUint32(buf[12:16], cfg3)

	return b.triggerExpBar.Write(buf[:], b.csrOffset())
}

// trigger issues the explicit command by reading lengthWords 32-bit
// words from the trigger window at this BAR's offset; the read itself
// is what fires the CPP transaction on the hardware.
func (b *ExplicitBar) trigger(offset, lengthWords uint64) ([]uint32, error) {
	raw, err := b.triggerExpBar.Read(b.explBarOffset()+offset, lengthWords*4)
	if err != nil {
		return nil, err
	}
	return bytesToWords(raw), nil
}

func (b *ExplicitBar) writeData(data []uint32) error {
	if len(data) > sramDataExplBarOffset/4 {
		return fmt.Errorf("xpb: explicit command data length %d exceeds SRAM capacity", len(data))
	}
	return b.dataExpBar.Write(wordsToBytes(data), b.sramDataOffset())
}

func (b *ExplicitBar) readData(lengthWords uint64) ([]uint32, error) {
	if lengthWords > sramDataExplBarOffset/4 {
		return nil, fmt.Errorf("xpb: explicit command data length %d exceeds SRAM capacity", lengthWords)
	}
	raw, err := b.dataExpBar.Read(b.sramDataOffset(), lengthWords*4)
	if err != nil {
		return nil, err
	}
	return bytesToWords(raw), nil
}

// validDirectPushSizes are the push-data word counts small enough to
// be read straight from the trigger window instead of staged through
// SRAM.
var validDirectPushSizes = map[uint64]bool{1: true, 4: true, 8: true}

// RunExplicitCmd executes one explicit CPP command at offset within
// this BAR's share of the trigger window. If pullData is non-empty it
// is staged into SRAM before the trigger read. If pushDataLen is
// non-nil, that many 32-bit words are returned, either read directly
// from the trigger window (when pushDataLen is one of
// validDirectPushSizes and requirePushDataFromSRAM is false) or staged
// through SRAM otherwise.
func (b *ExplicitBar) RunExplicitCmd(offset uint64, pullData []uint32, pushDataLen *uint64, requirePushDataFromSRAM bool) ([]uint32, error) {
	if len(pullData) > 0 {
		if err := b.writeData(pullData); err != nil {
			return nil, err
		}
	}

	useSRAM := requirePushDataFromSRAM
	if pushDataLen == nil {
		useSRAM = true
	} else if !validDirectPushSizes[*pushDataLen] {
		useSRAM = true
	}

	if useSRAM {
		if _, err := b.trigger(offset, 1); err != nil {
			return nil, err
		}
		if pushDataLen != nil {
			return b.readData(*pushDataLen)
		}
		return nil, nil
	}

	if pushDataLen != nil {
		return b.trigger(offset, *pushDataLen)
	}
	return nil, nil
}

func bytesToWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4 : i*4+4])
	}
	return words
}

func wordsToBytes(w []uint32) []byte {
	b := make([]byte, len(w)*4)
	for i, word := range w {
		binary.LittleEndian.PutUint32(b[i*4:i*4+4], word)
	}
	return b
}
