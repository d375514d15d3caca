package xpb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// mustMerlinVendor and mustMerlinDevice are the PCIe vendor/device IDs
// a Merlin NFP must report; starting against anything else is refused
// (§6, §7 DeviceNotPresent/NotMerlinNfp).
const (
	mustMerlinVendor = "0x1da8"
	mustMerlinDevice = "0x7000"
)

// expansionBarCfgBase is the byte offset, within the mapped BAR0
// region (resource0), of window 0's 64-bit configuration register;
// window N sits at expansionBarCfgBase + 8*N (§4.1, §6). This is a
// BAR-relative MMIO offset, not a PCIe configuration-space offset —
// the config-space file is only a few KiB and cannot reach it.
const expansionBarCfgBase = 0x30000

// cfgRegionSize is the size of the separate mapping this package holds
// over the BAR's configuration-register area; one page comfortably
// covers every window index this bridge uses.
const cfgRegionSize = 4096

// ErrWindowRange is returned when a read or write would run past the
// end of the mapped expansion window.
type ErrWindowRange struct {
	Offset, Length, WindowSize uint64
}

func (e *ErrWindowRange) Error() string {
	return fmt.Sprintf("xpb: offset %#x + length %#x exceeds window size %#x", e.Offset, e.Length, e.WindowSize)
}

// ExpBar is an Expansion BAR window: a small PCIe MMIO region the host
// programs to point at an arbitrary 48-bit on-chip CPP address.
type ExpBar struct {
	bdf     string
	index   uint32
	file    *os.File
	mem     []byte
	cfgMem  []byte
	winSize uint64
	mapType MapType
}

// ValidateNfpBDF validates that pciBDF names a PCIe device present in
// sysfs and belonging to a Merlin NFP (vendor 0x1da8, device 0x7000),
// adding the "0000:" domain prefix if the caller omitted it.
//
// Grounded on original_source/src/libs/common.rs:validate_nfp_bdf.
func ValidateNfpBDF(pciBDF string) (string, error) {
	bdf := pciBDF
	if n := countColons(bdf); n < 2 {
		bdf = "0000:" + bdf
	}

	base := filepath.Join("/sys/bus/pci/devices", bdf)
	if _, err := os.Stat(base); err != nil {
		return "", fmt.Errorf("no such PCIe device: %s", bdf)
	}

	vendor, err := os.ReadFile(filepath.Join(base, "vendor"))
	if err != nil {
		return "", fmt.Errorf("failed to read vendor ID for device %s: %w", bdf, err)
	}
	device, err := os.ReadFile(filepath.Join(base, "device"))
	if err != nil {
		return "", fmt.Errorf("failed to read device ID for device %s: %w", bdf, err)
	}

	if trimHex(vendor) != mustMerlinVendor || trimHex(device) != mustMerlinDevice {
		return "", fmt.Errorf("PCIe BDF %s does not belong to a Merlin NFP", bdf)
	}

	return bdf, nil
}

func countColons(s string) int {
	n := 0
	for _, c := range s {
		if c == ':' {
			n++
		}
	}
	return n
}

func trimHex(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

// NewExpBar opens and maps the expansion window for the given PCIe
// BDF and window index. The window size is phys_bar_size/8 (§3).
func NewExpBar(bdf string, index uint32) (*ExpBar, error) {
	resourcePath := filepath.Join("/sys/bus/pci/devices", bdf, "resource0")

	info, err := os.Stat(resourcePath)
	if err != nil {
		return nil, fmt.Errorf("xpb: stat %s: %w", resourcePath, err)
	}
	physBarSize := uint64(info.Size())
	winSize := physBarSize / 8

	f, err := os.OpenFile(resourcePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("xpb: open %s: %w", resourcePath, err)
	}

	mem, err := unix.Mmap(int(f.Fd()), int64(index)*int64(winSize), int(winSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xpb: mmap %s: %w", resourcePath, err)
	}

	// The per-window configuration registers live in the same BAR,
	// well past the data window itself, so they need their own
	// mapping (§4.1's "offset 0x30000+8*index" is a BAR-relative MMIO
	// offset, not a PCIe config-space offset).
	cfgMem, err := unix.Mmap(int(f.Fd()), expansionBarCfgBase, cfgRegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Munmap(mem)
		f.Close()
		return nil, fmt.Errorf("xpb: mmap config region of %s: %w", resourcePath, err)
	}

	return &ExpBar{
		bdf:     bdf,
		index:   index,
		file:    f,
		mem:     mem,
		cfgMem:  cfgMem,
		winSize: winSize,
		mapType: General,
	}, nil
}

// Close unmaps the window and closes the underlying file.
func (e *ExpBar) Close() error {
	var err error
	if e.mem != nil {
		err = unix.Munmap(e.mem)
		e.mem = nil
	}
	if e.cfgMem != nil {
		if cerr := unix.Munmap(e.cfgMem); err == nil {
			err = cerr
		}
		e.cfgMem = nil
	}
	if cerr := e.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Size returns the mapped window size in bytes.
func (e *ExpBar) Size() uint64 { return e.winSize }

// SetMapType overrides the window's map type ahead of a Configure
// call (used by the explicit-command BAR's trigger window).
func (e *ExpBar) SetMapType(m MapType) { e.mapType = m }

// Configure programs the expansion window's configuration register —
// mapped into BAR0 (resource0) at offset 0x30000+8*index, not PCIe
// config space — to target island/target on the CPP bus at the given
// 48-bit base address with the given length class. Each 32-bit half
// of the configuration register is written and immediately read back
// to flush, mirroring explicit_bar.rs's expl_bar_config_write (§4.1).
func (e *ExpBar) Configure(islandID uint8, target uint8, baseAddr48 uint64, length CppLength) error {
	var cfg uint64
	switch e.mapType {
	case General:
		cfg |= uint64(islandID&0x7F) << 32
		cfg |= uint64(target&0xF) << 40
		cfg |= uint64(length.ID()&0x1F) << 45
		cfg |= baseAddr48 >> 16
	case Explicit:
		// All fields besides MapType are ignored for the explicit
		// command BAR's trigger window (§4.1, §4.5).
	}

	offset := 8 * uint64(e.index)
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(cfg))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(cfg>>32))

	for i := 0; i < 8; i += 4 {
		copy(e.cfgMem[offset+uint64(i):offset+uint64(i)+4], buf[i:i+4])
		// Read back immediately to force the write to drain before
		// the next transaction (§4.1 — correctness requirement, not
		// an optimization).
		_ = e.cfgMem[offset+uint64(i)]
	}

	return nil
}

// Read returns a copy of n bytes at offset in the mapped window. n
// must be a multiple of 4 (32-bit aligned); offset must also be
// 32-bit aligned.
func (e *ExpBar) Read(offset, n uint64) ([]byte, error) {
	if offset+n > e.winSize {
		return nil, &ErrWindowRange{offset, n, e.winSize}
	}
	if offset%4 != 0 || n%4 != 0 {
		return nil, fmt.Errorf("xpb: sub-word access at offset %#x length %#x", offset, n)
	}
	out := make([]byte, n)
	copy(out, e.mem[offset:offset+n])
	return out, nil
}

// Write writes data into the mapped window at offset, one 32-bit unit
// at a time, reading each unit back immediately after writing it to
// force the host's store buffer and the PCIe write path to drain
// before the next transaction (§4.1 — this is required for correct
// XPB transaction ordering, not an optimization).
func (e *ExpBar) Write(data []byte, offset uint64) error {
	if offset+uint64(len(data)) > e.winSize {
		return &ErrWindowRange{offset, uint64(len(data)), e.winSize}
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return fmt.Errorf("xpb: sub-word access at offset %#x length %#x", offset, len(data))
	}
	for i := 0; i < len(data); i += 4 {
		copy(e.mem[offset+uint64(i):offset+uint64(i)+4], data[i:i+4])
		_ = e.mem[offset+uint64(i)] // read back to flush the store
	}
	return nil
}
