package sysreg

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
)

const (
	MEM_FILE  = "/dev/mem"
	PAGE_SIZE = 4096
)

// Bases gives the file offset of each bank. For /dev/mem these are the
// physical addresses; a register image file packs the banks into one page.
type Bases [numBanks]uintptr

var (
	PhysBases  = Bases{SYS1: SYS1_BASE, SYS2: SYS2_BASE, ESM: ESM_BASE}
	ImageBases = Bases{SYS1: 0x000, SYS2: 0x100, ESM: 0x200}
)

// ImageSize is the minimum size of a register image file laid out with ImageBases.
const ImageSize = PAGE_SIZE

// Mapped is a Bus over memory-mapped registers.
type Mapped struct {
	f    *os.File
	bufs [numBanks]mmap.MMap
	offs [numBanks]uintptr
}

// Map opens path and maps each bank at the offset given by bases.
func Map(path string, bases Bases) (*Mapped, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %v", path, err)
	}
	m := &Mapped{f: f}
	for b := Bank(0); b < numBanks; b++ {
		m.bufs[b], m.offs[b], err = mapMem(f, bases[b], BANK_SIZE)
		if err != nil {
			m.Close() // Ignore error
			return nil, fmt.Errorf("couldn't map %v at %08X: %v", b, bases[b], err)
		}
	}
	return m, nil
}

// CreateImage makes sure path exists and is big enough to hold a register
// image laid out with ImageBases. Existing contents are kept.
func CreateImage(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("couldn't open image %s: %v", path, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("couldn't stat image %s: %v", path, err)
	}
	if fi.Size() >= ImageSize {
		return nil
	}
	return f.Truncate(ImageSize)
}

// mapMem maps size bytes at physAddr. Since the mapping has to start at a page
// boundary, physAddr is rounded down and the offset of the wanted area within
// the mapping is returned alongside it.
func mapMem(f *os.File, physAddr uintptr, size int) (mmap.MMap, uintptr, error) {
	pagemask := ^uintptr(PAGE_SIZE - 1)
	mapAddr := physAddr & pagemask
	size += int(physAddr - mapAddr)
	mm, err := mmap.MapRegion(f, size, mmap.RDWR, 0, int64(mapAddr))
	if err != nil {
		return nil, 0, fmt.Errorf("couldn't map region (%08X, %v): %v", physAddr, size, err)
	}
	return mm, physAddr - mapAddr, nil
}

func (m *Mapped) word(r Reg) *uint32 {
	return (*uint32)(unsafe.Pointer(&m.bufs[r.Bank][m.offs[r.Bank]+r.Offset]))
}

func (m *Mapped) Read32(r Reg) uint32 {
	return atomic.LoadUint32(m.word(r))
}

func (m *Mapped) Write32(r Reg, v uint32) {
	atomic.StoreUint32(m.word(r), v)
}

// Flush writes the mapped banks back to the file. Only meaningful for image files.
func (m *Mapped) Flush() error {
	for _, b := range m.bufs {
		if b == nil {
			continue
		}
		if err := b.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapped) Close() error {
	var err error
	for i, b := range m.bufs {
		if b == nil {
			continue
		}
		if te := b.Unmap(); te != nil && err == nil {
			err = te
		}
		m.bufs[i] = nil
	}
	if m.f != nil {
		if te := m.f.Close(); te != nil && err == nil {
			err = te
		}
		m.f = nil
	}
	return err
}
