// Package sysreg gives field-level access to the Hercules system and ESM
// register banks that the global clock module (GCM) lives in.
//
// Register names and offsets follow the TMS570LC43x technical reference
// manual (SPNU563), chapter 2 "Architecture" and chapter 16 "ESM".
package sysreg

import "fmt"

// Bank identifies one of the fixed memory-mapped register frames.
type Bank int

const (
	SYS1 Bank = iota // Primary system control, 0xFFFFFF00
	SYS2             // Secondary system control, 0xFFFFE100
	ESM              // Error signaling module, 0xFFFFF500
	numBanks
)

const (
	SYS1_BASE = uintptr(0xFFFFFF00)
	SYS2_BASE = uintptr(0xFFFFE100)
	ESM_BASE  = uintptr(0xFFFFF500)
	BANK_SIZE = 0x100
)

func (b Bank) String() string {
	switch b {
	case SYS1:
		return "SYS1"
	case SYS2:
		return "SYS2"
	case ESM:
		return "ESM"
	}
	return fmt.Sprintf("Bank(%d)", int(b))
}

// Reg is a single 32-bit register: the bank it lives in and its byte offset
// within that bank.
type Reg struct {
	Bank   Bank
	Offset uintptr
	Name   string
}

func (r Reg) String() string {
	return r.Name
}

var (
	CSDIS     = Reg{SYS1, 0x30, "CSDIS"}     // Clock Source Disable
	CSDISSET  = Reg{SYS1, 0x34, "CSDISSET"}  // Clock Source Disable Set
	CSDISCLR  = Reg{SYS1, 0x38, "CSDISCLR"}  // Clock Source Disable Clear
	CDDIS     = Reg{SYS1, 0x3c, "CDDIS"}     // Clock Domain Disable
	CDDISSET  = Reg{SYS1, 0x40, "CDDISSET"}  // Clock Domain Disable Set
	CDDISCLR  = Reg{SYS1, 0x44, "CDDISCLR"}  // Clock Domain Disable Clear
	GHVSRC    = Reg{SYS1, 0x48, "GHVSRC"}    // GCLK1, HCLK, VCLK, and VCLK2 Source
	VCLKASRC  = Reg{SYS1, 0x4c, "VCLKASRC"}  // Peripheral Asynchronous Clock Source
	RCLKSRC   = Reg{SYS1, 0x50, "RCLKSRC"}   // RTI Clock Source Selection
	CSVSTAT   = Reg{SYS1, 0x54, "CSVSTAT"}   // Clock Source Valid Status
	PLLCTL1   = Reg{SYS1, 0x70, "PLLCTL1"}   // PLL Control 1
	PLLCTL2   = Reg{SYS1, 0x74, "PLLCTL2"}   // PLL Control 2
	CLKCNTL   = Reg{SYS1, 0xd0, "CLKCNTL"}   // Clock Control
	GBLSTAT   = Reg{SYS1, 0xec, "GBLSTAT"}   // Global Status
	PLLCTL3   = Reg{SYS2, 0x00, "PLLCTL3"}   // PLL Control 3 (PLL2)
	VCLKACON1 = Reg{SYS2, 0x40, "VCLKACON1"} // Peripheral Asynchronous Clock Configuration 1
	HCLKCNTL  = Reg{SYS2, 0x54, "HCLKCNTL"}  // HCLK Control
	SR1_0     = Reg{ESM, 0x18, "ESMSR1[0]"}  // ESM Status 1, group 1
	SR4_0     = Reg{ESM, 0x58, "ESMSR4[0]"}  // ESM Status 4, group 1 upper channels
)

// All lists every register the clock module touches, in bank/offset order.
var All = []Reg{
	CSDIS, CSDISSET, CSDISCLR, CDDIS, CDDISSET, CDDISCLR, GHVSRC, VCLKASRC,
	RCLKSRC, CSVSTAT, PLLCTL1, PLLCTL2, CLKCNTL, GBLSTAT,
	PLLCTL3, VCLKACON1, HCLKCNTL,
	SR1_0, SR4_0,
}

// GBLSTAT flags. Writing 1 clears.
const (
	GBLSTAT_FBSLIP  = 1 << 9
	GBLSTAT_RFSLIP  = 1 << 8
	GBLSTAT_OSCFAIL = 1 << 0
)

// CLKCNTL fields.
const (
	CLKCNTL_PENA       = 1 << 8
	CLKCNTL_VCLKR_MASK = 0xf << 16
	CLKCNTL_VCLKR_POS  = 16
	CLKCNTL_VCLK2_MASK = 0xf << 24
)

const (
	HCLKCNTL_HCLKR_MASK = 0x3
)

// ESM_SR_PLLSLIP is the PLLx slip channel in ESMSR1[0] (PLL1) and
// ESMSR4[0] (PLL2). Writing 1 clears.
const ESM_SR_PLLSLIP = 1 << 10

// Bus reads and writes registers. Accesses are side-effecting: a write to a
// set/clear or write-1-to-clear register is not plain storage. Nothing here
// validates values.
type Bus interface {
	Read32(r Reg) uint32
	Write32(r Reg, v uint32)
}

func SetBits(b Bus, r Reg, bits uint32) {
	b.Write32(r, b.Read32(r)|bits)
}

func ClearBits(b Bus, r Reg, bits uint32) {
	b.Write32(r, b.Read32(r)&^bits)
}

// HasBits reports whether all of bits are set in r.
func HasBits(b Bus, r Reg, bits uint32) bool {
	return b.Read32(r)&bits == bits
}

// ReplaceBits replaces the field mask<<pos in r with value<<pos.
func ReplaceBits(b Bus, r Reg, value, mask uint32, pos uint) {
	b.Write32(r, b.Read32(r)&^(mask<<pos)|(value&mask)<<pos)
}
