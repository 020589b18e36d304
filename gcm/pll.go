package gcm

import (
	"fmt"
	"math"
)

// PLLParams is the raw, unvalidated description of a PLL, as it comes from a
// board description.
type PLLParams struct {
	NR             int // Reference divider, 1-64
	NF             int // Feedback multiplier, 1-256
	OD             int // Output divider, 1-8
	R              int // Post divider, 1-32
	ResetOnSlip    bool
	BypassOnSlip   bool
	ResetOnOscFail bool
	Modulation     *Modulation
}

// Modulation holds the spread-spectrum (frequency modulation) parameters of PLL1.
type Modulation struct {
	NS     int // Modulation rate, 1-512
	NV     int // Modulation depth, 1-512
	MulMod int // 8-511
}

// PLLConfig is a validated PLL configuration. The zero value isn't valid; use
// NewPLLConfig.
type PLLConfig struct {
	name           string
	nr, nf, od, r  uint32
	resetOnSlip    bool
	bypassOnSlip   bool
	resetOnOscFail bool
	hasMod         bool
	mod            Modulation
}

type fieldRange struct {
	field    string
	v        int
	min, max int
}

func checkRanges(pll string, rs ...fieldRange) error {
	for _, r := range rs {
		if r.v < r.min || r.v > r.max {
			return &ConfigRangeError{PLL: pll, Field: r.field, Value: r.v, Min: r.min, Max: r.max}
		}
	}
	return nil
}

// NewPLLConfig checks p against the hardware field ranges. name is only used
// in errors.
func NewPLLConfig(name string, p PLLParams) (PLLConfig, error) {
	err := checkRanges(name,
		fieldRange{"NR", p.NR, 1, 64},
		fieldRange{"NF", p.NF, 1, 256},
		fieldRange{"OD", p.OD, 1, 8},
		fieldRange{"R", p.R, 1, 32},
	)
	if err != nil {
		return PLLConfig{}, err
	}
	c := PLLConfig{
		name:           name,
		nr:             uint32(p.NR),
		nf:             uint32(p.NF),
		od:             uint32(p.OD),
		r:              uint32(p.R),
		resetOnSlip:    p.ResetOnSlip,
		bypassOnSlip:   p.BypassOnSlip,
		resetOnOscFail: p.ResetOnOscFail,
	}
	if p.Modulation != nil {
		m := *p.Modulation
		err = checkRanges(name,
			fieldRange{"NS", m.NS, 1, 512},
			fieldRange{"NV", m.NV, 1, 512},
			fieldRange{"MULMOD", m.MulMod, 8, 511},
		)
		if err != nil {
			return PLLConfig{}, err
		}
		c.hasMod = true
		c.mod = m
	}
	return c, nil
}

// validate re-checks the field ranges, so a PLLConfig that didn't come from
// NewPLLConfig can't reach the registers.
func (c PLLConfig) validate(pll string) error {
	err := checkRanges(pll,
		fieldRange{"NR", int(c.nr), 1, 64},
		fieldRange{"NF", int(c.nf), 1, 256},
		fieldRange{"OD", int(c.od), 1, 8},
		fieldRange{"R", int(c.r), 1, 32},
	)
	if err != nil || !c.hasMod {
		return err
	}
	return checkRanges(pll,
		fieldRange{"NS", c.mod.NS, 1, 512},
		fieldRange{"NV", c.mod.NV, 1, 512},
		fieldRange{"MULMOD", c.mod.MulMod, 8, 511},
	)
}

// vcoFits reports whether osc/NR*NF fits the 32-bit rate arithmetic.
func (c PLLConfig) vcoFits(osc Hertz) bool {
	return uint64(uint32(osc)/c.nr)*uint64(c.nf) <= math.MaxUint32
}

func (c PLLConfig) NR() int { return int(c.nr) }
func (c PLLConfig) NF() int { return int(c.nf) }
func (c PLLConfig) OD() int { return int(c.od) }
func (c PLLConfig) R() int  { return int(c.r) }

func (c PLLConfig) Modulation() (Modulation, bool) {
	return c.mod, c.hasMod
}

// Params returns the parameters c was built from.
func (c PLLConfig) Params() PLLParams {
	p := PLLParams{
		NR:             int(c.nr),
		NF:             int(c.nf),
		OD:             int(c.od),
		R:              int(c.r),
		ResetOnSlip:    c.resetOnSlip,
		BypassOnSlip:   c.bypassOnSlip,
		ResetOnOscFail: c.resetOnOscFail,
	}
	if c.hasMod {
		m := c.mod
		p.Modulation = &m
	}
	return p
}

func (c PLLConfig) String() string {
	return fmt.Sprintf("%s NR=%d NF=%d OD=%d R=%d", c.name, c.nr, c.nf, c.od, c.r)
}

// rate is the PLL output for an oscillator at osc. The division order matters:
// each step truncates.
func (c PLLConfig) rate(osc Hertz) Hertz {
	return Hertz(((uint32(osc) / c.nr) * c.nf) / c.od / c.r)
}

// odRate is the PLL output before the R post divider.
func (c PLLConfig) odRate(osc Hertz) Hertz {
	return Hertz(((uint32(osc) / c.nr) * c.nf) / c.od)
}

// PLLCTL1/PLLCTL2/PLLCTL3 fields.
const (
	PLLCTL1_ROS            = 1 << 31
	PLLCTL1_MASK_SLIP_POS  = 29
	PLLCTL1_MASK_SLIP_MSK  = 0x3
	PLLCTL1_BYPASS_ON_SLIP = 0x3
	PLLCTL1_SLIP_NO_BYPASS = 0x2
	PLLCTL1_PLLDIV_POS     = 24
	PLLCTL1_ROF            = 1 << 23
	PLLCTL1_REFCLKDIV_POS  = 16
	PLLCTL1_PLLMUL_POS     = 8

	PLLCTL2_FMENA             = 1 << 31
	PLLCTL2_SPREADINGRATE_POS = 22
	PLLCTL2_MULMOD_POS        = 12
	PLLCTL2_ODPLL_POS         = 9
	PLLCTL2_SPR_AMOUNT_POS    = 0

	PLLCTL3_ODPLL2_POS     = 29
	PLLCTL3_PLLDIV2_POS    = 24
	PLLCTL3_REFCLKDIV2_POS = 16
	PLLCTL3_PLLMUL2_POS    = 8
)

// Safe fallback used while working around SSWF021#45: OSCIN/1*27/(2*1), no
// modulation.
const (
	safePLLCTL1 = 0x20001a00
	safePLLCTL2 = 0x3fc0723d
	safePLLCTL3 = 0x20001a00
)

func boolBit(b bool, bit uint32) uint32 {
	if b {
		return bit
	}
	return 0
}

// PackPLLCTL1 packs PLL1's reset, slip and divider fields.
func PackPLLCTL1(c PLLConfig) uint32 {
	slip := uint32(PLLCTL1_SLIP_NO_BYPASS)
	if c.bypassOnSlip {
		slip = PLLCTL1_BYPASS_ON_SLIP
	}
	return boolBit(c.resetOnSlip, PLLCTL1_ROS) |
		slip<<PLLCTL1_MASK_SLIP_POS |
		(c.r-1)<<PLLCTL1_PLLDIV_POS |
		boolBit(c.resetOnOscFail, PLLCTL1_ROF) |
		(c.nr-1)<<PLLCTL1_REFCLKDIV_POS |
		(c.nf-1)<<PLLCTL1_PLLMUL_POS
}

// PackPLLCTL2 packs PLL1's output divider and, if fm is set and c carries
// modulation parameters, its spread-spectrum fields.
func PackPLLCTL2(c PLLConfig, fm bool) uint32 {
	v := (c.od - 1) << PLLCTL2_ODPLL_POS
	if fm && c.hasMod {
		v |= PLLCTL2_FMENA |
			uint32(c.mod.NS-1)<<PLLCTL2_SPREADINGRATE_POS |
			uint32(c.mod.MulMod)<<PLLCTL2_MULMOD_POS |
			uint32(c.mod.NV-1)<<PLLCTL2_SPR_AMOUNT_POS
	}
	return v
}

// PackPLLCTL3 packs PLL2. PLL2 has no reset, slip or modulation controls.
func PackPLLCTL3(c PLLConfig) uint32 {
	return (c.od-1)<<PLLCTL3_ODPLL2_POS |
		(c.r-1)<<PLLCTL3_PLLDIV2_POS |
		(c.nr-1)<<PLLCTL3_REFCLKDIV2_POS |
		(c.nf-1)<<PLLCTL3_PLLMUL2_POS
}

// UnpackPLL1 recovers PLL1's parameters from PLLCTL1 and PLLCTL2.
func UnpackPLL1(ctl1, ctl2 uint32) PLLParams {
	p := PLLParams{
		NR:             int((ctl1>>PLLCTL1_REFCLKDIV_POS)&0x3f) + 1,
		NF:             int((ctl1>>PLLCTL1_PLLMUL_POS)&0xff) + 1,
		OD:             int((ctl2>>PLLCTL2_ODPLL_POS)&0x7) + 1,
		R:              int((ctl1>>PLLCTL1_PLLDIV_POS)&0x1f) + 1,
		ResetOnSlip:    ctl1&PLLCTL1_ROS != 0,
		BypassOnSlip:   (ctl1>>PLLCTL1_MASK_SLIP_POS)&PLLCTL1_MASK_SLIP_MSK == PLLCTL1_BYPASS_ON_SLIP,
		ResetOnOscFail: ctl1&PLLCTL1_ROF != 0,
	}
	if ctl2&PLLCTL2_FMENA != 0 {
		p.Modulation = &Modulation{
			NS:     int((ctl2>>PLLCTL2_SPREADINGRATE_POS)&0x1ff) + 1,
			NV:     int((ctl2>>PLLCTL2_SPR_AMOUNT_POS)&0x1ff) + 1,
			MulMod: int((ctl2 >> PLLCTL2_MULMOD_POS) & 0x1ff),
		}
	}
	return p
}

// UnpackPLL2 recovers PLL2's parameters from PLLCTL3.
func UnpackPLL2(ctl3 uint32) PLLParams {
	return PLLParams{
		NR: int((ctl3>>PLLCTL3_REFCLKDIV2_POS)&0x3f) + 1,
		NF: int((ctl3>>PLLCTL3_PLLMUL2_POS)&0xff) + 1,
		OD: int((ctl3>>PLLCTL3_ODPLL2_POS)&0x7) + 1,
		R:  int((ctl3>>PLLCTL3_PLLDIV2_POS)&0x1f) + 1,
	}
}
