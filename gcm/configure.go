package gcm

import (
	"fmt"

	"github.com/Jon-Bright/hercules-gcm/sysreg"
)

// bootSources is the order in which declared sources are enabled.
var bootSources = []Source{
	SourceOscillator,
	SourcePLL1,
	SourceExtClkIn,
	SourceLFLPO,
	SourceHFLPO,
	SourcePLL2,
	SourceExtClkIn2,
}

// configureTree programs the PLLs from the board configuration and enables
// the declared clock sources. The PLL takes (127 + 1024*NR) oscillator cycles
// to lock; nothing here waits for it.
func (c *Controller) configureTree() error {
	// The PLL control registers ignore writes while a PLL is running.
	c.bus.Write32(sysreg.CSDISSET, pllMask)
	ok := c.poll.Poll(c.lockSpinLimit, func() bool {
		return c.bus.Read32(sysreg.CSDIS)&pllMask == pllMask
	})
	if !ok {
		return fmt.Errorf("%w: PLLs not disabled, CSDIS %08X", ErrTimeout, c.bus.Read32(sysreg.CSDIS))
	}
	c.bus.Write32(sysreg.GBLSTAT, sysreg.GBLSTAT_FBSLIP|sysreg.GBLSTAT_RFSLIP|sysreg.GBLSTAT_OSCFAIL)

	if p := c.cfg.PLL1; p != nil {
		ctl1 := PackPLLCTL1(*p)
		ctl2 := PackPLLCTL2(*p, c.cfg.FrequencyModulation)
		c.log.V(1).Info("Programming PLL1", "config", p.String(), "PLLCTL1", fmt.Sprintf("%08X", ctl1), "PLLCTL2", fmt.Sprintf("%08X", ctl2))
		c.bus.Write32(sysreg.PLLCTL1, ctl1)
		c.bus.Write32(sysreg.PLLCTL2, ctl2)
	}
	if p := c.cfg.PLL2; p != nil {
		ctl3 := PackPLLCTL3(*p)
		c.log.V(1).Info("Programming PLL2", "config", p.String(), "PLLCTL3", fmt.Sprintf("%08X", ctl3))
		c.bus.Write32(sysreg.PLLCTL3, ctl3)
	}

	for _, s := range bootSources {
		if c.cfg.Present(s) {
			c.bus.Write32(sysreg.CSDISCLR, s.bit())
		}
	}
	return nil
}
