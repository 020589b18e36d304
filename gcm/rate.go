package gcm

import (
	"fmt"

	"github.com/Jon-Bright/hercules-gcm/sysreg"
)

// Rate returns the frequency of source s. Fixed inputs come from the board
// configuration and PLL rates are computed from it. VCLK is derived from the
// live GHVSRC, HCLKCNTL and CLKCNTL settings.
func (c *Controller) Rate(s Source) (Hertz, error) {
	r, err := c.rate(s)
	if err != nil {
		c.m.invalidRequests.WithLabelValues("rate").Inc()
		return 0, err
	}
	c.m.sourceRate.WithLabelValues(s.String()).Set(float64(r))
	return r, nil
}

func (c *Controller) rate(s Source) (Hertz, error) {
	switch s {
	case SourceOscillator:
		return c.cfg.OscIn, nil
	case SourceExtClkIn:
		return c.cfg.ExtClkIn1, nil
	case SourceExtClkIn2:
		return c.cfg.ExtClkIn2, nil
	case SourceLFLPO:
		if c.cfg.LFLPO != 0 {
			return c.cfg.LFLPO, nil
		}
	case SourceHFLPO:
		if c.cfg.HFLPO != 0 {
			return c.cfg.HFLPO, nil
		}
	case SourcePLL1:
		if c.cfg.PLL1 != nil {
			return c.cfg.PLL1.rate(c.cfg.OscIn), nil
		}
	case SourcePLL2:
		if c.cfg.PLL2 != nil {
			return c.cfg.PLL2.rate(c.cfg.OscIn), nil
		}
	case SourcePLL2ODCLK8:
		if c.cfg.PLL2 != nil {
			return c.cfg.PLL2.odRate(c.cfg.OscIn) / 8, nil
		}
	case SourcePLL2ODCLK16:
		if c.cfg.PLL2 != nil {
			return c.cfg.PLL2.odRate(c.cfg.OscIn) / 16, nil
		}
	case SourceVCLK:
		return c.vclkRate()
	}
	return 0, fmt.Errorf("%w: no rate for clock source %v", ErrInvalidArgument, s)
}

// vclkRate follows GCLK1's normal-mode source through the HCLK and VCLK dividers.
func (c *Controller) vclkRate() (Hertz, error) {
	gsrc := Source(c.bus.Read32(sysreg.GHVSRC) & sourceFieldMask)
	if gsrc == SourceVCLK {
		return 0, fmt.Errorf("%w: GCLK1 sourced from %v", ErrInvalidArgument, gsrc)
	}
	gclk, err := c.rate(gsrc)
	if err != nil {
		return 0, fmt.Errorf("couldn't get GCLK1 rate: %w", err)
	}
	hclkr := c.bus.Read32(sysreg.HCLKCNTL) & sysreg.HCLKCNTL_HCLKR_MASK
	vclkr := (c.bus.Read32(sysreg.CLKCNTL) & sysreg.CLKCNTL_VCLKR_MASK) >> sysreg.CLKCNTL_VCLKR_POS
	return gclk / Hertz(hclkr+1) / Hertz(vclkr+1), nil
}
