package gcm

import (
	"fmt"

	"github.com/Jon-Bright/hercules-gcm/sysreg"
)

// Erratum SSWF021#45: a PLL can fail to start and leave the clock source
// control in a bad state. The workaround repeatedly disables both PLLs, sets
// them to a known-good configuration, re-enables them and waits for each to
// either become valid or report a slip.

// disablePollLimit is how many times disableSources checks CSVSTAT.
const disablePollLimit = 0x10

var pllMask = SourcePLL1.bit() | SourcePLL2.bit()

// clearSlipFlags clears the global slip flags and the ESM slip flag of each
// PLL in mask. Hardware can set these at any time.
func (c *Controller) clearSlipFlags(mask uint32) {
	c.bus.Write32(sysreg.GBLSTAT, sysreg.GBLSTAT_FBSLIP|sysreg.GBLSTAT_RFSLIP)
	if mask&SourcePLL1.bit() != 0 {
		c.bus.Write32(sysreg.SR1_0, sysreg.ESM_SR_PLLSLIP)
	}
	if mask&SourcePLL2.bit() != 0 {
		c.bus.Write32(sysreg.SR4_0, sysreg.ESM_SR_PLLSLIP)
	}
}

// disableSources disables the sources in mask and waits for their valid bits
// to clear. It returns an error wrapping ErrTimeout if they are still valid
// after disablePollLimit checks.
func (c *Controller) disableSources(mask uint32) error {
	c.bus.Write32(sysreg.CSDISSET, mask)
	ok := c.poll.Poll(disablePollLimit, func() bool {
		if c.bus.Read32(sysreg.CSVSTAT)&mask == 0 {
			return true
		}
		c.clearSlipFlags(mask)
		return false
	})
	if !ok {
		c.m.disableTimeouts.Inc()
		return fmt.Errorf("%w: CSVSTAT %08X, mask %08X", ErrTimeout, c.bus.Read32(sysreg.CSVSTAT), mask)
	}
	return nil
}

// pllLocked reports whether a PLL is valid without having slipped.
func (c *Controller) pllLocked(s Source, esm sysreg.Reg) bool {
	return c.bus.Read32(sysreg.CSVSTAT)&s.bit() != 0 && c.bus.Read32(esm)&sysreg.ESM_SR_PLLSLIP == 0
}

func (c *Controller) pllSettled(s Source, esm sysreg.Reg) bool {
	return c.bus.Read32(sysreg.CSVSTAT)&s.bit() != 0 || c.bus.Read32(esm)&sysreg.ESM_SR_PLLSLIP != 0
}

// waitLockOrSlip waits until each PLL is either valid or has slipped, then
// reports which of them locked. A slip ends the wait for that PLL but doesn't
// count as locked.
func (c *Controller) waitLockOrSlip() (pll1, pll2 bool) {
	c.poll.Poll(c.lockSpinLimit, func() bool {
		return c.pllSettled(SourcePLL1, sysreg.SR1_0) && c.pllSettled(SourcePLL2, sysreg.SR4_0)
	})
	return c.pllLocked(SourcePLL1, sysreg.SR1_0), c.pllLocked(SourcePLL2, sysreg.SR4_0)
}

// relockPLLs runs the SSWF021#45 workaround for both PLLs, giving up after
// attempts rounds. It returns nil once a round locks both PLLs. On failure
// the kind names the PLL that never locked in any round; if each locked in
// some round but never together, the last round decides. Failure to disable
// the PLLs isn't retried: it means a PLL is already in use.
func (c *Controller) relockPLLs(attempts int) error {
	if attempts < 1 {
		return fmt.Errorf("%w: %d relock attempts", ErrInvalidArgument, attempts)
	}
	saved := c.bus.Read32(sysreg.CLKCNTL)
	// First set VCLK2 = HCLK
	c.bus.Write32(sysreg.CLKCNTL, saved&(sysreg.CLKCNTL_PENA|sysreg.CLKCNTL_VCLKR_MASK))
	// Now set VCLK = HCLK and enable peripherals
	c.bus.Write32(sysreg.CLKCNTL, sysreg.CLKCNTL_PENA)
	defer func() {
		// Restore VCLKR and PENA first, then VCLK2R
		c.bus.Write32(sysreg.CLKCNTL, saved&(sysreg.CLKCNTL_PENA|sysreg.CLKCNTL_VCLKR_MASK))
		c.bus.Write32(sysreg.CLKCNTL, saved)
	}()

	var ever1, ever2 bool
	var last1, last2 bool
	for round := 1; round <= attempts; round++ {
		c.m.relockRounds.Inc()
		if err := c.disableSources(pllMask); err != nil {
			return &LockError{Kind: DisableFailed, Attempts: round, Err: err}
		}
		c.bus.Write32(sysreg.GBLSTAT, sysreg.GBLSTAT_FBSLIP|sysreg.GBLSTAT_RFSLIP|sysreg.GBLSTAT_OSCFAIL)
		c.bus.Write32(sysreg.SR1_0, sysreg.ESM_SR_PLLSLIP)
		c.bus.Write32(sysreg.SR4_0, sysreg.ESM_SR_PLLSLIP)

		c.bus.Write32(sysreg.PLLCTL1, safePLLCTL1)
		c.bus.Write32(sysreg.PLLCTL2, safePLLCTL2)
		c.bus.Write32(sysreg.PLLCTL3, safePLLCTL3)
		c.bus.Write32(sysreg.CSDISCLR, pllMask)

		pll1, pll2 := c.waitLockOrSlip()
		if pll1 && pll2 {
			c.log.Info("PLLs locked", "round", round)
			return nil
		}
		ever1, ever2 = ever1 || pll1, ever2 || pll2
		last1, last2 = pll1, pll2
		c.log.V(1).Info("PLL relock round failed", "round", round, "pll1", pll1, "pll2", pll2)
	}
	if ever1 && ever2 {
		ever1, ever2 = last1, last2
	}
	return &LockError{Kind: lockFailure(ever1, ever2), Attempts: attempts}
}

func lockFailure(pll1, pll2 bool) LockFailure {
	switch {
	case pll1:
		return Pll2Failed
	case pll2:
		return Pll1Failed
	}
	return BothFailed
}
