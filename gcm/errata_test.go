package gcm

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Jon-Bright/hercules-gcm/sysreg"
)

func countingPoller(n *int) Poller {
	return PollerFunc(func(limit int, done func() bool) bool {
		return SpinPoller{}.Poll(limit, func() bool {
			*n++
			return done()
		})
	})
}

func TestDisableSourcesTimeout(t *testing.T) {
	g := NewWithT(t)
	s := sysreg.NewSim()
	s.Poke(sysreg.CSVSTAT, pllMask) // Never clears
	c := newTestController(t, s, testConfig(t))
	polls := 0
	c.poll = countingPoller(&polls)

	err := c.disableSources(pllMask)
	g.Expect(errors.Is(err, ErrTimeout)).To(BeTrue(), "got %v", err)
	g.Expect(polls).To(Equal(16))
	g.Expect(s.WritesTo(sysreg.GBLSTAT)).To(HaveLen(16))
	g.Expect(s.WritesTo(sysreg.SR1_0)).To(HaveLen(16))
	g.Expect(s.WritesTo(sysreg.SR4_0)).To(HaveLen(16))
	for _, v := range s.WritesTo(sysreg.GBLSTAT) {
		g.Expect(v).To(Equal(uint32(sysreg.GBLSTAT_FBSLIP | sysreg.GBLSTAT_RFSLIP)))
	}
	g.Expect(testutil.ToFloat64(c.m.disableTimeouts)).To(Equal(1.0))
}

func TestDisableSourcesOnlyClearsRequestedESMFlags(t *testing.T) {
	g := NewWithT(t)
	s := sysreg.NewSim()
	s.Poke(sysreg.CSVSTAT, pllMask)
	c := newTestController(t, s, testConfig(t))

	g.Expect(c.disableSources(SourcePLL2.bit())).To(MatchError(ContainSubstring("timed out")))
	g.Expect(s.WritesTo(sysreg.SR1_0)).To(BeEmpty())
	g.Expect(s.WritesTo(sysreg.SR4_0)).To(HaveLen(16))
}

func TestDisableSourcesSucceeds(t *testing.T) {
	g := NewWithT(t)
	s := sysreg.NewSim()
	s.AutoValid = true
	c := newTestController(t, s, testConfig(t))

	g.Expect(c.disableSources(pllMask)).To(Succeed())
	g.Expect(s.Peek(sysreg.CSDIS) & pllMask).To(Equal(pllMask))
	g.Expect(s.WritesTo(sysreg.GBLSTAT)).To(BeEmpty())
}

func TestRelockSucceedsAfterKRounds(t *testing.T) {
	for k := 1; k <= 5; k++ {
		g := NewWithT(t)
		s, rounds := relockSim(k, k)
		c := newTestController(t, s, testConfig(t))

		g.Expect(c.relockPLLs(5)).To(Succeed(), "k=%d", k)
		g.Expect(*rounds).To(Equal(k))
		g.Expect(s.WritesTo(sysreg.PLLCTL1)).To(HaveLen(k))
		g.Expect(s.WritesTo(sysreg.CSDISSET)).To(HaveLen(k))
		g.Expect(testutil.ToFloat64(c.m.relockRounds)).To(Equal(float64(k)))
	}
}

func TestRelockNeedsBothInSameRound(t *testing.T) {
	g := NewWithT(t)
	s, rounds := relockSim(1, 3)
	c := newTestController(t, s, testConfig(t))

	g.Expect(c.relockPLLs(5)).To(Succeed())
	g.Expect(*rounds).To(Equal(3))
}

func TestRelockFailures(t *testing.T) {
	tests := []struct {
		name       string
		pll1, pll2 int
		want       LockFailure
	}{
		{"neither", 0, 0, BothFailed},
		{"pll1 only", 1, 0, Pll2Failed},
		{"pll2 only", 0, 1, Pll1Failed},
		{"too late", 6, 6, BothFailed},
	}
	for _, test := range tests {
		g := NewWithT(t)
		s, rounds := relockSim(test.pll1, test.pll2)
		c := newTestController(t, s, testConfig(t))

		err := c.relockPLLs(5)
		var le *LockError
		g.Expect(errors.As(err, &le)).To(BeTrue(), "%s: got %v", test.name, err)
		g.Expect(le.Kind).To(Equal(test.want), test.name)
		g.Expect(le.Attempts).To(Equal(5))
		g.Expect(*rounds).To(Equal(5), test.name)
	}
}

func TestRelockReportsPLLThatNeverLocked(t *testing.T) {
	tests := []struct {
		name  string
		locks func(round int) (bool, bool)
		want  LockFailure
	}{
		{"pll1 slips in last round", func(r int) (bool, bool) { return r < 5, false }, Pll2Failed},
		{"pll2 slips in last round", func(r int) (bool, bool) { return false, r == 2 }, Pll1Failed},
		// Both locked at some point, never together: the last round decides.
		{"alternating", func(r int) (bool, bool) { return r%2 == 1, r%2 == 0 }, Pll2Failed},
		{"alternating, pll2 last", func(r int) (bool, bool) { return r == 1, r == 5 }, Pll1Failed},
	}
	for _, test := range tests {
		g := NewWithT(t)
		s, rounds := scriptedRelockSim(test.locks)
		c := newTestController(t, s, testConfig(t))

		err := c.relockPLLs(5)
		var le *LockError
		g.Expect(errors.As(err, &le)).To(BeTrue(), "%s: got %v", test.name, err)
		g.Expect(le.Kind).To(Equal(test.want), test.name)
		g.Expect(*rounds).To(Equal(5), test.name)
	}
}

func TestRelockWritesSafeFallback(t *testing.T) {
	g := NewWithT(t)
	s, _ := relockSim(1, 1)
	c := newTestController(t, s, testConfig(t))

	g.Expect(c.relockPLLs(5)).To(Succeed())
	g.Expect(s.WritesTo(sysreg.PLLCTL1)).To(Equal([]uint32{safePLLCTL1}))
	g.Expect(s.WritesTo(sysreg.PLLCTL2)).To(Equal([]uint32{safePLLCTL2}))
	g.Expect(s.WritesTo(sysreg.PLLCTL3)).To(Equal([]uint32{safePLLCTL3}))
	g.Expect(s.WritesTo(sysreg.CSDISCLR)).To(Equal([]uint32{pllMask}))
	g.Expect(s.WritesTo(sysreg.GBLSTAT)).To(ContainElement(uint32(sysreg.GBLSTAT_FBSLIP | sysreg.GBLSTAT_RFSLIP | sysreg.GBLSTAT_OSCFAIL)))
}

func TestRelockDisableFailureNotRetried(t *testing.T) {
	g := NewWithT(t)
	s := sysreg.NewSim()
	s.Poke(sysreg.CSVSTAT, pllMask) // A PLL in use never goes invalid
	c := newTestController(t, s, testConfig(t))

	err := c.relockPLLs(5)
	var le *LockError
	g.Expect(errors.As(err, &le)).To(BeTrue(), "got %v", err)
	g.Expect(le.Kind).To(Equal(DisableFailed))
	g.Expect(le.Attempts).To(Equal(1))
	g.Expect(errors.Is(err, ErrTimeout)).To(BeTrue())
	g.Expect(s.WritesTo(sysreg.CSDISSET)).To(Equal([]uint32{pllMask}))
	g.Expect(s.WritesTo(sysreg.PLLCTL1)).To(BeEmpty())
}

func TestRelockRestoresClockControl(t *testing.T) {
	g := NewWithT(t)
	s, _ := relockSim(2, 2)
	saved := uint32(0x0a0f0100)
	s.Poke(sysreg.CLKCNTL, saved)
	c := newTestController(t, s, testConfig(t))

	g.Expect(c.relockPLLs(5)).To(Succeed())
	g.Expect(s.WritesTo(sysreg.CLKCNTL)).To(Equal([]uint32{0x000f0100, sysreg.CLKCNTL_PENA, 0x000f0100, saved}))
	g.Expect(s.Peek(sysreg.CLKCNTL)).To(Equal(saved))
}

func TestRelockRejectsZeroAttempts(t *testing.T) {
	g := NewWithT(t)
	s := sysreg.NewSim()
	c := newTestController(t, s, testConfig(t))

	g.Expect(errors.Is(c.relockPLLs(0), ErrInvalidArgument)).To(BeTrue())
	g.Expect(s.Writes).To(BeEmpty())
}
