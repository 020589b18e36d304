package gcm

import (
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Jon-Bright/hercules-gcm/sysreg"
)

func mustPLL(t *testing.T, name string, p PLLParams) *PLLConfig {
	t.Helper()
	c, err := NewPLLConfig(name, p)
	if err != nil {
		t.Fatalf("NewPLLConfig(%+v): %v", p, err)
	}
	return &c
}

// testConfig has PLL1 at 80MHz and PLL2 at 320MHz from a 16MHz oscillator.
func testConfig(t *testing.T) Config {
	return Config{
		OscIn:     16 * MHz,
		ExtClkIn1: 12 * MHz,
		ExtClkIn2: 25 * MHz,
		LFLPO:     80 * KHz,
		HFLPO:     10 * MHz,
		Sources:   []Source{SourceOscillator, SourcePLL1, SourceLFLPO, SourceHFLPO, SourcePLL2},
		PLL1:      mustPLL(t, "pll1", PLLParams{NR: 1, NF: 40, OD: 2, R: 4}),
		PLL2:      mustPLL(t, "pll2", PLLParams{NR: 1, NF: 40, OD: 2, R: 1}),
	}
}

func newTestController(t *testing.T, bus sysreg.Bus, cfg Config) *Controller {
	t.Helper()
	c, err := New(bus, cfg, Options{
		Log:           testr.New(t),
		Registerer:    prometheus.NewRegistry(),
		LockSpinLimit: 1000,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// relockSim returns a Sim whose PLLs slip until the given round of the errata
// workaround and lock from then on. A round of 0 never locks. The returned
// counter tracks how many rounds re-enabled both PLLs.
func relockSim(pll1Round, pll2Round int) (*sysreg.Sim, *int) {
	return scriptedRelockSim(func(round int) (bool, bool) {
		return pll1Round > 0 && round >= pll1Round, pll2Round > 0 && round >= pll2Round
	})
}

// scriptedRelockSim returns a Sim in which each PLL locks or slips in a round
// as locks says.
func scriptedRelockSim(locks func(round int) (pll1, pll2 bool)) (*sysreg.Sim, *int) {
	s := sysreg.NewSim()
	rounds := 0
	settle := func(locked bool, src Source, esm sysreg.Reg) {
		if locked {
			s.Poke(sysreg.CSVSTAT, s.Peek(sysreg.CSVSTAT)|src.bit())
		} else {
			s.Poke(esm, s.Peek(esm)|sysreg.ESM_SR_PLLSLIP)
		}
	}
	s.OnWrite = func(r sysreg.Reg, v uint32) {
		switch r {
		case sysreg.CSDISSET:
			s.Poke(sysreg.CSVSTAT, s.Peek(sysreg.CSVSTAT)&^v)
		case sysreg.CSDISCLR:
			if v&pllMask != pllMask {
				return
			}
			rounds++
			pll1, pll2 := locks(rounds)
			settle(pll1, SourcePLL1, sysreg.SR1_0)
			settle(pll2, SourcePLL2, sysreg.SR4_0)
		}
	}
	return s, &rounds
}
