package gcm

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
)

// Config is the static description of a board's clock inputs. It is applied
// once, by Init.
type Config struct {
	OscIn     Hertz
	ExtClkIn1 Hertz
	ExtClkIn2 Hertz
	LFLPO     Hertz
	HFLPO     Hertz

	// Sources lists the clock sources physically present. Init enables these
	// and leaves every other source disabled.
	Sources []Source

	PLL1 *PLLConfig
	PLL2 *PLLConfig

	// FrequencyModulation enables PLL1 spread-spectrum modulation.
	FrequencyModulation bool
}

// Present reports whether s is declared present.
func (c Config) Present(s Source) bool {
	return slices.Contains(c.Sources, s)
}

func (c Config) Validate() error {
	if c.OscIn == 0 {
		return fmt.Errorf("%w: oscillator frequency not set", ErrInvalidConfig)
	}
	for _, s := range c.Sources {
		if !s.switchable() {
			return fmt.Errorf("%w: %v can't be declared as a clock source", ErrInvalidConfig, s)
		}
	}
	if c.Present(SourcePLL1) && c.PLL1 == nil {
		return fmt.Errorf("%w: pll1 present but not configured", ErrInvalidConfig)
	}
	if c.Present(SourcePLL2) && c.PLL2 == nil {
		return fmt.Errorf("%w: pll2 present but not configured", ErrInvalidConfig)
	}
	for _, p := range []struct {
		name string
		cfg  *PLLConfig
	}{{"pll1", c.PLL1}, {"pll2", c.PLL2}} {
		if p.cfg == nil {
			continue
		}
		if err := p.cfg.validate(p.name); err != nil {
			return err
		}
		if !p.cfg.vcoFits(c.OscIn) {
			return fmt.Errorf("%w: %s oscillator/NR*NF exceeds %v", ErrInvalidConfig, p.name, Hertz(math.MaxUint32))
		}
	}
	if c.PLL2 != nil && c.PLL2.hasMod {
		return fmt.Errorf("%w: pll2 has no modulation", ErrInvalidConfig)
	}
	if c.FrequencyModulation {
		if c.PLL1 == nil || !c.PLL1.hasMod {
			return fmt.Errorf("%w: frequency modulation enabled without pll1 modulation parameters", ErrInvalidConfig)
		}
	}
	return nil
}
