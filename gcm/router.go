package gcm

import (
	"fmt"

	"github.com/Jon-Bright/hercules-gcm/sysreg"
)

const sourceFieldMask = 0xf

func (c *Controller) invalid(op string, format string, args ...interface{}) error {
	c.m.invalidRequests.WithLabelValues(op).Inc()
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// On enables the request's source and/or domain. Only the valid half of a
// request is acted on; it's an error if neither half is valid.
func (c *Controller) On(req Request) error {
	src, dom := req.Source.switchable(), req.Domain.valid()
	if !src && !dom {
		return c.invalid("on", "neither source %v nor domain %v can be switched", req.Source, req.Domain)
	}
	if src {
		c.bus.Write32(sysreg.CSDISCLR, req.Source.bit())
	}
	if dom {
		c.bus.Write32(sysreg.CDDISCLR, req.Domain.bit())
	}
	return nil
}

// Off disables the request's domain and/or source. The domain goes first so
// it's never left running from a source that's being turned off.
func (c *Controller) Off(req Request) error {
	src, dom := req.Source.switchable(), req.Domain.valid()
	if !src && !dom {
		return c.invalid("off", "neither source %v nor domain %v can be switched", req.Source, req.Domain)
	}
	if dom {
		c.bus.Write32(sysreg.CDDISSET, req.Domain.bit())
	}
	if src {
		c.bus.Write32(sysreg.CSDISSET, req.Source.bit())
	}
	return nil
}

// Status samples the hardware state of the request's source or, if it has no
// valid source, its domain. Requests with neither report StatusUnknown
// without touching the registers.
func (c *Controller) Status(req Request) Status {
	switch {
	case req.Source.switchable():
		if c.bus.Read32(sysreg.CSDIS)&req.Source.bit() != 0 {
			return StatusOff
		}
		if c.bus.Read32(sysreg.CSVSTAT)&req.Source.bit() != 0 {
			return StatusOn
		}
		return StatusStarting
	case req.Domain.valid():
		if c.bus.Read32(sysreg.CDDIS)&req.Domain.bit() != 0 {
			return StatusOff
		}
		return StatusOn
	}
	return StatusUnknown
}

// Configure routes the request's domain to its source. extra is only used for
// VCLKA4, where it's ORed into VCLKACON1 unchanged (see the VCLKA4_* bits).
// For RTICLK1, req.Divider selects the divider, and a source other than VCLK
// must stay at or above VCLK divided by it.
func (c *Controller) Configure(req Request, extra uint32) error {
	if !req.Source.routable() {
		return c.invalid("configure", "source %v can't be routed", req.Source)
	}
	if req.Mode > ModeWakeup {
		return c.invalid("configure", "mode %d", req.Mode)
	}
	d, ok := domains[req.Domain]
	if !ok {
		return c.invalid("configure", "domain %v can't be routed", req.Domain)
	}
	src := uint32(req.Source) & sourceFieldMask

	switch d.kind {
	case routeGHV:
		if req.Source == SourceVCLK {
			return c.invalid("configure", "%v can't be clocked from %v", req.Domain, req.Source)
		}
		sysreg.ReplaceBits(c.bus, sysreg.GHVSRC, src, sourceFieldMask, 8*uint(req.Mode))
	case routeVCLKA:
		sysreg.ReplaceBits(c.bus, sysreg.VCLKASRC, src, sourceFieldMask, d.pos)
	case routeVCLKA4:
		v := c.bus.Read32(sysreg.VCLKACON1) &^ (sourceFieldMask << d.pos)
		c.bus.Write32(sysreg.VCLKACON1, v|src<<d.pos|extra)
	case routeRTI:
		return c.configureRTI(req)
	}
	c.log.V(1).Info("Configured clock domain", "request", req.String())
	return nil
}

func (c *Controller) configureRTI(req Request) error {
	if req.Divider > RTIDiv8 {
		return c.invalid("configure", "RTI divider code %d", req.Divider)
	}
	if req.Source != SourceVCLK {
		srcRate, err := c.Rate(req.Source)
		if err != nil {
			return fmt.Errorf("couldn't get rate of %v: %w", req.Source, err)
		}
		vclkRate, err := c.Rate(SourceVCLK)
		if err != nil {
			return fmt.Errorf("couldn't get VCLK rate: %w", err)
		}
		if srcRate < vclkRate/Hertz(req.Divider.Divisor()) {
			c.m.invalidRequests.WithLabelValues("configure").Inc()
			return fmt.Errorf("%w: %v at %v, VCLK %v / %d", ErrDividerConstraint, req.Source, srcRate, vclkRate, req.Divider.Divisor())
		}
	}
	c.bus.Write32(sysreg.RCLKSRC, uint32(req.Divider)<<8|uint32(req.Source)&sourceFieldMask)
	c.log.V(1).Info("Configured RTI clock", "request", req.String())
	return nil
}
