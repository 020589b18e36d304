package gcm

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Jon-Bright/hercules-gcm/sysreg"
)

// DefaultRelockAttempts is the minimum retry count recommended for the
// SSWF021#45 workaround.
const DefaultRelockAttempts = 5

type Options struct {
	Log logr.Logger

	// Poller drives every busy-wait. Defaults to SpinPoller.
	Poller Poller

	// Registerer receives the controller's metrics. May be nil.
	Registerer prometheus.Registerer

	// RelockAttempts bounds the PLL relock rounds in Init. Defaults to
	// DefaultRelockAttempts.
	RelockAttempts int

	// LockSpinLimit bounds the waits for PLL lock or slip and for PLLs to
	// read back disabled. 0 waits forever, as the hardware sequence expects.
	LockSpinLimit int
}

// Controller owns the GCM registers of one device.
type Controller struct {
	bus            sysreg.Bus
	cfg            Config
	log            logr.Logger
	poll           Poller
	relockAttempts int
	lockSpinLimit  int
	m              *metrics
}

// New validates cfg and returns a controller for bus. It doesn't touch the
// registers; call Init for that.
func New(bus sysreg.Bus, cfg Config, opts Options) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		bus:            bus,
		cfg:            cfg,
		log:            opts.Log,
		poll:           opts.Poller,
		relockAttempts: opts.RelockAttempts,
		lockSpinLimit:  opts.LockSpinLimit,
		m:              newMetrics(opts.Registerer),
	}
	if c.log.GetSink() == nil {
		c.log = logr.Discard()
	}
	if c.poll == nil {
		c.poll = SpinPoller{}
	}
	if c.relockAttempts <= 0 {
		c.relockAttempts = DefaultRelockAttempts
	}
	return c, nil
}

func (c *Controller) Config() Config {
	return c.cfg
}

// Init brings up the clock tree. It must run exactly once, before anything
// uses a PLL: first the PLL errata workaround, then programming of the PLLs
// and enabling of the declared sources. Any error leaves the clock tree
// untrusted; the caller must not continue booting.
func (c *Controller) Init() error {
	c.log.Info("Applying PLL errata workaround", "attempts", c.relockAttempts)
	if err := c.relockPLLs(c.relockAttempts); err != nil {
		c.log.Error(err, "PLL errata workaround failed")
		return &BootError{Stage: "pll relock", Err: err}
	}
	if err := c.configureTree(); err != nil {
		c.log.Error(err, "Clock tree configuration failed")
		return &BootError{Stage: "clock tree configuration", Err: err}
	}
	c.log.Info("Clock tree configured", "sources", fmt.Sprint(c.cfg.Sources))
	return nil
}
