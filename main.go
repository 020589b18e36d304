package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Jon-Bright/hercules-gcm/board"
	"github.com/Jon-Bright/hercules-gcm/gcm"
	"github.com/Jon-Bright/hercules-gcm/sysreg"
)

type options struct {
	board          string
	boardFile      string
	image          string
	mem            bool
	verbose        bool
	metricsFile    string
	relockAttempts int
	lockSpinLimit  int
}

// session is everything a subcommand needs: a controller over an open
// register bus, plus what has to happen when the command is done.
type session struct {
	ctl   *gcm.Controller
	log   logr.Logger
	reg   *prometheus.Registry
	close func() error
}

func newLogger(verbose bool) (logr.Logger, error) {
	var zl *zap.Logger
	var err error
	if verbose {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return logr.Discard(), fmt.Errorf("couldn't create logger: %v", err)
	}
	return zapr.NewLogger(zl), nil
}

func (o *options) loadBoard() (board.Board, error) {
	if o.boardFile != "" {
		return board.Load(o.boardFile)
	}
	return board.Lookup(o.board)
}

// openBus maps the real registers with --mem. Otherwise it maps a register
// image file and puts a simulation of the system module on top of it, so
// state carries over from one invocation to the next.
func (o *options) openBus(log logr.Logger) (sysreg.Bus, func() error, error) {
	if o.mem {
		m, err := sysreg.Map(sysreg.MEM_FILE, sysreg.PhysBases)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	}
	_, err := os.Stat(o.image)
	fresh := os.IsNotExist(err)
	if err := sysreg.CreateImage(o.image); err != nil {
		return nil, nil, err
	}
	m, err := sysreg.Map(o.image, sysreg.ImageBases)
	if err != nil {
		return nil, nil, err
	}
	sim := sysreg.NewSimOn(m)
	sim.AutoValid = true
	if fresh {
		log.Info("Created register image", "path", o.image)
		sim.PowerOnReset()
	}
	closeFn := func() error {
		if err := m.Flush(); err != nil {
			m.Close() // Ignore error
			return fmt.Errorf("couldn't flush register image: %v", err)
		}
		return m.Close()
	}
	return sim, closeFn, nil
}

func (o *options) open() (*session, error) {
	log, err := newLogger(o.verbose)
	if err != nil {
		return nil, err
	}
	b, err := o.loadBoard()
	if err != nil {
		return nil, err
	}
	cfg, err := b.Config()
	if err != nil {
		return nil, err
	}
	bus, closeFn, err := o.openBus(log)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	ctl, err := gcm.New(bus, cfg, gcm.Options{
		Log:            log.WithName("gcm"),
		Registerer:     reg,
		RelockAttempts: o.relockAttempts,
		LockSpinLimit:  o.lockSpinLimit,
	})
	if err != nil {
		closeFn() // Ignore error
		return nil, err
	}
	log.V(1).Info("Using board", "board", b.Name, "oscillator", cfg.OscIn.String())
	return &session{ctl: ctl, log: log, reg: reg, close: closeFn}, nil
}

// finish releases the bus and writes the metrics file, if one was asked for.
func (o *options) finish(s *session) error {
	err := s.close()
	if o.metricsFile != "" {
		if merr := prometheus.WriteToTextfile(o.metricsFile, s.reg); merr != nil && err == nil {
			err = fmt.Errorf("couldn't write metrics: %v", merr)
		}
	}
	return err
}

// run wraps a subcommand body with opening and closing a session.
func (o *options) run(f func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := o.open()
		if err != nil {
			return err
		}
		err = f(cmd, s, args)
		if ferr := o.finish(s); ferr != nil && err == nil {
			err = ferr
		}
		return err
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "gcmctl",
		Short:         "Control the clock module of a Hercules microcontroller",
		Long:          "Bring up the PLLs, switch clock sources and domains, route domains to sources and report clock rates.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := root.PersistentFlags()
	f.StringVarP(&o.board, "board", "b", "launchxl2-570lc43", "Built-in board to use; see 'gcmctl boards'")
	f.StringVar(&o.boardFile, "board-file", "", "YAML board description to use instead of a built-in board")
	f.StringVarP(&o.image, "image", "i", "gcm.img", "Register image file to operate on")
	f.BoolVar(&o.mem, "mem", false, "Operate on the real registers through "+sysreg.MEM_FILE+" instead of an image")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Log in development format, including per-round detail")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write metrics in text exposition format to this file")
	f.IntVar(&o.relockAttempts, "relock-attempts", gcm.DefaultRelockAttempts, "Rounds of the PLL errata workaround before giving up")
	f.IntVar(&o.lockSpinLimit, "lock-spin-limit", 0, "Bound on PLL lock waits, in polls. 0 waits forever")

	root.AddCommand(
		newInitCmd(o),
		newStatusCmd(o),
		newSwitchCmd(o, "on"),
		newSwitchCmd(o, "off"),
		newRateCmd(o),
		newConfigureCmd(o),
		newTreeCmd(o),
		newBoardsCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gcmctl: %v\n", err)
		os.Exit(1)
	}
}
