package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jon-Bright/hercules-gcm/board"
	"github.com/Jon-Bright/hercules-gcm/gcm"
)

// parseTarget accepts either a source name, e.g. "pll1", or a domain name,
// e.g. "vclka4". "vclk" is both; the domain wins since the source can't be
// switched.
func parseTarget(name string) (gcm.Request, error) {
	s, serr := gcm.ParseSource(name)
	if serr == nil && s.Switchable() {
		return gcm.SourceRequest(s), nil
	}
	if d, err := gcm.ParseDomain(name); err == nil {
		return gcm.DomainRequest(d), nil
	}
	if serr == nil {
		return gcm.SourceRequest(s), nil
	}
	return gcm.Request{}, fmt.Errorf("%w: unknown clock source or domain %q", gcm.ErrInvalidArgument, name)
}

func allTargets() []string {
	var names []string
	for _, s := range gcm.Sources() {
		if s.Switchable() {
			names = append(names, s.String())
		}
	}
	for _, d := range gcm.Domains() {
		names = append(names, d.String())
	}
	return names
}

func newInitCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Run the PLL errata workaround and program the clock tree",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, s *session, args []string) error {
			if err := s.ctl.Init(); err != nil {
				return err
			}
			for _, src := range s.ctl.Config().Sources {
				r, err := s.ctl.Rate(src)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-13s %v\n", src, r)
			}
			return nil
		}),
	}
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status [source|domain]...",
		Short: "Show whether clock sources and domains are running",
		RunE: o.run(func(cmd *cobra.Command, s *session, args []string) error {
			if len(args) == 0 {
				args = allTargets()
			}
			for _, name := range args {
				req, err := parseTarget(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-13s %v\n", name, s.ctl.Status(req))
			}
			return nil
		}),
	}
}

// newSwitchCmd builds "on" and "off".
func newSwitchCmd(o *options, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " source|domain...",
		Short: "Turn clock sources or domains " + verb,
		Args:  cobra.MinimumNArgs(1),
		RunE: o.run(func(cmd *cobra.Command, s *session, args []string) error {
			sw := s.ctl.On
			if verb == "off" {
				sw = s.ctl.Off
			}
			for _, name := range args {
				req, err := parseTarget(name)
				if err != nil {
					return err
				}
				if err := sw(req); err != nil {
					return fmt.Errorf("couldn't turn %s %s: %w", name, verb, err)
				}
				s.log.V(1).Info("Switched", "target", name, "state", verb)
			}
			return nil
		}),
	}
}

func newRateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rate [source]...",
		Short: "Show clock source frequencies",
		RunE: o.run(func(cmd *cobra.Command, s *session, args []string) error {
			all := len(args) == 0
			var srcs []gcm.Source
			if all {
				srcs = gcm.Sources()
			}
			for _, name := range args {
				src, err := gcm.ParseSource(name)
				if err != nil {
					return err
				}
				srcs = append(srcs, src)
			}
			for _, src := range srcs {
				r, err := s.ctl.Rate(src)
				switch {
				case err == nil:
					fmt.Fprintf(cmd.OutOrStdout(), "%-13s %v\n", src, r)
				case all:
					fmt.Fprintf(cmd.OutOrStdout(), "%-13s -\n", src)
				default:
					return err
				}
			}
			return nil
		}),
	}
}

var rtiDividers = map[int]gcm.RTIDivider{
	1: gcm.RTIDiv1,
	2: gcm.RTIDiv2,
	4: gcm.RTIDiv4,
	8: gcm.RTIDiv8,
}

func newConfigureCmd(o *options) *cobra.Command {
	var mode, div int
	var extra uint32
	cmd := &cobra.Command{
		Use:   "configure domain source",
		Short: "Route a clock domain to a source",
		Long: "Route a clock domain to a source. For GCLK1, HCLK and the VCLKs, --mode picks the normal (0) or " +
			"one of the wakeup (1, 2) source slots. For RTICLK1, --div sets the divider. For VCLKA4, --extra is " +
			"ORed into VCLKACON1 as given.",
		Args: cobra.ExactArgs(2),
		RunE: o.run(func(cmd *cobra.Command, s *session, args []string) error {
			d, err := gcm.ParseDomain(args[0])
			if err != nil {
				return err
			}
			src, err := gcm.ParseSource(args[1])
			if err != nil {
				return err
			}
			rd, ok := rtiDividers[div]
			if !ok {
				return fmt.Errorf("%w: RTI divider %d, want 1, 2, 4 or 8", gcm.ErrInvalidArgument, div)
			}
			if mode < 0 || mode > 0xff {
				return fmt.Errorf("%w: mode %d", gcm.ErrInvalidArgument, mode)
			}
			return s.ctl.Configure(gcm.Request{Domain: d, Source: src, Mode: gcm.Mode(mode), Divider: rd}, extra)
		}),
	}
	cmd.Flags().IntVar(&mode, "mode", 0, "Source slot for shared-mux domains: 0 normal, 1 wakeup with GCLK1 off, 2 wakeup")
	cmd.Flags().IntVar(&div, "div", 1, "RTICLK1 divider: 1, 2, 4 or 8")
	cmd.Flags().Uint32Var(&extra, "extra", 0, "VCLKA4 control bits, e.g. 0x03000000 for divide by 4")
	return cmd
}

func newTreeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show how clock domains are currently routed",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, s *session, args []string) error {
			t, err := s.ctl.Tree()
			if err != nil {
				return err
			}
			order, err := t.Order()
			if err != nil {
				return err
			}
			for _, n := range order {
				parent := "-"
				if p, ok := t.Parent(n); ok {
					parent = p.String()
				}
				var status gcm.Status
				rate := "-"
				if n.IsDomain {
					status = s.ctl.Status(gcm.DomainRequest(n.Domain))
				} else {
					status = s.ctl.Status(gcm.SourceRequest(n.Source))
					if r, err := s.ctl.Rate(n.Source); err == nil {
						rate = r.String()
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-13s <- %-13s %-9v %s\n", n, parent, status, rate)
			}
			return nil
		}),
	}
}

func newBoardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "List the built-in boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range board.Names() {
				b, err := board.Lookup(name)
				if err != nil {
					return err
				}
				cfg, err := b.Config()
				if err != nil {
					return fmt.Errorf("built-in board %s is broken: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s oscillator %v, %d sources\n", name, cfg.OscIn, len(cfg.Sources))
			}
			return nil
		},
	}
}
