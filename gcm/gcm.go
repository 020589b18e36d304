// Package gcm drives the Hercules global clock module: PLL bring-up with the
// SSWF021#45 errata workaround, boot-time programming of the clock tree,
// routing of clock domains to sources, and clock rate resolution.
//
// Clock rates are programmed once at boot and are static afterwards. A
// Controller is not safe for concurrent use; callers serialize access.
package gcm

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Hertz is a clock frequency.
type Hertz uint32

const (
	KHz Hertz = 1000
	MHz Hertz = 1000 * KHz
)

func (h Hertz) String() string {
	return humanize.SIWithDigits(float64(h), 3, "Hz")
}

// Source is a clock source code as used by the GCM mux and CSDIS registers.
type Source uint8

const (
	SourceOscillator  Source = 0x0
	SourcePLL1        Source = 0x1
	SourceExtClkIn    Source = 0x3
	SourceLFLPO       Source = 0x4
	SourceHFLPO       Source = 0x5
	SourcePLL2        Source = 0x6
	SourceExtClkIn2   Source = 0x7
	SourceVCLK        Source = 0x9 // Bus clock; only meaningful as an RTI or async peripheral source
	SourcePLL2ODCLK8  Source = 0xe
	SourcePLL2ODCLK16 Source = 0xf
	SourceNone        Source = 0x10
)

type sourceInfo struct {
	name string
	// switchable sources have an enable bit in CSDIS and a valid bit in CSVSTAT.
	switchable bool
	// routable sources may be written to a domain's mux field.
	routable bool
}

var sources = map[Source]sourceInfo{
	SourceOscillator:  {"oscillator", true, true},
	SourcePLL1:        {"pll1", true, true},
	SourceExtClkIn:    {"ext-clkin1", true, true},
	SourceLFLPO:       {"lf-lpo", true, true},
	SourceHFLPO:       {"hf-lpo", true, true},
	SourcePLL2:        {"pll2", true, true},
	SourceExtClkIn2:   {"ext-clkin2", true, true},
	SourceVCLK:        {"vclk", false, true},
	SourcePLL2ODCLK8:  {"pll2-odclk8", false, true},
	SourcePLL2ODCLK16: {"pll2-odclk16", false, true},
	SourceNone:        {"none", false, false},
}

func (s Source) String() string {
	if i, ok := sources[s]; ok {
		return i.name
	}
	return fmt.Sprintf("Source(%#x)", uint8(s))
}

func (s Source) switchable() bool {
	return sources[s].switchable
}

// Switchable reports whether s can be turned on and off, i.e. has a bit in
// CSDIS and CSVSTAT.
func (s Source) Switchable() bool {
	return s.switchable()
}

func (s Source) routable() bool {
	return sources[s].routable
}

// bit is the source's bit in CSDIS, CSDISSET, CSDISCLR and CSVSTAT.
func (s Source) bit() uint32 {
	return 1 << s
}

// ParseSource returns the source with the given name, e.g. "pll1".
func ParseSource(name string) (Source, error) {
	for s, i := range sources {
		if i.name == name {
			return s, nil
		}
	}
	return SourceNone, fmt.Errorf("%w: unknown clock source %q", ErrInvalidArgument, name)
}

// Sources returns every known source code except SourceNone, in code order.
func Sources() []Source {
	ss := maps.Keys(sources)
	slices.Sort(ss)
	return ss[:len(ss)-1]
}

// Domain is a clock domain code as used by CDDIS.
type Domain uint8

const (
	DomainGCLK1   Domain = 0x0
	DomainHCLK    Domain = 0x1
	DomainVCLK    Domain = 0x2
	DomainVCLK2   Domain = 0x3
	DomainVCLKA1  Domain = 0x4
	DomainVCLKA2  Domain = 0x5
	DomainRTICLK1 Domain = 0x6
	DomainVCLK3   Domain = 0x8
	DomainVCLKA4  Domain = 0xb
	DomainNone    Domain = 0xc
)

type routeKind int

const (
	routeGHV    routeKind = iota // Shared GHVSRC mux, slot chosen by Mode
	routeVCLKA                   // Fixed slot in VCLKASRC
	routeVCLKA4                  // VCLKACON1 source slot plus caller control bits
	routeRTI                     // RCLKSRC divider and source
)

type domainInfo struct {
	name string
	kind routeKind
	pos  uint // Bit position of the source field, for routeVCLKA/routeVCLKA4
}

var domains = map[Domain]domainInfo{
	DomainGCLK1:   {"gclk1", routeGHV, 0},
	DomainHCLK:    {"hclk", routeGHV, 0},
	DomainVCLK:    {"vclk", routeGHV, 0},
	DomainVCLK2:   {"vclk2", routeGHV, 0},
	DomainVCLKA1:  {"vclka1", routeVCLKA, 0},
	DomainVCLKA2:  {"vclka2", routeVCLKA, 8},
	DomainRTICLK1: {"rticlk1", routeRTI, 0},
	DomainVCLK3:   {"vclk3", routeGHV, 0},
	DomainVCLKA4:  {"vclka4", routeVCLKA4, 16},
}

func (d Domain) String() string {
	if i, ok := domains[d]; ok {
		return i.name
	}
	if d == DomainNone {
		return "none"
	}
	return fmt.Sprintf("Domain(%#x)", uint8(d))
}

func (d Domain) valid() bool {
	_, ok := domains[d]
	return ok
}

// bit is the domain's bit in CDDIS, CDDISSET and CDDISCLR.
func (d Domain) bit() uint32 {
	return 1 << d
}

// ParseDomain returns the domain with the given name, e.g. "rticlk1".
func ParseDomain(name string) (Domain, error) {
	for d, i := range domains {
		if i.name == name {
			return d, nil
		}
	}
	return DomainNone, fmt.Errorf("%w: unknown clock domain %q", ErrInvalidArgument, name)
}

// Domains returns every routable domain, in code order.
func Domains() []Domain {
	ds := maps.Keys(domains)
	slices.Sort(ds)
	return ds
}

// Mode selects which GHVSRC slot a shared-mux domain is routed in.
type Mode uint8

const (
	ModeNormal         Mode = 0x0
	ModeWakeupGCLK1Off Mode = 0x1
	ModeWakeup         Mode = 0x2
)

// RTIDivider is the encoded RTICLK1 divider.
type RTIDivider uint8

const (
	RTIDiv1 RTIDivider = iota
	RTIDiv2
	RTIDiv4
	RTIDiv8
)

func (d RTIDivider) Divisor() uint32 {
	return 1 << d
}

// VCLKA4 control bits that may be passed as the extra argument of Configure.
const (
	VCLKA4_DIV_1     = 0x0 << 24
	VCLKA4_DIV_2     = 0x1 << 24
	VCLKA4_DIV_3     = 0x2 << 24
	VCLKA4_DIV_4     = 0x3 << 24
	VCLKA4_DIV_5     = 0x4 << 24
	VCLKA4_DIV_6     = 0x5 << 24
	VCLKA4_DIV_7     = 0x6 << 24
	VCLKA4_DIV_8     = 0x7 << 24
	VCLKA4_DIV_CDDIS = 0x1 << 20 // Disable the VCLKA4 divider output
)

// Request names a clock path. Either Source or Domain may be SourceNone or
// DomainNone when only the other is of interest.
type Request struct {
	Domain  Domain
	Source  Source
	Mode    Mode
	Divider RTIDivider
}

func SourceRequest(s Source) Request {
	return Request{Domain: DomainNone, Source: s}
}

func DomainRequest(d Domain) Request {
	return Request{Domain: d, Source: SourceNone}
}

func (r Request) String() string {
	return fmt.Sprintf("%v<-%v mode %d div %d", r.Domain, r.Source, r.Mode, r.Divider.Divisor())
}

// Status is the live state of a clock source or domain.
type Status int

const (
	StatusUnknown Status = iota
	StatusOff
	StatusStarting
	StatusOn
)

func (s Status) String() string {
	switch s {
	case StatusOff:
		return "off"
	case StatusStarting:
		return "starting"
	case StatusOn:
		return "on"
	}
	return "unknown"
}
