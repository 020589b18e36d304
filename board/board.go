// Package board describes the clock inputs of Hercules boards. Descriptions
// are YAML; a catalogue of known boards is built in.
package board

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/Jon-Bright/hercules-gcm/gcm"
)

//go:embed boards.yaml
var rawBoards []byte

var boards []Board

var ErrUnknownBoard = errors.New("unknown board")

// Board is a board's clock description as written in YAML. Frequencies are
// in Hz. Sources lists the sources that are physically present by name, e.g.
// "pll1"; anything not listed stays disabled.
type Board struct {
	Name                string   `yaml:"name"`
	Oscillator          uint32   `yaml:"oscillator"`
	ExtClkIn1           uint32   `yaml:"extClkIn1"`
	ExtClkIn2           uint32   `yaml:"extClkIn2"`
	LFLPO               uint32   `yaml:"lfLPO"`
	HFLPO               uint32   `yaml:"hfLPO"`
	FrequencyModulation bool     `yaml:"frequencyModulation"`
	Sources             []string `yaml:"sources"`
	PLL1                *PLL     `yaml:"pll1"`
	PLL2                *PLL     `yaml:"pll2"`
}

type PLL struct {
	NR             int         `yaml:"nr"`
	NF             int         `yaml:"nf"`
	OD             int         `yaml:"od"`
	R              int         `yaml:"r"`
	ResetOnSlip    bool        `yaml:"resetOnSlip"`
	BypassOnSlip   bool        `yaml:"bypassOnSlip"`
	ResetOnOscFail bool        `yaml:"resetOnOscFail"`
	Modulation     *Modulation `yaml:"modulation"`
}

type Modulation struct {
	NS     int `yaml:"ns"`
	NV     int `yaml:"nv"`
	MulMod int `yaml:"mulMod"`
}

func (p *PLL) params() gcm.PLLParams {
	gp := gcm.PLLParams{
		NR:             p.NR,
		NF:             p.NF,
		OD:             p.OD,
		R:              p.R,
		ResetOnSlip:    p.ResetOnSlip,
		BypassOnSlip:   p.BypassOnSlip,
		ResetOnOscFail: p.ResetOnOscFail,
	}
	if p.Modulation != nil {
		gp.Modulation = &gcm.Modulation{NS: p.Modulation.NS, NV: p.Modulation.NV, MulMod: p.Modulation.MulMod}
	}
	return gp
}

// Config validates b and converts it for gcm.New.
func (b Board) Config() (gcm.Config, error) {
	cfg := gcm.Config{
		OscIn:               gcm.Hertz(b.Oscillator),
		ExtClkIn1:           gcm.Hertz(b.ExtClkIn1),
		ExtClkIn2:           gcm.Hertz(b.ExtClkIn2),
		LFLPO:               gcm.Hertz(b.LFLPO),
		HFLPO:               gcm.Hertz(b.HFLPO),
		FrequencyModulation: b.FrequencyModulation,
	}
	for _, name := range b.Sources {
		s, err := gcm.ParseSource(name)
		if err != nil {
			return gcm.Config{}, fmt.Errorf("board %s: %w", b.Name, err)
		}
		cfg.Sources = append(cfg.Sources, s)
	}
	if b.PLL1 != nil {
		c, err := gcm.NewPLLConfig("pll1", b.PLL1.params())
		if err != nil {
			return gcm.Config{}, fmt.Errorf("board %s: %w", b.Name, err)
		}
		cfg.PLL1 = &c
	}
	if b.PLL2 != nil {
		c, err := gcm.NewPLLConfig("pll2", b.PLL2.params())
		if err != nil {
			return gcm.Config{}, fmt.Errorf("board %s: %w", b.Name, err)
		}
		cfg.PLL2 = &c
	}
	if err := cfg.Validate(); err != nil {
		return gcm.Config{}, fmt.Errorf("board %s: %w", b.Name, err)
	}
	return cfg, nil
}

func decode(data []byte) (Board, error) {
	var b Board
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Load reads a single board description from path.
func Load(path string) (Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Board{}, fmt.Errorf("couldn't read board file: %w", err)
	}
	b, err := decode(data)
	if err != nil {
		return Board{}, fmt.Errorf("couldn't decode board file %s: %w", path, err)
	}
	return b, nil
}

// Lookup returns the built-in board called name.
func Lookup(name string) (Board, error) {
	i := slices.IndexFunc(boards, func(b Board) bool { return b.Name == name })
	if i < 0 {
		return Board{}, fmt.Errorf("%w %q", ErrUnknownBoard, name)
	}
	return boards[i], nil
}

// Names returns the names of the built-in boards, sorted.
func Names() []string {
	names := make([]string, len(boards))
	for i, b := range boards {
		names[i] = b.Name
	}
	slices.Sort(names)
	return names
}

func init() {
	var c struct {
		Boards []Board `yaml:"boards"`
	}
	if err := yaml.Unmarshal(rawBoards, &c); err != nil {
		panic(err)
	}
	boards = c.Boards
}
