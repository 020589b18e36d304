package sysreg

// Memory is a plain Bus with no side effects. It is the default backing store
// of a Sim.
type Memory map[Reg]uint32

func (m Memory) Read32(r Reg) uint32 {
	return m[r]
}

func (m Memory) Write32(r Reg, v uint32) {
	m[r] = v
}

// Write records one register write seen by a Sim.
type Write struct {
	Reg   Reg
	Value uint32
}

// validMask covers the clock sources that have a bit in CSVSTAT. Bit 2 is reserved.
const validMask = 0xfb

// Sim models the parts of the system module the clock driver depends on:
// set/clear aliases of CSDIS and CDDIS, write-1-to-clear status registers
// and, with AutoValid, sources becoming valid as soon as they are enabled.
// Every write is recorded in Writes.
type Sim struct {
	store Bus

	Writes []Write
	Reads  int

	// AutoValid makes CSVSTAT track the inverse of CSDIS after every write.
	AutoValid bool

	// OnRead is called before a register is read, OnWrite after a write has
	// been applied. Tests use them to model hardware that changes state on its
	// own.
	OnRead  func(r Reg)
	OnWrite func(r Reg, v uint32)
}

// NewSim returns a Sim in its power-on reset state.
func NewSim() *Sim {
	s := &Sim{store: Memory{}}
	s.PowerOnReset()
	return s
}

// NewSimOn returns a Sim that keeps register contents in store, e.g. a Mapped
// register image, so state persists between runs.
func NewSimOn(store Bus) *Sim {
	return &Sim{store: store}
}

func (s *Sim) Read32(r Reg) uint32 {
	s.Reads++
	if s.OnRead != nil {
		s.OnRead(r)
	}
	switch r {
	case CSDISSET, CSDISCLR:
		r = CSDIS
	case CDDISSET, CDDISCLR:
		r = CDDIS
	}
	return s.store.Read32(r)
}

func (s *Sim) Write32(r Reg, v uint32) {
	s.Writes = append(s.Writes, Write{r, v})
	switch r {
	case CSDISSET:
		s.store.Write32(CSDIS, s.store.Read32(CSDIS)|v)
	case CSDISCLR:
		s.store.Write32(CSDIS, s.store.Read32(CSDIS)&^v)
	case CDDISSET:
		s.store.Write32(CDDIS, s.store.Read32(CDDIS)|v)
	case CDDISCLR:
		s.store.Write32(CDDIS, s.store.Read32(CDDIS)&^v)
	case GBLSTAT, SR1_0, SR4_0:
		s.store.Write32(r, s.store.Read32(r)&^v)
	case CSVSTAT:
		// Read-only
	default:
		s.store.Write32(r, v)
	}
	if s.AutoValid {
		s.store.Write32(CSVSTAT, ^s.store.Read32(CSDIS)&validMask)
	}
	if s.OnWrite != nil {
		s.OnWrite(r, v)
	}
}

// Power-on values of the registers that aren't zero after reset. Only the
// oscillator and the LPOs run out of reset.
var resetValues = map[Reg]uint32{
	CSDIS:   0x000000ce,
	CSVSTAT: 0x00000031,
}

// PowerOnReset loads the reset state of every register into the store.
func (s *Sim) PowerOnReset() {
	for _, r := range All {
		s.store.Write32(r, resetValues[r])
	}
}

// Peek reads r without side effects or bookkeeping.
func (s *Sim) Peek(r Reg) uint32 {
	return s.store.Read32(r)
}

// Poke stores v in r without side effects or bookkeeping.
func (s *Sim) Poke(r Reg, v uint32) {
	s.store.Write32(r, v)
}

// WritesTo returns the values written to r, in order.
func (s *Sim) WritesTo(r Reg) []uint32 {
	var vs []uint32
	for _, w := range s.Writes {
		if w.Reg == r {
			vs = append(vs, w.Value)
		}
	}
	return vs
}

// Reset forgets recorded writes and reads.
func (s *Sim) Reset() {
	s.Writes = nil
	s.Reads = 0
}
