package sysreg

import (
	"path/filepath"
	"testing"
)

func TestSimSetClearAliases(t *testing.T) {
	s := NewSim()
	s.Poke(CSDIS, 0)
	s.Write32(CSDISSET, 0x42)
	if got := s.Peek(CSDIS); got != 0x42 {
		t.Errorf("CSDIS after set, got: %08X, want: %08X", got, 0x42)
	}
	s.Write32(CSDISCLR, 0x02)
	if got := s.Peek(CSDIS); got != 0x40 {
		t.Errorf("CSDIS after clear, got: %08X, want: %08X", got, 0x40)
	}
	if got := s.Read32(CSDISSET); got != 0x40 {
		t.Errorf("CSDISSET reads CSDIS, got: %08X, want: %08X", got, 0x40)
	}
	s.Write32(CDDISSET, 1<<6)
	s.Write32(CDDISCLR, 1<<2)
	if got := s.Peek(CDDIS); got != 1<<6 {
		t.Errorf("CDDIS, got: %08X, want: %08X", got, 1<<6)
	}
}

func TestSimWriteOneToClear(t *testing.T) {
	tests := []Reg{GBLSTAT, SR1_0, SR4_0}
	for _, r := range tests {
		s := NewSim()
		s.Poke(r, 0x701)
		s.Write32(r, 0x300)
		if got := s.Peek(r); got != 0x401 {
			t.Errorf("%v after W1C, got: %08X, want: %08X", r, got, 0x401)
		}
	}
}

func TestSimPowerOnReset(t *testing.T) {
	s := NewSim()
	if got := s.Peek(CSDIS); got != 0xce {
		t.Errorf("CSDIS, got: %08X, want: %08X", got, 0xce)
	}
	if got := s.Peek(CSVSTAT); got != ^uint32(0xce)&validMask {
		t.Errorf("CSVSTAT, got: %08X, want: %08X", got, ^uint32(0xce)&validMask)
	}
	if got := s.Peek(PLLCTL1); got != 0 {
		t.Errorf("PLLCTL1, got: %08X, want: 0", got)
	}
}

func TestSimAutoValid(t *testing.T) {
	s := NewSim()
	s.AutoValid = true
	s.Write32(CSDISSET, 0xff)
	if got := s.Peek(CSVSTAT); got != 0 {
		t.Errorf("CSVSTAT with all disabled, got: %08X, want: 0", got)
	}
	s.Write32(CSDISCLR, 0x43)
	if got := s.Peek(CSVSTAT); got != 0x43 {
		t.Errorf("CSVSTAT, got: %08X, want: %08X", got, 0x43)
	}
	// CSVSTAT is read-only
	s.Write32(CSVSTAT, 0)
	if got := s.Peek(CSVSTAT); got != 0x43 {
		t.Errorf("CSVSTAT after write, got: %08X, want: %08X", got, 0x43)
	}
}

func TestSimRecordsWrites(t *testing.T) {
	s := NewSim()
	var hooked []Reg
	s.OnWrite = func(r Reg, v uint32) { hooked = append(hooked, r) }
	s.Write32(PLLCTL1, 1)
	s.Write32(PLLCTL3, 2)
	s.Write32(PLLCTL1, 3)
	got := s.WritesTo(PLLCTL1)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("PLLCTL1 writes, got: %v, want: [1 3]", got)
	}
	if len(hooked) != 3 {
		t.Errorf("OnWrite calls, got: %d, want: 3", len(hooked))
	}
	s.Reset()
	if len(s.Writes) != 0 || s.Reads != 0 {
		t.Errorf("Reset left %d writes, %d reads", len(s.Writes), s.Reads)
	}
}

func TestHelpers(t *testing.T) {
	m := Memory{}
	SetBits(m, GHVSRC, 0x0f00)
	ClearBits(m, GHVSRC, 0x0300)
	if got := m.Read32(GHVSRC); got != 0x0c00 {
		t.Errorf("GHVSRC, got: %08X, want: %08X", got, 0x0c00)
	}
	if !HasBits(m, GHVSRC, 0x0400) {
		t.Errorf("HasBits(0x0400) false for %08X", m.Read32(GHVSRC))
	}
	if HasBits(m, GHVSRC, 0x0500) {
		t.Errorf("HasBits(0x0500) true for %08X", m.Read32(GHVSRC))
	}
	ReplaceBits(m, GHVSRC, 0x16, 0xf, 8)
	if got := m.Read32(GHVSRC); got != 0x0600 {
		t.Errorf("GHVSRC after replace, got: %08X, want: %08X", got, 0x0600)
	}
}

func TestMappedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs.img")
	if err := CreateImage(path); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	m, err := Map(path, ImageBases)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for i, r := range All {
		m.Write32(r, uint32(0x1000+i))
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m, err = Map(path, ImageBases)
	if err != nil {
		t.Fatalf("re-Map: %v", err)
	}
	defer m.Close()
	for i, r := range All {
		if got := m.Read32(r); got != uint32(0x1000+i) {
			t.Errorf("%v, got: %08X, want: %08X", r, got, 0x1000+i)
		}
	}
}

func TestSimOnMappedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs.img")
	if err := CreateImage(path); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}
	m, err := Map(path, ImageBases)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer m.Close()
	s := NewSimOn(m)
	s.Write32(CSDISSET, 0x40)
	if got := m.Read32(CSDIS); got != 0x40 {
		t.Errorf("image CSDIS, got: %08X, want: %08X", got, 0x40)
	}
}
