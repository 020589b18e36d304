package gcm

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidConfig   = errors.New("invalid clock configuration")
	ErrTimeout         = errors.New("timed out waiting for clock sources to become invalid")

	// ErrDividerConstraint is returned when an RTICLK1 source, after division,
	// would run slower than VCLK allows.
	ErrDividerConstraint = fmt.Errorf("%w: RTICLK1 source slower than VCLK/divider", ErrInvalidArgument)
)

// ConfigRangeError reports a PLL configuration field outside its hardware range.
type ConfigRangeError struct {
	PLL   string
	Field string
	Value int
	Min   int
	Max   int
}

func (e *ConfigRangeError) Error() string {
	return fmt.Sprintf("%s %s out of range: %d (%d - %d)", e.PLL, e.Field, e.Value, e.Min, e.Max)
}

// LockFailure says which part of the PLL relock sequence failed. The values
// match the return codes documented with the SSWF021#45 workaround.
type LockFailure int

const (
	Pll1Failed    LockFailure = 1
	Pll2Failed    LockFailure = 2
	BothFailed    LockFailure = 3
	DisableFailed LockFailure = 4
)

func (f LockFailure) String() string {
	switch f {
	case Pll1Failed:
		return "PLL1 failed to lock"
	case Pll2Failed:
		return "PLL2 failed to lock"
	case BothFailed:
		return "neither PLL locked"
	case DisableFailed:
		return "couldn't disable PLLs"
	}
	return fmt.Sprintf("LockFailure(%d)", int(f))
}

// LockError is returned when the PLL relock sequence gives up.
type LockError struct {
	Kind     LockFailure
	Attempts int
	Err      error
}

func (e *LockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v after %d attempts: %v", e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%v after %d attempts", e.Kind, e.Attempts)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// BootError wraps a failure of Init. The clock tree can't be trusted and the
// platform shouldn't continue booting.
type BootError struct {
	Stage string
	Err   error
}

func (e *BootError) Error() string {
	return fmt.Sprintf("clock init failed during %s: %v", e.Stage, e.Err)
}

func (e *BootError) Unwrap() error {
	return e.Err
}
