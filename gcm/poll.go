package gcm

// Poller runs done until it returns true or limit checks have been made. A
// limit <= 0 means no limit. Poll reports whether done returned true.
//
// Everything here runs before interrupts and the scheduler are up, so the
// default just spins.
type Poller interface {
	Poll(limit int, done func() bool) bool
}

// PollerFunc adapts a function to a Poller.
type PollerFunc func(limit int, done func() bool) bool

func (f PollerFunc) Poll(limit int, done func() bool) bool {
	return f(limit, done)
}

// SpinPoller busy-waits.
type SpinPoller struct{}

func (SpinPoller) Poll(limit int, done func() bool) bool {
	for i := 0; limit <= 0 || i < limit; i++ {
		if done() {
			return true
		}
	}
	return false
}
