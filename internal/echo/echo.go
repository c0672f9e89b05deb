// Package echo suppresses re-detection of clipboard writes that this process
// applied on behalf of a remote peer.
//
// A Guard is a single slot: inbound paths Arm it just before writing to the
// local clipboard, and the detection loop calls TestAndClear on every change
// it observes. If a genuine local edit lands between Arm and the next poll it
// is swallowed as well; the hub's last-writer exclusion covers the opposite
// race.
package echo

import "sync/atomic"

// Guard is safe for concurrent use. The zero value is disarmed.
type Guard struct {
	armed atomic.Bool
}

// New returns a disarmed Guard.
func New() *Guard { return &Guard{} }

// Arm marks the next observed change as self-inflicted.
func (g *Guard) Arm() { g.armed.Store(true) }

// TestAndClear reports whether the guard was armed and disarms it.
func (g *Guard) TestAndClear() bool { return g.armed.Swap(false) }
