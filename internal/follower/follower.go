// Package follower implements the per-connection delivery handle the hub
// addresses. A Follower outlives the liveness of its connection: the session
// cancels it when its inbound pump ends, the next Send observes that and
// moves it to Stopped, and the hub drops it on its next prune.
package follower

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/lanclip/internal/message"
)

// DefaultBuffer is the outbound queue depth used when none is given.
const DefaultBuffer = 32

// State is a follower's lifecycle state. Working → Stopped is the only
// transition.
type State int32

const (
	Working State = iota
	Stopped
)

func (s State) String() string {
	switch s {
	case Working:
		return "working"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Info describes a follower for status reporting.
type Info struct {
	ID          string    `json:"id"`
	Addr        string    `json:"addr"`
	Transport   string    `json:"transport"`
	State       string    `json:"state"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSent    time.Time `json:"last_sent,omitzero"`
}

// Follower is safe for concurrent use by the hub (Send) and its session
// (Outbound, Done, Cancel).
type Follower struct {
	info     Info
	out      chan *message.Message
	cancel   chan struct{}
	once     sync.Once
	state    atomic.Int32
	lastSent atomic.Int64 // UnixNano
}

// New creates a Working follower. An empty info.ID is replaced by a random
// UUID; a non-positive buffer selects DefaultBuffer.
func New(info Info, buffer int) *Follower {
	if info.ID == "" {
		info.ID = uuid.New().String()
	}
	if info.ConnectedAt.IsZero() {
		info.ConnectedAt = time.Now()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Follower{
		info:   info,
		out:    make(chan *message.Message, buffer),
		cancel: make(chan struct{}),
	}
}

func (f *Follower) ID() string { return f.info.ID }

// Info returns a snapshot of the follower's metadata.
func (f *Follower) Info() Info {
	info := f.info
	info.State = f.State().String()
	if ns := f.lastSent.Load(); ns > 0 {
		info.LastSent = time.Unix(0, ns)
	}
	return info
}

func (f *Follower) State() State { return State(f.state.Load()) }

// IsWorking reports whether the follower has not yet been observed as stopped.
// A cancelled follower stays Working until its next Send.
func (f *Follower) IsWorking() bool { return f.State() == Working }

// Outbound is the queue the session writer drains onto its connection.
func (f *Follower) Outbound() <-chan *message.Message { return f.out }

// Done is closed once Cancel has been called.
func (f *Follower) Done() <-chan struct{} { return f.cancel }

// Cancel fires the cooperative stop signal. Safe to call more than once.
func (f *Follower) Cancel() {
	f.once.Do(func() { close(f.cancel) })
}

// Send queues m without blocking. It reports whether m was queued: a
// cancelled follower transitions to Stopped and drops m, and a full queue
// drops m.
func (f *Follower) Send(m *message.Message) bool {
	select {
	case <-f.cancel:
		f.state.Store(int32(Stopped))
		return false
	default:
	}
	if f.State() == Stopped {
		return false
	}

	select {
	case f.out <- m:
		f.lastSent.Store(time.Now().UnixNano())
		return true
	default:
		slog.Warn("follower outbound queue full, dropping", "follower", f.info.ID, "type", m.Type)
		return false
	}
}
